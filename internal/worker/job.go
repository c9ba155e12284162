// Package worker routes queue jobs to rule evaluation, delegation and
// history persistence.
package worker

import (
	"encoding/json"
	"fmt"
)

const (
	KindMetric       = "metric"
	KindCustomKpi    = "custom_kpi"
	KindReport       = "report"
	KindAlertTracker = "alert_tracker"
)

const (
	StatusSuccess   = "success"
	StatusTriggered = "triggered"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// Job is one delivery from the queue. Produced externally by the scheduler,
// immutable for the duration of the attempt.
type Job struct {
	Kind           string
	RuleID         string
	Slug           string
	SlackChannelID string
	ViewType       string
	SubViewType    string
	ReportOwnerID  string
	UserID         string
}

type envelope struct {
	Name string  `json:"name"`
	Data jobData `json:"data"`
}

type jobData struct {
	JobID          string `json:"jobId"`
	RuleID         string `json:"ruleId"`
	JobType        string `json:"jobType"`
	Slug           string `json:"slug"`
	SlackChannelID string `json:"slackChannelId"`
	ViewType       string `json:"viewType"`
	SubViewType    string `json:"subViewType"`
	ReportOwnerID  string `json:"reportOwnerId"`
	UserID         string `json:"userId"`
}

// ParseJob decodes a queue envelope. The rule id may arrive as jobId or
// ruleId depending on the producer.
func ParseJob(data []byte) (Job, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Job{}, fmt.Errorf("decode job envelope: %w", err)
	}
	ruleID := env.Data.JobID
	if ruleID == "" {
		ruleID = env.Data.RuleID
	}
	return Job{
		Kind:           env.Name,
		RuleID:         ruleID,
		Slug:           env.Data.Slug,
		SlackChannelID: env.Data.SlackChannelID,
		ViewType:       env.Data.ViewType,
		SubViewType:    env.Data.SubViewType,
		ReportOwnerID:  env.Data.ReportOwnerID,
		UserID:         env.Data.UserID,
	}, nil
}
