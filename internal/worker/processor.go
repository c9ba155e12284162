package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"autonomis-worker/internal/notify"
	"autonomis-worker/internal/poller"
	"autonomis-worker/internal/storage"
)

type RuleStore interface {
	GetMetricRule(ctx context.Context, id string) (storage.MetricRule, error)
	GetMetricSource(ctx context.Context, metricID string) (storage.MetricSource, error)
	GetKpiRule(ctx context.Context, id string) (storage.KpiRule, error)
	GetConnection(ctx context.Context, databaseID string) ([]byte, error)
	AppendHistory(ctx context.Context, rec storage.HistoryRecord) error
}

type Poller interface {
	Poll(ctx context.Context, desc poller.Descriptor, query string) (float64, error)
}

type Delegator interface {
	Trigger(ctx context.Context, path string, payload any) error
}

// Processor is the job dispatcher. One Process call owns the full lifecycle
// of a job attempt and its history record.
type Processor struct {
	Repo      RuleStore
	Poller    Poller
	Notifier  notify.Notifier
	Delegator Delegator
	Logger    *slog.Logger

	// DelegateAlerts switches metric/custom_kpi jobs from local evaluation
	// to the downstream alert-test endpoint.
	DelegateAlerts bool
}

type reportTriggerPayload struct {
	Slug           string `json:"slug"`
	SlackChannelID string `json:"slackChannelId"`
	ViewType       string `json:"viewType,omitempty"`
	SubViewType    string `json:"subViewType,omitempty"`
	ExecutionType  string `json:"executionType"`
	RunID          string `json:"run_id"`
}

type metricTestPayload struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Source string `json:"source"`
}

type kpiTestPayload struct {
	KpiID  string `json:"kpiId"`
	Source string `json:"source"`
}

type trackerPayload struct {
	Slug           string `json:"slug"`
	ExecutionType  string `json:"executionType"`
	SlackChannelID string `json:"slackChannelId"`
}

// Process routes a job by kind. A returned error tells the queue runtime the
// attempt failed; redelivery is the queue's decision.
func (p *Processor) Process(ctx context.Context, job Job) error {
	switch job.Kind {
	case KindMetric, KindCustomKpi:
		if p.DelegateAlerts {
			return p.delegateAlert(ctx, job)
		}
		return p.evaluateAlert(ctx, job)
	case KindReport:
		return p.triggerReport(ctx, job)
	case KindAlertTracker:
		if err := p.Delegator.Trigger(ctx, "/api/tracker-trigger", trackerPayload{
			Slug:           job.Slug,
			ExecutionType:  "scheduled",
			SlackChannelID: job.SlackChannelID,
		}); err != nil {
			return fmt.Errorf("tracker trigger for %s: %w", job.Slug, err)
		}
		return nil
	default:
		p.Logger.Warn("unknown job kind received", slog.String("kind", job.Kind))
		return nil
	}
}

type evaluation struct {
	status  string
	details map[string]any
	err     error
}

// evaluateAlert runs the self-contained pipeline: resolve rule, poll,
// evaluate, notify on trigger. The history record is written before any
// failure propagates, so the audit trail survives the retry path.
func (p *Processor) evaluateAlert(ctx context.Context, job Job) error {
	result, ownerID := p.runEvaluation(ctx, job)
	if ownerID != "" {
		details, _ := json.Marshal(result.details)
		err := p.Repo.AppendHistory(ctx, storage.HistoryRecord{
			RuleID:  job.RuleID,
			Status:  result.status,
			Details: details,
			UserID:  ownerID,
		})
		if err != nil {
			p.Logger.Error("history append failed",
				slog.String("rule_id", job.RuleID),
				slog.String("error", err.Error()))
		}
	}
	if result.status == StatusFailed {
		p.Logger.Error("alert job failed",
			slog.String("rule_id", job.RuleID),
			slog.String("error", result.err.Error()))
		return result.err
	}
	return nil
}

func (p *Processor) runEvaluation(ctx context.Context, job Job) (evaluation, string) {
	var (
		ownerID   string
		active    bool
		name      string
		sqlText   string
		connJSON  []byte
		operator  string
		threshold float64
	)

	switch job.Kind {
	case KindMetric:
		rule, err := p.Repo.GetMetricRule(ctx, job.RuleID)
		if err != nil {
			return failed(fmt.Errorf("metric rule %s: %w", job.RuleID, err)), ""
		}
		ownerID = rule.UserID
		active = rule.IsActive
		operator = rule.Operator
		threshold = rule.Threshold
		if active {
			src, err := p.Repo.GetMetricSource(ctx, rule.MetricID)
			if err != nil {
				return failed(fmt.Errorf("metric rule %s: %w", job.RuleID, err)), ownerID
			}
			name = src.Name
			if name == "" {
				name = "Metric Rule " + rule.ID
			}
			sqlText = src.SQL
			connJSON = src.ConnectionJSON
		}
	case KindCustomKpi:
		kpi, err := p.Repo.GetKpiRule(ctx, job.RuleID)
		if err != nil {
			return failed(fmt.Errorf("custom kpi rule %s: %w", job.RuleID, err)), ""
		}
		ownerID = kpi.UserID
		active = kpi.IsActive
		name = kpi.Name
		sqlText = kpi.SQL
		operator = kpi.Operator
		threshold = kpi.Threshold
		if active {
			connJSON, err = p.Repo.GetConnection(ctx, kpi.DatabaseID)
			if err != nil {
				return failed(fmt.Errorf("database connection for kpi %s: %w", job.RuleID, err)), ownerID
			}
		}
	}

	if !active {
		return evaluation{
			status:  StatusSkipped,
			details: map[string]any{"message": "Rule is inactive, skipped."},
		}, ownerID
	}

	desc, err := poller.ParseConnection(connJSON)
	if err != nil {
		return failed(err), ownerID
	}
	value, err := p.Poller.Poll(ctx, desc, sqlText)
	if err != nil {
		return failed(err), ownerID
	}
	triggered, err := EvaluateCondition(value, operator, threshold)
	if err != nil {
		return failed(err), ownerID
	}

	status := StatusSuccess
	if triggered {
		status = StatusTriggered
		p.Notifier.Notify(ctx, notify.Alert{
			Name:         name,
			ID:           job.RuleID,
			CurrentValue: value,
			Operator:     operator,
			Threshold:    threshold,
		})
	} else {
		p.Logger.Info("rule evaluated without trigger", slog.String("rule_id", job.RuleID))
	}
	return evaluation{
		status:  status,
		details: map[string]any{"value": value, "operator": operator, "threshold": threshold},
	}, ownerID
}

func failed(err error) evaluation {
	return evaluation{
		status:  StatusFailed,
		details: map[string]any{"error": err.Error()},
		err:     err,
	}
}

// delegateAlert hands the evaluation to the downstream test endpoint. The
// initiation record is written only when the delegation itself succeeded.
func (p *Processor) delegateAlert(ctx context.Context, job Job) error {
	runID := uuid.NewString()
	var payload any
	if job.Kind == KindMetric {
		payload = metricTestPayload{ID: job.RuleID, Type: "metric", Source: "worker"}
	} else {
		payload = kpiTestPayload{KpiID: job.RuleID, Source: "worker"}
	}
	if err := p.Delegator.Trigger(ctx, "/api/alert-test", payload); err != nil {
		p.Logger.Error("alert test trigger failed",
			slog.String("rule_id", job.RuleID),
			slog.String("error", err.Error()))
		return err
	}
	details, _ := json.Marshal(map[string]any{"message": "evaluation delegated"})
	err := p.Repo.AppendHistory(ctx, storage.HistoryRecord{
		RuleID:  job.RuleID,
		Status:  StatusTriggered,
		RunID:   runID,
		Details: details,
		UserID:  job.UserID,
	})
	if err != nil {
		p.Logger.Error("history append failed",
			slog.String("rule_id", job.RuleID),
			slog.String("error", err.Error()))
	}
	return nil
}

// triggerReport fires the report-generation endpoint. The run id is minted
// before any network activity so worker and downstream logs can be joined.
func (p *Processor) triggerReport(ctx context.Context, job Job) error {
	runID := uuid.NewString()
	err := p.Delegator.Trigger(ctx, "/api/report-trigger", reportTriggerPayload{
		Slug:           job.Slug,
		SlackChannelID: job.SlackChannelID,
		ViewType:       job.ViewType,
		SubViewType:    job.SubViewType,
		ExecutionType:  "scheduled",
		RunID:          runID,
	})
	if err != nil {
		p.appendReportHistory(ctx, job, runID, StatusFailed, map[string]any{"error": err.Error()})
		return fmt.Errorf("report trigger for %s: %w", job.Slug, err)
	}
	p.Logger.Info("report generation triggered",
		slog.String("slug", job.Slug),
		slog.String("run_id", runID))
	p.appendReportHistory(ctx, job, runID, StatusTriggered, map[string]any{"message": "report generation triggered"})
	return nil
}

func (p *Processor) appendReportHistory(ctx context.Context, job Job, runID, status string, detail map[string]any) {
	details, _ := json.Marshal(detail)
	err := p.Repo.AppendHistory(ctx, storage.HistoryRecord{
		RuleID:  job.Slug,
		Status:  status,
		RunID:   runID,
		Details: details,
		UserID:  job.ReportOwnerID,
	})
	if err != nil {
		p.Logger.Error("report history append failed",
			slog.String("slug", job.Slug),
			slog.String("run_id", runID),
			slog.String("error", err.Error()))
	}
}
