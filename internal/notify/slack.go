// Package notify delivers triggered-alert messages to Slack. Delivery
// failures are logged and never escalate: a lost notification must not fail
// an evaluation that already ran and was recorded.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

const defaultSlackAPIURL = "https://slack.com/api/chat.postMessage"

type Alert struct {
	Name         string
	ID           string
	CurrentValue float64
	Operator     string
	Threshold    float64
}

type Notifier interface {
	Notify(ctx context.Context, alert Alert)
}

type textObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type buttonElement struct {
	Type string     `json:"type"`
	Text textObject `json:"text"`
	URL  string     `json:"url"`
}

type block struct {
	Type     string          `json:"type"`
	Text     *textObject     `json:"text,omitempty"`
	Fields   []textObject    `json:"fields,omitempty"`
	Elements []buttonElement `json:"elements,omitempty"`
}

func alertBlocks(alert Alert) []block {
	return []block{
		{
			Type: "section",
			Text: &textObject{Type: "mrkdwn", Text: fmt.Sprintf("*🚨 Alert Triggered: %s*", alert.Name)},
		},
		{
			Type: "section",
			Fields: []textObject{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Condition Met:*\n`%v %s %v`", alert.CurrentValue, alert.Operator, alert.Threshold)},
				{Type: "mrkdwn", Text: "*Status:*\n🔥 Triggered"},
			},
		},
	}
}

// New picks the delivery strategy: bot token when present, incoming webhook
// otherwise. Missing credentials are reported at send time, not here.
func New(webhookURL, botToken, channelID, dashboardURL string, logger *slog.Logger) Notifier {
	if botToken != "" {
		return &BotNotifier{Token: botToken, ChannelID: channelID, Logger: logger}
	}
	return &WebhookNotifier{URL: webhookURL, DashboardURL: dashboardURL, Logger: logger}
}

// WebhookNotifier posts the alert message to a Slack incoming webhook.
type WebhookNotifier struct {
	URL          string
	DashboardURL string
	Client       *http.Client
	Logger       *slog.Logger
}

func (n *WebhookNotifier) Notify(ctx context.Context, alert Alert) {
	if n.URL == "" {
		n.Logger.Error("slack webhook url is not configured, cannot send notification")
		return
	}
	blocks := alertBlocks(alert)
	if n.DashboardURL != "" {
		blocks = append(blocks, block{
			Type: "actions",
			Elements: []buttonElement{{
				Type: "button",
				Text: textObject{Type: "plain_text", Text: "View Alert Dashboard"},
				URL:  n.DashboardURL + "/alert",
			}},
		})
	}
	message := map[string]any{
		"text":   fmt.Sprintf("🚨 Alert Triggered: %s", alert.Name),
		"blocks": blocks,
	}
	resp, err := postJSON(ctx, n.client(), n.URL, nil, message)
	if err != nil {
		n.Logger.Error("failed to send slack notification",
			slog.String("rule_id", alert.ID),
			slog.String("error", err.Error()))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		n.Logger.Error("slack webhook returned an error",
			slog.String("rule_id", alert.ID),
			slog.Int("status", resp.StatusCode))
		return
	}
	n.Logger.Info("slack notification sent", slog.String("rule_id", alert.ID))
}

func (n *WebhookNotifier) client() *http.Client {
	if n.Client != nil {
		return n.Client
	}
	return http.DefaultClient
}

// BotNotifier posts the alert via chat.postMessage with a bot token to a
// fixed destination channel.
type BotNotifier struct {
	Token     string
	ChannelID string
	APIURL    string
	Client    *http.Client
	Logger    *slog.Logger
}

func (n *BotNotifier) Notify(ctx context.Context, alert Alert) {
	if n.Token == "" {
		n.Logger.Error("slack bot token is not configured, cannot send notification")
		return
	}
	if n.ChannelID == "" {
		n.Logger.Error("slack channel id is not configured, cannot send notification")
		return
	}
	message := map[string]any{
		"channel": n.ChannelID,
		"text":    fmt.Sprintf("Alert Triggered: %s", alert.Name),
		"blocks":  alertBlocks(alert),
	}
	apiURL := n.APIURL
	if apiURL == "" {
		apiURL = defaultSlackAPIURL
	}
	headers := map[string]string{"Authorization": "Bearer " + n.Token}
	resp, err := postJSON(ctx, n.client(), apiURL, headers, message)
	if err != nil {
		n.Logger.Error("failed to send slack notification",
			slog.String("rule_id", alert.ID),
			slog.String("error", err.Error()))
		return
	}
	defer resp.Body.Close()
	var apiResp struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		n.Logger.Error("failed to decode slack response",
			slog.String("rule_id", alert.ID),
			slog.String("error", err.Error()))
		return
	}
	if !apiResp.OK {
		n.Logger.Error("slack api returned an error",
			slog.String("rule_id", alert.ID),
			slog.String("error", apiResp.Error))
		return
	}
	n.Logger.Info("slack notification sent", slog.String("rule_id", alert.ID))
}

func (n *BotNotifier) client() *http.Client {
	if n.Client != nil {
		return n.Client
	}
	return http.DefaultClient
}

func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload any) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	return client.Do(req)
}
