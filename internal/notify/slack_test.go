package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWebhookNotifierPostsMessage(t *testing.T) {
	var calls int
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		body, _ = io.ReadAll(r.Body)
	}))
	defer server.Close()

	n := &WebhookNotifier{URL: server.URL, DashboardURL: "http://app.local", Logger: discardLogger()}
	n.Notify(context.Background(), Alert{Name: "Daily Orders", ID: "r1", CurrentValue: 10, Operator: ">", Threshold: 5})

	if calls != 1 {
		t.Fatalf("expected exactly one delivery, got %d", calls)
	}
	text := string(body)
	if !strings.Contains(text, "Alert Triggered: Daily Orders") {
		t.Fatalf("message must name the rule: %s", text)
	}
	if !strings.Contains(text, "10 > 5") {
		t.Fatalf("message must show the condition: %s", text)
	}
	if !strings.Contains(text, "http://app.local/alert") {
		t.Fatalf("message must link the dashboard: %s", text)
	}
}

func TestWebhookNotifierMissingURLDoesNotPanic(t *testing.T) {
	n := &WebhookNotifier{Logger: discardLogger()}
	n.Notify(context.Background(), Alert{Name: "x", ID: "r1"})
}

func TestWebhookNotifierSwallowsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	n := &WebhookNotifier{URL: server.URL, Logger: discardLogger()}
	n.Notify(context.Background(), Alert{Name: "x", ID: "r1"})
}

func TestBotNotifierPostsToChannel(t *testing.T) {
	var got map[string]any
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer server.Close()

	n := &BotNotifier{Token: "xoxb-test", ChannelID: "C042", APIURL: server.URL, Logger: discardLogger()}
	n.Notify(context.Background(), Alert{Name: "Churn", ID: "k1", CurrentValue: 2, Operator: "<=", Threshold: 2})

	if auth != "Bearer xoxb-test" {
		t.Fatalf("unexpected authorization header: %s", auth)
	}
	if got["channel"] != "C042" {
		t.Fatalf("unexpected channel: %v", got["channel"])
	}
	if got["text"] != "Alert Triggered: Churn" {
		t.Fatalf("unexpected fallback text: %v", got["text"])
	}
}

func TestBotNotifierMissingCredentials(t *testing.T) {
	n := &BotNotifier{Logger: discardLogger()}
	n.Notify(context.Background(), Alert{Name: "x", ID: "r1"})

	n = &BotNotifier{Token: "xoxb-test", Logger: discardLogger()}
	n.Notify(context.Background(), Alert{Name: "x", ID: "r1"})
}

func TestBotNotifierSwallowsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "channel_not_found"})
	}))
	defer server.Close()

	n := &BotNotifier{Token: "xoxb-test", ChannelID: "C042", APIURL: server.URL, Logger: discardLogger()}
	n.Notify(context.Background(), Alert{Name: "x", ID: "r1"})
}

func TestNewPrefersBotToken(t *testing.T) {
	n := New("http://hook", "xoxb-test", "C1", "http://app", discardLogger())
	if _, ok := n.(*BotNotifier); !ok {
		t.Fatalf("expected bot strategy when a token is configured")
	}
	n = New("http://hook", "", "", "http://app", discardLogger())
	if _, ok := n.(*WebhookNotifier); !ok {
		t.Fatalf("expected webhook strategy without a token")
	}
}
