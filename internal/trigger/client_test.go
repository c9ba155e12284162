package trigger

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTriggerSendsSecretAndPayload(t *testing.T) {
	var secret, path string
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret = r.Header.Get("X-Worker-Secret")
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer server.Close()

	c := New(server.URL, "s3cret", discardLogger())
	err := c.Trigger(context.Background(), "/api/report-trigger", map[string]any{"slug": "weekly", "run_id": "abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secret != "s3cret" {
		t.Fatalf("unexpected secret header: %s", secret)
	}
	if path != "/api/report-trigger" {
		t.Fatalf("unexpected path: %s", path)
	}
	if got["slug"] != "weekly" || got["run_id"] != "abc" {
		t.Fatalf("unexpected payload: %v", got)
	}
}

func TestTriggerReturnsSynchronousTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	c := New(server.URL, "s", discardLogger())
	if err := c.Trigger(context.Background(), "/api/report-trigger", map[string]any{}); err == nil {
		t.Fatalf("expected error when the endpoint is unreachable")
	}
}

func TestTriggerDetachesFromSlowDownstream(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	c := New(server.URL, "s", discardLogger())
	c.DispatchWindow = 50 * time.Millisecond

	start := time.Now()
	if err := c.Trigger(context.Background(), "/api/report-trigger", map[string]any{}); err != nil {
		t.Fatalf("slow downstream must not fail the dispatch: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("trigger must not wait for downstream completion, took %v", elapsed)
	}
}

func TestTriggerIgnoresErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := New(server.URL, "s", discardLogger())
	if err := c.Trigger(context.Background(), "/api/alert-test", map[string]any{}); err != nil {
		t.Fatalf("http error statuses are not transport failures: %v", err)
	}
}

func TestTriggerSurvivesCancelledJobContext(t *testing.T) {
	done := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(done)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := New(server.URL, "s", discardLogger())
	if err := c.Trigger(ctx, "/api/tracker-trigger", map[string]any{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("request never reached the downstream")
	}
}
