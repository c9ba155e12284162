// Package trigger issues fire-and-forget POST calls to the downstream
// application API. A job is considered dispatched once the request is on the
// wire; the downstream business logic runs on its own time.
package trigger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const defaultDispatchWindow = 2 * time.Second

// Client delegates work to the application's API endpoints.
type Client struct {
	BaseURL string
	Secret  string
	Client  *http.Client
	Logger  *slog.Logger

	// DispatchWindow bounds how long Trigger waits for a synchronous
	// transport failure before detaching. It is not a request timeout; the
	// detached call runs to completion and its outcome is only logged.
	DispatchWindow time.Duration
}

func New(baseURL, secret string, logger *slog.Logger) *Client {
	return &Client{BaseURL: baseURL, Secret: secret, Logger: logger}
}

// Trigger POSTs the payload to BaseURL+path with the shared worker secret.
// A transport error surfacing within the dispatch window is returned so the
// queue can fail the job; after the window the call is treated as dispatched.
// Non-2xx responses are logged, not returned: only transport-level failure
// means the downstream action never started.
func (c *Client) Trigger(ctx context.Context, path string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal trigger payload: %w", err)
	}
	// The request is detached from the job context so queue-side completion
	// does not cancel downstream work already in flight.
	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build trigger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Worker-Secret", c.Secret)

	done := make(chan error, 1)
	go func() {
		resp, err := c.client().Do(req)
		if err != nil {
			c.Logger.Error("trigger call failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
			done <- err
			return
		}
		resp.Body.Close()
		if resp.StatusCode >= 400 {
			c.Logger.Warn("trigger endpoint returned an error status",
				slog.String("path", path),
				slog.Int("status", resp.StatusCode))
		} else {
			c.Logger.Info("trigger call completed",
				slog.String("path", path),
				slog.Int("status", resp.StatusCode))
		}
		done <- nil
	}()

	window := c.DispatchWindow
	if window <= 0 {
		window = defaultDispatchWindow
	}
	select {
	case err := <-done:
		return err
	case <-time.After(window):
		// Dispatched; the goroutine above logs the eventual outcome.
		return nil
	}
}

func (c *Client) client() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return http.DefaultClient
}
