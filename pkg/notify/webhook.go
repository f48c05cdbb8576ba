package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/edgewatch/tolerance-monitor/pkg/monitor"
)

// WebhookConfig configures a webhook notifier.
type WebhookConfig struct {
	// URL of the incoming webhook (Slack-compatible `{"text": ...}` payload).
	URL string
	// Timeout per HTTP attempt. Defaults to 5s.
	Timeout time.Duration
	// MaxRetries per event on retryable failures. Defaults to 3.
	MaxRetries uint64
	// RatePerSecond caps outgoing requests. Defaults to 1.
	RatePerSecond float64
}

// Webhook posts transitions to an incoming webhook. Retryable failures
// (network errors, 5xx) are retried with exponential backoff; 4xx responses
// are permanent. A client-side rate limiter and per-attempt timeout keep a
// slow or noisy endpoint from piling up requests.
type Webhook struct {
	url        string
	client     *http.Client
	maxRetries uint64
	limiter    *rate.Limiter
}

// NewWebhook creates a webhook notifier.
func NewWebhook(cfg WebhookConfig) *Webhook {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 1
	}

	return &Webhook{
		url:        cfg.URL,
		client:     &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
	}
}

// Notify posts the event, blocking for the rate limiter first.
func (w *Webhook) Notify(ctx context.Context, ev Event) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	payload, err := json.Marshal(map[string]string{
		"text": formatEvent(ev),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to send request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("webhook rejected event with status %d", resp.StatusCode))
		}

		return nil
	}

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), w.maxRetries)
	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

func formatEvent(ev Event) string {
	icon := "🟡"
	if ev.State == monitor.StateFault {
		icon = "🔴"
	}

	return fmt.Sprintf("%s signal %s is %s (value: %v at %s)",
		icon, ev.SignalID, ev.State, ev.Value, ev.Timestamp.Format(time.RFC3339))
}
