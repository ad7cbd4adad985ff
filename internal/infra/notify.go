package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// WebhookNotifier posts operator notifications to an HTTP endpoint
// (a chat-bot bridge in production). Delivery is best-effort: a failed
// post is logged and dropped, progress messages are not worth retry
// plumbing.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWebhookNotifier creates a webhook sink for operator messages.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: slog.Default().With("module", "webhook_notifier"),
	}
}

// Notify posts one message. Safe to call from any goroutine.
func (w *WebhookNotifier) Notify(text string) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		w.logger.Error("Failed to marshal notification", slog.Any("error", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		w.logger.Error("Failed to build notification request", slog.Any("error", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		w.logger.Warn("Notification delivery failed", slog.Any("error", err))
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		w.logger.Warn("Notification rejected", slog.Int("status", resp.StatusCode))
	}
}
