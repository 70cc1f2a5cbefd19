// Package notify posts newly recorded events to an outbound webhook
// (Discord-compatible {"content": ...} body).
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"chronicle/internal/models"
)

type Payload struct {
	Content string `json:"content"`
}

type WebhookSender struct {
	URL     string
	HTTP    *http.Client
	Timeout time.Duration
	Logger  *zap.Logger
}

func (s *WebhookSender) Send(ctx context.Context, payload Payload) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	client := s.HTTP
	if client == nil {
		client = &http.Client{Timeout: s.timeout()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &httpError{StatusCode: resp.StatusCode}
	}
	return nil
}

// EventCreated sends in the background; failures are logged and dropped.
func (s *WebhookSender) EventCreated(_ context.Context, event models.Event) {
	if s == nil || strings.TrimSpace(s.URL) == "" {
		return
	}
	payload := Payload{Content: Message(event)}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout())
		defer cancel()
		if err := s.Send(ctx, payload); err != nil && s.Logger != nil {
			s.Logger.Warn("event notification failed", zap.String("event_id", event.ID), zap.Error(err))
		}
	}()
}

// Message renders the one-line notification text for event.
func Message(event models.Event) string {
	msg := fmt.Sprintf("**%s** [%s] %s", event.Title, event.Category, event.Date.UTC().Format("2006-01-02 15:04 MST"))
	if node := event.Node(); node != "" {
		msg += " on " + node
	}
	if event.Source != "" && event.Source != models.SourceManual {
		msg += " via " + event.Source
	}
	return msg
}

func (s *WebhookSender) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return 5 * time.Second
}

type httpError struct {
	StatusCode int
}

func (e *httpError) Error() string {
	return "webhook http status " + http.StatusText(e.StatusCode)
}
