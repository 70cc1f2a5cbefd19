package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"chronicle/internal/ingest"
	"chronicle/internal/models"
	"chronicle/internal/repository"
)

// WebhookRecorder receives one outcome label per delivery.
type WebhookRecorder interface {
	WebhookReceived(source, outcome string)
}

// WebhookService runs inbound deliveries through audit log, signature
// check, adapter and materializer.
type WebhookService struct {
	Store        repository.Repository
	Materializer *Materializer
	Adapters     map[string]ingest.Adapter
	Recorder     WebhookRecorder
	Logger       *zap.Logger
	Now          func() time.Time
}

type WebhookDelivery struct {
	Source string
	Header http.Header
	Body   []byte
	IP     string
}

type WebhookResult struct {
	LogID    string   `json:"logId"`
	EventIDs []string `json:"eventIds"`
	Created  int      `json:"created"`
	Marker   string   `json:"marker,omitempty"`
	Message  string   `json:"message"`
}

// NewWebhookService wires the default adapter set.
func NewWebhookService(store repository.Repository, m *Materializer, githubSecret, gitlabSecret string, logger *zap.Logger) *WebhookService {
	adapters := []ingest.Adapter{
		ingest.NewGitHub(githubSecret),
		ingest.NewGitLab(gitlabSecret),
		ingest.NewAnsible(),
		ingest.NewPrometheus(),
		ingest.NewWatchtower(),
	}
	s := &WebhookService{
		Store:        store,
		Materializer: m,
		Adapters:     make(map[string]ingest.Adapter, len(adapters)),
		Logger:       logger,
	}
	for _, a := range adapters {
		s.Adapters[a.Source()] = a
	}
	return s
}

func (s *WebhookService) Adapter(source string) (ingest.Adapter, bool) {
	if s == nil {
		return nil, false
	}
	a, ok := s.Adapters[source]
	return a, ok
}

// Handle never creates an event for a delivery that failed verification,
// and always leaves an audit row behind. Malformed payloads are
// acknowledged without error.
func (s *WebhookService) Handle(ctx context.Context, d WebhookDelivery) (WebhookResult, error) {
	adapter, ok := s.Adapter(d.Source)
	if !ok {
		return WebhookResult{}, notFoundf("webhook source %q", d.Source)
	}
	log := &models.WebhookLog{
		Source:    d.Source,
		EventType: adapter.EventType(d.Header),
		Payload:   string(d.Body),
	}
	if ip := strings.TrimSpace(d.IP); ip != "" {
		log.IPAddress = &ip
	}
	if err := s.Store.InsertWebhookLog(ctx, log); err != nil {
		s.record(d.Source, "error")
		return WebhookResult{}, fmt.Errorf("insert webhook log: %w", err)
	}
	result := WebhookResult{LogID: log.ID, EventIDs: []string{}}

	if err := adapter.Verify(d.Header, d.Body); err != nil {
		s.finish(ctx, log.ID, map[string]any{"error": "Invalid signature"})
		s.record(d.Source, "unauthorized")
		if s.Logger != nil {
			s.Logger.Warn("webhook signature rejected", zap.String("source", d.Source), zap.String("ip", d.IP))
		}
		return result, ErrInvalidSignature
	}

	parsed, err := adapter.Parse(ingest.Request{Header: d.Header, Body: d.Body, LogID: log.ID, Now: s.now()})
	if err != nil {
		if errors.Is(err, ingest.ErrMalformed) {
			s.finish(ctx, log.ID, map[string]any{"processed": true, "error": err.Error()})
			s.record(d.Source, "ignored")
			result.Message = "Payload ignored: " + err.Error()
			return result, nil
		}
		s.finish(ctx, log.ID, map[string]any{"error": err.Error()})
		s.record(d.Source, "error")
		return result, err
	}

	result.Marker = parsed.Marker
	result.Message = parsed.Message
	if len(parsed.Drafts) == 0 {
		updates := map[string]any{"processed": true}
		if parsed.Marker != "" {
			updates["event_id"] = parsed.Marker
		}
		s.finish(ctx, log.ID, updates)
		s.record(d.Source, "skipped")
		return result, nil
	}

	for _, draft := range parsed.Drafts {
		outcome, err := s.Materializer.Materialize(ctx, draft)
		if err != nil {
			s.finish(ctx, log.ID, map[string]any{"error": err.Error()})
			s.record(d.Source, "error")
			if s.Logger != nil {
				s.Logger.Error("webhook materialize failed", zap.String("source", d.Source), zap.Error(err))
			}
			return result, fmt.Errorf("materialize %s draft: %w", d.Source, err)
		}
		result.EventIDs = append(result.EventIDs, outcome.EventID)
		if outcome.Created {
			result.Created++
		}
	}
	s.finish(ctx, log.ID, map[string]any{
		"processed": true,
		"event_id":  strings.Join(result.EventIDs, ","),
	})
	if result.Created > 0 {
		s.record(d.Source, "created")
	} else {
		s.record(d.Source, "duplicate")
		result.Message = "Event already recorded"
	}
	return result, nil
}

func (s *WebhookService) finish(ctx context.Context, id string, updates map[string]any) {
	if err := s.Store.UpdateWebhookLog(ctx, id, updates); err != nil && s.Logger != nil {
		s.Logger.Warn("webhook log update failed", zap.String("log_id", id), zap.Error(err))
	}
}

func (s *WebhookService) record(source, outcome string) {
	if s.Recorder != nil {
		s.Recorder.WebhookReceived(source, outcome)
	}
}

func (s *WebhookService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Logs pages through the audit rows, newest first.
func (s *WebhookService) Logs(ctx context.Context, params repository.ListWebhookLogsParams) ([]models.WebhookLog, int64, error) {
	items, err := s.Store.ListWebhookLogs(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Store.CountWebhookLogs(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
