package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"chronicle/internal/ingest"
	"chronicle/internal/models"
	"chronicle/internal/repository"
)

// EventListener is told about every event the materializer creates.
// Implementations must not block.
type EventListener interface {
	EventCreated(ctx context.Context, event models.Event)
}

type Materializer struct {
	Store     repository.Repository
	Logger    *zap.Logger
	Listeners []EventListener
}

type Outcome struct {
	EventID string `json:"eventId"`
	Created bool   `json:"created"`
}

// Materialize persists a draft unless an equivalent event exists. Drafts
// with a SourceRef rely on the (source, source_ref) unique index; the rest
// are matched on source, exact title and date.
func (m *Materializer) Materialize(ctx context.Context, draft ingest.Draft) (Outcome, error) {
	if m == nil || m.Store == nil {
		return Outcome{}, errors.New("materializer store is nil")
	}
	event := EventFromDraft(draft)
	if !models.IsCategory(event.Category) {
		return Outcome{}, invalidf("category %q", event.Category)
	}
	if strings.TrimSpace(event.Title) == "" {
		return Outcome{}, invalidf("title is required")
	}

	if event.SourceRef == nil {
		existing, err := m.Store.FindEventByTitleDate(ctx, event.Source, event.Title, event.Date)
		if err != nil {
			return Outcome{}, err
		}
		if existing != nil {
			return Outcome{EventID: existing.ID}, nil
		}
	}

	err := m.Store.CreateEvent(ctx, &event)
	if errors.Is(err, repository.ErrDuplicate) && event.SourceRef != nil {
		existing, findErr := m.Store.FindEventBySourceRef(ctx, event.Source, *event.SourceRef)
		if findErr != nil {
			return Outcome{}, findErr
		}
		if existing == nil {
			return Outcome{}, fmt.Errorf("duplicate %s/%s vanished", event.Source, *event.SourceRef)
		}
		return Outcome{EventID: existing.ID}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	m.notify(ctx, event)
	return Outcome{EventID: event.ID, Created: true}, nil
}

func (m *Materializer) notify(ctx context.Context, event models.Event) {
	if m.Logger != nil {
		m.Logger.Info("event created",
			zap.String("event_id", event.ID),
			zap.String("source", event.Source),
			zap.String("category", event.Category),
			zap.String("title", event.Title),
		)
	}
	for _, l := range m.Listeners {
		if l != nil {
			l.EventCreated(ctx, event)
		}
	}
}

// EventFromDraft normalises a draft into an unsaved event.
func EventFromDraft(d ingest.Draft) models.Event {
	source := strings.TrimSpace(d.Source)
	if source == "" {
		source = models.SourceManual
	}
	event := models.Event{
		Title:    strings.TrimSpace(d.Title),
		Date:     d.Date.UTC(),
		Content:  d.Content,
		Category: strings.ToLower(strings.TrimSpace(d.Category)),
		Tags:     ingest.NormalizeTags(d.Tags),
		Services: ingest.UniqueStrings(d.Services),
		Source:   source,
	}
	if v := strings.TrimSpace(d.Icon); v != "" {
		event.Icon = &v
	}
	if v := strings.TrimSpace(d.SourceRef); v != "" {
		event.SourceRef = &v
	}
	if v := strings.TrimSpace(d.InfrastructureNode); v != "" {
		event.InfrastructureNode = &v
	}
	return event
}
