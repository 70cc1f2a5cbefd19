package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"chronicle/internal/classifier"
	"chronicle/internal/ingest"
	"chronicle/internal/models"
	"chronicle/internal/repository"
)

type ImportService struct {
	Store        repository.Repository
	Materializer *Materializer
	Logger       *zap.Logger
}

type ImportOptions struct {
	SkipDuplicates *bool `json:"skipDuplicates"`
	UpdateExisting bool  `json:"updateExisting"`
	PreserveIDs    bool  `json:"preserveIds"`
}

// StringList decodes either a JSON array or a JSON-encoded array string,
// which is how older exports stored tags and services.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err == nil {
		*l = items
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*l = nil
		return nil
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return fmt.Errorf("decode string list: %w", err)
	}
	*l = items
	return nil
}

type ImportEvent struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Date               string     `json:"date"`
	Content            string     `json:"content"`
	Category           string     `json:"category"`
	Icon               *string    `json:"icon"`
	Tags               StringList `json:"tags"`
	Services           StringList `json:"services"`
	Source             string     `json:"source"`
	SourceRef          *string    `json:"sourceRef"`
	InfrastructureNode *string    `json:"infrastructureNode"`
}

type ImportRequest struct {
	Events  []ImportEvent `json:"events"`
	Options ImportOptions `json:"options"`
}

type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Updated  int      `json:"updated"`
	Errors   []string `json:"errors"`
}

func (r ImportResult) Message() string {
	return fmt.Sprintf("Imported %d, updated %d, skipped %d event(s)", r.Imported, r.Updated, r.Skipped)
}

// ImportJSON loads events from a previous export. Existing events are
// matched by id (when ids are preserved), then source reference, then
// exact title and date. Per-event failures are collected, not returned.
func (s *ImportService) ImportJSON(ctx context.Context, req ImportRequest) (ImportResult, error) {
	if req.Events == nil {
		return ImportResult{}, invalidf("events must be an array")
	}
	skipDuplicates := true
	if req.Options.SkipDuplicates != nil {
		skipDuplicates = *req.Options.SkipDuplicates
	}
	result := ImportResult{Errors: []string{}}
	for _, item := range req.Events {
		if strings.TrimSpace(item.Title) == "" || strings.TrimSpace(item.Date) == "" || strings.TrimSpace(item.Category) == "" {
			result.Errors = append(result.Errors, "Invalid event: missing required fields (title, date, or category)")
			continue
		}
		if err := s.importOne(ctx, item, req.Options, skipDuplicates, &result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to import %q: %s", item.Title, err.Error()))
		}
	}
	if s.Logger != nil {
		s.Logger.Info("json import finished",
			zap.Int("imported", result.Imported),
			zap.Int("updated", result.Updated),
			zap.Int("skipped", result.Skipped),
			zap.Int("errors", len(result.Errors)),
		)
	}
	return result, nil
}

func (s *ImportService) importOne(ctx context.Context, item ImportEvent, opts ImportOptions, skipDuplicates bool, result *ImportResult) error {
	source := strings.ToLower(strings.TrimSpace(item.Source))
	if source == "" {
		source = models.SourceImport
	}
	input := EventInput{
		Title:              item.Title,
		Date:               item.Date,
		Content:            item.Content,
		Category:           item.Category,
		Icon:               item.Icon,
		Tags:               item.Tags,
		Services:           item.Services,
		Source:             &source,
		SourceRef:          item.SourceRef,
		InfrastructureNode: item.InfrastructureNode,
	}
	var event models.Event
	if err := input.apply(&event); err != nil {
		return err
	}

	existing, err := s.findExisting(ctx, item, event, opts.PreserveIDs)
	if err != nil {
		return err
	}
	if existing != nil {
		switch {
		case opts.UpdateExisting:
			existing.Title = event.Title
			existing.Content = event.Content
			existing.Category = event.Category
			existing.Icon = event.Icon
			existing.Tags = event.Tags
			existing.Services = event.Services
			existing.InfrastructureNode = event.InfrastructureNode
			if err := s.Store.UpdateEvent(ctx, existing); err != nil {
				return err
			}
			result.Updated++
		case skipDuplicates:
			result.Skipped++
		}
		return nil
	}

	if opts.PreserveIDs {
		event.ID = strings.TrimSpace(item.ID)
	}
	if err := s.Store.CreateEvent(ctx, &event); err != nil {
		return err
	}
	result.Imported++
	return nil
}

func (s *ImportService) findExisting(ctx context.Context, item ImportEvent, event models.Event, preserveIDs bool) (*models.Event, error) {
	if id := strings.TrimSpace(item.ID); preserveIDs && id != "" {
		existing, err := s.Store.GetEventByID(ctx, id)
		if err != nil || existing != nil {
			return existing, err
		}
	}
	if ref := event.Ref(); ref != "" {
		existing, err := s.Store.FindEventBySourceRef(ctx, event.Source, ref)
		if err != nil || existing != nil {
			return existing, err
		}
	}
	return s.Store.FindEventByTitleDate(ctx, event.Source, event.Title, event.Date)
}

// SourceImportResult summarizes a changelog or git history import.
type SourceImportResult struct {
	Parsed   int      `json:"parsed"`
	Created  int      `json:"created"`
	Existing int      `json:"existing"`
	EventIDs []string `json:"eventIds"`
}

// ImportChangelog turns a CHANGELOG.md document into events, one per
// dated section.
func (s *ImportService) ImportChangelog(ctx context.Context, text string) (SourceImportResult, error) {
	return s.materializeAll(ctx, ingest.ParseChangelog(text, classifier.Changelog()))
}

// ImportGit reads up to limit commits from the repository at path and
// records the significant ones.
func (s *ImportService) ImportGit(ctx context.Context, path string, limit int) (SourceImportResult, error) {
	commits, err := ingest.ReadRepository(ctx, path, limit)
	if err != nil {
		return SourceImportResult{}, err
	}
	return s.materializeAll(ctx, ingest.GitDrafts(commits, classifier.GitLog()))
}

// ImportGitLog accepts `git log --date=iso --format="%H|%ad|%an|%s"` output.
func (s *ImportService) ImportGitLog(ctx context.Context, text string) (SourceImportResult, error) {
	return s.materializeAll(ctx, ingest.GitDrafts(ingest.ParseGitLog(text), classifier.GitLog()))
}

func (s *ImportService) materializeAll(ctx context.Context, drafts []ingest.Draft) (SourceImportResult, error) {
	result := SourceImportResult{Parsed: len(drafts), EventIDs: []string{}}
	for _, d := range drafts {
		outcome, err := s.Materializer.Materialize(ctx, d)
		if err != nil {
			return result, fmt.Errorf("import %q: %w", d.Title, err)
		}
		result.EventIDs = append(result.EventIDs, outcome.EventID)
		if outcome.Created {
			result.Created++
		} else {
			result.Existing++
		}
	}
	return result, nil
}
