package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"chronicle/internal/markdown"
	"chronicle/internal/models"
	"chronicle/internal/repository"
)

const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
	FormatHTML     = "html"
)

// Document is a rendered download.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

type ExportService struct {
	Store    repository.Repository
	Location *time.Location
	Now      func() time.Time
}

type ExportParams struct {
	Format    string
	Category  *string
	StartDate *time.Time
	EndDate   *time.Time
}

type exportEnvelope struct {
	ExportedAt time.Time      `json:"exportedAt"`
	Version    string         `json:"version"`
	Count      int            `json:"count"`
	Events     []models.Event `json:"events"`
}

var csvHeader = []string{"ID", "Title", "Date", "Category", "Tags", "Source", "Infrastructure Node", "Services"}

func (s *ExportService) Export(ctx context.Context, params ExportParams) (Document, error) {
	format := strings.ToLower(strings.TrimSpace(params.Format))
	if format == "" {
		format = FormatJSON
	}
	category := params.Category
	if category != nil && (*category == "" || *category == "all") {
		category = nil
	}
	events, err := s.Store.ListEvents(ctx, repository.ListEventsParams{
		Limit:     -1,
		Category:  category,
		StartDate: params.StartDate,
		EndDate:   params.EndDate,
	})
	if err != nil {
		return Document{}, err
	}
	now := s.now()
	stamp := now.Format("2006-01-02")
	switch format {
	case FormatJSON:
		if events == nil {
			events = []models.Event{}
		}
		body, err := json.MarshalIndent(exportEnvelope{ExportedAt: now, Version: "1.0", Count: len(events), Events: events}, "", "  ")
		if err != nil {
			return Document{}, err
		}
		return Document{Filename: "chronicle-export-" + stamp + ".json", ContentType: "application/json", Body: body}, nil
	case FormatMarkdown:
		return Document{
			Filename:    "chronicle-export-" + stamp + ".md",
			ContentType: "text/markdown; charset=utf-8",
			Body:        []byte(ExportMarkdown(events, now, s.location())),
		}, nil
	case FormatCSV:
		body, err := ExportCSV(events)
		if err != nil {
			return Document{}, err
		}
		return Document{Filename: "chronicle-export-" + stamp + ".csv", ContentType: "text/csv; charset=utf-8", Body: body}, nil
	default:
		return Document{}, invalidf("unsupported export format %q", format)
	}
}

// ExportMarkdown groups events (expected newest first) under month headings.
func ExportMarkdown(events []models.Event, exportedAt time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	var b strings.Builder
	b.WriteString("# Homelab Chronicle Export\n\n")
	fmt.Fprintf(&b, "*Exported: %s*\n\n---\n\n", exportedAt.In(loc).Format("January 2, 2006 15:04 MST"))
	for _, group := range groupByMonth(events, loc) {
		fmt.Fprintf(&b, "## %s\n\n", group.Label)
		for _, e := range group.Events {
			fmt.Fprintf(&b, "### %s\n\n", e.Title)
			fmt.Fprintf(&b, "**Date:** %s | **Category:** %s\n\n", e.Date.In(loc).Format("2006-01-02"), e.Category)
			if len(e.Tags) > 0 {
				quoted := make([]string, 0, len(e.Tags))
				for _, t := range e.Tags {
					quoted = append(quoted, "`"+t+"`")
				}
				fmt.Fprintf(&b, "**Tags:** %s\n\n", strings.Join(quoted, ", "))
			}
			if content := markdown.FromHTML(e.Content); content != "" {
				b.WriteString(content)
				b.WriteString("\n\n")
			}
			b.WriteString("---\n\n")
		}
	}
	return b.String()
}

func ExportCSV(events []models.Event) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, e := range events {
		source := e.Source
		if source == "" {
			source = models.SourceManual
		}
		row := []string{
			e.ID,
			e.Title,
			e.Date.UTC().Format(time.RFC3339),
			e.Category,
			strings.Join(e.Tags, ", "),
			source,
			e.Node(),
			strings.Join(e.Services, ", "),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

type monthGroup struct {
	Key    string
	Label  string
	Events []models.Event
}

// groupByMonth keeps input order within a month; months are newest first.
func groupByMonth(events []models.Event, loc *time.Location) []monthGroup {
	var groups []monthGroup
	index := map[string]int{}
	for _, e := range events {
		d := e.Date.In(loc)
		key := d.Format("2006-01")
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, monthGroup{Key: key, Label: d.Format("January 2006")})
		}
		groups[i].Events = append(groups[i].Events, e)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Key > groups[j].Key })
	return groups
}

func (s *ExportService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *ExportService) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.UTC
}
