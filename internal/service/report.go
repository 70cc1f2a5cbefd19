package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"time"

	"chronicle/internal/models"
	"chronicle/internal/repository"
)

type ReportService struct {
	Store    repository.Repository
	Location *time.Location
	Now      func() time.Time
}

type ReportParams struct {
	Format       string
	Period       string
	StartDate    *time.Time
	EndDate      *time.Time
	Category     *string
	IncludeStats bool
}

type ReportPeriod struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type ReportStats struct {
	TotalEvents int            `json:"totalEvents"`
	DateRange   ReportRange    `json:"dateRange"`
	ByCategory  map[string]int `json:"byCategory"`
	BySource    map[string]int `json:"bySource"`
}

type ReportRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type ReportEvent struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Date               time.Time `json:"date"`
	Category           string    `json:"category"`
	Tags               []string  `json:"tags"`
	Services           []string  `json:"services"`
	InfrastructureNode *string   `json:"infrastructureNode"`
	Source             string    `json:"source"`
	ContentPreview     string    `json:"contentPreview"`
}

type Report struct {
	Title       string        `json:"title"`
	GeneratedAt time.Time     `json:"generatedAt"`
	Period      ReportPeriod  `json:"period"`
	Stats       *ReportStats  `json:"stats"`
	Events      []ReportEvent `json:"events"`
}

// reportEpoch bounds "all" reports from below.
var reportEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

var categoryColors = map[string]string{
	models.CategoryInfrastructure: "#3B82F6",
	models.CategoryService:        "#22C55E",
	models.CategoryMilestone:      "#A855F7",
	models.CategoryFix:            "#EF4444",
	models.CategoryDocumentation:  "#EAB308",
	models.CategoryNetwork:        "#06B6D4",
	models.CategoryStorage:        "#F97316",
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripHTML(s string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(s, ""))
}

// resolve turns the period into a label and a closed [start, end] interval.
func (s *ReportService) resolve(params ReportParams) (string, time.Time, time.Time, error) {
	now := s.now().In(s.location())
	period := strings.ToLower(strings.TrimSpace(params.Period))
	if period == "" {
		period = "month"
	}
	end := now
	var start time.Time
	switch period {
	case "week":
		start = now.AddDate(0, 0, -7)
	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	case "quarter":
		start = now.AddDate(0, -3, 0)
	case "year":
		start = now.AddDate(-1, 0, 0)
	case "custom":
		if params.StartDate == nil || params.EndDate == nil {
			return "", time.Time{}, time.Time{}, invalidf("startDate and endDate required for custom period")
		}
		start, end = *params.StartDate, *params.EndDate
		if end.Before(start) {
			return "", time.Time{}, time.Time{}, invalidf("endDate is before startDate")
		}
	default:
		period = "all"
		start = reportEpoch
	}
	label := strings.ToUpper(period[:1]) + period[1:]
	if period == "custom" {
		label = start.Format("Jan 2, 2006") + " - " + end.Format("Jan 2, 2006")
	}
	return label, start, end, nil
}

func (s *ReportService) Build(ctx context.Context, params ReportParams) (Report, error) {
	label, start, end, err := s.resolve(params)
	if err != nil {
		return Report{}, err
	}
	category := params.Category
	if category != nil && strings.TrimSpace(*category) == "" {
		category = nil
	}
	events, err := s.Store.ListEvents(ctx, repository.ListEventsParams{
		Limit:     -1,
		Category:  category,
		StartDate: &start,
		EndDate:   &end,
	})
	if err != nil {
		return Report{}, err
	}
	report := Report{
		Title:       "Homelab Chronicle Report - " + label,
		GeneratedAt: s.now().UTC(),
		Period:      ReportPeriod{Label: label, Start: start.UTC(), End: end.UTC()},
		Events:      make([]ReportEvent, 0, len(events)),
	}
	for _, e := range events {
		report.Events = append(report.Events, ReportEvent{
			ID:                 e.ID,
			Title:              e.Title,
			Date:               e.Date,
			Category:           e.Category,
			Tags:               append([]string{}, e.Tags...),
			Services:           append([]string{}, e.Services...),
			InfrastructureNode: e.InfrastructureNode,
			Source:             e.Source,
			ContentPreview:     truncateRunes(stripHTML(e.Content), 200),
		})
	}
	if params.IncludeStats {
		stats := &ReportStats{
			TotalEvents: len(events),
			DateRange:   ReportRange{Start: start.Format("January 2, 2006"), End: end.Format("January 2, 2006")},
			ByCategory:  map[string]int{},
			BySource:    map[string]int{},
		}
		for _, e := range events {
			stats.ByCategory[e.Category]++
			source := e.Source
			if source == "" {
				source = models.SourceManual
			}
			stats.BySource[source]++
		}
		report.Stats = stats
	}
	return report, nil
}

// Render builds the report and encodes it as html (default), markdown or json.
func (s *ReportService) Render(ctx context.Context, params ReportParams) (Document, error) {
	format := strings.ToLower(strings.TrimSpace(params.Format))
	if format == "" {
		format = FormatHTML
	}
	if format != FormatHTML && format != FormatMarkdown && format != FormatJSON {
		return Document{}, invalidf("unsupported report format %q", format)
	}
	report, err := s.Build(ctx, params)
	if err != nil {
		return Document{}, err
	}
	stamp := s.now().Format("2006-01-02")
	switch format {
	case FormatJSON:
		body, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return Document{}, err
		}
		return Document{Filename: "chronicle-report-" + stamp + ".json", ContentType: "application/json", Body: body}, nil
	case FormatMarkdown:
		return Document{
			Filename:    "chronicle-report-" + stamp + ".md",
			ContentType: "text/markdown; charset=utf-8",
			Body:        []byte(ReportMarkdown(report, s.location())),
		}, nil
	default:
		body, err := ReportHTML(report, s.location())
		if err != nil {
			return Document{}, err
		}
		return Document{Filename: "chronicle-report-" + stamp + ".html", ContentType: "text/html; charset=utf-8", Body: body}, nil
	}
}

func ReportMarkdown(r Report, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	var b strings.Builder
	b.WriteString("# Homelab Chronicle Report\n\n")
	fmt.Fprintf(&b, "**Period:** %s\n", r.Period.Label)
	fmt.Fprintf(&b, "**Generated:** %s\n\n", r.GeneratedAt.In(loc).Format("January 2, 2006 3:04 PM"))
	if r.Stats != nil {
		b.WriteString("## Summary Statistics\n\n")
		fmt.Fprintf(&b, "- **Total Events:** %d\n", r.Stats.TotalEvents)
		fmt.Fprintf(&b, "- **Date Range:** %s - %s\n\n", r.Stats.DateRange.Start, r.Stats.DateRange.End)
		writeCountTable(&b, "Events by Category", "Category", r.Stats.ByCategory)
		writeCountTable(&b, "Events by Source", "Source", r.Stats.BySource)
	}
	b.WriteString("## Timeline\n\n")
	for _, month := range reportMonths(r.Events, loc) {
		fmt.Fprintf(&b, "### %s\n\n", month.Label)
		for _, e := range month.Events {
			fmt.Fprintf(&b, "#### %s\n\n", e.Title)
			fmt.Fprintf(&b, "- **Date:** %s\n", e.Date.In(loc).Format("Jan 2"))
			fmt.Fprintf(&b, "- **Category:** %s\n", e.Category)
			if e.InfrastructureNode != nil {
				fmt.Fprintf(&b, "- **Node:** %s\n", *e.InfrastructureNode)
			}
			if len(e.Tags) > 0 {
				fmt.Fprintf(&b, "- **Tags:** %s\n", strings.Join(e.Tags, ", "))
			}
			fmt.Fprintf(&b, "\n%s\n\n---\n\n", e.ContentPreview)
		}
	}
	return b.String()
}

func writeCountTable(b *strings.Builder, title, column string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n\n| %s | Count |\n|----------|-------|\n", title, column)
	for _, f := range counter(counts).sorted(0) {
		fmt.Fprintf(b, "| %s | %d |\n", f.Name, f.Count)
	}
	b.WriteString("\n")
}

type reportMonth struct {
	Label  string
	Events []ReportEvent
}

func reportMonths(events []ReportEvent, loc *time.Location) []reportMonth {
	var months []reportMonth
	index := map[string]int{}
	for _, e := range events {
		label := e.Date.In(loc).Format("January 2006")
		i, ok := index[label]
		if !ok {
			i = len(months)
			index[label] = i
			months = append(months, reportMonth{Label: label})
		}
		months[i].Events = append(months[i].Events, e)
	}
	return months
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"color": func(category string) template.CSS {
		if c, ok := categoryColors[category]; ok {
			return template.CSS(c)
		}
		return template.CSS("#6B7280")
	},
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Report.Title}}</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background: #0a0a0a; color: #fafafa; line-height: 1.6; padding: 2rem; max-width: 900px; margin: 0 auto; }
    h1 { font-size: 2rem; margin-bottom: 0.5rem; color: #6366f1; }
    .meta, .event-meta, .event-content, .event-date { color: #a1a1aa; }
    .stats, .event-card { background: #171717; border: 1px solid #27272a; border-radius: 8px; padding: 1rem; margin-bottom: 1rem; }
    .stats-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(150px, 1fr)); gap: 1rem; }
    .stat-item { background: #262626; padding: 1rem; border-radius: 6px; text-align: center; }
    .stat-value { font-size: 2rem; font-weight: bold; }
    .month-header { color: #a1a1aa; border-bottom: 1px solid #27272a; }
    .category-badge { font-size: 0.75rem; padding: 0.25rem 0.5rem; border-radius: 4px; color: white; text-transform: capitalize; }
    .tag { background: #262626; padding: 0.125rem 0.5rem; border-radius: 4px; font-size: 0.75rem; }
    @media print { body { background: #fff; color: #09090b; } .event-card { break-inside: avoid; } }
  </style>
</head>
<body>
  <h1>Homelab Chronicle Report</h1>
  <p class="meta"><strong>Period:</strong> {{.Report.Period.Label}}<br><strong>Generated:</strong> {{.Generated}}</p>
{{- with .Report.Stats}}
  <div class="stats">
    <h2>Summary Statistics</h2>
    <div class="stats-grid">
      <div class="stat-item"><div class="stat-value">{{.TotalEvents}}</div><div class="stat-label">Total Events</div></div>
{{- range $cat, $count := .ByCategory}}
      <div class="stat-item"><div class="stat-value" style="color: {{color $cat}}">{{$count}}</div><div class="stat-label">{{$cat}}</div></div>
{{- end}}
    </div>
  </div>
{{- end}}
{{- range .Months}}
  <div class="month-section">
    <h2 class="month-header">{{.Label}}</h2>
{{- range .Events}}
    <div class="event-card">
      <div class="event-header">
        <span class="event-date">{{.Date}}</span>
        <span class="event-title">{{.Title}}</span>
        <span class="category-badge" style="background: {{color .Category}}">{{.Category}}</span>
      </div>
{{- if .Node}}
      <div class="event-meta">Node: {{.Node}}</div>
{{- end}}
      <div class="event-content">{{.Content}}</div>
{{- if .Tags}}
      <div class="tags">{{range .Tags}}<span class="tag">{{.}}</span> {{end}}</div>
{{- end}}
    </div>
{{- end}}
  </div>
{{- end}}
</body>
</html>
`))

type htmlEvent struct {
	Date     string
	Title    string
	Category string
	Node     string
	Content  string
	Tags     []string
}

type htmlMonth struct {
	Label  string
	Events []htmlEvent
}

func ReportHTML(r Report, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}
	data := struct {
		Report    Report
		Generated string
		Months    []htmlMonth
	}{Report: r, Generated: r.GeneratedAt.In(loc).Format("January 2, 2006 3:04 PM")}
	for _, m := range reportMonths(r.Events, loc) {
		month := htmlMonth{Label: m.Label}
		for _, e := range m.Events {
			node := ""
			if e.InfrastructureNode != nil {
				node = *e.InfrastructureNode
			}
			month.Events = append(month.Events, htmlEvent{
				Date:     e.Date.In(loc).Format("Jan 2"),
				Title:    e.Title,
				Category: e.Category,
				Node:     node,
				Content:  e.ContentPreview,
				Tags:     e.Tags,
			})
		}
		data.Months = append(data.Months, month)
	}
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

func (s *ReportService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *ReportService) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.UTC
}
