package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicle/internal/models"
)

func TestSummarize(t *testing.T) {
	now := time.Date(2024, 12, 20, 15, 0, 0, 0, time.UTC) // Friday
	events := []models.Event{
		{Title: "a", Date: now.Add(-2 * time.Hour), Category: models.CategoryFix, Source: models.SourceGitHub, Tags: []string{"dns", "fix"}, Services: []string{"pihole"}},
		{Title: "b", Date: now.Add(-3 * time.Hour), Category: models.CategoryFix, Tags: []string{"dns"}, InfrastructureNode: strPtr("pve01")},
		{Title: "c", Date: now.AddDate(0, 0, -1), Category: models.CategoryService, Source: models.SourceWatchtower},
		{Title: "d", Date: now.AddDate(0, 0, -3), Category: models.CategoryStorage},
	}
	stats := Summarize(events, now, time.UTC)

	assert.Equal(t, 4, stats.TotalEvents)
	assert.Equal(t, 2, stats.ByCategory[models.CategoryFix])
	assert.Equal(t, map[string]int{"github": 1, "manual": 2, "watchtower": 1}, stats.BySource)
	assert.Equal(t, 4, stats.ByMonth["2024-12"])
	assert.Equal(t, 2, stats.ByDayOfWeek[time.Friday])
	assert.Equal(t, 1, stats.HeatmapData[time.Friday][13])
	assert.Equal(t, 1, stats.HeatmapData[time.Friday][12])
	assert.Equal(t, []TagCount{{Tag: "dns", Count: 2}, {Tag: "fix", Count: 1}}, stats.TopTags)
	assert.Equal(t, []ServiceCount{{Service: "pihole", Count: 1}}, stats.TopServices)
	assert.Equal(t, map[string]int{"pve01": 1}, stats.NodeCounts)
	assert.Equal(t, 2, stats.Streak)
	require.NotNil(t, stats.BusiestDay)
	assert.Equal(t, DayCount{Date: "2024-12-20", Count: 2}, *stats.BusiestDay)

	require.Len(t, stats.CategoryShares, len(models.Categories))
	for _, share := range stats.CategoryShares {
		switch share.Category {
		case models.CategoryFix:
			assert.True(t, share.Percent.Equal(decimal.NewFromInt(50)), share.Percent.String())
		case models.CategoryService, models.CategoryStorage:
			assert.True(t, share.Percent.Equal(decimal.RequireFromString("25")), share.Percent.String())
		default:
			assert.True(t, share.Percent.IsZero())
		}
	}
}

func TestCategorySharesRounding(t *testing.T) {
	shares := categoryShares(map[string]int{models.CategoryFix: 1, models.CategoryNetwork: 2}, 3)
	for _, s := range shares {
		switch s.Category {
		case models.CategoryFix:
			assert.Equal(t, "33.3", s.Percent.String())
		case models.CategoryNetwork:
			assert.Equal(t, "66.7", s.Percent.String())
		}
	}
	assert.Equal(t, 0, Summarize(nil, fixedNow, nil).Streak)
}

func TestStatsComputePeriod(t *testing.T) {
	store := newTestStore(t)
	seedEvent(t, store, models.Event{Title: "recent", Date: fixedNow.AddDate(0, 0, -2), Category: models.CategoryFix})
	seedEvent(t, store, models.Event{Title: "old", Date: fixedNow.AddDate(-2, 0, 0), Category: models.CategoryFix})
	svc := &StatsService{Store: store, Now: func() time.Time { return fixedNow }}

	week, err := svc.Compute(context.Background(), "week")
	require.NoError(t, err)
	assert.Equal(t, 1, week.TotalEvents)
	require.NotNil(t, week.DateRange.Start)

	all, err := svc.Compute(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "all", all.Period)
	assert.Equal(t, 2, all.TotalEvents)
	assert.Nil(t, all.DateRange.Start)
}

func exportFixture() []models.Event {
	return []models.Event{
		{ID: "e2", Title: `Rebuilt "core" switch`, Date: time.Date(2024, 12, 3, 9, 0, 0, 0, time.UTC), Category: models.CategoryNetwork,
			Content: "<p>Replaced <strong>switch</strong></p>", Tags: []string{"network", "vlan"}, Source: models.SourceManual},
		{ID: "e1", Title: "Added NAS", Date: time.Date(2024, 11, 20, 9, 0, 0, 0, time.UTC), Category: models.CategoryStorage,
			Services: []string{"truenas", "nfs"}, InfrastructureNode: strPtr("nas01"), Source: models.SourceChangelog},
	}
}

func TestExportCSV(t *testing.T) {
	body, err := ExportCSV(exportFixture())
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(string(body))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, `Rebuilt "core" switch`, rows[1][1])
	assert.Equal(t, "network, vlan", rows[1][4])
	assert.Equal(t, "2024-11-20T09:00:00Z", rows[2][2])
	assert.Equal(t, "nas01", rows[2][6])
	assert.Equal(t, "truenas, nfs", rows[2][7])
}

func TestExportMarkdown(t *testing.T) {
	md := ExportMarkdown(exportFixture(), fixedNow, time.UTC)
	assert.True(t, strings.HasPrefix(md, "# Homelab Chronicle Export\n"))
	dec := strings.Index(md, "## December 2024")
	nov := strings.Index(md, "## November 2024")
	require.True(t, dec > 0 && nov > dec)
	assert.Contains(t, md, "**Date:** 2024-12-03 | **Category:** network")
	assert.Contains(t, md, "**Tags:** `network`, `vlan`")
	assert.Contains(t, md, "Replaced **switch**")
	assert.NotContains(t, md, "<p>")
}

func TestExportJSONDocument(t *testing.T) {
	store := newTestStore(t)
	seedEvent(t, store, models.Event{Title: "one", Date: fixedNow, Category: models.CategoryFix})
	svc := &ExportService{Store: store, Now: func() time.Time { return fixedNow }}

	doc, err := svc.Export(context.Background(), ExportParams{Format: "json"})
	require.NoError(t, err)
	assert.Equal(t, "chronicle-export-2024-12-20.json", doc.Filename)
	var decoded struct {
		Version string         `json:"version"`
		Count   int            `json:"count"`
		Events  []models.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(doc.Body, &decoded))
	assert.Equal(t, "1.0", decoded.Version)
	assert.Equal(t, 1, decoded.Count)

	_, err = svc.Export(context.Background(), ExportParams{Format: "xml"})
	require.ErrorIs(t, err, ErrInvalid)
}

func TestReportFormats(t *testing.T) {
	store := newTestStore(t)
	seedEvent(t, store, models.Event{Title: "Patched <kernel>", Date: fixedNow.AddDate(0, 0, -1), Category: models.CategoryFix,
		Content: "<p>" + strings.Repeat("x", 250) + "</p>", Tags: []string{"kernel"}})
	svc := &ReportService{Store: store, Now: func() time.Time { return fixedNow }}
	ctx := context.Background()

	report, err := svc.Build(ctx, ReportParams{Period: "week", IncludeStats: true})
	require.NoError(t, err)
	assert.Equal(t, "Homelab Chronicle Report - Week", report.Title)
	require.Len(t, report.Events, 1)
	assert.Len(t, report.Events[0].ContentPreview, 203)
	require.NotNil(t, report.Stats)
	assert.Equal(t, 1, report.Stats.ByCategory["fix"])

	doc, err := svc.Render(ctx, ReportParams{Period: "month"})
	require.NoError(t, err)
	assert.Equal(t, "chronicle-report-2024-12-20.html", doc.Filename)
	assert.Contains(t, string(doc.Body), "Patched &lt;kernel&gt;")
	assert.Contains(t, string(doc.Body), "December 2024")

	doc, err = svc.Render(ctx, ReportParams{Format: "markdown", Period: "all", IncludeStats: true})
	require.NoError(t, err)
	assert.Contains(t, string(doc.Body), "| fix | 1 |")
	assert.Contains(t, string(doc.Body), "#### Patched <kernel>")

	_, err = svc.Render(ctx, ReportParams{Period: "custom"})
	require.ErrorIs(t, err, ErrInvalid)
}
