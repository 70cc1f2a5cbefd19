package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"chronicle/internal/models"
	"chronicle/internal/repository"
)

type StatsService struct {
	Store    repository.Repository
	Location *time.Location
	Now      func() time.Time
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

type ServiceCount struct {
	Service string `json:"service"`
	Count   int    `json:"count"`
}

type CategoryShare struct {
	Category string          `json:"category"`
	Count    int             `json:"count"`
	Percent  decimal.Decimal `json:"percent"`
}

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type DateRange struct {
	Start *time.Time `json:"start"`
	End   time.Time  `json:"end"`
}

type Stats struct {
	Period         string          `json:"period"`
	TotalEvents    int             `json:"totalEvents"`
	ByCategory     map[string]int  `json:"byCategory"`
	CategoryShares []CategoryShare `json:"categoryShares"`
	BySource       map[string]int  `json:"bySource"`
	ByMonth        map[string]int  `json:"byMonth"`
	// ByDayOfWeek is indexed Sunday first.
	ByDayOfWeek [7]int         `json:"byDayOfWeek"`
	TopTags     []TagCount     `json:"topTags"`
	TopServices []ServiceCount `json:"topServices"`
	NodeCounts  map[string]int `json:"nodeCounts"`
	// HeatmapData is [weekday][hour].
	HeatmapData [7][24]int `json:"heatmapData"`
	Streak      int        `json:"streak"`
	BusiestDay  *DayCount  `json:"busiestDay"`
	DateRange   DateRange  `json:"dateRange"`
}

const (
	topTagLimit     = 20
	topServiceLimit = 10
)

// PeriodStart resolves week|month|quarter|year relative to now. "all" and
// unknown periods return nil.
func PeriodStart(period string, now time.Time) *time.Time {
	var start time.Time
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "week":
		start = now.AddDate(0, 0, -7)
	case "month":
		start = now.AddDate(0, -1, 0)
	case "quarter":
		start = now.AddDate(0, -3, 0)
	case "year":
		start = now.AddDate(-1, 0, 0)
	default:
		return nil
	}
	return &start
}

func (s *StatsService) Compute(ctx context.Context, period string) (Stats, error) {
	period = strings.ToLower(strings.TrimSpace(period))
	if period == "" {
		period = "all"
	}
	now := s.now()
	start := PeriodStart(period, now)
	events, err := s.Store.ListEvents(ctx, repository.ListEventsParams{Limit: -1, StartDate: start})
	if err != nil {
		return Stats{}, err
	}
	stats := Summarize(events, now, s.location())
	stats.Period = period
	stats.DateRange = DateRange{Start: start, End: now}
	return stats, nil
}

// Summarize is the pure aggregation behind Compute. Calendar buckets use loc.
func Summarize(events []models.Event, now time.Time, loc *time.Location) Stats {
	if loc == nil {
		loc = time.UTC
	}
	stats := Stats{
		TotalEvents: len(events),
		ByCategory:  map[string]int{},
		BySource:    map[string]int{},
		ByMonth:     map[string]int{},
		NodeCounts:  map[string]int{},
	}
	tags := counter{}
	services := counter{}
	days := map[string]int{}
	for _, e := range events {
		d := e.Date.In(loc)
		stats.ByCategory[e.Category]++
		source := e.Source
		if source == "" {
			source = models.SourceManual
		}
		stats.BySource[source]++
		stats.ByMonth[d.Format("2006-01")]++
		stats.ByDayOfWeek[d.Weekday()]++
		stats.HeatmapData[d.Weekday()][d.Hour()]++
		if node := e.Node(); node != "" {
			stats.NodeCounts[node]++
		}
		for _, t := range e.Tags {
			tags.add(t)
		}
		for _, svc := range e.Services {
			services.add(svc)
		}
		days[d.Format("2006-01-02")]++
	}

	for _, f := range tags.sorted(topTagLimit) {
		stats.TopTags = append(stats.TopTags, TagCount{Tag: f.Name, Count: f.Count})
	}
	for _, f := range services.sorted(topServiceLimit) {
		stats.TopServices = append(stats.TopServices, ServiceCount{Service: f.Name, Count: f.Count})
	}
	if stats.TopTags == nil {
		stats.TopTags = []TagCount{}
	}
	if stats.TopServices == nil {
		stats.TopServices = []ServiceCount{}
	}

	stats.CategoryShares = categoryShares(stats.ByCategory, stats.TotalEvents)
	stats.Streak = streak(days, now.In(loc))
	stats.BusiestDay = busiest(days)
	return stats
}

// categoryShares lists every category, including empty ones, with its
// share of total rounded to one decimal.
func categoryShares(byCategory map[string]int, total int) []CategoryShare {
	out := make([]CategoryShare, 0, len(models.Categories))
	hundred := decimal.NewFromInt(100)
	for _, c := range models.Categories {
		count := byCategory[c]
		pct := decimal.Zero
		if total > 0 {
			pct = decimal.NewFromInt(int64(count)).Mul(hundred).Div(decimal.NewFromInt(int64(total))).Round(1)
		}
		out = append(out, CategoryShare{Category: c, Count: count, Percent: pct})
	}
	return out
}

// streak counts consecutive days with at least one event, ending today.
func streak(days map[string]int, today time.Time) int {
	n := 0
	for d := today; days[d.Format("2006-01-02")] > 0; d = d.AddDate(0, 0, -1) {
		n++
	}
	return n
}

func busiest(days map[string]int) *DayCount {
	var best *DayCount
	for date, count := range days {
		if best == nil || count > best.Count || (count == best.Count && date > best.Date) {
			best = &DayCount{Date: date, Count: count}
		}
	}
	return best
}

func (s *StatsService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *StatsService) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.UTC
}
