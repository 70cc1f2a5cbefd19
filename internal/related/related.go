// Package related ranks events by how much they have in common with a
// subject event.
package related

import (
	"fmt"
	"math"
	"sort"
	"time"

	"chronicle/internal/models"
)

// DefaultLimit caps the suggestions returned by Suggest.
const DefaultLimit = 10

const (
	weightCategory = 2
	weightTag      = 2
	weightService  = 3
	weightNode     = 3
	weightSource   = 1
	proximityDays  = 7
)

type Scored struct {
	Event   models.Event
	Score   int
	Reasons []string
}

// Score sums the fixed weights for everything subject and candidate share.
func Score(subject, candidate models.Event) (int, []string) {
	score := 0
	reasons := []string{}

	if candidate.Category == subject.Category {
		score += weightCategory
		reasons = append(reasons, "same category")
	}
	if n := shared(subject.Tags, candidate.Tags); n > 0 {
		score += n * weightTag
		reasons = append(reasons, fmt.Sprintf("%d shared tags", n))
	}
	if n := shared(subject.Services, candidate.Services); n > 0 {
		score += n * weightService
		reasons = append(reasons, fmt.Sprintf("%d shared services", n))
	}
	if node := candidate.Node(); node != "" && node == subject.Node() {
		score += weightNode
		reasons = append(reasons, "same infrastructure node")
	}

	days := daysApart(subject.Date, candidate.Date)
	if days <= proximityDays {
		score += int(math.Ceil(3 - days/2))
		reasons = append(reasons, fmt.Sprintf("%d days apart", int(math.Round(days))))
	}

	if candidate.Source != "" && candidate.Source == subject.Source && candidate.Source != models.SourceManual {
		score += weightSource
		reasons = append(reasons, "same source")
	}
	return score, reasons
}

// Suggest scores every candidate except the subject itself, keeps positive
// scores and returns the best limit of them. Ties keep candidate order.
func Suggest(subject models.Event, candidates []models.Event, limit int) []Scored {
	if limit <= 0 {
		limit = DefaultLimit
	}
	out := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == subject.ID {
			continue
		}
		score, reasons := Score(subject, c)
		if score <= 0 {
			continue
		}
		out = append(out, Scored{Event: c, Score: score, Reasons: reasons})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func daysApart(a, b time.Time) float64 {
	return math.Abs(a.Sub(b).Hours()) / 24
}

func shared(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	n := 0
	for _, v := range a {
		if _, ok := set[v]; ok {
			n++
		}
	}
	return n
}
