package related

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicle/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func strPtr(s string) *string { return &s }

func TestScoreWorkedExample(t *testing.T) {
	subject := models.Event{
		ID: "s", Category: models.CategoryService,
		Tags: []string{"docker", "traefik"}, Services: []string{"Traefik"},
		InfrastructureNode: strPtr("traefik-lxc"), Date: day(2024, 12, 19),
		Source: models.SourceManual,
	}
	candidate := models.Event{
		ID: "c", Category: models.CategoryService,
		Tags: []string{"docker"}, Services: []string{"Traefik"},
		InfrastructureNode: strPtr("traefik-lxc"), Date: day(2024, 12, 20),
		Source: models.SourceManual,
	}
	score, reasons := Score(subject, candidate)
	assert.Equal(t, 13, score)
	assert.Equal(t, []string{
		"same category", "1 shared tags", "1 shared services",
		"same infrastructure node", "1 days apart",
	}, reasons)
}

func TestScoreProximity(t *testing.T) {
	base := models.Event{Category: models.CategoryFix, Date: day(2024, 1, 1)}
	tests := []struct {
		offset time.Duration
		want   int
	}{
		{0, 3},
		{24 * time.Hour, 3},
		{2 * 24 * time.Hour, 2},
		{4 * 24 * time.Hour, 1},
		{6 * 24 * time.Hour, 0},
		{7 * 24 * time.Hour, 0},
		{8 * 24 * time.Hour, 0},
	}
	for _, tt := range tests {
		c := models.Event{Category: models.CategoryNetwork, Date: base.Date.Add(-tt.offset)}
		got, _ := Score(base, c)
		assert.Equalf(t, tt.want, got, "offset %s", tt.offset)
	}
}

func TestScoreSourceAndNode(t *testing.T) {
	a := models.Event{Category: models.CategoryFix, Source: models.SourceGitHub, Date: day(2024, 1, 1)}
	b := models.Event{Category: models.CategoryService, Source: models.SourceGitHub, Date: day(2024, 6, 1)}
	score, reasons := Score(a, b)
	assert.Equal(t, 1, score)
	assert.Equal(t, []string{"same source"}, reasons)

	a.Source, b.Source = models.SourceManual, models.SourceManual
	score, _ = Score(a, b)
	assert.Zero(t, score)

	// nodes only count when set
	a.InfrastructureNode, b.InfrastructureNode = strPtr(""), strPtr("")
	score, _ = Score(a, b)
	assert.Zero(t, score)
}

func TestSuggest(t *testing.T) {
	subject := models.Event{ID: "s", Category: models.CategoryService, Tags: []string{"docker"}, Date: day(2024, 1, 1)}
	candidates := []models.Event{
		{ID: "s", Category: models.CategoryService, Date: day(2024, 1, 1)},
		{ID: "far", Category: models.CategoryFix, Date: day(2023, 1, 1)},
		{ID: "cat-a", Category: models.CategoryService, Date: day(2023, 1, 1)},
		{ID: "tag", Category: models.CategoryService, Tags: []string{"docker"}, Date: day(2023, 1, 1)},
		{ID: "cat-b", Category: models.CategoryService, Date: day(2023, 2, 1)},
	}
	out := Suggest(subject, candidates, 0)
	require.Len(t, out, 3)
	assert.Equal(t, "tag", out[0].Event.ID)
	assert.Equal(t, 4, out[0].Score)
	assert.Equal(t, "cat-a", out[1].Event.ID)
	assert.Equal(t, "cat-b", out[2].Event.ID)

	assert.Len(t, Suggest(subject, candidates, 1), 1)
}

func TestSuggestCapsAtDefaultLimit(t *testing.T) {
	subject := models.Event{ID: "s", Category: models.CategoryFix, Date: day(2024, 1, 1)}
	var candidates []models.Event
	for i := 0; i < 25; i++ {
		candidates = append(candidates, models.Event{ID: string(rune('a' + i)), Category: models.CategoryFix, Date: day(2020, 1, 1)})
	}
	assert.Len(t, Suggest(subject, candidates, 0), DefaultLimit)
}
