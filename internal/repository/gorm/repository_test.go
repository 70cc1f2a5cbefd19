package gormrepository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicle/internal/config"
	"chronicle/internal/db"
	"chronicle/internal/models"
	"chronicle/internal/repository"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	d, err := db.Open(config.DBConfig{Driver: db.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(d))
	t.Cleanup(func() { _ = db.Close(d) })
	return New(d.Gorm)
}

func ref(v string) *string { return &v }

func TestSourceRefUniqueness(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	day := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateEvent(ctx, &models.Event{Title: "a", Date: day, Category: models.CategoryFix, Source: models.SourceGitHub, SourceRef: ref("sha1")}))
	err := s.CreateEvent(ctx, &models.Event{Title: "b", Date: day, Category: models.CategoryFix, Source: models.SourceGitHub, SourceRef: ref("sha1")})
	require.ErrorIs(t, err, repository.ErrDuplicate)

	// Same ref under another source is a different event.
	require.NoError(t, s.CreateEvent(ctx, &models.Event{Title: "c", Date: day, Category: models.CategoryFix, Source: models.SourceGitLab, SourceRef: ref("sha1")}))
	// Rows without a ref never collide.
	require.NoError(t, s.CreateEvent(ctx, &models.Event{Title: "d", Date: day, Category: models.CategoryFix}))
	require.NoError(t, s.CreateEvent(ctx, &models.Event{Title: "e", Date: day, Category: models.CategoryFix}))

	got, err := s.FindEventBySourceRef(ctx, models.SourceGitHub, "sha1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a", got.Title)

	missing, err := s.GetEventByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	refs, err := s.ListSourceRefs(ctx, models.SourceGitHub)
	require.NoError(t, err)
	assert.Equal(t, []string{"sha1"}, refs)
}

func TestListEventsFilters(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	day := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	for i, e := range []models.Event{
		{Title: "Traefik 100%", Tags: []string{"traefik", "network"}, Services: []string{"traefik"}, Category: models.CategoryNetwork},
		{Title: "Docker prune", Tags: []string{"docker"}, Category: models.CategoryService, InfrastructureNode: ref("pve01")},
		{Title: "NAS disk", Tags: []string{"nas"}, Category: models.CategoryStorage},
	} {
		e.Date = day.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.CreateEvent(ctx, &e))
	}

	items, err := s.ListEvents(ctx, repository.ListEventsParams{Tags: []string{"TRAEFIK", "docker"}})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Docker prune", items[0].Title)

	items, err = s.ListEvents(ctx, repository.ListEventsParams{Services: []string{"traefik"}})
	require.NoError(t, err)
	require.Len(t, items, 1)

	items, err = s.ListEvents(ctx, repository.ListEventsParams{Search: ref("100%")})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Traefik 100%", items[0].Title)

	items, err = s.ListEvents(ctx, repository.ListEventsParams{Node: ref("pve01")})
	require.NoError(t, err)
	require.Len(t, items, 1)

	end := day.Add(90 * time.Minute)
	total, err := s.CountEvents(ctx, repository.ListEventsParams{EndDate: &end})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	asc := true
	items, err = s.ListEvents(ctx, repository.ListEventsParams{Limit: -1, Asc: &asc})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Traefik 100%", items[0].Title)

	items, err = s.ListEvents(ctx, repository.ListEventsParams{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Docker prune", items[0].Title)
}

func TestSyncStateUpsert(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveSyncState(ctx, &models.SyncState{Scope: "github:acme/homelab", LastAttemptAt: &now}))
	msg := "boom"
	later := now.Add(time.Hour)
	require.NoError(t, s.SaveSyncState(ctx, &models.SyncState{Scope: "github:acme/homelab", LastAttemptAt: &later, LastError: &msg}))

	states, err := s.ListSyncStates(ctx)
	require.NoError(t, err)
	require.Len(t, states, 1)
	require.NotNil(t, states[0].LastError)
	assert.Equal(t, "boom", *states[0].LastError)
	assert.True(t, states[0].LastAttemptAt.Equal(later))
}
