package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicle/internal/ingest"
	"chronicle/internal/models"
	"chronicle/internal/repository"
)

func TestMaterializerDedupByTitleAndDate(t *testing.T) {
	store := newTestStore(t)
	listener := &recordingListener{}
	m := &Materializer{Store: store, Listeners: []EventListener{listener}}
	ctx := context.Background()

	draft := ingest.Draft{
		Title:    "Migrated NAS to ZFS",
		Date:     time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC),
		Category: models.CategoryStorage,
		Tags:     []string{"ZFS", "nas", "zfs"},
		Source:   models.SourceChangelog,
	}
	first, err := m.Materialize(ctx, draft)
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := m.Materialize(ctx, draft)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.EventID, second.EventID)
	assert.Equal(t, 1, listener.count())

	event, err := store.GetEventByID(ctx, first.EventID)
	require.NoError(t, err)
	assert.Equal(t, []string{"zfs", "nas"}, []string(event.Tags))

	_, err = m.Materialize(ctx, ingest.Draft{Title: "x", Category: "gardening"})
	require.ErrorIs(t, err, ErrInvalid)
}

func TestMaterializerTitleDateDedupIsPerSource(t *testing.T) {
	store := newTestStore(t)
	m := &Materializer{Store: store}
	ctx := context.Background()
	date := time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC)

	manual := seedEvent(t, store, models.Event{
		Title:    "Migrated NAS to ZFS",
		Date:     date,
		Category: models.CategoryStorage,
		Source:   models.SourceManual,
	})

	out, err := m.Materialize(ctx, ingest.Draft{
		Title:    "Migrated NAS to ZFS",
		Date:     date,
		Category: models.CategoryStorage,
		Source:   models.SourceChangelog,
	})
	require.NoError(t, err)
	assert.True(t, out.Created)
	assert.NotEqual(t, manual.ID, out.EventID)

	total, err := store.CountEvents(ctx, repository.ListEventsParams{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestEventCRUDAndVersions(t *testing.T) {
	store := newTestStore(t)
	svc := &EventService{Store: store}
	ctx := context.Background()

	created, err := svc.Create(ctx, EventInput{
		Title:    "Installed Proxmox",
		Date:     "2024-01-15",
		Category: "infrastructure",
		Tags:     []string{"Proxmox"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.SourceManual, created.Source)
	assert.Equal(t, []string{"proxmox"}, []string(created.Tags))

	_, err = svc.Create(ctx, EventInput{Title: "", Date: "2024-01-15", Category: "fix"})
	require.ErrorIs(t, err, ErrInvalid)
	_, err = svc.Create(ctx, EventInput{Title: "x", Date: "yesterday", Category: "fix"})
	require.ErrorIs(t, err, ErrInvalid)

	updated, err := svc.Update(ctx, created.ID, EventInput{
		Title:     "Installed Proxmox VE 8",
		Date:      "2024-01-15",
		Category:  "milestone",
		ChangedBy: "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, "Installed Proxmox VE 8", updated.Title)

	versions, err := svc.Versions(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, 1, versions[0].Version)
	assert.Equal(t, "Installed Proxmox", versions[0].Title)
	assert.Equal(t, "Edited", *versions[0].ChangeNote)
	assert.Equal(t, "admin", *versions[0].ChangedBy)

	restored, err := svc.Restore(ctx, created.ID, versions[0].ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Restored to version 1", restored.Message)
	assert.Equal(t, "Installed Proxmox", restored.Event.Title)
	assert.Equal(t, models.CategoryInfrastructure, restored.Event.Category)

	versions, err = svc.Versions(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, 3, versions[0].Version)
	assert.Equal(t, "Restored to version 1", *versions[0].ChangeNote)
	assert.Equal(t, "Before restore to version 1", *versions[1].ChangeNote)
	assert.Equal(t, "system", *versions[0].ChangedBy)

	_, err = svc.Restore(ctx, created.ID, "missing", "")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, created.ID), ErrNotFound)
}

func TestCreateDuplicateSourceRefConflicts(t *testing.T) {
	store := newTestStore(t)
	svc := &EventService{Store: store}
	ctx := context.Background()
	in := EventInput{
		Title:     "Deploy",
		Date:      "2024-03-01T10:00:00Z",
		Category:  "service",
		Source:    strPtr("github"),
		SourceRef: strPtr("deadbeef"),
	}
	_, err := svc.Create(ctx, in)
	require.NoError(t, err)
	_, err = svc.Create(ctx, in)
	require.ErrorIs(t, err, ErrConflict)
}

func TestLinks(t *testing.T) {
	store := newTestStore(t)
	svc := &EventService{Store: store}
	ctx := context.Background()
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	a := seedEvent(t, store, models.Event{Title: "A", Date: day, Category: models.CategoryNetwork})
	b := seedEvent(t, store, models.Event{Title: "B", Date: day, Category: models.CategoryNetwork})

	_, err := svc.CreateLink(ctx, a.ID, LinkInput{ToEventID: a.ID})
	require.ErrorIs(t, err, ErrInvalid)
	_, err = svc.CreateLink(ctx, a.ID, LinkInput{})
	require.ErrorIs(t, err, ErrInvalid)
	_, err = svc.CreateLink(ctx, a.ID, LinkInput{ToEventID: "nope"})
	require.ErrorIs(t, err, ErrNotFound)

	link, err := svc.CreateLink(ctx, a.ID, LinkInput{ToEventID: b.ID, Description: strPtr("follow-up")})
	require.NoError(t, err)
	assert.Equal(t, models.LinkTypeRelated, link.LinkType)

	_, err = svc.CreateLink(ctx, b.ID, LinkInput{ToEventID: a.ID})
	require.ErrorIs(t, err, ErrConflict)

	views, err := svc.Links(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "outgoing", views[0].Direction)
	assert.Equal(t, "B", views[0].LinkedEvent.Title)

	views, err = svc.Links(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "incoming", views[0].Direction)

	rel, err := svc.Related(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, rel.LinkedEvents, 1)
	assert.Equal(t, "to", rel.LinkedEvents[0].LinkDirection)
	require.Len(t, rel.SuggestedEvents, 1)
	assert.Equal(t, b.ID, rel.SuggestedEvents[0].ID)
	assert.Contains(t, rel.SuggestedEvents[0].SimilarityReasons, "same category")

	require.ErrorIs(t, svc.DeleteLink(ctx, a.ID, "missing"), ErrNotFound)
	require.ErrorIs(t, svc.DeleteLink(ctx, a.ID, ""), ErrInvalid)
	require.NoError(t, svc.DeleteLink(ctx, b.ID, link.ID))
	views, err = svc.Links(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestOnThisDay(t *testing.T) {
	store := newTestStore(t)
	svc := &EventService{Store: store}
	ctx := context.Background()
	seedEvent(t, store, models.Event{Title: "Old", Date: time.Date(2022, 3, 14, 9, 0, 0, 0, time.UTC), Category: models.CategoryMilestone})
	seedEvent(t, store, models.Event{Title: "New", Date: time.Date(2024, 3, 14, 18, 0, 0, 0, time.UTC), Category: models.CategoryFix})
	seedEvent(t, store, models.Event{Title: "Other", Date: time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC), Category: models.CategoryFix})

	view, err := svc.OnThisDay(ctx, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "March 14", view.FormattedDate)
	assert.Equal(t, 2, view.TotalEvents)
	assert.Equal(t, 2, view.YearCount)
	assert.Equal(t, []string{"2024", "2022"}, view.Years)
	assert.Equal(t, "New", view.ByYear["2024"][0].Title)
}

func TestSearchFacetsAndAnyTag(t *testing.T) {
	store := newTestStore(t)
	svc := &SearchService{Store: store}
	ctx := context.Background()
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	seedEvent(t, store, models.Event{Title: "Traefik routes", Date: day, Category: models.CategoryNetwork, Tags: []string{"traefik", "network"}, Services: []string{"traefik"}})
	seedEvent(t, store, models.Event{Title: "Docker prune", Date: day.Add(time.Hour), Category: models.CategoryService, Tags: []string{"docker"}})
	seedEvent(t, store, models.Event{Title: "NAS disk", Date: day.Add(2 * time.Hour), Category: models.CategoryStorage, Tags: []string{"nas"}, InfrastructureNode: strPtr("nas01")})

	res, err := svc.Search(ctx, repository.ListEventsParams{Tags: []string{"Traefik", "docker"}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.TotalCount)
	require.Len(t, res.Events, 2)
	assert.Equal(t, "Docker prune", res.Events[0].Title)

	res, err = svc.Search(ctx, repository.ListEventsParams{Search: strPtr("disk")})
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Len(t, res.Facets.Categories, 3)
	assert.Equal(t, []Facet{{Name: "nas01", Count: 1}}, res.Facets.Nodes)
	assert.Equal(t, []Facet{{Name: "manual", Count: 3}}, res.Facets.Sources)
}
