package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"chronicle/internal/ingest"
	"chronicle/internal/models"
	"chronicle/internal/related"
	"chronicle/internal/repository"
)

type EventService struct {
	Store     repository.Repository
	Listeners []EventListener
	Logger    *zap.Logger
	// Location decides calendar days for on-this-day. Defaults to UTC.
	Location *time.Location
}

// EventInput is the editable shape of an event as accepted by the API.
type EventInput struct {
	Title              string   `json:"title"`
	Date               string   `json:"date"`
	Content            string   `json:"content"`
	Category           string   `json:"category"`
	Icon               *string  `json:"icon"`
	Tags               []string `json:"tags"`
	Services           []string `json:"services"`
	Source             *string  `json:"source"`
	SourceRef          *string  `json:"sourceRef"`
	InfrastructureNode *string  `json:"infrastructureNode"`
	ChangedBy          string   `json:"changedBy,omitempty"`
	ChangeNote         string   `json:"changeNote,omitempty"`
}

func (in EventInput) apply(event *models.Event) error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return invalidf("title is required")
	}
	date, err := ParseDate(in.Date)
	if err != nil {
		return err
	}
	category := strings.ToLower(strings.TrimSpace(in.Category))
	if !models.IsCategory(category) {
		return invalidf("category must be one of %s", strings.Join(models.Categories, ", "))
	}
	event.Title = title
	event.Date = date
	event.Content = in.Content
	event.Category = category
	event.Icon = optional(in.Icon)
	event.Tags = ingest.NormalizeTags(in.Tags)
	event.Services = ingest.UniqueStrings(in.Services)
	if in.Source != nil {
		source := strings.ToLower(strings.TrimSpace(*in.Source))
		if source != "" && !models.IsSource(source) {
			return invalidf("unknown source %q", source)
		}
		if source != "" {
			event.Source = source
		}
	}
	if event.Source == "" {
		event.Source = models.SourceManual
	}
	if in.SourceRef != nil {
		event.SourceRef = optional(in.SourceRef)
	}
	event.InfrastructureNode = optional(in.InfrastructureNode)
	return nil
}

// ParseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, invalidf("date is required")
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, invalidf("unparseable date %q", raw)
}

func optional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func (s *EventService) List(ctx context.Context, params repository.ListEventsParams) ([]models.Event, int64, error) {
	items, err := s.Store.ListEvents(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Store.CountEvents(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.Store.GetEventByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, notFoundf("event %s", id)
	}
	return event, nil
}

func (s *EventService) Create(ctx context.Context, in EventInput) (*models.Event, error) {
	event := &models.Event{}
	if err := in.apply(event); err != nil {
		return nil, err
	}
	if err := s.Store.CreateEvent(ctx, event); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: event with source %s and ref %s exists", ErrConflict, event.Source, event.Ref())
		}
		return nil, err
	}
	for _, l := range s.Listeners {
		if l != nil {
			l.EventCreated(ctx, *event)
		}
	}
	return event, nil
}

// Update snapshots the current state as a new version before applying in.
func (s *EventService) Update(ctx context.Context, id string, in EventInput) (*models.Event, error) {
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next := *event
	if err := in.apply(&next); err != nil {
		return nil, err
	}
	note := strings.TrimSpace(in.ChangeNote)
	if note == "" {
		note = "Edited"
	}
	if _, err := s.snapshot(ctx, event, in.ChangedBy, note); err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now().UTC()
	if err := s.Store.UpdateEvent(ctx, &next); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: source reference already used", ErrConflict)
		}
		return nil, err
	}
	return &next, nil
}

func (s *EventService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.Store.DeleteEvent(ctx, id)
}

// --- versions ------------------------------------------------------------------

type eventSnapshot struct {
	Title              string   `json:"title"`
	Content            string   `json:"content"`
	Category           string   `json:"category"`
	Tags               []string `json:"tags"`
	Icon               *string  `json:"icon"`
	Services           []string `json:"services"`
	InfrastructureNode *string  `json:"infrastructureNode"`
}

func (s *EventService) snapshot(ctx context.Context, event *models.Event, changedBy, note string) (*models.EventVersion, error) {
	raw, err := json.Marshal(eventSnapshot{
		Title:              event.Title,
		Content:            event.Content,
		Category:           event.Category,
		Tags:               event.Tags,
		Icon:               event.Icon,
		Services:           event.Services,
		InfrastructureNode: event.InfrastructureNode,
	})
	if err != nil {
		return nil, err
	}
	by := strings.TrimSpace(changedBy)
	if by == "" {
		by = "system"
	}
	// A concurrent editor can take the same number; one retry is enough
	// for a single-operator system.
	for attempt := 0; ; attempt++ {
		max, err := s.Store.MaxEventVersion(ctx, event.ID)
		if err != nil {
			return nil, err
		}
		version := &models.EventVersion{
			EventID:    event.ID,
			Version:    max + 1,
			Title:      event.Title,
			Content:    event.Content,
			Category:   event.Category,
			Tags:       datatypes.JSONSlice[string](append([]string{}, event.Tags...)),
			ChangedBy:  &by,
			ChangeNote: &note,
			Snapshot:   datatypes.JSON(raw),
		}
		err = s.Store.InsertEventVersion(ctx, version)
		if errors.Is(err, repository.ErrDuplicate) && attempt == 0 {
			continue
		}
		if err != nil {
			return nil, err
		}
		return version, nil
	}
}

func (s *EventService) Versions(ctx context.Context, id string) ([]models.EventVersion, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.Store.ListEventVersions(ctx, id)
}

type EventRestoreResult struct {
	Message string        `json:"message"`
	Event   *models.Event `json:"event"`
}

// Restore brings back the fields stored in versionID. The state before and
// after the restore are both recorded as versions.
func (s *EventService) Restore(ctx context.Context, id, versionID, changedBy string) (EventRestoreResult, error) {
	if strings.TrimSpace(versionID) == "" {
		return EventRestoreResult{}, invalidf("versionId is required")
	}
	event, err := s.Get(ctx, id)
	if err != nil {
		return EventRestoreResult{}, err
	}
	version, err := s.Store.GetEventVersion(ctx, id, versionID)
	if err != nil {
		return EventRestoreResult{}, err
	}
	if version == nil {
		return EventRestoreResult{}, notFoundf("version %s", versionID)
	}
	if _, err := s.snapshot(ctx, event, changedBy, fmt.Sprintf("Before restore to version %d", version.Version)); err != nil {
		return EventRestoreResult{}, err
	}

	var snap eventSnapshot
	if len(version.Snapshot) > 0 {
		if err := json.Unmarshal(version.Snapshot, &snap); err != nil {
			return EventRestoreResult{}, fmt.Errorf("decode version snapshot: %w", err)
		}
	}
	restored := *event
	restored.Title = version.Title
	restored.Content = version.Content
	restored.Category = version.Category
	restored.Tags = append(datatypes.JSONSlice[string]{}, version.Tags...)
	restored.Icon = snap.Icon
	restored.Services = datatypes.JSONSlice[string](ingest.UniqueStrings(snap.Services))
	restored.InfrastructureNode = snap.InfrastructureNode
	restored.UpdatedAt = time.Now().UTC()
	if err := s.Store.UpdateEvent(ctx, &restored); err != nil {
		return EventRestoreResult{}, err
	}

	message := fmt.Sprintf("Restored to version %d", version.Version)
	if _, err := s.snapshot(ctx, &restored, changedBy, message); err != nil {
		return EventRestoreResult{}, err
	}
	return EventRestoreResult{Message: message, Event: &restored}, nil
}

// --- links ---------------------------------------------------------------------

type EventSummary struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Date     time.Time `json:"date"`
	Category string    `json:"category"`
}

type LinkView struct {
	ID          string        `json:"id"`
	LinkType    string        `json:"linkType"`
	Description *string       `json:"description,omitempty"`
	Direction   string        `json:"direction"`
	LinkedEvent *EventSummary `json:"linkedEvent"`
	CreatedAt   time.Time     `json:"createdAt"`
}

type LinkInput struct {
	ToEventID   string  `json:"toEventId"`
	LinkType    string  `json:"linkType"`
	Description *string `json:"description"`
}

func summarize(e models.Event) *EventSummary {
	return &EventSummary{ID: e.ID, Title: e.Title, Date: e.Date, Category: e.Category}
}

func (s *EventService) Links(ctx context.Context, id string) ([]LinkView, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	links, err := s.Store.ListEventLinks(ctx, id)
	if err != nil {
		return nil, err
	}
	others := make([]string, 0, len(links))
	for _, l := range links {
		others = append(others, otherEnd(l, id))
	}
	events, err := s.Store.ListEventsByIDs(ctx, others)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Event, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}
	out := make([]LinkView, 0, len(links))
	for _, l := range links {
		view := LinkView{
			ID:          l.ID,
			LinkType:    l.LinkType,
			Description: l.Description,
			Direction:   "incoming",
			CreatedAt:   l.CreatedAt,
		}
		if l.FromEventID == id {
			view.Direction = "outgoing"
		}
		if e, ok := byID[otherEnd(l, id)]; ok {
			view.LinkedEvent = summarize(e)
		}
		out = append(out, view)
	}
	return out, nil
}

func otherEnd(l models.EventLink, id string) string {
	if l.FromEventID == id {
		return l.ToEventID
	}
	return l.FromEventID
}

// CreateLink joins two distinct events. A pair may be linked only once,
// whichever direction was used first.
func (s *EventService) CreateLink(ctx context.Context, fromID string, in LinkInput) (*models.EventLink, error) {
	toID := strings.TrimSpace(in.ToEventID)
	if toID == "" {
		return nil, invalidf("toEventId is required")
	}
	if toID == fromID {
		return nil, invalidf("cannot link event to itself")
	}
	for _, id := range []string{fromID, toID} {
		event, err := s.Store.GetEventByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if event == nil {
			return nil, notFoundf("one or both events not found")
		}
	}
	existing, err := s.Store.FindEventLinkBetween(ctx, fromID, toID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: link already exists", ErrConflict)
	}
	link := &models.EventLink{
		FromEventID: fromID,
		ToEventID:   toID,
		LinkType:    strings.TrimSpace(in.LinkType),
		Description: optional(in.Description),
	}
	if err := s.Store.InsertEventLink(ctx, link); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: link already exists", ErrConflict)
		}
		return nil, err
	}
	return link, nil
}

func (s *EventService) DeleteLink(ctx context.Context, eventID, linkID string) error {
	if strings.TrimSpace(linkID) == "" {
		return invalidf("linkId is required")
	}
	n, err := s.Store.DeleteEventLink(ctx, eventID, linkID)
	if err != nil {
		return err
	}
	if n == 0 {
		return notFoundf("link %s", linkID)
	}
	return nil
}

// --- related -------------------------------------------------------------------

type LinkedEvent struct {
	models.Event
	LinkType      string `json:"linkType"`
	LinkDirection string `json:"linkDirection"`
}

type SuggestedEvent struct {
	models.Event
	SimilarityScore   int      `json:"similarityScore"`
	SimilarityReasons []string `json:"similarityReasons"`
}

type RelatedView struct {
	EventID         string           `json:"eventId"`
	LinkedEvents    []LinkedEvent    `json:"linkedEvents"`
	SuggestedEvents []SuggestedEvent `json:"suggestedEvents"`
}

func (s *EventService) Related(ctx context.Context, id string) (RelatedView, error) {
	subject, err := s.Get(ctx, id)
	if err != nil {
		return RelatedView{}, err
	}
	view := RelatedView{EventID: id, LinkedEvents: []LinkedEvent{}, SuggestedEvents: []SuggestedEvent{}}

	links, err := s.Store.ListEventLinks(ctx, id)
	if err != nil {
		return RelatedView{}, err
	}
	if len(links) > 0 {
		ids := make([]string, 0, len(links))
		for _, l := range links {
			ids = append(ids, otherEnd(l, id))
		}
		linked, err := s.Store.ListEventsByIDs(ctx, ids)
		if err != nil {
			return RelatedView{}, err
		}
		byID := make(map[string]models.Event, len(linked))
		for _, e := range linked {
			byID[e.ID] = e
		}
		for _, l := range links {
			e, ok := byID[otherEnd(l, id)]
			if !ok {
				continue
			}
			direction := "from"
			if l.FromEventID == id {
				direction = "to"
			}
			view.LinkedEvents = append(view.LinkedEvents, LinkedEvent{Event: e, LinkType: l.LinkType, LinkDirection: direction})
		}
	}

	candidates, err := s.Store.ListEvents(ctx, repository.ListEventsParams{Limit: -1})
	if err != nil {
		return RelatedView{}, err
	}
	for _, scored := range related.Suggest(*subject, candidates, related.DefaultLimit) {
		view.SuggestedEvents = append(view.SuggestedEvents, SuggestedEvent{
			Event:             scored.Event,
			SimilarityScore:   scored.Score,
			SimilarityReasons: scored.Reasons,
		})
	}
	return view, nil
}

// --- on this day ---------------------------------------------------------------

type OnThisDayView struct {
	Month         int                       `json:"month"`
	Day           int                       `json:"day"`
	FormattedDate string                    `json:"formattedDate"`
	TotalEvents   int                       `json:"totalEvents"`
	YearCount     int                       `json:"yearCount"`
	ByYear        map[string][]models.Event `json:"byYear"`
	Years         []string                  `json:"years"`
	Events        []models.Event            `json:"events"`
}

// OnThisDay collects events from every year that share target's month and day.
func (s *EventService) OnThisDay(ctx context.Context, target time.Time) (OnThisDayView, error) {
	loc := s.location()
	target = target.In(loc)
	all, err := s.Store.ListEvents(ctx, repository.ListEventsParams{Limit: -1})
	if err != nil {
		return OnThisDayView{}, err
	}
	view := OnThisDayView{
		Month:         int(target.Month()),
		Day:           target.Day(),
		FormattedDate: target.Format("January 2"),
		ByYear:        map[string][]models.Event{},
		Years:         []string{},
		Events:        []models.Event{},
	}
	for _, e := range all {
		d := e.Date.In(loc)
		if d.Month() != target.Month() || d.Day() != target.Day() {
			continue
		}
		year := strconv.Itoa(d.Year())
		if _, ok := view.ByYear[year]; !ok {
			view.Years = append(view.Years, year)
		}
		view.ByYear[year] = append(view.ByYear[year], e)
		view.Events = append(view.Events, e)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(view.Years)))
	view.TotalEvents = len(view.Events)
	view.YearCount = len(view.ByYear)
	return view, nil
}

func (s *EventService) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.UTC
}
