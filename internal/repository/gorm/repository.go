package gormrepository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chronicle/internal/models"
	"chronicle/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

var _ repository.Repository = (*Store)(nil)

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- events ------------------------------------------------------------------

func (s *Store) CreateEvent(ctx context.Context, item *models.Event) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return translate(s.db.WithContext(ctx).Create(item).Error)
}

func (s *Store) UpdateEvent(ctx context.Context, item *models.Event) error {
	if s == nil || s.db == nil || item == nil || item.ID == "" {
		return nil
	}
	return translate(s.db.WithContext(ctx).Model(&models.Event{ID: item.ID}).Select(
		"title",
		"date",
		"content",
		"category",
		"icon",
		"tags",
		"services",
		"source",
		"source_ref",
		"infrastructure_node",
		"updated_at",
	).Updates(item).Error)
}

// DeleteEvent removes the event together with its links and versions.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	if s == nil || s.db == nil || strings.TrimSpace(id) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("from_event_id = ? OR to_event_id = ?", id, id).Delete(&models.EventLink{}).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", id).Delete(&models.EventVersion{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Event{}).Error
	})
}

func (s *Store) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	if s == nil || s.db == nil || strings.TrimSpace(id) == "" {
		return nil, nil
	}
	return first[models.Event](s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *Store) FindEventBySourceRef(ctx context.Context, source, sourceRef string) (*models.Event, error) {
	if s == nil || s.db == nil || sourceRef == "" {
		return nil, nil
	}
	return first[models.Event](s.db.WithContext(ctx).Where("source = ? AND source_ref = ?", source, sourceRef))
}

func (s *Store) FindEventByTitleDate(ctx context.Context, source, title string, date time.Time) (*models.Event, error) {
	if s == nil || s.db == nil || title == "" {
		return nil, nil
	}
	return first[models.Event](s.db.WithContext(ctx).Where("source = ? AND title = ? AND date = ?", source, title, date.UTC()))
}

func (s *Store) ListEvents(ctx context.Context, params repository.ListEventsParams) ([]models.Event, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.applyEventFilters(s.db.WithContext(ctx).Model(&models.Event{}), params)
	query = applyOrder(query, parseEventOrder(params.OrderBy), params.Asc, "date")
	if params.Limit >= 0 {
		query = query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset))
	}
	var items []models.Event
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountEvents(ctx context.Context, params repository.ListEventsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.applyEventFilters(s.db.WithContext(ctx).Model(&models.Event{}), params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ListEventsByIDs(ctx context.Context, ids []string) ([]models.Event, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	ids = cleanStrings(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	var items []models.Event
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("date desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListSourceRefs(ctx context.Context, source string) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var refs []string
	if err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("source = ? AND source_ref IS NOT NULL", source).
		Pluck("source_ref", &refs).Error; err != nil {
		return nil, err
	}
	return refs, nil
}

func (s *Store) applyEventFilters(query *gorm.DB, params repository.ListEventsParams) *gorm.DB {
	if params.Category != nil && strings.TrimSpace(*params.Category) != "" {
		query = query.Where("category = ?", strings.TrimSpace(*params.Category))
	}
	if params.Source != nil && strings.TrimSpace(*params.Source) != "" {
		query = query.Where("source = ?", strings.TrimSpace(*params.Source))
	}
	if params.Node != nil && strings.TrimSpace(*params.Node) != "" {
		query = query.Where("infrastructure_node = ?", strings.TrimSpace(*params.Node))
	}
	if params.Search != nil && strings.TrimSpace(*params.Search) != "" {
		like := "%" + escapeLike(strings.ToLower(strings.TrimSpace(*params.Search))) + "%"
		query = query.Where("(LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(content) LIKE ? ESCAPE '\\')", like, like)
	}
	if params.StartDate != nil && !params.StartDate.IsZero() {
		query = query.Where("date >= ?", params.StartDate.UTC())
	}
	if params.EndDate != nil && !params.EndDate.IsZero() {
		query = query.Where("date <= ?", params.EndDate.UTC())
	}
	tags := cleanStrings(params.Tags)
	for i := range tags {
		tags[i] = strings.ToLower(tags[i])
	}
	query = s.jsonArrayContainsAny(query, "tags", tags)
	query = s.jsonArrayContainsAny(query, "services", cleanStrings(params.Services))
	return query
}

// jsonArrayContainsAny keeps rows whose JSON array column holds at least
// one of values.
func (s *Store) jsonArrayContainsAny(query *gorm.DB, column string, values []string) *gorm.DB {
	if len(values) == 0 {
		return query
	}
	conds := make([]string, 0, len(values))
	args := make([]any, 0, len(values))
	for _, value := range values {
		switch s.db.Dialector.Name() {
		case "postgres":
			raw, _ := json.Marshal([]string{value})
			conds = append(conds, "events."+column+" @> CAST(? AS jsonb)")
			args = append(args, string(raw))
		default:
			conds = append(conds, "EXISTS (SELECT 1 FROM json_each(CAST(events."+column+" AS TEXT)) WHERE json_each.value = ?)")
			args = append(args, value)
		}
	}
	return query.Where("("+strings.Join(conds, " OR ")+")", args...)
}

func parseEventOrder(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "title":
		return "title"
	case "created_at", "createdat":
		return "created_at"
	case "category":
		return "category"
	case "date":
		return "date"
	default:
		return ""
	}
}

// --- webhook logs --------------------------------------------------------------

func (s *Store) InsertWebhookLog(ctx context.Context, item *models.WebhookLog) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) UpdateWebhookLog(ctx context.Context, id string, updates map[string]any) error {
	if s == nil || s.db == nil || id == "" || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Model(&models.WebhookLog{}).Where("id = ?", id).Updates(updates).Error
}

func (s *Store) GetWebhookLog(ctx context.Context, id string) (*models.WebhookLog, error) {
	if s == nil || s.db == nil || id == "" {
		return nil, nil
	}
	return first[models.WebhookLog](s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *Store) ListWebhookLogs(ctx context.Context, params repository.ListWebhookLogsParams) ([]models.WebhookLog, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyWebhookLogFilters(s.db.WithContext(ctx).Model(&models.WebhookLog{}), params)
	var items []models.WebhookLog
	if err := query.Order("created_at desc").
		Limit(normalizeLimit(params.Limit, 50)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountWebhookLogs(ctx context.Context, params repository.ListWebhookLogsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := applyWebhookLogFilters(s.db.WithContext(ctx).Model(&models.WebhookLog{}), params).Count(&total).Error
	return total, err
}

func applyWebhookLogFilters(query *gorm.DB, params repository.ListWebhookLogsParams) *gorm.DB {
	if params.Source != nil && strings.TrimSpace(*params.Source) != "" {
		query = query.Where("source = ?", strings.TrimSpace(*params.Source))
	}
	if params.Processed != nil {
		query = query.Where("processed = ?", *params.Processed)
	}
	return query
}

// --- links ---------------------------------------------------------------------

func (s *Store) InsertEventLink(ctx context.Context, item *models.EventLink) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return translate(s.db.WithContext(ctx).Create(item).Error)
}

func (s *Store) FindEventLinkBetween(ctx context.Context, a, b string) (*models.EventLink, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	return first[models.EventLink](s.db.WithContext(ctx).Where(
		"(from_event_id = ? AND to_event_id = ?) OR (from_event_id = ? AND to_event_id = ?)",
		a, b, b, a,
	))
}

func (s *Store) ListEventLinks(ctx context.Context, eventID string) ([]models.EventLink, error) {
	if s == nil || s.db == nil || eventID == "" {
		return nil, nil
	}
	var items []models.EventLink
	if err := s.db.WithContext(ctx).
		Where("from_event_id = ? OR to_event_id = ?", eventID, eventID).
		Order("created_at desc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteEventLink deletes a link only when it touches eventID.
func (s *Store) DeleteEventLink(ctx context.Context, eventID, linkID string) (int64, error) {
	if s == nil || s.db == nil || linkID == "" {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("id = ?", linkID).
		Where("from_event_id = ? OR to_event_id = ?", eventID, eventID).
		Delete(&models.EventLink{})
	return res.RowsAffected, res.Error
}

// --- versions ------------------------------------------------------------------

func (s *Store) InsertEventVersion(ctx context.Context, item *models.EventVersion) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return translate(s.db.WithContext(ctx).Create(item).Error)
}

func (s *Store) ListEventVersions(ctx context.Context, eventID string) ([]models.EventVersion, error) {
	if s == nil || s.db == nil || eventID == "" {
		return nil, nil
	}
	var items []models.EventVersion
	if err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("version desc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetEventVersion(ctx context.Context, eventID, versionID string) (*models.EventVersion, error) {
	if s == nil || s.db == nil || versionID == "" {
		return nil, nil
	}
	return first[models.EventVersion](s.db.WithContext(ctx).Where("id = ? AND event_id = ?", versionID, eventID))
}

func (s *Store) MaxEventVersion(ctx context.Context, eventID string) (int, error) {
	if s == nil || s.db == nil || eventID == "" {
		return 0, nil
	}
	var max *int
	if err := s.db.WithContext(ctx).
		Model(&models.EventVersion{}).
		Where("event_id = ?", eventID).
		Select("MAX(version)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// --- sync state ----------------------------------------------------------------

func (s *Store) GetSyncState(ctx context.Context, scope string) (*models.SyncState, error) {
	if s == nil || s.db == nil || strings.TrimSpace(scope) == "" {
		return nil, nil
	}
	return first[models.SyncState](s.db.WithContext(ctx).Where("scope = ?", scope))
}

func (s *Store) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	if s == nil || s.db == nil || state == nil || strings.TrimSpace(state.Scope) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "scope"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"last_success_at",
			"last_attempt_at",
			"last_error",
			"stats_json",
		}),
	}).Create(state).Error
}

func (s *Store) ListSyncStates(ctx context.Context) ([]models.SyncState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.SyncState
	if err := s.db.WithContext(ctx).Order("scope asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- templates -----------------------------------------------------------------

var templateColumns = []string{
	"name",
	"description",
	"category",
	"icon",
	"tags",
	"content",
	"services",
	"is_built_in",
	"updated_at",
}

func (s *Store) CreateTemplate(ctx context.Context, item *models.EventTemplate) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return translate(s.db.WithContext(ctx).Create(item).Error)
}

func (s *Store) UpdateTemplate(ctx context.Context, item *models.EventTemplate) error {
	if s == nil || s.db == nil || item == nil || item.ID == "" {
		return nil
	}
	return translate(s.db.WithContext(ctx).Model(&models.EventTemplate{ID: item.ID}).Select(templateColumns).Updates(item).Error)
}

func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	if s == nil || s.db == nil || strings.TrimSpace(id) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.EventTemplate{}).Error
}

func (s *Store) GetTemplate(ctx context.Context, id string) (*models.EventTemplate, error) {
	if s == nil || s.db == nil || strings.TrimSpace(id) == "" {
		return nil, nil
	}
	return first[models.EventTemplate](s.db.WithContext(ctx).Where("id = ?", id))
}

// ListTemplates returns built-in templates first, then by name.
func (s *Store) ListTemplates(ctx context.Context) ([]models.EventTemplate, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.EventTemplate
	if err := s.db.WithContext(ctx).Order("is_built_in desc").Order("name asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- backups -------------------------------------------------------------------

func (s *Store) InsertBackup(ctx context.Context, item *models.Backup) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetBackup(ctx context.Context, id string) (*models.Backup, error) {
	if s == nil || s.db == nil || strings.TrimSpace(id) == "" {
		return nil, nil
	}
	return first[models.Backup](s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *Store) ListBackups(ctx context.Context) ([]models.Backup, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Backup
	if err := s.db.WithContext(ctx).Order("created_at desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) RecentWebhookLogs(ctx context.Context, limit int) ([]models.WebhookLog, error) {
	if s == nil || s.db == nil || limit <= 0 {
		return nil, nil
	}
	var items []models.WebhookLog
	if err := s.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpsertEvent(ctx context.Context, item *models.Event) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return translate(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title",
			"date",
			"content",
			"category",
			"icon",
			"tags",
			"services",
			"source",
			"source_ref",
			"infrastructure_node",
			"updated_at",
		}),
	}).Create(item).Error)
}

// UpsertTemplate matches on name so a restored template replaces a local
// one with the same name whatever its id.
func (s *Store) UpsertTemplate(ctx context.Context, item *models.EventTemplate) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return translate(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns(templateColumns[1:]),
	}).Create(item).Error)
}

func (s *Store) UpsertWebhookLog(ctx context.Context, item *models.WebhookLog) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"source",
			"event_type",
			"payload",
			"ip_address",
			"processed",
			"event_id",
			"error",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) ClearEvents(ctx context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.EventLink{}, &models.EventVersion{}, &models.Event{}} {
			if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ClearTemplates(ctx context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Where("is_built_in = ?", false).Delete(&models.EventTemplate{}).Error
}

// --- helpers -------------------------------------------------------------------

func first[T any](query *gorm.DB) (*T, error) {
	var item T
	if err := query.First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return repository.ErrDuplicate
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key") {
		return repository.ErrDuplicate
	}
	return err
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func escapeLike(v string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(v)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	seen := map[string]struct{}{}
	for _, raw := range items {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		if _, ok := seen[val]; ok {
			continue
		}
		seen[val] = struct{}{}
		out = append(out, val)
	}
	return out
}
