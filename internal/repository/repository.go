package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"chronicle/internal/models"
)

// ErrDuplicate is returned when an insert collides with a unique key.
var ErrDuplicate = errors.New("duplicate record")

type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Events
	CreateEvent(ctx context.Context, item *models.Event) error
	UpdateEvent(ctx context.Context, item *models.Event) error
	DeleteEvent(ctx context.Context, id string) error
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
	FindEventBySourceRef(ctx context.Context, source, sourceRef string) (*models.Event, error)
	FindEventByTitleDate(ctx context.Context, source, title string, date time.Time) (*models.Event, error)
	ListEvents(ctx context.Context, params ListEventsParams) ([]models.Event, error)
	CountEvents(ctx context.Context, params ListEventsParams) (int64, error)
	ListEventsByIDs(ctx context.Context, ids []string) ([]models.Event, error)
	ListSourceRefs(ctx context.Context, source string) ([]string, error)

	// Webhook audit log
	InsertWebhookLog(ctx context.Context, item *models.WebhookLog) error
	UpdateWebhookLog(ctx context.Context, id string, updates map[string]any) error
	GetWebhookLog(ctx context.Context, id string) (*models.WebhookLog, error)
	ListWebhookLogs(ctx context.Context, params ListWebhookLogsParams) ([]models.WebhookLog, error)
	CountWebhookLogs(ctx context.Context, params ListWebhookLogsParams) (int64, error)

	// Links
	InsertEventLink(ctx context.Context, item *models.EventLink) error
	FindEventLinkBetween(ctx context.Context, a, b string) (*models.EventLink, error)
	ListEventLinks(ctx context.Context, eventID string) ([]models.EventLink, error)
	DeleteEventLink(ctx context.Context, eventID, linkID string) (int64, error)

	// Versions
	InsertEventVersion(ctx context.Context, item *models.EventVersion) error
	ListEventVersions(ctx context.Context, eventID string) ([]models.EventVersion, error)
	GetEventVersion(ctx context.Context, eventID, versionID string) (*models.EventVersion, error)
	MaxEventVersion(ctx context.Context, eventID string) (int, error)

	// Templates
	CreateTemplate(ctx context.Context, item *models.EventTemplate) error
	UpdateTemplate(ctx context.Context, item *models.EventTemplate) error
	DeleteTemplate(ctx context.Context, id string) error
	GetTemplate(ctx context.Context, id string) (*models.EventTemplate, error)
	ListTemplates(ctx context.Context) ([]models.EventTemplate, error)

	// Backups and restore. Upserts key events and logs on id, templates on name.
	InsertBackup(ctx context.Context, item *models.Backup) error
	GetBackup(ctx context.Context, id string) (*models.Backup, error)
	ListBackups(ctx context.Context) ([]models.Backup, error)
	RecentWebhookLogs(ctx context.Context, limit int) ([]models.WebhookLog, error)
	UpsertEvent(ctx context.Context, item *models.Event) error
	UpsertTemplate(ctx context.Context, item *models.EventTemplate) error
	UpsertWebhookLog(ctx context.Context, item *models.WebhookLog) error
	// ClearEvents deletes every event with its links and versions.
	ClearEvents(ctx context.Context) error
	// ClearTemplates deletes every template that is not built in.
	ClearTemplates(ctx context.Context) error

	// Sync bookkeeping
	GetSyncState(ctx context.Context, scope string) (*models.SyncState, error)
	SaveSyncState(ctx context.Context, state *models.SyncState) error
	ListSyncStates(ctx context.Context) ([]models.SyncState, error)
}

type ListEventsParams struct {
	// Limit < 0 returns every match.
	Limit     int
	Offset    int
	Category  *string
	Source    *string
	Search    *string
	Tags      []string
	Services  []string
	Node      *string
	StartDate *time.Time
	EndDate   *time.Time
	OrderBy   string
	Asc       *bool
}

type ListWebhookLogsParams struct {
	Limit     int
	Offset    int
	Source    *string
	Processed *bool
}
