package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"chronicle/internal/models"
	"chronicle/internal/repository"
)

const (
	SnapshotVersion = "2.0"
	// SnapshotExport marks a snapshot downloaded without a backup file.
	SnapshotExport = "export"

	defaultBackupLogLimit = 1000
)

// Snapshot is the JSON document written by a backup and read by restore.
type Snapshot struct {
	Version    string              `json:"version"`
	ExportedAt time.Time           `json:"exportedAt"`
	Type       string              `json:"type"`
	Counts     models.BackupCounts `json:"counts"`
	Data       SnapshotData        `json:"data"`
}

type SnapshotData struct {
	Events      []models.Event         `json:"events"`
	Templates   []models.EventTemplate `json:"templates"`
	WebhookLogs []models.WebhookLog    `json:"webhookLogs"`
}

// RestoreOptions select what a restore writes. Nil means yes.
type RestoreOptions struct {
	Events        *bool `json:"restoreEvents"`
	Templates     *bool `json:"restoreTemplates"`
	WebhookLogs   *bool `json:"restoreWebhookLogs"`
	ClearExisting bool  `json:"clearExisting"`
}

type RestoreResult struct {
	EventsRestored      int      `json:"eventsRestored"`
	TemplatesRestored   int      `json:"templatesRestored"`
	WebhookLogsRestored int      `json:"webhookLogsRestored"`
	Errors              []string `json:"errors"`
}

type BackupService struct {
	Store repository.Repository
	// Dir receives backup files; created on first use.
	Dir string
	// LogLimit caps how many of the newest webhook logs are kept.
	LogLimit int
	Logger   *zap.Logger
	Now      func() time.Time
}

func (s *BackupService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Snapshot reads every event and template and the newest webhook logs.
func (s *BackupService) Snapshot(ctx context.Context, kind string) (Snapshot, error) {
	events, err := s.Store.ListEvents(ctx, repository.ListEventsParams{Limit: -1})
	if err != nil {
		return Snapshot{}, err
	}
	templates, err := s.Store.ListTemplates(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	limit := s.LogLimit
	if limit <= 0 {
		limit = defaultBackupLogLimit
	}
	logs, err := s.Store.RecentWebhookLogs(ctx, limit)
	if err != nil {
		return Snapshot{}, err
	}
	if events == nil {
		events = []models.Event{}
	}
	if templates == nil {
		templates = []models.EventTemplate{}
	}
	if logs == nil {
		logs = []models.WebhookLog{}
	}
	return Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.now(),
		Type:       kind,
		Counts: models.BackupCounts{
			Events:      len(events),
			Templates:   len(templates),
			WebhookLogs: len(logs),
		},
		Data: SnapshotData{Events: events, Templates: templates, WebhookLogs: logs},
	}, nil
}

// Create writes a snapshot file and records it. A failed attempt is
// recorded too.
func (s *BackupService) Create(ctx context.Context, kind string) (*models.Backup, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		kind = models.BackupManual
	}
	if kind != models.BackupManual && kind != models.BackupScheduled {
		return nil, invalidf("backup type must be %s or %s", models.BackupManual, models.BackupScheduled)
	}
	backup, err := s.write(ctx, kind)
	if err != nil {
		msg := err.Error()
		failed := &models.Backup{
			Filename: fmt.Sprintf("failed-%d", s.now().UnixMilli()),
			Type:     kind,
			Status:   models.BackupFailed,
			Error:    &msg,
		}
		if recErr := s.Store.InsertBackup(ctx, failed); recErr != nil && s.Logger != nil {
			s.Logger.Warn("record failed backup", zap.Error(recErr))
		}
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("backup written",
			zap.String("file", backup.Path),
			zap.Int64("bytes", backup.Size),
			zap.Int("events", backup.Counts.Data().Events),
		)
	}
	return backup, nil
}

func (s *BackupService) write(ctx context.Context, kind string) (*models.Backup, error) {
	if strings.TrimSpace(s.Dir) == "" {
		return nil, invalidf("backup directory is not configured")
	}
	snap, err := s.Snapshot(ctx, kind)
	if err != nil {
		return nil, err
	}
	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("chronicle-backup-%s-%s.json", kind, snap.ExportedAt.Format("20060102-150405.000"))
	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		return nil, err
	}
	backup := &models.Backup{
		Filename: name,
		Path:     path,
		Size:     int64(len(body)),
		Type:     kind,
		Status:   models.BackupCompleted,
		Counts:   datatypes.NewJSONType(snap.Counts),
	}
	if err := s.Store.InsertBackup(ctx, backup); err != nil {
		return nil, err
	}
	return backup, nil
}

func (s *BackupService) List(ctx context.Context) ([]models.Backup, error) {
	return s.Store.ListBackups(ctx)
}

func (s *BackupService) completed(ctx context.Context, id string) (*models.Backup, error) {
	backup, err := s.Store.GetBackup(ctx, id)
	if err != nil {
		return nil, err
	}
	if backup == nil || backup.Status != models.BackupCompleted || backup.Path == "" {
		return nil, notFoundf("backup %s", id)
	}
	return backup, nil
}

// Open returns a recorded backup file as a download.
func (s *BackupService) Open(ctx context.Context, id string) (Document, error) {
	backup, err := s.completed(ctx, id)
	if err != nil {
		return Document{}, err
	}
	body, err := os.ReadFile(backup.Path)
	if err != nil {
		return Document{}, fmt.Errorf("read backup %s: %w", backup.Filename, err)
	}
	return Document{Filename: backup.Filename, ContentType: "application/json", Body: body}, nil
}

// RestoreBackup restores from a recorded backup file.
func (s *BackupService) RestoreBackup(ctx context.Context, id string, opts RestoreOptions) (RestoreResult, error) {
	doc, err := s.Open(ctx, id)
	if err != nil {
		return RestoreResult{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(doc.Body, &snap); err != nil {
		return RestoreResult{}, invalidf("backup %s is not valid JSON: %s", id, err.Error())
	}
	return s.Restore(ctx, snap, opts)
}

// Restore upserts snapshot rows: events and webhook logs by id, templates
// by name. Row failures are collected and do not stop the restore.
func (s *BackupService) Restore(ctx context.Context, snap Snapshot, opts RestoreOptions) (RestoreResult, error) {
	if strings.TrimSpace(snap.Version) == "" {
		return RestoreResult{}, invalidf("not a chronicle backup: version is missing")
	}
	restoreEvents, restoreTemplates, restoreLogs := restoreEnabled(opts.Events), restoreEnabled(opts.Templates), restoreEnabled(opts.WebhookLogs)
	result := RestoreResult{Errors: []string{}}

	if opts.ClearExisting {
		if restoreEvents {
			if err := s.Store.ClearEvents(ctx); err != nil {
				return result, err
			}
		}
		if restoreTemplates {
			if err := s.Store.ClearTemplates(ctx); err != nil {
				return result, err
			}
		}
	}

	if restoreEvents {
		for i := range snap.Data.Events {
			e := snap.Data.Events[i]
			if !models.IsCategory(e.Category) {
				result.Errors = append(result.Errors, fmt.Sprintf("Event %s: unknown category %q", e.ID, e.Category))
				continue
			}
			if err := s.Store.UpsertEvent(ctx, &e); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Event %s: %s", e.ID, err.Error()))
				continue
			}
			result.EventsRestored++
		}
	}
	if restoreTemplates {
		for i := range snap.Data.Templates {
			t := snap.Data.Templates[i]
			if err := s.Store.UpsertTemplate(ctx, &t); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Template %s: %s", t.Name, err.Error()))
				continue
			}
			result.TemplatesRestored++
		}
	}
	if restoreLogs {
		for i := range snap.Data.WebhookLogs {
			l := snap.Data.WebhookLogs[i]
			if err := s.Store.UpsertWebhookLog(ctx, &l); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Webhook log %s: %s", l.ID, err.Error()))
				continue
			}
			result.WebhookLogsRestored++
		}
	}

	if s.Logger != nil {
		s.Logger.Info("restore finished",
			zap.Int("events", result.EventsRestored),
			zap.Int("templates", result.TemplatesRestored),
			zap.Int("webhook_logs", result.WebhookLogsRestored),
			zap.Int("errors", len(result.Errors)),
		)
	}
	return result, nil
}

func restoreEnabled(v *bool) bool {
	return v == nil || *v
}
