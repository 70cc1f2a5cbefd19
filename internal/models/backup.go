package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	BackupManual    = "manual"
	BackupScheduled = "scheduled"

	BackupCompleted = "completed"
	BackupFailed    = "failed"
)

type BackupCounts struct {
	Events      int `json:"events"`
	Templates   int `json:"templates"`
	WebhookLogs int `json:"webhookLogs"`
}

// Backup records a snapshot file written to the backup directory.
type Backup struct {
	ID        string                           `gorm:"primaryKey;type:text" json:"id"`
	Filename  string                           `gorm:"type:text;not null" json:"filename"`
	Path      string                           `gorm:"type:text;not null;default:''" json:"-"`
	Size      int64                            `gorm:"not null;default:0" json:"size"`
	Type      string                           `gorm:"type:text;not null;default:manual" json:"type"`
	Status    string                           `gorm:"type:text;not null;index" json:"status"`
	Error     *string                          `gorm:"type:text" json:"error,omitempty"`
	Counts    datatypes.JSONType[BackupCounts] `json:"counts"`
	CreatedAt time.Time                        `gorm:"index" json:"createdAt"`
}

func (Backup) TableName() string {
	return "backups"
}

func (b *Backup) BeforeCreate(_ *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
