package models

import (
	"time"

	"gorm.io/datatypes"
)

// SyncState tracks progress of a polling importer, keyed by scope
// (for example "github:owner/repo").
type SyncState struct {
	Scope         string         `gorm:"primaryKey;type:text" json:"scope"`
	LastSuccessAt *time.Time     `json:"lastSuccessAt,omitempty"`
	LastAttemptAt *time.Time     `json:"lastAttemptAt,omitempty"`
	LastError     *string        `gorm:"type:text" json:"lastError,omitempty"`
	StatsJSON     datatypes.JSON `json:"stats,omitempty"`
}

func (SyncState) TableName() string {
	return "sync_state"
}
