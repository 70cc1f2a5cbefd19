package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EventVersion is a point-in-time copy of an event's editable fields.
type EventVersion struct {
	ID         string                      `gorm:"primaryKey;type:text" json:"id"`
	EventID    string                      `gorm:"type:text;not null;uniqueIndex:idx_event_versions_number,priority:1" json:"eventId"`
	Version    int                         `gorm:"not null;uniqueIndex:idx_event_versions_number,priority:2" json:"version"`
	Title      string                      `gorm:"type:text;not null" json:"title"`
	Content    string                      `gorm:"type:text;not null;default:''" json:"content"`
	Category   string                      `gorm:"type:text;not null" json:"category"`
	Tags       datatypes.JSONSlice[string] `json:"tags"`
	ChangedBy  *string                     `gorm:"type:text" json:"changedBy,omitempty"`
	ChangeNote *string                     `gorm:"type:text" json:"changeNote,omitempty"`
	Snapshot   datatypes.JSON              `json:"snapshot"`
	CreatedAt  time.Time                   `json:"createdAt"`
}

func (EventVersion) TableName() string {
	return "event_versions"
}

func (v *EventVersion) BeforeCreate(_ *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
