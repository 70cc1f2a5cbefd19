package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EventTemplate is a reusable starting point for manually written events.
// Built-in templates are seeded at startup and cannot be deleted.
type EventTemplate struct {
	ID          string                      `gorm:"primaryKey;type:text;comment:template id" json:"id"`
	Name        string                      `gorm:"type:text;not null;uniqueIndex;comment:display name" json:"name"`
	Description *string                     `gorm:"type:text" json:"description,omitempty"`
	Category    string                      `gorm:"type:text;not null;comment:event category" json:"category"`
	Icon        *string                     `gorm:"type:text" json:"icon,omitempty"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	Content     string                      `gorm:"type:text;not null;default:'';comment:html body with placeholders" json:"content"`
	Services    datatypes.JSONSlice[string] `json:"services"`
	IsBuiltIn   bool                        `gorm:"not null;default:false" json:"isBuiltIn"`
	CreatedAt   time.Time                   `json:"createdAt"`
	UpdatedAt   time.Time                   `json:"updatedAt"`
}

func (EventTemplate) TableName() string {
	return "event_templates"
}

func (t *EventTemplate) BeforeCreate(_ *gorm.DB) error {
	if strings.TrimSpace(t.ID) == "" {
		t.ID = uuid.NewString()
	}
	if t.Tags == nil {
		t.Tags = datatypes.JSONSlice[string]{}
	}
	if t.Services == nil {
		t.Services = datatypes.JSONSlice[string]{}
	}
	return nil
}
