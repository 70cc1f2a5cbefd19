package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const LinkTypeRelated = "related"

type EventLink struct {
	ID          string    `gorm:"primaryKey;type:text" json:"id"`
	FromEventID string    `gorm:"type:text;not null;uniqueIndex:idx_event_links_pair,priority:1" json:"fromEventId"`
	ToEventID   string    `gorm:"type:text;not null;index;uniqueIndex:idx_event_links_pair,priority:2" json:"toEventId"`
	LinkType    string    `gorm:"type:text;not null;default:related" json:"linkType"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (EventLink) TableName() string {
	return "event_links"
}

func (l *EventLink) BeforeCreate(_ *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.LinkType == "" {
		l.LinkType = LinkTypeRelated
	}
	return nil
}
