package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WebhookLog is the audit row written for every inbound webhook delivery.
type WebhookLog struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	Source    string    `gorm:"type:text;not null;index" json:"source"`
	EventType string    `gorm:"type:text;not null;default:''" json:"eventType"`
	Payload   string    `gorm:"type:text;not null;default:''" json:"payload"`
	IPAddress *string   `gorm:"type:text" json:"ipAddress,omitempty"`
	Processed bool      `gorm:"not null;default:false;index" json:"processed"`
	EventID   *string   `gorm:"type:text" json:"eventId,omitempty"`
	Error     *string   `gorm:"type:text" json:"error,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (WebhookLog) TableName() string {
	return "webhook_logs"
}

func (l *WebhookLog) BeforeCreate(_ *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
