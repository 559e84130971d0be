package models

import (
	"time"

	"github.com/abex/clubes-abex/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WebhookEvent is the durable inbox entry for a provider notification.
type WebhookEvent struct {
	ID            uuid.UUID                `gorm:"type:uuid;primaryKey"`
	Provider      string                   `gorm:"column:provider;not null"`
	Topic         string                   `gorm:"column:topic;not null"`
	ResourceID    string                   `gorm:"column:resource_id;not null;index"`
	RequestID     *string                  `gorm:"column:request_id"`
	Payload       string                   `gorm:"column:payload;type:jsonb"`
	Status        enums.WebhookEventStatus `gorm:"column:status;type:text;not null;index:idx_webhook_events_due,priority:1"`
	Attempts      int                      `gorm:"column:attempts;not null;default:0"`
	LastError     *string                  `gorm:"column:last_error"`
	NextAttemptAt *time.Time               `gorm:"column:next_attempt_at;index:idx_webhook_events_due,priority:2"`
	ProcessedAt   *time.Time               `gorm:"column:processed_at"`
	CreatedAt     time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (w *WebhookEvent) BeforeCreate(*gorm.DB) error {
	ensureID(&w.ID)
	if w.Status == "" {
		w.Status = enums.WebhookEventStatusReceived
	}
	return nil
}
