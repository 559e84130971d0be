package models

import (
	"time"

	"github.com/abex/clubes-abex/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Content is a gated item. Restricted content requires an active subscription.
type Content struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey"`
	Title        string            `gorm:"column:title;not null"`
	Description  string            `gorm:"column:description;not null;default:''"`
	Type         enums.ContentType `gorm:"column:type;type:text;not null"`
	URL          *string           `gorm:"column:url"`
	Restricted   bool              `gorm:"column:restricted;not null"`
	PlanID       *uuid.UUID        `gorm:"column:plan_id;type:uuid;index"`
	ViewCount    int64             `gorm:"column:view_count;not null;default:0"`
	LastViewedAt *time.Time        `gorm:"column:last_viewed_at"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Content) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
