package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProviderAccount links an OAuth identity to a local user.
type ProviderAccount struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index"`
	Provider       string     `gorm:"column:provider;not null;uniqueIndex:idx_provider_accounts_identity"`
	ProviderUserID string     `gorm:"column:provider_user_id;not null;uniqueIndex:idx_provider_accounts_identity"`
	TokenExpiresAt *time.Time `gorm:"column:token_expires_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *ProviderAccount) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
