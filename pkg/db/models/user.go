package models

import (
	"time"

	dbtypes "github.com/abex/clubes-abex/pkg/db/types"
	"github.com/abex/clubes-abex/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a member or admin created on first OAuth login.
// SubscriptionStatus is a cache of the latest subscription's status and is
// never consulted for access decisions.
type User struct {
	ID                 uuid.UUID                `gorm:"type:uuid;primaryKey"`
	Name               string                   `gorm:"column:name;not null"`
	Email              string                   `gorm:"type:text;not null;uniqueIndex"`
	Image              *string                  `gorm:"column:image"`
	Role               enums.UserRole           `gorm:"column:role;type:text;not null;default:'member'"`
	SubscriptionStatus enums.SubscriptionStatus `gorm:"column:subscription_status;type:text;not null;default:'inactive'"`
	FavoriteContentIDs dbtypes.UUIDArray        `gorm:"column:favorite_content_ids"`
	LastLoginAt        *time.Time               `gorm:"column:last_login_at"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	if u.Role == "" {
		u.Role = enums.UserRoleMember
	}
	if u.SubscriptionStatus == "" {
		u.SubscriptionStatus = enums.SubscriptionStatusInactive
	}
	if u.FavoriteContentIDs == nil {
		u.FavoriteContentIDs = dbtypes.UUIDArray{}
	}
	return nil
}
