package models

import (
	"time"

	"github.com/abex/clubes-abex/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subscription is a member's entitlement window for a plan. Rows are never
// deleted; renewal creates a new row and marks the previous one renewed.
// The partial unique index keeps at most one active row per user.
type Subscription struct {
	ID            uuid.UUID                `gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index;uniqueIndex:idx_subscriptions_one_active,where:status = 'active'"`
	PlanID        uuid.UUID                `gorm:"column:plan_id;type:uuid;not null;index"`
	Status        enums.SubscriptionStatus `gorm:"column:status;type:text;not null"`
	Billing       enums.BillingCycle       `gorm:"column:billing;type:text;not null"`
	StartDate     time.Time                `gorm:"column:start_date;not null"`
	EndDate       time.Time                `gorm:"column:end_date;not null"`
	AutoRenew     bool                     `gorm:"column:auto_renew;not null;default:false"`
	IsTrial       bool                     `gorm:"column:is_trial;not null;default:false"`
	CancelledAt   *time.Time               `gorm:"column:cancelled_at"`
	RenewedFromID *uuid.UUID               `gorm:"column:renewed_from_id;type:uuid"`
	CreatedAt     time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Subscription) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// ActiveAt reports whether the subscription grants access at the instant.
func (s Subscription) ActiveAt(now time.Time) bool {
	return s.Status == enums.SubscriptionStatusActive &&
		!now.Before(s.StartDate) && !now.After(s.EndDate)
}
