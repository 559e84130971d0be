package models

import (
	"time"

	"github.com/abex/clubes-abex/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment is one attempt in the payment ledger. ExternalPaymentID is the
// gateway's identifier and stays null until the gateway reports the payment.
type Payment struct {
	ID                uuid.UUID           `gorm:"type:uuid;primaryKey"`
	UserID            uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	PlanID            uuid.UUID           `gorm:"column:plan_id;type:uuid;not null;index"`
	SubscriptionID    *uuid.UUID          `gorm:"column:subscription_id;type:uuid"`
	ExternalPaymentID *string             `gorm:"column:external_payment_id;uniqueIndex"`
	PreferenceID      *string             `gorm:"column:preference_id"`
	Amount            decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency          string              `gorm:"column:currency;not null"`
	Billing           enums.BillingCycle  `gorm:"column:billing;type:text;not null"`
	Status            enums.PaymentStatus `gorm:"column:status;type:text;not null"`
	PaymentMethod     *string             `gorm:"column:payment_method"`
	PaidAt            *time.Time          `gorm:"column:paid_at"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	if p.Status == "" {
		p.Status = enums.PaymentStatusPending
	}
	if p.Billing == "" {
		p.Billing = enums.BillingCycleMonthly
	}
	return nil
}
