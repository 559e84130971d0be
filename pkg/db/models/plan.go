package models

import (
	"time"

	dbtypes "github.com/abex/clubes-abex/pkg/db/types"
	"github.com/abex/clubes-abex/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Plan is a catalog offering. Price is the legacy single price and doubles as
// the monthly price when MonthlyPrice is unset.
type Plan struct {
	ID           uuid.UUID           `gorm:"type:uuid;primaryKey"`
	Name         string              `gorm:"column:name;not null"`
	Description  string              `gorm:"column:description;not null;default:''"`
	Price        decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	MonthlyPrice *decimal.Decimal    `gorm:"column:monthly_price;type:numeric(12,2)"`
	AnnualPrice  *decimal.Decimal    `gorm:"column:annual_price;type:numeric(12,2)"`
	Features     dbtypes.StringArray `gorm:"column:features"`
	TrialDays    int                 `gorm:"column:trial_days;not null;default:0"`
	Active       bool                `gorm:"column:active;not null"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Plan) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	if p.Features == nil {
		p.Features = dbtypes.StringArray{}
	}
	return nil
}

// PriceFor returns the charge for the billing cycle, or false when the plan
// is not sold on that cycle.
func (p Plan) PriceFor(cycle enums.BillingCycle) (decimal.Decimal, bool) {
	switch cycle {
	case enums.BillingCycleAnnual:
		if p.AnnualPrice != nil && p.AnnualPrice.IsPositive() {
			return *p.AnnualPrice, true
		}
		return decimal.Zero, false
	default:
		if p.MonthlyPrice != nil && p.MonthlyPrice.IsPositive() {
			return *p.MonthlyPrice, true
		}
		if p.Price.IsPositive() {
			return p.Price, true
		}
		return decimal.Zero, false
	}
}
