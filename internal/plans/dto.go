package plans

import (
	"time"

	"github.com/abex/clubes-abex/pkg/db/models"
	"github.com/abex/clubes-abex/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlanDTO is the public plan shape. Amounts are decimal strings.
type PlanDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Price        string    `json:"price"`
	MonthlyPrice *string   `json:"monthlyPrice,omitempty"`
	AnnualPrice  *string   `json:"annualPrice,omitempty"`
	Features     []string  `json:"features"`
	TrialDays    int       `json:"trialDays"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PlanInput captures admin create and update payloads.
type PlanInput struct {
	Name         string           `json:"name" validate:"required,max=120"`
	Description  string           `json:"description" validate:"max=2000"`
	Price        decimal.Decimal  `json:"price" validate:"money"`
	MonthlyPrice *decimal.Decimal `json:"monthlyPrice" validate:"omitempty,money"`
	AnnualPrice  *decimal.Decimal `json:"annualPrice" validate:"omitempty,money"`
	Features     []string         `json:"features" validate:"max=50,dive,max=200"`
	TrialDays    int              `json:"trialDays" validate:"gte=0,lte=365"`
	Active       *bool            `json:"active"`
}

func FromModel(p *models.Plan) PlanDTO {
	dto := PlanDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Features:    append([]string{}, p.Features...),
		TrialDays:   p.TrialDays,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if amount, ok := p.PriceFor(enums.BillingCycleMonthly); ok {
		formatted := amount.StringFixed(2)
		dto.MonthlyPrice = &formatted
	}
	if amount, ok := p.PriceFor(enums.BillingCycleAnnual); ok {
		formatted := amount.StringFixed(2)
		dto.AnnualPrice = &formatted
	}
	return dto
}

func FromModels(plans []models.Plan) []PlanDTO {
	out := make([]PlanDTO, 0, len(plans))
	for i := range plans {
		out = append(out, FromModel(&plans[i]))
	}
	return out
}
