package subscriptions

import (
	"time"

	"github.com/abex/clubes-abex/pkg/db/models"
	"github.com/google/uuid"
)

// SubscriptionDTO is the member-facing subscription shape.
type SubscriptionDTO struct {
	ID            uuid.UUID  `json:"id"`
	PlanID        uuid.UUID  `json:"planId"`
	Status        string     `json:"status"`
	Billing       string     `json:"billing"`
	StartDate     time.Time  `json:"startDate"`
	EndDate       time.Time  `json:"endDate"`
	AutoRenew     bool       `json:"autoRenew"`
	IsTrial       bool       `json:"isTrial"`
	CancelledAt   *time.Time `json:"cancelledAt,omitempty"`
	RenewedFromID *uuid.UUID `json:"renewedFromId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// FromModel maps a subscription, returning nil for a nil input so handlers
// can render "no subscription" as JSON null.
func FromModel(s *models.Subscription) *SubscriptionDTO {
	if s == nil {
		return nil
	}
	return &SubscriptionDTO{
		ID:            s.ID,
		PlanID:        s.PlanID,
		Status:        string(s.Status),
		Billing:       string(s.Billing),
		StartDate:     s.StartDate,
		EndDate:       s.EndDate,
		AutoRenew:     s.AutoRenew,
		IsTrial:       s.IsTrial,
		CancelledAt:   s.CancelledAt,
		RenewedFromID: s.RenewedFromID,
		CreatedAt:     s.CreatedAt,
	}
}

func FromModels(subs []models.Subscription) []SubscriptionDTO {
	out := make([]SubscriptionDTO, 0, len(subs))
	for i := range subs {
		out = append(out, *FromModel(&subs[i]))
	}
	return out
}
