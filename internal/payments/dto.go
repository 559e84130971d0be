package payments

import (
	"time"

	"github.com/abex/clubes-abex/pkg/db/models"
	"github.com/google/uuid"
)

// PaymentDTO is the member payment history shape.
type PaymentDTO struct {
	ID                uuid.UUID  `json:"id"`
	PlanID            uuid.UUID  `json:"planId"`
	SubscriptionID    *uuid.UUID `json:"subscriptionId,omitempty"`
	ExternalPaymentID *string    `json:"externalPaymentId,omitempty"`
	Amount            string     `json:"amount"`
	Currency          string     `json:"currency"`
	Billing           string     `json:"billing"`
	Status            string     `json:"status"`
	PaymentMethod     *string    `json:"paymentMethod,omitempty"`
	PaidAt            *time.Time `json:"paidAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

func FromModels(rows []models.Payment) []PaymentDTO {
	out := make([]PaymentDTO, 0, len(rows))
	for _, p := range rows {
		out = append(out, PaymentDTO{
			ID:                p.ID,
			PlanID:            p.PlanID,
			SubscriptionID:    p.SubscriptionID,
			ExternalPaymentID: p.ExternalPaymentID,
			Amount:            p.Amount.StringFixed(2),
			Currency:          p.Currency,
			Billing:           string(p.Billing),
			Status:            string(p.Status),
			PaymentMethod:     p.PaymentMethod,
			PaidAt:            p.PaidAt,
			CreatedAt:         p.CreatedAt,
		})
	}
	return out
}
