package billing

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/abex/clubes-abex/api/controllers/membercontext"
	"github.com/abex/clubes-abex/api/responses"
	"github.com/abex/clubes-abex/api/validators"
	"github.com/abex/clubes-abex/internal/payments"
	"github.com/abex/clubes-abex/pkg/db/models"
	"github.com/abex/clubes-abex/pkg/enums"
	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
	"github.com/abex/clubes-abex/pkg/logger"
)

// PaymentHistory lists a member's ledger rows.
type PaymentHistory interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error)
}

type paymentRequest struct {
	PlanID  uuid.UUID `json:"planId" validate:"required"`
	Billing string    `json:"billing"`
}

// MemberPayment opens a Mercado Pago checkout for the chosen plan and records
// the pending ledger row.
func MemberPayment(svc payments.CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		userID, err := membercontext.ResolveUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req paymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		billing, err := enums.ParseBillingCycle(req.Billing)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid billing"))
			return
		}
		result, err := svc.CreatePreference(r.Context(), userID, req.PlanID, billing)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func MemberPayments(history PaymentHistory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if history == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment ledger unavailable"))
			return
		}
		userID, err := membercontext.ResolveUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := history.ListByUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payments.FromModels(rows))
	}
}
