package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/abex/clubes-abex/internal/plans"
	"github.com/abex/clubes-abex/internal/users"
	"github.com/abex/clubes-abex/pkg/enums"
	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
	"github.com/abex/clubes-abex/pkg/logger"
	"github.com/abex/clubes-abex/pkg/mercadopago"
	"github.com/google/uuid"
)

// WebhookPath is where the gateway posts payment notifications.
const WebhookPath = "/api/webhooks/mercadopago"

// Gateway is the checkout surface of the payment provider.
type Gateway interface {
	CreatePreference(ctx context.Context, in mercadopago.PreferenceInput) (*mercadopago.Preference, error)
	Currency() string
}

// CheckoutResult is returned to the member to start payment.
type CheckoutResult struct {
	PreferenceID string    `json:"preferenceId"`
	RedirectURL  string    `json:"redirectUrl"`
	PaymentID    uuid.UUID `json:"paymentId"`
}

// CheckoutService starts a gateway checkout for a plan period.
type CheckoutService interface {
	CreatePreference(ctx context.Context, userID, planID uuid.UUID, billing enums.BillingCycle) (*CheckoutResult, error)
}

// CheckoutParams groups dependencies for the checkout service.
type CheckoutParams struct {
	Ledger  *Ledger
	Plans   plans.Repository
	Users   users.Repository
	Gateway Gateway
	SiteURL string
	Logger  *logger.Logger
}

type checkoutService struct {
	ledger  *Ledger
	plans   plans.Repository
	users   users.Repository
	gateway Gateway
	siteURL string
	logg    *logger.Logger
}

// NewCheckoutService builds the checkout service.
func NewCheckoutService(params CheckoutParams) (CheckoutService, error) {
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if params.Plans == nil {
		return nil, fmt.Errorf("plans repo required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repo required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	siteURL := strings.TrimRight(strings.TrimSpace(params.SiteURL), "/")
	if siteURL == "" {
		return nil, fmt.Errorf("site url required")
	}
	return &checkoutService{
		ledger:  params.Ledger,
		plans:   params.Plans,
		users:   params.Users,
		gateway: params.Gateway,
		siteURL: siteURL,
		logg:    params.Logger,
	}, nil
}

// CreatePreference records a pending ledger row, then opens the gateway
// checkout with the row id as external reference.
func (s *checkoutService) CreatePreference(ctx context.Context, userID, planID uuid.UUID, billing enums.BillingCycle) (*CheckoutResult, error) {
	if billing == "" {
		billing = enums.BillingCycleMonthly
	}
	if !billing.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid billing %q", billing)
	}

	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plan")
	}
	if plan == nil || !plan.Active {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	amount, ok := plan.PriceFor(billing)
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "plan is not sold with %s billing", billing)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user not found")
	}

	payment, err := s.ledger.RecordAttempt(ctx, RecordAttemptInput{
		UserID:   userID,
		PlanID:   plan.ID,
		Amount:   amount,
		Currency: s.gateway.Currency(),
		Billing:  billing,
	})
	if err != nil {
		return nil, err
	}

	pref, err := s.gateway.CreatePreference(ctx, mercadopago.PreferenceInput{
		ExternalReference: payment.ID.String(),
		ItemID:            plan.ID.String(),
		Title:             plan.Name,
		Description:       fmt.Sprintf("%s (%s)", plan.Name, billing),
		Amount:            amount,
		PayerEmail:        user.Email,
		SuccessURL:        s.siteURL + "/member/payment/success",
		PendingURL:        s.siteURL + "/member/payment/pending",
		FailureURL:        s.siteURL + "/member/payment/failure",
		NotificationURL:   s.siteURL + WebhookPath,
		Metadata: map[string]string{
			"user_id":    userID.String(),
			"plan_id":    plan.ID.String(),
			"billing":    string(billing),
			"payment_id": payment.ID.String(),
		},
	})
	if err != nil {
		if _, syncErr := s.ledger.SyncStatus(ctx, payment, enums.PaymentStatusCancelled, ""); syncErr != nil && s.logg != nil {
			s.logg.Error(ctx, "checkout.cancel_attempt_failed", syncErr)
		}
		return nil, err
	}

	if err := s.ledger.SetPreference(ctx, payment, pref.ID); err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"payment_id":    payment.ID.String(),
			"plan_id":       plan.ID.String(),
			"preference_id": pref.ID,
		})
		s.logg.Info(logCtx, "checkout.preference_created")
	}

	return &CheckoutResult{
		PreferenceID: pref.ID,
		RedirectURL:  pref.RedirectURL,
		PaymentID:    payment.ID,
	}, nil
}
