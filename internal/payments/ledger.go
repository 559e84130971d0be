package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abex/clubes-abex/pkg/db/models"
	"github.com/abex/clubes-abex/pkg/enums"
	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// syncableFrom lists the statuses a row may hold before moving to the key
// status. Approved rows only move to refunded, so a late "pending"
// notification cannot undo an approval.
var syncableFrom = map[enums.PaymentStatus][]enums.PaymentStatus{
	enums.PaymentStatusRejected:  {enums.PaymentStatusPending},
	enums.PaymentStatusCancelled: {enums.PaymentStatusPending, enums.PaymentStatusRejected},
	enums.PaymentStatusRefunded:  {enums.PaymentStatusPending, enums.PaymentStatusApproved},
}

// RecordAttemptInput describes a new ledger row.
type RecordAttemptInput struct {
	UserID        uuid.UUID
	PlanID        uuid.UUID
	ExternalID    string
	Amount        decimal.Decimal
	Currency      string
	Billing       enums.BillingCycle
	Status        enums.PaymentStatus
	PaymentMethod string
}

// Ledger records payment attempts and their gateway-confirmed outcomes.
type Ledger struct {
	repo Repository
	now  func() time.Time
}

// NewLedger wraps the repository with ledger rules.
func NewLedger(repo Repository) (*Ledger, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repo required")
	}
	return &Ledger{repo: repo, now: time.Now}, nil
}

// WithTx returns a ledger whose writes join the caller's transaction.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{repo: l.repo.WithTx(tx), now: l.now}
}

// RecordAttempt inserts a ledger row. When an external id is supplied and
// already recorded, the existing row is returned instead.
func (l *Ledger) RecordAttempt(ctx context.Context, input RecordAttemptInput) (*models.Payment, error) {
	if input.UserID == uuid.Nil || input.PlanID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and plan id are required")
	}
	if input.Amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}
	status := input.Status
	if status == "" {
		status = enums.PaymentStatusPending
	}
	if !status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment status %q", status)
	}
	billing := input.Billing
	if !billing.IsValid() {
		billing = enums.BillingCycleMonthly
	}

	payment := &models.Payment{
		UserID:        input.UserID,
		PlanID:        input.PlanID,
		Amount:        input.Amount.Round(2),
		Currency:      strings.ToUpper(strings.TrimSpace(input.Currency)),
		Billing:       billing,
		Status:        status,
		PaymentMethod: optional(input.PaymentMethod),
	}

	externalID := strings.TrimSpace(input.ExternalID)
	if externalID == "" {
		if err := l.repo.Create(ctx, payment); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment attempt")
		}
		return payment, nil
	}

	payment.ExternalPaymentID = &externalID
	created, err := l.repo.CreateIfAbsent(ctx, payment)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment attempt")
	}
	if created {
		return payment, nil
	}
	existing, err := l.repo.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if existing == nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "payment %s could not be recorded", externalID)
	}
	return existing, nil
}

func (l *Ledger) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	payment, err := l.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	return payment, nil
}

func (l *Ledger) FindByExternalID(ctx context.Context, externalID string) (*models.Payment, error) {
	payment, err := l.repo.FindByExternalID(ctx, strings.TrimSpace(externalID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	return payment, nil
}

// AttachExternalID binds the gateway id to an attempt created at preference time.
func (l *Ledger) AttachExternalID(ctx context.Context, payment *models.Payment, externalID string) error {
	externalID = strings.TrimSpace(externalID)
	if payment.ExternalPaymentID != nil {
		if *payment.ExternalPaymentID == externalID {
			return nil
		}
		return pkgerrors.Newf(pkgerrors.CodeConflict, "payment %s already bound to %s", payment.ID, *payment.ExternalPaymentID)
	}
	attached, err := l.repo.AttachExternalID(ctx, payment.ID, externalID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach external payment id")
	}
	if !attached {
		return pkgerrors.Newf(pkgerrors.CodeConflict, "payment %s already bound", payment.ID)
	}
	payment.ExternalPaymentID = &externalID
	return nil
}

// MarkApproved is a compare-and-swap on status. changed is false when the row
// was already approved, in which case the caller must skip side effects.
func (l *Ledger) MarkApproved(ctx context.Context, payment *models.Payment, method string) (*models.Payment, bool, error) {
	paidAt := l.now().UTC()
	changed, err := l.repo.MarkApproved(ctx, payment.ID, optional(method), paidAt)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment approved")
	}
	if !changed {
		return payment, false, nil
	}
	payment.Status = enums.PaymentStatusApproved
	payment.PaidAt = &paidAt
	if m := optional(method); m != nil {
		payment.PaymentMethod = m
	}
	return payment, true, nil
}

// SyncStatus records a non-approved gateway status. It reports false when the
// row's current status does not allow the move.
func (l *Ledger) SyncStatus(ctx context.Context, payment *models.Payment, status enums.PaymentStatus, method string) (bool, error) {
	if status == enums.PaymentStatusApproved {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "use MarkApproved for approvals")
	}
	from, ok := syncableFrom[status]
	if !ok || payment.Status == status {
		return false, nil
	}
	changed, err := l.repo.UpdateStatus(ctx, payment.ID, from, status, optional(method))
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync payment status")
	}
	if changed {
		payment.Status = status
	}
	return changed, nil
}

func (l *Ledger) SetPreference(ctx context.Context, payment *models.Payment, preferenceID string) error {
	if err := l.repo.SetPreference(ctx, payment.ID, preferenceID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store preference id")
	}
	payment.PreferenceID = &preferenceID
	return nil
}

func (l *Ledger) LinkSubscription(ctx context.Context, payment *models.Payment, subscriptionID uuid.UUID) error {
	if err := l.repo.LinkSubscription(ctx, payment.ID, subscriptionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link payment to subscription")
	}
	payment.SubscriptionID = &subscriptionID
	return nil
}

func (l *Ledger) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	rows, err := l.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return rows, nil
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
