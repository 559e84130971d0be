package subscriptions

import (
	"context"
	"fmt"
	"time"

	"github.com/abex/clubes-abex/internal/plans"
	"github.com/abex/clubes-abex/internal/users"
	"github.com/abex/clubes-abex/pkg/db/models"
	"github.com/abex/clubes-abex/pkg/enums"
	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
	"github.com/abex/clubes-abex/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the subscription lifecycle surface.
type Service interface {
	ActivateOrRenew(ctx context.Context, input ActivationInput) (*models.Subscription, error)
	ActivateOrRenewTx(ctx context.Context, tx *gorm.DB, input ActivationInput) (*models.Subscription, error)
	ChoosePlan(ctx context.Context, userID, planID uuid.UUID, billing enums.BillingCycle) (*models.Subscription, error)
	Cancel(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	CancelActiveTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
	RevokeTx(ctx context.Context, tx *gorm.DB, subscriptionID uuid.UUID) (*models.Subscription, error)
	Renew(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	GetActive(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	HasEntitlement(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error)
	History(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error)
	ExpireDue(ctx context.Context, limit int) (int, error)
}

// ActivationInput identifies the plan a confirmed payment paid for.
type ActivationInput struct {
	UserID  uuid.UUID
	PlanID  uuid.UUID
	Billing enums.BillingCycle
}

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	Repo              Repository
	Users             users.Repository
	Plans             plans.Repository
	TransactionRunner txRunner
	Logger            *logger.Logger
	CancelGrace       bool
	Clock             func() time.Time
}

type service struct {
	repo        Repository
	users       users.Repository
	plans       plans.Repository
	txRunner    txRunner
	logg        *logger.Logger
	cancelGrace bool
	now         func() time.Time
}

// NewService builds a subscription service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("subscription repo required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repo required")
	}
	if params.Plans == nil {
		return nil, fmt.Errorf("plans repo required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:        params.Repo,
		users:       params.Users,
		plans:       params.Plans,
		txRunner:    params.TransactionRunner,
		logg:        params.Logger,
		cancelGrace: params.CancelGrace,
		now:         func() time.Time { return clock().UTC() },
	}, nil
}

func (s *service) ActivateOrRenew(ctx context.Context, input ActivationInput) (*models.Subscription, error) {
	var sub *models.Subscription
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		sub, err = s.ActivateOrRenewTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// ActivateOrRenewTx grants a fresh window for the plan inside the caller's
// transaction. Any active subscription is cancelled first and a pending
// subscription for the same plan is promoted instead of creating a new row.
func (s *service) ActivateOrRenewTx(ctx context.Context, tx *gorm.DB, input ActivationInput) (*models.Subscription, error) {
	if input.UserID == uuid.Nil || input.PlanID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and plan id are required")
	}
	billing := input.Billing
	if !billing.IsValid() {
		billing = enums.BillingCycleMonthly
	}

	plan, err := s.plans.WithTx(tx).FindByID(ctx, input.PlanID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plan")
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}

	repo := s.repo.WithTx(tx)
	now := s.now()
	if _, err := s.cancelActive(ctx, repo, input.UserID, now); err != nil {
		return nil, err
	}

	start, end := Window(now, billing)
	pending, err := repo.FindPendingForPlan(ctx, input.UserID, plan.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending subscription")
	}

	var sub *models.Subscription
	if pending != nil {
		if err := ensureTransition(pending.Status, enums.SubscriptionStatusActive); err != nil {
			return nil, err
		}
		pending.Status = enums.SubscriptionStatusActive
		pending.Billing = billing
		pending.StartDate = start
		pending.EndDate = end
		pending.IsTrial = false
		if err := repo.Save(ctx, pending); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate pending subscription")
		}
		sub = pending
	} else {
		sub = &models.Subscription{
			UserID:    input.UserID,
			PlanID:    plan.ID,
			Status:    enums.SubscriptionStatusActive,
			Billing:   billing,
			StartDate: start,
			EndDate:   end,
		}
		if err := repo.Create(ctx, sub); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create subscription")
		}
	}

	if err := s.users.WithTx(tx).UpdateSubscriptionStatus(ctx, input.UserID, enums.SubscriptionStatusActive); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user subscription flag")
	}
	return sub, nil
}

// ChoosePlan records the member's plan choice ahead of payment. A plan with
// trial days starts active immediately for users who never subscribed.
func (s *service) ChoosePlan(ctx context.Context, userID, planID uuid.UUID, billing enums.BillingCycle) (*models.Subscription, error) {
	if !billing.IsValid() {
		billing = enums.BillingCycleMonthly
	}
	var sub *models.Subscription
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		plan, err := s.plans.WithTx(tx).FindByID(ctx, planID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plan")
		}
		if plan == nil || !plan.Active {
			return pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}

		repo := s.repo.WithTx(tx)
		active, err := repo.FindActive(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active subscription")
		}
		if active != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "subscription already active")
		}

		history, err := repo.CountByUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count subscriptions")
		}
		now := s.now()

		if plan.TrialDays > 0 && history == 0 {
			start, end := TrialWindow(now, plan.TrialDays)
			sub = &models.Subscription{
				UserID:    userID,
				PlanID:    plan.ID,
				Status:    enums.SubscriptionStatusActive,
				Billing:   billing,
				StartDate: start,
				EndDate:   end,
				IsTrial:   true,
			}
			if err := repo.Create(ctx, sub); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create trial subscription")
			}
			return s.setFlag(ctx, tx, userID, enums.SubscriptionStatusActive)
		}

		if _, ok := plan.PriceFor(billing); !ok {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "plan is not sold with %s billing", billing)
		}

		previous, err := repo.FindPending(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending subscription")
		}
		if previous != nil {
			if previous.PlanID == plan.ID && previous.Billing == billing {
				sub = previous
				return nil
			}
			if _, err := repo.Transition(ctx, previous.ID, enums.SubscriptionStatusPending, enums.SubscriptionStatusCancelled, map[string]any{
				"cancelled_at": now,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel previous pending subscription")
			}
		}

		start, end := Window(now, billing)
		sub = &models.Subscription{
			UserID:    userID,
			PlanID:    plan.ID,
			Status:    enums.SubscriptionStatusPending,
			Billing:   billing,
			StartDate: start,
			EndDate:   end,
		}
		if err := repo.Create(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create pending subscription")
		}
		return s.setFlag(ctx, tx, userID, enums.SubscriptionStatusPending)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Cancel ends the active subscription. The end date is kept so grace mode can
// honour the paid period.
func (s *service) Cancel(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var cancelled *models.Subscription
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		active, err := repo.FindActive(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active subscription")
		}
		if active == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no active subscription")
		}
		now := s.now()
		if err := s.transition(ctx, repo, active, enums.SubscriptionStatusCancelled, map[string]any{"cancelled_at": now}); err != nil {
			return err
		}
		active.CancelledAt = &now
		cancelled = active
		return s.setFlag(ctx, tx, userID, enums.SubscriptionStatusCancelled)
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// CancelActiveTx cancels the active subscription when one exists.
func (s *service) CancelActiveTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	cancelled, err := s.cancelActive(ctx, s.repo.WithTx(tx), userID, s.now())
	if err != nil || cancelled == nil {
		return err
	}
	return s.setFlag(ctx, tx, userID, enums.SubscriptionStatusCancelled)
}

// RevokeTx ends access granted by a payment that was later refunded or
// charged back. An active subscription becomes inactive; a cancelled one
// loses its remaining grace. It returns nil when there was nothing to revoke.
func (s *service) RevokeTx(ctx context.Context, tx *gorm.DB, subscriptionID uuid.UUID) (*models.Subscription, error) {
	repo := s.repo.WithTx(tx)
	sub, err := repo.FindByID(ctx, subscriptionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	if sub == nil {
		return nil, nil
	}
	now := s.now()
	if sub.StartDate.After(now) {
		now = sub.StartDate
	}
	cut := map[string]any{"end_date": now}
	switch {
	case sub.Status == enums.SubscriptionStatusActive:
		if err := s.transition(ctx, repo, sub, enums.SubscriptionStatusInactive, cut); err != nil {
			return nil, err
		}
	case sub.Status == enums.SubscriptionStatusCancelled && sub.EndDate.After(now):
		if _, err := repo.Transition(ctx, sub.ID, sub.Status, sub.Status, cut); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "end subscription grace")
		}
	default:
		return nil, nil
	}
	sub.EndDate = now

	latest, err := repo.FindLatest(ctx, sub.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load latest subscription")
	}
	if latest != nil && latest.ID == sub.ID {
		if err := s.setFlag(ctx, tx, sub.UserID, sub.Status); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

// Renew starts a new active subscription from the latest terminal one,
// keeping its plan and billing cycle.
func (s *service) Renew(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var renewed *models.Subscription
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		active, err := repo.FindActive(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active subscription")
		}
		if active != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "subscription already active")
		}

		previous, err := repo.FindLatestTerminal(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load previous subscription")
		}
		if previous == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no subscription to renew")
		}
		if err := s.transition(ctx, repo, previous, enums.SubscriptionStatusRenewed, nil); err != nil {
			return err
		}

		start, end := Window(s.now(), previous.Billing)
		previousID := previous.ID
		renewed = &models.Subscription{
			UserID:        userID,
			PlanID:        previous.PlanID,
			Status:        enums.SubscriptionStatusActive,
			Billing:       previous.Billing,
			StartDate:     start,
			EndDate:       end,
			AutoRenew:     previous.AutoRenew,
			RenewedFromID: &previousID,
		}
		if err := repo.Create(ctx, renewed); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create renewed subscription")
		}
		return s.setFlag(ctx, tx, userID, enums.SubscriptionStatusActive)
	})
	if err != nil {
		return nil, err
	}
	return renewed, nil
}

// GetActive returns the subscription whose window covers now, or nil.
func (s *service) GetActive(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.repo.FindEntitled(ctx, userID, s.now(), false)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active subscription")
	}
	return sub, nil
}

// HasEntitlement answers from subscription rows only; the cached user flag is
// not consulted.
func (s *service) HasEntitlement(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	sub, err := s.repo.FindEntitled(ctx, userID, now.UTC(), s.cancelGrace)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check entitlement")
	}
	return sub != nil, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	subs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscriptions")
	}
	return subs, nil
}

// ExpireDue marks active subscriptions past their end date as expired and
// returns how many were moved.
func (s *service) ExpireDue(ctx context.Context, limit int) (int, error) {
	now := s.now()
	due, err := s.repo.ListExpired(ctx, now, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired subscriptions")
	}

	var (
		expired int
		errs    error
	)
	for i := range due {
		sub := due[i]
		var moved bool
		err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			var err error
			moved, err = repo.Transition(ctx, sub.ID, enums.SubscriptionStatusActive, enums.SubscriptionStatusExpired, nil)
			if err != nil || !moved {
				return err
			}
			latest, err := repo.FindLatest(ctx, sub.UserID)
			if err != nil {
				return err
			}
			if latest != nil && latest.ID == sub.ID {
				return s.setFlag(ctx, tx, sub.UserID, enums.SubscriptionStatusExpired)
			}
			return nil
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire subscription %s: %w", sub.ID, err))
			continue
		}
		if moved {
			expired++
		}
	}
	if s.logg != nil && expired > 0 {
		logCtx := s.logg.WithField(ctx, "expired", expired)
		s.logg.Info(logCtx, "subscriptions.expired")
	}
	return expired, errs
}

func (s *service) cancelActive(ctx context.Context, repo Repository, userID uuid.UUID, now time.Time) (*models.Subscription, error) {
	active, err := repo.FindActive(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active subscription")
	}
	if active == nil {
		return nil, nil
	}
	if err := s.transition(ctx, repo, active, enums.SubscriptionStatusCancelled, map[string]any{"cancelled_at": now}); err != nil {
		return nil, err
	}
	active.CancelledAt = &now
	return active, nil
}

func (s *service) transition(ctx context.Context, repo Repository, sub *models.Subscription, to enums.SubscriptionStatus, extra map[string]any) error {
	if err := ensureTransition(sub.Status, to); err != nil {
		return err
	}
	moved, err := repo.Transition(ctx, sub.ID, sub.Status, to, extra)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update subscription status")
	}
	if !moved {
		return pkgerrors.New(pkgerrors.CodeConflict, "subscription changed concurrently")
	}
	sub.Status = to
	return nil
}

func (s *service) setFlag(ctx context.Context, tx *gorm.DB, userID uuid.UUID, status enums.SubscriptionStatus) error {
	if err := s.users.WithTx(tx).UpdateSubscriptionStatus(ctx, userID, status); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user subscription flag")
	}
	return nil
}
