package mpwebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/abex/clubes-abex/internal/payments"
	"github.com/abex/clubes-abex/internal/subscriptions"
	"github.com/abex/clubes-abex/pkg/config"
	"github.com/abex/clubes-abex/pkg/db/models"
	"github.com/abex/clubes-abex/pkg/enums"
	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
	"github.com/abex/clubes-abex/pkg/logger"
	"github.com/abex/clubes-abex/pkg/mercadopago"
	"github.com/abex/clubes-abex/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Gateway fetches the authoritative payment state.
type Gateway interface {
	GetPaymentStatus(ctx context.Context, externalID string) (*mercadopago.PaymentStatus, error)
}

type lifecycle interface {
	ActivateOrRenewTx(ctx context.Context, tx *gorm.DB, input subscriptions.ActivationInput) (*models.Subscription, error)
	RevokeTx(ctx context.Context, tx *gorm.DB, subscriptionID uuid.UUID) (*models.Subscription, error)
}

// Delivery is one inbound HTTP notification.
type Delivery struct {
	Body      []byte
	Query     url.Values
	Signature string
	RequestID string
}

// ServiceParams groups dependencies for the Mercado Pago webhook service.
type ServiceParams struct {
	Ledger            *payments.Ledger
	Subscriptions     lifecycle
	Gateway           Gateway
	Inbox             Inbox
	Guard             *InflightGuard
	TransactionRunner txRunner
	Metrics           *metrics.WebhookMetrics
	Logger            *logger.Logger
	Secret            string
	Config            config.WebhookConfig
	Clock             func() time.Time
}

// Service reconciles payment notifications into the ledger and subscriptions.
type Service struct {
	ledger   *payments.Ledger
	subs     lifecycle
	gateway  Gateway
	inbox    Inbox
	guard    *InflightGuard
	txRunner txRunner
	metrics  *metrics.WebhookMetrics
	logg     *logger.Logger
	secret   string
	cfg      config.WebhookConfig
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger required")
	}
	if params.Subscriptions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription service required")
	}
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment gateway required")
	}
	if params.Inbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhook inbox required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	cfg := params.Config
	if cfg.GuardTTL <= 0 {
		cfg.GuardTTL = 2 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Minute
	}
	if cfg.RetryMaxDelay < cfg.RetryBaseDelay {
		cfg.RetryMaxDelay = cfg.RetryBaseDelay
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		ledger:   params.Ledger,
		subs:     params.Subscriptions,
		gateway:  params.Gateway,
		inbox:    params.Inbox,
		guard:    params.Guard,
		txRunner: params.TransactionRunner,
		metrics:  params.Metrics,
		logg:     params.Logger,
		secret:   strings.TrimSpace(params.Secret),
		cfg:      cfg,
		now:      func() time.Time { return clock().UTC() },
	}, nil
}

// Handle processes one delivery and returns its outcome. A returned error
// means the sender should see a non-2xx status: validation (400), bad
// signature (401) or an unreachable gateway (500). Internal failures after
// the gateway answered are inboxed for retry and reported as success.
func (s *Service) Handle(ctx context.Context, d Delivery) (string, error) {
	n, err := ParseNotification(d.Body, d.Query)
	if err != nil {
		s.observe(metrics.WebhookOutcomeRejected)
		return metrics.WebhookOutcomeRejected, err
	}
	if !n.IsPayment() {
		s.observe(metrics.WebhookOutcomeIgnored)
		return metrics.WebhookOutcomeIgnored, nil
	}

	ctx = s.logg.WithExternalID(ctx, n.ExternalID)
	if s.secret != "" {
		if err := mercadopago.VerifySignature(s.secret, d.Signature, d.RequestID, n.ExternalID); err != nil {
			s.observe(metrics.WebhookOutcomeRejected)
			return metrics.WebhookOutcomeRejected, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid webhook signature")
		}
	}

	// A delivery that loses the guard stays inboxed as received. The one in
	// flight may have fetched an older status, so Retry picks this one up
	// once it is older than the guard TTL.
	event := s.record(ctx, n, d)
	if s.guard != nil {
		acquired, err := s.guard.Acquire(ctx, n.ExternalID)
		switch {
		case err != nil:
			s.logg.Warn(ctx, "webhook.guard_unavailable")
		case !acquired:
			s.observe(metrics.WebhookOutcomeDuplicate)
			return metrics.WebhookOutcomeDuplicate, nil
		default:
			defer s.release(ctx, n.ExternalID)
		}
	}

	outcome, err := s.process(ctx, event, n.ExternalID)
	s.observe(outcome)
	return outcome, err
}

func (s *Service) release(ctx context.Context, externalID string) {
	if err := s.guard.Release(context.WithoutCancel(ctx), externalID); err != nil {
		s.logg.Warn(ctx, "webhook.guard_release_failed")
	}
}

// Retry reprocesses inboxed notifications whose backoff has elapsed, plus
// received ones left unfinished for longer than the guard TTL, and returns
// how many completed.
func (s *Service) Retry(ctx context.Context) (int, error) {
	now := s.now()
	events, err := s.inbox.ListDue(ctx, now, now.Add(-s.cfg.GuardTTL), s.cfg.RetryBatchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due webhook events")
	}

	var (
		done int
		errs error
	)
	for i := range events {
		event := &events[i]
		eventCtx := s.logg.WithExternalID(ctx, event.ResourceID)
		if s.guard != nil {
			if acquired, err := s.guard.Acquire(eventCtx, event.ResourceID); err == nil && !acquired {
				continue
			}
		}
		outcome, err := s.process(eventCtx, event, event.ResourceID)
		if s.guard != nil {
			_ = s.guard.Release(eventCtx, event.ResourceID)
		}
		s.observe(outcome)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("webhook event %s: %w", event.ID, err))
			continue
		}
		if outcome != metrics.WebhookOutcomeFailed {
			done++
		}
	}
	return done, errs
}

func (s *Service) process(ctx context.Context, event *models.WebhookEvent, externalID string) (string, error) {
	status, err := s.gateway.GetPaymentStatus(ctx, externalID)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeValidation) {
			s.finish(ctx, event, enums.WebhookEventStatusIgnored)
			return metrics.WebhookOutcomeRejected, err
		}
		s.logg.Error(ctx, "webhook.gateway_fetch_failed", err)
		s.fail(ctx, event, err)
		return metrics.WebhookOutcomeUpstream, err
	}

	outcome, err := s.reconcile(ctx, status)
	if err != nil {
		s.logg.Error(ctx, "webhook.reconcile_failed", err)
		s.fail(ctx, event, err)
		return metrics.WebhookOutcomeFailed, nil
	}

	if outcome == metrics.WebhookOutcomeIgnored {
		s.finish(ctx, event, enums.WebhookEventStatusIgnored)
	} else {
		s.finish(ctx, event, enums.WebhookEventStatusProcessed)
	}
	return outcome, nil
}

// reconcile applies the gateway status inside one transaction. For approvals
// the ledger compare-and-swap decides whether this delivery owns the side
// effects; a repeat sees changed=false and stops.
func (s *Service) reconcile(ctx context.Context, status *mercadopago.PaymentStatus) (string, error) {
	outcome := metrics.WebhookOutcomeIgnored
	var activated, revoked *models.Subscription

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		ledger := s.ledger.WithTx(tx)
		payment, err := s.resolvePayment(ctx, ledger, status)
		if err != nil {
			return err
		}
		if payment == nil {
			outcome = metrics.WebhookOutcomeIgnored
			return nil
		}

		if status.Status != enums.PaymentStatusApproved {
			wasApproved := payment.Status == enums.PaymentStatusApproved
			changed, err := ledger.SyncStatus(ctx, payment, status.Status, status.PaymentMethod)
			if err != nil {
				return err
			}
			// Refunds and chargebacks take back the access the approval granted.
			if changed && wasApproved && payment.SubscriptionID != nil {
				if revoked, err = s.subs.RevokeTx(ctx, tx, *payment.SubscriptionID); err != nil {
					return err
				}
			}
			outcome = metrics.WebhookOutcomeProcessed
			return nil
		}

		_, changed, err := ledger.MarkApproved(ctx, payment, status.PaymentMethod)
		if err != nil {
			return err
		}
		if !changed {
			outcome = metrics.WebhookOutcomeDuplicate
			return nil
		}

		sub, err := s.subs.ActivateOrRenewTx(ctx, tx, subscriptions.ActivationInput{
			UserID:  payment.UserID,
			PlanID:  payment.PlanID,
			Billing: payment.Billing,
		})
		if err != nil {
			return err
		}
		if err := ledger.LinkSubscription(ctx, payment, sub.ID); err != nil {
			return err
		}
		activated = sub
		outcome = metrics.WebhookOutcomeProcessed
		return nil
	})
	if err != nil {
		return metrics.WebhookOutcomeFailed, err
	}

	if activated != nil {
		if s.metrics != nil {
			s.metrics.IncActivation(mercadopago.Provider, string(activated.Billing))
		}
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"user_id":         activated.UserID.String(),
			"subscription_id": activated.ID.String(),
			"billing":         string(activated.Billing),
		})
		s.logg.Info(logCtx, "webhook.subscription_activated")
	}
	if revoked != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"user_id":         revoked.UserID.String(),
			"subscription_id": revoked.ID.String(),
			"payment_status":  string(status.Status),
		})
		s.logg.Warn(logCtx, "webhook.subscription_revoked")
	}
	return outcome, nil
}

// resolvePayment finds the ledger row for the gateway payment: by external
// id, then by external reference (our row id), else creates it from the
// preference metadata. It returns nil when the payment is not ours.
func (s *Service) resolvePayment(ctx context.Context, ledger *payments.Ledger, status *mercadopago.PaymentStatus) (*models.Payment, error) {
	payment, err := ledger.FindByExternalID(ctx, status.ExternalID)
	if err != nil || payment != nil {
		return payment, err
	}

	if refID, err := uuid.Parse(strings.TrimSpace(status.ExternalReference)); err == nil {
		attempt, err := ledger.FindByID(ctx, refID)
		if err != nil {
			return nil, err
		}
		if attempt != nil {
			if attempt.ExternalPaymentID == nil {
				if err := ledger.AttachExternalID(ctx, attempt, status.ExternalID); err != nil {
					return nil, err
				}
				return attempt, nil
			}
			// Another payment on the same preference, e.g. a retry after a rejection.
			return ledger.RecordAttempt(ctx, payments.RecordAttemptInput{
				UserID:     attempt.UserID,
				PlanID:     attempt.PlanID,
				ExternalID: status.ExternalID,
				Amount:     status.Amount,
				Currency:   firstNonEmpty(status.Currency, attempt.Currency),
				Billing:    attempt.Billing,
			})
		}
	}

	userID, userErr := uuid.Parse(status.Metadata["user_id"])
	planID, planErr := uuid.Parse(status.Metadata["plan_id"])
	if userErr != nil || planErr != nil {
		s.logg.Warn(ctx, "webhook.payment_unmatched")
		return nil, nil
	}
	billing, err := enums.ParseBillingCycle(status.Metadata["billing"])
	if err != nil {
		billing = enums.BillingCycleMonthly
	}
	return ledger.RecordAttempt(ctx, payments.RecordAttemptInput{
		UserID:     userID,
		PlanID:     planID,
		ExternalID: status.ExternalID,
		Amount:     status.Amount,
		Currency:   status.Currency,
		Billing:    billing,
	})
}

func (s *Service) record(ctx context.Context, n *Notification, d Delivery) *models.WebhookEvent {
	event := &models.WebhookEvent{
		Provider:   mercadopago.Provider,
		Topic:      firstNonEmpty(n.Action, n.Topic),
		ResourceID: n.ExternalID,
		Payload:    payloadJSON(d),
		Status:     enums.WebhookEventStatusReceived,
		CreatedAt:  s.now(),
	}
	if d.RequestID != "" {
		requestID := d.RequestID
		event.RequestID = &requestID
	}
	if err := s.inbox.Record(ctx, event); err != nil {
		s.logg.Error(ctx, "webhook.inbox_record_failed", err)
		return nil
	}
	return event
}

func (s *Service) finish(ctx context.Context, event *models.WebhookEvent, status enums.WebhookEventStatus) {
	if event == nil {
		return
	}
	now := s.now()
	if err := s.inbox.MarkDone(ctx, event.ID, status, now); err != nil {
		s.logg.Error(ctx, "webhook.inbox_update_failed", err)
		return
	}
	event.Status = status
	event.ProcessedAt = &now
}

// fail schedules the next attempt, or abandons the event once attempts run
// out or the cause cannot clear on its own.
func (s *Service) fail(ctx context.Context, event *models.WebhookEvent, cause error) {
	if event == nil {
		return
	}
	attempts := event.Attempts + 1
	status := enums.WebhookEventStatusFailed
	var next *time.Time
	if attempts >= s.cfg.MaxAttempts || !pkgerrors.IsRetryable(cause) {
		status = enums.WebhookEventStatusAbandoned
		s.logg.Warn(s.logg.WithField(ctx, "attempts", attempts), "webhook.event_abandoned")
	} else {
		at := s.now().Add(retryDelay(s.cfg.RetryBaseDelay, s.cfg.RetryMaxDelay, attempts))
		next = &at
	}
	msg := cause.Error()
	if err := s.inbox.MarkFailed(ctx, event.ID, attempts, msg, next, status); err != nil {
		s.logg.Error(ctx, "webhook.inbox_update_failed", err)
		return
	}
	event.Attempts = attempts
	event.Status = status
	event.LastError = &msg
	event.NextAttemptAt = next
}

func (s *Service) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.IncNotification(mercadopago.Provider, outcome)
	}
}

func payloadJSON(d Delivery) string {
	if body := strings.TrimSpace(string(d.Body)); body != "" {
		return body
	}
	flat := make(map[string]string, len(d.Query))
	for key := range d.Query {
		flat[key] = d.Query.Get(key)
	}
	encoded, err := json.Marshal(flat)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}
