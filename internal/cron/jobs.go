package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/abex/clubes-abex/pkg/logger"
)

const (
	defaultExpiryBatch   = 200
	defaultRetentionDays = 30
)

type subscriptionExpirer interface {
	ExpireDue(ctx context.Context, limit int) (int, error)
}

type webhookRetrier interface {
	Retry(ctx context.Context) (int, error)
}

type settledEventPruner interface {
	DeleteSettledBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SubscriptionExpiryJobParams configures the expiry sweep.
type SubscriptionExpiryJobParams struct {
	Logger        *logger.Logger
	Subscriptions subscriptionExpirer
	BatchSize     int
}

// NewSubscriptionExpiryJob moves active subscriptions past their end date to expired.
func NewSubscriptionExpiryJob(params SubscriptionExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscription service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatch
	}
	return &subscriptionExpiryJob{logg: params.Logger, subs: params.Subscriptions, batch: batch}, nil
}

type subscriptionExpiryJob struct {
	logg  *logger.Logger
	subs  subscriptionExpirer
	batch int
}

func (j *subscriptionExpiryJob) Name() string { return "subscription-expiry" }

func (j *subscriptionExpiryJob) Run(ctx context.Context) (int64, error) {
	expired, err := j.subs.ExpireDue(ctx, j.batch)
	if err != nil {
		return int64(expired), fmt.Errorf("expire subscriptions: %w", err)
	}
	if expired == j.batch {
		// A full batch means more rows are due; the next tick continues.
		j.logg.Warn(j.logg.WithField(ctx, "batch_size", j.batch), "cron.expiry_batch_full")
	}
	return int64(expired), nil
}

// WebhookRetryJobParams configures redelivery of failed notifications.
type WebhookRetryJobParams struct {
	Logger   *logger.Logger
	Webhooks webhookRetrier
}

// NewWebhookRetryJob reprocesses inbox events whose backoff has elapsed.
func NewWebhookRetryJob(params WebhookRetryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Webhooks == nil {
		return nil, fmt.Errorf("webhook service required")
	}
	return &webhookRetryJob{logg: params.Logger, webhooks: params.Webhooks}, nil
}

type webhookRetryJob struct {
	logg     *logger.Logger
	webhooks webhookRetrier
}

func (j *webhookRetryJob) Name() string { return "webhook-retry" }

func (j *webhookRetryJob) Run(ctx context.Context) (int64, error) {
	retried, err := j.webhooks.Retry(ctx)
	if err != nil {
		return int64(retried), fmt.Errorf("retry webhooks: %w", err)
	}
	if retried > 0 {
		j.logg.Info(j.logg.WithField(ctx, "retried", retried), "cron.webhooks_redelivered")
	}
	return int64(retried), nil
}

// WebhookRetentionJobParams configures pruning of settled inbox rows.
type WebhookRetentionJobParams struct {
	Logger        *logger.Logger
	Inbox         settledEventPruner
	RetentionDays int
}

// NewWebhookRetentionJob deletes processed and ignored events older than the retention window.
func NewWebhookRetentionJob(params WebhookRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Inbox == nil {
		return nil, fmt.Errorf("webhook inbox required")
	}
	retention := params.RetentionDays
	if retention <= 0 {
		retention = defaultRetentionDays
	}
	return &webhookRetentionJob{
		logg:      params.Logger,
		inbox:     params.Inbox,
		retention: retention,
		now:       time.Now,
	}, nil
}

type webhookRetentionJob struct {
	logg      *logger.Logger
	inbox     settledEventPruner
	retention int
	now       func() time.Time
}

func (j *webhookRetentionJob) Name() string { return "webhook-retention" }

func (j *webhookRetentionJob) Run(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().AddDate(0, 0, -j.retention)
	deleted, err := j.inbox.DeleteSettledBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune webhook events before %s: %w", cutoff.Format(time.DateOnly), err)
	}
	j.logg.Debug(j.logg.WithField(ctx, "cutoff", cutoff), "cron.webhook_events_pruned")
	return deleted, nil
}
