package mpwebhook

import (
	"context"
	"errors"
	"time"

	"github.com/abex/clubes-abex/pkg/db/models"
	"github.com/abex/clubes-abex/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Inbox persists notifications so failed ones can be retried.
type Inbox interface {
	Record(ctx context.Context, event *models.WebhookEvent) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.WebhookEvent, error)
	ListDue(ctx context.Context, now, staleBefore time.Time, limit int) ([]models.WebhookEvent, error)
	MarkDone(ctx context.Context, id uuid.UUID, status enums.WebhookEventStatus, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastErr string, next *time.Time, status enums.WebhookEventStatus) error
	DeleteSettledBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type inbox struct {
	db *gorm.DB
}

// NewInbox returns the webhook_events repository.
func NewInbox(db *gorm.DB) Inbox {
	return &inbox{db: db}
}

func (i *inbox) Record(ctx context.Context, event *models.WebhookEvent) error {
	return i.db.WithContext(ctx).Create(event).Error
}

func (i *inbox) FindByID(ctx context.Context, id uuid.UUID) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	if err := i.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// ListDue returns failed events whose next attempt is due and received events
// created before staleBefore, oldest first. A stale received event was never
// finished: its handler crashed or lost the in-flight guard.
func (i *inbox) ListDue(ctx context.Context, now, staleBefore time.Time, limit int) ([]models.WebhookEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []models.WebhookEvent
	if err := i.db.WithContext(ctx).
		Where("(status = ? AND next_attempt_at <= ?) OR (status = ? AND created_at < ?)",
			enums.WebhookEventStatusFailed, now,
			enums.WebhookEventStatusReceived, staleBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (i *inbox) MarkDone(ctx context.Context, id uuid.UUID, status enums.WebhookEventStatus, at time.Time) error {
	return i.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          status,
			"processed_at":    at,
			"next_attempt_at": nil,
			"last_error":      nil,
			"updated_at":      at,
		}).Error
}

func (i *inbox) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastErr string, next *time.Time, status enums.WebhookEventStatus) error {
	return i.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          status,
			"attempts":        attempts,
			"last_error":      lastErr,
			"next_attempt_at": next,
			"updated_at":      time.Now().UTC(),
		}).Error
}

// DeleteSettledBefore prunes processed and ignored events older than cutoff.
// Failed and abandoned events are kept for inspection.
func (i *inbox) DeleteSettledBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := i.db.WithContext(ctx).
		Where("status IN ? AND created_at < ?", []enums.WebhookEventStatus{
			enums.WebhookEventStatusProcessed,
			enums.WebhookEventStatusIgnored,
		}, cutoff).
		Delete(&models.WebhookEvent{})
	return res.RowsAffected, res.Error
}
