package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/abex/clubes-abex/pkg/db/models"
	"github.com/abex/clubes-abex/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository handles subscription persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sub *models.Subscription) error
	Save(ctx context.Context, sub *models.Subscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	FindActive(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	FindEntitled(ctx context.Context, userID uuid.UUID, now time.Time, cancelGrace bool) (*models.Subscription, error)
	FindPending(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	FindPendingForPlan(ctx context.Context, userID, planID uuid.UUID) (*models.Subscription, error)
	FindLatest(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	FindLatestTerminal(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	CountActive(ctx context.Context, userID uuid.UUID) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Subscription, error)
	Transition(ctx context.Context, id uuid.UUID, from, to enums.SubscriptionStatus, extra map[string]any) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a subscription repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *repository) Save(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *repository) FindActive(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	return r.first(r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, enums.SubscriptionStatusActive).
		Order("start_date DESC"))
}

// FindEntitled returns the subscription whose window covers now. With
// cancelGrace, a cancelled subscription keeps access until its end date.
func (r *repository) FindEntitled(ctx context.Context, userID uuid.UUID, now time.Time, cancelGrace bool) (*models.Subscription, error) {
	statuses := []enums.SubscriptionStatus{enums.SubscriptionStatusActive}
	if cancelGrace {
		statuses = append(statuses, enums.SubscriptionStatusCancelled)
	}
	return r.first(r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, statuses).
		Where("start_date <= ? AND end_date >= ?", now, now).
		Order("end_date DESC"))
}

func (r *repository) FindPending(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	return r.first(r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, enums.SubscriptionStatusPending).
		Order("created_at DESC"))
}

func (r *repository) FindPendingForPlan(ctx context.Context, userID, planID uuid.UUID) (*models.Subscription, error) {
	return r.first(r.db.WithContext(ctx).
		Where("user_id = ? AND plan_id = ? AND status = ?", userID, planID, enums.SubscriptionStatusPending).
		Order("created_at DESC"))
}

func (r *repository) FindLatest(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	return r.first(r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC"))
}

// FindLatestTerminal returns the most recent cancelled, expired or inactive subscription.
func (r *repository) FindLatestTerminal(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	return r.first(r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, []enums.SubscriptionStatus{
			enums.SubscriptionStatusCancelled,
			enums.SubscriptionStatusExpired,
			enums.SubscriptionStatusInactive,
		}).
		Order("end_date DESC").
		Order("created_at DESC"))
}

func (r *repository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *repository) CountActive(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND status = ?", userID, enums.SubscriptionStatusActive).
		Count(&count).Error
	return count, err
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	var subs []models.Subscription
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// ListExpired returns active subscriptions whose window ended before now.
func (r *repository) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Subscription, error) {
	if limit <= 0 {
		limit = 200
	}
	var subs []models.Subscription
	if err := r.db.WithContext(ctx).
		Where("status = ? AND end_date < ?", enums.SubscriptionStatusActive, now).
		Order("end_date ASC").
		Limit(limit).
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// Transition moves a row from one status to another only if it still holds
// the expected status. It reports false when another writer got there first.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, from, to enums.SubscriptionStatus, extra map[string]any) (bool, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	for key, value := range extra {
		updates[key] = value
	}
	result := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) first(q *gorm.DB) (*models.Subscription, error) {
	var sub models.Subscription
	if err := q.First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}
