package plans

import (
	"context"
	"errors"

	"github.com/abex/clubes-abex/pkg/db/models"
	"github.com/abex/clubes-abex/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository handles plan catalog persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, plan *models.Plan) error
	Update(ctx context.Context, plan *models.Plan) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	List(ctx context.Context, query ListQuery) ([]models.Plan, error)
	CountLiveSubscriptions(ctx context.Context, planID uuid.UUID) (int64, error)
}

// ListQuery filters plan listings.
type ListQuery struct {
	ActiveOnly bool
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a plan repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, plan *models.Plan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *repository) Update(ctx context.Context, plan *models.Plan) error {
	return r.db.WithContext(ctx).Save(plan).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Plan{}, "id = ?", id).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.WithContext(ctx).First(&plan, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.Plan, error) {
	var plans []models.Plan
	q := r.db.WithContext(ctx).Model(&models.Plan{})
	if query.ActiveOnly {
		q = q.Where("active = ?", true)
	}
	if err := q.Order("price ASC").Order("name ASC").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

// CountLiveSubscriptions counts pending or active subscriptions on the plan.
func (r *repository) CountLiveSubscriptions(ctx context.Context, planID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("plan_id = ? AND status IN ?", planID, []enums.SubscriptionStatus{
			enums.SubscriptionStatusPending,
			enums.SubscriptionStatusActive,
		}).
		Count(&count).Error
	return count, err
}
