package reports

import (
	"context"
	"time"

	"github.com/abex/clubes-abex/pkg/db/models"
	"github.com/abex/clubes-abex/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository runs the read-only aggregate queries behind admin reports.
type Repository interface {
	CountUsers(ctx context.Context, since *time.Time) (int64, error)
	ActiveByPlan(ctx context.Context) ([]LabelCount, error)
	ActiveByBilling(ctx context.Context) ([]LabelCount, error)
	PaymentsByStatus(ctx context.Context, start, end time.Time) ([]LabelCount, error)
	ApprovedPayments(ctx context.Context, start, end time.Time) ([]PaidAmount, error)
	TopContent(ctx context.Context, limit int) ([]ContentViews, error)
}

// PaidAmount is one approved ledger row reduced to what revenue needs.
type PaidAmount struct {
	Amount   decimal.Decimal
	Currency string
	PaidAt   time.Time
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CountUsers(ctx context.Context, since *time.Time) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})
	if since != nil {
		query = query.Where("created_at >= ?", *since)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (r *repository) ActiveByPlan(ctx context.Context) ([]LabelCount, error) {
	var rows []LabelCount
	err := r.db.WithContext(ctx).
		Table("subscriptions").
		Select("plans.name AS label, COUNT(*) AS count").
		Joins("JOIN plans ON plans.id = subscriptions.plan_id").
		Where("subscriptions.status = ?", enums.SubscriptionStatusActive).
		Group("plans.name").
		Order("count DESC, label ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) ActiveByBilling(ctx context.Context) ([]LabelCount, error) {
	var rows []LabelCount
	err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Select("billing AS label, COUNT(*) AS count").
		Where("status = ?", enums.SubscriptionStatusActive).
		Group("billing").
		Order("label ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) PaymentsByStatus(ctx context.Context, start, end time.Time) ([]LabelCount, error) {
	var rows []LabelCount
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select("status AS label, COUNT(*) AS count").
		Where("created_at BETWEEN ? AND ?", start, end).
		Group("status").
		Order("label ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) ApprovedPayments(ctx context.Context, start, end time.Time) ([]PaidAmount, error) {
	var rows []models.Payment
	err := r.db.WithContext(ctx).
		Select("amount", "currency", "paid_at").
		Where("status = ? AND paid_at BETWEEN ? AND ?", enums.PaymentStatusApproved, start, end).
		Order("paid_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]PaidAmount, 0, len(rows))
	for _, row := range rows {
		if row.PaidAt == nil {
			continue
		}
		out = append(out, PaidAmount{Amount: row.Amount, Currency: row.Currency, PaidAt: row.PaidAt.UTC()})
	}
	return out, nil
}

func (r *repository) TopContent(ctx context.Context, limit int) ([]ContentViews, error) {
	var rows []struct {
		ID        uuid.UUID
		Title     string
		ViewCount int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Content{}).
		Select("id", "title", "view_count").
		Where("view_count > 0").
		Order("view_count DESC, title ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]ContentViews, 0, len(rows))
	for _, row := range rows {
		out = append(out, ContentViews{ID: row.ID, Title: row.Title, Views: row.ViewCount})
	}
	return out, nil
}
