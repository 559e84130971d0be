package payments

import (
	"context"
	"errors"
	"time"

	"github.com/abex/clubes-abex/pkg/db/models"
	"github.com/abex/clubes-abex/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository handles payment ledger persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	CreateIfAbsent(ctx context.Context, payment *models.Payment) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.Payment, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error)
	SetPreference(ctx context.Context, id uuid.UUID, preferenceID string) error
	AttachExternalID(ctx context.Context, id uuid.UUID, externalID string) (bool, error)
	MarkApproved(ctx context.Context, id uuid.UUID, method *string, paidAt time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.PaymentStatus, to enums.PaymentStatus, method *string) (bool, error)
	LinkSubscription(ctx context.Context, id, subscriptionID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// CreateIfAbsent inserts the payment unless its external id is already
// recorded. It reports whether a row was written.
func (r *repository) CreateIfAbsent(ctx context.Context, payment *models.Payment) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_payment_id"}},
			DoNothing: true,
		}).
		Create(payment)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *repository) FindByExternalID(ctx context.Context, externalID string) (*models.Payment, error) {
	return r.first(r.db.WithContext(ctx).Where("external_payment_id = ?", externalID))
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	var rows []models.Payment
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) SetPreference(ctx context.Context, id uuid.UUID, preferenceID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(map[string]any{"preference_id": preferenceID, "updated_at": time.Now().UTC()}).Error
}

// AttachExternalID binds the gateway id to a row that has none yet.
func (r *repository) AttachExternalID(ctx context.Context, id uuid.UUID, externalID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND external_payment_id IS NULL", id).
		Updates(map[string]any{"external_payment_id": externalID, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkApproved flips the row to approved unless it already is. The boolean is
// false when a concurrent or earlier delivery won.
func (r *repository) MarkApproved(ctx context.Context, id uuid.UUID, method *string, paidAt time.Time) (bool, error) {
	updates := map[string]any{
		"status":     enums.PaymentStatusApproved,
		"paid_at":    paidAt,
		"updated_at": time.Now().UTC(),
	}
	if method != nil {
		updates["payment_method"] = *method
	}
	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status <> ?", id, enums.PaymentStatusApproved).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.PaymentStatus, to enums.PaymentStatus, method *string) (bool, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if method != nil {
		updates["payment_method"] = *method
	}
	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) LinkSubscription(ctx context.Context, id, subscriptionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(map[string]any{"subscription_id": subscriptionID, "updated_at": time.Now().UTC()}).Error
}

func (r *repository) first(q *gorm.DB) (*models.Payment, error) {
	var payment models.Payment
	if err := q.First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}
