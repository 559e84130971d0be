package content

import (
	"context"
	"errors"
	"time"

	"github.com/abex/clubes-abex/pkg/db/models"
	"github.com/abex/clubes-abex/pkg/enums"
	"github.com/abex/clubes-abex/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository handles content persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.Content) error
	Update(ctx context.Context, item *models.Content) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Content, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Content, error)
	List(ctx context.Context, query ListQuery) ([]models.Content, *pagination.Cursor, error)
	RecordView(ctx context.Context, id uuid.UUID, at time.Time) error
}

// ListQuery filters and pages content listings.
type ListQuery struct {
	Type       *enums.ContentType
	Restricted *bool
	Limit      int
	Cursor     *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a content repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, item *models.Content) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) Update(ctx context.Context, item *models.Content) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Content{}, "id = ?", id).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Content, error) {
	var item models.Content
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Content, error) {
	if len(ids) == 0 {
		return []models.Content{}, nil
	}
	var items []models.Content
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// List returns a page ordered newest first and the cursor of the next page.
func (r *repository) List(ctx context.Context, query ListQuery) ([]models.Content, *pagination.Cursor, error) {
	q := r.db.WithContext(ctx).Model(&models.Content{})
	if query.Type != nil {
		q = q.Where("type = ?", *query.Type)
	}
	if query.Restricted != nil {
		q = q.Where("restricted = ?", *query.Restricted)
	}
	if query.Cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			query.Cursor.CreatedAt, query.Cursor.CreatedAt, query.Cursor.ID)
	}

	var items []models.Content
	if err := q.Order("created_at DESC").Order("id DESC").
		Limit(pagination.FetchSize(query.Limit)).
		Find(&items).Error; err != nil {
		return nil, nil, err
	}

	items, next := pagination.Trim(items, query.Limit, func(c models.Content) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	return items, next, nil
}

// RecordView bumps the counter in SQL so concurrent views are not lost.
func (r *repository) RecordView(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Content{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"view_count":     gorm.Expr("view_count + 1"),
			"last_viewed_at": at,
		}).Error
}
