package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/abex/clubes-abex/pkg/db/models"
	dbtypes "github.com/abex/clubes-abex/pkg/db/types"
	"github.com/abex/clubes-abex/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes user and linked provider account persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdateSubscriptionStatus(ctx context.Context, id uuid.UUID, status enums.SubscriptionStatus) error
	UpdateFavorites(ctx context.Context, id uuid.UUID, favorites dbtypes.UUIDArray) error
	RemoveFavoriteFromAll(ctx context.Context, contentID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindProviderAccount(ctx context.Context, provider, providerUserID string) (*models.ProviderAccount, error)
	SaveProviderAccount(ctx context.Context, account *models.ProviderAccount) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, user *models.User) error {
	user.Email = NormalizeEmail(user.Email)
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// UpdateSubscriptionStatus writes the cached entitlement flag. Callers run it
// in the same transaction as the subscription change it mirrors.
func (r *repository) UpdateSubscriptionStatus(ctx context.Context, id uuid.UUID, status enums.SubscriptionStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"subscription_status": status,
			"updated_at":          time.Now().UTC(),
		}).Error
}

func (r *repository) UpdateFavorites(ctx context.Context, id uuid.UUID, favorites dbtypes.UUIDArray) error {
	if favorites == nil {
		favorites = dbtypes.UUIDArray{}
	}
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("favorite_content_ids", favorites).Error
}

// RemoveFavoriteFromAll drops a deleted content id from every user's favorites.
func (r *repository) RemoveFavoriteFromAll(ctx context.Context, contentID uuid.UUID) error {
	var holders []models.User
	if err := r.db.WithContext(ctx).
		Select("id", "favorite_content_ids").
		Find(&holders).Error; err != nil {
		return err
	}
	for _, holder := range holders {
		if !holder.FavoriteContentIDs.Contains(contentID) {
			continue
		}
		if err := r.UpdateFavorites(ctx, holder.ID, holder.FavoriteContentIDs.Without(contentID)); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the user and its provider accounts. Subscriptions and
// payments stay behind as history.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", id).Delete(&models.ProviderAccount{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id).Error
}

func (r *repository) FindProviderAccount(ctx context.Context, provider, providerUserID string) (*models.ProviderAccount, error) {
	var account models.ProviderAccount
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_user_id = ?", provider, providerUserID).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) SaveProviderAccount(ctx context.Context, account *models.ProviderAccount) error {
	return r.db.WithContext(ctx).Save(account).Error
}

// NormalizeEmail lowercases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
