package users

import (
	"time"

	"github.com/abex/clubes-abex/pkg/db/models"
	"github.com/google/uuid"
)

// UserDTO is the member-facing profile shape.
type UserDTO struct {
	ID                 uuid.UUID   `json:"id"`
	Name               string      `json:"name"`
	Email              string      `json:"email"`
	Image              *string     `json:"image,omitempty"`
	Role               string      `json:"role"`
	SubscriptionStatus string      `json:"subscriptionStatus"`
	FavoriteContentIDs []uuid.UUID `json:"favoriteContentIds"`
	LastLoginAt        *time.Time  `json:"lastLoginAt,omitempty"`
	CreatedAt          time.Time   `json:"createdAt"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	favorites := append([]uuid.UUID{}, []uuid.UUID(u.FavoriteContentIDs)...)
	return &UserDTO{
		ID:                 u.ID,
		Name:               u.Name,
		Email:              u.Email,
		Image:              u.Image,
		Role:               string(u.Role),
		SubscriptionStatus: string(u.SubscriptionStatus),
		FavoriteContentIDs: favorites,
		LastLoginAt:        u.LastLoginAt,
		CreatedAt:          u.CreatedAt,
	}
}
