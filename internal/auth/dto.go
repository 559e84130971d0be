package auth

import (
	"time"

	"github.com/abex/clubes-abex/internal/users"
)

// OAuthProfile is the provider identity returned by a completed OAuth callback.
type OAuthProfile struct {
	Provider       string
	ProviderUserID string
	Email          string
	Name           string
	AvatarURL      string
	ExpiresAt      *time.Time
}

// LoginResponse is returned after a successful OAuth login.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}

// TokenPair is returned when a session is rotated.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
