package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/abex/clubes-abex/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Email  string
	Role   enums.UserRole
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Email  string         `json:"email,omitempty"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

var (
	errSubjectMismatch = errors.New("token subject does not match user_id")
	errMissingJTI      = errors.New("token has no jti")
)

// Validate runs after the registered-claims checks. The jti is required
// because it keys the server-side session.
func (c AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil || c.Subject != c.UserID.String() {
		return errSubjectMismatch
	}
	if !c.Role.IsValid() {
		return errors.New("token role is not recognised")
	}
	if c.ID == "" {
		return errMissingJTI
	}
	return nil
}
