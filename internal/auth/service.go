package auth

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/abex/clubes-abex/internal/users"
	pkgAuth "github.com/abex/clubes-abex/pkg/auth"
	"github.com/abex/clubes-abex/pkg/auth/session"
	"github.com/abex/clubes-abex/pkg/config"
	"github.com/abex/clubes-abex/pkg/db/models"
	"github.com/abex/clubes-abex/pkg/enums"
	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
	"github.com/abex/clubes-abex/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sessionManager interface {
	Open(ctx context.Context, userID uuid.UUID) (session.Issued, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (session.Issued, error)
	Revoke(ctx context.Context, accessID string) error
}

// Service authenticates OAuth identities and manages token sessions.
type Service interface {
	CompleteOAuth(ctx context.Context, profile OAuthProfile) (*LoginResponse, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
}

// ServiceParams groups dependencies for the auth service.
type ServiceParams struct {
	UserRepo          users.Repository
	SessionManager    sessionManager
	TransactionRunner txRunner
	JWTConfig         config.JWTConfig
	AdminConfig       config.AdminConfig
	Logger            *logger.Logger
	Clock             func() time.Time
}

type service struct {
	users    users.Repository
	sessions sessionManager
	tx       txRunner
	jwtCfg   config.JWTConfig
	admins   config.AdminConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the auth service.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.JWTConfig.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		users:    params.UserRepo,
		sessions: params.SessionManager,
		tx:       params.TransactionRunner,
		jwtCfg:   params.JWTConfig,
		admins:   params.AdminConfig,
		logg:     params.Logger,
		now:      clock,
	}, nil
}

// CompleteOAuth links the provider identity to a local user, creating one on
// first login, and opens a token session for it.
func (s *service) CompleteOAuth(ctx context.Context, profile OAuthProfile) (*LoginResponse, error) {
	provider := strings.ToLower(strings.TrimSpace(profile.Provider))
	providerUserID := strings.TrimSpace(profile.ProviderUserID)
	email := users.NormalizeEmail(profile.Email)
	if provider == "" || providerUserID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "oauth identity incomplete")
	}
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "oauth provider returned no email")
	}

	now := s.now().UTC()
	var user *models.User
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)
		var err error
		user, err = s.resolveUser(ctx, repo, provider, providerUserID, email)
		if err != nil {
			return err
		}

		role := enums.UserRoleMember
		if s.admins.IsAdminEmail(email) {
			role = enums.UserRoleAdmin
		}

		if user == nil {
			user = &models.User{
				Name:  displayName(profile.Name, email),
				Email: email,
				Image: optionalString(profile.AvatarURL),
				Role:  role,
			}
			if err := repo.Create(ctx, user); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
			}
		} else if user.Role != role || (profile.AvatarURL != "" && user.Image == nil) {
			user.Role = role
			if user.Image == nil {
				user.Image = optionalString(profile.AvatarURL)
			}
			if err := repo.Update(ctx, user); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
			}
		}

		if err := s.linkAccount(ctx, repo, user.ID, provider, providerUserID, profile.ExpiresAt); err != nil {
			return err
		}
		if err := repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record login")
		}
		user.LastLoginAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	issued, err := s.sessions.Open(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open session")
	}
	accessToken, err := s.mint(user, issued.AccessID)
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"user_id":  user.ID.String(),
			"provider": provider,
			"role":     string(user.Role),
		})
		s.logg.Info(logCtx, "auth.login")
	}

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: issued.RefreshToken,
		User:         users.FromModel(user),
	}, nil
}

// Refresh rotates the refresh token bound to the presented access token and
// mints a new access token carrying the user's current role.
func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	claims, err := s.sessionClaims(accessToken)
	if err != nil {
		return nil, err
	}

	issued, err := s.sessions.Rotate(ctx, claims.ID, refreshToken)
	if err != nil {
		if stdErrors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}
	if issued.UserID != claims.UserID {
		_ = s.sessions.Revoke(ctx, issued.AccessID)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session does not match token")
	}

	user, err := s.users.FindByID(ctx, issued.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user == nil {
		_ = s.sessions.Revoke(ctx, issued.AccessID)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account no longer exists")
	}

	signed, err := s.mint(user, issued.AccessID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: signed, RefreshToken: issued.RefreshToken}, nil
}

// Logout revokes the refresh session tied to the access token, expired or not.
func (s *service) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.sessionClaims(accessToken)
	if err != nil {
		return err
	}
	if err := s.sessions.Revoke(ctx, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) sessionClaims(accessToken string) (*pkgAuth.AccessTokenClaims, error) {
	token := strings.TrimSpace(accessToken)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	return claims, nil
}

func (s *service) resolveUser(ctx context.Context, repo users.Repository, provider, providerUserID, email string) (*models.User, error) {
	account, err := repo.FindProviderAccount(ctx, provider, providerUserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup provider account")
	}
	if account != nil {
		user, err := repo.FindByID(ctx, account.UserID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}
		if user != nil {
			return user, nil
		}
	}
	user, err := repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user by email")
	}
	return user, nil
}

func (s *service) linkAccount(ctx context.Context, repo users.Repository, userID uuid.UUID, provider, providerUserID string, expiresAt *time.Time) error {
	account, err := repo.FindProviderAccount(ctx, provider, providerUserID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup provider account")
	}
	if account == nil {
		account = &models.ProviderAccount{Provider: provider, ProviderUserID: providerUserID}
	}
	account.UserID = userID
	if expiresAt != nil {
		at := expiresAt.UTC()
		account.TokenExpiresAt = &at
	}
	if err := repo.SaveProviderAccount(ctx, account); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save provider account")
	}
	return nil
}

func (s *service) mint(user *models.User, accessID string) (string, error) {
	signed, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now().UTC(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return signed, nil
}

func displayName(name, email string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
