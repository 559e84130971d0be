package auth

import (
	"context"
	"testing"
	"time"

	"github.com/abex/clubes-abex/internal/users"
	pkgAuth "github.com/abex/clubes-abex/pkg/auth"
	"github.com/abex/clubes-abex/pkg/auth/session"
	"github.com/abex/clubes-abex/pkg/config"
	"github.com/abex/clubes-abex/pkg/db"
	"github.com/abex/clubes-abex/pkg/db/dbtest"
	"github.com/abex/clubes-abex/pkg/enums"
	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
	"github.com/google/uuid"
)

type stubSessionManager struct {
	sessions map[string]uuid.UUID
	tokens   map[string]string
	revoked  []string
	counter  int
}

func newStubSessionManager() *stubSessionManager {
	return &stubSessionManager{sessions: map[string]uuid.UUID{}, tokens: map[string]string{}}
}

func (s *stubSessionManager) Open(ctx context.Context, userID uuid.UUID) (session.Issued, error) {
	s.counter++
	accessID := uuid.NewString()
	token := "refresh-" + accessID
	s.sessions[accessID] = userID
	s.tokens[accessID] = token
	return session.Issued{UserID: userID, AccessID: accessID, RefreshToken: token}, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (session.Issued, error) {
	userID, ok := s.sessions[oldAccessID]
	if !ok || s.tokens[oldAccessID] != provided {
		return session.Issued{}, session.ErrInvalidRefreshToken
	}
	delete(s.sessions, oldAccessID)
	delete(s.tokens, oldAccessID)
	return s.Open(ctx, userID)
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	delete(s.sessions, accessID)
	delete(s.tokens, accessID)
	return nil
}

var testJWT = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "clubes",
	ExpirationMinutes: 30,
}

func buildTestService(t *testing.T, admins ...string) (Service, users.Repository, *stubSessionManager) {
	t.Helper()
	conn := dbtest.Open(t)
	repo := users.NewRepository(conn)
	sessions := newStubSessionManager()
	svc, err := NewService(ServiceParams{
		UserRepo:          repo,
		SessionManager:    sessions,
		TransactionRunner: db.NewFromConn(conn),
		JWTConfig:         testJWT,
		AdminConfig:       config.AdminConfig{Emails: admins},
		Clock:             func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, repo, sessions
}

func TestCompleteOAuthCreatesMemberOnFirstLogin(t *testing.T) {
	svc, repo, _ := buildTestService(t)
	ctx := context.Background()

	resp, err := svc.CompleteOAuth(ctx, OAuthProfile{
		Provider:       "google",
		ProviderUserID: "g-1",
		Email:          "Ana@Example.com",
		Name:           "Ana",
	})
	if err != nil {
		t.Fatalf("complete oauth: %v", err)
	}
	if resp.RefreshToken == "" {
		t.Fatalf("expected refresh token")
	}

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.UserRoleMember {
		t.Fatalf("expected member role, got %s", claims.Role)
	}
	if claims.ID == "" {
		t.Fatalf("expected jti bound to session")
	}

	user, err := repo.FindByEmail(ctx, "ana@example.com")
	if err != nil || user == nil {
		t.Fatalf("expected persisted user, err=%v", err)
	}
	if user.LastLoginAt == nil {
		t.Fatalf("expected last login recorded")
	}
	if user.SubscriptionStatus != enums.SubscriptionStatusInactive {
		t.Fatalf("expected inactive flag, got %s", user.SubscriptionStatus)
	}
	account, err := repo.FindProviderAccount(ctx, "google", "g-1")
	if err != nil || account == nil || account.UserID != user.ID {
		t.Fatalf("expected linked provider account, got %+v err=%v", account, err)
	}
}

func TestCompleteOAuthReusesUserByEmail(t *testing.T) {
	svc, repo, _ := buildTestService(t)
	ctx := context.Background()

	first, err := svc.CompleteOAuth(ctx, OAuthProfile{Provider: "google", ProviderUserID: "g-1", Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	second, err := svc.CompleteOAuth(ctx, OAuthProfile{Provider: "github", ProviderUserID: "gh-9", Email: "ANA@example.com"})
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if first.User.ID != second.User.ID {
		t.Fatalf("expected same user across providers")
	}
	account, err := repo.FindProviderAccount(ctx, "github", "gh-9")
	if err != nil || account == nil || account.UserID != first.User.ID {
		t.Fatalf("expected github identity linked, got %+v err=%v", account, err)
	}
}

func TestCompleteOAuthGrantsAdminFromAllowlist(t *testing.T) {
	svc, _, _ := buildTestService(t, "boss@example.com")

	resp, err := svc.CompleteOAuth(context.Background(), OAuthProfile{
		Provider:       "google",
		ProviderUserID: "g-boss",
		Email:          "Boss@Example.com",
	})
	if err != nil {
		t.Fatalf("complete oauth: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.UserRoleAdmin {
		t.Fatalf("expected admin role, got %s", claims.Role)
	}
	if resp.User.Name != "boss" {
		t.Fatalf("expected name derived from email, got %q", resp.User.Name)
	}
}

func TestCompleteOAuthRequiresEmail(t *testing.T) {
	svc, _, _ := buildTestService(t)

	_, err := svc.CompleteOAuth(context.Background(), OAuthProfile{Provider: "google", ProviderUserID: "g-1"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	svc, _, sessions := buildTestService(t)
	ctx := context.Background()

	login, err := svc.CompleteOAuth(ctx, OAuthProfile{Provider: "google", ProviderUserID: "g-1", Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	pair, err := svc.Refresh(ctx, login.AccessToken, login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if pair.RefreshToken == login.RefreshToken {
		t.Fatalf("expected rotated refresh token")
	}
	if len(sessions.sessions) != 1 {
		t.Fatalf("expected old session dropped, have %d", len(sessions.sessions))
	}

	if _, err := svc.Refresh(ctx, login.AccessToken, login.RefreshToken); err == nil {
		t.Fatalf("expected replayed refresh token to fail")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _, sessions := buildTestService(t)
	ctx := context.Background()

	login, err := svc.CompleteOAuth(ctx, OAuthProfile{Provider: "google", ProviderUserID: "g-1", Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(ctx, login.AccessToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.revoked) != 1 {
		t.Fatalf("expected one revoked session, got %d", len(sessions.revoked))
	}
	if _, err := svc.Refresh(ctx, login.AccessToken, login.RefreshToken); err == nil {
		t.Fatalf("expected refresh after logout to fail")
	}
}

func TestLogoutRejectsGarbageToken(t *testing.T) {
	svc, _, _ := buildTestService(t)

	err := svc.Logout(context.Background(), "not-a-jwt")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
