package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/abex/clubes-abex/pkg/config"
	redisclient "github.com/abex/clubes-abex/pkg/redis"
)

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// Store is the Redis surface sessions are kept in.
type Store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	DelIfValue(ctx context.Context, key, value string) (bool, error)
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Manager keeps one Redis entry per access token jti. The entry holds the
// owning user and a SHA-256 of the refresh token, never the token itself.
// Refresh tokens are single use: rotation claims the old entry atomically.
type Manager struct {
	store Store
	ttl   time.Duration
}

// Issued is the result of opening or rotating a session.
type Issued struct {
	UserID       uuid.UUID
	AccessID     string
	RefreshToken string
}

// NewManager requires the refresh lifetime to outlast the access token.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return newManager(client, cfg)
}

func newManager(store Store, cfg config.JWTConfig) (*Manager, error) {
	ttl := cfg.RefreshTokenTTL()
	access := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= access {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, access)
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// Open starts a session for the user.
func (m *Manager) Open(ctx context.Context, userID uuid.UUID) (Issued, error) {
	if userID == uuid.Nil {
		return Issued{}, errors.New("user id is required")
	}
	return m.issue(ctx, userID)
}

// Rotate trades the refresh token bound to oldAccessID for a new session of
// the same user. Of two concurrent rotations with the same token only one wins.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, refreshToken string) (Issued, error) {
	if strings.TrimSpace(oldAccessID) == "" || refreshToken == "" {
		return Issued{}, ErrInvalidRefreshToken
	}
	key := m.store.AccessSessionKey(oldAccessID)
	stored, err := m.store.Get(ctx, key)
	if errors.Is(err, redislib.Nil) {
		return Issued{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return Issued{}, err
	}

	rec, ok := parseRecord(stored)
	if !ok || !rec.matches(refreshToken) {
		return Issued{}, ErrInvalidRefreshToken
	}
	claimed, err := m.store.DelIfValue(ctx, key, stored)
	if err != nil {
		return Issued{}, err
	}
	if !claimed {
		return Issued{}, ErrInvalidRefreshToken
	}
	return m.issue(ctx, rec.userID)
}

// Revoke ends the session behind accessID. Unknown ids are not an error.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errors.New("access id is required")
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

// HasSession reports whether accessID still has a live session.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, errors.New("access id is required")
	}
	_, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redislib.Nil):
		return false, nil
	}
	return false, err
}

func (m *Manager) issue(ctx context.Context, userID uuid.UUID) (Issued, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return Issued{}, fmt.Errorf("generate refresh token: %w", err)
	}
	issued := Issued{
		UserID:       userID,
		AccessID:     uuid.NewString(),
		RefreshToken: base64.RawURLEncoding.EncodeToString(secret),
	}
	rec := record{userID: userID, digest: digest(issued.RefreshToken)}
	if err := m.store.Set(ctx, m.store.AccessSessionKey(issued.AccessID), rec.String(), m.ttl); err != nil {
		return Issued{}, err
	}
	return issued, nil
}

type record struct {
	userID uuid.UUID
	digest string
}

func (r record) String() string {
	return r.userID.String() + "|" + r.digest
}

func (r record) matches(refreshToken string) bool {
	return subtle.ConstantTimeCompare([]byte(r.digest), []byte(digest(refreshToken))) == 1
}

func parseRecord(raw string) (record, bool) {
	id, sum, ok := strings.Cut(raw, "|")
	if !ok || sum == "" {
		return record{}, false
	}
	userID, err := uuid.Parse(id)
	if err != nil {
		return record{}, false
	}
	return record{userID: userID, digest: sum}, true
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
