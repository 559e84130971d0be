package mpwebhook

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type guardStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	WebhookGuardKey(provider, externalID string) string
}

// InflightGuard collapses concurrent deliveries for one payment. It is a
// short-lived lock, not the idempotency record; the ledger's
// compare-and-swap is what makes reprocessing safe.
type InflightGuard struct {
	store    guardStore
	ttl      time.Duration
	provider string
}

func NewInflightGuard(store guardStore, ttl time.Duration, provider string) (*InflightGuard, error) {
	if store == nil {
		return nil, errors.New("guard store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("guard ttl must be positive")
	}
	if provider == "" {
		return nil, errors.New("provider is required")
	}
	return &InflightGuard{store: store, ttl: ttl, provider: provider}, nil
}

// Acquire returns false when another delivery for the id is in flight.
func (g *InflightGuard) Acquire(ctx context.Context, externalID string) (bool, error) {
	if externalID == "" {
		return false, errors.New("external id is required")
	}
	set, err := g.store.SetNX(ctx, g.store.WebhookGuardKey(g.provider, externalID), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set webhook guard: %w", err)
	}
	return set, nil
}

func (g *InflightGuard) Release(ctx context.Context, externalID string) error {
	if externalID == "" {
		return errors.New("external id is required")
	}
	return g.store.Del(ctx, g.store.WebhookGuardKey(g.provider, externalID))
}
