package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func limited(policy RateLimitPolicy, store rateLimiterStore) http.Handler {
	return RateLimit(policy, store, nil)(okHandler())
}

func TestRateLimitBlocksAfterLimitPerIP(t *testing.T) {
	handler := limited(NewRateLimitPolicy("oauth", time.Minute, 2), newFakeRateStore())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/google", nil)
		req.RemoteAddr = "1.2.3.4:5678"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		switch i {
		case 0, 1:
			if rec.Code != http.StatusOK {
				t.Fatalf("attempt %d: expected 200, got %d", i, rec.Code)
			}
		case 2:
			if rec.Code != http.StatusTooManyRequests {
				t.Fatalf("expected 429, got %d", rec.Code)
			}
			if rec.Header().Get("Retry-After") != "60" || rec.Header().Get("X-RateLimit-Remaining") != "0" {
				t.Fatalf("unexpected headers %v", rec.Header())
			}
		}
	}

	other := httptest.NewRequest(http.MethodGet, "/api/auth/google", nil)
	other.RemoteAddr = "5.6.7.8:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected other client allowed, got %d", rec.Code)
	}
}

func TestRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	store := newFakeRateStore()
	handler := limited(NewRateLimitPolicy("oauth", time.Minute, 1).BehindProxies(1), store)

	for _, spoofed := range []string{"9.9.9.9", "8.8.8.8"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", spoofed+", 203.0.113.7")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	if store.counts["oauth:ip:203.0.113.7"] != 2 {
		t.Fatalf("expected both requests keyed on the proxy-appended ip, got %v", store.counts)
	}
}

func TestClientIPWithoutTrustedProxies(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.1.1:443"
	req.Header.Set("X-Forwarded-For", "9.9.9.9")
	if got := clientIP(req, 0); got != "10.1.1.1" {
		t.Fatalf("expected socket address, got %q", got)
	}
	if got := clientIP(req, 3); got != "9.9.9.9" {
		t.Fatalf("short header should fall back to its first entry, got %q", got)
	}
}

func TestRateLimitPerCallerUsesUserID(t *testing.T) {
	store := newFakeRateStore()
	handler := limited(NewRateLimitPolicy("payment", time.Minute, 5).PerCaller(), store)

	userID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/member/payment", nil)
	req = req.WithContext(WithUserID(req.Context(), userID.String()))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if store.counts["payment:user:"+userID.String()] != 1 {
		t.Fatalf("expected per-user bucket, got %v", store.counts)
	}
}

func TestRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	store := newFakeRateStore()
	handler := limited(NewRateLimitPolicy("oauth", 0, 0), store)
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected pass-through, got %d", rec.Code)
		}
	}
	if len(store.counts) != 0 {
		t.Fatalf("disabled policy must not touch the store")
	}
}
