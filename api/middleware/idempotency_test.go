package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
)

// memoryIdempotency keeps records in a map and reports redis.Nil on misses.
type memoryIdempotency struct {
	mu      sync.Mutex
	records map[string]string
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{records: map[string]string{}}
}

func (m *memoryIdempotency) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.records[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (m *memoryIdempotency) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = value.(string)
	return nil
}

func (m *memoryIdempotency) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.records[key]; taken {
		return false, nil
	}
	m.records[key] = value.(string)
	return true, nil
}

func (m *memoryIdempotency) IdempotencyKey(scope, id string) string {
	return "test:" + scope + ":" + id
}

func (m *memoryIdempotency) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.records, key)
	}
	return nil
}

func send(h http.Handler, method, path, body, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func countingHandler(calls *int, status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		if body != "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

func TestMatchRuleSelection(t *testing.T) {
	cases := map[string]struct {
		method, path string
		matched      bool
		ttl          time.Duration
		required     bool
	}{
		"payment":     {http.MethodPost, "/api/member/payment", true, checkoutIdempotencyTTL, false},
		"choose plan": {http.MethodPost, "/api/member/subscription", true, defaultIdempotencyTTL, false},
		"favorite":    {http.MethodPost, "/api/member/content/5b1f/favorite", true, defaultIdempotencyTTL, false},
		"admin write": {http.MethodPost, "/api/admin/plans", true, defaultIdempotencyTTL, true},
		"webhook":     {http.MethodPost, "/api/webhooks/mercadopago", false, 0, false},
		"read":        {http.MethodGet, "/api/member/subscription", false, 0, false},
	}
	for name, tc := range cases {
		rule, ok := matchRule(tc.method, tc.path)
		require.Equal(t, tc.matched, ok, name)
		if ok {
			assert.Equal(t, tc.ttl, rule.ttl, name)
			assert.Equal(t, tc.required, rule.required, name)
		}
	}
}

func TestIdempotencyRequiredForAdminWrites(t *testing.T) {
	var calls int
	h := Idempotency(newMemoryIdempotency(), nil)(countingHandler(&calls, http.StatusCreated, ""))

	rec := send(h, http.MethodPost, "/api/admin/plans", `{"name":"Gold"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, calls, "handler must not run without a key")
}

func TestIdempotencyOptionalForMemberPayment(t *testing.T) {
	var calls int
	h := Idempotency(newMemoryIdempotency(), nil)(countingHandler(&calls, http.StatusOK, ""))

	send(h, http.MethodPost, "/api/member/payment", `{"planId":"x"}`, "")
	send(h, http.MethodPost, "/api/member/payment", `{"planId":"x"}`, "")
	assert.Equal(t, 2, calls)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	var calls int
	h := Idempotency(newMemoryIdempotency(), nil)(
		countingHandler(&calls, http.StatusOK, `{"success":true,"data":{"preferenceId":"pref-1"}}`))

	for attempt := 0; attempt < 2; attempt++ {
		rec := send(h, http.MethodPost, "/api/member/payment", `{"planId":"x"}`, "abc")
		require.Equal(t, http.StatusOK, rec.Code, "attempt %d", attempt)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), "pref-1")
	}
	assert.Equal(t, 1, calls)
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	var calls int
	store := newMemoryIdempotency()
	h := Idempotency(store, nil)(countingHandler(&calls, http.StatusServiceUnavailable, ""))

	send(h, http.MethodPost, "/api/member/payment", `{}`, "retry-me")
	send(h, http.MethodPost, "/api/member/payment", `{}`, "retry-me")
	assert.Equal(t, 2, calls)
	assert.Empty(t, store.records)
}

func TestIdempotencyDetectsBodyChange(t *testing.T) {
	var calls int
	h := Idempotency(newMemoryIdempotency(), nil)(countingHandler(&calls, http.StatusOK, ""))

	send(h, http.MethodPost, "/api/member/subscription", `{"planId":"a"}`, "xyz")
	rec := send(h, http.MethodPost, "/api/member/subscription", `{"planId":"b"}`, "xyz")

	require.Equal(t, http.StatusConflict, rec.Code)
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, string(pkgerrors.CodeIdempotency), payload.Error.Code)
	assert.Equal(t, 1, calls)
}

func TestIdempotencyRejectsKeyStillInFlight(t *testing.T) {
	store := newMemoryIdempotency()
	mw := Idempotency(store, nil)
	unreachable := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Errorf("duplicate must not reach the handler")
	})

	var nested *httptest.ResponseRecorder
	first := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nested = send(mw(unreachable), http.MethodPost, "/api/member/subscription/cancel", `{}`, "double-click")
		w.WriteHeader(http.StatusOK)
	})

	rec := send(mw(first), http.MethodPost, "/api/member/subscription/cancel", `{}`, "double-click")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, nested)
	assert.Equal(t, http.StatusConflict, nested.Code)
	assert.Len(t, store.records, 1, "completed record should be stored")
}
