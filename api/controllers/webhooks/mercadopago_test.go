package webhooks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	mpwebhook "github.com/abex/clubes-abex/internal/webhooks/mercadopago"
	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
	"github.com/abex/clubes-abex/pkg/logger"
	"github.com/abex/clubes-abex/pkg/metrics"
)

type stubWebhookService struct {
	delivery mpwebhook.Delivery
	outcome  string
	err      error
}

func (s *stubWebhookService) Handle(ctx context.Context, d mpwebhook.Delivery) (string, error) {
	s.delivery = d
	return s.outcome, s.err
}

func TestMercadoPagoWebhookPassesDelivery(t *testing.T) {
	svc := &stubWebhookService{outcome: metrics.WebhookOutcomeProcessed}
	handler := MercadoPagoWebhook(svc, logger.New(logger.Options{ServiceName: "test"}))

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/mercadopago?data.id=EXT-1&type=payment", strings.NewReader(`{"type":"payment","data":{"id":"EXT-1"}}`))
	req.Header.Set("X-Signature", "ts=1,v1=abc")
	req.Header.Set("X-Request-Id", "req-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"received":true`) {
		t.Fatalf("expected ack body got %s", rec.Body.String())
	}
	if svc.delivery.Signature != "ts=1,v1=abc" || svc.delivery.RequestID != "req-1" {
		t.Fatalf("headers not forwarded: %+v", svc.delivery)
	}
	if svc.delivery.Query.Get("data.id") != "EXT-1" || !strings.Contains(string(svc.delivery.Body), "EXT-1") {
		t.Fatalf("payload not forwarded: %+v", svc.delivery)
	}
}

func TestMercadoPagoWebhookStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"malformed", pkgerrors.New(pkgerrors.CodeValidation, "unparseable notification"), http.StatusBadRequest},
		{"bad signature", pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"), http.StatusUnauthorized},
		{"gateway down", pkgerrors.New(pkgerrors.CodeUpstream, "fetch payment"), http.StatusInternalServerError},
		{"inboxed failure", pkgerrors.New(pkgerrors.CodeDependency, "activate subscription"), http.StatusOK},
		{"untyped failure", errors.New("boom"), http.StatusOK},
	}
	for _, tc := range cases {
		svc := &stubWebhookService{outcome: metrics.WebhookOutcomeFailed, err: tc.err}
		rec := httptest.NewRecorder()
		MercadoPagoWebhook(svc, logger.New(logger.Options{ServiceName: "test"})).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/webhooks/mercadopago", strings.NewReader(`{}`)))
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d got %d", tc.name, tc.want, rec.Code)
		}
	}
}

func TestMercadoPagoWebhookRequiresService(t *testing.T) {
	rec := httptest.NewRecorder()
	MercadoPagoWebhook(nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/webhooks/mercadopago", strings.NewReader(`{}`)))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
}
