package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/abex/clubes-abex/api/middleware"
	"github.com/abex/clubes-abex/internal/payments"
	"github.com/abex/clubes-abex/pkg/db/models"
	"github.com/abex/clubes-abex/pkg/enums"
	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
)

type stubCheckout struct {
	userID  uuid.UUID
	planID  uuid.UUID
	billing enums.BillingCycle
	err     error
}

func (s *stubCheckout) CreatePreference(ctx context.Context, userID, planID uuid.UUID, billing enums.BillingCycle) (*payments.CheckoutResult, error) {
	s.userID, s.planID, s.billing = userID, planID, billing
	if s.err != nil {
		return nil, s.err
	}
	return &payments.CheckoutResult{PreferenceID: "pref-1", RedirectURL: "https://mp.example.com/pref-1", PaymentID: uuid.New()}, nil
}

type stubHistory struct {
	rows []models.Payment
}

func (s stubHistory) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	return s.rows, nil
}

func TestMemberPayment(t *testing.T) {
	svc := &stubCheckout{}
	userID := uuid.New()
	planID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/member/payment", strings.NewReader(`{"planId":"`+planID.String()+`","billing":"annual"}`))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	rec := httptest.NewRecorder()
	MemberPayment(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.userID != userID || svc.planID != planID || svc.billing != enums.BillingCycleAnnual {
		t.Fatalf("unexpected checkout inputs %+v", svc)
	}

	var payload struct {
		Success bool                    `json:"success"`
		Data    payments.CheckoutResult `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !payload.Success || payload.Data.PreferenceID != "pref-1" || payload.Data.RedirectURL == "" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestMemberPaymentGatewayFailureHidesDetail(t *testing.T) {
	svc := &stubCheckout{err: pkgerrors.New(pkgerrors.CodeUpstream, "mercadopago: token rejected")}

	req := httptest.NewRequest(http.MethodPost, "/api/member/payment", strings.NewReader(`{"planId":"`+uuid.NewString()+`"}`))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()
	MemberPayment(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "token rejected") {
		t.Fatalf("upstream detail leaked: %s", rec.Body.String())
	}
}

func TestMemberPaymentRequiresUser(t *testing.T) {
	rec := httptest.NewRecorder()
	MemberPayment(&stubCheckout{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/member/payment", strings.NewReader(`{}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestMemberPayments(t *testing.T) {
	history := stubHistory{rows: []models.Payment{{
		ID:       uuid.New(),
		Amount:   decimal.RequireFromString("29"),
		Currency: "BRL",
		Status:   enums.PaymentStatusApproved,
		Billing:  enums.BillingCycleMonthly,
	}}}

	req := httptest.NewRequest(http.MethodGet, "/api/member/payments", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()
	MemberPayments(history, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var payload struct {
		Data []payments.PaymentDTO `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Data) != 1 || payload.Data[0].Amount != "29.00" || payload.Data[0].Status != "approved" {
		t.Fatalf("unexpected history %+v", payload.Data)
	}
}
