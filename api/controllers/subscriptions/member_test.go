package subscriptions

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/abex/clubes-abex/api/middleware"
	subsvc "github.com/abex/clubes-abex/internal/subscriptions"
	"github.com/abex/clubes-abex/pkg/db/models"
	"github.com/abex/clubes-abex/pkg/enums"
	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
)

type stubSubscriptionsService struct {
	subsvc.Service

	active    *models.Subscription
	chosen    enums.BillingCycle
	chosenFor uuid.UUID
	cancelErr error
}

func (s *stubSubscriptionsService) GetActive(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	return s.active, nil
}

func (s *stubSubscriptionsService) ChoosePlan(ctx context.Context, userID, planID uuid.UUID, billing enums.BillingCycle) (*models.Subscription, error) {
	s.chosen = billing
	s.chosenFor = planID
	return &models.Subscription{
		ID:      uuid.New(),
		UserID:  userID,
		PlanID:  planID,
		Status:  enums.SubscriptionStatusPending,
		Billing: billing,
	}, nil
}

func (s *stubSubscriptionsService) Cancel(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	if s.cancelErr != nil {
		return nil, s.cancelErr
	}
	return &models.Subscription{ID: uuid.New(), Status: enums.SubscriptionStatusCancelled}, nil
}

func withUser(req *http.Request) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
}

func TestMemberSubscriptionFetchReturnsNull(t *testing.T) {
	rec := httptest.NewRecorder()
	MemberSubscriptionFetch(&stubSubscriptionsService{}, nil).ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodGet, "/api/member/subscription", nil)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var payload map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if string(payload["data"]) != "null" {
		t.Fatalf("expected null data got %s", payload["data"])
	}
}

func TestMemberSubscriptionFetchActive(t *testing.T) {
	sub := &models.Subscription{
		ID:        uuid.New(),
		Status:    enums.SubscriptionStatusActive,
		Billing:   enums.BillingCycleAnnual,
		StartDate: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	rec := httptest.NewRecorder()
	MemberSubscriptionFetch(&stubSubscriptionsService{active: sub}, nil).ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodGet, "/api/member/subscription", nil)))

	var payload struct {
		Data subsvc.SubscriptionDTO `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Data.ID != sub.ID || payload.Data.Billing != "annual" {
		t.Fatalf("unexpected subscription %+v", payload.Data)
	}
}

func TestMemberSubscriptionChoose(t *testing.T) {
	svc := &stubSubscriptionsService{}
	planID := uuid.New()
	body, _ := json.Marshal(map[string]string{"planId": planID.String(), "billing": "anual"})

	rec := httptest.NewRecorder()
	MemberSubscriptionChoose(svc, nil).ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodPost, "/api/member/subscription", bytes.NewReader(body))))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.chosenFor != planID || svc.chosen != enums.BillingCycleAnnual {
		t.Fatalf("unexpected choice %s %s", svc.chosenFor, svc.chosen)
	}
}

func TestMemberSubscriptionChooseDefaultsToMonthly(t *testing.T) {
	svc := &stubSubscriptionsService{}
	body := `{"planId":"` + uuid.NewString() + `"}`

	rec := httptest.NewRecorder()
	MemberSubscriptionChoose(svc, nil).ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodPost, "/api/member/subscription", strings.NewReader(body))))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
	if svc.chosen != enums.BillingCycleMonthly {
		t.Fatalf("expected monthly got %s", svc.chosen)
	}
}

func TestMemberSubscriptionChooseValidation(t *testing.T) {
	cases := map[string]string{
		"missing plan":    `{"billing":"monthly"}`,
		"invalid billing": `{"planId":"` + uuid.NewString() + `","billing":"weekly"}`,
		"bad plan id":     `{"planId":"abc"}`,
	}
	for name, body := range cases {
		rec := httptest.NewRecorder()
		MemberSubscriptionChoose(&stubSubscriptionsService{}, nil).ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodPost, "/api/member/subscription", strings.NewReader(body))))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", name, rec.Code)
		}
	}
}

func TestMemberSubscriptionCancelWithoutActive(t *testing.T) {
	svc := &stubSubscriptionsService{cancelErr: pkgerrors.New(pkgerrors.CodeNotFound, "no active subscription")}
	rec := httptest.NewRecorder()
	MemberSubscriptionCancel(svc, nil).ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodPost, "/api/member/subscription/cancel", nil)))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}
