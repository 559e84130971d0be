package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/abex/clubes-abex/api/middleware"
	"github.com/abex/clubes-abex/pkg/db/models"
	"github.com/abex/clubes-abex/pkg/enums"
)

type stubAccountService struct {
	user    *models.User
	deleted uuid.UUID
}

func (s *stubAccountService) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.user, nil
}

func (s *stubAccountService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	s.deleted = userID
	return nil
}

func TestAccountProfile(t *testing.T) {
	userID := uuid.New()
	svc := &stubAccountService{user: &models.User{
		ID:                 userID,
		Name:               "Ana",
		Email:              "ana@example.com",
		Role:               enums.UserRoleMember,
		SubscriptionStatus: enums.SubscriptionStatusActive,
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/member/me", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	rec := httptest.NewRecorder()
	AccountProfile(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var payload struct {
		Data struct {
			ID                 uuid.UUID `json:"id"`
			SubscriptionStatus string    `json:"subscriptionStatus"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Data.ID != userID || payload.Data.SubscriptionStatus != "active" {
		t.Fatalf("unexpected profile %+v", payload.Data)
	}
}

func TestAccountDeleteUsesCaller(t *testing.T) {
	userID := uuid.New()
	svc := &stubAccountService{}

	req := httptest.NewRequest(http.MethodDelete, "/api/member/me", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	rec := httptest.NewRecorder()
	AccountDelete(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.deleted != userID {
		t.Fatalf("expected delete for %s got %s", userID, svc.deleted)
	}
}

func TestAccountProfileRequiresUser(t *testing.T) {
	rec := httptest.NewRecorder()
	AccountProfile(&stubAccountService{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/member/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}
