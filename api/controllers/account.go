package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/abex/clubes-abex/api/controllers/membercontext"
	"github.com/abex/clubes-abex/api/responses"
	"github.com/abex/clubes-abex/internal/users"
	"github.com/abex/clubes-abex/pkg/db/models"
	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
	"github.com/abex/clubes-abex/pkg/logger"
)

type accountService interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)
	DeleteAccount(ctx context.Context, userID uuid.UUID) error
}

// AccountProfile returns the caller's profile and entitlement flag.
func AccountProfile(svc accountService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}
		userID, err := membercontext.ResolveUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, users.FromModel(user))
	}
}

// AccountDelete removes the caller's account. Payments and subscriptions stay
// in the ledger.
func AccountDelete(svc accountService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}
		userID, err := membercontext.ResolveUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteAccount(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
