package middleware

import (
	"net/http"
	"strings"

	"github.com/abex/clubes-abex/api/responses"
	pkgAuth "github.com/abex/clubes-abex/pkg/auth"
	"github.com/abex/clubes-abex/pkg/auth/session"
	"github.com/abex/clubes-abex/pkg/config"
	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
	"github.com/abex/clubes-abex/pkg/logger"
)

var errMissingCredentials = pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")

// BearerToken extracts the token from an "Authorization: Bearer" header.
// A bare token without the scheme is accepted too.
func BearerToken(r *http.Request) (string, error) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, rest, _ := strings.Cut(raw, " "); strings.EqualFold(scheme, "bearer") {
		raw = strings.TrimSpace(rest)
	}
	if raw == "" {
		return "", errMissingCredentials
	}
	return raw, nil
}

// Auth admits requests carrying a valid access token whose session is still
// open, and records the caller as the request Principal.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, err := BearerToken(r)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			if sessions != nil {
				live, err := sessions.HasSession(ctx, claims.ID)
				switch {
				case err != nil:
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				case !live:
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session ended, sign in again"))
					return
				}
			}

			ctx = WithPrincipal(ctx, Principal{
				UserID:   claims.UserID,
				Role:     claims.Role,
				Email:    claims.Email,
				AccessID: claims.ID,
			})
			ctx = logg.WithFields(ctx, map[string]any{
				"user_id":    claims.UserID.String(),
				"actor_role": string(claims.Role),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
