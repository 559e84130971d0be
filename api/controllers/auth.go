package controllers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"

	"github.com/abex/clubes-abex/api/middleware"
	"github.com/abex/clubes-abex/api/responses"
	"github.com/abex/clubes-abex/api/validators"
	"github.com/abex/clubes-abex/internal/auth"
	"github.com/abex/clubes-abex/pkg/config"
	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
	"github.com/abex/clubes-abex/pkg/logger"
)

type oauthCompleter interface {
	CompleteOAuth(ctx context.Context, profile auth.OAuthProfile) (*auth.LoginResponse, error)
}

// OAuthBegin redirects the browser to the provider's consent screen.
func OAuthBegin(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authURL, err := gothic.GetAuthURL(w, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported provider"))
			return
		}
		http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
	}
}

// OAuthCallback finishes the provider handshake and opens a session. Browser
// navigations are redirected to the site with the tokens in the fragment;
// API clients asking for JSON get the login payload.
func OAuthCallback(svc oauthCompleter, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		gothUser, err := gothic.CompleteUserAuth(w, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "oauth handshake failed"))
			return
		}

		resp, err := svc.CompleteOAuth(r.Context(), profileFromGoth(gothUser))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if wantsJSON(r) {
			responses.WriteSuccess(w, resp)
			return
		}
		http.Redirect(w, r, postLoginURL(cfg, resp), http.StatusFound)
	}
}

func profileFromGoth(u goth.User) auth.OAuthProfile {
	name := strings.TrimSpace(u.Name)
	if name == "" {
		name = strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
	if name == "" {
		name = strings.TrimSpace(u.NickName)
	}
	profile := auth.OAuthProfile{
		Provider:       u.Provider,
		ProviderUserID: u.UserID,
		Email:          strings.TrimSpace(u.Email),
		Name:           name,
		AvatarURL:      u.AvatarURL,
	}
	if !u.ExpiresAt.IsZero() {
		expires := u.ExpiresAt.UTC()
		profile.ExpiresAt = &expires
	}
	return profile
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func postLoginURL(cfg *config.Config, resp *auth.LoginResponse) string {
	fragment := url.Values{}
	fragment.Set("access_token", resp.AccessToken)
	fragment.Set("refresh_token", resp.RefreshToken)
	return cfg.App.SiteURL + cfg.OAuth.PostLoginPath + "#" + fragment.Encode()
}

type sessionService interface {
	Refresh(ctx context.Context, accessToken, refreshToken string) (*auth.TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthRefresh rotates the refresh token tied to the presented access token,
// which may already be expired.
func AuthRefresh(svc sessionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		token, err := middleware.BearerToken(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req refreshRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pair, err := svc.Refresh(r.Context(), token, req.RefreshToken)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pair)
	}
}

// AuthLogout revokes the session behind the presented access token.
func AuthLogout(svc sessionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		token, err := middleware.BearerToken(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Logout(r.Context(), token); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}
