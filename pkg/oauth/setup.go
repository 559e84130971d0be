package oauth

import (
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/abex/clubes-abex/pkg/config"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	"golang.org/x/crypto/hkdf"
)

const (
	// ProviderParam is the chi URL parameter holding the provider name.
	ProviderParam = "provider"
	// CallbackPathFormat is the callback route for a provider, relative to the site URL.
	CallbackPathFormat = "/api/auth/%s/callback"

	stateCookieMaxAge = 10 * 60
	keyInfoHash       = "clubes-oauth-hash"
	keyInfoBlock      = "clubes-oauth-block"
)

// Setup registers the configured goth providers and installs a cookie store
// for gothic's OAuth state. It returns the registered provider names.
func Setup(cfg config.OAuthConfig, app config.AppConfig) ([]string, error) {
	if strings.TrimSpace(cfg.SessionSecret) == "" {
		return nil, fmt.Errorf("oauth session secret is required")
	}
	base := strings.TrimRight(app.SiteURL, "/")
	if base == "" {
		base = "http://localhost:" + app.Port
	}

	var providers []goth.Provider
	var names []string
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		providers = append(providers, google.New(
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			base+fmt.Sprintf(CallbackPathFormat, "google"),
			"email", "profile",
		))
		names = append(names, "google")
	}
	goth.ClearProviders()
	if len(providers) > 0 {
		goth.UseProviders(providers...)
	}

	store, err := NewStateStore(cfg.SessionSecret, !app.IsDev())
	if err != nil {
		return nil, err
	}
	gothic.Store = store
	gothic.GetProviderName = ProviderName
	return names, nil
}

// NewStateStore builds the cookie store gothic keeps OAuth state in. Signing
// and encryption keys are derived from the single configured secret.
func NewStateStore(secret string, secure bool) (*sessions.CookieStore, error) {
	hashKey, err := deriveKey(secret, keyInfoHash, 64)
	if err != nil {
		return nil, err
	}
	blockKey, err := deriveKey(secret, keyInfoBlock, 32)
	if err != nil {
		return nil, err
	}
	store := sessions.NewCookieStore(hashKey, blockKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   stateCookieMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store, nil
}

// ProviderName resolves the provider from the chi route, falling back to the
// query string gothic understands.
func ProviderName(r *http.Request) (string, error) {
	if name := strings.TrimSpace(chi.URLParam(r, ProviderParam)); name != "" {
		return strings.ToLower(name), nil
	}
	if name := strings.TrimSpace(r.URL.Query().Get(ProviderParam)); name != "" {
		return strings.ToLower(name), nil
	}
	return "", fmt.Errorf("you must select a provider")
}

func deriveKey(secret, info string, size int) ([]byte, error) {
	reader := hkdf.New(sha256.New, []byte(secret), nil, []byte(info))
	key := make([]byte, size)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("deriving oauth key: %w", err)
	}
	return key, nil
}
