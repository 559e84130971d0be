package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/abex/clubes-abex/api/responses"
	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
	"github.com/abex/clubes-abex/pkg/logger"
)

type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitPolicy is a fixed window keyed by client IP, or by member when
// PerCaller is set and the request is authenticated.
type RateLimitPolicy struct {
	name      string
	window    time.Duration
	limit     int
	perCaller bool
	proxyHops int
}

func NewRateLimitPolicy(name string, window time.Duration, limit int) RateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "default"
	}
	return RateLimitPolicy{name: name, window: window, limit: limit}
}

// PerCaller keys authenticated requests by user id instead of IP.
func (p RateLimitPolicy) PerCaller() RateLimitPolicy {
	p.perCaller = true
	return p
}

// BehindProxies trusts the last hops entries of X-Forwarded-For. Zero means
// only the socket address is trusted.
func (p RateLimitPolicy) BehindProxies(hops int) RateLimitPolicy {
	p.proxyHops = max(hops, 0)
	return p
}

func (p RateLimitPolicy) enabled() bool {
	return p.window > 0 && p.limit > 0
}

func (p RateLimitPolicy) subject(r *http.Request) string {
	if p.perCaller {
		if id := UserIDFromContext(r.Context()); id != "" {
			return "user:" + id
		}
	}
	if ip := clientIP(r, p.proxyHops); ip != "" {
		return "ip:" + ip
	}
	return ""
}

// RateLimit throttles requests per policy subject. Disabled policies and a
// nil store pass every request through.
func RateLimit(policy RateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}
		retryAfter := strconv.Itoa(int(math.Ceil(policy.window.Seconds())))
		limit := strconv.Itoa(policy.limit)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			subject := policy.subject(r)
			if subject == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed, count, err := store.FixedWindowAllow(ctx, policy.name+":"+subject, int64(policy.limit), policy.window)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(max(int64(policy.limit)-count, 0), 10))
			if !allowed {
				w.Header().Set("Retry-After", retryAfter)
				ctx = logg.WithFields(ctx, map[string]any{
					"policy":   policy.name,
					"subject":  subject,
					"attempts": count,
				})
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests, try again shortly"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP walks X-Forwarded-For from the right, skipping the entries added
// by trusted proxies. Anything further left is client controlled.
func clientIP(r *http.Request, trustedHops int) string {
	if trustedHops > 0 {
		var hops []string
		for _, header := range r.Header.Values("X-Forwarded-For") {
			for _, part := range strings.Split(header, ",") {
				if ip := strings.TrimSpace(part); ip != "" {
					hops = append(hops, ip)
				}
			}
		}
		if len(hops) > 0 {
			return hops[max(len(hops)-trustedHops, 0)]
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
