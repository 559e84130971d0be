package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abex/clubes-abex/api/controllers"
	billingcontrollers "github.com/abex/clubes-abex/api/controllers/billing"
	contentcontrollers "github.com/abex/clubes-abex/api/controllers/content"
	plancontrollers "github.com/abex/clubes-abex/api/controllers/plans"
	reportcontrollers "github.com/abex/clubes-abex/api/controllers/reports"
	subscriptioncontrollers "github.com/abex/clubes-abex/api/controllers/subscriptions"
	webhookcontrollers "github.com/abex/clubes-abex/api/controllers/webhooks"
	"github.com/abex/clubes-abex/api/middleware"
	"github.com/abex/clubes-abex/internal/auth"
	"github.com/abex/clubes-abex/internal/content"
	"github.com/abex/clubes-abex/internal/payments"
	"github.com/abex/clubes-abex/internal/plans"
	"github.com/abex/clubes-abex/internal/reports"
	"github.com/abex/clubes-abex/internal/subscriptions"
	"github.com/abex/clubes-abex/internal/users"
	"github.com/abex/clubes-abex/pkg/auth/session"
	"github.com/abex/clubes-abex/pkg/config"
	"github.com/abex/clubes-abex/pkg/db"
	"github.com/abex/clubes-abex/pkg/enums"
	"github.com/abex/clubes-abex/pkg/logger"
	pkgredis "github.com/abex/clubes-abex/pkg/redis"
)

// RedisStore is the slice of the Redis client the HTTP layer needs.
type RedisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisStore RedisStore,
	sessions session.AccessSessionChecker,
	gatherer prometheus.Gatherer,
	authService auth.Service,
	userService users.Service,
	planService plans.Service,
	contentService content.Service,
	subscriptionService subscriptions.Service,
	checkoutService payments.CheckoutService,
	paymentHistory billingcontrollers.PaymentHistory,
	reportsService reports.Service,
	webhookService webhookcontrollers.MercadoPagoWebhookService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins, cfg.App.SiteURL),
	)

	authPolicy := middleware.NewRateLimitPolicy("oauth", cfg.RateLimit.AuthWindow, cfg.RateLimit.AuthIPLimit).
		BehindProxies(cfg.RateLimit.TrustedProxyHops)
	paymentPolicy := middleware.NewRateLimitPolicy("payment", cfg.RateLimit.PaymentWindow, cfg.RateLimit.PaymentLimit).
		BehindProxies(cfg.RateLimit.TrustedProxyHops).
		PerCaller()

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisStore))
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/webhooks/mercadopago", webhookcontrollers.MercadoPagoWebhook(webhookService, logg))

		r.Route("/plans", func(r chi.Router) {
			r.Get("/", plancontrollers.PublicList(planService, logg))
			r.Get("/{planId}", plancontrollers.PublicGet(planService, logg))
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/refresh", controllers.AuthRefresh(authService, logg))
			r.Post("/logout", controllers.AuthLogout(authService, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(authPolicy, redisStore, logg))
				r.Get("/{provider}", controllers.OAuthBegin(logg))
				r.Get("/{provider}/callback", controllers.OAuthCallback(authService, cfg, logg))
			})
		})

		r.Route("/member", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessions, logg))
			r.Use(middleware.Idempotency(redisStore, logg))

			r.Get("/me", controllers.AccountProfile(userService, logg))
			r.Delete("/me", controllers.AccountDelete(userService, logg))

			r.With(middleware.RateLimit(paymentPolicy, redisStore, logg)).
				Post("/payment", billingcontrollers.MemberPayment(checkoutService, logg))
			r.Get("/payments", billingcontrollers.MemberPayments(paymentHistory, logg))

			r.Route("/subscription", func(r chi.Router) {
				r.Get("/", subscriptioncontrollers.MemberSubscriptionFetch(subscriptionService, logg))
				r.Post("/", subscriptioncontrollers.MemberSubscriptionChoose(subscriptionService, logg))
				r.Post("/cancel", subscriptioncontrollers.MemberSubscriptionCancel(subscriptionService, logg))
				r.Post("/renew", subscriptioncontrollers.MemberSubscriptionRenew(subscriptionService, logg))
				r.Get("/history", subscriptioncontrollers.MemberSubscriptionHistory(subscriptionService, logg))
			})

			r.Route("/content", func(r chi.Router) {
				r.Get("/", contentcontrollers.MemberList(contentService, logg))
				r.Get("/{contentId}", contentcontrollers.MemberView(contentService, logg))
				r.Post("/{contentId}/favorite", contentcontrollers.FavoriteAdd(contentService, logg))
				r.Delete("/{contentId}/favorite", contentcontrollers.FavoriteRemove(contentService, logg))
			})
			r.Get("/favorites", contentcontrollers.Favorites(contentService, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessions, logg))
			r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
			r.Use(middleware.Idempotency(redisStore, logg))

			r.Route("/plans", func(r chi.Router) {
				r.Get("/", plancontrollers.AdminList(planService, logg))
				r.Post("/", plancontrollers.AdminCreate(planService, logg))
				r.Put("/{planId}", plancontrollers.AdminUpdate(planService, logg))
				r.Delete("/{planId}", plancontrollers.AdminDelete(planService, logg))
			})
			r.Route("/content", func(r chi.Router) {
				r.Get("/", contentcontrollers.AdminList(contentService, logg))
				r.Post("/", contentcontrollers.AdminCreate(contentService, logg))
				r.Put("/{contentId}", contentcontrollers.AdminUpdate(contentService, logg))
				r.Delete("/{contentId}", contentcontrollers.AdminDelete(contentService, logg))
			})
			r.Get("/reports", reportcontrollers.AdminReports(reportsService, logg))
		})
	})

	return r
}
