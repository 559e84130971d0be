package main

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/abex/clubes-abex/api/routes"
	"github.com/abex/clubes-abex/internal/auth"
	"github.com/abex/clubes-abex/internal/content"
	"github.com/abex/clubes-abex/internal/payments"
	"github.com/abex/clubes-abex/internal/plans"
	"github.com/abex/clubes-abex/internal/reports"
	"github.com/abex/clubes-abex/internal/subscriptions"
	"github.com/abex/clubes-abex/internal/users"
	mpwebhook "github.com/abex/clubes-abex/internal/webhooks/mercadopago"
	"github.com/abex/clubes-abex/pkg/auth/session"
	"github.com/abex/clubes-abex/pkg/config"
	"github.com/abex/clubes-abex/pkg/db"
	"github.com/abex/clubes-abex/pkg/logger"
	"github.com/abex/clubes-abex/pkg/mercadopago"
	"github.com/abex/clubes-abex/pkg/metrics"
	"github.com/abex/clubes-abex/pkg/migrate"
	"github.com/abex/clubes-abex/pkg/oauth"
	"github.com/abex/clubes-abex/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.ConsoleLogs(),
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	providers, err := oauth.Setup(cfg.OAuth, cfg.App)
	if err != nil {
		logg.Error(context.Background(), "failed to configure oauth providers", err)
		os.Exit(1)
	}

	mpClient, err := mercadopago.NewClient(context.Background(), cfg.MercadoPago, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create mercado pago client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	gormDB := dbClient.DB()
	userRepo := users.NewRepository(gormDB)
	planRepo := plans.NewRepository(gormDB)

	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo:              subscriptions.NewRepository(gormDB),
		Users:             userRepo,
		Plans:             planRepo,
		TransactionRunner: dbClient,
		Logger:            logg,
		CancelGrace:       cfg.Access.CancelGrace,
	})
	requireService(logg, "subscription", err)

	userService, err := users.NewService(users.ServiceParams{
		Repo:              userRepo,
		Subscriptions:     subscriptionService,
		TransactionRunner: dbClient,
	})
	requireService(logg, "user", err)

	planService, err := plans.NewService(planRepo)
	requireService(logg, "plan", err)

	contentService, err := content.NewService(content.ServiceParams{
		Repo:         content.NewRepository(gormDB),
		Users:        userRepo,
		Entitlements: subscriptionService,
	})
	requireService(logg, "content", err)

	ledger, err := payments.NewLedger(payments.NewRepository(gormDB))
	requireService(logg, "payment ledger", err)

	checkoutService, err := payments.NewCheckoutService(payments.CheckoutParams{
		Ledger:  ledger,
		Plans:   planRepo,
		Users:   userRepo,
		Gateway: mpClient,
		SiteURL: cfg.App.SiteURL,
		Logger:  logg,
	})
	requireService(logg, "checkout", err)

	guard, err := mpwebhook.NewInflightGuard(redisClient, cfg.Webhook.GuardTTL, mercadopago.Provider)
	requireService(logg, "webhook guard", err)

	webhookService, err := mpwebhook.NewService(mpwebhook.ServiceParams{
		Ledger:            ledger,
		Subscriptions:     subscriptionService,
		Gateway:           mpClient,
		Inbox:             mpwebhook.NewInbox(gormDB),
		Guard:             guard,
		TransactionRunner: dbClient,
		Metrics:           metrics.NewWebhookMetrics(registry),
		Logger:            logg,
		Secret:            cfg.MercadoPago.WebhookSecret,
		Config:            cfg.Webhook,
	})
	requireService(logg, "webhook", err)

	reportsService, err := reports.NewService(reports.NewRepository(gormDB), nil)
	requireService(logg, "reports", err)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:          userRepo,
		SessionManager:    sessionManager,
		TransactionRunner: dbClient,
		JWTConfig:         cfg.JWT,
		AdminConfig:       cfg.Admin,
		Logger:            logg,
	})
	requireService(logg, "auth", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"instance":  id,
		"providers": strings.Join(providers, ","),
		"sandbox":   cfg.MercadoPago.Sandbox,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionManager,
			registry,
			authService,
			userService,
			planService,
			contentService,
			subscriptionService,
			checkoutService,
			ledger,
			reportsService,
			webhookService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func requireService(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+name+" service", err)
	os.Exit(1)
}
