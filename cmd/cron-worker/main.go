package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/abex/clubes-abex/internal/cron"
	"github.com/abex/clubes-abex/internal/payments"
	"github.com/abex/clubes-abex/internal/plans"
	"github.com/abex/clubes-abex/internal/subscriptions"
	"github.com/abex/clubes-abex/internal/users"
	mpwebhook "github.com/abex/clubes-abex/internal/webhooks/mercadopago"
	"github.com/abex/clubes-abex/pkg/config"
	"github.com/abex/clubes-abex/pkg/db"
	"github.com/abex/clubes-abex/pkg/logger"
	"github.com/abex/clubes-abex/pkg/mercadopago"
	"github.com/abex/clubes-abex/pkg/metrics"
	"github.com/abex/clubes-abex/pkg/migrate"
	"github.com/abex/clubes-abex/pkg/redis"
)

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	mpClient, err := mercadopago.NewClient(context.Background(), cfg.MercadoPago, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create mercado pago client", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo:              subscriptions.NewRepository(gormDB),
		Users:             users.NewRepository(gormDB),
		Plans:             plans.NewRepository(gormDB),
		TransactionRunner: dbClient,
		Logger:            logg,
		CancelGrace:       cfg.Access.CancelGrace,
	})
	requireResource(logg, "subscription service", err)

	ledger, err := payments.NewLedger(payments.NewRepository(gormDB))
	requireResource(logg, "payment ledger", err)

	guard, err := mpwebhook.NewInflightGuard(redisClient, cfg.Webhook.GuardTTL, mercadopago.Provider)
	requireResource(logg, "webhook guard", err)

	inbox := mpwebhook.NewInbox(gormDB)
	webhookService, err := mpwebhook.NewService(mpwebhook.ServiceParams{
		Ledger:            ledger,
		Subscriptions:     subscriptionService,
		Gateway:           mpClient,
		Inbox:             inbox,
		Guard:             guard,
		TransactionRunner: dbClient,
		Metrics:           metrics.NewWebhookMetrics(prometheus.DefaultRegisterer),
		Logger:            logg,
		Secret:            cfg.MercadoPago.WebhookSecret,
		Config:            cfg.Webhook,
	})
	requireResource(logg, "webhook service", err)

	expiryJob, err := cron.NewSubscriptionExpiryJob(cron.SubscriptionExpiryJobParams{
		Logger:        logg,
		Subscriptions: subscriptionService,
		BatchSize:     cfg.Cron.ExpiryBatchSize,
	})
	requireResource(logg, "subscription expiry job", err)

	retryJob, err := cron.NewWebhookRetryJob(cron.WebhookRetryJobParams{
		Logger:   logg,
		Webhooks: webhookService,
	})
	requireResource(logg, "webhook retry job", err)

	retentionJob, err := cron.NewWebhookRetentionJob(cron.WebhookRetentionJobParams{
		Logger:        logg,
		Inbox:         inbox,
		RetentionDays: cfg.Cron.WebhookRetentionDays,
	})
	requireResource(logg, "webhook retention job", err)

	lock, err := cron.NewRedisLock(redisClient, cron.LockName, cfg.Cron.LockTTL)
	requireResource(logg, "cron lock", err)

	registry := cron.NewRegistry(expiryJob, retryJob, retentionJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	requireResource(logg, "cron service", err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Cron.Interval.String(),
		"once":     *once,
		"jobs":     strings.Join(registry.Names(), ","),
	})

	if *once {
		logg.Info(ctx, "running single cron cycle")
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func requireResource(logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+resource, err)
	os.Exit(1)
}
