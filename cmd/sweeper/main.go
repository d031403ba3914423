package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/movielex/movielex-backend/internal/accessgate"
	"github.com/movielex/movielex-backend/internal/approvals"
	"github.com/movielex/movielex-backend/internal/cron"
	"github.com/movielex/movielex-backend/internal/subscriptions"
	"github.com/movielex/movielex-backend/pkg/config"
	"github.com/movielex/movielex-backend/pkg/db"
	"github.com/movielex/movielex-backend/pkg/logger"
	"github.com/movielex/movielex-backend/pkg/metrics"
	"github.com/movielex/movielex-backend/pkg/migrate"
	"github.com/movielex/movielex-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "sweeper"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "sweeper",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
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

	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo:   subscriptions.NewRepository(dbClient.DB()),
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription service", err)
		os.Exit(1)
	}

	sweepJob, err := cron.NewSubscriptionSweepJob(cron.SubscriptionSweepJobParams{
		Logger:   logg,
		Register: subscriptionService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription sweep job", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewRetentionJob(cron.RetentionJobParams{
		Logger:      logg,
		Submissions: approvals.NewRepository(dbClient.DB()),
		Blocks:      accessgate.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create retention job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("sweeper"), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweeper lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(sweepJob, retentionJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweeper service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting sweeper")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sweeper stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "sweeper shutting down gracefully")
}
