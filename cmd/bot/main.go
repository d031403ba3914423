package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/movielex/movielex-backend/internal/accessgate"
	"github.com/movielex/movielex-backend/internal/approvals"
	"github.com/movielex/movielex-backend/internal/catalog"
	"github.com/movielex/movielex-backend/internal/deliveries"
	"github.com/movielex/movielex-backend/internal/entitlement"
	"github.com/movielex/movielex-backend/internal/ledger"
	"github.com/movielex/movielex-backend/internal/ops"
	"github.com/movielex/movielex-backend/internal/reports"
	"github.com/movielex/movielex-backend/internal/subscriptions"
	"github.com/movielex/movielex-backend/internal/telegram"
	"github.com/movielex/movielex-backend/pkg/config"
	"github.com/movielex/movielex-backend/pkg/db"
	"github.com/movielex/movielex-backend/pkg/logger"
	"github.com/movielex/movielex-backend/pkg/metrics"
	"github.com/movielex/movielex-backend/pkg/migrate"
	"github.com/movielex/movielex-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "bot"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "bot",
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

	promRegistry := prometheus.NewRegistry()
	entitlementMetrics := metrics.NewEntitlementMetrics(promRegistry)

	bot, err := telegram.NewBot(cfg.Telegram.BotToken, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create telegram bot", err)
		os.Exit(1)
	}

	messenger, err := telegram.NewMessenger(telegram.MessengerParams{
		Bot:         bot,
		AdminUserID: cfg.Telegram.AdminUserID,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create messenger", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		Repo:           ledger.NewRepository(dbClient.DB()),
		DefaultBalance: cfg.Ledger.DefaultBalance,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	deliveryLog, err := deliveries.NewService(deliveries.ServiceParams{
		Repo:   deliveries.NewRepository(dbClient.DB()),
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery log", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Repo:       catalog.NewRepository(dbClient.DB()),
		Deliveries: deliveryLog,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo:   subscriptions.NewRepository(dbClient.DB()),
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription service", err)
		os.Exit(1)
	}

	gate, err := accessgate.NewService(accessgate.ServiceParams{
		Repo:     accessgate.NewRepository(dbClient.DB()),
		Counter:  accessgate.NewVolumeCounter(redisClient, cfg.Access.VolumeThreshold, cfg.Access.VolumeWindow),
		Notifier: messenger,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create access gate", err)
		os.Exit(1)
	}

	approvalService, err := approvals.NewService(approvals.ServiceParams{
		Repo:          approvals.NewRepository(dbClient.DB()),
		Tx:            dbClient,
		Ledger:        ledgerService,
		Subscriptions: subscriptionService,
		Notifier:      messenger,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create approval service", err)
		os.Exit(1)
	}

	resolver, err := entitlement.NewResolver(entitlement.ResolverParams{
		Catalog:       catalogService,
		Ledger:        ledgerService,
		Subscriptions: subscriptionService,
		Deliveries:    deliveryLog,
		Deliverer:     messenger,
		Metrics:       entitlementMetrics,
		Logger:        logg,
		MaxRetries:    cfg.Delivery.MaxRetries,
		RetryBackoff:  cfg.Delivery.RetryBackoff,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create entitlement resolver", err)
		os.Exit(1)
	}

	reportService, err := reports.NewService(reports.ServiceParams{
		Deliveries:    deliveryLog,
		Subscriptions: subscriptionService,
		Submissions:   approvalService,
		Ledger:        ledgerService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create report service", err)
		os.Exit(1)
	}

	handlers, err := telegram.NewHandlers(telegram.HandlersParams{
		Sender:        messenger,
		Resolver:      resolver,
		Gate:          gate,
		Balances:      ledgerService,
		Catalog:       catalogService,
		Approvals:     approvalService,
		Subscriptions: subscriptionService,
		Deliveries:    deliveryLog,
		Reports:       reportService,
		Sessions:      telegram.NewSessionManager(redisClient),
		Logger:        logg,
		AdminUserID:   cfg.Telegram.AdminUserID,
		CatalogURL:    cfg.Telegram.CatalogURL,
		BankDetails:   cfg.Telegram.BankDetails,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create telegram handlers", err)
		os.Exit(1)
	}
	handlers.Register(bot)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"ops_port": cfg.Ops.Port,
	})

	opsHandler := ops.NewHandler(ops.HandlerParams{
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		Registry: promRegistry,
		Env:      cfg.App.Env,
	})
	go func() {
		if err := ops.Serve(ctx, ":"+cfg.Ops.Port, opsHandler, logg); err != nil {
			logg.Error(ctx, "ops server stopped unexpectedly", err)
			stop()
		}
	}()

	logg.Info(ctx, "starting bot")
	bot.Start(ctx)
	logg.Info(ctx, "bot shutting down gracefully")
}
