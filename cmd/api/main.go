package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/threadline-store/threadline-backend/api/routes"
	"github.com/threadline-store/threadline-backend/internal/address"
	"github.com/threadline-store/threadline-backend/internal/cart"
	"github.com/threadline-store/threadline-backend/internal/inventory"
	"github.com/threadline-store/threadline-backend/internal/notifications"
	"github.com/threadline-store/threadline-backend/internal/orders"
	"github.com/threadline-store/threadline-backend/internal/payments"
	"github.com/threadline-store/threadline-backend/internal/settings"
	"github.com/threadline-store/threadline-backend/internal/settlement"
	"github.com/threadline-store/threadline-backend/pkg/config"
	"github.com/threadline-store/threadline-backend/pkg/db"
	"github.com/threadline-store/threadline-backend/pkg/logger"
	"github.com/threadline-store/threadline-backend/pkg/metrics"
	"github.com/threadline-store/threadline-backend/pkg/migrate"
	"github.com/threadline-store/threadline-backend/pkg/outbox"
	"github.com/threadline-store/threadline-backend/pkg/redis"
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

	gdb := dbClient.DB()
	atomicOpts := db.AtomicOptions{
		MaxAttempts: cfg.DB.TxMaxAttempts,
		BackoffStep: cfg.DB.TxBackoffStep,
	}

	verifier := payments.NewVerifier(cfg.Gateway.KeySecret, cfg.Gateway.WebhookSecret)
	webhookGuard := redis.NewEventGuard(redisClient, cfg.Settlement.WebhookEventTTL)

	ordersRepo := orders.NewRepository(gdb)
	stockRepo := inventory.NewTxRepository(inventory.NewRepository(gdb))
	outboxSvc := outbox.NewService(outbox.NewRepository(gdb), logg)

	settlementSvc, err := settlement.NewService(
		ordersRepo,
		payments.NewRepository(gdb),
		cart.NewRepository(gdb),
		stockRepo,
		dbClient,
		outboxSvc,
		verifier,
		cfg.Settlement,
		logg,
		metrics.NewSettlementMetrics(prometheus.DefaultRegisterer),
		atomicOpts,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(ordersRepo, dbClient, stockRepo, outboxSvc, logg, atomicOpts)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Settlement:    settlementSvc,
			Verifier:      verifier,
			WebhookGuard:  webhookGuard,
			Orders:        ordersSvc,
			Cart:          cart.NewRepository(gdb),
			Addresses:     address.NewRepository(gdb),
			Settings:      settings.NewRepository(gdb),
			Notifications: notifications.NewRepository(gdb),
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
