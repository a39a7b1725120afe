package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/threadline-store/threadline-backend/internal/address"
	"github.com/threadline-store/threadline-backend/internal/cart"
	"github.com/threadline-store/threadline-backend/internal/notifications"
	"github.com/threadline-store/threadline-backend/internal/orders"
	"github.com/threadline-store/threadline-backend/internal/postcommit"
	"github.com/threadline-store/threadline-backend/pkg/config"
	"github.com/threadline-store/threadline-backend/pkg/db"
	"github.com/threadline-store/threadline-backend/pkg/logger"
	"github.com/threadline-store/threadline-backend/pkg/metrics"
	"github.com/threadline-store/threadline-backend/pkg/migrate"
	"github.com/threadline-store/threadline-backend/pkg/outbox"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
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

	gdb := dbClient.DB()
	handlers, err := postcommit.NewHandlers(
		orders.NewRepository(gdb),
		notifications.NewRepository(gdb),
		cart.NewRepository(gdb),
		address.NewRepository(gdb),
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create post-commit handlers", err)
		os.Exit(1)
	}

	worker, err := postcommit.NewWorker(
		outbox.NewRepository(gdb),
		handlers,
		cfg.Outbox,
		logg,
		metrics.NewWorkerMetrics(prometheus.DefaultRegisterer),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env": cfg.App.Env,
	})
	logg.Info(ctx, "starting outbox worker")

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "outbox worker shutting down gracefully")
}
