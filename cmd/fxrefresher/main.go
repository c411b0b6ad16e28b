package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/novafin/wallet/internal/config"
	"github.com/novafin/wallet/internal/fx"
	"github.com/novafin/wallet/internal/infrastructure/persistence/postgres"
	"github.com/novafin/wallet/internal/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// 2. Logger
	logger.Setup(&logger.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
	})
	logg := slog.Default()
	logg.Info("Starting FX refresher",
		slog.String("feed_url", cfg.FX.FeedURL),
		slog.Duration("interval", cfg.FX.Interval),
	)

	// 3. Database
	pool, err := postgres.NewPool(ctx, postgres.Config{
		DSN:             cfg.Database.DSN(),
		MaxConns:        cfg.Database.MaxConnections,
		MinConns:        cfg.Database.MinConnections,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer pool.Close()

	// 4. Run
	currencyRepo := postgres.NewCurrencyRepository(pool)
	refresher := fx.NewRefresher(currencyRepo, logg,
		fx.WithFeedURL(cfg.FX.FeedURL),
		fx.WithInterval(cfg.FX.Interval),
	)

	if err := refresher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error("Refresher error", slog.String("error", err.Error()))
	}
	logg.Info("FX refresher stopped gracefully")
}
