package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/novafin/wallet/internal/config"
	"github.com/novafin/wallet/internal/infrastructure/bus"
	"github.com/novafin/wallet/internal/infrastructure/cache"
	"github.com/novafin/wallet/internal/infrastructure/persistence/postgres"
	"github.com/novafin/wallet/internal/pkg/logger"
	"github.com/novafin/wallet/internal/worker"
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
	logg.Info("Starting settlement worker",
		slog.String("version", cfg.App.Version),
		slog.String("consumer", cfg.NATS.ConsumerName),
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

	// 4. Redis (result cache / dedupe)
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal("Failed to connect to redis:", err)
	}
	defer redisClient.Close()
	idemCache := cache.NewIdempotencyCache(redisClient, cfg.Idempotency.KeyPrefix)

	// 5. Message bus
	nc, js, err := bus.Connect(cfg.NATS.URL)
	if err != nil {
		log.Fatal("Failed to connect to nats:", err)
	}
	defer nc.Close()
	producer := bus.NewProducer(js)

	consumer, err := bus.NewConsumer(js, cfg.NATS.RequestTopic, cfg.NATS.ConsumerName)
	if err != nil {
		log.Fatal("Failed to create consumer:", err)
	}
	defer func() { _ = consumer.Drain() }()
	source := bus.NewWorkerSource(consumer)

	// 6. Settler
	accountRepo := postgres.NewAccountRepository(pool)
	txRepo := postgres.NewTransactionRepository(pool)
	currencyRepo := postgres.NewCurrencyRepository(pool)
	uow := postgres.NewUnitOfWork(pool)
	settler := worker.NewSettler(accountRepo, txRepo, currencyRepo, uow)

	// 7. Metrics endpoint
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := worker.NewMetrics(registry)

	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Worker.MetricsPort),
		Handler:           metricsHandler(registry),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error("Metrics server error", slog.String("error", err.Error()))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	// 8. Run
	w := worker.New(source, settler, idemCache, producer, metrics,
		worker.Options{ResultTTL: cfg.Idempotency.ResultTTL}, logg)

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error("Worker error", slog.String("error", err.Error()))
	}
	logg.Info("Worker stopped gracefully")
}

func metricsHandler(registry *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
