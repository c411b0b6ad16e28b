package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/novafin/wallet/internal/adapters/http"
	"github.com/novafin/wallet/internal/application/providerbalance"
	"github.com/novafin/wallet/internal/application/usecases/payment"
	"github.com/novafin/wallet/internal/application/usecases/wallet"
	"github.com/novafin/wallet/internal/config"
	"github.com/novafin/wallet/internal/infrastructure/bus"
	"github.com/novafin/wallet/internal/infrastructure/cache"
	"github.com/novafin/wallet/internal/infrastructure/gateway"
	"github.com/novafin/wallet/internal/infrastructure/persistence/postgres"
	"github.com/novafin/wallet/internal/pkg/logger"
	"github.com/novafin/wallet/internal/pkg/tracing"
)

func main() {
	ctx := context.Background()

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
	logg.Info("Starting wallet orchestrator",
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// 3. Tracing
	if cfg.Tracing.Enabled {
		shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
			ServiceName:    "wallet-orchestrator",
			ServiceVersion: cfg.App.Version,
			Environment:    cfg.App.Environment,
			OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
			SampleRatio:    cfg.Tracing.SampleRatio,
		})
		if err != nil {
			log.Fatal("Failed to initialize tracing:", err)
		}
		defer func() { _ = shutdownTracing(context.Background()) }()
	}

	// 4. Database
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
	logg.Info("Database connected")

	// 5. Redis (idempotency cache)
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal("Failed to connect to redis:", err)
	}
	defer redisClient.Close()
	idemCache := cache.NewIdempotencyCache(redisClient, cfg.Idempotency.KeyPrefix)
	logg.Info("Redis connected")

	// 6. Message bus
	nc, js, err := bus.Connect(cfg.NATS.URL)
	if err != nil {
		log.Fatal("Failed to connect to nats:", err)
	}
	defer nc.Close()
	producer := bus.NewProducer(js)
	logg.Info("Message bus connected")

	// 7. Repositories + Unit of Work
	walletRepo := postgres.NewWalletRepository(pool)
	accountRepo := postgres.NewAccountRepository(pool)
	txRepo := postgres.NewTransactionRepository(pool)
	currencyRepo := postgres.NewCurrencyRepository(pool)
	balanceRepo := postgres.NewProviderBalanceRepository(pool)
	linkedRepo := postgres.NewLinkedAccountRepository(pool)
	uow := postgres.NewUnitOfWork(pool)

	// 8. Payment gateways
	stripeGw := gateway.NewStripeGateway(gateway.StripeConfig{
		SecretKey:            cfg.Stripe.SecretKey,
		PaymentWebhookSecret: cfg.Stripe.PaymentWebhookSecret,
		PayoutWebhookSecret:  cfg.Stripe.PayoutWebhookSecret,
		BaseURL:              cfg.Stripe.BaseURL,
	})
	registry := gateway.NewRegistry(stripeGw, gateway.NewCloudPaymentsGateway())

	liquidity := providerbalance.NewManager(balanceRepo, currencyRepo)

	// 9. Use Cases
	createWalletUC := wallet.NewCreateWalletUseCase(walletRepo, uow)
	getBalanceUC := wallet.NewGetBalanceUseCase(walletRepo, accountRepo)
	transferUC := wallet.NewTransferUseCase(walletRepo, txRepo, idemCache, producer, uow, logg)
	convertUC := wallet.NewConvertUseCase(walletRepo, txRepo, currencyRepo, idemCache, producer, uow, logg)
	listTxUC := wallet.NewListTransactionsUseCase(walletRepo, txRepo)

	createPaymentUC := payment.NewCreatePaymentUseCase(walletRepo, txRepo, idemCache, registry, uow, logg)
	connectAccountUC := payment.NewConnectAccountUseCase(linkedRepo, registry, uow, logg)
	createWithdrawUC := payment.NewCreateWithdrawUseCase(
		walletRepo, accountRepo, txRepo, linkedRepo,
		idemCache, registry, liquidity, uow, logg,
	)
	webhookUC := payment.NewHandleWebhookUseCase(
		txRepo, idemCache, liquidity, producer, uow,
		cfg.Stripe.PaymentTestMode, logg,
	)
	logg.Info("Use cases initialized")

	// 10. Router
	router := http.NewRouterBuilder(&http.RouterConfig{
		Logger:      logg,
		Pool:        pool,
		Redis:       redisClient,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
		ServiceName: "wallet-orchestrator",
		AuthSecret:  cfg.Auth.JWTSecret,
		AuthIssuer:  cfg.Auth.JWTIssuer,
	}).
		WithWalletUseCases(&http.WalletUseCases{
			CreateWallet:     createWalletUC,
			GetBalance:       getBalanceUC,
			Transfer:         transferUC,
			Convert:          convertUC,
			ListTransactions: listTxUC,
		}).
		WithPaymentUseCases(&http.PaymentUseCases{
			CreatePayment:  createPaymentUC,
			ConnectAccount: connectAccountUC,
			CreateWithdraw: createWithdrawUC,
		}).
		WithWebhooks(&http.WebhookDeps{
			Parser:  stripeGw,
			UseCase: webhookUC,
		}).
		Build()

	// 11. HTTP Server
	server := http.NewServer(&http.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            strconv.Itoa(cfg.Server.Port),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Logger:          logg,
	}, router)

	if err := server.Run(); err != nil {
		logg.Error("Server error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logg.Info("Server stopped gracefully")
}
