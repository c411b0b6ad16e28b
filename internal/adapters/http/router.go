// Package http - Router configuration for REST API.
//
// Router собирает все handlers и middleware в единую точку входа.
//
// Pattern: Composition Root
// - Все зависимости собираются здесь
// - Handlers получают только нужные им use cases
// - Middleware применяется к соответствующим группам routes
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/novafin/wallet/internal/adapters/http/common"
	"github.com/novafin/wallet/internal/adapters/http/handlers"
	"github.com/novafin/wallet/internal/adapters/http/middleware"
)

// ============================================
// Router Configuration
// ============================================

// RouterConfig - конфигурация роутера.
type RouterConfig struct {
	// Logger для middleware
	Logger *slog.Logger
	// Database pool для readiness probe
	Pool *pgxpool.Pool
	// Redis client для readiness probe
	Redis *redis.Client
	// Version приложения
	Version string
	// Environment (development, staging, production)
	Environment string
	// ServiceName для трейсинга
	ServiceName string
	// AuthSecret - общий секрет сервисного JWT
	AuthSecret string
	// AuthIssuer - ожидаемый issuer токена (пусто = не проверять)
	AuthIssuer string
}

// DefaultRouterConfig - конфигурация по умолчанию для development.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		Logger:      slog.Default(),
		Version:     "dev",
		Environment: "development",
		ServiceName: "wallet-orchestrator",
	}
}

// ============================================
// Use Case Providers
// ============================================

// WalletUseCases - provider для wallet use cases.
type WalletUseCases struct {
	CreateWallet     handlers.CreateWalletUseCase
	GetBalance       handlers.GetBalanceUseCase
	Transfer         handlers.TransferUseCase
	Convert          handlers.ConvertUseCase
	ListTransactions handlers.ListTransactionsUseCase
}

// PaymentUseCases - provider для payment use cases.
type PaymentUseCases struct {
	CreatePayment  handlers.CreatePaymentUseCase
	ConnectAccount handlers.ConnectAccountUseCase
	CreateWithdraw handlers.CreateWithdrawUseCase
}

// WebhookDeps - зависимости вебхук-эндпоинтов.
type WebhookDeps struct {
	Parser  handlers.WebhookParser
	UseCase handlers.WebhookUseCase
}

// ============================================
// Router Builder
// ============================================

// RouterBuilder - builder для создания роутера.
//
// Pattern: Builder
// - Позволяет пошагово настроить роутер
// - Проще тестировать
// - Можно переиспользовать части конфигурации
type RouterBuilder struct {
	config   *RouterConfig
	wallets  *WalletUseCases
	payments *PaymentUseCases
	webhooks *WebhookDeps
}

// NewRouterBuilder создаёт новый builder.
func NewRouterBuilder(config *RouterConfig) *RouterBuilder {
	if config == nil {
		config = DefaultRouterConfig()
	}
	return &RouterBuilder{config: config}
}

// WithWalletUseCases добавляет wallet use cases.
func (b *RouterBuilder) WithWalletUseCases(useCases *WalletUseCases) *RouterBuilder {
	b.wallets = useCases
	return b
}

// WithPaymentUseCases добавляет payment use cases.
func (b *RouterBuilder) WithPaymentUseCases(useCases *PaymentUseCases) *RouterBuilder {
	b.payments = useCases
	return b
}

// WithWebhooks добавляет обработку вебхуков провайдера.
func (b *RouterBuilder) WithWebhooks(deps *WebhookDeps) *RouterBuilder {
	b.webhooks = deps
	return b
}

// Build создаёт сконфигурированный Gin Engine.
func (b *RouterBuilder) Build() *gin.Engine {
	// Настраиваем режим Gin
	if b.config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Кастомные валидаторы биндинга (currency_code, money_amount, gateway)
	handlers.SetupValidator()

	// Создаём router без default middleware
	router := gin.New()

	// ============================================
	// Global Middleware
	// ============================================

	// 1. Recovery - должен быть первым
	router.Use(middleware.Recovery(&middleware.RecoveryConfig{
		Logger:           b.config.Logger,
		EnableStackTrace: b.config.Environment != "production",
	}))

	// 2. Request ID
	router.Use(middleware.RequestID())

	// 3. Tracing
	router.Use(otelgin.Middleware(b.config.ServiceName))

	// 4. Logging
	router.Use(middleware.Logging(&middleware.LoggingConfig{
		Logger:    b.config.Logger,
		SkipPaths: []string{"/health", "/ready", "/metrics"},
	}))

	// 5. Metrics (Prometheus)
	router.Use(middleware.Metrics())

	// ============================================
	// Metrics Endpoint (no auth)
	// ============================================

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ============================================
	// Health Check Routes (no auth)
	// ============================================

	healthHandler := handlers.NewHealthHandler(b.config.Pool, b.config.Redis, b.config.Version)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// ============================================
	// Provider Webhooks (no auth - подпись в payload)
	// ============================================

	if b.webhooks != nil {
		webhookHandler := handlers.NewWebhookHandler(b.webhooks.Parser, b.webhooks.UseCase)
		hooks := router.Group("/webhooks/stripe")
		{
			hooks.POST("/payments", webhookHandler.HandlePayment)
			hooks.POST("/payouts", webhookHandler.HandlePayout)
		}
	}

	// ============================================
	// API v1 Routes (auth required)
	// ============================================

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(&middleware.AuthConfig{
		Secret: b.config.AuthSecret,
		Issuer: b.config.AuthIssuer,
	}))
	{
		// Wallet routes
		if b.wallets != nil {
			walletHandler := handlers.NewWalletHandler(
				b.wallets.CreateWallet,
				b.wallets.GetBalance,
				b.wallets.Transfer,
				b.wallets.Convert,
				b.wallets.ListTransactions,
			)
			wallets := v1.Group("/wallets")
			{
				wallets.POST("", walletHandler.CreateWallet)
				wallets.GET("/balance", walletHandler.GetBalance)
				wallets.POST("/transfer", walletHandler.Transfer)
				wallets.POST("/convert", walletHandler.Convert)
				wallets.GET("/transactions", walletHandler.ListTransactions)
			}
		}

		// Payment routes
		if b.payments != nil {
			paymentHandler := handlers.NewPaymentHandler(
				b.payments.CreatePayment,
				b.payments.ConnectAccount,
				b.payments.CreateWithdraw,
			)
			payments := v1.Group("/payments")
			{
				payments.POST("", paymentHandler.CreatePayment)
				payments.POST("/accounts", paymentHandler.ConnectAccount)
				payments.POST("/withdraw", paymentHandler.CreateWithdraw)
			}
		}
	}

	// ============================================
	// 404 Handler
	// ============================================

	router.NoRoute(func(c *gin.Context) {
		common.Error(c, http.StatusNotFound, &common.APIError{
			Code:    "NOT_FOUND",
			Message: "Endpoint not found",
		})
	})

	return router
}

// ============================================
// Quick Setup Functions
// ============================================

// NewRouter создаёт роутер с базовой конфигурацией (для простых случаев).
func NewRouter(config *RouterConfig) *gin.Engine {
	return NewRouterBuilder(config).Build()
}
