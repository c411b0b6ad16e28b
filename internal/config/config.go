// Package config - Application configuration management.
//
// Использует Viper для:
// - Загрузки из YAML файлов
// - Переменных окружения
// - Значений по умолчанию
//
// Порядок приоритета (от высшего к низшему):
// 1. Environment variables
// 2. Config file
// 3. Default values
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ============================================
// Main Configuration
// ============================================

// Config - главная структура конфигурации приложения.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	Stripe      StripeConfig      `mapstructure:"stripe"`
	FX          FXConfig          `mapstructure:"fx"`
	Worker      WorkerConfig      `mapstructure:"worker"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
	Log         LogConfig         `mapstructure:"log"`
}

// ============================================
// App Configuration
// ============================================

// AppConfig - конфигурация приложения.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"` // development, staging, production
	Debug       bool   `mapstructure:"debug"`
}

// IsDevelopment возвращает true если окружение development.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction возвращает true если окружение production.
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

// ============================================
// Server Configuration
// ============================================

// ServerConfig - конфигурация HTTP сервера.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address возвращает полный адрес сервера.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ============================================
// Database Configuration
// ============================================

// DatabaseConfig - конфигурация базы данных.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConnections  int32         `mapstructure:"max_connections"`
	MinConnections  int32         `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// DSN возвращает строку подключения к PostgreSQL.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
		c.SSLMode,
	)
}

// ============================================
// Redis Configuration
// ============================================

// RedisConfig - конфигурация Redis.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ============================================
// NATS Configuration
// ============================================

// NATSConfig - конфигурация шины сообщений.
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	RequestTopic  string `mapstructure:"request_topic"`
	ResultTopic   string `mapstructure:"result_topic"`
	DLQTopic      string `mapstructure:"dlq_topic"`
	ConsumerName  string `mapstructure:"consumer_name"`
}

// ============================================
// Idempotency Configuration
// ============================================

// IdempotencyConfig - конфигурация кэша идемпотентности.
type IdempotencyConfig struct {
	KeyPrefix string        `mapstructure:"key_prefix"`
	ResultTTL time.Duration `mapstructure:"result_ttl"`
}

// ============================================
// Stripe Configuration
// ============================================

// StripeConfig - конфигурация платёжного провайдера.
type StripeConfig struct {
	SecretKey            string `mapstructure:"secret_key"`
	PaymentWebhookSecret string `mapstructure:"payment_webhook_secret"`
	PayoutWebhookSecret  string `mapstructure:"payout_webhook_secret"`
	BaseURL              string `mapstructure:"base_url"` // redirect-адреса checkout/onboarding
	PaymentTestMode      bool   `mapstructure:"payment_test_mode"`
}

// ============================================
// FX Configuration
// ============================================

// FXConfig - конфигурация обновления курсов валют.
type FXConfig struct {
	FeedURL  string        `mapstructure:"feed_url"`
	Interval time.Duration `mapstructure:"interval"`
}

// ============================================
// Worker Configuration
// ============================================

// WorkerConfig - конфигурация воркера расчётов.
type WorkerConfig struct {
	MetricsPort int `mapstructure:"metrics_port"`
	FetchBatch  int `mapstructure:"fetch_batch"`
}

// ============================================
// Auth Configuration
// ============================================

// AuthConfig - конфигурация аутентификации.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	JWTIssuer string `mapstructure:"jwt_issuer"`
}

// ============================================
// Tracing Configuration
// ============================================

// TracingConfig - конфигурация OpenTelemetry.
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

// ============================================
// Log Configuration
// ============================================

// LogConfig - конфигурация логирования.
type LogConfig struct {
	Level     string `mapstructure:"level"`  // debug, info, warn, error
	Format    string `mapstructure:"format"` // json, text
	AddSource bool   `mapstructure:"add_source"`
}

// ============================================
// Configuration Loading
// ============================================

// Load загружает конфигурацию из файла и переменных окружения.
//
// configPath - путь к директории с конфигурацией (например, "configs")
// configName - имя файла конфигурации без расширения (например, "config")
func Load(configPath, configName string) (*Config, error) {
	// .env для локальной разработки; в production его нет - это не ошибка
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/novafin")

	v.SetEnvPrefix("NOVAFIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Файл не найден - используем defaults и env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv загружает конфигурацию только из переменных окружения.
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("NOVAFIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults устанавливает значения по умолчанию.
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "wallet-platform")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", true)

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.database", "wallet")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Redis defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// NATS defaults
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.request_topic", "wallet.transaction.request")
	v.SetDefault("nats.result_topic", "wallet.transaction.result")
	v.SetDefault("nats.dlq_topic", "wallet.transaction.dlq")
	v.SetDefault("nats.consumer_name", "settlement-worker")

	// Idempotency defaults
	v.SetDefault("idempotency.key_prefix", "wallet:idem:")
	v.SetDefault("idempotency.result_ttl", "24h")

	// Stripe defaults
	v.SetDefault("stripe.base_url", "http://localhost:8080")
	v.SetDefault("stripe.payment_test_mode", false)

	// FX defaults
	v.SetDefault("fx.feed_url", "https://www.cbr-xml-daily.ru/daily_json.js")
	v.SetDefault("fx.interval", "1h")

	// Worker defaults
	v.SetDefault("worker.metrics_port", 9090)
	v.SetDefault("worker.fetch_batch", 16)

	// Auth defaults
	v.SetDefault("auth.jwt_secret", "change-me-in-production")
	v.SetDefault("auth.jwt_issuer", "novafin-auth")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.otlp_endpoint", "localhost:4318")
	v.SetDefault("tracing.sample_ratio", 1.0)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.add_source", false)
}

// bindEnvVars привязывает переменные окружения.
func bindEnvVars(v *viper.Viper) {
	// Database (обычно передаётся через env в production)
	_ = v.BindEnv("database.host", "NOVAFIN_DATABASE_HOST", "DB_HOST")
	_ = v.BindEnv("database.port", "NOVAFIN_DATABASE_PORT", "DB_PORT")
	_ = v.BindEnv("database.user", "NOVAFIN_DATABASE_USER", "DB_USER")
	_ = v.BindEnv("database.password", "NOVAFIN_DATABASE_PASSWORD", "DB_PASSWORD")
	_ = v.BindEnv("database.database", "NOVAFIN_DATABASE_DATABASE", "DB_NAME")

	// Redis / NATS
	_ = v.BindEnv("redis.addr", "NOVAFIN_REDIS_ADDR", "REDIS_ADDR")
	_ = v.BindEnv("nats.url", "NOVAFIN_NATS_URL", "NATS_URL")

	// Stripe (секреты только через env)
	_ = v.BindEnv("stripe.secret_key", "NOVAFIN_STRIPE_SECRET_KEY", "STRIPE_SECRET_KEY")
	_ = v.BindEnv("stripe.payment_webhook_secret", "NOVAFIN_STRIPE_PAYMENT_WEBHOOK_SECRET")
	_ = v.BindEnv("stripe.payout_webhook_secret", "NOVAFIN_STRIPE_PAYOUT_WEBHOOK_SECRET")

	// Auth
	_ = v.BindEnv("auth.jwt_secret", "NOVAFIN_AUTH_JWT_SECRET", "JWT_SECRET")

	// Server
	_ = v.BindEnv("server.port", "NOVAFIN_SERVER_PORT", "PORT")

	// App
	_ = v.BindEnv("app.environment", "NOVAFIN_APP_ENVIRONMENT", "ENVIRONMENT", "ENV")
}

// ============================================
// Configuration Validation
// ============================================

// Validate валидирует конфигурацию.
func (c *Config) Validate() error {
	if c.App.IsProduction() {
		if c.Auth.JWTSecret == "change-me-in-production" {
			return fmt.Errorf("JWT secret must be changed in production")
		}
		if c.Stripe.SecretKey == "" {
			return fmt.Errorf("stripe secret key is required in production")
		}
		if c.Stripe.PaymentTestMode {
			return fmt.Errorf("stripe test mode must be disabled in production")
		}
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Idempotency.ResultTTL <= 0 {
		return fmt.Errorf("idempotency result TTL must be positive")
	}

	if c.NATS.RequestTopic == "" || c.NATS.ResultTopic == "" || c.NATS.DLQTopic == "" {
		return fmt.Errorf("nats topics must not be empty")
	}

	return nil
}

// ============================================
// Development Helpers
// ============================================

// Development возвращает конфигурацию для разработки.
func Development() *Config {
	return &Config{
		App: AppConfig{
			Name:        "wallet-platform",
			Version:     "dev",
			Environment: "development",
			Debug:       true,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Password:        "postgres",
			Database:        "wallet",
			SSLMode:         "disable",
			MaxConnections:  10,
			MinConnections:  2,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		NATS: NATSConfig{
			URL:          "nats://localhost:4222",
			RequestTopic: "wallet.transaction.request",
			ResultTopic:  "wallet.transaction.result",
			DLQTopic:     "wallet.transaction.dlq",
			ConsumerName: "settlement-worker",
		},
		Idempotency: IdempotencyConfig{
			KeyPrefix: "wallet:idem:",
			ResultTTL: 24 * time.Hour,
		},
		Stripe: StripeConfig{
			BaseURL:         "http://localhost:8080",
			PaymentTestMode: true,
		},
		FX: FXConfig{
			FeedURL:  "https://www.cbr-xml-daily.ru/daily_json.js",
			Interval: time.Hour,
		},
		Worker: WorkerConfig{
			MetricsPort: 9090,
			FetchBatch:  16,
		},
		Auth: AuthConfig{
			JWTSecret: "dev-secret-key",
			JWTIssuer: "novafin-auth",
		},
		Log: LogConfig{
			Level:  "debug",
			Format: "text",
		},
	}
}

// Test возвращает конфигурацию для тестов.
func Test() *Config {
	cfg := Development()
	cfg.App.Environment = "test"
	cfg.Database.Database = "wallet_test"
	cfg.Log.Level = "error" // Меньше шума в тестах
	return cfg
}
