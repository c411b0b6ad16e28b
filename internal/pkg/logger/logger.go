// Package logger - структурированное логирование поверх slog.
//
// ContextHandler автоматически добавляет к каждой записи
// correlation_id / request_id / user_id из context: лог любой точки
// пайплайна (HTTP-ручка, воркер, FX refresher) можно связать
// с конкретной операцией.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

const (
	// CorrelationIDKey - ключ correlation ID операции в context.
	CorrelationIDKey contextKey = "correlation_id"
	// RequestIDKey - ключ request ID в context.
	RequestIDKey contextKey = "request_id"
	// UserIDKey - ключ user ID в context.
	UserIDKey contextKey = "user_id"
)

// Config - конфигурация логгера.
type Config struct {
	Level     string // debug, info, warn, error
	Format    string // json, text
	Output    io.Writer
	AddSource bool
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "json",
		Output: os.Stdout,
	}
}

// New создаёт slog.Logger с переданной конфигурацией.
func New(cfg *Config) *slog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	return slog.New(&ContextHandler{handler: handler})
}

// Setup инициализирует глобальный логгер.
func Setup(cfg *Config) {
	slog.SetDefault(New(cfg))
}

// ContextHandler оборачивает slog.Handler и добавляет данные из context.
type ContextHandler struct {
	handler slog.Handler
}

// Enabled сообщает, включён ли уровень.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle добавляет корреляционные атрибуты из context к записи.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := GetCorrelationID(ctx); id != "" {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	if id := GetRequestID(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	if id := GetUserID(ctx); id != "" {
		r.AddAttrs(slog.String("user_id", id))
	}
	return h.handler.Handle(ctx, r)
}

// WithAttrs возвращает новый handler с атрибутами.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{handler: h.handler.WithAttrs(attrs)}
}

// WithGroup возвращает новый handler с группой.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{handler: h.handler.WithGroup(name)}
}

// Context helpers

// WithCorrelationID кладёт correlation ID в context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// GetCorrelationID извлекает correlation ID из context.
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return id
	}
	return ""
}

// WithRequestID кладёт request ID в context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// GetRequestID извлекает request ID из context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithUserID кладёт user ID в context.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, UserIDKey, id)
}

// GetUserID извлекает user ID из context.
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}
