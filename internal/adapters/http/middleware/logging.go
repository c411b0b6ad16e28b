// Package middleware - logging middleware для структурированного логирования.
package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// LoggingConfig - конфигурация logging middleware.
type LoggingConfig struct {
	Logger    *slog.Logger
	SkipPaths []string // пути без логирования (/health, /metrics)
}

// DefaultLoggingConfig - конфигурация по умолчанию.
func DefaultLoggingConfig() *LoggingConfig {
	return &LoggingConfig{
		Logger:    slog.Default(),
		SkipPaths: []string{"/health", "/ready", "/metrics"},
	}
}

// Logging логирует каждый HTTP-запрос: метод, путь, статус, длительность.
func Logging(config *LoggingConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultLoggingConfig()
	}

	skipMap := make(map[string]bool)
	for _, path := range config.SkipPaths {
		skipMap[path] = true
	}

	return func(c *gin.Context) {
		if skipMap[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", duration),
			slog.String("request_id", GetRequestID(c)),
			slog.String("client_ip", c.ClientIP()),
		}

		level := slog.LevelInfo
		switch {
		case c.Writer.Status() >= 500:
			level = slog.LevelError
		case c.Writer.Status() >= 400:
			level = slog.LevelWarn
		}

		config.Logger.LogAttrs(c.Request.Context(), level, "http request", attrs...)
	}
}
