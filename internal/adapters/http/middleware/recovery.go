// Package middleware - recovery middleware для обработки паник.
package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
)

// RecoveryConfig - конфигурация recovery middleware.
type RecoveryConfig struct {
	Logger           *slog.Logger
	EnableStackTrace bool
}

// DefaultRecoveryConfig - конфигурация по умолчанию.
func DefaultRecoveryConfig() *RecoveryConfig {
	return &RecoveryConfig{
		Logger:           slog.Default(),
		EnableStackTrace: true,
	}
}

// Recovery перехватывает панику в handler'е и возвращает 500.
func Recovery(config *RecoveryConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultRecoveryConfig()
	}

	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				attrs := []slog.Attr{
					slog.String("error", fmt.Sprintf("%v", err)),
					slog.String("path", c.Request.URL.Path),
					slog.String("method", c.Request.Method),
					slog.String("request_id", GetRequestID(c)),
				}
				if config.EnableStackTrace {
					attrs = append(attrs, slog.String("stack", string(debug.Stack())))
				}
				config.Logger.LogAttrs(c.Request.Context(), slog.LevelError, "panic recovered", attrs...)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error": gin.H{
						"code":    "INTERNAL_ERROR",
						"message": "An unexpected error occurred",
					},
					"request_id": GetRequestID(c),
					"timestamp":  time.Now().UTC(),
				})
			}
		}()

		c.Next()
	}
}
