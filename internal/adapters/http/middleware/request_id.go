// Package middleware содержит HTTP middleware оркестратора.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/novafin/wallet/internal/pkg/logger"
)

const (
	// RequestIDHeader - имя заголовка для Request ID.
	RequestIDHeader = "X-Request-ID"
	// RequestIDContextKey - ключ для хранения Request ID в контексте gin.
	RequestIDContextKey = "request_id"
)

// RequestID добавляет уникальный ID к каждому запросу.
// Если клиент передаёт X-Request-ID - используем его, иначе генерируем UUID.
// ID также кладётся в request context для ContextHandler логгера.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDContextKey, requestID)
		c.Header(RequestIDHeader, requestID)

		ctx := logger.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetRequestID извлекает Request ID из контекста gin.
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(RequestIDContextKey); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
