// Package middleware - authentication middleware.
//
// Платформа не хранит пользователей: их владелец - auth-сервис.
// Сюда приходит сервисный JWT с числовым user_id в claims; подпись
// проверяется общим секретом.
package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/novafin/wallet/internal/pkg/logger"
)

const (
	// AuthUserIDKey - ключ для хранения user ID в контексте gin.
	AuthUserIDKey = "auth_user_id"
)

// AuthConfig - конфигурация authentication middleware.
type AuthConfig struct {
	Secret    string
	Issuer    string
	SkipPaths []string // пути без авторизации (вебхуки, health)
}

// Auth проверяет Bearer JWT и кладёт user_id в контекст.
//
// Вебхуки провайдеров идут мимо: их аутентификация - подпись payload'а,
// проверяемая в шлюзе.
func Auth(config *AuthConfig) gin.HandlerFunc {
	skipMap := make(map[string]bool)
	for _, path := range config.SkipPaths {
		skipMap[path] = true
	}

	return func(c *gin.Context) {
		if skipMap[c.Request.URL.Path] {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithUnauthorized(c, "Authorization header is required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			abortWithUnauthorized(c, "Invalid authorization header format")
			return
		}

		userID, err := validateToken(parts[1], config.Secret, config.Issuer)
		if err != nil {
			abortWithUnauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(AuthUserIDKey, userID)
		ctx := logger.WithUserID(c.Request.Context(), strconv.FormatInt(userID, 10))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// validateToken парсит и проверяет сервисный JWT, возвращает user_id.
func validateToken(tokenStr, secret, issuer string) (int64, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, fmt.Errorf("invalid token claims")
	}

	switch v := claims["user_id"].(type) {
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("user_id claim missing")
	}
}

// GetUserID извлекает аутентифицированный user ID из контекста gin.
func GetUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get(AuthUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// abortWithUnauthorized отправляет 401 ответ.
func abortWithUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
		"request_id": GetRequestID(c),
		"timestamp":  time.Now().UTC(),
	})
}
