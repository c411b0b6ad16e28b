// Package common содержит общие типы HTTP-слоя.
//
// Вынесен в отдельный пакет, чтобы избежать циклических импортов
// между handlers и основным http-пакетом.
package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/novafin/wallet/internal/domain/errors"
)

// APIResponse - стандартный формат ответа API.
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	RequestID string      `json:"request_id"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError - структура ошибки API.
type APIError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// FieldError - ошибка конкретного поля.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

const RequestIDKey = "request_id"

// GetRequestID возвращает Request ID из контекста gin.
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(RequestIDKey); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

// Success отправляет успешный ответ.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, APIResponse{
		Success:   true,
		Data:      data,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// Error отправляет ответ с ошибкой.
func Error(c *gin.Context, statusCode int, apiError *APIError) {
	c.JSON(statusCode, APIResponse{
		Success:   false,
		Error:     apiError,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// BadRequestResponse - 400.
func BadRequestResponse(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, &APIError{
		Code:    string(domainErrors.KindValidation),
		Message: message,
	})
}

// ValidationErrorResponse - 400 с ошибками полей.
func ValidationErrorResponse(c *gin.Context, fields []FieldError) {
	Error(c, http.StatusBadRequest, &APIError{
		Code:    string(domainErrors.KindValidation),
		Message: "Request validation failed",
		Fields:  fields,
	})
}

// UnauthorizedResponse - 401.
func UnauthorizedResponse(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, &APIError{
		Code:    "UNAUTHORIZED",
		Message: message,
	})
}

// statusByKind - единственная точка маппинга доменных классов в HTTP-статусы.
var statusByKind = map[domainErrors.Kind]int{
	domainErrors.KindNoWallet:          http.StatusNotFound,
	domainErrors.KindIdempotentlyDone:  http.StatusBadRequest,
	domainErrors.KindValidation:        http.StatusBadRequest,
	domainErrors.KindNoProviderAccount: http.StatusServiceUnavailable,
	domainErrors.KindInsufficientFunds: http.StatusPreconditionFailed,
	domainErrors.KindProviderLiquidity: http.StatusPreconditionFailed,
	domainErrors.KindUnsupported:       http.StatusNotImplemented,
}

// HandleDomainError преобразует доменную ошибку в HTTP-ответ.
// Внутренние детали (storage, bus, provider) наружу не уходят.
func HandleDomainError(c *gin.Context, err error) {
	// Повтор с сохранившимся результатом: отказ несёт кэшированный итог.
	var done *domainErrors.IdempotentlyDoneError
	if errors.As(err, &done) && len(done.CachedResult) > 0 {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Data:    json.RawMessage(done.CachedResult),
			Error: &APIError{
				Code:    string(domainErrors.KindIdempotentlyDone),
				Message: "Operation is already done",
			},
			RequestID: GetRequestID(c),
			Timestamp: time.Now().UTC(),
		})
		return
	}

	if domainErrors.IsValidation(err) {
		var ve domainErrors.ValidationError
		if asValidation(err, &ve) {
			Error(c, http.StatusBadRequest, &APIError{
				Code:    string(domainErrors.KindValidation),
				Message: "Request validation failed",
				Fields:  []FieldError{{Field: ve.Field, Message: ve.Message}},
			})
			return
		}
		BadRequestResponse(c, err.Error())
		return
	}

	kind := domainErrors.KindOf(err)
	if status, ok := statusByKind[kind]; ok {
		Error(c, status, &APIError{
			Code:    string(kind),
			Message: publicMessage(kind, err),
		})
		return
	}

	Error(c, http.StatusInternalServerError, &APIError{
		Code:    string(domainErrors.KindInternal),
		Message: "An unexpected error occurred",
	})
}

// publicMessage - сообщение, безопасное для клиента.
func publicMessage(kind domainErrors.Kind, err error) string {
	switch kind {
	case domainErrors.KindNoWallet:
		return "Wallet not found"
	case domainErrors.KindIdempotentlyDone:
		return "Operation is already done"
	case domainErrors.KindNoProviderAccount:
		return "Provider account is not available"
	case domainErrors.KindInsufficientFunds:
		return "Insufficient funds"
	case domainErrors.KindProviderLiquidity:
		return "Provider liquidity exhausted"
	case domainErrors.KindUnsupported:
		return "Operation is not supported"
	default:
		return err.Error()
	}
}

func asValidation(err error, target *domainErrors.ValidationError) bool {
	for e := err; e != nil; e = unwrap(e) {
		if v, ok := e.(domainErrors.ValidationError); ok {
			*target = v
			return true
		}
	}
	return false
}

func unwrap(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}
