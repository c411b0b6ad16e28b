package handlers

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/novafin/wallet/internal/adapters/http/common"
	"github.com/novafin/wallet/internal/domain/valueobjects"
)

var setupOnce sync.Once

// SetupValidator настраивает кастомные валидаторы для Gin.
func SetupValidator() {
	setupOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			// json tag вместо имени поля в ошибках
			v.RegisterTagNameFunc(func(fld reflect.StructField) string {
				name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
				if name == "-" {
					return ""
				}
				return name
			})

			_ = v.RegisterValidation("currency_code", validateCurrencyCode)
			_ = v.RegisterValidation("money_amount", validateMoneyAmount)
			_ = v.RegisterValidation("gateway", validateGateway)
		}
	})
}

// validateCurrencyCode проверяет, что код валюты поддержан платформой.
func validateCurrencyCode(fl validator.FieldLevel) bool {
	return valueobjects.IsSupported(fl.Field().String())
}

// validateMoneyAmount проверяет формат суммы (decimal string, до 8 знаков).
var moneyPattern = regexp.MustCompile(`^\d+(\.\d{1,8})?$`)

func validateMoneyAmount(fl validator.FieldLevel) bool {
	return moneyPattern.MatchString(fl.Field().String())
}

// validateGateway проверяет идентификатор платёжного шлюза.
func validateGateway(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "stripe", "cloudpayments":
		return true
	}
	return false
}

// HandleBindingError преобразует ошибки биндинга в HTTP-ответ.
func HandleBindingError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		common.BadRequestResponse(c, "Invalid request body: "+err.Error())
		return
	}

	fields := make([]common.FieldError, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields = append(fields, common.FieldError{
			Field:   fieldErr.Field(),
			Message: validationMessage(fieldErr),
		})
	}
	common.ValidationErrorResponse(c, fields)
}

// validationMessage возвращает человекочитаемое сообщение об ошибке.
func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "uuid":
		return "Invalid UUID format"
	case "gt":
		return "Value must be greater than " + fe.Param()
	case "currency_code":
		return "Unsupported currency code"
	case "money_amount":
		return "Invalid amount format (use decimal like '100.50')"
	case "gateway":
		return "Unknown payment gateway"
	default:
		return "Invalid value"
	}
}
