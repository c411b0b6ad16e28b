// Package errors определяет доменные ошибки кошелькового ядра.
// Типизированные ошибки вместо строк: клиенты обрабатывают конкретные случаи,
// транспортный слой маппит их в коды на границе.
//
// Pattern: Sentinel Errors + Kind классификация.
package errors

import (
	"errors"
	"fmt"
)

// Kind - семантический класс ошибки (не транспортный код).
// Маппинг в HTTP-статусы выполняет единственная boundary-функция
// в adapters/http/common.
type Kind string

const (
	KindNoWallet            Kind = "NO_WALLET"
	KindIdempotentlyDone    Kind = "IDEMPOTENTLY_DONE"
	KindNoProviderAccount   Kind = "NO_PROVIDER_ACCOUNT"
	KindInsufficientFunds   Kind = "INSUFFICIENT_FUNDS"
	KindProviderLiquidity   Kind = "PROVIDER_LIQUIDITY_EXHAUSTED"
	KindUnsupported         Kind = "UNSUPPORTED"
	KindValidation          Kind = "VALIDATION_ERROR"
	KindStorage             Kind = "STORAGE_ERROR"
	KindBus                 Kind = "BUS_ERROR"
	KindCache               Kind = "CACHE_ERROR"
	KindProvider            Kind = "PROVIDER_ERROR"
	KindInternal            Kind = "INTERNAL_ERROR"
)

// Sentinel-ошибки admission-правил оркестратора.
var (
	ErrNoWallet           = errors.New("wallet not found")
	ErrIdempotentlyDone   = errors.New("idempotent operation already processed")
	ErrNoProviderAccount  = errors.New("provider account not linked")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrProviderLiquidity  = errors.New("insufficient provider liquidity")
	ErrUnsupportedGateway = errors.New("payment gateway not supported")
	ErrAccountNotFound    = errors.New("wallet account not found")
	ErrEntityNotFound     = errors.New("entity not found")
	ErrCurrencyUnknown    = errors.New("currency rate not found")
)

// DomainError - ошибка с классом, кодом и человеко-читаемым сообщением.
// Сохраняет цепочку через Unwrap для errors.Is / errors.As.
type DomainError struct {
	Kind    Kind
	Message string
	Err     error
}

// Error реализует интерфейс error.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap возвращает причину для errors.Is / errors.As.
func (e *DomainError) Unwrap() error { return e.Err }

// New создаёт DomainError.
func New(kind Kind, message string, err error) *DomainError {
	return &DomainError{Kind: kind, Message: message, Err: err}
}

// KindOf классифицирует произвольную ошибку.
// Sentinel-ошибки получают свой класс, всё остальное - INTERNAL.
func KindOf(err error) Kind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}

	switch {
	case errors.Is(err, ErrNoWallet), errors.Is(err, ErrEntityNotFound), errors.Is(err, ErrAccountNotFound):
		return KindNoWallet
	case errors.Is(err, ErrIdempotentlyDone):
		return KindIdempotentlyDone
	case errors.Is(err, ErrNoProviderAccount):
		return KindNoProviderAccount
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ErrProviderLiquidity):
		return KindProviderLiquidity
	case errors.Is(err, ErrUnsupportedGateway):
		return KindUnsupported
	default:
		return KindInternal
	}
}

// IdempotentlyDoneError - повторная подача по обработанному ключу,
// для которого в кэше ещё лежит терминальный результат операции.
// Результат отдаётся клиенту вместе с отказом.
type IdempotentlyDoneError struct {
	CachedResult []byte
}

// Error реализует интерфейс error.
func (e *IdempotentlyDoneError) Error() string { return ErrIdempotentlyDone.Error() }

// Unwrap связывает ошибку с sentinel'ом для errors.Is.
func (e *IdempotentlyDoneError) Unwrap() error { return ErrIdempotentlyDone }

// ValidationError - ошибка валидации входных данных на уровне поля.
type ValidationError struct {
	Field   string
	Message string
}

// Error реализует интерфейс error.
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}

// Хелперы проверки.

// IsNotFound - ошибка "не найдено" (кошелёк, счёт, запись).
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound) ||
		errors.Is(err, ErrNoWallet) ||
		errors.Is(err, ErrAccountNotFound)
}

// IsIdempotentlyDone - повторная подача по уже обработанному ключу.
func IsIdempotentlyDone(err error) bool {
	return errors.Is(err, ErrIdempotentlyDone)
}

// IsValidation - ошибка валидации входных данных.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
