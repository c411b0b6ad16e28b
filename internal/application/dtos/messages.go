// Package dtos - контракты между слоями: команды use case'ов, ответные DTO
// и wire-схемы сообщений шины.
package dtos

import (
	"encoding/json"
	"fmt"
)

// WorkItem - сообщение топика wallet.transaction.request.
// JSON-схема фиксирована (легаси-контракт воркера): суммы - number,
// decimal-преобразование происходит на границах.
type WorkItem struct {
	Operation      string  `json:"operation"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	ToCurrency     *string `json:"to_currency,omitempty"`
	WalletID       int64   `json:"wallet_id"`
	ToWalletID     *int64  `json:"to_wallet_id,omitempty"`
	IdempotencyKey string  `json:"idempotency_key"`
	CorrelationID  string  `json:"correlation_id"`
	Retries        int     `json:"retries"`
}

// Validate проверяет обязательные поля work item'а.
func (w *WorkItem) Validate() error {
	if w.IdempotencyKey == "" || w.CorrelationID == "" {
		return fmt.Errorf("work item missing idempotency_key/correlation_id")
	}
	if w.Amount <= 0 {
		return fmt.Errorf("work item amount must be positive, got %v", w.Amount)
	}
	switch w.Operation {
	case "convert":
		if w.ToCurrency == nil || *w.ToCurrency == "" {
			return fmt.Errorf("convert requires to_currency")
		}
	case "transfer":
		if w.ToWalletID == nil || *w.ToWalletID == 0 {
			return fmt.Errorf("transfer requires to_wallet_id")
		}
	case "deposit", "withdraw":
	default:
		return fmt.Errorf("unknown operation %q", w.Operation)
	}
	return nil
}

// Encode сериализует work item в JSON.
func (w *WorkItem) Encode() ([]byte, error) { return json.Marshal(w) }

// DecodeWorkItem парсит сообщение топика запросов.
func DecodeWorkItem(payload []byte) (*WorkItem, error) {
	var w WorkItem
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("failed to decode work item: %w", err)
	}
	return &w, nil
}

// WorkResult - сообщение топика wallet.transaction.result.
// Этот же JSON кладётся в idempotency-кэш как терминальный результат.
type WorkResult struct {
	Status         string  `json:"status"` // "success" | "error"
	Operation      string  `json:"operation"`
	WalletID       int64   `json:"wallet_id"`
	Amount         float64 `json:"amount"`
	IdempotencyKey string  `json:"idempotency_key"`
	CorrelationID  string  `json:"correlation_id"`
}

// Encode сериализует результат в JSON.
func (r *WorkResult) Encode() ([]byte, error) { return json.Marshal(r) }
