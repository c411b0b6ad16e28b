package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/novafin/wallet/internal/domain/errors"
	"github.com/novafin/wallet/internal/domain/valueobjects"
)

// OperationType - тип операции движения средств.
type OperationType string

const (
	OperationDeposit  OperationType = "deposit"
	OperationWithdraw OperationType = "withdraw"
	OperationTransfer OperationType = "transfer"
	OperationConvert  OperationType = "convert"
)

// IsValid проверяет корректность типа операции.
func (o OperationType) IsValid() bool {
	switch o {
	case OperationDeposit, OperationWithdraw, OperationTransfer, OperationConvert:
		return true
	default:
		return false
	}
}

// TransactionStatus - статус транзакции.
//
// Переходы образуют DAG:
//
//	pending → processed → {completed | failed | reversed}
//	pending → cancelled
//	pending → failed
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusProcessed TransactionStatus = "processed"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusReversed  TransactionStatus = "reversed"
	StatusCancelled TransactionStatus = "cancelled"
)

var statusTransitions = map[TransactionStatus][]TransactionStatus{
	StatusPending:   {StatusProcessed, StatusFailed, StatusCancelled},
	StatusProcessed: {StatusCompleted, StatusFailed, StatusReversed},
}

// CanTransition проверяет допустимость перехода статуса.
func (s TransactionStatus) CanTransition(to TransactionStatus) bool {
	for _, next := range statusTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Transaction - запись о намерении движения средств.
// Append-only кроме status и external_id; расчёт выполняется асинхронно воркером.
type Transaction struct {
	id             int64
	userID         int64
	walletID       int64
	toWalletID     *int64
	currency       valueobjects.Currency
	fromCurrency   *valueobjects.Currency
	toCurrency     *valueobjects.Currency
	amount         valueobjects.Money
	operation      OperationType
	status         TransactionStatus
	correlationID  uuid.UUID
	externalID     string
	idempotencyKey string
	provider       string
	date           time.Time
}

// NewTransaction создаёт транзакцию в статусе pending.
// correlation_id генерируется сервером и связывает намерение через
// оркестратор, воркер и result-топик.
func NewTransaction(
	userID, walletID int64,
	operation OperationType,
	amount valueobjects.Money,
	idempotencyKey string,
) (*Transaction, error) {
	if !operation.IsValid() {
		return nil, errors.ValidationError{Field: "operation", Message: fmt.Sprintf("unknown operation %q", operation)}
	}
	if idempotencyKey == "" {
		return nil, errors.ValidationError{Field: "idempotency_key", Message: "is required"}
	}
	if !amount.IsPositive() {
		return nil, errors.ValidationError{Field: "amount", Message: "must be greater than zero"}
	}

	return &Transaction{
		userID:         userID,
		walletID:       walletID,
		currency:       amount.Currency(),
		amount:         amount,
		operation:      operation,
		status:         StatusPending,
		correlationID:  uuid.New(),
		idempotencyKey: idempotencyKey,
		date:           time.Now().UTC(),
	}, nil
}

// ReconstructTransaction восстанавливает Transaction из БД.
func ReconstructTransaction(
	id, userID, walletID int64,
	toWalletID *int64,
	currency valueobjects.Currency,
	fromCurrency, toCurrency *valueobjects.Currency,
	amount valueobjects.Money,
	operation OperationType,
	status TransactionStatus,
	correlationID uuid.UUID,
	externalID, idempotencyKey, provider string,
	date time.Time,
) *Transaction {
	return &Transaction{
		id: id, userID: userID, walletID: walletID, toWalletID: toWalletID,
		currency: currency, fromCurrency: fromCurrency, toCurrency: toCurrency,
		amount: amount, operation: operation, status: status,
		correlationID: correlationID, externalID: externalID,
		idempotencyKey: idempotencyKey, provider: provider, date: date,
	}
}

func (t *Transaction) ID() int64                           { return t.id }
func (t *Transaction) UserID() int64                       { return t.userID }
func (t *Transaction) WalletID() int64                     { return t.walletID }
func (t *Transaction) ToWalletID() *int64                  { return t.toWalletID }
func (t *Transaction) Currency() valueobjects.Currency     { return t.currency }
func (t *Transaction) FromCurrency() *valueobjects.Currency { return t.fromCurrency }
func (t *Transaction) ToCurrency() *valueobjects.Currency  { return t.toCurrency }
func (t *Transaction) Amount() valueobjects.Money          { return t.amount }
func (t *Transaction) Operation() OperationType            { return t.operation }
func (t *Transaction) Status() TransactionStatus           { return t.status }
func (t *Transaction) CorrelationID() uuid.UUID            { return t.correlationID }
func (t *Transaction) ExternalID() string                  { return t.externalID }
func (t *Transaction) IdempotencyKey() string              { return t.idempotencyKey }
func (t *Transaction) Provider() string                    { return t.provider }
func (t *Transaction) Date() time.Time                     { return t.date }

// SetToWallet указывает кошелёк-получатель для transfer.
func (t *Transaction) SetToWallet(walletID int64) { t.toWalletID = &walletID }

// SetConversion указывает пару валют для convert.
func (t *Transaction) SetConversion(from, to valueobjects.Currency) {
	t.fromCurrency = &from
	t.toCurrency = &to
}

// SetProvider указывает платёжный шлюз (для deposit / withdraw).
func (t *Transaction) SetProvider(provider string) { t.provider = provider }

// SetExternalID сохраняет идентификатор объекта у провайдера
// (payment_intent id, payout id).
func (t *Transaction) SetExternalID(externalID string) { t.externalID = externalID }

// transition выполняет проверенный переход статуса.
func (t *Transaction) transition(to TransactionStatus) error {
	if !t.status.CanTransition(to) {
		return errors.New(errors.KindInternal,
			fmt.Sprintf("illegal status transition %s -> %s", t.status, to), nil)
	}
	t.status = to
	return nil
}

// MarkProcessed: pending → processed (вебхук подтверждён / работа отправлена в шину).
func (t *Transaction) MarkProcessed() error { return t.transition(StatusProcessed) }

// MarkCompleted: processed → completed (воркер применил изменение баланса).
func (t *Transaction) MarkCompleted() error { return t.transition(StatusCompleted) }

// MarkFailed: {pending, processed} → failed.
func (t *Transaction) MarkFailed() error { return t.transition(StatusFailed) }

// MarkReversed: processed → reversed (компенсирующее событие).
func (t *Transaction) MarkReversed() error { return t.transition(StatusReversed) }

// MarkCancelled: только из pending.
func (t *Transaction) MarkCancelled() error { return t.transition(StatusCancelled) }
