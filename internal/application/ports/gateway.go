package ports

import (
	"context"

	"github.com/novafin/wallet/internal/domain/entities"
	"github.com/novafin/wallet/internal/domain/valueobjects"
)

// CheckoutParams - параметры создания checkout-сессии депозита.
// wallet_id / transaction_id уходят в metadata и возвращаются вебхуком.
type CheckoutParams struct {
	Amount         valueobjects.Money
	WalletID       int64
	TransactionID  int64
	IdempotencyKey string
}

// PayoutParams - параметры выплаты на связанный аккаунт.
type PayoutParams struct {
	Amount            valueobjects.Money
	ExternalAccountID string
	WalletID          int64
	TransactionID     int64
	IdempotencyKey    string
}

// PayoutResult - результат выплаты у провайдера.
type PayoutResult struct {
	TransferID string
	PayoutID   string
	Status     string
}

// PaymentGateway - полиморфный адаптер внешнего платёжного провайдера.
// Первая реализация - Stripe; CloudPayments - заглушка.
type PaymentGateway interface {
	// Provider возвращает идентификатор провайдера.
	Provider() entities.Provider

	// CreateCheckoutSession создаёт hosted checkout и возвращает redirect URL.
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (string, error)

	// CreateConnectedAccount создаёт connected-аккаунт для выплат
	// и возвращает его внешний ID.
	CreateConnectedAccount(ctx context.Context, userID int64) (string, error)

	// OnboardingLink возвращает ссылку на hosted-форму онбординга аккаунта.
	OnboardingLink(ctx context.Context, externalAccountID string) (string, error)

	// VerifyAccountReady проверяет готовность аккаунта к выплатам.
	// Возвращает ErrNoProviderAccount если аккаунт заблокирован.
	VerifyAccountReady(ctx context.Context, externalAccountID string) error

	// Payout переводит средства на connected-аккаунт и создаёт выплату.
	Payout(ctx context.Context, params PayoutParams) (*PayoutResult, error)
}

// WebhookEvent - нормализованное событие вебхука провайдера.
// Суммы уже переведены из minor units в canonical decimal.
type WebhookEvent struct {
	IdempotencyKey    string
	ExternalPaymentID string
	Amount            valueobjects.Money
	Status            string
	Livemode          bool
	TransactionID     int64
	WalletID          int64
}
