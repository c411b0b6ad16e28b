package entities

import (
	"time"

	"github.com/novafin/wallet/internal/domain/valueobjects"
	"github.com/shopspring/decimal"
)

// Provider - платёжный шлюз.
type Provider string

const (
	ProviderStripe        Provider = "stripe"
	ProviderCloudPayments Provider = "cloudpayments"
)

// IsValid проверяет известность провайдера.
func (p Provider) IsValid() bool {
	return p == ProviderStripe || p == ProviderCloudPayments
}

// SettlementCurrency - расчётная валюта провайдера.
// Баланс провайдера ведётся в ней; входящие суммы в других валютах
// нормализуются по текущему FX-курсу.
func (p Provider) SettlementCurrency() valueobjects.Currency {
	switch p {
	case ProviderStripe:
		return valueobjects.USD
	default:
		return valueobjects.USD
	}
}

// ProviderBalance - доступная ликвидность внутри провайдера.
// Одна строка на провайдера, валюта фиксирована.
type ProviderBalance struct {
	ID              int64
	Provider        Provider
	Currency        valueobjects.Currency
	AvailableAmount float64
	UpdatedAt       time.Time
}

// LinkedAccount - связанный аккаунт пользователя у провайдера
// (например, Stripe Express account для выплат).
type LinkedAccount struct {
	ID                int64
	UserID            int64
	Provider          Provider
	ExternalAccountID string
	CreatedAt         time.Time
}

// CurrencyRate - строка таблицы курсов: 1 единица code = RateToBase единиц
// базовой валюты (RUB). Обновляется FX refresher'ом.
type CurrencyRate struct {
	ID         int64
	Code       valueobjects.Currency
	RateToBase decimal.Decimal // numeric(18,6)
	UpdatedAt  time.Time
}
