// Package valueobjects содержит value objects денежного домена: валюту и сумму.
package valueobjects

import (
	"fmt"
	"strings"
)

// AccountKind - тип счёта, определяется валютой (fiat / crypto).
type AccountKind string

const (
	AccountKindFiat   AccountKind = "fiat"
	AccountKindCrypto AccountKind = "crypto"
)

// IsValid проверяет корректность типа счёта.
func (k AccountKind) IsValid() bool {
	return k == AccountKindFiat || k == AccountKindCrypto
}

// Currency - поддерживаемая валюта платформы.
//
// Базовая валюта платформы - RUB (rate_to_base = 1.0).
// Остальные курсы хранятся в таблице currencies и обновляются FX refresher'ом.
type Currency string

const (
	RUB Currency = "RUB"
	USD Currency = "USD"
	EUR Currency = "EUR"

	// Крипта
	BTC  Currency = "BTC"
	ETH  Currency = "ETH"
	USDT Currency = "USDT"
)

// BaseCurrency - якорная валюта курсов.
const BaseCurrency = RUB

var supportedCurrencies = map[Currency]AccountKind{
	RUB:  AccountKindFiat,
	USD:  AccountKindFiat,
	EUR:  AccountKindFiat,
	BTC:  AccountKindCrypto,
	ETH:  AccountKindCrypto,
	USDT: AccountKindCrypto,
}

// NewCurrency парсит код валюты (case-insensitive).
// Возвращает ошибку для неизвестных кодов.
func NewCurrency(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if _, ok := supportedCurrencies[c]; !ok {
		return "", fmt.Errorf("unsupported currency code: %q", code)
	}
	return c, nil
}

// IsSupported проверяет, известен ли код платформе.
// Используется FX refresher'ом: неизвестные коды из внешнего фида пропускаются.
func IsSupported(code string) bool {
	_, ok := supportedCurrencies[Currency(strings.ToUpper(code))]
	return ok
}

// Code возвращает строковый код валюты.
func (c Currency) Code() string {
	return string(c)
}

// Lower возвращает код в нижнем регистре (формат провайдеров).
func (c Currency) Lower() string {
	return strings.ToLower(string(c))
}

// Kind возвращает тип счёта для валюты.
func (c Currency) Kind() AccountKind {
	if kind, ok := supportedCurrencies[c]; ok {
		return kind
	}
	return AccountKindFiat
}

// IsCrypto возвращает true для криптовалют.
func (c Currency) IsCrypto() bool {
	return c.Kind() == AccountKindCrypto
}

// Equals сравнивает валюты.
func (c Currency) Equals(other Currency) bool {
	return c == other
}
