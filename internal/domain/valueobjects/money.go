package valueobjects

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money - денежная сумма с валютой.
//
// Хранится как decimal: счета кошелька ведутся с точностью 2 знака,
// промежуточная арифметика (конвертация) идёт в полной точности decimal
// и округляется только при финальной записи (banker's rounding).
//
// Immutable: все операции возвращают новый Money.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// AccountScale - число знаков после запятой у счетов кошелька.
const AccountScale = 2

var (
	ErrNegativeAmount   = errors.New("amount cannot be negative")
	ErrCurrencyMismatch = errors.New("cannot operate on different currencies")
	ErrInvalidAmount    = errors.New("invalid amount format")
)

// NewMoney парсит десятичную строку ("100.50") в Money.
func NewMoney(amountStr string, currency Currency) (Money, error) {
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %s", ErrInvalidAmount, amountStr)
	}
	if amount.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	return Money{amount: amount, currency: currency}, nil
}

// NewMoneyFromDecimal оборачивает decimal в Money.
func NewMoneyFromDecimal(amount decimal.Decimal, currency Currency) (Money, error) {
	if amount.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	return Money{amount: amount, currency: currency}, nil
}

// NewMoneyFromMinorUnits создаёт Money из минимальных единиц провайдера
// (центы, копейки). Провайдеры шлют суммы в minor units; деление на 100
// точное, без float.
func NewMoneyFromMinorUnits(minor int64, currency Currency) (Money, error) {
	if minor < 0 {
		return Money{}, ErrNegativeAmount
	}
	return Money{
		amount:   decimal.New(minor, -AccountScale),
		currency: currency,
	}, nil
}

// Zero - нулевая сумма в заданной валюте.
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Currency возвращает валюту суммы.
func (m Money) Currency() Currency { return m.currency }

// Decimal возвращает сумму как decimal.
func (m Money) Decimal() decimal.Decimal { return m.amount }

// String возвращает "100.50 USD".
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(AccountScale), m.currency.Code())
}

// Add складывает суммы одной валюты.
func (m Money) Add(other Money) (Money, error) {
	if !m.currency.Equals(other.currency) {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Sub вычитает. Отрицательный результат допустим на уровне value object;
// инвариант amount >= 0 обеспечивает счёт (entities.Account).
func (m Money) Sub(other Money) (Money, error) {
	if !m.currency.Equals(other.currency) {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// Convert пересчитывает сумму в другую валюту по курсам к базовой валюте:
// converted = amount * rateFrom / rateTo.
//
// Округление - banker's rounding (half-even) до масштаба счёта, как требует
// финальная запись; промежуточное деление идёт с полной точностью decimal.
func (m Money) Convert(to Currency, rateFrom, rateTo decimal.Decimal) (Money, error) {
	if rateTo.IsZero() {
		return Money{}, fmt.Errorf("zero rate for currency %s", to.Code())
	}
	converted := m.amount.Mul(rateFrom).Div(rateTo).RoundBank(AccountScale)
	return Money{amount: converted, currency: to}, nil
}

// Round округляет до масштаба счёта (half-even).
func (m Money) Round() Money {
	return Money{amount: m.amount.RoundBank(AccountScale), currency: m.currency}
}

// IsZero возвращает true для нулевой суммы.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// IsPositive возвращает true для суммы > 0.
func (m Money) IsPositive() bool { return m.amount.IsPositive() }

// IsNegative возвращает true для суммы < 0.
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// GreaterThanOrEqual сравнивает суммы одной валюты.
func (m Money) GreaterThanOrEqual(other Money) (bool, error) {
	if !m.currency.Equals(other.currency) {
		return false, ErrCurrencyMismatch
	}
	return m.amount.GreaterThanOrEqual(other.amount), nil
}

// Equals - равенство суммы и валюты.
func (m Money) Equals(other Money) bool {
	return m.currency.Equals(other.currency) && m.amount.Equal(other.amount)
}
