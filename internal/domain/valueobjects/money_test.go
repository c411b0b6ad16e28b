package valueobjects

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

// TestNewMoney_ParsesDecimalString тестирует парсинг строки суммы
func TestNewMoney_ParsesDecimalString(t *testing.T) {
	m, err := NewMoney("100.50", USD)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.String() != "100.50 USD" {
		t.Errorf("expected '100.50 USD', got %q", m.String())
	}
}

// TestNewMoney_RejectsInvalidInput тестирует отказ на мусорном вводе
func TestNewMoney_RejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  error
	}{
		{"garbage", "abc", ErrInvalidAmount},
		{"empty", "", ErrInvalidAmount},
		{"negative", "-5.00", ErrNegativeAmount},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewMoney(tc.input, USD)
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

// TestNewMoneyFromMinorUnits тестирует точное деление minor units
func TestNewMoneyFromMinorUnits(t *testing.T) {
	m, err := NewMoneyFromMinorUnits(12345, USD)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.String() != "123.45 USD" {
		t.Errorf("expected '123.45 USD', got %q", m.String())
	}

	if _, err := NewMoneyFromMinorUnits(-1, USD); !errors.Is(err, ErrNegativeAmount) {
		t.Errorf("expected ErrNegativeAmount, got %v", err)
	}
}

// TestMoney_AddSub тестирует арифметику одной валюты
func TestMoney_AddSub(t *testing.T) {
	a, _ := NewMoney("10.10", USD)
	b, _ := NewMoney("0.90", USD)

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.String() != "11.00 USD" {
		t.Errorf("expected '11.00 USD', got %q", sum.String())
	}

	diff, err := a.Sub(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff.String() != "9.20 USD" {
		t.Errorf("expected '9.20 USD', got %q", diff.String())
	}
}

// TestMoney_CurrencyMismatch тестирует запрет операций над разными валютами
func TestMoney_CurrencyMismatch(t *testing.T) {
	usd, _ := NewMoney("10.00", USD)
	eur, _ := NewMoney("10.00", EUR)

	if _, err := usd.Add(eur); !errors.Is(err, ErrCurrencyMismatch) {
		t.Errorf("Add: expected ErrCurrencyMismatch, got %v", err)
	}
	if _, err := usd.Sub(eur); !errors.Is(err, ErrCurrencyMismatch) {
		t.Errorf("Sub: expected ErrCurrencyMismatch, got %v", err)
	}
	if _, err := usd.GreaterThanOrEqual(eur); !errors.Is(err, ErrCurrencyMismatch) {
		t.Errorf("GreaterThanOrEqual: expected ErrCurrencyMismatch, got %v", err)
	}
}

// TestMoney_Sub_AllowsNegativeResult: инвариант >= 0 живёт на счёте, не тут
func TestMoney_Sub_AllowsNegativeResult(t *testing.T) {
	a, _ := NewMoney("5.00", USD)
	b, _ := NewMoney("7.50", USD)

	diff, err := a.Sub(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !diff.IsNegative() {
		t.Errorf("expected negative result, got %s", diff.String())
	}
}

// TestMoney_Convert тестирует пересчёт через курсы к базовой валюте
func TestMoney_Convert(t *testing.T) {
	// 100 USD при rate(USD)=90, rate(EUR)=100 -> 100*90/100 = 90 EUR
	usd, _ := NewMoney("100", USD)
	rateUSD := decimal.NewFromInt(90)
	rateEUR := decimal.NewFromInt(100)

	eur, err := usd.Convert(EUR, rateUSD, rateEUR)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eur.String() != "90.00 EUR" {
		t.Errorf("expected '90.00 EUR', got %q", eur.String())
	}
	if !eur.Currency().Equals(EUR) {
		t.Errorf("expected EUR, got %s", eur.Currency().Code())
	}
}

// TestMoney_Convert_BankersRounding тестирует округление half-even
func TestMoney_Convert_BankersRounding(t *testing.T) {
	// 1 USD * 1 / 8 = 0.125 -> half-even до 2 знаков даёт 0.12
	one, _ := NewMoney("1", USD)
	converted, err := one.Convert(EUR, decimal.NewFromInt(1), decimal.NewFromInt(8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if converted.Decimal().String() != "0.12" {
		t.Errorf("expected 0.12 (half-even), got %s", converted.Decimal().String())
	}

	// 0.135 -> 0.14 (сосед чётный)
	m, _ := NewMoney("0.135", USD)
	if got := m.Round().Decimal().String(); got != "0.14" {
		t.Errorf("expected 0.14, got %s", got)
	}
	// 0.125 -> 0.12
	m2, _ := NewMoney("0.125", USD)
	if got := m2.Round().Decimal().String(); got != "0.12" {
		t.Errorf("expected 0.12, got %s", got)
	}
}

// TestMoney_Convert_ZeroRate тестирует отказ при нулевом курсе
func TestMoney_Convert_ZeroRate(t *testing.T) {
	m, _ := NewMoney("100", USD)
	if _, err := m.Convert(EUR, decimal.NewFromInt(90), decimal.Zero); err == nil {
		t.Error("expected error for zero target rate")
	}
}

// TestMoney_Predicates тестирует IsZero / IsPositive / сравнение
func TestMoney_Predicates(t *testing.T) {
	zero := Zero(USD)
	if !zero.IsZero() || zero.IsPositive() || zero.IsNegative() {
		t.Error("Zero must be zero, not positive, not negative")
	}

	a, _ := NewMoney("10.00", USD)
	b, _ := NewMoney("10.00", USD)
	ok, err := a.GreaterThanOrEqual(b)
	if err != nil || !ok {
		t.Errorf("expected 10.00 >= 10.00, got ok=%v err=%v", ok, err)
	}
	if !a.Equals(b) {
		t.Error("expected equal amounts to be Equals")
	}
}
