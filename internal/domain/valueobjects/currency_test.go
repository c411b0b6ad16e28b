package valueobjects

import "testing"

// TestNewCurrency_Normalization тестирует case-insensitive парсинг кода
func TestNewCurrency_Normalization(t *testing.T) {
	cases := []struct {
		input string
		want  Currency
	}{
		{"usd", USD},
		{"Usd", USD},
		{" RUB ", RUB},
		{"usdt", USDT},
	}

	for _, tc := range cases {
		c, err := NewCurrency(tc.input)
		if err != nil {
			t.Errorf("NewCurrency(%q): unexpected error: %v", tc.input, err)
			continue
		}
		if c != tc.want {
			t.Errorf("NewCurrency(%q) = %s, want %s", tc.input, c, tc.want)
		}
	}
}

// TestNewCurrency_Unsupported тестирует отказ на неизвестном коде
func TestNewCurrency_Unsupported(t *testing.T) {
	for _, code := range []string{"XYZ", "", "DOGE"} {
		if _, err := NewCurrency(code); err == nil {
			t.Errorf("NewCurrency(%q): expected error", code)
		}
	}
}

// TestCurrency_Kind тестирует разделение fiat / crypto
func TestCurrency_Kind(t *testing.T) {
	if USD.Kind() != AccountKindFiat {
		t.Errorf("USD kind = %s, want fiat", USD.Kind())
	}
	if BTC.Kind() != AccountKindCrypto {
		t.Errorf("BTC kind = %s, want crypto", BTC.Kind())
	}
	if !USDT.IsCrypto() {
		t.Error("USDT must be crypto")
	}
	if RUB.IsCrypto() {
		t.Error("RUB must not be crypto")
	}
}

// TestCurrency_Lower тестирует формат провайдеров
func TestCurrency_Lower(t *testing.T) {
	if USD.Lower() != "usd" {
		t.Errorf("USD.Lower() = %q, want usd", USD.Lower())
	}
}

// TestIsSupported тестирует фильтр FX-фида
func TestIsSupported(t *testing.T) {
	if !IsSupported("eur") {
		t.Error("eur must be supported")
	}
	if IsSupported("AUD") {
		t.Error("AUD must not be supported")
	}
}
