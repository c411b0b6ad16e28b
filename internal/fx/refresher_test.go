package fx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/novafin/wallet/internal/domain/entities"
	domainErrors "github.com/novafin/wallet/internal/domain/errors"
	"github.com/novafin/wallet/internal/domain/valueobjects"
)

type memCurrencyRepo struct {
	rates map[valueobjects.Currency]decimal.Decimal
}

func newMemCurrencyRepo() *memCurrencyRepo {
	return &memCurrencyRepo{rates: make(map[valueobjects.Currency]decimal.Decimal)}
}

func (r *memCurrencyRepo) GetRate(ctx context.Context, code valueobjects.Currency) (*entities.CurrencyRate, error) {
	rate, ok := r.rates[code]
	if !ok {
		return nil, domainErrors.ErrCurrencyUnknown
	}
	return &entities.CurrencyRate{Code: code, RateToBase: rate}, nil
}

func (r *memCurrencyRepo) Upsert(ctx context.Context, rate *entities.CurrencyRate) error {
	r.rates[rate.Code] = rate.RateToBase
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const sampleFeed = `{
	"Valute": {
		"USD": {"CharCode": "USD", "Nominal": 1, "Value": 92.50},
		"EUR": {"CharCode": "EUR", "Nominal": 1, "Value": 100.20},
		"JPY": {"CharCode": "JPY", "Nominal": 100, "Value": 62.00},
		"AUD": {"CharCode": "AUD", "Nominal": 1, "Value": 60.00}
	}
}`

// TestParseFeed тестирует разбор схемы фида
func TestParseFeed(t *testing.T) {
	doc, err := parseFeed([]byte(sampleFeed))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Valute) != 4 {
		t.Errorf("expected 4 entries, got %d", len(doc.Valute))
	}
	if doc.Valute["USD"].Value.String() != "92.5" {
		t.Errorf("USD value = %s", doc.Valute["USD"].Value.String())
	}

	if _, err := parseFeed([]byte(`{"Valute": {}}`)); err == nil {
		t.Error("empty feed must be rejected")
	}
	if _, err := parseFeed([]byte(`{broken`)); err == nil {
		t.Error("malformed JSON must be rejected")
	}
}

// TestRefreshOnce тестирует полный цикл: fetch + upsert
func TestRefreshOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	repo := newMemCurrencyRepo()
	refresher := NewRefresher(repo, quietLogger(), WithFeedURL(srv.URL))

	if err := refresher.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Базовая валюта закреплена на 1.0
	if rate, ok := repo.rates[valueobjects.RUB]; !ok || !rate.Equal(decimal.NewFromInt(1)) {
		t.Errorf("RUB rate = %v, want 1", rate)
	}
	if rate, ok := repo.rates[valueobjects.USD]; !ok || rate.String() != "92.5" {
		t.Errorf("USD rate = %v, want 92.5", rate)
	}
	// Неизвестный платформе AUD пропущен
	for code := range repo.rates {
		if code.Code() == "AUD" {
			t.Error("unsupported currency must be skipped")
		}
	}
}

// TestRefreshOnce_NominalDivision тестирует нормализацию Value/Nominal
func TestRefreshOnce_NominalDivision(t *testing.T) {
	feed := `{"Valute": {"USD": {"CharCode": "USD", "Nominal": 10, "Value": 925.00}}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feed))
	}))
	defer srv.Close()

	repo := newMemCurrencyRepo()
	refresher := NewRefresher(repo, quietLogger(), WithFeedURL(srv.URL))

	if err := refresher.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rate := repo.rates[valueobjects.USD]; rate.String() != "92.5" {
		t.Errorf("USD rate = %s, want 92.5", rate.String())
	}
}

// TestRefreshOnce_SkipsMalformedEntries тестирует фильтр кривых записей
func TestRefreshOnce_SkipsMalformedEntries(t *testing.T) {
	feed := `{"Valute": {
		"USD": {"CharCode": "USD", "Nominal": 0, "Value": 92.50},
		"EUR": {"CharCode": "EUR", "Nominal": 1, "Value": -5}
	}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feed))
	}))
	defer srv.Close()

	repo := newMemCurrencyRepo()
	refresher := NewRefresher(repo, quietLogger(), WithFeedURL(srv.URL))

	if err := refresher.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := repo.rates[valueobjects.USD]; ok {
		t.Error("zero nominal must be skipped")
	}
	if _, ok := repo.rates[valueobjects.EUR]; ok {
		t.Error("negative value must be skipped")
	}
}
