package providerbalance

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/novafin/wallet/internal/domain/entities"
	domainErrors "github.com/novafin/wallet/internal/domain/errors"
	"github.com/novafin/wallet/internal/domain/valueobjects"
)

type memBalanceRepo struct {
	balances map[entities.Provider]*entities.ProviderBalance
	created  int
}

func newMemBalanceRepo() *memBalanceRepo {
	return &memBalanceRepo{balances: make(map[entities.Provider]*entities.ProviderBalance)}
}

func (r *memBalanceRepo) FindForUpdate(ctx context.Context, provider entities.Provider) (*entities.ProviderBalance, error) {
	return r.balances[provider], nil
}

func (r *memBalanceRepo) Create(ctx context.Context, balance *entities.ProviderBalance) (*entities.ProviderBalance, error) {
	r.created++
	r.balances[balance.Provider] = balance
	return balance, nil
}

func (r *memBalanceRepo) UpdateAmount(ctx context.Context, balance *entities.ProviderBalance) error {
	r.balances[balance.Provider] = balance
	return nil
}

type ratesRepo struct {
	rates map[valueobjects.Currency]decimal.Decimal
}

func (r *ratesRepo) GetRate(ctx context.Context, code valueobjects.Currency) (*entities.CurrencyRate, error) {
	rate, ok := r.rates[code]
	if !ok {
		return nil, domainErrors.ErrCurrencyUnknown
	}
	return &entities.CurrencyRate{Code: code, RateToBase: rate}, nil
}

func (r *ratesRepo) Upsert(ctx context.Context, rate *entities.CurrencyRate) error { return nil }

func money(t *testing.T, amount string, currency valueobjects.Currency) valueobjects.Money {
	t.Helper()
	m, err := valueobjects.NewMoney(amount, currency)
	if err != nil {
		t.Fatalf("failed to build money: %v", err)
	}
	return m
}

// TestChangeAmount_CreatesRow тестирует создание строки при первом зачислении
func TestChangeAmount_CreatesRow(t *testing.T) {
	repo := newMemBalanceRepo()
	m := NewManager(repo, &ratesRepo{})

	err := m.ChangeAmount(context.Background(), entities.ProviderStripe, money(t, "500.00", valueobjects.USD))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.created != 1 {
		t.Errorf("expected 1 created row, got %d", repo.created)
	}
	balance := repo.balances[entities.ProviderStripe]
	if balance.AvailableAmount != 500 {
		t.Errorf("balance = %v, want 500", balance.AvailableAmount)
	}
	if balance.Currency != valueobjects.USD {
		t.Errorf("currency = %s, want USD", balance.Currency)
	}
}

// TestChangeAmount_Deltas тестирует последовательные дельты
func TestChangeAmount_Deltas(t *testing.T) {
	repo := newMemBalanceRepo()
	m := NewManager(repo, &ratesRepo{})
	ctx := context.Background()

	if err := m.ChangeAmount(ctx, entities.ProviderStripe, money(t, "500.00", valueobjects.USD)); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	neg, _ := valueobjects.Zero(valueobjects.USD).Sub(money(t, "200.00", valueobjects.USD))
	if err := m.ChangeAmount(ctx, entities.ProviderStripe, neg); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if got := repo.balances[entities.ProviderStripe].AvailableAmount; got != 300 {
		t.Errorf("balance = %v, want 300", got)
	}
}

// TestChangeAmount_BelowZero тестирует учёт фактического движения без нижней границы
func TestChangeAmount_BelowZero(t *testing.T) {
	repo := newMemBalanceRepo()
	m := NewManager(repo, &ratesRepo{})
	ctx := context.Background()

	if err := m.ChangeAmount(ctx, entities.ProviderStripe, money(t, "100.00", valueobjects.USD)); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	// Выплата ушла, курс уплыл: учёт обязан отразить факт, даже в минус.
	// Допуск выплаты проверяет HasLiquidity на admission, не здесь.
	neg, _ := valueobjects.Zero(valueobjects.USD).Sub(money(t, "150.00", valueobjects.USD))
	if err := m.ChangeAmount(ctx, entities.ProviderStripe, neg); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if got := repo.balances[entities.ProviderStripe].AvailableAmount; got != -50 {
		t.Errorf("balance = %v, want -50", got)
	}
}

// TestChangeAmount_NoRowDebit тестирует дебет провайдера без строки
func TestChangeAmount_NoRowDebit(t *testing.T) {
	m := NewManager(newMemBalanceRepo(), &ratesRepo{})

	neg, _ := valueobjects.Zero(valueobjects.USD).Sub(money(t, "50.00", valueobjects.USD))
	err := m.ChangeAmount(context.Background(), entities.ProviderStripe, neg)
	if !errors.Is(err, domainErrors.ErrProviderLiquidity) {
		t.Errorf("expected ErrProviderLiquidity, got %v", err)
	}
}

// TestChangeAmount_FXNormalization тестирует пересчёт в расчётную валюту
func TestChangeAmount_FXNormalization(t *testing.T) {
	repo := newMemBalanceRepo()
	rates := &ratesRepo{rates: map[valueobjects.Currency]decimal.Decimal{
		valueobjects.EUR: decimal.NewFromInt(100), // 1 EUR = 100 RUB
		valueobjects.USD: decimal.NewFromInt(80),  // 1 USD = 80 RUB
	}}
	m := NewManager(repo, rates)

	// 80 EUR * 100 / 80 = 100 USD
	err := m.ChangeAmount(context.Background(), entities.ProviderStripe, money(t, "80.00", valueobjects.EUR))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.balances[entities.ProviderStripe].AvailableAmount; got != 100 {
		t.Errorf("balance = %v, want 100", got)
	}
}

// TestHasLiquidity тестирует проверку достаточности средств
func TestHasLiquidity(t *testing.T) {
	repo := newMemBalanceRepo()
	m := NewManager(repo, &ratesRepo{})
	ctx := context.Background()

	// Нет строки - нет ликвидности
	ok, err := m.HasLiquidity(ctx, entities.ProviderStripe, money(t, "10.00", valueobjects.USD))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("missing row must mean no liquidity")
	}

	if err := m.ChangeAmount(ctx, entities.ProviderStripe, money(t, "100.00", valueobjects.USD)); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	ok, err = m.HasLiquidity(ctx, entities.ProviderStripe, money(t, "100.00", valueobjects.USD))
	if err != nil || !ok {
		t.Errorf("expected liquidity for exact amount, ok=%v err=%v", ok, err)
	}
	ok, err = m.HasLiquidity(ctx, entities.ProviderStripe, money(t, "100.01", valueobjects.USD))
	if err != nil || ok {
		t.Errorf("expected no liquidity above balance, ok=%v err=%v", ok, err)
	}
}
