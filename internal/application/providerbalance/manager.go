// Package providerbalance - учёт доступной ликвидности платёжных провайдеров.
//
// Баланс каждого провайдера ведётся одной строкой в его расчётной валюте.
// Дельты в других валютах нормализуются по текущим FX-курсам перед
// применением: normalized = delta * rate(from) / rate(settlement).
package providerbalance

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/novafin/wallet/internal/application/ports"
	"github.com/novafin/wallet/internal/domain/entities"
	domainErrors "github.com/novafin/wallet/internal/domain/errors"
	"github.com/novafin/wallet/internal/domain/valueobjects"
)

// Manager применяет дельты к ликвидности провайдера.
// Вызывать внутри UnitOfWork: строка берётся под FOR UPDATE.
type Manager struct {
	balances   ports.ProviderBalanceRepository
	currencies ports.CurrencyRepository
}

// NewManager создаёт Manager.
func NewManager(balances ports.ProviderBalanceRepository, currencies ports.CurrencyRepository) *Manager {
	return &Manager{balances: balances, currencies: currencies}
}

// normalize пересчитывает сумму в расчётную валюту провайдера.
func (m *Manager) normalize(ctx context.Context, amount valueobjects.Money, settlement valueobjects.Currency) (decimal.Decimal, error) {
	if amount.Currency().Equals(settlement) {
		return amount.Decimal(), nil
	}

	rateFrom, err := m.currencies.GetRate(ctx, amount.Currency())
	if err != nil {
		return decimal.Zero, err
	}
	rateTo, err := m.currencies.GetRate(ctx, settlement)
	if err != nil {
		return decimal.Zero, err
	}
	if rateTo.RateToBase.IsZero() {
		return decimal.Zero, fmt.Errorf("zero rate for settlement currency %s", settlement.Code())
	}
	return amount.Decimal().Mul(rateFrom.RateToBase).Div(rateTo.RateToBase), nil
}

// ChangeAmount применяет дельту (положительную или отрицательную) к балансу
// провайдера. Строка создаётся при первом положительном дельте.
// Нижняя граница здесь не проверяется: допуск выплаты решает HasLiquidity
// на admission, а учёт обязан отражать фактическое движение средств.
func (m *Manager) ChangeAmount(ctx context.Context, provider entities.Provider, delta valueobjects.Money) error {
	settlement := provider.SettlementCurrency()

	normalized, err := m.normalize(ctx, delta, settlement)
	if err != nil {
		return err
	}

	balance, err := m.balances.FindForUpdate(ctx, provider)
	if err != nil {
		return err
	}

	if balance == nil {
		if normalized.IsNegative() {
			return domainErrors.New(domainErrors.KindProviderLiquidity,
				fmt.Sprintf("provider %s has no liquidity", provider),
				domainErrors.ErrProviderLiquidity)
		}
		_, err := m.balances.Create(ctx, &entities.ProviderBalance{
			Provider:        provider,
			Currency:        settlement,
			AvailableAmount: normalized.InexactFloat64(),
			UpdatedAt:       time.Now().UTC(),
		})
		return err
	}

	updated := decimal.NewFromFloat(balance.AvailableAmount).Add(normalized)

	balance.AvailableAmount = updated.InexactFloat64()
	return m.balances.UpdateAmount(ctx, balance)
}

// HasLiquidity проверяет, хватает ли у провайдера средств на выплату amount.
// Сумма нормализуется в расчётную валюту провайдера перед сравнением.
func (m *Manager) HasLiquidity(ctx context.Context, provider entities.Provider, amount valueobjects.Money) (bool, error) {
	normalized, err := m.normalize(ctx, amount, provider.SettlementCurrency())
	if err != nil {
		return false, err
	}

	balance, err := m.balances.FindForUpdate(ctx, provider)
	if err != nil {
		return false, err
	}
	if balance == nil {
		return false, nil
	}
	return decimal.NewFromFloat(balance.AvailableAmount).GreaterThanOrEqual(normalized), nil
}
