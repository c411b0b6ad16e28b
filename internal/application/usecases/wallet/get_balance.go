package wallet

import (
	"context"
	"fmt"

	"github.com/novafin/wallet/internal/application/dtos"
	"github.com/novafin/wallet/internal/application/ports"
	"github.com/novafin/wallet/internal/domain/errors"
	"github.com/novafin/wallet/internal/domain/valueobjects"
)

// GetBalanceUseCase - чтение баланса пользователя.
// Read-only: без UnitOfWork, без блокировок.
type GetBalanceUseCase struct {
	walletRepo  ports.WalletRepository
	accountRepo ports.AccountRepository
}

// NewGetBalanceUseCase создаёт новый use case.
func NewGetBalanceUseCase(walletRepo ports.WalletRepository, accountRepo ports.AccountRepository) *GetBalanceUseCase {
	return &GetBalanceUseCase{walletRepo: walletRepo, accountRepo: accountRepo}
}

// Execute возвращает счета кошелька пользователя (все или по валюте).
// Отсутствующий счёт в запрошенной валюте - пустой список, не ошибка.
func (uc *GetBalanceUseCase) Execute(ctx context.Context, query dtos.GetBalanceQuery) (*dtos.BalanceDTO, error) {
	wallet, err := uc.walletRepo.FindByUserID(ctx, query.UserID)
	if err != nil {
		return nil, err
	}

	var currency *valueobjects.Currency
	if query.Currency != "" {
		c, err := valueobjects.NewCurrency(query.Currency)
		if err != nil {
			return nil, errors.ValidationError{Field: "currency", Message: err.Error()}
		}
		currency = &c
	}

	accounts, err := uc.accountRepo.FindByWallet(ctx, wallet.ID(), currency)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}

	result := &dtos.BalanceDTO{
		UserID:   query.UserID,
		Balances: make([]dtos.BalanceEntryDTO, 0, len(accounts)),
	}
	for _, acc := range accounts {
		result.Balances = append(result.Balances, dtos.BalanceEntryDTO{
			Currency: acc.Currency().Code(),
			Amount:   acc.Amount().Decimal().StringFixed(valueobjects.AccountScale),
			Kind:     string(acc.Kind()),
		})
	}
	return result, nil
}
