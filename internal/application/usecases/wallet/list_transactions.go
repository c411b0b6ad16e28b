package wallet

import (
	"context"

	"github.com/novafin/wallet/internal/application/dtos"
	"github.com/novafin/wallet/internal/application/ports"
	"github.com/novafin/wallet/internal/domain/valueobjects"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListTransactionsUseCase - история транзакций кошелька пользователя.
type ListTransactionsUseCase struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
}

// NewListTransactionsUseCase создаёт новый use case.
func NewListTransactionsUseCase(walletRepo ports.WalletRepository, txRepo ports.TransactionRepository) *ListTransactionsUseCase {
	return &ListTransactionsUseCase{walletRepo: walletRepo, txRepo: txRepo}
}

// Execute возвращает страницу истории (новые сверху).
func (uc *ListTransactionsUseCase) Execute(ctx context.Context, query dtos.ListTransactionsQuery) (*dtos.TransactionListDTO, error) {
	wallet, err := uc.walletRepo.FindByUserID(ctx, query.UserID)
	if err != nil {
		return nil, err
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	txs, err := uc.txRepo.FindByWalletID(ctx, wallet.ID(), offset, limit)
	if err != nil {
		return nil, err
	}

	result := &dtos.TransactionListDTO{
		WalletID:     wallet.ID(),
		Transactions: make([]dtos.TransactionDTO, 0, len(txs)),
	}
	for _, tx := range txs {
		dto := dtos.TransactionDTO{
			ID:            tx.ID(),
			Operation:     string(tx.Operation()),
			Status:        string(tx.Status()),
			Amount:        tx.Amount().Decimal().StringFixed(valueobjects.AccountScale),
			Currency:      tx.Currency().Code(),
			CorrelationID: tx.CorrelationID().String(),
			ExternalID:    tx.ExternalID(),
			Provider:      tx.Provider(),
			Date:          tx.Date(),
		}
		if tx.ToCurrency() != nil {
			dto.ToCurrency = tx.ToCurrency().Code()
		}
		result.Transactions = append(result.Transactions, dto)
	}
	return result, nil
}
