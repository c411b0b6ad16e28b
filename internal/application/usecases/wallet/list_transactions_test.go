package wallet

import (
	"context"
	"testing"

	"github.com/novafin/wallet/internal/application/dtos"
	"github.com/novafin/wallet/internal/domain/entities"
	"github.com/novafin/wallet/internal/domain/valueobjects"
)

// TestListTransactions_Pagination тестирует нормализацию offset/limit
func TestListTransactions_Pagination(t *testing.T) {
	cases := []struct {
		name       string
		offset     int
		limit      int
		wantOffset int
		wantLimit  int
	}{
		{"defaults", 0, 0, 0, 20},
		{"negative offset", -5, 10, 0, 10},
		{"limit capped", 0, 500, 0, 100},
		{"passthrough", 40, 25, 40, 25},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var gotOffset, gotLimit int
			txRepo := &mockTxRepo{
				findByWalletIDFunc: func(ctx context.Context, walletID int64, offset, limit int) ([]*entities.Transaction, error) {
					gotOffset, gotLimit = offset, limit
					return nil, nil
				},
			}
			uc := NewListTransactionsUseCase(&mockWalletRepo{findByUserIDFunc: walletForUser(100)}, txRepo)

			if _, err := uc.Execute(context.Background(), dtos.ListTransactionsQuery{UserID: 1, Offset: tc.offset, Limit: tc.limit}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gotOffset != tc.wantOffset || gotLimit != tc.wantLimit {
				t.Errorf("got offset=%d limit=%d, want offset=%d limit=%d", gotOffset, gotLimit, tc.wantOffset, tc.wantLimit)
			}
		})
	}
}

// TestListTransactions_Mapping тестирует маппинг записи в DTO
func TestListTransactions_Mapping(t *testing.T) {
	txRepo := &mockTxRepo{
		findByWalletIDFunc: func(ctx context.Context, walletID int64, offset, limit int) ([]*entities.Transaction, error) {
			tx, err := entities.NewTransaction(1, walletID, entities.OperationConvert, mustTestMoney(t, "75.00"), "idem-list")
			if err != nil {
				return nil, err
			}
			tx.SetConversion(valueobjects.USD, valueobjects.EUR)
			return []*entities.Transaction{tx}, nil
		},
	}
	uc := NewListTransactionsUseCase(&mockWalletRepo{findByUserIDFunc: walletForUser(100)}, txRepo)

	out, err := uc.Execute(context.Background(), dtos.ListTransactionsQuery{UserID: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.WalletID != 101 {
		t.Errorf("wallet_id = %d, want 101", out.WalletID)
	}
	if len(out.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(out.Transactions))
	}
	dto := out.Transactions[0]
	if dto.Operation != "convert" || dto.Status != "pending" {
		t.Errorf("operation/status = %s/%s", dto.Operation, dto.Status)
	}
	if dto.Amount != "75.00" {
		t.Errorf("amount = %s, want 75.00", dto.Amount)
	}
	if dto.ToCurrency != "EUR" {
		t.Errorf("to_currency = %s, want EUR", dto.ToCurrency)
	}
}
