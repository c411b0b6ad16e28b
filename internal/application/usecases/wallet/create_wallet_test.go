package wallet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/novafin/wallet/internal/application/dtos"
	"github.com/novafin/wallet/internal/domain/entities"
	domainErrors "github.com/novafin/wallet/internal/domain/errors"
)

// TestCreateWallet_Success тестирует создание кошелька внутри транзакции
func TestCreateWallet_Success(t *testing.T) {
	now := time.Now()
	uowEntered := false
	walletRepo := &mockWalletRepo{
		createFunc: func(ctx context.Context, w *entities.Wallet) (*entities.Wallet, error) {
			if !uowEntered {
				t.Error("Create must run inside the unit of work")
			}
			return entities.ReconstructWallet(42, w.UserID(), now), nil
		},
	}
	uow := &mockUoW{
		executeFunc: func(ctx context.Context, fn func(context.Context) error) error {
			uowEntered = true
			return fn(ctx)
		},
	}
	uc := NewCreateWalletUseCase(walletRepo, uow)

	out, err := uc.Execute(context.Background(), dtos.CreateWalletCommand{UserID: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.WalletID != 42 {
		t.Errorf("wallet_id = %d, want 42", out.WalletID)
	}
	if !out.CreatedAt.Equal(now) {
		t.Error("created_at must come from the persisted wallet")
	}
}

// TestCreateWallet_InvalidUser тестирует отказ валидации
func TestCreateWallet_InvalidUser(t *testing.T) {
	uc := NewCreateWalletUseCase(&mockWalletRepo{}, &mockUoW{})

	_, err := uc.Execute(context.Background(), dtos.CreateWalletCommand{UserID: 0})
	if !domainErrors.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

// TestCreateWallet_StoreError тестирует проброс ошибки репозитория
func TestCreateWallet_StoreError(t *testing.T) {
	storeErr := domainErrors.New(domainErrors.KindStorage, "duplicate wallet", nil)
	walletRepo := &mockWalletRepo{
		createFunc: func(ctx context.Context, w *entities.Wallet) (*entities.Wallet, error) {
			return nil, storeErr
		},
	}
	uc := NewCreateWalletUseCase(walletRepo, &mockUoW{})

	_, err := uc.Execute(context.Background(), dtos.CreateWalletCommand{UserID: 7})
	if !errors.Is(err, storeErr) {
		t.Errorf("expected storage error, got %v", err)
	}
}
