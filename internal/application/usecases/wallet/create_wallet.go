// Package wallet содержит use cases кошелькового оркестратора.
package wallet

import (
	"fmt"

	"context"

	"github.com/novafin/wallet/internal/application/dtos"
	"github.com/novafin/wallet/internal/application/ports"
	"github.com/novafin/wallet/internal/domain/entities"
)

// CreateWalletUseCase - создание кошелька пользователя.
//
// Сценарий:
// 1. Проверить user_id
// 2. Создать кошелёк через domain entity
// 3. Сохранить в БД (UNIQUE на user_id отбивает дубликат)
//
// Счета НЕ создаются здесь: они появляются лениво при первом зачислении.
type CreateWalletUseCase struct {
	walletRepo ports.WalletRepository
	uow        ports.UnitOfWork
}

// NewCreateWalletUseCase создаёт новый use case.
func NewCreateWalletUseCase(walletRepo ports.WalletRepository, uow ports.UnitOfWork) *CreateWalletUseCase {
	return &CreateWalletUseCase{walletRepo: walletRepo, uow: uow}
}

// Execute выполняет создание кошелька.
func (uc *CreateWalletUseCase) Execute(ctx context.Context, cmd dtos.CreateWalletCommand) (*dtos.WalletDTO, error) {
	var result *dtos.WalletDTO

	err := uc.uow.Execute(ctx, func(txCtx context.Context) error {
		wallet, err := entities.NewWallet(cmd.UserID)
		if err != nil {
			return err
		}

		created, err := uc.walletRepo.Create(txCtx, wallet)
		if err != nil {
			return fmt.Errorf("failed to save wallet: %w", err)
		}

		result = &dtos.WalletDTO{
			WalletID:  created.ID(),
			CreatedAt: created.CreatedAt(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
