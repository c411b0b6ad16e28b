package wallet

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/novafin/wallet/internal/application/dtos"
	"github.com/novafin/wallet/internal/application/ports"
	"github.com/novafin/wallet/internal/domain/entities"
	"github.com/novafin/wallet/internal/domain/errors"
	"github.com/novafin/wallet/internal/domain/valueobjects"
)

// TransferUseCase - перевод между кошельками двух пользователей.
//
// Оркестратор выполняет только admission: валидация, идемпотентность,
// существование обоих кошельков. Само движение средств делает воркер,
// получив work item из шины.
//
// Порядок фиксирован: сначала publish, затем запись транзакции в processed -
// потерянная запись при упавшей публикации хуже, чем потерянная публикация
// при записанной строке (ретрай по тому же ключу отобьётся идемпотентностью).
type TransferUseCase struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	cache      ports.IdempotencyCache
	producer   ports.Producer
	uow        ports.UnitOfWork
	log        *slog.Logger
}

// NewTransferUseCase создаёт новый use case.
func NewTransferUseCase(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	cache ports.IdempotencyCache,
	producer ports.Producer,
	uow ports.UnitOfWork,
	log *slog.Logger,
) *TransferUseCase {
	return &TransferUseCase{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		cache:      cache,
		producer:   producer,
		uow:        uow,
		log:        log,
	}
}

// Execute выполняет admission перевода и ставит работу в очередь.
func (uc *TransferUseCase) Execute(ctx context.Context, cmd dtos.TransferCommand) (*dtos.OperationDTO, error) {
	if cmd.FromUserID == cmd.ToUserID {
		return nil, errors.ValidationError{Field: "to_user_id", Message: "cannot transfer to self"}
	}

	currency, err := valueobjects.NewCurrency(cmd.Currency)
	if err != nil {
		return nil, errors.ValidationError{Field: "currency", Message: err.Error()}
	}
	amount, err := valueobjects.NewMoney(cmd.Amount, currency)
	if err != nil {
		return nil, errors.ValidationError{Field: "amount", Message: err.Error()}
	}
	if !amount.IsPositive() {
		return nil, errors.ValidationError{Field: "amount", Message: "must be greater than zero"}
	}

	if err := ensureNotDone(ctx, uc.cache, uc.txRepo, cmd.IdempotencyKey); err != nil {
		return nil, err
	}

	fromWallet, err := uc.walletRepo.FindByUserID(ctx, cmd.FromUserID)
	if err != nil {
		return nil, err
	}
	toWallet, err := uc.walletRepo.FindByUserID(ctx, cmd.ToUserID)
	if err != nil {
		return nil, err
	}

	tx, err := entities.NewTransaction(cmd.FromUserID, fromWallet.ID(), entities.OperationTransfer, amount, cmd.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	tx.SetToWallet(toWallet.ID())

	toWalletID := toWallet.ID()
	item := &dtos.WorkItem{
		Operation:      string(entities.OperationTransfer),
		Amount:         amount.Decimal().InexactFloat64(),
		Currency:       currency.Code(),
		WalletID:       fromWallet.ID(),
		ToWalletID:     &toWalletID,
		IdempotencyKey: cmd.IdempotencyKey,
		CorrelationID:  tx.CorrelationID().String(),
	}
	payload, err := item.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode work item: %w", err)
	}

	if err := uc.producer.Publish(ctx, ports.TopicTransactionRequest, payload); err != nil {
		return nil, err
	}

	if err := tx.MarkProcessed(); err != nil {
		return nil, err
	}
	err = uc.uow.Execute(ctx, func(txCtx context.Context) error {
		_, err := uc.txRepo.Create(txCtx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.log.InfoContext(ctx, "transfer enqueued",
		slog.Int64("from_wallet", fromWallet.ID()),
		slog.Int64("to_wallet", toWallet.ID()),
		slog.String("amount", amount.String()),
	)

	return &dtos.OperationDTO{
		CorrelationID: tx.CorrelationID().String(),
		Status:        string(tx.Status()),
	}, nil
}
