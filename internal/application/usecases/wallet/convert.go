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

// ConvertUseCase - конвертация между валютами внутри одного кошелька.
// Курсы применяет воркер в момент расчёта; оркестратор лишь проверяет,
// что обе валюты известны таблице курсов.
type ConvertUseCase struct {
	walletRepo   ports.WalletRepository
	txRepo       ports.TransactionRepository
	currencyRepo ports.CurrencyRepository
	cache        ports.IdempotencyCache
	producer     ports.Producer
	uow          ports.UnitOfWork
	log          *slog.Logger
}

// NewConvertUseCase создаёт новый use case.
func NewConvertUseCase(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	currencyRepo ports.CurrencyRepository,
	cache ports.IdempotencyCache,
	producer ports.Producer,
	uow ports.UnitOfWork,
	log *slog.Logger,
) *ConvertUseCase {
	return &ConvertUseCase{
		walletRepo:   walletRepo,
		txRepo:       txRepo,
		currencyRepo: currencyRepo,
		cache:        cache,
		producer:     producer,
		uow:          uow,
		log:          log,
	}
}

// Execute выполняет admission конвертации и ставит работу в очередь.
func (uc *ConvertUseCase) Execute(ctx context.Context, cmd dtos.ConvertCommand) (*dtos.OperationDTO, error) {
	from, err := valueobjects.NewCurrency(cmd.FromCurrency)
	if err != nil {
		return nil, errors.ValidationError{Field: "from_currency", Message: err.Error()}
	}
	to, err := valueobjects.NewCurrency(cmd.ToCurrency)
	if err != nil {
		return nil, errors.ValidationError{Field: "to_currency", Message: err.Error()}
	}
	if from.Equals(to) {
		return nil, errors.ValidationError{Field: "to_currency", Message: "must differ from from_currency"}
	}

	amount, err := valueobjects.NewMoney(cmd.Amount, from)
	if err != nil {
		return nil, errors.ValidationError{Field: "amount", Message: err.Error()}
	}
	if !amount.IsPositive() {
		return nil, errors.ValidationError{Field: "amount", Message: "must be greater than zero"}
	}

	if err := ensureNotDone(ctx, uc.cache, uc.txRepo, cmd.IdempotencyKey); err != nil {
		return nil, err
	}

	// Обе валюты должны иметь курс: иначе воркер гарантированно уронит
	// операцию в DLQ, лучше отбить на входе.
	if _, err := uc.currencyRepo.GetRate(ctx, from); err != nil {
		return nil, err
	}
	if _, err := uc.currencyRepo.GetRate(ctx, to); err != nil {
		return nil, err
	}

	wallet, err := uc.walletRepo.FindByUserID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	tx, err := entities.NewTransaction(cmd.UserID, wallet.ID(), entities.OperationConvert, amount, cmd.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	tx.SetConversion(from, to)

	toCode := to.Code()
	item := &dtos.WorkItem{
		Operation:      string(entities.OperationConvert),
		Amount:         amount.Decimal().InexactFloat64(),
		Currency:       from.Code(),
		ToCurrency:     &toCode,
		WalletID:       wallet.ID(),
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

	uc.log.InfoContext(ctx, "conversion enqueued",
		slog.Int64("wallet_id", wallet.ID()),
		slog.String("from", from.Code()),
		slog.String("to", to.Code()),
		slog.String("amount", amount.String()),
	)

	return &dtos.OperationDTO{
		CorrelationID: tx.CorrelationID().String(),
		Status:        string(tx.Status()),
	}, nil
}
