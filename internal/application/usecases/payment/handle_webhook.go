package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/novafin/wallet/internal/application/dtos"
	"github.com/novafin/wallet/internal/application/ports"
	"github.com/novafin/wallet/internal/domain/entities"
	domainErrors "github.com/novafin/wallet/internal/domain/errors"
	"github.com/novafin/wallet/internal/domain/valueobjects"
)

// HandleWebhookUseCase - обработка нормализованных событий провайдера.
//
// Вебхуки провайдеры доставляют at-least-once: повтор по уже обработанному
// ключу подтверждается ack'ом "Operation is already done", чтобы провайдер
// перестал ретраить.
type HandleWebhookUseCase struct {
	txRepo    ports.TransactionRepository
	cache     ports.IdempotencyCache
	liquidity LiquidityManager
	producer  ports.Producer
	uow       ports.UnitOfWork
	testMode  bool
	log       *slog.Logger
}

// NewHandleWebhookUseCase создаёт новый use case.
// testMode разрешает события с livemode=false (стейджинг, локальная разработка).
func NewHandleWebhookUseCase(
	txRepo ports.TransactionRepository,
	cache ports.IdempotencyCache,
	liquidity LiquidityManager,
	producer ports.Producer,
	uow ports.UnitOfWork,
	testMode bool,
	log *slog.Logger,
) *HandleWebhookUseCase {
	return &HandleWebhookUseCase{
		txRepo:    txRepo,
		cache:     cache,
		liquidity: liquidity,
		producer:  producer,
		uow:       uow,
		testMode:  testMode,
		log:       log,
	}
}

var ackDone = &dtos.WebhookAckDTO{Success: true, Message: "Operation is already done"}

// ExecutePayment обрабатывает подтверждение депозита.
//
// Сценарий:
// 1. Отбросить тестовые события в боевом режиме
// 2. Повтор по ключу - ack без побочных эффектов
// 3. pending → processed + external_id, ликвидность провайдера +amount
// 4. Поставить зачисление в очередь воркера
func (uc *HandleWebhookUseCase) ExecutePayment(ctx context.Context, evt *ports.WebhookEvent) (*dtos.WebhookAckDTO, error) {
	if !evt.Livemode && !uc.testMode {
		uc.log.WarnContext(ctx, "ignoring test-mode webhook", slog.String("external_id", evt.ExternalPaymentID))
		return &dtos.WebhookAckDTO{Success: true, Message: "Test event ignored"}, nil
	}

	done, err := uc.cache.Exists(ctx, evt.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if done {
		return ackDone, nil
	}

	tx, err := uc.txRepo.FindByID(ctx, evt.TransactionID)
	if err != nil {
		return nil, err
	}
	if tx.Status() != entities.StatusPending {
		// Вебхук уже доходил, кэшевый ключ истёк.
		return ackDone, nil
	}

	provider := entities.Provider(tx.Provider())

	if err := tx.MarkProcessed(); err != nil {
		return nil, err
	}
	tx.SetExternalID(evt.ExternalPaymentID)

	err = uc.uow.Execute(ctx, func(txCtx context.Context) error {
		if err := uc.txRepo.UpdateStatus(txCtx, tx); err != nil {
			return err
		}
		// Деньги пришли на счёт провайдера - его ликвидность выросла.
		return uc.liquidity.ChangeAmount(txCtx, provider, evt.Amount)
	})
	if err != nil {
		return nil, err
	}

	if err := uc.publishItem(ctx, entities.OperationDeposit, evt.Amount, tx.WalletID(), tx.IdempotencyKey(), tx.CorrelationID().String()); err != nil {
		return nil, err
	}

	uc.log.InfoContext(ctx, "deposit confirmed by provider",
		slog.Int64("transaction_id", tx.ID()),
		slog.Int64("wallet_id", tx.WalletID()),
		slog.String("external_id", evt.ExternalPaymentID),
	)
	return &dtos.WebhookAckDTO{Success: true, Message: "Payment accepted"}, nil
}

// ExecutePayout обрабатывает итог выплаты.
//
// paid: pending → processed + external_id, ликвидность провайдера -amount,
// списание с кошелька ставится в очередь воркера.
// failed до подтверждения: pending → failed, побочных эффектов нет.
// failed после подтверждения: компенсация - processed → reversed,
// ликвидность возвращается, средства пользователю зачисляет отдельная
// reversal-транзакция через воркер.
func (uc *HandleWebhookUseCase) ExecutePayout(ctx context.Context, evt *ports.WebhookEvent) (*dtos.WebhookAckDTO, error) {
	if !evt.Livemode && !uc.testMode {
		return &dtos.WebhookAckDTO{Success: true, Message: "Test event ignored"}, nil
	}
	if evt.IdempotencyKey == "" {
		return nil, domainErrors.ValidationError{Field: "idempotency_key", Message: "missing in payout metadata"}
	}

	switch evt.Status {
	case "paid":
		return uc.payoutPaid(ctx, evt)
	case "failed":
		return uc.payoutFailed(ctx, evt)
	default:
		return &dtos.WebhookAckDTO{Success: true, Message: "Event ignored"}, nil
	}
}

// payoutPaid фиксирует уход средств со счёта провайдера и ставит
// списание с кошелька в очередь.
func (uc *HandleWebhookUseCase) payoutPaid(ctx context.Context, evt *ports.WebhookEvent) (*dtos.WebhookAckDTO, error) {
	done, err := uc.cache.Exists(ctx, evt.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if done {
		return ackDone, nil
	}

	tx, err := uc.txRepo.FindByIdempotencyKey(ctx, evt.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if tx.Status() != entities.StatusPending {
		// Вебхук уже доходил.
		return ackDone, nil
	}

	provider := entities.Provider(tx.Provider())
	if err := tx.MarkProcessed(); err != nil {
		return nil, err
	}
	tx.SetExternalID(evt.ExternalPaymentID)

	neg, err := valueobjects.Zero(evt.Amount.Currency()).Sub(evt.Amount)
	if err != nil {
		return nil, err
	}
	err = uc.uow.Execute(ctx, func(txCtx context.Context) error {
		if err := uc.txRepo.UpdateStatus(txCtx, tx); err != nil {
			return err
		}
		// Выплата ушла со счёта провайдера - его ликвидность сократилась.
		return uc.liquidity.ChangeAmount(txCtx, provider, neg)
	})
	if err != nil {
		return nil, err
	}

	if err := uc.publishItem(ctx, entities.OperationWithdraw, evt.Amount, tx.WalletID(), tx.IdempotencyKey(), tx.CorrelationID().String()); err != nil {
		return nil, err
	}

	uc.log.InfoContext(ctx, "payout confirmed by provider",
		slog.Int64("transaction_id", tx.ID()),
		slog.Int64("wallet_id", tx.WalletID()),
		slog.String("external_id", evt.ExternalPaymentID),
	)
	return &dtos.WebhookAckDTO{Success: true, Message: "Payout accepted"}, nil
}

// payoutFailed гасит или компенсирует выплату в зависимости от того,
// успела ли она подтвердиться.
func (uc *HandleWebhookUseCase) payoutFailed(ctx context.Context, evt *ports.WebhookEvent) (*dtos.WebhookAckDTO, error) {
	tx, err := uc.txRepo.FindByIdempotencyKey(ctx, evt.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	switch tx.Status() {
	case entities.StatusPending:
		err = uc.uow.Execute(ctx, func(txCtx context.Context) error {
			return uc.txRepo.UpdateStatusByIdempotencyKey(txCtx,
				evt.IdempotencyKey, entities.StatusPending, entities.StatusFailed)
		})
		if err != nil {
			return nil, err
		}

		uc.log.WarnContext(ctx, "payout failed at provider",
			slog.Int64("transaction_id", tx.ID()),
			slog.String("external_id", evt.ExternalPaymentID),
		)
		return &dtos.WebhookAckDTO{Success: true, Message: "Payout failure recorded"}, nil

	case entities.StatusProcessed:
		// Ликвидность уже списана и воркер мог снять деньги с кошелька.
		// Возврат идёт отдельной транзакцией с собственным ключом:
		// её depositом воркер вернёт средства пользователю.
		reversal, err := entities.NewTransaction(tx.UserID(), tx.WalletID(),
			entities.OperationDeposit, evt.Amount, tx.IdempotencyKey()+":reversal")
		if err != nil {
			return nil, err
		}
		reversal.SetProvider(tx.Provider())
		reversal.SetExternalID(evt.ExternalPaymentID)
		if err := reversal.MarkProcessed(); err != nil {
			return nil, err
		}

		provider := entities.Provider(tx.Provider())
		err = uc.uow.Execute(ctx, func(txCtx context.Context) error {
			if err := uc.txRepo.UpdateStatusByIdempotencyKey(txCtx,
				tx.IdempotencyKey(), entities.StatusProcessed, entities.StatusReversed); err != nil {
				return err
			}
			if _, err := uc.txRepo.Create(txCtx, reversal); err != nil {
				return err
			}
			// Выплата не прошла, средства остались у провайдера.
			return uc.liquidity.ChangeAmount(txCtx, provider, evt.Amount)
		})
		if err != nil {
			return nil, err
		}

		if err := uc.publishItem(ctx, entities.OperationDeposit, evt.Amount,
			reversal.WalletID(), reversal.IdempotencyKey(), reversal.CorrelationID().String()); err != nil {
			return nil, err
		}

		uc.log.WarnContext(ctx, "payout reversed after confirmation",
			slog.Int64("transaction_id", tx.ID()),
			slog.String("external_id", evt.ExternalPaymentID),
		)
		return &dtos.WebhookAckDTO{Success: true, Message: "Payout reversal enqueued"}, nil

	default:
		// failed / reversed / completed: вебхук уже доходил.
		return ackDone, nil
	}
}

// publishItem ставит движение средств в очередь воркера.
func (uc *HandleWebhookUseCase) publishItem(ctx context.Context, op entities.OperationType, amount valueobjects.Money, walletID int64, key, correlationID string) error {
	item := &dtos.WorkItem{
		Operation:      string(op),
		Amount:         amount.Decimal().InexactFloat64(),
		Currency:       amount.Currency().Code(),
		WalletID:       walletID,
		IdempotencyKey: key,
		CorrelationID:  correlationID,
	}
	payload, err := item.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode work item: %w", err)
	}
	return uc.producer.Publish(ctx, ports.TopicTransactionRequest, payload)
}
