package payment

import (
	"context"
	"log/slog"

	"github.com/novafin/wallet/internal/application/dtos"
	"github.com/novafin/wallet/internal/application/ports"
	"github.com/novafin/wallet/internal/domain/entities"
	"github.com/novafin/wallet/internal/domain/errors"
	"github.com/novafin/wallet/internal/domain/valueobjects"
)

// GatewayResolver выбирает шлюз по идентификатору провайдера.
type GatewayResolver interface {
	Get(provider entities.Provider) (ports.PaymentGateway, error)
}

// CreatePaymentUseCase - инициация депозита через внешний шлюз.
//
// Сценарий:
// 1. Идемпотентность, валидация, кошелёк
// 2. Записать транзакцию в pending
// 3. Создать checkout-сессию у провайдера (metadata связывает её с транзакцией)
// 4. Вернуть redirect URL
//
// Зачисление произойдёт только после вебхука провайдера: pending-транзакция
// без вебхука так и останется pending.
type CreatePaymentUseCase struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	cache      ports.IdempotencyCache
	gateways   GatewayResolver
	uow        ports.UnitOfWork
	log        *slog.Logger
}

// NewCreatePaymentUseCase создаёт новый use case.
func NewCreatePaymentUseCase(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	cache ports.IdempotencyCache,
	gateways GatewayResolver,
	uow ports.UnitOfWork,
	log *slog.Logger,
) *CreatePaymentUseCase {
	return &CreatePaymentUseCase{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		cache:      cache,
		gateways:   gateways,
		uow:        uow,
		log:        log,
	}
}

// Execute инициирует депозит и возвращает ссылку на оплату.
func (uc *CreatePaymentUseCase) Execute(ctx context.Context, cmd dtos.CreatePaymentCommand) (*dtos.RedirectDTO, error) {
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

	gateway, err := uc.gateways.Get(entities.Provider(cmd.Gateway))
	if err != nil {
		return nil, err
	}

	if err := ensureNotDone(ctx, uc.cache, uc.txRepo, cmd.IdempotencyKey); err != nil {
		return nil, err
	}

	wallet, err := uc.walletRepo.FindByUserID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	tx, err := entities.NewTransaction(cmd.UserID, wallet.ID(), entities.OperationDeposit, amount, cmd.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	tx.SetProvider(string(gateway.Provider()))

	var created *entities.Transaction
	err = uc.uow.Execute(ctx, func(txCtx context.Context) error {
		created, err = uc.txRepo.Create(txCtx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	url, err := gateway.CreateCheckoutSession(ctx, ports.CheckoutParams{
		Amount:         amount,
		WalletID:       wallet.ID(),
		TransactionID:  created.ID(),
		IdempotencyKey: cmd.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}

	uc.log.InfoContext(ctx, "checkout session created",
		slog.Int64("wallet_id", wallet.ID()),
		slog.Int64("transaction_id", created.ID()),
		slog.String("provider", string(gateway.Provider())),
		slog.String("amount", amount.String()),
	)

	return &dtos.RedirectDTO{RedirectURL: url}, nil
}
