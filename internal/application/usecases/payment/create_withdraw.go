package payment

import (
	"context"
	"log/slog"

	"github.com/novafin/wallet/internal/application/dtos"
	"github.com/novafin/wallet/internal/application/ports"
	"github.com/novafin/wallet/internal/domain/entities"
	domainErrors "github.com/novafin/wallet/internal/domain/errors"
	"github.com/novafin/wallet/internal/domain/valueobjects"
)

// LiquidityManager - учёт доступной ликвидности провайдера.
type LiquidityManager interface {
	// HasLiquidity проверяет достаточность средств провайдера
	// (сумма нормализуется в его расчётную валюту).
	HasLiquidity(ctx context.Context, provider entities.Provider, amount valueobjects.Money) (bool, error)

	// ChangeAmount применяет дельту к балансу провайдера.
	ChangeAmount(ctx context.Context, provider entities.Provider, delta valueobjects.Money) error
}

// CreateWithdrawUseCase - вывод средств на connected-аккаунт провайдера.
//
// Admission-правила (все до обращения к провайдеру):
// - идемпотентность
// - у пользователя есть кошелёк и достаточный баланс в валюте вывода
// - привязан готовый к выплатам аккаунт у провайдера
// - у провайдера достаточно ликвидности (с FX-нормализацией)
//
// Здесь только pending-транзакция и заявка на выплату у провайдера.
// Резерв ликвидности, work item на списание и терминальные переходы
// делает вебхук payout'а (HandleWebhookUseCase.ExecutePayout).
type CreateWithdrawUseCase struct {
	walletRepo  ports.WalletRepository
	accountRepo ports.AccountRepository
	txRepo      ports.TransactionRepository
	linkedRepo  ports.LinkedAccountRepository
	cache       ports.IdempotencyCache
	gateways    GatewayResolver
	liquidity   LiquidityManager
	uow         ports.UnitOfWork
	log         *slog.Logger
}

// NewCreateWithdrawUseCase создаёт новый use case.
func NewCreateWithdrawUseCase(
	walletRepo ports.WalletRepository,
	accountRepo ports.AccountRepository,
	txRepo ports.TransactionRepository,
	linkedRepo ports.LinkedAccountRepository,
	cache ports.IdempotencyCache,
	gateways GatewayResolver,
	liquidity LiquidityManager,
	uow ports.UnitOfWork,
	log *slog.Logger,
) *CreateWithdrawUseCase {
	return &CreateWithdrawUseCase{
		walletRepo:  walletRepo,
		accountRepo: accountRepo,
		txRepo:      txRepo,
		linkedRepo:  linkedRepo,
		cache:       cache,
		gateways:    gateways,
		liquidity:   liquidity,
		uow:         uow,
		log:         log,
	}
}

// Execute создаёт pending-транзакцию и заявку на выплату у провайдера.
func (uc *CreateWithdrawUseCase) Execute(ctx context.Context, cmd dtos.CreateWithdrawCommand) (*dtos.OperationDTO, error) {
	currency, err := valueobjects.NewCurrency(cmd.Currency)
	if err != nil {
		return nil, domainErrors.ValidationError{Field: "currency", Message: err.Error()}
	}
	amount, err := valueobjects.NewMoney(cmd.Amount, currency)
	if err != nil {
		return nil, domainErrors.ValidationError{Field: "amount", Message: err.Error()}
	}
	if !amount.IsPositive() {
		return nil, domainErrors.ValidationError{Field: "amount", Message: "must be greater than zero"}
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

	// Баланс пользователя. Само списание сделает воркер, но заведомо
	// невыполнимую выплату нельзя отправлять провайдеру.
	accounts, err := uc.accountRepo.FindByWallet(ctx, wallet.ID(), &currency)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, domainErrors.ErrInsufficientFunds
	}
	enough, err := accounts[0].Amount().GreaterThanOrEqual(amount)
	if err != nil {
		return nil, err
	}
	if !enough {
		return nil, domainErrors.ErrInsufficientFunds
	}

	linked, err := uc.linkedRepo.FindByUser(ctx, cmd.UserID, gateway.Provider())
	if err != nil {
		return nil, err
	}
	if linked == nil {
		return nil, domainErrors.ErrNoProviderAccount
	}
	if err := gateway.VerifyAccountReady(ctx, linked.ExternalAccountID); err != nil {
		return nil, err
	}

	hasLiquidity, err := uc.liquidity.HasLiquidity(ctx, gateway.Provider(), amount)
	if err != nil {
		return nil, err
	}
	if !hasLiquidity {
		return nil, domainErrors.ErrProviderLiquidity
	}

	tx, err := entities.NewTransaction(cmd.UserID, wallet.ID(), entities.OperationWithdraw, amount, cmd.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	tx.SetProvider(string(gateway.Provider()))

	// Строка коммитится ДО обращения к провайдеру: вебхук payout'а
	// может прийти раньше, чем Payout вернёт управление.
	var created *entities.Transaction
	err = uc.uow.Execute(ctx, func(txCtx context.Context) error {
		created, err = uc.txRepo.Create(txCtx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	payout, err := gateway.Payout(ctx, ports.PayoutParams{
		Amount:            amount,
		ExternalAccountID: linked.ExternalAccountID,
		WalletID:          wallet.ID(),
		TransactionID:     created.ID(),
		IdempotencyKey:    cmd.IdempotencyKey,
	})
	if err != nil {
		// Провайдер отказал на создании выплаты: гасим pending-строку,
		// не дожидаясь вебхука. Деньги пользователя не двигались.
		if revertErr := uc.txRepo.UpdateStatusByIdempotencyKey(ctx,
			cmd.IdempotencyKey, entities.StatusPending, entities.StatusFailed); revertErr != nil {
			uc.log.ErrorContext(ctx, "failed to mark withdraw failed",
				slog.String("idempotency_key", cmd.IdempotencyKey),
				slog.String("error", revertErr.Error()))
		}
		return nil, err
	}

	created.SetExternalID(payout.PayoutID)
	if err := uc.txRepo.UpdateStatus(ctx, created); err != nil {
		return nil, err
	}

	uc.log.InfoContext(ctx, "withdraw submitted to provider",
		slog.Int64("wallet_id", wallet.ID()),
		slog.String("provider", string(gateway.Provider())),
		slog.String("payout_id", payout.PayoutID),
		slog.String("amount", amount.String()),
	)

	return &dtos.OperationDTO{
		CorrelationID: created.CorrelationID().String(),
		Status:        string(created.Status()),
	}, nil
}
