package payment

import (
	"context"
	"log/slog"

	"github.com/novafin/wallet/internal/application/dtos"
	"github.com/novafin/wallet/internal/application/ports"
	"github.com/novafin/wallet/internal/domain/entities"
)

// ConnectAccountUseCase - привязка connected-аккаунта провайдера для выплат.
// Повторный вызов для уже привязанного аккаунта возвращает свежую
// onboarding-ссылку для того же аккаунта.
type ConnectAccountUseCase struct {
	linkedRepo ports.LinkedAccountRepository
	gateways   GatewayResolver
	uow        ports.UnitOfWork
	log        *slog.Logger
}

// NewConnectAccountUseCase создаёт новый use case.
func NewConnectAccountUseCase(
	linkedRepo ports.LinkedAccountRepository,
	gateways GatewayResolver,
	uow ports.UnitOfWork,
	log *slog.Logger,
) *ConnectAccountUseCase {
	return &ConnectAccountUseCase{
		linkedRepo: linkedRepo,
		gateways:   gateways,
		uow:        uow,
		log:        log,
	}
}

// Execute создаёт (или переиспользует) connected-аккаунт и возвращает
// ссылку на онбординг.
func (uc *ConnectAccountUseCase) Execute(ctx context.Context, cmd dtos.ConnectAccountCommand) (*dtos.RedirectDTO, error) {
	gateway, err := uc.gateways.Get(entities.Provider(cmd.Gateway))
	if err != nil {
		return nil, err
	}

	linked, err := uc.linkedRepo.FindByUser(ctx, cmd.UserID, gateway.Provider())
	if err != nil {
		return nil, err
	}

	if linked == nil {
		externalID, err := gateway.CreateConnectedAccount(ctx, cmd.UserID)
		if err != nil {
			return nil, err
		}

		err = uc.uow.Execute(ctx, func(txCtx context.Context) error {
			linked, err = uc.linkedRepo.Create(txCtx, &entities.LinkedAccount{
				UserID:            cmd.UserID,
				Provider:          gateway.Provider(),
				ExternalAccountID: externalID,
			})
			return err
		})
		if err != nil {
			return nil, err
		}

		uc.log.InfoContext(ctx, "connected account created",
			slog.Int64("user_id", cmd.UserID),
			slog.String("provider", string(gateway.Provider())),
		)
	}

	url, err := gateway.OnboardingLink(ctx, linked.ExternalAccountID)
	if err != nil {
		return nil, err
	}
	return &dtos.RedirectDTO{RedirectURL: url}, nil
}
