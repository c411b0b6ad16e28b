package gateway

import (
	"context"

	"github.com/novafin/wallet/internal/application/ports"
	"github.com/novafin/wallet/internal/domain/entities"
	domainErrors "github.com/novafin/wallet/internal/domain/errors"
)

// Compile-time check
var _ ports.PaymentGateway = (*CloudPaymentsGateway)(nil)

// CloudPaymentsGateway - зарезервированный слот второго провайдера.
// Все операции возвращают UNSUPPORTED до подключения интеграции.
//
// TODO: подключить CloudPayments API, когда появится боевой merchant-аккаунт.
type CloudPaymentsGateway struct{}

// NewCloudPaymentsGateway создаёт заглушку.
func NewCloudPaymentsGateway() *CloudPaymentsGateway {
	return &CloudPaymentsGateway{}
}

// Provider возвращает идентификатор провайдера.
func (g *CloudPaymentsGateway) Provider() entities.Provider { return entities.ProviderCloudPayments }

func (g *CloudPaymentsGateway) unsupported(op string) error {
	return domainErrors.New(domainErrors.KindUnsupported,
		"cloudpayments: "+op+" is not implemented", domainErrors.ErrUnsupportedGateway)
}

func (g *CloudPaymentsGateway) CreateCheckoutSession(ctx context.Context, p ports.CheckoutParams) (string, error) {
	return "", g.unsupported("checkout")
}

func (g *CloudPaymentsGateway) CreateConnectedAccount(ctx context.Context, userID int64) (string, error) {
	return "", g.unsupported("connected account")
}

func (g *CloudPaymentsGateway) OnboardingLink(ctx context.Context, externalAccountID string) (string, error) {
	return "", g.unsupported("onboarding link")
}

func (g *CloudPaymentsGateway) VerifyAccountReady(ctx context.Context, externalAccountID string) error {
	return g.unsupported("account verification")
}

func (g *CloudPaymentsGateway) Payout(ctx context.Context, p ports.PayoutParams) (*ports.PayoutResult, error) {
	return nil, g.unsupported("payout")
}
