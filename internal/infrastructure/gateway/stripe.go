package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/novafin/wallet/internal/application/ports"
	"github.com/novafin/wallet/internal/domain/entities"
	domainErrors "github.com/novafin/wallet/internal/domain/errors"
	"github.com/novafin/wallet/internal/domain/valueobjects"
)

// Compile-time check
var _ ports.PaymentGateway = (*StripeGateway)(nil)

// StripeGateway реализует ports.PaymentGateway поверх Stripe API.
//
// Депозиты - hosted Checkout Session, выплаты - Transfer на connected
// Express-аккаунт + Payout с manual-расписанием. Суммы на проводе -
// minor units (центы), конверсия происходит только здесь.
type StripeGateway struct {
	api                  *client.API
	paymentWebhookSecret string
	payoutWebhookSecret  string
	baseURL              string
}

// StripeConfig - ключи и endpoint-секреты Stripe.
type StripeConfig struct {
	SecretKey            string
	PaymentWebhookSecret string
	PayoutWebhookSecret  string
	BaseURL              string
}

// NewStripeGateway создаёт шлюз.
func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &StripeGateway{
		api:                  api,
		paymentWebhookSecret: cfg.PaymentWebhookSecret,
		payoutWebhookSecret:  cfg.PayoutWebhookSecret,
		baseURL:              cfg.BaseURL,
	}
}

// Provider возвращает идентификатор провайдера.
func (g *StripeGateway) Provider() entities.Provider { return entities.ProviderStripe }

// minorUnits переводит canonical decimal в минимальные единицы провайдера.
func minorUnits(m valueobjects.Money) int64 {
	return m.Decimal().Shift(valueobjects.AccountScale).Round(0).IntPart()
}

// CreateCheckoutSession создаёт hosted checkout для депозита.
// wallet_id / transaction_id / idempotency_key дублируются в metadata
// сессии и payment intent'а - вебхук вернёт их для сопоставления.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p ports.CheckoutParams) (string, error) {
	metadata := map[string]string{
		"wallet_id":       strconv.FormatInt(p.WalletID, 10),
		"transaction_id":  strconv.FormatInt(p.TransactionID, 10),
		"idempotency_key": p.IdempotencyKey,
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(g.baseURL + "/payments/success"),
		CancelURL:  stripe.String(g.baseURL + "/payments/cancel"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(p.Amount.Currency().Lower()),
					UnitAmount: stripe.Int64(minorUnits(p.Amount)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Wallet deposit"),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", providerError("failed to create checkout session", err)
	}
	return session.URL, nil
}

// CreateConnectedAccount создаёт Express-аккаунт с ручными выплатами.
func (g *StripeGateway) CreateConnectedAccount(ctx context.Context, userID int64) (string, error) {
	params := &stripe.AccountParams{
		Type: stripe.String(string(stripe.AccountTypeExpress)),
		Capabilities: &stripe.AccountCapabilitiesParams{
			Transfers: &stripe.AccountCapabilitiesTransfersParams{
				Requested: stripe.Bool(true),
			},
		},
		Settings: &stripe.AccountSettingsParams{
			Payouts: &stripe.AccountSettingsPayoutsParams{
				Schedule: &stripe.AccountSettingsPayoutsScheduleParams{
					Interval: stripe.String("manual"),
				},
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("user_id", strconv.FormatInt(userID, 10))

	account, err := g.api.Accounts.New(params)
	if err != nil {
		return "", providerError("failed to create connected account", err)
	}
	return account.ID, nil
}

// OnboardingLink возвращает ссылку на hosted-онбординг аккаунта.
func (g *StripeGateway) OnboardingLink(ctx context.Context, externalAccountID string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(externalAccountID),
		RefreshURL: stripe.String(g.baseURL + "/accounts/refresh"),
		ReturnURL:  stripe.String(g.baseURL + "/accounts/return"),
		Type:       stripe.String("account_onboarding"),
	}
	params.Context = ctx

	link, err := g.api.AccountLinks.New(params)
	if err != nil {
		return "", providerError("failed to create onboarding link", err)
	}
	return link.URL, nil
}

// VerifyAccountReady проверяет, что аккаунт может принимать выплаты.
// Аккаунт с disabled_reason считается непривязанным.
func (g *StripeGateway) VerifyAccountReady(ctx context.Context, externalAccountID string) error {
	params := &stripe.AccountParams{}
	params.Context = ctx

	account, err := g.api.Accounts.GetByID(externalAccountID, params)
	if err != nil {
		return providerError("failed to retrieve connected account", err)
	}

	if account.Requirements != nil && account.Requirements.DisabledReason != "" {
		return domainErrors.New(domainErrors.KindNoProviderAccount,
			fmt.Sprintf("connected account disabled: %s", account.Requirements.DisabledReason),
			domainErrors.ErrNoProviderAccount)
	}
	if !account.PayoutsEnabled {
		return domainErrors.New(domainErrors.KindNoProviderAccount,
			"connected account has payouts disabled", domainErrors.ErrNoProviderAccount)
	}
	return nil
}

// Payout переводит средства на connected-аккаунт и инициирует выплату.
// Два шага (Transfer на аккаунт, затем Payout от его имени) - схема выплат
// с manual-расписанием.
func (g *StripeGateway) Payout(ctx context.Context, p ports.PayoutParams) (*ports.PayoutResult, error) {
	amount := minorUnits(p.Amount)
	currency := p.Amount.Currency().Lower()
	metadata := map[string]string{
		"wallet_id":       strconv.FormatInt(p.WalletID, 10),
		"transaction_id":  strconv.FormatInt(p.TransactionID, 10),
		"idempotency_key": p.IdempotencyKey,
	}

	transferParams := &stripe.TransferParams{
		Amount:      stripe.Int64(amount),
		Currency:    stripe.String(currency),
		Destination: stripe.String(p.ExternalAccountID),
	}
	transferParams.Context = ctx
	for k, v := range metadata {
		transferParams.AddMetadata(k, v)
	}

	transfer, err := g.api.Transfers.New(transferParams)
	if err != nil {
		return nil, providerError("failed to transfer to connected account", err)
	}

	payoutParams := &stripe.PayoutParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
	}
	payoutParams.Context = ctx
	payoutParams.SetStripeAccount(p.ExternalAccountID)
	for k, v := range metadata {
		payoutParams.AddMetadata(k, v)
	}

	payout, err := g.api.Payouts.New(payoutParams)
	if err != nil {
		return nil, providerError("failed to create payout", err)
	}

	return &ports.PayoutResult{
		TransferID: transfer.ID,
		PayoutID:   payout.ID,
		Status:     string(payout.Status),
	}, nil
}

// ParsePaymentEvent верифицирует подпись вебхука платежей и нормализует
// checkout.session.completed в WebhookEvent. Прочие типы - nil, nil.
func (g *StripeGateway) ParsePaymentEvent(payload []byte, signature string) (*ports.WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.paymentWebhookSecret)
	if err != nil {
		return nil, domainErrors.New(domainErrors.KindValidation,
			"invalid webhook signature", err)
	}

	if event.Type != "checkout.session.completed" {
		return nil, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, domainErrors.New(domainErrors.KindValidation,
			"failed to decode checkout session", err)
	}

	currency, err := valueobjects.NewCurrency(string(session.Currency))
	if err != nil {
		return nil, domainErrors.New(domainErrors.KindUnsupported,
			fmt.Sprintf("webhook currency %q is not supported", session.Currency), err)
	}
	amount, err := valueobjects.NewMoneyFromMinorUnits(session.AmountTotal, currency)
	if err != nil {
		return nil, domainErrors.New(domainErrors.KindValidation,
			"invalid webhook amount", err)
	}

	externalID := ""
	if session.PaymentIntent != nil {
		externalID = session.PaymentIntent.ID
	}

	evt := &ports.WebhookEvent{
		IdempotencyKey:    session.Metadata["idempotency_key"],
		ExternalPaymentID: externalID,
		Amount:            amount,
		Status:            "succeeded",
		Livemode:          event.Livemode,
	}
	if v, ok := session.Metadata["transaction_id"]; ok {
		evt.TransactionID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := session.Metadata["wallet_id"]; ok {
		evt.WalletID, _ = strconv.ParseInt(v, 10, 64)
	}
	return evt, nil
}

// ParsePayoutEvent верифицирует подпись вебхука выплат и нормализует
// payout.paid / payout.failed. Прочие типы - nil, nil.
func (g *StripeGateway) ParsePayoutEvent(payload []byte, signature string) (*ports.WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.payoutWebhookSecret)
	if err != nil {
		return nil, domainErrors.New(domainErrors.KindValidation,
			"invalid webhook signature", err)
	}

	var status string
	switch event.Type {
	case "payout.paid":
		status = "paid"
	case "payout.failed":
		status = "failed"
	default:
		return nil, nil
	}

	var payout stripe.Payout
	if err := json.Unmarshal(event.Data.Raw, &payout); err != nil {
		return nil, domainErrors.New(domainErrors.KindValidation,
			"failed to decode payout", err)
	}

	currency, err := valueobjects.NewCurrency(string(payout.Currency))
	if err != nil {
		return nil, domainErrors.New(domainErrors.KindUnsupported,
			fmt.Sprintf("webhook currency %q is not supported", payout.Currency), err)
	}
	amount, err := valueobjects.NewMoneyFromMinorUnits(payout.Amount, currency)
	if err != nil {
		return nil, domainErrors.New(domainErrors.KindValidation,
			"invalid webhook amount", err)
	}

	evt := &ports.WebhookEvent{
		IdempotencyKey:    payout.Metadata["idempotency_key"],
		ExternalPaymentID: payout.ID,
		Amount:            amount,
		Status:            status,
		Livemode:          event.Livemode,
	}
	if v, ok := payout.Metadata["transaction_id"]; ok {
		evt.TransactionID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := payout.Metadata["wallet_id"]; ok {
		evt.WalletID, _ = strconv.ParseInt(v, 10, 64)
	}
	return evt, nil
}

// providerError оборачивает ошибку Stripe. Ошибки провайдера не retryable.
func providerError(msg string, err error) error {
	return domainErrors.New(domainErrors.KindProvider, msg, err)
}
