package payment

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/novafin/wallet/internal/application/ports"
	"github.com/novafin/wallet/internal/domain/entities"
	domainErrors "github.com/novafin/wallet/internal/domain/errors"
	"github.com/novafin/wallet/internal/domain/valueobjects"
)

// Mock repositories and services

type mockWalletRepo struct {
	findByUserIDFunc func(ctx context.Context, userID int64) (*entities.Wallet, error)
}

func (m *mockWalletRepo) Create(ctx context.Context, w *entities.Wallet) (*entities.Wallet, error) {
	return w, nil
}

func (m *mockWalletRepo) FindByID(ctx context.Context, id int64) (*entities.Wallet, error) {
	return nil, domainErrors.ErrNoWallet
}

func (m *mockWalletRepo) FindByUserID(ctx context.Context, userID int64) (*entities.Wallet, error) {
	if m.findByUserIDFunc != nil {
		return m.findByUserIDFunc(ctx, userID)
	}
	return entities.ReconstructWallet(100+userID, userID, time.Now()), nil
}

type mockAccountRepo struct {
	findByWalletFunc func(ctx context.Context, walletID int64, currency *valueobjects.Currency) ([]*entities.Account, error)
}

func (m *mockAccountRepo) FindByWallet(ctx context.Context, walletID int64, currency *valueobjects.Currency) ([]*entities.Account, error) {
	if m.findByWalletFunc != nil {
		return m.findByWalletFunc(ctx, walletID, currency)
	}
	return nil, nil
}

func (m *mockAccountRepo) FindForUpdate(ctx context.Context, walletID int64, currency valueobjects.Currency, kind valueobjects.AccountKind) (*entities.Account, error) {
	return nil, domainErrors.ErrAccountNotFound
}

func (m *mockAccountRepo) Create(ctx context.Context, account *entities.Account) (*entities.Account, error) {
	return account, nil
}

func (m *mockAccountRepo) UpdateAmount(ctx context.Context, account *entities.Account) error {
	return nil
}

type mockTxRepo struct {
	createFunc               func(ctx context.Context, tx *entities.Transaction) (*entities.Transaction, error)
	findByIDFunc             func(ctx context.Context, id int64) (*entities.Transaction, error)
	findByIdempotencyKeyFunc func(ctx context.Context, key string) (*entities.Transaction, error)
	updateStatusFunc         func(ctx context.Context, tx *entities.Transaction) error
	updateStatusByKeyFunc    func(ctx context.Context, key string, from, to entities.TransactionStatus) error
}

func (m *mockTxRepo) Create(ctx context.Context, tx *entities.Transaction) (*entities.Transaction, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, tx)
	}
	return tx, nil
}

func (m *mockTxRepo) FindByID(ctx context.Context, id int64) (*entities.Transaction, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, domainErrors.ErrEntityNotFound
}

func (m *mockTxRepo) FindByIdempotencyKey(ctx context.Context, key string) (*entities.Transaction, error) {
	if m.findByIdempotencyKeyFunc != nil {
		return m.findByIdempotencyKeyFunc(ctx, key)
	}
	return nil, domainErrors.ErrEntityNotFound
}

func (m *mockTxRepo) FindByWalletID(ctx context.Context, walletID int64, offset, limit int) ([]*entities.Transaction, error) {
	return nil, nil
}

func (m *mockTxRepo) UpdateStatus(ctx context.Context, tx *entities.Transaction) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, tx)
	}
	return nil
}

func (m *mockTxRepo) UpdateStatusByIdempotencyKey(ctx context.Context, key string, from, to entities.TransactionStatus) error {
	if m.updateStatusByKeyFunc != nil {
		return m.updateStatusByKeyFunc(ctx, key, from, to)
	}
	return nil
}

type mockLinkedRepo struct {
	findByUserFunc func(ctx context.Context, userID int64, provider entities.Provider) (*entities.LinkedAccount, error)
	createFunc     func(ctx context.Context, account *entities.LinkedAccount) (*entities.LinkedAccount, error)
}

func (m *mockLinkedRepo) FindByUser(ctx context.Context, userID int64, provider entities.Provider) (*entities.LinkedAccount, error) {
	if m.findByUserFunc != nil {
		return m.findByUserFunc(ctx, userID, provider)
	}
	return nil, nil
}

func (m *mockLinkedRepo) Create(ctx context.Context, account *entities.LinkedAccount) (*entities.LinkedAccount, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, account)
	}
	return account, nil
}

type mockCache struct {
	existsFunc   func(ctx context.Context, key string) (bool, error)
	rememberFunc func(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	getFunc      func(ctx context.Context, key string) ([]byte, error)
}

func (m *mockCache) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFunc != nil {
		return m.existsFunc(ctx, key)
	}
	return false, nil
}

func (m *mockCache) Remember(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if m.rememberFunc != nil {
		return m.rememberFunc(ctx, key, payload, ttl)
	}
	return nil
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, key)
	}
	return nil, nil
}

type publishedMessage struct {
	topic   string
	payload []byte
}

type mockProducer struct {
	publishFunc func(ctx context.Context, topic string, payload []byte) error
	published   []publishedMessage
}

func (m *mockProducer) Publish(ctx context.Context, topic string, payload []byte) error {
	if m.publishFunc != nil {
		if err := m.publishFunc(ctx, topic, payload); err != nil {
			return err
		}
	}
	m.published = append(m.published, publishedMessage{topic: topic, payload: payload})
	return nil
}

type mockUoW struct {
	executeFunc func(ctx context.Context, fn func(context.Context) error) error
}

func (m *mockUoW) Execute(ctx context.Context, fn func(context.Context) error) error {
	if m.executeFunc != nil {
		return m.executeFunc(ctx, fn)
	}
	return fn(ctx)
}

// mockGateway реализует ports.PaymentGateway через func-поля.
type mockGateway struct {
	provider                   entities.Provider
	createCheckoutSessionFunc  func(ctx context.Context, params ports.CheckoutParams) (string, error)
	createConnectedAccountFunc func(ctx context.Context, userID int64) (string, error)
	onboardingLinkFunc         func(ctx context.Context, externalAccountID string) (string, error)
	verifyAccountReadyFunc     func(ctx context.Context, externalAccountID string) error
	payoutFunc                 func(ctx context.Context, params ports.PayoutParams) (*ports.PayoutResult, error)
}

func (m *mockGateway) Provider() entities.Provider {
	if m.provider != "" {
		return m.provider
	}
	return entities.ProviderStripe
}

func (m *mockGateway) CreateCheckoutSession(ctx context.Context, params ports.CheckoutParams) (string, error) {
	if m.createCheckoutSessionFunc != nil {
		return m.createCheckoutSessionFunc(ctx, params)
	}
	return "https://checkout.example/session", nil
}

func (m *mockGateway) CreateConnectedAccount(ctx context.Context, userID int64) (string, error) {
	if m.createConnectedAccountFunc != nil {
		return m.createConnectedAccountFunc(ctx, userID)
	}
	return "acct_test", nil
}

func (m *mockGateway) OnboardingLink(ctx context.Context, externalAccountID string) (string, error) {
	if m.onboardingLinkFunc != nil {
		return m.onboardingLinkFunc(ctx, externalAccountID)
	}
	return "https://onboarding.example/" + externalAccountID, nil
}

func (m *mockGateway) VerifyAccountReady(ctx context.Context, externalAccountID string) error {
	if m.verifyAccountReadyFunc != nil {
		return m.verifyAccountReadyFunc(ctx, externalAccountID)
	}
	return nil
}

func (m *mockGateway) Payout(ctx context.Context, params ports.PayoutParams) (*ports.PayoutResult, error) {
	if m.payoutFunc != nil {
		return m.payoutFunc(ctx, params)
	}
	return &ports.PayoutResult{TransferID: "tr_test", PayoutID: "po_test", Status: "pending"}, nil
}

type mockResolver struct {
	gateway ports.PaymentGateway
}

func (m *mockResolver) Get(provider entities.Provider) (ports.PaymentGateway, error) {
	if m.gateway == nil {
		return nil, domainErrors.ErrUnsupportedGateway
	}
	return m.gateway, nil
}

type mockLiquidity struct {
	hasLiquidityFunc func(ctx context.Context, provider entities.Provider, amount valueobjects.Money) (bool, error)
	changeAmountFunc func(ctx context.Context, provider entities.Provider, delta valueobjects.Money) error
}

func (m *mockLiquidity) HasLiquidity(ctx context.Context, provider entities.Provider, amount valueobjects.Money) (bool, error) {
	if m.hasLiquidityFunc != nil {
		return m.hasLiquidityFunc(ctx, provider, amount)
	}
	return true, nil
}

func (m *mockLiquidity) ChangeAmount(ctx context.Context, provider entities.Provider, delta valueobjects.Money) error {
	if m.changeAmountFunc != nil {
		return m.changeAmountFunc(ctx, provider, delta)
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustTestMoney(t *testing.T, amount string) valueobjects.Money {
	t.Helper()
	m, err := valueobjects.NewMoney(amount, valueobjects.USD)
	if err != nil {
		t.Fatalf("failed to build money: %v", err)
	}
	return m
}
