package wallet

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/novafin/wallet/internal/domain/entities"
	domainErrors "github.com/novafin/wallet/internal/domain/errors"
	"github.com/novafin/wallet/internal/domain/valueobjects"
)

// Mock repositories and services

type mockWalletRepo struct {
	createFunc       func(ctx context.Context, w *entities.Wallet) (*entities.Wallet, error)
	findByIDFunc     func(ctx context.Context, id int64) (*entities.Wallet, error)
	findByUserIDFunc func(ctx context.Context, userID int64) (*entities.Wallet, error)
}

func (m *mockWalletRepo) Create(ctx context.Context, w *entities.Wallet) (*entities.Wallet, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, w)
	}
	return entities.ReconstructWallet(1, w.UserID(), w.CreatedAt()), nil
}

func (m *mockWalletRepo) FindByID(ctx context.Context, id int64) (*entities.Wallet, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, domainErrors.ErrNoWallet
}

func (m *mockWalletRepo) FindByUserID(ctx context.Context, userID int64) (*entities.Wallet, error) {
	if m.findByUserIDFunc != nil {
		return m.findByUserIDFunc(ctx, userID)
	}
	return nil, domainErrors.ErrNoWallet
}

type mockAccountRepo struct {
	findByWalletFunc  func(ctx context.Context, walletID int64, currency *valueobjects.Currency) ([]*entities.Account, error)
	findForUpdateFunc func(ctx context.Context, walletID int64, currency valueobjects.Currency, kind valueobjects.AccountKind) (*entities.Account, error)
	createFunc        func(ctx context.Context, account *entities.Account) (*entities.Account, error)
	updateAmountFunc  func(ctx context.Context, account *entities.Account) error
}

func (m *mockAccountRepo) FindByWallet(ctx context.Context, walletID int64, currency *valueobjects.Currency) ([]*entities.Account, error) {
	if m.findByWalletFunc != nil {
		return m.findByWalletFunc(ctx, walletID, currency)
	}
	return nil, nil
}

func (m *mockAccountRepo) FindForUpdate(ctx context.Context, walletID int64, currency valueobjects.Currency, kind valueobjects.AccountKind) (*entities.Account, error) {
	if m.findForUpdateFunc != nil {
		return m.findForUpdateFunc(ctx, walletID, currency, kind)
	}
	return nil, domainErrors.ErrAccountNotFound
}

func (m *mockAccountRepo) Create(ctx context.Context, account *entities.Account) (*entities.Account, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, account)
	}
	return account, nil
}

func (m *mockAccountRepo) UpdateAmount(ctx context.Context, account *entities.Account) error {
	if m.updateAmountFunc != nil {
		return m.updateAmountFunc(ctx, account)
	}
	return nil
}

type mockTxRepo struct {
	createFunc               func(ctx context.Context, tx *entities.Transaction) (*entities.Transaction, error)
	findByIDFunc             func(ctx context.Context, id int64) (*entities.Transaction, error)
	findByIdempotencyKeyFunc func(ctx context.Context, key string) (*entities.Transaction, error)
	findByWalletIDFunc       func(ctx context.Context, walletID int64, offset, limit int) ([]*entities.Transaction, error)
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
	if m.findByWalletIDFunc != nil {
		return m.findByWalletIDFunc(ctx, walletID, offset, limit)
	}
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

type mockCurrencyRepo struct {
	getRateFunc func(ctx context.Context, code valueobjects.Currency) (*entities.CurrencyRate, error)
	upsertFunc  func(ctx context.Context, rate *entities.CurrencyRate) error
}

func (m *mockCurrencyRepo) GetRate(ctx context.Context, code valueobjects.Currency) (*entities.CurrencyRate, error) {
	if m.getRateFunc != nil {
		return m.getRateFunc(ctx, code)
	}
	return nil, domainErrors.ErrCurrencyUnknown
}

func (m *mockCurrencyRepo) Upsert(ctx context.Context, rate *entities.CurrencyRate) error {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, rate)
	}
	return nil
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
