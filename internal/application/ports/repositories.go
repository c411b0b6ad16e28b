// Package ports определяет интерфейсы (порты) для внешних зависимостей.
// Реализации живут в Infrastructure Layer.
//
// Pattern: Repository Pattern + Ports & Adapters.
package ports

import (
	"context"

	"github.com/novafin/wallet/internal/domain/entities"
	"github.com/novafin/wallet/internal/domain/valueobjects"
)

// WalletRepository - контракт хранения кошельков.
type WalletRepository interface {
	// Create вставляет кошелёк и возвращает присвоенный ID.
	// Дубликат user_id - ошибка (UNIQUE constraint).
	Create(ctx context.Context, wallet *entities.Wallet) (*entities.Wallet, error)

	// FindByID загружает кошелёк по ID.
	FindByID(ctx context.Context, id int64) (*entities.Wallet, error)

	// FindByUserID находит кошелёк пользователя.
	// Возвращает ErrNoWallet если кошелька нет.
	FindByUserID(ctx context.Context, userID int64) (*entities.Wallet, error)
}

// AccountRepository - контракт хранения валютных счетов.
//
// Изменение баланса всегда идёт read-modify-write под row-level блокировкой
// в той же транзакции, что и запись результата (см. FindForUpdate).
type AccountRepository interface {
	// FindByWallet возвращает счета кошелька, опционально по валюте.
	FindByWallet(ctx context.Context, walletID int64, currency *valueobjects.Currency) ([]*entities.Account, error)

	// FindForUpdate загружает счёт под SELECT ... FOR UPDATE.
	// Возвращает ErrAccountNotFound если счёта нет.
	FindForUpdate(ctx context.Context, walletID int64, currency valueobjects.Currency, kind valueobjects.AccountKind) (*entities.Account, error)

	// Create создаёт счёт (ленивое создание при первом зачислении).
	Create(ctx context.Context, account *entities.Account) (*entities.Account, error)

	// UpdateAmount сохраняет новый баланс счёта.
	UpdateAmount(ctx context.Context, account *entities.Account) error
}

// TransactionRepository - контракт хранения транзакций.
type TransactionRepository interface {
	// Create вставляет транзакцию и возвращает присвоенный ID.
	Create(ctx context.Context, tx *entities.Transaction) (*entities.Transaction, error)

	// FindByID загружает транзакцию.
	FindByID(ctx context.Context, id int64) (*entities.Transaction, error)

	// FindByIdempotencyKey находит транзакцию по ключу идемпотентности.
	// Авторитетная запись: кэш - лишь fast path.
	FindByIdempotencyKey(ctx context.Context, key string) (*entities.Transaction, error)

	// FindByWalletID возвращает историю транзакций кошелька.
	FindByWalletID(ctx context.Context, walletID int64, offset, limit int) ([]*entities.Transaction, error)

	// UpdateStatus сохраняет статус и external_id транзакции.
	UpdateStatus(ctx context.Context, tx *entities.Transaction) error

	// UpdateStatusByIdempotencyKey переводит статус транзакции по ключу
	// с охранным условием: строка должна находиться в статусе from.
	// Ноль затронутых строк - ошибка класса STORAGE_ERROR: либо строка
	// ещё не закоммичена (безопасно повторить), либо переход уже сделан.
	UpdateStatusByIdempotencyKey(ctx context.Context, key string, from, to entities.TransactionStatus) error
}

// CurrencyRepository - контракт таблицы курсов.
type CurrencyRepository interface {
	// GetRate возвращает курс валюты к базовой (RUB).
	// Возвращает ErrCurrencyUnknown для отсутствующего кода.
	GetRate(ctx context.Context, code valueobjects.Currency) (*entities.CurrencyRate, error)

	// Upsert вставляет или обновляет курс. Используется FX refresher'ом.
	Upsert(ctx context.Context, rate *entities.CurrencyRate) error
}

// ProviderBalanceRepository - контракт учёта ликвидности провайдеров.
type ProviderBalanceRepository interface {
	// FindForUpdate загружает строку провайдера под FOR UPDATE.
	// Возвращает nil, nil если строки нет.
	FindForUpdate(ctx context.Context, provider entities.Provider) (*entities.ProviderBalance, error)

	// Create создаёт строку провайдера.
	Create(ctx context.Context, balance *entities.ProviderBalance) (*entities.ProviderBalance, error)

	// UpdateAmount сохраняет новую доступную сумму.
	UpdateAmount(ctx context.Context, balance *entities.ProviderBalance) error
}

// LinkedAccountRepository - контракт связанных аккаунтов провайдера.
type LinkedAccountRepository interface {
	// FindByUser находит аккаунт пользователя у провайдера.
	// Возвращает nil, nil если аккаунт не привязан.
	FindByUser(ctx context.Context, userID int64, provider entities.Provider) (*entities.LinkedAccount, error)

	// Create сохраняет привязку (user_id уникален на провайдера).
	Create(ctx context.Context, account *entities.LinkedAccount) (*entities.LinkedAccount, error)
}
