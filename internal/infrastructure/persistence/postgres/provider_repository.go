package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/novafin/wallet/internal/application/ports"
	"github.com/novafin/wallet/internal/domain/entities"
	domainErrors "github.com/novafin/wallet/internal/domain/errors"
	"github.com/novafin/wallet/internal/domain/valueobjects"
)

// Compile-time checks
var (
	_ ports.ProviderBalanceRepository = (*ProviderBalanceRepository)(nil)
	_ ports.LinkedAccountRepository   = (*LinkedAccountRepository)(nil)
)

// ProviderBalanceRepository реализует ports.ProviderBalanceRepository.
// Одна строка на провайдера; изменение суммы - под FOR UPDATE,
// той же дисциплиной, что и счета кошельков.
type ProviderBalanceRepository struct {
	pool *pgxpool.Pool
}

// NewProviderBalanceRepository создаёт новый ProviderBalanceRepository.
func NewProviderBalanceRepository(pool *pgxpool.Pool) *ProviderBalanceRepository {
	return &ProviderBalanceRepository{pool: pool}
}

func (r *ProviderBalanceRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// FindForUpdate загружает строку провайдера под FOR UPDATE.
// nil, nil - строки ещё нет (создаётся при первом положительном дельте).
func (r *ProviderBalanceRepository) FindForUpdate(ctx context.Context, provider entities.Provider) (*entities.ProviderBalance, error) {
	q := r.getQuerier(ctx)

	query := `
		SELECT id, provider, currency, available_amount, updated_at
		FROM payment_provider_balances
		WHERE provider = $1
		FOR UPDATE
	`

	balance := &entities.ProviderBalance{}
	var providerStr, currencyStr string
	err := q.QueryRow(ctx, query, string(provider)).Scan(
		&balance.ID, &providerStr, &currencyStr, &balance.AvailableAmount, &balance.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query provider balance: %w", err)
	}

	currency, err := valueobjects.NewCurrency(currencyStr)
	if err != nil {
		return nil, fmt.Errorf("invalid currency in database: %w", err)
	}
	balance.Provider = entities.Provider(providerStr)
	balance.Currency = currency

	return balance, nil
}

// Create создаёт строку провайдера.
func (r *ProviderBalanceRepository) Create(ctx context.Context, balance *entities.ProviderBalance) (*entities.ProviderBalance, error) {
	q := r.getQuerier(ctx)

	query := `
		INSERT INTO payment_provider_balances (provider, currency, available_amount, updated_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, updated_at
	`

	created := *balance
	err := q.QueryRow(ctx, query,
		string(balance.Provider),
		balance.Currency.Code(),
		balance.AvailableAmount,
	).Scan(&created.ID, &created.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "payment_provider_balances_provider") {
			return nil, domainErrors.New(domainErrors.KindStorage,
				fmt.Sprintf("balance row for provider %s already exists", balance.Provider), err)
		}
		return nil, fmt.Errorf("failed to insert provider balance: %w", err)
	}

	return &created, nil
}

// UpdateAmount сохраняет новую доступную сумму.
func (r *ProviderBalanceRepository) UpdateAmount(ctx context.Context, balance *entities.ProviderBalance) error {
	q := r.getQuerier(ctx)

	query := `
		UPDATE payment_provider_balances
		SET available_amount = $2, updated_at = now()
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query, balance.ID, balance.AvailableAmount)
	if err != nil {
		return fmt.Errorf("failed to update provider balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrEntityNotFound
	}
	return nil
}

// LinkedAccountRepository реализует ports.LinkedAccountRepository.
type LinkedAccountRepository struct {
	pool *pgxpool.Pool
}

// NewLinkedAccountRepository создаёт новый LinkedAccountRepository.
func NewLinkedAccountRepository(pool *pgxpool.Pool) *LinkedAccountRepository {
	return &LinkedAccountRepository{pool: pool}
}

func (r *LinkedAccountRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// FindByUser находит привязанный аккаунт пользователя у провайдера.
// nil, nil - аккаунт не привязан.
func (r *LinkedAccountRepository) FindByUser(ctx context.Context, userID int64, provider entities.Provider) (*entities.LinkedAccount, error) {
	q := r.getQuerier(ctx)

	query := `
		SELECT id, user_id, provider, external_account_id, created_at
		FROM provider_accounts
		WHERE user_id = $1 AND provider = $2
	`

	account := &entities.LinkedAccount{}
	var providerStr string
	err := q.QueryRow(ctx, query, userID, string(provider)).Scan(
		&account.ID, &account.UserID, &providerStr, &account.ExternalAccountID, &account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query provider account: %w", err)
	}
	account.Provider = entities.Provider(providerStr)

	return account, nil
}

// Create сохраняет привязку аккаунта.
func (r *LinkedAccountRepository) Create(ctx context.Context, account *entities.LinkedAccount) (*entities.LinkedAccount, error) {
	q := r.getQuerier(ctx)

	query := `
		INSERT INTO provider_accounts (user_id, provider, external_account_id, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	createdAt := account.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	created := *account
	created.CreatedAt = createdAt
	err := q.QueryRow(ctx, query,
		account.UserID, string(account.Provider), account.ExternalAccountID, createdAt,
	).Scan(&created.ID)
	if err != nil {
		if isUniqueViolation(err, "uq_provider_accounts_user") {
			return nil, domainErrors.New(domainErrors.KindValidation,
				fmt.Sprintf("user %d already has a %s account", account.UserID, account.Provider), err)
		}
		return nil, fmt.Errorf("failed to insert provider account: %w", err)
	}

	return &created, nil
}
