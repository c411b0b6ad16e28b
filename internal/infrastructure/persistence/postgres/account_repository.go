// Package postgres - AccountRepository с row-level блокировками.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/novafin/wallet/internal/application/ports"
	"github.com/novafin/wallet/internal/domain/entities"
	domainErrors "github.com/novafin/wallet/internal/domain/errors"
	"github.com/novafin/wallet/internal/domain/valueobjects"
)

// Compile-time check
var _ ports.AccountRepository = (*AccountRepository)(nil)

// AccountRepository реализует ports.AccountRepository.
//
// Изменение баланса - строго read-modify-write под SELECT ... FOR UPDATE
// в транзакции, которая пишет и строку транзакции: конкурентные мутации
// одного счёта сериализуются блокировкой строки.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository создаёт новый AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// FindByWallet возвращает счета кошелька, опционально по валюте.
// Явный запрос по wallet_id - без eager-load связей.
func (r *AccountRepository) FindByWallet(ctx context.Context, walletID int64, currency *valueobjects.Currency) ([]*entities.Account, error) {
	q := r.getQuerier(ctx)

	query := `
		SELECT id, wallet_id, currency, kind, amount
		FROM wallet_accounts
		WHERE wallet_id = $1
	`
	args := []any{walletID}
	if currency != nil {
		query += ` AND currency = $2`
		args = append(args, currency.Code())
	}
	query += ` ORDER BY currency ASC`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*entities.Account
	for rows.Next() {
		account, err := scanAccountRow(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}
	return accounts, nil
}

// FindForUpdate загружает счёт под FOR UPDATE.
func (r *AccountRepository) FindForUpdate(ctx context.Context, walletID int64, currency valueobjects.Currency, kind valueobjects.AccountKind) (*entities.Account, error) {
	q := r.getQuerier(ctx)

	query := `
		SELECT id, wallet_id, currency, kind, amount
		FROM wallet_accounts
		WHERE wallet_id = $1 AND currency = $2 AND kind = $3
		FOR UPDATE
	`

	account, err := scanAccountRow(q.QueryRow(ctx, query, walletID, currency.Code(), string(kind)))
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Create создаёт счёт (ленивое создание при первом зачислении).
func (r *AccountRepository) Create(ctx context.Context, account *entities.Account) (*entities.Account, error) {
	q := r.getQuerier(ctx)

	query := `
		INSERT INTO wallet_accounts (wallet_id, currency, kind, amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	err := q.QueryRow(ctx, query,
		account.WalletID(),
		account.Currency().Code(),
		string(account.Kind()),
		account.Amount().Decimal(),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err, "uq_wallet_currency_kind") {
			return nil, domainErrors.New(domainErrors.KindStorage,
				"account already exists for wallet/currency/kind", err)
		}
		return nil, fmt.Errorf("failed to insert wallet account: %w", err)
	}

	return entities.ReconstructAccount(id, account.WalletID(), account.Currency(), account.Kind(), account.Amount()), nil
}

// UpdateAmount сохраняет новый баланс счёта.
// CHECK (amount >= 0) в схеме страхует инвариант на уровне БД.
func (r *AccountRepository) UpdateAmount(ctx context.Context, account *entities.Account) error {
	q := r.getQuerier(ctx)

	query := `UPDATE wallet_accounts SET amount = $2 WHERE id = $1`

	tag, err := q.Exec(ctx, query, account.ID(), account.Amount().Decimal())
	if err != nil {
		if isCheckViolation(err) {
			return domainErrors.ErrInsufficientFunds
		}
		return fmt.Errorf("failed to update account amount: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrAccountNotFound
	}
	return nil
}

// scanAccountRow сканирует строку счёта.
func scanAccountRow(row pgx.Row) (*entities.Account, error) {
	var (
		id, walletID int64
		currencyCode string
		kindStr      string
		amount       decimal.Decimal
	)

	if err := row.Scan(&id, &walletID, &currencyCode, &kindStr, &amount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to scan wallet account: %w", err)
	}

	currency, err := valueobjects.NewCurrency(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("invalid currency in database: %w", err)
	}

	money, err := valueobjects.NewMoneyFromDecimal(amount, currency)
	if err != nil {
		return nil, fmt.Errorf("invalid amount in database: %w", err)
	}

	return entities.ReconstructAccount(id, walletID, currency, valueobjects.AccountKind(kindStr), money), nil
}
