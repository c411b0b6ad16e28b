package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/novafin/wallet/internal/application/ports"
	"github.com/novafin/wallet/internal/domain/entities"
	domainErrors "github.com/novafin/wallet/internal/domain/errors"
	"github.com/novafin/wallet/internal/domain/valueobjects"
)

// Compile-time check
var _ ports.TransactionRepository = (*TransactionRepository)(nil)

// TransactionRepository реализует ports.TransactionRepository.
// Записи append-only кроме status и external_id.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository создаёт новый TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

func (r *TransactionRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const transactionColumns = `
	id, user_id, wallet_id, to_wallet_id, currency, from_currency, to_currency,
	amount, operation, status, correlation_id, external_id, idempotency_key,
	provider, date
`

// Create вставляет транзакцию и возвращает присвоенный ID.
func (r *TransactionRepository) Create(ctx context.Context, tx *entities.Transaction) (*entities.Transaction, error) {
	q := r.getQuerier(ctx)

	query := `
		INSERT INTO wallet_transactions (
			user_id, wallet_id, to_wallet_id, currency, from_currency, to_currency,
			amount, operation, status, correlation_id, external_id, idempotency_key,
			provider, date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`

	var fromCurrency, toCurrency *string
	if c := tx.FromCurrency(); c != nil {
		code := c.Code()
		fromCurrency = &code
	}
	if c := tx.ToCurrency(); c != nil {
		code := c.Code()
		toCurrency = &code
	}

	var id int64
	err := q.QueryRow(ctx, query,
		tx.UserID(),
		tx.WalletID(),
		tx.ToWalletID(),
		tx.Currency().Code(),
		fromCurrency,
		toCurrency,
		tx.Amount().Decimal(),
		string(tx.Operation()),
		string(tx.Status()),
		tx.CorrelationID().String(),
		nullable(tx.ExternalID()),
		tx.IdempotencyKey(),
		nullable(tx.Provider()),
		tx.Date(),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to insert wallet transaction: %w", err)
	}

	return entities.ReconstructTransaction(
		id, tx.UserID(), tx.WalletID(), tx.ToWalletID(),
		tx.Currency(), tx.FromCurrency(), tx.ToCurrency(),
		tx.Amount(), tx.Operation(), tx.Status(),
		tx.CorrelationID(), tx.ExternalID(), tx.IdempotencyKey(), tx.Provider(),
		tx.Date(),
	), nil
}

// FindByID загружает транзакцию.
func (r *TransactionRepository) FindByID(ctx context.Context, id int64) (*entities.Transaction, error) {
	q := r.getQuerier(ctx)

	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE id = $1`
	return scanTransactionRow(q.QueryRow(ctx, query, id))
}

// FindByIdempotencyKey находит транзакцию по ключу идемпотентности.
func (r *TransactionRepository) FindByIdempotencyKey(ctx context.Context, key string) (*entities.Transaction, error) {
	q := r.getQuerier(ctx)

	query := `
		SELECT ` + transactionColumns + `
		FROM wallet_transactions
		WHERE idempotency_key = $1
		ORDER BY date ASC
		LIMIT 1
	`
	return scanTransactionRow(q.QueryRow(ctx, query, key))
}

// FindByWalletID возвращает историю транзакций кошелька.
func (r *TransactionRepository) FindByWalletID(ctx context.Context, walletID int64, offset, limit int) ([]*entities.Transaction, error) {
	q := r.getQuerier(ctx)

	query := `
		SELECT ` + transactionColumns + `
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY date DESC
		OFFSET $2 LIMIT $3
	`

	rows, err := q.Query(ctx, query, walletID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet transactions: %w", err)
	}
	defer rows.Close()

	var txs []*entities.Transaction
	for rows.Next() {
		tx, err := scanTransactionRow(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return txs, nil
}

// UpdateStatus сохраняет статус и external_id транзакции.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, tx *entities.Transaction) error {
	q := r.getQuerier(ctx)

	query := `UPDATE wallet_transactions SET status = $2, external_id = $3 WHERE id = $1`

	tag, err := q.Exec(ctx, query, tx.ID(), string(tx.Status()), nullable(tx.ExternalID()))
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrEntityNotFound
	}
	return nil
}

// UpdateStatusByIdempotencyKey переводит статус транзакции по ключу
// под охранным условием на текущий статус. Промах охраны (строка ещё
// не закоммичена оркестратором или переход уже выполнен) - STORAGE_ERROR,
// вызывающий повтор у воркера вместо слепой перезаписи.
func (r *TransactionRepository) UpdateStatusByIdempotencyKey(ctx context.Context, key string, from, to entities.TransactionStatus) error {
	q := r.getQuerier(ctx)

	query := `UPDATE wallet_transactions SET status = $3 WHERE idempotency_key = $1 AND status = $2`

	tag, err := q.Exec(ctx, query, key, string(from), string(to))
	if err != nil {
		return fmt.Errorf("failed to update transaction status by idempotency key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.New(domainErrors.KindStorage,
			fmt.Sprintf("transaction %q is not in status %s", key, from), nil)
	}
	return nil
}

// nullable превращает пустую строку в NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// scanTransactionRow сканирует строку транзакции.
func scanTransactionRow(row pgx.Row) (*entities.Transaction, error) {
	var (
		id, userID, walletID             int64
		toWalletID                       *int64
		currencyCode                     string
		fromCurrencyCode, toCurrencyCode *string
		amount                           decimal.Decimal
		operation, status                string
		correlationID                    uuid.UUID
		externalID, provider             *string
		idempotencyKey                   string
		date                             time.Time
	)

	err := row.Scan(
		&id, &userID, &walletID, &toWalletID,
		&currencyCode, &fromCurrencyCode, &toCurrencyCode,
		&amount, &operation, &status, &correlationID,
		&externalID, &idempotencyKey, &provider, &date,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrEntityNotFound
		}
		return nil, fmt.Errorf("failed to scan wallet transaction: %w", err)
	}

	currency, err := valueobjects.NewCurrency(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("invalid currency in database: %w", err)
	}

	money, err := valueobjects.NewMoneyFromDecimal(amount, currency)
	if err != nil {
		return nil, fmt.Errorf("invalid amount in database: %w", err)
	}

	var fromCurrency, toCurrency *valueobjects.Currency
	if fromCurrencyCode != nil {
		c, err := valueobjects.NewCurrency(*fromCurrencyCode)
		if err != nil {
			return nil, fmt.Errorf("invalid from_currency in database: %w", err)
		}
		fromCurrency = &c
	}
	if toCurrencyCode != nil {
		c, err := valueobjects.NewCurrency(*toCurrencyCode)
		if err != nil {
			return nil, fmt.Errorf("invalid to_currency in database: %w", err)
		}
		toCurrency = &c
	}

	return entities.ReconstructTransaction(
		id, userID, walletID, toWalletID,
		currency, fromCurrency, toCurrency,
		money, entities.OperationType(operation), entities.TransactionStatus(status),
		correlationID, deref(externalID), idempotencyKey, deref(provider),
		date,
	), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
