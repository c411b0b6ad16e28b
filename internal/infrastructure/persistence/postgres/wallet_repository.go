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
)

// Compile-time check
var _ ports.WalletRepository = (*WalletRepository)(nil)

// WalletRepository реализует ports.WalletRepository.
type WalletRepository struct {
	pool *pgxpool.Pool
}

// NewWalletRepository создаёт новый WalletRepository.
func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

// getQuerier возвращает querier из context или pool.
func (r *WalletRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// Create вставляет кошелёк. Второй кошелёк для пользователя - ошибка
// (UNIQUE на user_id держит инвариант "один кошелёк на пользователя").
func (r *WalletRepository) Create(ctx context.Context, wallet *entities.Wallet) (*entities.Wallet, error) {
	q := r.getQuerier(ctx)

	query := `
		INSERT INTO wallets (user_id, created_at)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	var (
		id        int64
		createdAt time.Time
	)
	err := q.QueryRow(ctx, query, wallet.UserID(), wallet.CreatedAt()).Scan(&id, &createdAt)
	if err != nil {
		if isUniqueViolation(err, "wallets_user_id") {
			return nil, domainErrors.New(domainErrors.KindValidation,
				fmt.Sprintf("wallet for user %d already exists", wallet.UserID()), err)
		}
		return nil, fmt.Errorf("failed to insert wallet: %w", err)
	}

	return entities.ReconstructWallet(id, wallet.UserID(), createdAt), nil
}

// FindByID загружает кошелёк по ID.
func (r *WalletRepository) FindByID(ctx context.Context, id int64) (*entities.Wallet, error) {
	q := r.getQuerier(ctx)

	query := `SELECT id, user_id, created_at FROM wallets WHERE id = $1`
	return r.scanWallet(q.QueryRow(ctx, query, id))
}

// FindByUserID находит кошелёк пользователя.
func (r *WalletRepository) FindByUserID(ctx context.Context, userID int64) (*entities.Wallet, error) {
	q := r.getQuerier(ctx)

	query := `SELECT id, user_id, created_at FROM wallets WHERE user_id = $1`
	return r.scanWallet(q.QueryRow(ctx, query, userID))
}

// scanWallet сканирует одну строку в Wallet entity.
func (r *WalletRepository) scanWallet(row pgx.Row) (*entities.Wallet, error) {
	var (
		id, userID int64
		createdAt  time.Time
	)

	if err := row.Scan(&id, &userID, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNoWallet
		}
		return nil, fmt.Errorf("failed to scan wallet: %w", err)
	}

	return entities.ReconstructWallet(id, userID, createdAt), nil
}
