// Package postgres - UnitOfWork implementation для PostgreSQL.
//
// Usage:
//
//	err := uow.Execute(ctx, func(txCtx context.Context) error {
//	    acc, _ := accountRepo.FindForUpdate(txCtx, walletID, currency, kind)
//	    acc.Apply(delta)
//	    return accountRepo.UpdateAmount(txCtx, acc) // nil = COMMIT
//	})
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/novafin/wallet/internal/application/ports"
)

// Compile-time check
var _ ports.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork реализует ports.UnitOfWork с PostgreSQL транзакциями.
// Изоляция по умолчанию - READ COMMITTED; сериализацию конкурентных
// изменений баланса обеспечивают row-level блокировки (FOR UPDATE).
type UnitOfWork struct {
	pool *pgxpool.Pool
	opts pgx.TxOptions
}

// NewUnitOfWork создаёт новый UnitOfWork.
func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{
		pool: pool,
		opts: pgx.TxOptions{IsoLevel: pgx.ReadCommitted},
	}
}

// Execute выполняет функцию внутри транзакции.
//
// - nil от fn: COMMIT
// - ошибка от fn: ROLLBACK
// - panic: ROLLBACK + re-panic
//
// Вложенный вызов переиспользует транзакцию из context.
func (u *UnitOfWork) Execute(ctx context.Context, fn func(context.Context) error) error {
	if hasTx(ctx) {
		return fn(ctx)
	}

	tx, err := u.pool.BeginTx(ctx, u.opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	txCtx := injectTx(ctx, tx)

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
