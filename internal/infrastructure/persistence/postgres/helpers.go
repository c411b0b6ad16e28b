// Package postgres - вспомогательные функции для работы с PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// txKey - ключ для хранения транзакции в context.
type txKey struct{}

// injectTx добавляет транзакцию в context.
// Используется UnitOfWork для передачи транзакции в repositories.
func injectTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// extractTx извлекает транзакцию из context. nil если транзакции нет.
func extractTx(ctx context.Context) pgx.Tx {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	if !ok {
		return nil
	}
	return tx
}

// hasTx проверяет наличие транзакции в context.
func hasTx(ctx context.Context) bool {
	return extractTx(ctx) != nil
}

// PostgreSQL error codes
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"

	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// isPgError проверяет код ошибки PostgreSQL.
func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == code
}

// isUniqueViolation проверяет нарушение UNIQUE constraint.
// constraintName - опциональное имя constraint.
func isUniqueViolation(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != pgUniqueViolation {
		return false
	}
	if constraintName != "" {
		return strings.Contains(pgErr.ConstraintName, constraintName)
	}
	return true
}

// isCheckViolation проверяет нарушение CHECK constraint
// (например, amount >= 0 на счёте).
func isCheckViolation(err error) bool {
	return isPgError(err, pgCheckViolation)
}

// isRetryableError - deadlock, serialization failure, connection errors.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if isPgError(err, pgSerializationFailure) || isPgError(err, pgDeadlockDetected) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 - Connection Exception
		return strings.HasPrefix(pgErr.Code, "08")
	}
	return false
}
