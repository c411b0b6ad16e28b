package ports

import (
	"context"
	"time"
)

// IdempotencyCache - key-value хранилище с TTL для идемпотентности.
//
// Оркестратор использует его как gate ("отклонить повторную подачу"),
// воркер - для публикации терминального результата операции.
//
// Отсутствие ключа после истечения TTL НЕ означает "операции не было":
// авторитетная запись - строка транзакции, кэш - fast path.
type IdempotencyCache interface {
	// Exists проверяет наличие ключа.
	Exists(ctx context.Context, key string) (bool, error)

	// Remember сохраняет payload под ключом с TTL (SETEX, last-writer-wins:
	// кэшируемое значение - детерминированное терминальное состояние).
	Remember(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// Get возвращает закэшированный результат (nil если ключа нет).
	Get(ctx context.Context, key string) ([]byte, error)
}
