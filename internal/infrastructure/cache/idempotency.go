// Package cache - Redis-реализация idempotency-кэша.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/novafin/wallet/internal/application/ports"
	domainErrors "github.com/novafin/wallet/internal/domain/errors"
)

// Compile-time check
var _ ports.IdempotencyCache = (*IdempotencyCache)(nil)

// IdempotencyCache хранит терминальные результаты операций в Redis.
// Ключи имеют общий префикс, значение живёт TTL (по умолчанию 24ч);
// после истечения авторитетной остаётся строка транзакции.
type IdempotencyCache struct {
	client *redis.Client
	prefix string
}

// NewIdempotencyCache создаёт кэш поверх готового клиента.
func NewIdempotencyCache(client *redis.Client, prefix string) *IdempotencyCache {
	return &IdempotencyCache{client: client, prefix: prefix}
}

// NewRedisClient подключается к Redis и проверяет соединение.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func (c *IdempotencyCache) key(k string) string {
	return c.prefix + k
}

// Exists проверяет наличие ключа.
func (c *IdempotencyCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(key)).Result()
	if err != nil {
		return false, domainErrors.New(domainErrors.KindCache, "failed to check idempotency key", err)
	}
	return n > 0, nil
}

// Remember сохраняет payload под ключом с TTL (SET с EX).
func (c *IdempotencyCache) Remember(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(key), payload, ttl).Err(); err != nil {
		return domainErrors.New(domainErrors.KindCache, "failed to store idempotency result", err)
	}
	return nil
}

// Get возвращает закэшированный результат, nil если ключа нет.
func (c *IdempotencyCache) Get(ctx context.Context, key string) ([]byte, error) {
	payload, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, domainErrors.New(domainErrors.KindCache, "failed to read idempotency result", err)
	}
	return payload, nil
}
