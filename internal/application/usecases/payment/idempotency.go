// Package payment содержит use cases платёжного контура:
// депозиты и выводы через внешние шлюзы, вебхуки, привязка аккаунтов.
package payment

import (
	"context"

	"github.com/novafin/wallet/internal/application/ports"
	domainErrors "github.com/novafin/wallet/internal/domain/errors"
)

// ensureNotDone отклоняет повторную подачу по уже обработанному ключу.
func ensureNotDone(ctx context.Context, cache ports.IdempotencyCache, txRepo ports.TransactionRepository, key string) error {
	if key == "" {
		return domainErrors.ValidationError{Field: "idempotency_key", Message: "is required"}
	}

	exists, err := cache.Exists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		// Терминальный результат ещё в кэше - отдаём его вместе с отказом.
		if cached, err := cache.Get(ctx, key); err == nil && len(cached) > 0 {
			return &domainErrors.IdempotentlyDoneError{CachedResult: cached}
		}
		return domainErrors.ErrIdempotentlyDone
	}

	if _, err := txRepo.FindByIdempotencyKey(ctx, key); err == nil {
		return domainErrors.ErrIdempotentlyDone
	} else if !domainErrors.IsNotFound(err) {
		return err
	}
	return nil
}
