package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/novafin/wallet/internal/application/ports"
	"github.com/novafin/wallet/internal/domain/entities"
	domainErrors "github.com/novafin/wallet/internal/domain/errors"
	"github.com/novafin/wallet/internal/domain/valueobjects"
)

// Compile-time check
var _ ports.CurrencyRepository = (*CurrencyRepository)(nil)

// CurrencyRepository реализует ports.CurrencyRepository.
type CurrencyRepository struct {
	pool *pgxpool.Pool
}

// NewCurrencyRepository создаёт новый CurrencyRepository.
func NewCurrencyRepository(pool *pgxpool.Pool) *CurrencyRepository {
	return &CurrencyRepository{pool: pool}
}

func (r *CurrencyRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// GetRate возвращает курс валюты к базовой (RUB).
func (r *CurrencyRepository) GetRate(ctx context.Context, code valueobjects.Currency) (*entities.CurrencyRate, error) {
	q := r.getQuerier(ctx)

	query := `SELECT id, code, rate_to_base, updated_at FROM currencies WHERE code = $1`

	rate := &entities.CurrencyRate{}
	var codeStr string
	err := q.QueryRow(ctx, query, code.Code()).Scan(&rate.ID, &codeStr, &rate.RateToBase, &rate.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.New(domainErrors.KindUnsupported,
				fmt.Sprintf("no rate for currency %s", code.Code()), domainErrors.ErrCurrencyUnknown)
		}
		return nil, fmt.Errorf("failed to query currency rate: %w", err)
	}

	currency, err := valueobjects.NewCurrency(codeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid currency code in database: %w", err)
	}
	rate.Code = currency

	return rate, nil
}

// Upsert вставляет или обновляет курс валюты.
// updated_at двигается только при реальном апсерте.
func (r *CurrencyRepository) Upsert(ctx context.Context, rate *entities.CurrencyRate) error {
	q := r.getQuerier(ctx)

	query := `
		INSERT INTO currencies (code, rate_to_base, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (code)
		DO UPDATE SET rate_to_base = EXCLUDED.rate_to_base, updated_at = now()
	`

	if _, err := q.Exec(ctx, query, rate.Code.Code(), rate.RateToBase); err != nil {
		return fmt.Errorf("failed to upsert currency rate: %w", err)
	}
	return nil
}
