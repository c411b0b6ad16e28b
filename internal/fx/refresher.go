// Package fx - периодическое обновление таблицы курсов валют.
//
// Источник - дневной фид ЦБ РФ (daily_json.js). Курс каждой валюты
// приводится к базовой: rate_to_base = Value / Nominal. Базовая валюта
// всегда закреплена на 1.0. Неизвестные платформе коды из фида
// пропускаются.
package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/shopspring/decimal"

	"github.com/novafin/wallet/internal/application/ports"
	"github.com/novafin/wallet/internal/domain/entities"
	"github.com/novafin/wallet/internal/domain/valueobjects"
)

const (
	// DefaultFeedURL - дневной JSON-фид курсов ЦБ РФ.
	DefaultFeedURL = "https://www.cbr-xml-daily.ru/daily_json.js"

	defaultInterval = time.Hour

	retryAttempts = 3
	retryDelay    = 10 * time.Second
)

// feedDocument - схема фида.
type feedDocument struct {
	Valute map[string]feedEntry `json:"Valute"`
}

type feedEntry struct {
	CharCode string          `json:"CharCode"`
	Nominal  int64           `json:"Nominal"`
	Value    decimal.Decimal `json:"Value"`
}

// Refresher периодически подтягивает курсы и апсертит их в таблицу.
type Refresher struct {
	currencies ports.CurrencyRepository
	client     *http.Client
	feedURL    string
	interval   time.Duration
	log        *slog.Logger
}

// Option настраивает Refresher.
type Option func(*Refresher)

// WithFeedURL задаёт URL фида.
func WithFeedURL(url string) Option {
	return func(r *Refresher) { r.feedURL = url }
}

// WithInterval задаёт период обновления.
func WithInterval(d time.Duration) Option {
	return func(r *Refresher) { r.interval = d }
}

// WithHTTPClient задаёт HTTP-клиент.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Refresher) { r.client = c }
}

// NewRefresher создаёт Refresher.
func NewRefresher(currencies ports.CurrencyRepository, log *slog.Logger, opts ...Option) *Refresher {
	r := &Refresher{
		currencies: currencies,
		client:     &http.Client{Timeout: 15 * time.Second},
		feedURL:    DefaultFeedURL,
		interval:   defaultInterval,
		log:        log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run обновляет курсы сразу и далее по тикеру до отмены ctx.
// Неудачный цикл не валит процесс: старые курсы остаются в силе.
func (r *Refresher) Run(ctx context.Context) error {
	if err := r.RefreshOnce(ctx); err != nil {
		r.log.ErrorContext(ctx, "initial rate refresh failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.RefreshOnce(ctx); err != nil {
				r.log.ErrorContext(ctx, "rate refresh failed", slog.String("error", err.Error()))
			}
		}
	}
}

// RefreshOnce выполняет один цикл: fetch с ретраями, затем upsert.
func (r *Refresher) RefreshOnce(ctx context.Context) error {
	var doc *feedDocument
	err := retry.Do(
		func() error {
			var err error
			doc, err = r.fetch(ctx)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(retryAttempts),
		retry.Delay(retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("failed to fetch rate feed: %w", err)
	}

	return r.apply(ctx, doc)
}

// fetch скачивает и парсит фид.
func (r *Refresher) fetch(ctx context.Context) (*feedDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.feedURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	return parseFeed(body)
}

// parseFeed разбирает JSON фида.
func parseFeed(body []byte) (*feedDocument, error) {
	var doc feedDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode rate feed: %w", err)
	}
	if len(doc.Valute) == 0 {
		return nil, fmt.Errorf("rate feed contains no currencies")
	}
	return &doc, nil
}

// apply апсертит известные платформе курсы. Базовая валюта - всегда 1.0.
func (r *Refresher) apply(ctx context.Context, doc *feedDocument) error {
	if err := r.currencies.Upsert(ctx, &entities.CurrencyRate{
		Code:       valueobjects.BaseCurrency,
		RateToBase: decimal.NewFromInt(1),
	}); err != nil {
		return err
	}

	updated := 0
	for _, entry := range doc.Valute {
		if !valueobjects.IsSupported(entry.CharCode) {
			continue
		}
		if entry.Nominal <= 0 || !entry.Value.IsPositive() {
			r.log.WarnContext(ctx, "skipping malformed feed entry", slog.String("code", entry.CharCode))
			continue
		}

		currency, err := valueobjects.NewCurrency(entry.CharCode)
		if err != nil {
			continue
		}

		rate := entry.Value.Div(decimal.NewFromInt(entry.Nominal))
		if err := r.currencies.Upsert(ctx, &entities.CurrencyRate{
			Code:       currency,
			RateToBase: rate,
		}); err != nil {
			return err
		}
		updated++
	}

	r.log.InfoContext(ctx, "currency rates refreshed", slog.Int("updated", updated))
	return nil
}
