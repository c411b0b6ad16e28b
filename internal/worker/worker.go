package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/novafin/wallet/internal/application/dtos"
	"github.com/novafin/wallet/internal/application/ports"
)

const (
	// MaxRetries - предел повторных публикаций item'а перед DLQ.
	MaxRetries = 3

	// settleTimeout ограничивает обработку одного item'а.
	settleTimeout = 30 * time.Second

	fetchBatch = 16
)

// ItemSettler применяет work item к счетам.
type ItemSettler interface {
	Settle(ctx context.Context, item *dtos.WorkItem) error
	Fail(ctx context.Context, item *dtos.WorkItem) error
}

// ItemSource - источник сообщений топика запросов.
type ItemSource interface {
	Fetch(ctx context.Context, batch int) ([]*Message, error)
}

// Message - одно доставленное сообщение с подтверждением.
type Message struct {
	Data []byte
	Ack  func() error
}

// Options - параметры воркера.
type Options struct {
	ResultTTL time.Duration // TTL терминального результата в кэше
}

// Worker - цикл обработки work item'ов.
//
// Дисциплина подтверждений: сообщение ack'ается ТОЛЬКО после того,
// как его дальнейшая судьба зафиксирована - расчёт закоммичен,
// или item переопубликован с retries+1, или отправлен в DLQ.
// Упавший между этими точками воркер получит сообщение повторно;
// повторный расчёт отобьётся по idempotency-ключу.
type Worker struct {
	source   ItemSource
	settler  ItemSettler
	cache    ports.IdempotencyCache
	producer ports.Producer
	metrics  *Metrics
	opts     Options
	log      *slog.Logger
}

// New создаёт Worker.
func New(
	source ItemSource,
	settler ItemSettler,
	cache ports.IdempotencyCache,
	producer ports.Producer,
	metrics *Metrics,
	opts Options,
	log *slog.Logger,
) *Worker {
	if opts.ResultTTL <= 0 {
		opts.ResultTTL = 24 * time.Hour
	}
	return &Worker{
		source:   source,
		settler:  settler,
		cache:    cache,
		producer: producer,
		metrics:  metrics,
		opts:     opts,
		log:      log,
	}
}

// Run крутит цикл до отмены ctx.
func (w *Worker) Run(ctx context.Context) error {
	w.log.InfoContext(ctx, "worker started")
	for {
		if ctx.Err() != nil {
			w.log.InfoContext(ctx, "worker stopped")
			return ctx.Err()
		}

		fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		msgs, err := w.source.Fetch(fetchCtx, fetchBatch)
		cancel()
		if err != nil {
			if errors.Is(err, context.Canceled) {
				continue
			}
			w.log.ErrorContext(ctx, "fetch failed", slog.String("error", err.Error()))
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range msgs {
			w.handle(ctx, msg)
		}
	}
}

// handle обрабатывает одно сообщение.
func (w *Worker) handle(ctx context.Context, msg *Message) {
	item, err := dtos.DecodeWorkItem(msg.Data)
	if err != nil {
		// Кривой JSON никогда не станет валидным - сразу в DLQ.
		w.log.ErrorContext(ctx, "malformed work item", slog.String("error", err.Error()))
		if w.toDLQ(ctx, msg.Data) == nil {
			w.ack(ctx, msg)
		}
		return
	}

	// Дедупликация повторной доставки: терминальный результат уже есть.
	done, err := w.cache.Exists(ctx, item.IdempotencyKey)
	if err == nil && done {
		w.log.InfoContext(ctx, "skipping already settled item",
			slog.String("idempotency_key", item.IdempotencyKey))
		w.ack(ctx, msg)
		return
	}

	// Гейт на доставке: item с исчерпанным счётчиком не рассчитывается,
	// а сразу фиксируется как провал и уходит в DLQ.
	if item.Retries >= MaxRetries {
		w.exhaust(ctx, msg, item)
		return
	}

	settleCtx, cancel := context.WithTimeout(ctx, settleTimeout)
	start := time.Now()
	err = w.settler.Settle(settleCtx, item)
	cancel()
	w.metrics.Duration.WithLabelValues(item.Operation).Observe(time.Since(start).Seconds())

	if err == nil {
		w.finish(ctx, item, "success")
		w.metrics.Processed.WithLabelValues(item.Operation, "success").Inc()
		w.ack(ctx, msg)
		return
	}

	w.log.WarnContext(ctx, "settlement failed",
		slog.String("operation", item.Operation),
		slog.String("idempotency_key", item.IdempotencyKey),
		slog.Int("retries", item.Retries),
		slog.String("error", err.Error()),
	)

	// Любая ошибка расчёта ретраится: item возвращается в топик запросов
	// с retries+1, гейт выше отсечёт его, когда счётчик дойдёт до предела.
	if w.requeue(ctx, item) == nil {
		w.ack(ctx, msg)
	}
}

// exhaust фиксирует судьбу item'а с исчерпанными ретраями: строка
// транзакции переводится в failed, исходный payload уходит в DLQ,
// терминальный результат кэшируется и публикуется.
func (w *Worker) exhaust(ctx context.Context, msg *Message, item *dtos.WorkItem) {
	if failErr := w.settler.Fail(ctx, item); failErr != nil {
		w.log.ErrorContext(ctx, "failed to mark transaction failed",
			slog.String("idempotency_key", item.IdempotencyKey),
			slog.String("error", failErr.Error()))
	}
	if w.toDLQ(ctx, msg.Data) != nil {
		return // без ack: брокер передоставит, публикация в DLQ повторится
	}
	w.finish(ctx, item, "error")
	w.metrics.Processed.WithLabelValues(item.Operation, "error").Inc()
	w.ack(ctx, msg)
}

// finish кладёт терминальный результат в кэш и публикует его в result-топик.
// Оба действия best-effort: авторитетный статус уже в строке транзакции.
func (w *Worker) finish(ctx context.Context, item *dtos.WorkItem, status string) {
	result := &dtos.WorkResult{
		Status:         status,
		Operation:      item.Operation,
		WalletID:       item.WalletID,
		Amount:         item.Amount,
		IdempotencyKey: item.IdempotencyKey,
		CorrelationID:  item.CorrelationID,
	}
	payload, err := result.Encode()
	if err != nil {
		w.log.ErrorContext(ctx, "failed to encode result", slog.String("error", err.Error()))
		return
	}

	if err := w.cache.Remember(ctx, item.IdempotencyKey, payload, w.opts.ResultTTL); err != nil {
		w.log.ErrorContext(ctx, "failed to cache result", slog.String("error", err.Error()))
	}
	if err := w.producer.Publish(ctx, ports.TopicTransactionResult, payload); err != nil {
		w.log.ErrorContext(ctx, "failed to publish result", slog.String("error", err.Error()))
	}
}

// requeue переопубликовывает item с retries+1.
// Ошибка публикации возвращается вызывающему: сообщение не ack'ается
// и будет передоставлено брокером.
func (w *Worker) requeue(ctx context.Context, item *dtos.WorkItem) error {
	item.Retries++
	payload, err := item.Encode()
	if err != nil {
		w.log.ErrorContext(ctx, "failed to encode retry item", slog.String("error", err.Error()))
		return err
	}
	if err := w.producer.Publish(ctx, ports.TopicTransactionRequest, payload); err != nil {
		w.log.ErrorContext(ctx, "failed to requeue item",
			slog.String("idempotency_key", item.IdempotencyKey),
			slog.String("error", err.Error()))
		return err
	}
	w.metrics.Retries.Inc()
	w.log.InfoContext(ctx, "item requeued",
		slog.String("idempotency_key", item.IdempotencyKey),
		slog.Int("retries", item.Retries))
	return nil
}

// toDLQ публикует исходный payload в dead letter queue.
func (w *Worker) toDLQ(ctx context.Context, payload []byte) error {
	if err := w.producer.Publish(ctx, ports.TopicTransactionDLQ, payload); err != nil {
		w.log.ErrorContext(ctx, "failed to publish to dlq", slog.String("error", err.Error()))
		return err
	}
	w.metrics.DLQ.Inc()
	return nil
}

// ack подтверждает сообщение.
func (w *Worker) ack(ctx context.Context, msg *Message) {
	if err := msg.Ack(); err != nil {
		w.log.ErrorContext(ctx, "failed to ack message", slog.String("error", err.Error()))
	}
}
