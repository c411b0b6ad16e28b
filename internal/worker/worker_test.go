package worker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/novafin/wallet/internal/application/dtos"
	"github.com/novafin/wallet/internal/application/ports"
	domainErrors "github.com/novafin/wallet/internal/domain/errors"
)

type mockSettler struct {
	settleFunc func(ctx context.Context, item *dtos.WorkItem) error
	failFunc   func(ctx context.Context, item *dtos.WorkItem) error
	failCalls  int
}

func (m *mockSettler) Settle(ctx context.Context, item *dtos.WorkItem) error {
	if m.settleFunc != nil {
		return m.settleFunc(ctx, item)
	}
	return nil
}

func (m *mockSettler) Fail(ctx context.Context, item *dtos.WorkItem) error {
	m.failCalls++
	if m.failFunc != nil {
		return m.failFunc(ctx, item)
	}
	return nil
}

type workerCache struct {
	existsFunc func(ctx context.Context, key string) (bool, error)
	remembered map[string][]byte
}

func (c *workerCache) Exists(ctx context.Context, key string) (bool, error) {
	if c.existsFunc != nil {
		return c.existsFunc(ctx, key)
	}
	return false, nil
}

func (c *workerCache) Remember(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if c.remembered == nil {
		c.remembered = make(map[string][]byte)
	}
	c.remembered[key] = payload
	return nil
}

func (c *workerCache) Get(ctx context.Context, key string) ([]byte, error) { return nil, nil }

type publishedMessage struct {
	topic   string
	payload []byte
}

type workerProducer struct {
	published []publishedMessage
}

func (p *workerProducer) Publish(ctx context.Context, topic string, payload []byte) error {
	p.published = append(p.published, publishedMessage{topic: topic, payload: payload})
	return nil
}

func (p *workerProducer) byTopic(topic string) []publishedMessage {
	var out []publishedMessage
	for _, msg := range p.published {
		if msg.topic == topic {
			out = append(out, msg)
		}
	}
	return out
}

func newTestWorker(settler ItemSettler, cache ports.IdempotencyCache, producer ports.Producer) *Worker {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := NewMetrics(prometheus.NewRegistry())
	return New(nil, settler, cache, producer, metrics, Options{ResultTTL: time.Hour}, log)
}

func encodedItem(t *testing.T, retries int) (*dtos.WorkItem, []byte) {
	t.Helper()
	item := &dtos.WorkItem{
		Operation:      "deposit",
		Amount:         100.0,
		Currency:       "USD",
		WalletID:       1,
		IdempotencyKey: "idem-worker",
		CorrelationID:  "corr-worker",
		Retries:        retries,
	}
	payload, err := item.Encode()
	if err != nil {
		t.Fatalf("failed to encode item: %v", err)
	}
	return item, payload
}

func ackCounter(acked *int) func() error {
	return func() error {
		*acked++
		return nil
	}
}

// TestHandle_Success тестирует фиксацию результата и ack
func TestHandle_Success(t *testing.T) {
	settler := &mockSettler{}
	cache := &workerCache{}
	producer := &workerProducer{}
	w := newTestWorker(settler, cache, producer)

	_, payload := encodedItem(t, 0)
	acked := 0
	w.handle(context.Background(), &Message{Data: payload, Ack: ackCounter(&acked)})

	if acked != 1 {
		t.Errorf("expected 1 ack, got %d", acked)
	}
	if _, ok := cache.remembered["idem-worker"]; !ok {
		t.Error("terminal result must be cached")
	}
	results := producer.byTopic(ports.TopicTransactionResult)
	if len(results) != 1 {
		t.Fatalf("expected 1 result message, got %d", len(results))
	}
	var result dtos.WorkResult
	if err := json.Unmarshal(results[0].payload, &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if result.Status != "success" || result.IdempotencyKey != "idem-worker" {
		t.Errorf("result = %+v", result)
	}
}

// TestHandle_MalformedJSON тестирует маршрутизацию мусора в DLQ без расчёта
func TestHandle_MalformedJSON(t *testing.T) {
	settleCalled := false
	settler := &mockSettler{
		settleFunc: func(ctx context.Context, item *dtos.WorkItem) error {
			settleCalled = true
			return nil
		},
	}
	producer := &workerProducer{}
	w := newTestWorker(settler, &workerCache{}, producer)

	acked := 0
	w.handle(context.Background(), &Message{Data: []byte("{not json"), Ack: ackCounter(&acked)})

	if settleCalled {
		t.Error("malformed item must not be settled")
	}
	if len(producer.byTopic(ports.TopicTransactionDLQ)) != 1 {
		t.Error("malformed item must go to DLQ")
	}
	if acked != 1 {
		t.Errorf("expected 1 ack, got %d", acked)
	}
}

// TestHandle_Deduplicated тестирует пропуск уже рассчитанного item'а
func TestHandle_Deduplicated(t *testing.T) {
	settleCalled := false
	settler := &mockSettler{
		settleFunc: func(ctx context.Context, item *dtos.WorkItem) error {
			settleCalled = true
			return nil
		},
	}
	cache := &workerCache{
		existsFunc: func(ctx context.Context, key string) (bool, error) { return true, nil },
	}
	producer := &workerProducer{}
	w := newTestWorker(settler, cache, producer)

	_, payload := encodedItem(t, 0)
	acked := 0
	w.handle(context.Background(), &Message{Data: payload, Ack: ackCounter(&acked)})

	if settleCalled {
		t.Error("settled item must not be settled again")
	}
	if acked != 1 {
		t.Errorf("expected 1 ack, got %d", acked)
	}
	if len(producer.published) != 0 {
		t.Error("dedupe must have no side effects")
	}
}

// TestHandle_RetryableRequeued тестирует переопубликацию с retries+1
func TestHandle_RetryableRequeued(t *testing.T) {
	settler := &mockSettler{
		settleFunc: func(ctx context.Context, item *dtos.WorkItem) error {
			return domainErrors.New(domainErrors.KindStorage, "db down", nil)
		},
	}
	producer := &workerProducer{}
	w := newTestWorker(settler, &workerCache{}, producer)

	_, payload := encodedItem(t, 1)
	acked := 0
	w.handle(context.Background(), &Message{Data: payload, Ack: ackCounter(&acked)})

	requeued := producer.byTopic(ports.TopicTransactionRequest)
	if len(requeued) != 1 {
		t.Fatalf("expected 1 requeued message, got %d", len(requeued))
	}
	item, err := dtos.DecodeWorkItem(requeued[0].payload)
	if err != nil {
		t.Fatalf("failed to decode requeued item: %v", err)
	}
	if item.Retries != 2 {
		t.Errorf("retries = %d, want 2", item.Retries)
	}
	if len(producer.byTopic(ports.TopicTransactionDLQ)) != 0 {
		t.Error("retryable failure below the limit must not hit DLQ")
	}
	if settler.failCalls != 0 {
		t.Error("retryable failure must not mark the transaction failed")
	}
	if acked != 1 {
		t.Errorf("expected 1 ack, got %d", acked)
	}
}

// TestHandle_RetriesExhausted тестирует гейт на доставке: исчерпанный
// item фиксируется как провал без попытки расчёта
func TestHandle_RetriesExhausted(t *testing.T) {
	settleCalled := false
	settler := &mockSettler{
		settleFunc: func(ctx context.Context, item *dtos.WorkItem) error {
			settleCalled = true
			return nil
		},
	}
	producer := &workerProducer{}
	cache := &workerCache{}
	w := newTestWorker(settler, cache, producer)

	_, payload := encodedItem(t, MaxRetries)
	acked := 0
	w.handle(context.Background(), &Message{Data: payload, Ack: ackCounter(&acked)})

	if settleCalled {
		t.Error("exhausted item must not be settled")
	}
	if len(producer.byTopic(ports.TopicTransactionRequest)) != 0 {
		t.Error("exhausted item must not be requeued")
	}
	if len(producer.byTopic(ports.TopicTransactionDLQ)) != 1 {
		t.Error("exhausted item must go to DLQ")
	}
	if settler.failCalls != 1 {
		t.Errorf("Fail must be called once, got %d", settler.failCalls)
	}
	var result dtos.WorkResult
	if err := json.Unmarshal(cache.remembered["idem-worker"], &result); err != nil {
		t.Fatalf("failed to decode cached result: %v", err)
	}
	if result.Status != "error" {
		t.Errorf("cached status = %s, want error", result.Status)
	}
	if acked != 1 {
		t.Errorf("expected 1 ack, got %d", acked)
	}
}

// TestHandle_BusinessErrorRequeued тестирует ретрай бизнес-отказа
func TestHandle_BusinessErrorRequeued(t *testing.T) {
	settler := &mockSettler{
		settleFunc: func(ctx context.Context, item *dtos.WorkItem) error {
			return domainErrors.ErrInsufficientFunds
		},
	}
	producer := &workerProducer{}
	w := newTestWorker(settler, &workerCache{}, producer)

	_, payload := encodedItem(t, 0)
	acked := 0
	w.handle(context.Background(), &Message{Data: payload, Ack: ackCounter(&acked)})

	requeued := producer.byTopic(ports.TopicTransactionRequest)
	if len(requeued) != 1 {
		t.Fatalf("expected 1 requeued message, got %d", len(requeued))
	}
	item, err := dtos.DecodeWorkItem(requeued[0].payload)
	if err != nil {
		t.Fatalf("failed to decode requeued item: %v", err)
	}
	if item.Retries != 1 {
		t.Errorf("retries = %d, want 1", item.Retries)
	}
	if len(producer.byTopic(ports.TopicTransactionDLQ)) != 0 {
		t.Error("first business failure must not hit DLQ")
	}
	if settler.failCalls != 0 {
		t.Error("retried failure must not mark the transaction failed")
	}
	if acked != 1 {
		t.Errorf("expected 1 ack, got %d", acked)
	}
}

// TestHandle_BusinessErrorDeadLetters тестирует путь недостаточных средств
// до DLQ: три ретрая, затем dead letter со счётчиком retries=3
func TestHandle_BusinessErrorDeadLetters(t *testing.T) {
	settler := &mockSettler{
		settleFunc: func(ctx context.Context, item *dtos.WorkItem) error {
			return domainErrors.ErrInsufficientFunds
		},
	}
	producer := &workerProducer{}
	w := newTestWorker(settler, &workerCache{}, producer)

	_, payload := encodedItem(t, 0)
	acked := 0

	// Каждую переопубликацию скармливаем обратно, как сделал бы брокер.
	for i := 0; i < MaxRetries+1; i++ {
		w.handle(context.Background(), &Message{Data: payload, Ack: ackCounter(&acked)})
		requeued := producer.byTopic(ports.TopicTransactionRequest)
		if len(requeued) == i+1 {
			payload = requeued[i].payload
		}
	}

	requeued := producer.byTopic(ports.TopicTransactionRequest)
	if len(requeued) != MaxRetries {
		t.Fatalf("expected %d requeues, got %d", MaxRetries, len(requeued))
	}
	dead := producer.byTopic(ports.TopicTransactionDLQ)
	if len(dead) != 1 {
		t.Fatalf("expected 1 dead letter, got %d", len(dead))
	}
	item, err := dtos.DecodeWorkItem(dead[0].payload)
	if err != nil {
		t.Fatalf("failed to decode dead letter: %v", err)
	}
	if item.Retries != MaxRetries {
		t.Errorf("dead letter retries = %d, want %d", item.Retries, MaxRetries)
	}
	if settler.failCalls != 1 {
		t.Errorf("Fail must be called once, got %d", settler.failCalls)
	}
	if acked != MaxRetries+1 {
		t.Errorf("expected %d acks, got %d", MaxRetries+1, acked)
	}
}
