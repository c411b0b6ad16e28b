// Package bus - JetStream-адаптер шины транзакций.
//
// Один стрим WALLET покрывает все три топика. Публикация синхронная
// (PubAck от брокера), потребление - durable pull consumer с явным Ack:
// Ack играет роль коммита оффсета, не-Ack'нутое сообщение будет
// доставлено повторно.
package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/novafin/wallet/internal/application/ports"
	domainErrors "github.com/novafin/wallet/internal/domain/errors"
)

// Compile-time check
var _ ports.Producer = (*Producer)(nil)

const (
	streamName     = "WALLET"
	streamSubjects = "wallet.transaction.>"
)

// Connect открывает соединение с NATS и возвращает JetStream context.
// Стрим создаётся при отсутствии (idempotent при параллельном старте).
func Connect(url string, opts ...nats.Option) (*nats.Conn, nats.JetStreamContext, error) {
	defaults := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to get jetstream context: %w", err)
	}

	if err := ensureStream(js); err != nil {
		nc.Close()
		return nil, nil, err
	}
	return nc, js, nil
}

// ensureStream создаёт стрим WALLET, если его ещё нет.
func ensureStream(js nats.JetStreamContext) error {
	_, err := js.StreamInfo(streamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream %s: %w", streamName, err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{streamSubjects},
		Retention: nats.LimitsPolicy,
		Storage:   nats.FileStorage,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("failed to create stream %s: %w", streamName, err)
	}
	return nil
}

// Producer публикует сообщения синхронно: возврат - после PubAck.
type Producer struct {
	js nats.JetStreamContext
}

// NewProducer создаёт Producer.
func NewProducer(js nats.JetStreamContext) *Producer {
	return &Producer{js: js}
}

// Publish отправляет payload в топик и ждёт подтверждения брокера.
func (p *Producer) Publish(ctx context.Context, topic string, payload []byte) error {
	if _, err := p.js.Publish(topic, payload, nats.Context(ctx)); err != nil {
		return domainErrors.New(domainErrors.KindBus,
			fmt.Sprintf("failed to publish to %s", topic), err)
	}
	return nil
}

// Message - одно доставленное сообщение.
// Ack подтверждает обработку (коммит позиции потребителя);
// без Ack сообщение будет передоставлено после AckWait.
type Message struct {
	Data    []byte
	Subject string
	msg     *nats.Msg
}

// Ack подтверждает сообщение.
func (m *Message) Ack() error { return m.msg.Ack() }

// Consumer - durable pull consumer одного топика.
type Consumer struct {
	sub *nats.Subscription
}

// NewConsumer подписывается на топик с durable-именем.
// DeliverAll: новый durable начинает с начала стрима (replay с earliest).
func NewConsumer(js nats.JetStreamContext, topic, durable string) (*Consumer, error) {
	sub, err := js.PullSubscribe(topic, durable,
		nats.AckExplicit(),
		nats.DeliverAll(),
		nats.AckWait(60*time.Second),
		nats.MaxAckPending(256),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	return &Consumer{sub: sub}, nil
}

// Fetch забирает до batch сообщений, блокируясь до ctx или первого сообщения.
// Пустой batch при таймауте - не ошибка.
func (c *Consumer) Fetch(ctx context.Context, batch int) ([]*Message, error) {
	msgs, err := c.sub.Fetch(batch, nats.Context(ctx))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, nats.ErrTimeout) {
			return nil, nil
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, domainErrors.New(domainErrors.KindBus, "failed to fetch messages", err)
	}

	out := make([]*Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, &Message{Data: m.Data, Subject: m.Subject, msg: m})
	}
	return out, nil
}

// Drain останавливает подписку, дожидаясь in-flight сообщений.
func (c *Consumer) Drain() error { return c.sub.Drain() }
