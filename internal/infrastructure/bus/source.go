package bus

import (
	"context"

	"github.com/novafin/wallet/internal/worker"
)

// Compile-time check
var _ worker.ItemSource = (*WorkerSource)(nil)

// WorkerSource адаптирует Consumer к источнику сообщений воркера.
type WorkerSource struct {
	consumer *Consumer
}

// NewWorkerSource создаёт адаптер.
func NewWorkerSource(consumer *Consumer) *WorkerSource {
	return &WorkerSource{consumer: consumer}
}

// Fetch забирает пачку сообщений.
func (s *WorkerSource) Fetch(ctx context.Context, batch int) ([]*worker.Message, error) {
	msgs, err := s.consumer.Fetch(ctx, batch)
	if err != nil {
		return nil, err
	}
	out := make([]*worker.Message, 0, len(msgs))
	for _, m := range msgs {
		msg := m
		out = append(out, &worker.Message{Data: msg.Data, Ack: msg.Ack})
	}
	return out, nil
}
