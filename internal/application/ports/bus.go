package ports

import "context"

// Топики шины.
const (
	TopicTransactionRequest = "wallet.transaction.request"
	TopicTransactionResult  = "wallet.transaction.result"
	TopicTransactionDLQ     = "wallet.transaction.dlq"
)

// Producer публикует сообщения в шину.
// Publish синхронный (send-and-wait): возвращается после подтверждения брокером.
type Producer interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}
