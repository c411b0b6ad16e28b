package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/novafin/wallet/internal/adapters/http/common"
	"github.com/novafin/wallet/internal/application/dtos"
	"github.com/novafin/wallet/internal/application/ports"
)

// maxWebhookBody ограничивает размер payload'а вебхука.
const maxWebhookBody = 1 << 20 // 1MB

// WebhookParser верифицирует подпись и нормализует событие провайдера.
type WebhookParser interface {
	ParsePaymentEvent(payload []byte, signature string) (*ports.WebhookEvent, error)
	ParsePayoutEvent(payload []byte, signature string) (*ports.WebhookEvent, error)
}

// WebhookUseCase - интерфейс обработки нормализованных событий.
type WebhookUseCase interface {
	ExecutePayment(ctx context.Context, evt *ports.WebhookEvent) (*dtos.WebhookAckDTO, error)
	ExecutePayout(ctx context.Context, evt *ports.WebhookEvent) (*dtos.WebhookAckDTO, error)
}

// WebhookHandler принимает вебхуки платёжного провайдера.
//
// Эндпоинты вне авторизации: аутентификация - подпись payload'а.
// Ответ - плоский {success, message}: провайдер ждёт 2xx, а не наш
// стандартный конверт.
type WebhookHandler struct {
	parser  WebhookParser
	useCase WebhookUseCase
}

// NewWebhookHandler создаёт новый WebhookHandler.
func NewWebhookHandler(parser WebhookParser, useCase WebhookUseCase) *WebhookHandler {
	return &WebhookHandler{parser: parser, useCase: useCase}
}

// HandlePayment обрабатывает вебхук подтверждения платежа.
//
// POST /webhooks/stripe/payments
func (h *WebhookHandler) HandlePayment(c *gin.Context) {
	h.handle(c, h.parser.ParsePaymentEvent, h.useCase.ExecutePayment)
}

// HandlePayout обрабатывает вебхук итога выплаты.
//
// POST /webhooks/stripe/payouts
func (h *WebhookHandler) HandlePayout(c *gin.Context) {
	h.handle(c, h.parser.ParsePayoutEvent, h.useCase.ExecutePayout)
}

func (h *WebhookHandler) handle(
	c *gin.Context,
	parse func(payload []byte, signature string) (*ports.WebhookEvent, error),
	execute func(ctx context.Context, evt *ports.WebhookEvent) (*dtos.WebhookAckDTO, error),
) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, dtos.WebhookAckDTO{Success: false, Message: "Failed to read payload"})
		return
	}

	evt, err := parse(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dtos.WebhookAckDTO{Success: false, Message: "Invalid signature"})
		return
	}
	if evt == nil {
		// Неинтересный тип события - подтверждаем, чтобы провайдер не ретраил.
		c.JSON(http.StatusOK, dtos.WebhookAckDTO{Success: true, Message: "Event ignored"})
		return
	}

	ack, err := execute(c.Request.Context(), evt)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, ack)
}
