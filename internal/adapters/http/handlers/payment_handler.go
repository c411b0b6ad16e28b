package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/novafin/wallet/internal/adapters/http/common"
	"github.com/novafin/wallet/internal/adapters/http/middleware"
	"github.com/novafin/wallet/internal/application/dtos"
)

// CreatePaymentUseCase - интерфейс инициации депозита.
type CreatePaymentUseCase interface {
	Execute(ctx context.Context, cmd dtos.CreatePaymentCommand) (*dtos.RedirectDTO, error)
}

// ConnectAccountUseCase - интерфейс привязки аккаунта провайдера.
type ConnectAccountUseCase interface {
	Execute(ctx context.Context, cmd dtos.ConnectAccountCommand) (*dtos.RedirectDTO, error)
}

// CreateWithdrawUseCase - интерфейс инициации вывода.
type CreateWithdrawUseCase interface {
	Execute(ctx context.Context, cmd dtos.CreateWithdrawCommand) (*dtos.OperationDTO, error)
}

// PaymentHandler обрабатывает HTTP-запросы платёжного контура.
type PaymentHandler struct {
	createPayment  CreatePaymentUseCase
	connectAccount ConnectAccountUseCase
	createWithdraw CreateWithdrawUseCase
}

// NewPaymentHandler создаёт новый PaymentHandler.
func NewPaymentHandler(
	createPayment CreatePaymentUseCase,
	connectAccount ConnectAccountUseCase,
	createWithdraw CreateWithdrawUseCase,
) *PaymentHandler {
	return &PaymentHandler{
		createPayment:  createPayment,
		connectAccount: connectAccount,
		createWithdraw: createWithdraw,
	}
}

// CreatePaymentRequest - запрос на депозит через шлюз.
type CreatePaymentRequest struct {
	Amount         string `json:"amount" binding:"required,money_amount"`
	Currency       string `json:"currency" binding:"required,currency_code"`
	Gateway        string `json:"gateway" binding:"required,gateway"`
	IdempotencyKey string `json:"idempotency_key" binding:"required,uuid"`
}

// ConnectAccountRequest - запрос на привязку аккаунта.
type ConnectAccountRequest struct {
	Gateway string `json:"gateway" binding:"required,gateway"`
}

// CreateWithdrawRequest - запрос на вывод средств.
type CreateWithdrawRequest struct {
	Amount         string `json:"amount" binding:"required,money_amount"`
	Currency       string `json:"currency" binding:"required,currency_code"`
	Gateway        string `json:"gateway" binding:"required,gateway"`
	IdempotencyKey string `json:"idempotency_key" binding:"required,uuid"`
}

// CreatePayment инициирует депозит и возвращает redirect URL.
//
// POST /api/v1/payments
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		common.UnauthorizedResponse(c, "Authentication required")
		return
	}

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindingError(c, err)
		return
	}

	result, err := h.createPayment.Execute(c.Request.Context(), dtos.CreatePaymentCommand{
		UserID:         userID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Gateway:        req.Gateway,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	common.Success(c, http.StatusCreated, result)
}

// ConnectAccount создаёт connected-аккаунт и возвращает onboarding-ссылку.
//
// POST /api/v1/payments/accounts
func (h *PaymentHandler) ConnectAccount(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		common.UnauthorizedResponse(c, "Authentication required")
		return
	}

	var req ConnectAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindingError(c, err)
		return
	}

	result, err := h.connectAccount.Execute(c.Request.Context(), dtos.ConnectAccountCommand{
		UserID:  userID,
		Gateway: req.Gateway,
	})
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	common.Success(c, http.StatusOK, result)
}

// CreateWithdraw инициирует вывод средств.
//
// POST /api/v1/payments/withdraw
func (h *PaymentHandler) CreateWithdraw(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		common.UnauthorizedResponse(c, "Authentication required")
		return
	}

	var req CreateWithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindingError(c, err)
		return
	}

	result, err := h.createWithdraw.Execute(c.Request.Context(), dtos.CreateWithdrawCommand{
		UserID:         userID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Gateway:        req.Gateway,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	common.Success(c, http.StatusAccepted, result)
}
