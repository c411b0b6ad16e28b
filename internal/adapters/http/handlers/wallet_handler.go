// Package handlers - HTTP handlers оркестратора.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/novafin/wallet/internal/adapters/http/common"
	"github.com/novafin/wallet/internal/adapters/http/middleware"
	"github.com/novafin/wallet/internal/application/dtos"
)

// ============================================
// Use Case Interfaces
// ============================================

// CreateWalletUseCase - интерфейс создания кошелька.
type CreateWalletUseCase interface {
	Execute(ctx context.Context, cmd dtos.CreateWalletCommand) (*dtos.WalletDTO, error)
}

// GetBalanceUseCase - интерфейс чтения баланса.
type GetBalanceUseCase interface {
	Execute(ctx context.Context, query dtos.GetBalanceQuery) (*dtos.BalanceDTO, error)
}

// TransferUseCase - интерфейс перевода между пользователями.
type TransferUseCase interface {
	Execute(ctx context.Context, cmd dtos.TransferCommand) (*dtos.OperationDTO, error)
}

// ConvertUseCase - интерфейс конвертации валют.
type ConvertUseCase interface {
	Execute(ctx context.Context, cmd dtos.ConvertCommand) (*dtos.OperationDTO, error)
}

// ListTransactionsUseCase - интерфейс истории транзакций.
type ListTransactionsUseCase interface {
	Execute(ctx context.Context, query dtos.ListTransactionsQuery) (*dtos.TransactionListDTO, error)
}

// ============================================
// Wallet Handler
// ============================================

// WalletHandler обрабатывает HTTP-запросы кошелькового ядра.
type WalletHandler struct {
	createWallet     CreateWalletUseCase
	getBalance       GetBalanceUseCase
	transfer         TransferUseCase
	convert          ConvertUseCase
	listTransactions ListTransactionsUseCase
}

// NewWalletHandler создаёт новый WalletHandler.
func NewWalletHandler(
	createWallet CreateWalletUseCase,
	getBalance GetBalanceUseCase,
	transfer TransferUseCase,
	convert ConvertUseCase,
	listTransactions ListTransactionsUseCase,
) *WalletHandler {
	return &WalletHandler{
		createWallet:     createWallet,
		getBalance:       getBalance,
		transfer:         transfer,
		convert:          convert,
		listTransactions: listTransactions,
	}
}

// ============================================
// Request DTOs
// ============================================

// TransferRequest - запрос на перевод.
type TransferRequest struct {
	ToUserID       int64  `json:"to_user_id" binding:"required,gt=0"`
	Amount         string `json:"amount" binding:"required,money_amount"`
	Currency       string `json:"currency" binding:"required,currency_code"`
	IdempotencyKey string `json:"idempotency_key" binding:"required,uuid"`
}

// ConvertRequest - запрос на конвертацию.
type ConvertRequest struct {
	Amount         string `json:"amount" binding:"required,money_amount"`
	FromCurrency   string `json:"from_currency" binding:"required,currency_code"`
	ToCurrency     string `json:"to_currency" binding:"required,currency_code"`
	IdempotencyKey string `json:"idempotency_key" binding:"required,uuid"`
}

// ============================================
// HTTP Handlers
// ============================================

// CreateWallet создаёт кошелёк для аутентифицированного пользователя.
//
// POST /api/v1/wallets
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		common.UnauthorizedResponse(c, "Authentication required")
		return
	}

	result, err := h.createWallet.Execute(c.Request.Context(), dtos.CreateWalletCommand{UserID: userID})
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	common.Success(c, http.StatusCreated, result)
}

// GetBalance возвращает счета кошелька (все или по валюте из query).
//
// GET /api/v1/wallets/balance?currency=USD
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		common.UnauthorizedResponse(c, "Authentication required")
		return
	}

	result, err := h.getBalance.Execute(c.Request.Context(), dtos.GetBalanceQuery{
		UserID:   userID,
		Currency: c.Query("currency"),
	})
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	common.Success(c, http.StatusOK, result)
}

// Transfer ставит перевод между пользователями в очередь.
//
// POST /api/v1/wallets/transfer
func (h *WalletHandler) Transfer(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		common.UnauthorizedResponse(c, "Authentication required")
		return
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindingError(c, err)
		return
	}

	result, err := h.transfer.Execute(c.Request.Context(), dtos.TransferCommand{
		FromUserID:     userID,
		ToUserID:       req.ToUserID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	common.Success(c, http.StatusAccepted, result)
}

// Convert ставит конвертацию в очередь.
//
// POST /api/v1/wallets/convert
func (h *WalletHandler) Convert(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		common.UnauthorizedResponse(c, "Authentication required")
		return
	}

	var req ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindingError(c, err)
		return
	}

	result, err := h.convert.Execute(c.Request.Context(), dtos.ConvertCommand{
		UserID:         userID,
		Amount:         req.Amount,
		FromCurrency:   req.FromCurrency,
		ToCurrency:     req.ToCurrency,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	common.Success(c, http.StatusAccepted, result)
}

// ListTransactions возвращает страницу истории транзакций.
//
// GET /api/v1/wallets/transactions?offset=0&limit=20
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		common.UnauthorizedResponse(c, "Authentication required")
		return
	}

	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	result, err := h.listTransactions.Execute(c.Request.Context(), dtos.ListTransactionsQuery{
		UserID: userID,
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	common.Success(c, http.StatusOK, result)
}
