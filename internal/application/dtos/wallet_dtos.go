package dtos

import "time"

// ============================================
// Commands (входы use case'ов)
// ============================================

// CreateWalletCommand - создание кошелька.
type CreateWalletCommand struct {
	UserID int64
}

// GetBalanceQuery - запрос баланса, опционально по валюте.
type GetBalanceQuery struct {
	UserID   int64
	Currency string // пусто = все счета
}

// TransferCommand - перевод между пользователями.
type TransferCommand struct {
	FromUserID     int64
	ToUserID       int64
	Amount         string
	Currency       string
	IdempotencyKey string
}

// ConvertCommand - конвертация внутри одного кошелька.
type ConvertCommand struct {
	UserID         int64
	Amount         string
	FromCurrency   string
	ToCurrency     string
	IdempotencyKey string
}

// CreatePaymentCommand - инициация депозита через платёжный шлюз.
type CreatePaymentCommand struct {
	UserID         int64
	Amount         string
	Currency       string
	Gateway        string
	IdempotencyKey string
}

// ConnectAccountCommand - привязка connected-аккаунта провайдера.
type ConnectAccountCommand struct {
	UserID  int64
	Gateway string
}

// CreateWithdrawCommand - инициация вывода средств.
type CreateWithdrawCommand struct {
	UserID         int64
	Amount         string
	Currency       string
	Gateway        string
	IdempotencyKey string
}

// ListTransactionsQuery - история транзакций кошелька.
type ListTransactionsQuery struct {
	UserID int64
	Offset int
	Limit  int
}

// ============================================
// Response DTOs
// ============================================

// WalletDTO - созданный кошелёк.
type WalletDTO struct {
	WalletID  int64     `json:"wallet_id"`
	CreatedAt time.Time `json:"created_at"`
}

// BalanceEntryDTO - один счёт кошелька.
type BalanceEntryDTO struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
	Kind     string `json:"type"`
}

// BalanceDTO - баланс пользователя.
type BalanceDTO struct {
	UserID   int64             `json:"user_id"`
	Balances []BalanceEntryDTO `json:"balances"`
}

// OperationDTO - результат асинхронной операции.
type OperationDTO struct {
	CorrelationID string `json:"correlation_id"`
	Status        string `json:"status"`
}

// RedirectDTO - ссылка на hosted-страницу провайдера.
type RedirectDTO struct {
	RedirectURL string `json:"redirect_url"`
}

// WebhookAckDTO - подтверждение обработки вебхука.
type WebhookAckDTO struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TransactionDTO - запись истории транзакций.
type TransactionDTO struct {
	ID             int64     `json:"id"`
	Operation      string    `json:"operation"`
	Status         string    `json:"status"`
	Amount         string    `json:"amount"`
	Currency       string    `json:"currency"`
	ToCurrency     string    `json:"to_currency,omitempty"`
	CorrelationID  string    `json:"correlation_id"`
	ExternalID     string    `json:"external_id,omitempty"`
	Provider       string    `json:"provider,omitempty"`
	Date           time.Time `json:"date"`
}

// TransactionListDTO - страница истории.
type TransactionListDTO struct {
	WalletID     int64            `json:"wallet_id"`
	Transactions []TransactionDTO `json:"transactions"`
}
