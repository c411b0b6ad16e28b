// Package entities - сущности кошелькового ядра.
// Wallet - контейнер мультивалютных счетов пользователя (ровно один на пользователя).
package entities

import (
	"time"

	"github.com/novafin/wallet/internal/domain/errors"
	"github.com/novafin/wallet/internal/domain/valueobjects"
)

// Wallet - кошелёк пользователя.
//
// Инварианты:
// - ровно один кошелёк на user_id (UNIQUE в БД);
// - счета создаются лениво при первом зачислении.
type Wallet struct {
	id        int64
	userID    int64
	createdAt time.Time
}

// NewWallet создаёт кошелёк для пользователя. ID присваивает БД.
func NewWallet(userID int64) (*Wallet, error) {
	if userID <= 0 {
		return nil, errors.ValidationError{Field: "user_id", Message: "must be positive"}
	}
	return &Wallet{userID: userID, createdAt: time.Now().UTC()}, nil
}

// ReconstructWallet восстанавливает Wallet из БД.
func ReconstructWallet(id, userID int64, createdAt time.Time) *Wallet {
	return &Wallet{id: id, userID: userID, createdAt: createdAt}
}

func (w *Wallet) ID() int64            { return w.id }
func (w *Wallet) UserID() int64        { return w.userID }
func (w *Wallet) CreatedAt() time.Time { return w.createdAt }

// Account - валютный счёт внутри кошелька.
//
// Инварианты:
// - уникален по (wallet_id, currency, kind);
// - amount >= 0 в каждом сохранённом состоянии (CHECK в БД + проверка здесь).
type Account struct {
	id       int64
	walletID int64
	currency valueobjects.Currency
	kind     valueobjects.AccountKind
	amount   valueobjects.Money
}

// NewAccount создаёт счёт с начальным балансом.
// Вызывается воркером при первом зачислении в валюте.
func NewAccount(walletID int64, currency valueobjects.Currency, initial valueobjects.Money) (*Account, error) {
	if initial.IsNegative() {
		return nil, errors.ErrInsufficientFunds
	}
	return &Account{
		walletID: walletID,
		currency: currency,
		kind:     currency.Kind(),
		amount:   initial.Round(),
	}, nil
}

// ReconstructAccount восстанавливает Account из БД.
func ReconstructAccount(id, walletID int64, currency valueobjects.Currency, kind valueobjects.AccountKind, amount valueobjects.Money) *Account {
	return &Account{id: id, walletID: walletID, currency: currency, kind: kind, amount: amount}
}

func (a *Account) ID() int64                          { return a.id }
func (a *Account) WalletID() int64                    { return a.walletID }
func (a *Account) Currency() valueobjects.Currency    { return a.currency }
func (a *Account) Kind() valueobjects.AccountKind     { return a.kind }
func (a *Account) Amount() valueobjects.Money         { return a.amount }

// Apply применяет дельту к балансу. Отрицательный итог запрещён.
func (a *Account) Apply(delta valueobjects.Money) error {
	next, err := a.amount.Add(delta)
	if err != nil {
		return err
	}
	if next.IsNegative() {
		return errors.ErrInsufficientFunds
	}
	a.amount = next.Round()
	return nil
}
