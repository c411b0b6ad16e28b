// Package worker - settlement-воркер: единственный писатель балансов.
//
// Воркер читает work item'ы из топика запросов и применяет движение средств
// к счетам. Каждый item обрабатывается в одной БД-транзакции:
// блокировка счетов FOR UPDATE, изменение баланса, перевод строки
// транзакции в терминальный статус.
package worker

import (
	"context"
	"fmt"
	"sort"

	"github.com/novafin/wallet/internal/application/dtos"
	"github.com/novafin/wallet/internal/application/ports"
	"github.com/novafin/wallet/internal/domain/entities"
	domainErrors "github.com/novafin/wallet/internal/domain/errors"
	"github.com/novafin/wallet/internal/domain/valueobjects"
	"github.com/shopspring/decimal"
)

// Settler применяет work item к счетам кошельков.
type Settler struct {
	accounts   ports.AccountRepository
	txRepo     ports.TransactionRepository
	currencies ports.CurrencyRepository
	uow        ports.UnitOfWork
}

// NewSettler создаёт Settler.
func NewSettler(
	accounts ports.AccountRepository,
	txRepo ports.TransactionRepository,
	currencies ports.CurrencyRepository,
	uow ports.UnitOfWork,
) *Settler {
	return &Settler{accounts: accounts, txRepo: txRepo, currencies: currencies, uow: uow}
}

// Settle применяет item в одной транзакции и переводит строку транзакции
// в completed. Ошибка - транзакция БД откатывается целиком, баланс не тронут.
func (s *Settler) Settle(ctx context.Context, item *dtos.WorkItem) error {
	if err := item.Validate(); err != nil {
		return domainErrors.New(domainErrors.KindValidation, "invalid work item", err)
	}

	currency, err := valueobjects.NewCurrency(item.Currency)
	if err != nil {
		return domainErrors.New(domainErrors.KindValidation, "invalid work item currency", err)
	}
	amount, err := valueobjects.NewMoneyFromDecimal(decimal.NewFromFloat(item.Amount), currency)
	if err != nil {
		return domainErrors.New(domainErrors.KindValidation, "invalid work item amount", err)
	}
	amount = amount.Round()

	return s.uow.Execute(ctx, func(txCtx context.Context) error {
		switch entities.OperationType(item.Operation) {
		case entities.OperationDeposit:
			err = s.credit(txCtx, item.WalletID, amount)
		case entities.OperationWithdraw:
			err = s.debit(txCtx, item.WalletID, amount)
		case entities.OperationTransfer:
			err = s.transfer(txCtx, item.WalletID, *item.ToWalletID, amount)
		case entities.OperationConvert:
			err = s.convert(txCtx, item.WalletID, amount, *item.ToCurrency)
		default:
			err = domainErrors.New(domainErrors.KindValidation,
				fmt.Sprintf("unknown operation %q", item.Operation), nil)
		}
		if err != nil {
			return err
		}

		return s.txRepo.UpdateStatusByIdempotencyKey(txCtx,
			item.IdempotencyKey, entities.StatusProcessed, entities.StatusCompleted)
	})
}

// Fail переводит строку транзакции в failed (маршрутизация item'а в DLQ).
func (s *Settler) Fail(ctx context.Context, item *dtos.WorkItem) error {
	return s.uow.Execute(ctx, func(txCtx context.Context) error {
		return s.txRepo.UpdateStatusByIdempotencyKey(txCtx,
			item.IdempotencyKey, entities.StatusProcessed, entities.StatusFailed)
	})
}

// credit зачисляет amount на счёт, создавая его при первом зачислении.
func (s *Settler) credit(ctx context.Context, walletID int64, amount valueobjects.Money) error {
	account, err := s.accounts.FindForUpdate(ctx, walletID, amount.Currency(), amount.Currency().Kind())
	if err != nil {
		if domainErrors.IsNotFound(err) {
			created, err := entities.NewAccount(walletID, amount.Currency(), amount)
			if err != nil {
				return err
			}
			_, err = s.accounts.Create(ctx, created)
			return err
		}
		return err
	}

	if err := account.Apply(amount); err != nil {
		return err
	}
	return s.accounts.UpdateAmount(ctx, account)
}

// debit списывает amount со счёта. Отсутствующий счёт или уход в минус -
// INSUFFICIENT_FUNDS.
func (s *Settler) debit(ctx context.Context, walletID int64, amount valueobjects.Money) error {
	account, err := s.accounts.FindForUpdate(ctx, walletID, amount.Currency(), amount.Currency().Kind())
	if err != nil {
		if domainErrors.IsNotFound(err) {
			return domainErrors.ErrInsufficientFunds
		}
		return err
	}

	neg, err := valueobjects.Zero(amount.Currency()).Sub(amount)
	if err != nil {
		return err
	}
	if err := account.Apply(neg); err != nil {
		return err
	}
	return s.accounts.UpdateAmount(ctx, account)
}

// transfer двигает amount между кошельками.
// Счета блокируются в порядке возрастания wallet_id - защита от deadlock
// при встречных переводах.
func (s *Settler) transfer(ctx context.Context, fromWallet, toWallet int64, amount valueobjects.Money) error {
	order := []int64{fromWallet, toWallet}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	locked := make(map[int64]*entities.Account, 2)
	for _, walletID := range order {
		account, err := s.accounts.FindForUpdate(ctx, walletID, amount.Currency(), amount.Currency().Kind())
		if err != nil {
			if domainErrors.IsNotFound(err) {
				if walletID == fromWallet {
					return domainErrors.ErrInsufficientFunds
				}
				continue // счёт получателя создадим после списания
			}
			return err
		}
		locked[walletID] = account
	}

	from := locked[fromWallet]
	neg, err := valueobjects.Zero(amount.Currency()).Sub(amount)
	if err != nil {
		return err
	}
	if err := from.Apply(neg); err != nil {
		return err
	}
	if err := s.accounts.UpdateAmount(ctx, from); err != nil {
		return err
	}

	if to, ok := locked[toWallet]; ok {
		if err := to.Apply(amount); err != nil {
			return err
		}
		return s.accounts.UpdateAmount(ctx, to)
	}

	created, err := entities.NewAccount(toWallet, amount.Currency(), amount)
	if err != nil {
		return err
	}
	_, err = s.accounts.Create(ctx, created)
	return err
}

// convert списывает amount и зачисляет эквивалент в целевой валюте
// по текущим курсам к базовой.
func (s *Settler) convert(ctx context.Context, walletID int64, amount valueobjects.Money, toCode string) error {
	to, err := valueobjects.NewCurrency(toCode)
	if err != nil {
		return domainErrors.New(domainErrors.KindValidation, "invalid target currency", err)
	}

	rateFrom, err := s.currencies.GetRate(ctx, amount.Currency())
	if err != nil {
		return err
	}
	rateTo, err := s.currencies.GetRate(ctx, to)
	if err != nil {
		return err
	}

	converted, err := amount.Convert(to, rateFrom.RateToBase, rateTo.RateToBase)
	if err != nil {
		return err
	}

	if err := s.debit(ctx, walletID, amount); err != nil {
		return err
	}
	return s.credit(ctx, walletID, converted)
}
