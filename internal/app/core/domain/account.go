package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Account 帳戶，餘額在任何 commit 邊界都必須 >= 0
type Account struct {
	ID        int64           `json:"id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

func NewAccount(id int64, balance decimal.Decimal, createdAt time.Time) *Account {
	return &Account{
		ID:        id,
		Balance:   balance,
		CreatedAt: createdAt,
	}
}

// CanDebit 餘額是否足以扣款
func (a *Account) CanDebit(amount decimal.Decimal) bool {
	return !a.Balance.LessThan(amount)
}

// Debit 扣款
func (a *Account) Debit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !a.CanDebit(amount) {
		return ErrInsufficientFunds
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}

// CanCredit 入帳後餘額是否仍在 MaxAmount 以內
func (a *Account) CanCredit(amount decimal.Decimal) bool {
	return !a.Balance.Add(amount).GreaterThan(MaxAmount)
}

// Credit 入帳
func (a *Account) Credit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !a.CanCredit(amount) {
		return fmt.Errorf("%w: balance of account %d would exceed %s", ErrInvalidAmount, a.ID, FormatAmount(MaxAmount))
	}
	a.Balance = a.Balance.Add(amount)
	return nil
}
