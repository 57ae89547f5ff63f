package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// 金額使用 decimal，並定義精度：小數點後 2 位 (最小單位 0.01)
const MoneyScale int32 = 2

// MinimumUnit 帳本可表示的最小金額
var MinimumUnit = decimal.New(1, -MoneyScale)

// MaxAmount 金額與餘額的上限，對應儲存欄位 decimal(20,2) 的整數 18 位
var MaxAmount = decimal.New(1, 18).Sub(MinimumUnit)

// ParseAmount 解析十進位字串金額 (如 "300.00")
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidAmount, s)
	}
	return d, nil
}

// ValidateAmount 轉帳金額必須為正數，且精度不可小於最小單位
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidAmount, amount)
	}
	if !hasMoneyScale(amount) {
		return fmt.Errorf("%w: amount %s is finer than %s", ErrInvalidAmount, amount, MinimumUnit.StringFixed(MoneyScale))
	}
	if amount.GreaterThan(MaxAmount) {
		return fmt.Errorf("%w: amount %s exceeds %s", ErrInvalidAmount, amount, FormatAmount(MaxAmount))
	}
	return nil
}

// ValidateOpeningBalance 開戶金額可為 0，但不可為負數
func ValidateOpeningBalance(balance decimal.Decimal) error {
	if balance.IsNegative() {
		return fmt.Errorf("%w: opening balance must not be negative, got %s", ErrInvalidAmount, balance)
	}
	if !hasMoneyScale(balance) {
		return fmt.Errorf("%w: opening balance %s is finer than %s", ErrInvalidAmount, balance, MinimumUnit.StringFixed(MoneyScale))
	}
	if balance.GreaterThan(MaxAmount) {
		return fmt.Errorf("%w: opening balance %s exceeds %s", ErrInvalidAmount, balance, FormatAmount(MaxAmount))
	}
	return nil
}

// FormatAmount 固定兩位小數輸出
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(MoneyScale)
}

func hasMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyScale))
}
