package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateAmount(t *testing.T) {
	cases := []struct {
		name    string
		amount  string
		wantErr bool
	}{
		{"whole", "300", false},
		{"cents", "300.01", false},
		{"min unit", "0.01", false},
		{"trailing zeros", "10.500", false},
		{"zero", "0", true},
		{"negative", "-5.00", true},
		{"sub cent", "0.001", true},
		{"sub cent large", "100.005", true},
		{"max", "999999999999999999.99", false},
		{"over max", "1000000000000000000.00", true},
		{"far over max", "99999999999999999999999.99", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateAmount(decimal.RequireFromString(tc.amount))
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("got %v want ErrInvalidAmount", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateOpeningBalance(t *testing.T) {
	if err := ValidateOpeningBalance(decimal.Zero); err != nil {
		t.Fatalf("zero opening balance: %v", err)
	}
	if err := ValidateOpeningBalance(decimal.RequireFromString("-0.01")); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative opening balance: got %v", err)
	}
	if err := ValidateOpeningBalance(decimal.RequireFromString("1.234")); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("sub cent opening balance: got %v", err)
	}
	if err := ValidateOpeningBalance(MaxAmount); err != nil {
		t.Fatalf("max opening balance: %v", err)
	}
	if err := ValidateOpeningBalance(MaxAmount.Add(MinimumUnit)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("opening balance over max: got %v", err)
	}
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount(" 1000.00 ")
	if err != nil {
		t.Fatalf("ParseAmount: %v", err)
	}
	if FormatAmount(d) != "1000.00" {
		t.Fatalf("got %s", FormatAmount(d))
	}

	for _, in := range []string{"", "abc", "1,000"} {
		if _, err := ParseAmount(in); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("ParseAmount(%q): got %v want ErrInvalidAmount", in, err)
		}
	}
}

func TestDecimalArithmeticIsExact(t *testing.T) {
	a := NewAccount(1, decimal.RequireFromString("0.30"), Timestamp(fixedTime))
	for i := 0; i < 3; i++ {
		if err := a.Debit(decimal.RequireFromString("0.10")); err != nil {
			t.Fatalf("debit %d: %v", i, err)
		}
	}
	if !a.Balance.IsZero() {
		t.Fatalf("balance drifted: %s", a.Balance)
	}
	if err := a.Debit(MinimumUnit); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("got %v want ErrInsufficientFunds", err)
	}
}

func TestCreditRespectsMaxAmount(t *testing.T) {
	a := NewAccount(1, MaxAmount.Sub(decimal.RequireFromString("1.00")), Timestamp(fixedTime))
	if err := a.Credit(decimal.RequireFromString("1.00")); err != nil {
		t.Fatalf("credit up to max: %v", err)
	}
	if err := a.Credit(MinimumUnit); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("got %v want ErrInvalidAmount", err)
	}
	if !a.Balance.Equal(MaxAmount) {
		t.Fatalf("balance changed on rejected credit: %s", a.Balance)
	}
}
