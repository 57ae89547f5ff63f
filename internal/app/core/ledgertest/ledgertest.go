// Package ledgertest 提供所有 Ledger 實作共用的行為測試
package ledgertest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/usecase"
)

// Factory 每個子測試都會呼叫一次，必須回傳一個空的帳本
type Factory func(t *testing.T) usecase.Ledger

// Run 對 factory 產生的帳本跑完整的行為測試
func Run(t *testing.T, factory Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, l usecase.Ledger)
	}{
		{"CreateAccount", testCreateAccount},
		{"GetBalanceUnknownAccount", testGetBalanceUnknown},
		{"TransferSuccess", testTransferSuccess},
		{"TransferExactBalance", testTransferExactBalance},
		{"TransferInsufficientFunds", testTransferInsufficientFunds},
		{"TransferUnknownAccount", testTransferUnknownAccount},
		{"TransferSelf", testTransferSelf},
		{"LargeBalanceIsExact", testLargeBalanceIsExact},
		{"MaxAmountRoundTrip", testMaxAmountRoundTrip},
		{"ReceiverBalanceCap", testReceiverBalanceCap},
		{"HistoryOrderAndLimit", testHistoryOrderAndLimit},
		{"HistoryUnknownAccount", testHistoryUnknown},
		{"ConcurrentOverdraw", testConcurrentOverdraw},
		{"ConcurrentConservation", testConcurrentConservation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, factory(t))
		})
	}
}

// Dec 把字串轉成 decimal，格式錯誤直接 panic
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Open 開戶並回傳 ID
func Open(t *testing.T, l usecase.Ledger, balance string) int64 {
	t.Helper()
	id, err := l.CreateAccount(context.Background(), Dec(balance))
	if err != nil {
		t.Fatalf("CreateAccount(%s): %v", balance, err)
	}
	return id
}

// RequireBalance 檢查帳戶餘額
func RequireBalance(t *testing.T, l usecase.Ledger, id int64, want string) {
	t.Helper()
	got, err := l.GetBalance(context.Background(), id)
	if err != nil {
		t.Fatalf("GetBalance(%d): %v", id, err)
	}
	if !got.Equal(Dec(want)) {
		t.Fatalf("balance of %d = %s, want %s", id, got, want)
	}
}

func history(t *testing.T, l usecase.Ledger, id int64, limit int) []domain.AuditRecord {
	t.Helper()
	records, err := l.ListHistory(context.Background(), id, limit)
	if err != nil {
		t.Fatalf("ListHistory(%d): %v", id, err)
	}
	for _, rec := range records {
		if err := rec.Verify(); err != nil {
			t.Fatalf("record %s: %v", rec.TransactionID, err)
		}
	}
	return records
}

func transfer(l usecase.Ledger, from, to int64, amount string) (*domain.TransferResult, error) {
	return l.ApplyTransfer(context.Background(), domain.Transfer{SenderID: from, ReceiverID: to, Amount: Dec(amount)})
}

func testCreateAccount(t *testing.T, l usecase.Ledger) {
	a := Open(t, l, "1000.00")
	b := Open(t, l, "0")
	if a == b {
		t.Fatalf("CreateAccount returned duplicate id %d", a)
	}
	RequireBalance(t, l, a, "1000")
	RequireBalance(t, l, b, "0")
	if got := history(t, l, a, 0); len(got) != 0 {
		t.Fatalf("new account has %d history records", len(got))
	}
}

func testGetBalanceUnknown(t *testing.T, l usecase.Ledger) {
	_, err := l.GetBalance(context.Background(), 424242)
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("got %v want ErrAccountNotFound", err)
	}
}

func testTransferSuccess(t *testing.T, l usecase.Ledger) {
	a := Open(t, l, "1000.00")
	b := Open(t, l, "500.00")

	res, err := transfer(l, a, b, "300.00")
	if err != nil {
		t.Fatalf("ApplyTransfer: %v", err)
	}
	if !res.NewSenderBalance.Equal(Dec("700")) {
		t.Fatalf("new sender balance = %s", res.NewSenderBalance)
	}
	RequireBalance(t, l, a, "700.00")
	RequireBalance(t, l, b, "800.00")

	for _, id := range []int64{a, b} {
		records := history(t, l, id, 0)
		if len(records) != 1 {
			t.Fatalf("account %d: %d records, want 1", id, len(records))
		}
		rec := records[0]
		if rec.TransactionID != res.TransactionID {
			t.Fatalf("transaction id %s, want %s", rec.TransactionID, res.TransactionID)
		}
		if rec.Status != domain.AuditStatusSuccess || rec.ErrorReason != "" {
			t.Fatalf("unexpected record %+v", rec)
		}
		if rec.SenderID != a || rec.ReceiverID != b || !rec.Amount.Equal(Dec("300")) {
			t.Fatalf("unexpected record %+v", rec)
		}
	}
}

func testTransferExactBalance(t *testing.T, l usecase.Ledger) {
	a := Open(t, l, "250.50")
	b := Open(t, l, "0")

	if _, err := transfer(l, a, b, "250.50"); err != nil {
		t.Fatalf("ApplyTransfer: %v", err)
	}
	RequireBalance(t, l, a, "0")
	RequireBalance(t, l, b, "250.50")
}

func testTransferInsufficientFunds(t *testing.T, l usecase.Ledger) {
	a := Open(t, l, "100.00")
	b := Open(t, l, "0")

	_, err := transfer(l, a, b, "100.01")
	var insufficient *domain.InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("got %v want InsufficientFundsError", err)
	}
	RequireBalance(t, l, a, "100")
	RequireBalance(t, l, b, "0")

	for _, id := range []int64{a, b} {
		records := history(t, l, id, 0)
		if len(records) != 1 {
			t.Fatalf("account %d: %d records, want 1", id, len(records))
		}
		rec := records[0]
		if rec.TransactionID != insufficient.TransactionID {
			t.Fatalf("transaction id %s, want %s", rec.TransactionID, insufficient.TransactionID)
		}
		if rec.Status != domain.AuditStatusFailed || rec.ErrorReason != domain.ReasonInsufficientFunds {
			t.Fatalf("unexpected record %+v", rec)
		}
	}
}

func testTransferUnknownAccount(t *testing.T, l usecase.Ledger) {
	a := Open(t, l, "100.00")

	_, err := transfer(l, a, a+1000, "10")
	var notFound *domain.AccountNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("got %v want AccountNotFoundError", err)
	}
	if notFound.Role != domain.RoleReceiver || notFound.AccountID != a+1000 {
		t.Fatalf("unexpected error %+v", notFound)
	}

	_, err = transfer(l, a+1000, a, "10")
	if !errors.As(err, &notFound) || notFound.Role != domain.RoleSender {
		t.Fatalf("got %v want sender AccountNotFoundError", err)
	}

	RequireBalance(t, l, a, "100")
	if got := history(t, l, a, 0); len(got) != 0 {
		t.Fatalf("rejected transfer left %d records", len(got))
	}
}

func testTransferSelf(t *testing.T, l usecase.Ledger) {
	a := Open(t, l, "100.00")

	_, err := transfer(l, a, a, "10")
	if !errors.Is(err, domain.ErrSelfTransfer) {
		t.Fatalf("got %v want ErrSelfTransfer", err)
	}
	RequireBalance(t, l, a, "100")
	if got := history(t, l, a, 0); len(got) != 0 {
		t.Fatalf("rejected transfer left %d records", len(got))
	}
}

// 超過 float64 有效位數的餘額也必須精確保存
func testLargeBalanceIsExact(t *testing.T, l usecase.Ledger) {
	a := Open(t, l, "1234567890123456.78")
	b := Open(t, l, "0")
	RequireBalance(t, l, a, "1234567890123456.78")

	res, err := transfer(l, a, b, "0.01")
	if err != nil {
		t.Fatalf("ApplyTransfer: %v", err)
	}
	if !res.NewSenderBalance.Equal(Dec("1234567890123456.77")) {
		t.Fatalf("new sender balance = %s", res.NewSenderBalance)
	}
	RequireBalance(t, l, a, "1234567890123456.77")
	RequireBalance(t, l, b, "0.01")

	total := decimal.Zero
	for _, id := range []int64{a, b} {
		bal, err := l.GetBalance(context.Background(), id)
		if err != nil {
			t.Fatalf("GetBalance: %v", err)
		}
		total = total.Add(bal)
	}
	if !total.Equal(Dec("1234567890123456.78")) {
		t.Fatalf("total balance %s, want 1234567890123456.78", total)
	}
}

// 最大金額的開戶與 failed 稽核紀錄都能寫入並讀回
func testMaxAmountRoundTrip(t *testing.T, l usecase.Ledger) {
	maxAmount := domain.FormatAmount(domain.MaxAmount)
	rich := Open(t, l, maxAmount)
	RequireBalance(t, l, rich, maxAmount)

	a := Open(t, l, "10.00")
	b := Open(t, l, "0")
	_, err := transfer(l, a, b, maxAmount)
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("got %v want ErrInsufficientFunds", err)
	}
	records := history(t, l, a, 0)
	if len(records) != 1 || !records[0].Amount.Equal(domain.MaxAmount) || records[0].Status != domain.AuditStatusFailed {
		t.Fatalf("unexpected history %+v", records)
	}
}

// 入帳後超過上限的轉帳被拒絕，不留紀錄也不動餘額
func testReceiverBalanceCap(t *testing.T, l usecase.Ledger) {
	maxAmount := domain.FormatAmount(domain.MaxAmount)
	a := Open(t, l, "10.00")
	full := Open(t, l, maxAmount)

	_, err := transfer(l, a, full, "0.01")
	if !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("got %v want ErrInvalidAmount", err)
	}
	RequireBalance(t, l, a, "10.00")
	RequireBalance(t, l, full, maxAmount)
	if got := history(t, l, a, 0); len(got) != 0 {
		t.Fatalf("rejected transfer left %d records", len(got))
	}
}

func testHistoryOrderAndLimit(t *testing.T, l usecase.Ledger) {
	a := Open(t, l, "100.00")
	b := Open(t, l, "100.00")
	c := Open(t, l, "100.00")

	var ids []string
	steps := []struct {
		from, to int64
		amount   string
	}{
		{a, b, "10"},
		{b, a, "20"},
		{c, b, "30"},
		{a, c, "500"},
		{a, b, "5"},
	}
	for _, s := range steps {
		res, err := transfer(l, s.from, s.to, s.amount)
		var insufficient *domain.InsufficientFundsError
		switch {
		case err == nil:
			ids = append(ids, res.TransactionID.String())
		case errors.As(err, &insufficient):
			ids = append(ids, insufficient.TransactionID.String())
		default:
			t.Fatalf("ApplyTransfer: %v", err)
		}
	}

	// a 參與第 0,1,3,4 筆，由新到舊
	want := []string{ids[4], ids[3], ids[1], ids[0]}
	got := history(t, l, a, 0)
	if len(got) != len(want) {
		t.Fatalf("history length %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].TransactionID.String() != want[i] {
			t.Fatalf("history[%d] = %s, want %s", i, got[i].TransactionID, want[i])
		}
		if i > 0 && got[i].CreatedAt.After(got[i-1].CreatedAt) {
			t.Fatalf("history not ordered by created_at desc at %d", i)
		}
	}
	if got[1].Status != domain.AuditStatusFailed {
		t.Fatalf("history[1] status %s, want failed", got[1].Status)
	}

	limited := history(t, l, a, 2)
	if len(limited) != 2 || limited[0].TransactionID != got[0].TransactionID || limited[1].TransactionID != got[1].TransactionID {
		t.Fatalf("limited history mismatch: %+v", limited)
	}

	// c 只參與第 2,3 筆
	if got := history(t, l, c, 0); len(got) != 2 {
		t.Fatalf("history of c has %d records, want 2", len(got))
	}
}

func testHistoryUnknown(t *testing.T, l usecase.Ledger) {
	_, err := l.ListHistory(context.Background(), 424242, 0)
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("got %v want ErrAccountNotFound", err)
	}
}

// 同一帳戶並行超額扣款，只能成功到餘額用完為止
func testConcurrentOverdraw(t *testing.T, l usecase.Ledger) {
	a := Open(t, l, "100.00")
	b := Open(t, l, "0")

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		failed    int
	)
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := transfer(l, a, b, "10.00")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrInsufficientFunds):
				failed++
			default:
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}

	if succeeded != 10 || failed != 10 {
		t.Fatalf("succeeded=%d failed=%d, want 10/10", succeeded, failed)
	}
	RequireBalance(t, l, a, "0")
	RequireBalance(t, l, b, "100")
	if got := history(t, l, a, 0); len(got) != workers {
		t.Fatalf("history has %d records, want %d", len(got), workers)
	}
}

// 交叉方向並行轉帳，總額守恆且不會死鎖
func testConcurrentConservation(t *testing.T, l usecase.Ledger) {
	ids := []int64{
		Open(t, l, "100.00"),
		Open(t, l, "100.00"),
		Open(t, l, "100.00"),
		Open(t, l, "100.00"),
	}

	const rounds = 25
	var wg sync.WaitGroup
	errs := make(chan error, rounds*len(ids))
	for r := range rounds {
		for i := range ids {
			wg.Add(1)
			go func(from, to int64) {
				defer wg.Done()
				_, err := transfer(l, from, to, "7.35")
				if err != nil && !errors.Is(err, domain.ErrInsufficientFunds) {
					errs <- err
				}
			}(ids[i], ids[(i+1+r%3)%len(ids)])
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}

	total := decimal.Zero
	for _, id := range ids {
		bal, err := l.GetBalance(context.Background(), id)
		if err != nil {
			t.Fatalf("GetBalance: %v", err)
		}
		if bal.IsNegative() {
			t.Fatalf("account %d went negative: %s", id, bal)
		}
		total = total.Add(bal)
	}
	if !total.Equal(Dec("400")) {
		t.Fatalf("total balance %s, want 400", total)
	}
}
