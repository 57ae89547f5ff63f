package memory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/ledgertest"
	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-transfer-ledger/pkg/wal"
)

func newMutex(t *testing.T) usecase.Ledger {
	l, err := NewMutexLedger(nil)
	if err != nil {
		t.Fatalf("NewMutexLedger: %v", err)
	}
	return l
}

func newLMAX(t *testing.T) usecase.Ledger {
	l, err := NewLMAXLedger(nil)
	if err != nil {
		t.Fatalf("NewLMAXLedger: %v", err)
	}
	startLMAX(t, l)
	return l
}

func startLMAX(t *testing.T, l *LMAXLedger) {
	ctx, cancel := context.WithCancel(context.Background())
	l.Start(ctx)
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
}

func openWAL(t *testing.T, path string) *wal.WAL {
	w, err := wal.NewWAL(path)
	if err != nil {
		t.Fatalf("NewWAL: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestMutexLedgerContract(t *testing.T) {
	ledgertest.Run(t, newMutex)
}

func TestLMAXLedgerContract(t *testing.T) {
	ledgertest.Run(t, newLMAX)
}

func TestMutexLedgerRecoverFromWAL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.wal")
	ctx := context.Background()

	w := openWAL(t, path)
	l, err := NewMutexLedger(w)
	if err != nil {
		t.Fatalf("NewMutexLedger: %v", err)
	}
	a := ledgertest.Open(t, l, "1000.00")
	b := ledgertest.Open(t, l, "500.00")
	if _, err := l.ApplyTransfer(ctx, domain.Transfer{SenderID: a, ReceiverID: b, Amount: ledgertest.Dec("300")}); err != nil {
		t.Fatalf("ApplyTransfer: %v", err)
	}
	if _, err := l.ApplyTransfer(ctx, domain.Transfer{SenderID: a, ReceiverID: b, Amount: ledgertest.Dec("5000")}); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("got %v want ErrInsufficientFunds", err)
	}
	before, err := l.ListHistory(ctx, a, 0)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	recovered, err := NewMutexLedger(openWAL(t, path))
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	ledgertest.RequireBalance(t, recovered, a, "700")
	ledgertest.RequireBalance(t, recovered, b, "800")

	after, err := recovered.ListHistory(ctx, a, 0)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(after) != len(before) {
		t.Fatalf("recovered %d records, want %d", len(after), len(before))
	}
	for i := range before {
		if after[i].TransactionID != before[i].TransactionID || after[i].Checksum != before[i].Checksum {
			t.Fatalf("record %d differs after recovery", i)
		}
	}

	// 新帳戶 ID 接續
	c := ledgertest.Open(t, recovered, "1")
	if c <= b {
		t.Fatalf("new account id %d not after %d", c, b)
	}
}

func TestLMAXLedgerRecoverFromWAL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.wal")

	first, err := NewMutexLedger(openWAL(t, path))
	if err != nil {
		t.Fatalf("NewMutexLedger: %v", err)
	}
	a := ledgertest.Open(t, first, "10.00")
	b := ledgertest.Open(t, first, "0")
	if _, err := first.ApplyTransfer(context.Background(), domain.Transfer{SenderID: a, ReceiverID: b, Amount: ledgertest.Dec("2.50")}); err != nil {
		t.Fatalf("ApplyTransfer: %v", err)
	}

	l, err := NewLMAXLedger(openWAL(t, path))
	if err != nil {
		t.Fatalf("NewLMAXLedger: %v", err)
	}
	startLMAX(t, l)
	ledgertest.RequireBalance(t, l, a, "7.50")
	ledgertest.RequireBalance(t, l, b, "2.50")
}

func TestRecoverRejectsTamperedRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.wal")
	w := openWAL(t, path)
	acc := domain.NewAccount(1, ledgertest.Dec("10"), time.Now())
	if err := w.Write(journalEntry{Kind: entryAccountOpened, Account: acc}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Write(journalEntry{Kind: entryAccountOpened, Account: domain.NewAccount(2, ledgertest.Dec("0"), time.Now())}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	rec := domain.NewAuditRecord(domain.Transfer{SenderID: 1, ReceiverID: 2, Amount: ledgertest.Dec("1")})
	rec.Succeed()
	if err := rec.Seal(time.Now()); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	rec.Amount = ledgertest.Dec("9")
	if err := w.Write(journalEntry{Kind: entryAuditRecord, Record: &rec}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	w.Close()

	_, err := NewMutexLedger(openWAL(t, path))
	if !errors.Is(err, domain.ErrChecksumMismatch) {
		t.Fatalf("got %v want ErrChecksumMismatch", err)
	}
}

func TestJournalFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	w := openWAL(t, filepath.Join(t.TempDir(), "ledger.wal"))
	l, err := NewMutexLedger(w)
	if err != nil {
		t.Fatalf("NewMutexLedger: %v", err)
	}
	a := ledgertest.Open(t, l, "100")
	b := ledgertest.Open(t, l, "0")
	w.Close()

	_, err = l.ApplyTransfer(ctx, domain.Transfer{SenderID: a, ReceiverID: b, Amount: ledgertest.Dec("10")})
	if !errors.Is(err, domain.ErrStorageFailure) {
		t.Fatalf("got %v want ErrStorageFailure", err)
	}
	ledgertest.RequireBalance(t, l, a, "100")
	ledgertest.RequireBalance(t, l, b, "0")
	records, err := l.ListHistory(ctx, a, 0)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("failed journal left %d records", len(records))
	}

	if _, err := l.CreateAccount(ctx, ledgertest.Dec("1")); !errors.Is(err, domain.ErrStorageFailure) {
		t.Fatalf("got %v want ErrStorageFailure", err)
	}
}

func TestHistoryTieBreakBySequence(t *testing.T) {
	frozen := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l, err := NewMutexLedger(nil, WithClock(func() time.Time { return frozen }))
	if err != nil {
		t.Fatalf("NewMutexLedger: %v", err)
	}
	ctx := context.Background()
	a := ledgertest.Open(t, l, "100")
	b := ledgertest.Open(t, l, "100")
	for range 3 {
		if _, err := l.ApplyTransfer(ctx, domain.Transfer{SenderID: a, ReceiverID: b, Amount: ledgertest.Dec("1")}); err != nil {
			t.Fatalf("ApplyTransfer: %v", err)
		}
	}

	records, err := l.ListHistory(ctx, b, 0)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	for i := 1; i < len(records); i++ {
		if records[i].Sequence >= records[i-1].Sequence {
			t.Fatalf("records not ordered by sequence desc: %d then %d", records[i-1].Sequence, records[i].Sequence)
		}
	}
}

func TestLMAXLedgerRejectsAfterShutdown(t *testing.T) {
	l, err := NewLMAXLedger(nil)
	if err != nil {
		t.Fatalf("NewLMAXLedger: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.Start(ctx)
	a := ledgertest.Open(t, l, "1")

	cancel()
	<-l.Done()

	if _, err := l.GetBalance(context.Background(), a); !errors.Is(err, ErrLedgerClosed) {
		t.Fatalf("got %v want ErrLedgerClosed", err)
	}
}

func TestMutexLedgerDeadlineWhileWaitingForLock(t *testing.T) {
	l, err := NewMutexLedger(nil)
	if err != nil {
		t.Fatalf("NewMutexLedger: %v", err)
	}
	a := ledgertest.Open(t, l, "100.00")
	b := ledgertest.Open(t, l, "0")

	// 模擬另一筆轉帳長時間持有 sender 的鎖
	sender, _ := l.book.lookup(a)
	sender.mu.Lock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		_, err := l.ApplyTransfer(ctx, domain.Transfer{SenderID: a, ReceiverID: b, Amount: ledgertest.Dec("10")})
		done <- err
	}()
	<-ctx.Done()
	sender.mu.Unlock()

	if err := <-done; !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v want context.DeadlineExceeded", err)
	}
	ledgertest.RequireBalance(t, l, a, "100")
	ledgertest.RequireBalance(t, l, b, "0")
	records, err := l.ListHistory(context.Background(), a, 0)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expired transfer left %d records", len(records))
	}
}
