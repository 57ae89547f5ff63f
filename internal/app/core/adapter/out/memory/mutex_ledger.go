package memory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-transfer-ledger/pkg/wal"
)

// MutexLedger 以帳戶層級的讀寫鎖實作 Ledger
//
// 轉帳依帳戶 ID 由小到大取得雙方寫鎖，不相關的帳戶可以並行轉帳。
type MutexLedger struct {
	book *book
}

// NewMutexLedger 建立一個新的 MutexLedger 實例
//
// 參數:
//
//	w: Write-Ahead Log 實例 (nil 表示不持久化)
//	opts: 其他設定
//
// 回傳:
//
//	*MutexLedger: MutexLedger 實例
//	error: WAL 恢復錯誤
func NewMutexLedger(w *wal.WAL, opts ...Option) (*MutexLedger, error) {
	o := buildOptions(opts)
	b := newBook(w, o.now)
	if err := b.recoverFromWAL(); err != nil {
		return nil, err
	}
	return &MutexLedger{book: b}, nil
}

// CreateAccount implements usecase.Ledger.
func (l *MutexLedger) CreateAccount(ctx context.Context, openingBalance decimal.Decimal) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return l.book.open(openingBalance)
}

// GetBalance implements usecase.Ledger.
func (l *MutexLedger) GetBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	return l.book.balance(accountID)
}

// ApplyTransfer implements usecase.Ledger.
func (l *MutexLedger) ApplyTransfer(ctx context.Context, tr domain.Transfer) (*domain.TransferResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sender, receiver, err := l.book.parties(tr)
	if err != nil {
		return nil, err
	}

	// 固定順序上鎖，避免 A->B 與 B->A 同時轉帳時死鎖
	first, second := sender, receiver
	if receiver.ID < sender.ID {
		first, second = receiver, sender
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	// 等鎖期間可能已超過 commit 期限，此時尚未寫入任何東西
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.book.commit(tr, sender, receiver)
}

// ListHistory implements usecase.Ledger.
func (l *MutexLedger) ListHistory(ctx context.Context, accountID int64, limit int) ([]domain.AuditRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.book.history(accountID, limit)
}

var _ usecase.Ledger = (*MutexLedger)(nil)
