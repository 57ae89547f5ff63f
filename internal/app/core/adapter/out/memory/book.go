package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-transfer-ledger/pkg/wal"
)

// account 帳戶加上自己的讀寫鎖
// 轉帳時依 ID 由小到大取得雙方寫鎖；查詢餘額只取讀鎖
type account struct {
	mu sync.RWMutex
	domain.Account
}

// book 是記憶體帳本的共用狀態
//
// 結構:
//
//	accounts: 帳戶資料 Map (mu 保護 Map 本身，不保護餘額)
//	records: 稽核紀錄 (logMu 保護，同時負責分配序號與寫入 WAL)
//	wal: Write-Ahead Log 實例，nil 表示純記憶體
//
// 鎖順序: mu -> logMu；account.mu -> logMu。不可反向。
type book struct {
	mu       sync.RWMutex
	accounts map[int64]*account
	lastID   int64

	logMu     sync.Mutex
	records   []domain.AuditRecord
	byAccount map[int64][]int
	seq       uint64

	wal *wal.WAL
	now func() time.Time
}

func newBook(w *wal.WAL, now func() time.Time) *book {
	return &book{
		accounts:  make(map[int64]*account),
		byAccount: make(map[int64][]int),
		wal:       w,
		now:       now,
	}
}

func (b *book) lookup(id int64) (*account, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	acc, ok := b.accounts[id]
	return acc, ok
}

// open 開戶，先寫 WAL 再放進 Map
func (b *book) open(balance decimal.Decimal) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	acc := &account{Account: *domain.NewAccount(b.lastID+1, balance, domain.Timestamp(b.now()))}
	if err := b.journal(journalEntry{Kind: entryAccountOpened, Account: &acc.Account}); err != nil {
		return 0, domain.NewStorageError("journal account", err)
	}
	b.accounts[acc.ID] = acc
	b.lastID = acc.ID
	return acc.ID, nil
}

func (b *book) balance(id int64) (decimal.Decimal, error) {
	acc, ok := b.lookup(id)
	if !ok {
		return decimal.Zero, &domain.AccountNotFoundError{AccountID: id, Role: domain.RoleAccount}
	}
	acc.mu.RLock()
	defer acc.mu.RUnlock()
	return acc.Balance, nil
}

// parties 找出轉帳雙方
func (b *book) parties(tr domain.Transfer) (sender, receiver *account, err error) {
	if tr.SenderID == tr.ReceiverID {
		return nil, nil, domain.ErrSelfTransfer
	}
	sender, ok := b.lookup(tr.SenderID)
	if !ok {
		return nil, nil, &domain.AccountNotFoundError{AccountID: tr.SenderID, Role: domain.RoleSender}
	}
	receiver, ok = b.lookup(tr.ReceiverID)
	if !ok {
		return nil, nil, &domain.AccountNotFoundError{AccountID: tr.ReceiverID, Role: domain.RoleReceiver}
	}
	return sender, receiver, nil
}

// commit 執行 commit phase
// 呼叫前必須已持有 sender 與 receiver 的寫鎖 (或由單一執行緒呼叫)
func (b *book) commit(tr domain.Transfer, sender, receiver *account) (*domain.TransferResult, error) {
	rec := domain.NewAuditRecord(tr)

	if !sender.CanDebit(tr.Amount) {
		rec.Fail(domain.ReasonInsufficientFunds)
		if err := b.record(&rec); err != nil {
			return nil, err
		}
		return nil, &domain.InsufficientFundsError{TransactionID: rec.TransactionID}
	}

	if !receiver.CanCredit(tr.Amount) {
		return nil, fmt.Errorf("%w: balance of account %d would exceed %s", domain.ErrInvalidAmount, receiver.ID, domain.FormatAmount(domain.MaxAmount))
	}

	rec.Succeed()
	// 先持久化稽核紀錄，寫入失敗時餘額完全不動
	if err := b.record(&rec); err != nil {
		return nil, err
	}
	if err := sender.Debit(tr.Amount); err != nil {
		return nil, domain.NewStorageError("debit sender", err)
	}
	if err := receiver.Credit(tr.Amount); err != nil {
		return nil, domain.NewStorageError("credit receiver", err)
	}

	return &domain.TransferResult{
		TransactionID:    rec.TransactionID,
		NewSenderBalance: sender.Balance,
		CreatedAt:        rec.CreatedAt,
	}, nil
}

// record 分配序號與時間、寫入 WAL，成功後才加入歷史
func (b *book) record(rec *domain.AuditRecord) error {
	b.logMu.Lock()
	defer b.logMu.Unlock()

	rec.Sequence = b.seq + 1
	if err := rec.Seal(b.now()); err != nil {
		return domain.NewStorageError("seal audit record", err)
	}
	if err := b.journal(journalEntry{Kind: entryAuditRecord, Record: rec}); err != nil {
		return domain.NewStorageError("journal audit record", err)
	}
	b.seq = rec.Sequence
	b.appendRecord(*rec)
	return nil
}

// appendRecord 呼叫前必須持有 logMu
func (b *book) appendRecord(rec domain.AuditRecord) {
	b.records = append(b.records, rec)
	idx := len(b.records) - 1
	b.byAccount[rec.SenderID] = append(b.byAccount[rec.SenderID], idx)
	b.byAccount[rec.ReceiverID] = append(b.byAccount[rec.ReceiverID], idx)
}

func (b *book) history(accountID int64, limit int) ([]domain.AuditRecord, error) {
	if _, ok := b.lookup(accountID); !ok {
		return nil, &domain.AccountNotFoundError{AccountID: accountID, Role: domain.RoleAccount}
	}

	b.logMu.Lock()
	idx := b.byAccount[accountID]
	out := make([]domain.AuditRecord, 0, len(idx))
	for i := len(idx) - 1; i >= 0; i-- {
		out = append(out, b.records[idx[i]])
	}
	b.logMu.Unlock()

	domain.SortHistory(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (b *book) journal(e journalEntry) error {
	if b.wal == nil {
		return nil
	}
	return b.wal.Write(e)
}
