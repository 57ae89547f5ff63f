package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-transfer-ledger/pkg/wal"
)

// ErrLedgerClosed 核心引擎已停止，不再接受請求
var ErrLedgerClosed = errors.New("memory: ledger closed")

// request 包裝一個要在核心迴圈執行的工作，讓呼叫端可以等待結果
type request struct {
	fn   func()
	done chan struct{}
}

// LMAXLedger 單一寫入者 (Single Writer) 的帳本
//
// 所有操作都放進輸送帶，由 run loop 依序執行，因此帳本狀態不需要額外的鎖。
// 必須先呼叫 Start。
type LMAXLedger struct {
	book *book
	// 輸送帶 負責接收請求
	requests chan *request
	// Pool 減少 GC 壓力
	requestPool sync.Pool

	// closeMu 保護 closed；submit 持讀鎖送出，關閉時取寫鎖
	closeMu sync.RWMutex
	closed  bool
	stopped chan struct{}
}

// NewLMAXLedger 建立一個新的 LMAXLedger 實例
//
// 參數:
//
//	w: Write-Ahead Log 實例 (nil 表示不持久化)
//	opts: 其他設定
//
// 回傳:
//
//	*LMAXLedger: LMAXLedger 實例
//	error: 初始化錯誤
func NewLMAXLedger(w *wal.WAL, opts ...Option) (*LMAXLedger, error) {
	o := buildOptions(opts)
	l := &LMAXLedger{
		book:     newBook(w, o.now),
		requests: make(chan *request, 1000), // Buffer 1000
		stopped:  make(chan struct{}),
		requestPool: sync.Pool{
			New: func() any {
				return &request{done: make(chan struct{}, 1)}
			},
		},
	}

	// 在啟動前先恢復資料
	if err := l.book.recoverFromWAL(); err != nil {
		return nil, err
	}
	return l, nil
}

// Start 啟動核心引擎 (非同步)；ctx 結束後處理完已送出的請求才停止
func (l *LMAXLedger) Start(ctx context.Context) {
	go l.run(ctx)
}

// Done 核心引擎完全停止後關閉
func (l *LMAXLedger) Done() <-chan struct{} {
	return l.stopped
}

func (l *LMAXLedger) run(ctx context.Context) {
	defer close(l.stopped)

	for {
		select {
		case <-ctx.Done():
			l.shutdown()
			return
		case req := <-l.requests:
			l.process(req)
		}
	}
}

// shutdown 拒絕新請求，並把輸送帶上剩下的請求處理完
func (l *LMAXLedger) shutdown() {
	locked := make(chan struct{})
	go func() {
		l.closeMu.Lock()
		l.closed = true
		l.closeMu.Unlock()
		close(locked)
	}()

	// 取得寫鎖前，submit 可能卡在送出，所以要持續消化
	for {
		select {
		case req := <-l.requests:
			l.process(req)
		case <-locked:
			l.drain()
			return
		}
	}
}

func (l *LMAXLedger) drain() {
	for {
		select {
		case req := <-l.requests:
			l.process(req)
		default:
			return
		}
	}
}

func (l *LMAXLedger) process(req *request) {
	req.fn()
	req.done <- struct{}{}
}

// submit 把工作放入輸送帶並等待完成 (使用 sync.Pool 減少 GC)
//
// 工作一旦送出就一定會被執行，呼叫端的 ctx 只影響送出之前。
func (l *LMAXLedger) submit(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req := l.requestPool.Get().(*request)
	req.fn = fn

	l.closeMu.RLock()
	if l.closed {
		l.closeMu.RUnlock()
		l.requestPool.Put(req)
		return ErrLedgerClosed
	}
	select {
	case l.requests <- req:
	case <-ctx.Done():
		l.closeMu.RUnlock()
		l.requestPool.Put(req)
		return ctx.Err()
	}
	l.closeMu.RUnlock()

	<-req.done
	req.fn = nil
	l.requestPool.Put(req)
	return nil
}

// CreateAccount implements usecase.Ledger.
func (l *LMAXLedger) CreateAccount(ctx context.Context, openingBalance decimal.Decimal) (int64, error) {
	var (
		id  int64
		err error
	)
	if serr := l.submit(ctx, func() {
		id, err = l.book.open(openingBalance)
	}); serr != nil {
		return 0, serr
	}
	return id, err
}

// GetBalance implements usecase.Ledger.
func (l *LMAXLedger) GetBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	var (
		balance decimal.Decimal
		err     error
	)
	if serr := l.submit(ctx, func() {
		balance, err = l.book.balance(accountID)
	}); serr != nil {
		return decimal.Zero, serr
	}
	return balance, err
}

// ApplyTransfer implements usecase.Ledger.
//
// ApplyTransfer(等待) -> Channel -> Run Loop (核心) -> WAL -> Map Update -> done (收到結果)
func (l *LMAXLedger) ApplyTransfer(ctx context.Context, tr domain.Transfer) (*domain.TransferResult, error) {
	var (
		result *domain.TransferResult
		err    error
	)
	if serr := l.submit(ctx, func() {
		// 排隊期間可能已超過 commit 期限
		if err = ctx.Err(); err != nil {
			return
		}
		sender, receiver, perr := l.book.parties(tr)
		if perr != nil {
			err = perr
			return
		}
		result, err = l.book.commit(tr, sender, receiver)
	}); serr != nil {
		return nil, serr
	}
	return result, err
}

// ListHistory implements usecase.Ledger.
func (l *LMAXLedger) ListHistory(ctx context.Context, accountID int64, limit int) ([]domain.AuditRecord, error) {
	var (
		records []domain.AuditRecord
		err     error
	)
	if serr := l.submit(ctx, func() {
		records, err = l.book.history(accountID, limit)
	}); serr != nil {
		return nil, serr
	}
	return records, err
}

var _ usecase.Ledger = (*LMAXLedger)(nil)
