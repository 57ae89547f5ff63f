package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/domain"
)

// TransferEngine 驗證轉帳請求並交由 Ledger 原子地套用
//
// Engine 本身不保存狀態；互斥與原子性由 Ledger 實作負責。
type TransferEngine struct {
	ledger        Ledger
	logger        *slog.Logger
	commitTimeout time.Duration
}

// EngineOption 設定 TransferEngine
type EngineOption func(*TransferEngine)

// WithLogger 設定 logger
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *TransferEngine) {
		e.logger = logger
	}
}

// WithCommitTimeout 設定 commit phase 的期限，0 表示不設期限
func WithCommitTimeout(d time.Duration) EngineOption {
	return func(e *TransferEngine) {
		e.commitTimeout = d
	}
}

func NewTransferEngine(ledger Ledger, opts ...EngineOption) *TransferEngine {
	e := &TransferEngine{
		ledger: ledger,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Transfer 從 sender 轉帳 amount 至 receiver
//
// 參數:
//
//	ctx: 上下文 (只影響 commit phase 之前的查詢)
//	senderID, receiverID: 帳戶 ID
//	amount: 正數金額，最多兩位小數
//
// 回傳:
//
//	*domain.TransferResult: transactionId 與 sender 轉帳後餘額
//	error: ErrInvalidAmount / ErrSelfTransfer / AccountNotFoundError / InsufficientFundsError / StorageError
func (e *TransferEngine) Transfer(ctx context.Context, senderID, receiverID int64, amount decimal.Decimal) (*domain.TransferResult, error) {
	tr := domain.Transfer{SenderID: senderID, ReceiverID: receiverID, Amount: amount}
	log := e.logger.With(
		slog.Int64("sender_id", senderID),
		slog.Int64("receiver_id", receiverID),
		slog.String("amount", amount.String()),
	)

	// 1. 格式檢查 (金額、自我轉帳)
	if err := tr.Validate(); err != nil {
		log.Debug("transfer rejected", slog.Any("error", err))
		return nil, err
	}

	// 2. 帳戶存在檢查，不寫稽核紀錄
	if err := e.ensureExists(ctx, senderID, domain.RoleSender); err != nil {
		log.Debug("transfer rejected", slog.Any("error", err))
		return nil, err
	}
	if err := e.ensureExists(ctx, receiverID, domain.RoleReceiver); err != nil {
		log.Debug("transfer rejected", slog.Any("error", err))
		return nil, err
	}

	// 3. Commit phase：一旦開始就必須跑到明確結果，不受呼叫端取消影響
	commitCtx := context.WithoutCancel(ctx)
	if e.commitTimeout > 0 {
		var cancel context.CancelFunc
		commitCtx, cancel = context.WithTimeout(commitCtx, e.commitTimeout)
		defer cancel()
	}

	result, err := e.ledger.ApplyTransfer(commitCtx, tr)
	switch {
	case err == nil:
		log.Info("transfer committed",
			slog.String("transaction_id", result.TransactionID.String()),
			slog.String("new_sender_balance", domain.FormatAmount(result.NewSenderBalance)),
		)
		return result, nil
	case errors.Is(err, domain.ErrInsufficientFunds):
		log.Warn("transfer failed", slog.Any("error", err))
		return nil, err
	case errors.Is(err, domain.ErrAccountNotFound), errors.Is(err, domain.ErrSelfTransfer), errors.Is(err, domain.ErrInvalidAmount):
		log.Debug("transfer rejected", slog.Any("error", err))
		return nil, err
	default:
		err = domain.NewStorageError("apply transfer", err)
		log.Error("transfer storage failure", slog.Any("error", err))
		return nil, err
	}
}

func (e *TransferEngine) ensureExists(ctx context.Context, accountID int64, role domain.AccountRole) error {
	_, err := e.ledger.GetBalance(ctx, accountID)
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrAccountNotFound) {
		return &domain.AccountNotFoundError{AccountID: accountID, Role: role}
	}
	return domain.NewStorageError("lookup "+string(role), err)
}
