package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/domain"
)

// Ledger 是帳務儲存 (Ledger Store) 的介面
//
// 實作必須保證 ApplyTransfer 的「讀餘額、比較、扣款、入帳、寫稽核紀錄」為單一隔離單元；
// 任何儲存失敗都不能留下部分套用的狀態，並以 domain.StorageError 回傳。
type Ledger interface {
	// CreateAccount 開戶並回傳帳戶 ID
	CreateAccount(ctx context.Context, openingBalance decimal.Decimal) (int64, error)
	// GetBalance 取得帳戶餘額
	GetBalance(ctx context.Context, accountID int64) (decimal.Decimal, error)
	// ApplyTransfer 執行 commit phase；餘額不足時寫入 failed 稽核紀錄並回傳 InsufficientFundsError
	ApplyTransfer(ctx context.Context, tr domain.Transfer) (*domain.TransferResult, error)
	// ListHistory 帳戶相關的稽核紀錄，由新到舊；limit <= 0 表示不限
	ListHistory(ctx context.Context, accountID int64, limit int) ([]domain.AuditRecord, error)
}
