package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/domain"
)

// CoreUseCase 是核心業務邏輯層，組合寫入路徑 (TransferEngine) 與讀取路徑 (AccountService)
type CoreUseCase struct {
	engine   *TransferEngine
	accounts *AccountService
}

func NewCoreUseCase(engine *TransferEngine, accounts *AccountService) *CoreUseCase {
	return &CoreUseCase{
		engine:   engine,
		accounts: accounts,
	}
}

// Transfer 處理轉帳
func (c *CoreUseCase) Transfer(ctx context.Context, senderID, receiverID int64, amount decimal.Decimal) (*domain.TransferResult, error) {
	return c.engine.Transfer(ctx, senderID, receiverID, amount)
}

// GetAccountBalance 取得帳戶餘額
func (c *CoreUseCase) GetAccountBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	return c.accounts.GetBalance(ctx, accountID)
}

// GetHistory 取得帳戶交易紀錄
func (c *CoreUseCase) GetHistory(ctx context.Context, accountID int64, limit int) ([]domain.AuditRecord, error) {
	return c.accounts.GetHistory(ctx, accountID, limit)
}

// OpenAccount 開戶
func (c *CoreUseCase) OpenAccount(ctx context.Context, openingBalance decimal.Decimal) (int64, error) {
	return c.accounts.OpenAccount(ctx, openingBalance)
}
