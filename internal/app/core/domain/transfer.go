package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transfer 轉帳請求
type Transfer struct {
	SenderID   int64
	ReceiverID int64
	Amount     decimal.Decimal
}

// Validate 依序檢查金額與是否轉給自己，不涉及帳本狀態
func (t Transfer) Validate() error {
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if t.SenderID == t.ReceiverID {
		return ErrSelfTransfer
	}
	return nil
}

// LockIDs 回傳需要鎖定的帳號 ID，並確保順序以避免死鎖
func (t Transfer) LockIDs() []int64 {
	if t.SenderID < t.ReceiverID {
		return []int64{t.SenderID, t.ReceiverID}
	}
	return []int64{t.ReceiverID, t.SenderID}
}

// TransferResult 成功轉帳的結果
type TransferResult struct {
	TransactionID    uuid.UUID
	NewSenderBalance decimal.Decimal
	CreatedAt        time.Time
}
