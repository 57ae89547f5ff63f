package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"
	"github.com/shopspring/decimal"
)

// AuditStatus 稽核紀錄狀態，寫入後不再改變
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

// ReasonInsufficientFunds 餘額不足時寫入的錯誤原因
const ReasonInsufficientFunds = "Insufficient funds"

// AuditRecord 一次轉帳嘗試的不可變紀錄 (append-only)
//
// ErrorReason 只在 Status 為 failed 時存在。
// Sequence 由 Ledger Store 分配且單調遞增，用於同一時間戳的排序。
type AuditRecord struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	Sequence      uint64          `json:"sequence"`
	SenderID      int64           `json:"sender_id"`
	ReceiverID    int64           `json:"receiver_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        AuditStatus     `json:"status"`
	ErrorReason   string          `json:"error_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	Checksum      string          `json:"checksum"`
}

// NewAuditRecord 為一次轉帳嘗試產生新的 transactionId
func NewAuditRecord(t Transfer) AuditRecord {
	return AuditRecord{
		TransactionID: uuid.New(),
		SenderID:      t.SenderID,
		ReceiverID:    t.ReceiverID,
		Amount:        t.Amount,
	}
}

func (r *AuditRecord) Succeed() {
	r.Status = AuditStatusSuccess
	r.ErrorReason = ""
}

func (r *AuditRecord) Fail(reason string) {
	r.Status = AuditStatusFailed
	r.ErrorReason = reason
}

// Seal 固定寫入時間並計算 checksum，必須在持久化前呼叫
func (r *AuditRecord) Seal(at time.Time) error {
	r.CreatedAt = Timestamp(at)
	sum, err := r.ComputeChecksum()
	if err != nil {
		return err
	}
	r.Checksum = sum
	return nil
}

// auditDigest 參與 checksum 的欄位 (Sequence 由儲存層分配，不納入)
type auditDigest struct {
	TransactionID string `json:"transaction_id"`
	SenderID      int64  `json:"sender_id"`
	ReceiverID    int64  `json:"receiver_id"`
	Amount        string `json:"amount"`
	Status        string `json:"status"`
	ErrorReason   string `json:"error_reason,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// ComputeChecksum 以 RFC 8785 (JCS) 正規化後的 JSON 計算 SHA-256
func (r *AuditRecord) ComputeChecksum() (string, error) {
	raw, err := json.Marshal(auditDigest{
		TransactionID: r.TransactionID.String(),
		SenderID:      r.SenderID,
		ReceiverID:    r.ReceiverID,
		Amount:        FormatAmount(r.Amount),
		Status:        string(r.Status),
		ErrorReason:   r.ErrorReason,
		CreatedAt:     r.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return "", err
	}
	canon, err := jcs.Transform(raw)
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(canon)
	return hex.EncodeToString(h[:]), nil
}

// Verify 重新計算 checksum 並比對
func (r *AuditRecord) Verify() error {
	sum, err := r.ComputeChecksum()
	if err != nil {
		return err
	}
	if sum != r.Checksum {
		return fmt.Errorf("%w: transaction %s", ErrChecksumMismatch, r.TransactionID)
	}
	return nil
}

// Involves 帳戶是否為此紀錄的 sender 或 receiver
func (r *AuditRecord) Involves(accountID int64) bool {
	return r.SenderID == accountID || r.ReceiverID == accountID
}

// Timestamp 統一為 UTC 並截到微秒，各種 backend 都能無損往返
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// SortHistory 依 CreatedAt 由新到舊排序，相同時間以 Sequence 大者在前
func SortHistory(records []AuditRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].Sequence > records[j].Sequence
	})
}
