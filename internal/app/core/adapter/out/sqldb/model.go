package sqldb

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-transfer-ledger/pkg/gormdb"
)

// amount 金額欄位
// SQLite 的 decimal 欄位屬於 NUMERIC affinity，會把字串轉成 REAL (只有 15 位有效數字)，
// 所以在 SQLite 改存 TEXT，其他資料庫維持 decimal(20,2)
type amount struct {
	decimal.Decimal
}

func (amount) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == gormdb.DriverSQLite {
		return "text"
	}
	return "decimal(20,2)"
}

// accountRow 對應資料庫的 accounts 表
type accountRow struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Balance   amount    `gorm:"not null"`
	CreatedAt time.Time `gorm:"precision:6;not null"`
	UpdatedAt time.Time `gorm:"precision:6;not null"`
}

func (*accountRow) TableName() string {
	return "accounts"
}

func (r *accountRow) toDomain() *domain.Account {
	return domain.NewAccount(r.ID, r.Balance.Decimal, r.CreatedAt.UTC())
}

// auditRow 對應資料庫的 audit_records 表 (只新增，不更新)
type auditRow struct {
	Seq           int64     `gorm:"primaryKey;autoIncrement"`
	TransactionID string    `gorm:"type:char(36);uniqueIndex;not null"`
	SenderID      int64     `gorm:"index;not null"`
	ReceiverID    int64     `gorm:"index;not null"`
	Amount        amount    `gorm:"not null"`
	Status        string    `gorm:"type:varchar(16);not null"`
	ErrorReason   *string   `gorm:"type:varchar(255)"`
	Checksum      string    `gorm:"type:char(64);not null"`
	CreatedAt     time.Time `gorm:"precision:6;index;not null"`
}

func (*auditRow) TableName() string {
	return "audit_records"
}

func newAuditRow(rec *domain.AuditRecord) *auditRow {
	row := &auditRow{
		TransactionID: rec.TransactionID.String(),
		SenderID:      rec.SenderID,
		ReceiverID:    rec.ReceiverID,
		Amount:        amount{rec.Amount},
		Status:        string(rec.Status),
		Checksum:      rec.Checksum,
		CreatedAt:     rec.CreatedAt,
	}
	if rec.ErrorReason != "" {
		reason := rec.ErrorReason
		row.ErrorReason = &reason
	}
	return row
}

func (r *auditRow) toDomain() (domain.AuditRecord, error) {
	id, err := uuid.Parse(r.TransactionID)
	if err != nil {
		return domain.AuditRecord{}, err
	}
	rec := domain.AuditRecord{
		TransactionID: id,
		Sequence:      uint64(r.Seq),
		SenderID:      r.SenderID,
		ReceiverID:    r.ReceiverID,
		Amount:        r.Amount.Decimal,
		Status:        domain.AuditStatus(r.Status),
		CreatedAt:     domain.Timestamp(r.CreatedAt),
		Checksum:      r.Checksum,
	}
	if r.ErrorReason != nil {
		rec.ErrorReason = *r.ErrorReason
	}
	return rec, nil
}
