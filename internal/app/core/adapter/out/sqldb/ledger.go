// Package sqldb 以 GORM 實作 Ledger，支援 MySQL 與 SQLite
package sqldb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-transfer-ledger/pkg/gormdb"
)

type SQLLedger struct {
	client *gormdb.Client
	now    func() time.Time
}

func NewSQLLedger(client *gormdb.Client) *SQLLedger {
	return &SQLLedger{
		client: client,
		now:    time.Now,
	}
}

// Migrate 建立或更新 accounts 與 audit_records 表
func (ledger *SQLLedger) Migrate(ctx context.Context) error {
	if err := ledger.client.DB().WithContext(ctx).AutoMigrate(&accountRow{}, &auditRow{}); err != nil {
		return fmt.Errorf("sqldb: migrate: %w", err)
	}
	return nil
}

// CreateAccount implements usecase.Ledger.
func (ledger *SQLLedger) CreateAccount(ctx context.Context, openingBalance decimal.Decimal) (int64, error) {
	now := domain.Timestamp(ledger.now())
	row := accountRow{Balance: amount{openingBalance}, CreatedAt: now, UpdatedAt: now}
	if err := ledger.client.DB().WithContext(ctx).Create(&row).Error; err != nil {
		return 0, domain.NewStorageError("create account", err)
	}
	return row.ID, nil
}

// GetBalance implements usecase.Ledger.
func (ledger *SQLLedger) GetBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	var row accountRow
	err := ledger.client.DB().WithContext(ctx).Where("id = ?", accountID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, &domain.AccountNotFoundError{AccountID: accountID, Role: domain.RoleAccount}
	}
	if err != nil {
		return decimal.Zero, domain.NewStorageError("select balance", err)
	}
	return row.Balance.Decimal, nil
}

// ApplyTransfer implements usecase.Ledger.
//
// 在同一個 DB Transaction 內以 SELECT ... FOR UPDATE 依 ID 順序鎖住雙方帳戶；
// 餘額不足時仍提交，只寫入 failed 稽核紀錄。
func (ledger *SQLLedger) ApplyTransfer(ctx context.Context, tr domain.Transfer) (*domain.TransferResult, error) {
	if tr.SenderID == tr.ReceiverID {
		return nil, domain.ErrSelfTransfer
	}

	var (
		result  *domain.TransferResult
		outcome error
	)
	err := ledger.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 取得鎖定帳號 悲觀鎖
		var rows []accountRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", tr.LockIDs()).
			Order("id").
			Find(&rows).Error; err != nil {
			return err
		}
		accounts := make(map[int64]*domain.Account, len(rows))
		for i := range rows {
			accounts[rows[i].ID] = rows[i].toDomain()
		}
		sender, ok := accounts[tr.SenderID]
		if !ok {
			return &domain.AccountNotFoundError{AccountID: tr.SenderID, Role: domain.RoleSender}
		}
		receiver, ok := accounts[tr.ReceiverID]
		if !ok {
			return &domain.AccountNotFoundError{AccountID: tr.ReceiverID, Role: domain.RoleReceiver}
		}

		rec := domain.NewAuditRecord(tr)
		if !sender.CanDebit(tr.Amount) {
			rec.Fail(domain.ReasonInsufficientFunds)
			if err := ledger.insertAudit(tx, &rec); err != nil {
				return err
			}
			outcome = &domain.InsufficientFundsError{TransactionID: rec.TransactionID}
			return nil
		}

		rec.Succeed()
		if err := sender.Debit(tr.Amount); err != nil {
			return err
		}
		if err := receiver.Credit(tr.Amount); err != nil {
			return err
		}
		if err := ledger.insertAudit(tx, &rec); err != nil {
			return err
		}
		for _, acc := range []*domain.Account{sender, receiver} {
			if err := tx.Model(&accountRow{}).
				Where("id = ?", acc.ID).
				Updates(map[string]any{"balance": amount{acc.Balance}, "updated_at": rec.CreatedAt}).Error; err != nil {
				return err
			}
		}

		result = &domain.TransferResult{
			TransactionID:    rec.TransactionID,
			NewSenderBalance: sender.Balance,
			CreatedAt:        rec.CreatedAt,
		}
		return nil
	})
	if err != nil {
		return nil, domain.NewStorageError("apply transfer", err)
	}
	if outcome != nil {
		return nil, outcome
	}
	return result, nil
}

func (ledger *SQLLedger) insertAudit(tx *gorm.DB, rec *domain.AuditRecord) error {
	if err := rec.Seal(ledger.now()); err != nil {
		return err
	}
	row := newAuditRow(rec)
	if err := tx.Create(row).Error; err != nil {
		return err
	}
	rec.Sequence = uint64(row.Seq)
	return nil
}

// ListHistory implements usecase.Ledger.
func (ledger *SQLLedger) ListHistory(ctx context.Context, accountID int64, limit int) ([]domain.AuditRecord, error) {
	db := ledger.client.DB().WithContext(ctx)

	var count int64
	if err := db.Model(&accountRow{}).Where("id = ?", accountID).Count(&count).Error; err != nil {
		return nil, domain.NewStorageError("select account", err)
	}
	if count == 0 {
		return nil, &domain.AccountNotFoundError{AccountID: accountID, Role: domain.RoleAccount}
	}

	query := db.Where("sender_id = ? OR receiver_id = ?", accountID, accountID).
		Order("created_at DESC").
		Order("seq DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []auditRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, domain.NewStorageError("select history", err)
	}

	records := make([]domain.AuditRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].toDomain()
		if err != nil {
			return nil, domain.NewStorageError("decode audit record", err)
		}
		if err := rec.Verify(); err != nil {
			return nil, domain.NewStorageError("verify audit record", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

var _ usecase.Ledger = (*SQLLedger)(nil)
