// Package postgres 以 pgx 實作 Ledger
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/usecase"
)

type PostgresLedger struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db, now: time.Now}
}

// CreateAccount implements usecase.Ledger.
func (l *PostgresLedger) CreateAccount(ctx context.Context, openingBalance decimal.Decimal) (int64, error) {
	now := domain.Timestamp(l.now())
	var id int64
	err := l.db.QueryRow(ctx,
		`INSERT INTO accounts (balance, created_at, updated_at) VALUES ($1::numeric, $2, $2) RETURNING id`,
		openingBalance.String(), now,
	).Scan(&id)
	if err != nil {
		return 0, domain.NewStorageError("insert account", err)
	}
	return id, nil
}

// GetBalance implements usecase.Ledger.
func (l *PostgresLedger) GetBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	var raw string
	err := l.db.QueryRow(ctx, `SELECT balance::text FROM accounts WHERE id = $1`, accountID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, &domain.AccountNotFoundError{AccountID: accountID, Role: domain.RoleAccount}
	}
	if err != nil {
		return decimal.Zero, domain.NewStorageError("select balance", err)
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, domain.NewStorageError("decode balance", err)
	}
	return balance, nil
}

// ApplyTransfer implements usecase.Ledger.
func (l *PostgresLedger) ApplyTransfer(ctx context.Context, tr domain.Transfer) (*domain.TransferResult, error) {
	if tr.SenderID == tr.ReceiverID {
		return nil, domain.ErrSelfTransfer
	}
	result, err := l.applyTransfer(ctx, tr)
	if err != nil {
		return nil, domain.NewStorageError("apply transfer", err)
	}
	return result, nil
}

func (l *PostgresLedger) applyTransfer(ctx context.Context, tr domain.Transfer) (*domain.TransferResult, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// 依 ID 順序鎖住雙方帳戶
	rows, err := tx.Query(ctx,
		`SELECT id, balance::text FROM accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
		tr.LockIDs(),
	)
	if err != nil {
		return nil, err
	}
	accounts := make(map[int64]*domain.Account, 2)
	for rows.Next() {
		var (
			id  int64
			raw string
		)
		if err := rows.Scan(&id, &raw); err != nil {
			rows.Close()
			return nil, err
		}
		balance, err := decimal.NewFromString(raw)
		if err != nil {
			rows.Close()
			return nil, err
		}
		accounts[id] = &domain.Account{ID: id, Balance: balance}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sender, ok := accounts[tr.SenderID]
	if !ok {
		return nil, &domain.AccountNotFoundError{AccountID: tr.SenderID, Role: domain.RoleSender}
	}
	receiver, ok := accounts[tr.ReceiverID]
	if !ok {
		return nil, &domain.AccountNotFoundError{AccountID: tr.ReceiverID, Role: domain.RoleReceiver}
	}

	rec := domain.NewAuditRecord(tr)
	if !sender.CanDebit(tr.Amount) {
		rec.Fail(domain.ReasonInsufficientFunds)
		if err := l.insertAudit(ctx, tx, &rec); err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		return nil, &domain.InsufficientFundsError{TransactionID: rec.TransactionID}
	}

	rec.Succeed()
	if err := sender.Debit(tr.Amount); err != nil {
		return nil, err
	}
	if err := receiver.Credit(tr.Amount); err != nil {
		return nil, err
	}
	if err := l.insertAudit(ctx, tx, &rec); err != nil {
		return nil, err
	}
	for _, acc := range []*domain.Account{sender, receiver} {
		if _, err := tx.Exec(ctx,
			`UPDATE accounts SET balance = $2::numeric, updated_at = $3 WHERE id = $1`,
			acc.ID, acc.Balance.String(), rec.CreatedAt,
		); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &domain.TransferResult{
		TransactionID:    rec.TransactionID,
		NewSenderBalance: sender.Balance,
		CreatedAt:        rec.CreatedAt,
	}, nil
}

func (l *PostgresLedger) insertAudit(ctx context.Context, tx pgx.Tx, rec *domain.AuditRecord) error {
	if err := rec.Seal(l.now()); err != nil {
		return err
	}
	var reason *string
	if rec.ErrorReason != "" {
		reason = &rec.ErrorReason
	}
	var seq int64
	err := tx.QueryRow(ctx, `
		INSERT INTO audit_records
			(transaction_id, sender_id, receiver_id, amount, status, error_reason, checksum, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8)
		RETURNING seq`,
		rec.TransactionID, rec.SenderID, rec.ReceiverID, rec.Amount.String(),
		string(rec.Status), reason, rec.Checksum, rec.CreatedAt,
	).Scan(&seq)
	if err != nil {
		return err
	}
	rec.Sequence = uint64(seq)
	return nil
}

// ListHistory implements usecase.Ledger.
func (l *PostgresLedger) ListHistory(ctx context.Context, accountID int64, limit int) ([]domain.AuditRecord, error) {
	var exists bool
	if err := l.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, accountID).Scan(&exists); err != nil {
		return nil, domain.NewStorageError("select account", err)
	}
	if !exists {
		return nil, &domain.AccountNotFoundError{AccountID: accountID, Role: domain.RoleAccount}
	}

	// LIMIT NULL 等同不限
	var limitArg *int64
	if limit > 0 {
		n := int64(limit)
		limitArg = &n
	}
	rows, err := l.db.Query(ctx, `
		SELECT seq, transaction_id, sender_id, receiver_id, amount::text, status, error_reason, checksum, created_at
		FROM audit_records
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2`,
		accountID, limitArg,
	)
	if err != nil {
		return nil, domain.NewStorageError("select history", err)
	}
	defer rows.Close()

	var records []domain.AuditRecord
	for rows.Next() {
		var (
			seq       int64
			id        uuid.UUID
			amount    string
			status    string
			reason    *string
			createdAt time.Time
			rec       domain.AuditRecord
		)
		if err := rows.Scan(&seq, &id, &rec.SenderID, &rec.ReceiverID, &amount, &status, &reason, &rec.Checksum, &createdAt); err != nil {
			return nil, domain.NewStorageError("scan audit record", err)
		}
		rec.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, domain.NewStorageError("decode audit amount", err)
		}
		rec.TransactionID = id
		rec.Sequence = uint64(seq)
		rec.Status = domain.AuditStatus(status)
		rec.CreatedAt = domain.Timestamp(createdAt)
		if reason != nil {
			rec.ErrorReason = *reason
		}
		if err := rec.Verify(); err != nil {
			return nil, domain.NewStorageError("verify audit record", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("select history", err)
	}
	return records, nil
}

var _ usecase.Ledger = (*PostgresLedger)(nil)
