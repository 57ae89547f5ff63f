package memory

import (
	"encoding/json"
	"fmt"

	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/domain"
)

type entryKind string

const (
	entryAccountOpened entryKind = "account_opened"
	entryAuditRecord   entryKind = "audit_record"
)

// journalEntry WAL 中的一行
type journalEntry struct {
	Kind    entryKind           `json:"kind"`
	Account *domain.Account     `json:"account,omitempty"`
	Record  *domain.AuditRecord `json:"record,omitempty"`
}

// recoverFromWAL 從 WAL 檔案恢復帳本狀態
// 只在建構時呼叫，無需 Lock (單執行緒)
func (b *book) recoverFromWAL() error {
	if b.wal == nil {
		return nil
	}
	return b.wal.ReadAll(func(jsonRaw []byte) error {
		var e journalEntry
		if err := json.Unmarshal(jsonRaw, &e); err != nil {
			return err
		}
		return b.replay(e)
	})
}

func (b *book) replay(e journalEntry) error {
	switch e.Kind {
	case entryAccountOpened:
		if e.Account == nil {
			return fmt.Errorf("journal: %s entry without account", e.Kind)
		}
		b.accounts[e.Account.ID] = &account{Account: *e.Account}
		if e.Account.ID > b.lastID {
			b.lastID = e.Account.ID
		}
	case entryAuditRecord:
		if e.Record == nil {
			return fmt.Errorf("journal: %s entry without record", e.Kind)
		}
		rec := *e.Record
		if err := rec.Verify(); err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		if rec.Status == domain.AuditStatusSuccess {
			if err := b.replayTransfer(rec); err != nil {
				return err
			}
		}
		if rec.Sequence > b.seq {
			b.seq = rec.Sequence
		}
		b.appendRecord(rec)
	default:
		return fmt.Errorf("journal: unknown entry kind %q", e.Kind)
	}
	return nil
}

func (b *book) replayTransfer(rec domain.AuditRecord) error {
	sender, ok := b.accounts[rec.SenderID]
	if !ok {
		return fmt.Errorf("journal: transaction %s references unknown sender %d", rec.TransactionID, rec.SenderID)
	}
	receiver, ok := b.accounts[rec.ReceiverID]
	if !ok {
		return fmt.Errorf("journal: transaction %s references unknown receiver %d", rec.TransactionID, rec.ReceiverID)
	}
	if err := sender.Debit(rec.Amount); err != nil {
		return fmt.Errorf("journal: replay transaction %s: %w", rec.TransactionID, err)
	}
	if err := receiver.Credit(rec.Amount); err != nil {
		return fmt.Errorf("journal: replay transaction %s: %w", rec.TransactionID, err)
	}
	return nil
}
