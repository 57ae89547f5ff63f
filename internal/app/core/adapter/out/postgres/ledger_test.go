package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/ledgertest"
	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-transfer-ledger/pkg/pgdb"
)

func openPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("LEDGER_PG_DSN")
	if dsn == "" {
		t.Skipf("LEDGER_PG_DSN not set")
	}
	pool, err := pgdb.NewPool(context.Background(), pgdb.Config{DSN: dsn, MaxConns: 20}, nil)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := Migrate(pool); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return pool
}

func TestPostgresLedgerContract(t *testing.T) {
	pool := openPool(t)

	ledgertest.Run(t, func(t *testing.T) usecase.Ledger {
		if _, err := pool.Exec(context.Background(), `TRUNCATE audit_records, accounts RESTART IDENTITY`); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return NewPostgresLedger(pool)
	})
}

func TestAuditRecordsAreAppendOnly(t *testing.T) {
	pool := openPool(t)
	ctx := context.Background()
	l := NewPostgresLedger(pool)

	a := ledgertest.Open(t, l, "100")
	b := ledgertest.Open(t, l, "0")
	if _, err := l.ApplyTransfer(ctx, transfer(a, b, "10")); err != nil {
		t.Fatalf("ApplyTransfer: %v", err)
	}

	if _, err := pool.Exec(ctx, `UPDATE audit_records SET amount = 99 WHERE sender_id = $1`, a); err == nil {
		t.Fatalf("update on audit_records succeeded")
	}
	if _, err := pool.Exec(ctx, `DELETE FROM audit_records WHERE sender_id = $1`, a); err == nil {
		t.Fatalf("delete on audit_records succeeded")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	pool := openPool(t)
	if err := Migrate(pool); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}
