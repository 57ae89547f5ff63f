package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-transfer-ledger/internal/config"
)

func TestOpenLedgerSurvivesRestart(t *testing.T) {
	tests := []struct {
		name    string
		backend string
	}{
		{"memory", config.BackendMemory},
		{"lmax", config.BackendLMAX},
		{"sqlite", config.BackendSQLite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			dir := t.TempDir()

			cfg := config.NewDefault()
			cfg.Ledger.Backend = tt.backend
			cfg.WAL.Path = filepath.Join(dir, "wal.log")
			cfg.SQLite.Path = filepath.Join(dir, "ledger.db")

			l, cleanup, err := openLedger(ctx, cfg, logger)
			if err != nil {
				t.Fatalf("openLedger: %v", err)
			}
			a, err := l.CreateAccount(ctx, decimal.RequireFromString("100.00"))
			if err != nil {
				t.Fatalf("CreateAccount: %v", err)
			}
			b, err := l.CreateAccount(ctx, decimal.Zero)
			if err != nil {
				t.Fatalf("CreateAccount: %v", err)
			}
			res, err := l.ApplyTransfer(ctx, domain.Transfer{SenderID: a, ReceiverID: b, Amount: decimal.RequireFromString("30.00")})
			if err != nil {
				t.Fatalf("ApplyTransfer: %v", err)
			}
			cleanup()

			l, cleanup, err = openLedger(ctx, cfg, logger)
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			defer cleanup()

			got, err := l.GetBalance(ctx, b)
			if err != nil {
				t.Fatalf("GetBalance: %v", err)
			}
			if !got.Equal(decimal.RequireFromString("30.00")) {
				t.Fatalf("balance after restart = %s, want 30.00", got)
			}
			history, err := l.ListHistory(ctx, a, 0)
			if err != nil {
				t.Fatalf("ListHistory: %v", err)
			}
			if len(history) != 1 || history[0].TransactionID != res.TransactionID {
				t.Fatalf("history after restart = %+v", history)
			}
		})
	}
}

func TestOpenLedgerInvalidBackend(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Ledger.Backend = "redis"
	if _, _, err := openLedger(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
