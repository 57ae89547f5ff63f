package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/adapter/out/postgres"
	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/adapter/out/sqldb"
	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-transfer-ledger/internal/config"
	"github.com/JoeShih716/go-transfer-ledger/pkg/gormdb"
	"github.com/JoeShih716/go-transfer-ledger/pkg/pgdb"
	"github.com/JoeShih716/go-transfer-ledger/pkg/wal"
)

// openLedger 依設定建立 Ledger，回傳的 cleanup 必須在程式結束時呼叫
func openLedger(ctx context.Context, cfg *config.Config, logger *slog.Logger) (usecase.Ledger, func(), error) {
	switch cfg.Ledger.Backend {
	case config.BackendMemory, config.BackendLMAX:
		return openMemoryLedger(cfg, logger)
	case config.BackendMySQL:
		return openSQLLedger(ctx, cfg.MySQL, logger)
	case config.BackendSQLite:
		return openSQLLedger(ctx, cfg.SQLite, logger)
	case config.BackendPostgres:
		return openPostgresLedger(ctx, cfg.Postgres, logger)
	default:
		return nil, nil, fmt.Errorf("invalid ledger backend %q", cfg.Ledger.Backend)
	}
}

func openMemoryLedger(cfg *config.Config, logger *slog.Logger) (usecase.Ledger, func(), error) {
	var w *wal.WAL
	if cfg.WAL.Path != "" {
		var err error
		if w, err = wal.NewWAL(cfg.WAL.Path); err != nil {
			return nil, nil, fmt.Errorf("failed to init WAL: %w", err)
		}
		logger.Info("WAL opened", slog.String("path", cfg.WAL.Path))
	} else {
		logger.Warn("wal.path is empty, in-memory ledger will not survive restarts")
	}
	closeWAL := func() {
		if w == nil {
			return
		}
		if err := w.Close(); err != nil {
			logger.Error("failed to close WAL", slog.Any("error", err))
		}
	}

	if cfg.Ledger.Backend == config.BackendMemory {
		l, err := memory.NewMutexLedger(w)
		if err != nil {
			closeWAL()
			return nil, nil, fmt.Errorf("failed to init MutexLedger: %w", err)
		}
		return l, closeWAL, nil
	}

	l, err := memory.NewLMAXLedger(w)
	if err != nil {
		closeWAL()
		return nil, nil, fmt.Errorf("failed to init LMAXLedger: %w", err)
	}
	// 核心迴圈的生命週期獨立於 signal ctx，等 gRPC 停止後才結束
	loopCtx, cancel := context.WithCancel(context.Background())
	l.Start(loopCtx)
	return l, func() {
		cancel()
		<-l.Done()
		closeWAL()
	}, nil
}

func openSQLLedger(ctx context.Context, dbCfg gormdb.Config, logger *slog.Logger) (usecase.Ledger, func(), error) {
	client, err := gormdb.NewClient(dbCfg, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("database connected", slog.String("driver", client.Driver()))

	l := sqldb.NewSQLLedger(client)
	if err := l.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return l, func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}, nil
}

func openPostgresLedger(ctx context.Context, pgCfg pgdb.Config, logger *slog.Logger) (usecase.Ledger, func(), error) {
	pool, err := pgdb.NewPool(ctx, pgCfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.Migrate(pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	logger.Info("postgres connected and migrated")
	return postgres.NewPostgresLedger(pool), pool.Close, nil
}
