package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	grpc_adapter "github.com/JoeShih716/go-transfer-ledger/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-transfer-ledger/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:           "core",
		Short:         "Transfer ledger gRPC server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// 1. 載入設定
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&cfgFile, "config", "c", "", "config file path (default ./config/config.yaml)")
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := cfg.Log.NewLogger(os.Stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	if cfg.ConfigPath != "" {
		logger.Info("config loaded", slog.String("path", cfg.ConfigPath))
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. 初始化 Ledger (依 ledger.backend 選擇)
	ledger, closeLedger, err := openLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLedger()

	// 3. 初始化 UseCase
	openingBalance, err := cfg.OpeningBalance()
	if err != nil {
		return err
	}
	core := usecase.NewCoreUseCase(
		usecase.NewTransferEngine(ledger,
			usecase.WithLogger(logger),
			usecase.WithCommitTimeout(cfg.Ledger.CommitTimeout),
		),
		usecase.NewAccountService(ledger, logger, cfg.Ledger.HistoryLimit),
	)

	// 4. 初始化 gRPC Adapter (Driving Adapter)
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(grpc_adapter.UnaryLoggingInterceptor(logger)))
	healthServer := grpc_adapter.Register(s, grpc_adapter.NewGrpcServer(core, openingBalance))

	// 5. 啟動 gRPC Server
	lis, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr, err)
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting gRPC server",
			slog.String("addr", lis.Addr().String()),
			slog.String("backend", cfg.Ledger.Backend),
		)
		serveErr <- s.Serve(lis)
	}()
	healthServer.SetServingStatus(grpc_adapter.ServiceName, healthpb.HealthCheckResponse_SERVING)

	// Wait for interrupt
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return fmt.Errorf("failed to serve: %w", err)
	}

	// Graceful Shutdown
	logger.Info("shutting down server")
	healthServer.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(cfg.Server.GracefulTimeout):
		logger.Warn("graceful stop timed out, forcing", slog.Duration("timeout", cfg.Server.GracefulTimeout))
		s.Stop()
	}
	logger.Info("server exited")
	return nil
}
