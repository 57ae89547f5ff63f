package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"

	grpc_adapter "github.com/JoeShih716/go-transfer-ledger/internal/app/core/adapter/in/grpc"
	grpcpool "github.com/JoeShih716/go-transfer-ledger/pkg/grpc"
)

// app 所有子命令共用的狀態
type app struct {
	out      io.Writer
	v        *viper.Viper
	dialOpts []grpc.DialOption
	confirm  func(title string) (bool, error)

	pool   *grpcpool.Pool
	client *grpc_adapter.Client
}

func newApp(out io.Writer) *app {
	return &app{
		out:     out,
		v:       viper.New(),
		confirm: promptConfirm,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operate a transfer ledger server over gRPC",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.connect()
		},
	}

	flags := root.PersistentFlags()
	flags.String("addr", "localhost:50051", "ledger server address")
	flags.StringP("output", "o", "table", "output format: table, json or yaml")
	flags.Duration("timeout", 10*time.Second, "per-request timeout")

	a.v.SetEnvPrefix("LEDGERCTL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	for _, name := range []string{"addr", "output", "timeout"} {
		_ = a.v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(
		newOpenCmd(a),
		newTransferCmd(a),
		newBalanceCmd(a),
		newHistoryCmd(a),
		newBenchCmd(a),
	)
	return root
}

func (a *app) connect() error {
	switch a.output() {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q", a.output())
	}

	a.pool = grpcpool.NewPool(
		grpcpool.WithInterceptor(grpcpool.RequestIDInterceptor()),
		grpcpool.WithCallOptions(grpc.CallContentSubtype(grpc_adapter.CodecName)),
	)
	conn, err := a.pool.GetConnection(a.v.GetString("addr"), a.dialOpts...)
	if err != nil {
		return err
	}
	a.client = grpc_adapter.NewClient(conn)
	return nil
}

// close 釋放連線；指令失敗時 cobra 不會跑 PostRun，所以由呼叫端負責
func (a *app) close() error {
	if a.pool == nil {
		return nil
	}
	return a.pool.Close()
}

func (a *app) output() string {
	return strings.ToLower(a.v.GetString("output"))
}

// requestContext 每個請求各自的 timeout
func (a *app) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, a.v.GetDuration("timeout"))
}

func promptConfirm(title string) (bool, error) {
	confirm := false
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&confirm).
		Run()
	return confirm, err
}
