package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
	"gopkg.in/yaml.v3"

	grpc_adapter "github.com/JoeShih716/go-transfer-ledger/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/usecase"
)

// startServer 以 bufconn 啟動完整的 ledger gRPC 服務
func startServer(t *testing.T) grpc.DialOption {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ledger, err := memory.NewMutexLedger(nil)
	if err != nil {
		t.Fatalf("NewMutexLedger: %v", err)
	}
	core := usecase.NewCoreUseCase(
		usecase.NewTransferEngine(ledger, usecase.WithLogger(logger)),
		usecase.NewAccountService(ledger, logger, 0),
	)

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	grpc_adapter.Register(s, grpc_adapter.NewGrpcServer(core, decimal.RequireFromString("1000.00")))
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	return grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
}

type harness struct {
	t       *testing.T
	dialer  grpc.DialOption
	confirm func(string) (bool, error)
}

func newHarness(t *testing.T) *harness {
	return &harness{t: t, dialer: startServer(t)}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	var out bytes.Buffer
	a := newApp(&out)
	defer a.close()
	a.dialOpts = []grpc.DialOption{h.dialer}
	a.confirm = func(title string) (bool, error) {
		h.t.Fatalf("unexpected confirmation prompt: %s", title)
		return false, nil
	}
	if h.confirm != nil {
		a.confirm = h.confirm
	}

	cmd := newRootCmd(a)
	cmd.SetArgs(append([]string{"--addr", "passthrough:///bufnet"}, args...))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func (h *harness) open(balance string) int64 {
	h.t.Helper()
	out, err := h.run("open", "--balance", balance, "-o", "json")
	if err != nil {
		h.t.Fatalf("open: %v", err)
	}
	var res openResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		h.t.Fatalf("decode open output %q: %v", out, err)
	}
	return res.AccountID
}

func (h *harness) balance(id int64) string {
	h.t.Helper()
	out, err := h.run("balance", itoa(id), "-o", "json")
	if err != nil {
		h.t.Fatalf("balance: %v", err)
	}
	var res balanceResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		h.t.Fatalf("decode balance output %q: %v", out, err)
	}
	return res.Balance
}

func itoa(id int64) string {
	return decimal.NewFromInt(id).String()
}

func TestTransferFlow(t *testing.T) {
	h := newHarness(t)
	a := h.open("100.00")
	b := h.open("0")

	out, err := h.run("transfer", itoa(a), itoa(b), "40", "--yes", "-o", "json")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	var resp grpc_adapter.TransferResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode transfer output %q: %v", out, err)
	}
	if resp.NewSenderBalance != "60.00" || resp.TransactionID == "" {
		t.Fatalf("transfer response = %+v", resp)
	}

	if got := h.balance(a); got != "60.00" {
		t.Fatalf("sender balance = %s, want 60.00", got)
	}
	if got := h.balance(b); got != "40.00" {
		t.Fatalf("receiver balance = %s, want 40.00", got)
	}

	out, err = h.run("history", itoa(b), "-o", "yaml")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var records []grpc_adapter.AuditRecord
	if err := yaml.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode history output %q: %v", out, err)
	}
	if len(records) != 1 || records[0].TransactionID != resp.TransactionID || records[0].Amount != "40.00" {
		t.Fatalf("history = %+v", records)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	h := newHarness(t)
	a := h.open("10.00")
	b := h.open("0")

	_, err := h.run("transfer", itoa(a), itoa(b), "10.01", "--yes")
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}

	out, err := h.run("history", itoa(a))
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "failed") || !strings.Contains(out, "10.01") {
		t.Fatalf("history table missing failed record:\n%s", out)
	}
}

func TestTransferConfirmation(t *testing.T) {
	h := newHarness(t)
	a := h.open("10.00")
	b := h.open("0")

	var prompted string
	h.confirm = func(title string) (bool, error) {
		prompted = title
		return false, nil
	}
	if _, err := h.run("transfer", itoa(a), itoa(b), "5"); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !strings.Contains(prompted, "5.00") {
		t.Fatalf("prompt = %q", prompted)
	}
	if got := h.balance(a); got != "10.00" {
		t.Fatalf("balance after declined transfer = %s, want 10.00", got)
	}
}

func TestBench(t *testing.T) {
	h := newHarness(t)
	a := h.open("1.00")
	b := h.open("0")

	out, err := h.run("bench",
		"--sender", itoa(a), "--receiver", itoa(b),
		"--amount", "0.10", "-n", "15", "-c", "5", "-o", "json")
	if err != nil {
		t.Fatalf("bench: %v", err)
	}
	var res benchResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode bench output %q: %v", out, err)
	}
	if res.Total != 15 || res.Succeeded != 10 || res.Insufficient != 5 || res.Failed != 0 {
		t.Fatalf("bench = %+v", res)
	}
	if got := h.balance(b); got != "1.00" {
		t.Fatalf("receiver balance = %s, want 1.00", got)
	}
}

func TestArgumentErrors(t *testing.T) {
	h := newHarness(t)
	if id := h.open("10.00"); id != 1 {
		t.Fatalf("first account id = %d, want 1", id)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"bad account id", []string{"balance", "abc"}},
		{"bad amount", []string{"transfer", "1", "2", "1.001", "--yes"}},
		{"bad output", []string{"balance", "1", "-o", "xml"}},
		{"bad bench", []string{"bench", "-n", "0"}},
		{"negative limit", []string{"history", "1", "--limit", "-1"}},
		{"limit over int32", []string{"history", "1", "--limit", "3000000000"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.run(tt.args...); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestUnknownAccount(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("balance", "42")
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
}
