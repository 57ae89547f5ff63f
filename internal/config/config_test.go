package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestNewDefaultIsValid(t *testing.T) {
	cfg := NewDefault()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	bal, err := cfg.OpeningBalance()
	if err != nil {
		t.Fatalf("OpeningBalance: %v", err)
	}
	if !bal.Equal(decimal.RequireFromString("1000")) {
		t.Fatalf("opening balance %s", bal)
	}
	if cfg.Ledger.CommitTimeout != 5*time.Second {
		t.Fatalf("commit timeout %s", cfg.Ledger.CommitTimeout)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":6000"
ledger:
  backend: sqlite
  commit_timeout: 2s
  history_limit: 50
sqlite:
  path: /tmp/ledger-test.db
mysql:
  host: db.internal
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":6000" || cfg.Ledger.Backend != BackendSQLite {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Ledger.CommitTimeout != 2*time.Second || cfg.Ledger.HistoryLimit != 50 {
		t.Fatalf("unexpected ledger config %+v", cfg.Ledger)
	}
	if cfg.SQLite.Path != "/tmp/ledger-test.db" || cfg.SQLite.Driver != "sqlite" {
		t.Fatalf("unexpected sqlite config %+v", cfg.SQLite)
	}
	// 沒寫到的欄位保留預設值
	if cfg.MySQL.Host != "db.internal" || cfg.MySQL.Port != 3306 || cfg.MySQL.MaxOpenConns != 100 {
		t.Fatalf("unexpected mysql config %+v", cfg.MySQL)
	}
	if cfg.Ledger.OpeningBalance != "1000.00" {
		t.Fatalf("opening balance %q", cfg.Ledger.OpeningBalance)
	}
	if cfg.ConfigPath != path {
		t.Fatalf("ConfigPath %q, want %q", cfg.ConfigPath, path)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "ledger:\n  backend: memory\n")
	t.Setenv("LEDGER_LEDGER_BACKEND", "lmax")
	t.Setenv("LEDGER_LEDGER_OPENING_BALANCE", "0.00")
	t.Setenv("LEDGER_POSTGRES_DSN", "postgres://u:p@pg:5432/x")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ledger.Backend != BackendLMAX {
		t.Fatalf("backend %q, want lmax", cfg.Ledger.Backend)
	}
	if cfg.Ledger.OpeningBalance != "0.00" {
		t.Fatalf("opening balance %q", cfg.Ledger.OpeningBalance)
	}
	if cfg.Postgres.DSN != "postgres://u:p@pg:5432/x" {
		t.Fatalf("postgres dsn %q", cfg.Postgres.DSN)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"backend", "ledger:\n  backend: redis\n", "ledger.backend"},
		{"opening balance", "ledger:\n  opening_balance: \"-1\"\n", "opening_balance"},
		{"sub-cent opening balance", "ledger:\n  opening_balance: \"1.001\"\n", "opening_balance"},
		{"log level", "log:\n  level: loud\n", "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("got %v want error mentioning %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), `"msg":"shown"`) {
		t.Fatalf("unexpected output %s", buf.String())
	}

	if _, err := (LogConfig{Level: "info", Format: "xml"}).NewLogger(&buf); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
