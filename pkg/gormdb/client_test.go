package gormdb

import (
	"fmt"
	"strings"
	"testing"
)

func TestDataSourceName(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "mysql fields",
			cfg:  Config{Driver: DriverMySQL, Host: "db", Port: 3306, User: "ledger", Password: "secret", DBName: "transfers"},
			want: "ledger:secret@tcp(db:3306)/transfers?charset=utf8mb4&parseTime=True&loc=UTC",
		},
		{
			name: "explicit dsn wins",
			cfg:  Config{Driver: DriverMySQL, DSN: "root@tcp(localhost)/x", Host: "ignored"},
			want: "root@tcp(localhost)/x",
		},
		{
			name: "sqlite path",
			cfg:  Config{Driver: DriverSQLite, Path: "data/ledger.db"},
			want: "data/ledger.db",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.DataSourceName(); got != tt.want {
				t.Fatalf("DataSourceName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewClientRejectsUnknownDriver(t *testing.T) {
	_, err := NewClient(Config{Driver: "oracle"}, nil)
	if err == nil || !strings.Contains(err.Error(), "unsupported driver") {
		t.Fatalf("got %v want unsupported driver error", err)
	}
}

func TestNewClientSQLiteInMemory(t *testing.T) {
	c, err := NewClient(Config{
		Driver:   DriverSQLite,
		Path:     fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		LogLevel: "silent",
	}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	var one int
	if err := c.DB().Raw("SELECT 1").Scan(&one).Error; err != nil {
		t.Fatalf("query: %v", err)
	}
	if one != 1 {
		t.Fatalf("SELECT 1 = %d", one)
	}
	if c.Driver() != DriverSQLite {
		t.Fatalf("Driver() = %q", c.Driver())
	}
}
