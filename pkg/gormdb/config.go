package gormdb

import (
	"fmt"
	"time"
)

// 支援的 Driver
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Config 定義資料庫連線與連線池的配置
type Config struct {
	Driver string `mapstructure:"driver"` // "mysql" 或 "sqlite"

	// DSN 有值時直接使用，忽略下面的個別欄位
	DSN string `mapstructure:"dsn"`

	Host     string `mapstructure:"host"`     // 資料庫主機地址
	Port     int    `mapstructure:"port"`     // 資料庫埠號 (預設 3306)
	User     string `mapstructure:"user"`     // 使用者名稱
	Password string `mapstructure:"password"` // 密碼
	DBName   string `mapstructure:"dbname"`   // 資料庫名稱

	Path string `mapstructure:"path"` // SQLite 檔案路徑或 file: URI

	// 連線池設定 (Connection Pool)
	// 參考: https://github.com/go-sql-driver/mysql#important-settings
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大開啟連線數
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大閒置連線數
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 連線最大存活時間

	// 連線重試
	MaxRetries    int           `mapstructure:"max_retries"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`

	// GORM 設定
	LogLevel string `mapstructure:"log_level"` // Log 等級: "silent", "error", "warn", "info"
}

// DataSourceName 產生連線字串
//
// MySQL 格式: user:password@tcp(host:port)/dbname?charset=utf8mb4&parseTime=True&loc=UTC
// 時間一律以 UTC 存取，與稽核紀錄的 checksum 一致
func (c *Config) DataSourceName() string {
	if c.DSN != "" {
		return c.DSN
	}
	if c.Driver == DriverSQLite {
		return c.Path
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.DBName,
	)
}
