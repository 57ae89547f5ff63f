package gormdb

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Client 封裝 GORM DB 實例
type Client struct {
	db     *gorm.DB
	driver string
}

// NewClient 建立並回傳一個新的資料庫客戶端實例 (GORM)
//
// 參數:
//
//	cfg: Config - 連線配置
//	log: 連線重試時使用的 logger
//
// 回傳值:
//
//	*Client: 封裝後的客戶端
//	error: 若連線失敗則回傳錯誤
func NewClient(cfg Config, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}

	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	gormConfig := &gorm.Config{
		// 預設跳過事務模式，需要原子性的地方自行開 Transaction
		SkipDefaultTransaction: true,
		Logger:                 newLogger(cfg.LogLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}
	retryInterval := cfg.RetryInterval
	if retryInterval <= 0 {
		retryInterval = 2 * time.Second
	}

	var db *gorm.DB
	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(dialector, gormConfig)
		if err == nil {
			// Try pinging to ensure connection is actually alive
			rawDB, pingErr := db.DB()
			if pingErr == nil {
				if err = rawDB.Ping(); err == nil {
					break // Connection successful
				}
			} else {
				err = pingErr
			}
		}

		if i < maxRetries-1 {
			log.Warn("database connect failed, retrying",
				slog.String("driver", cfg.Driver),
				slog.Int("attempt", i+1),
				slog.Int("max_attempts", maxRetries),
				slog.Duration("retry_in", retryInterval),
				slog.Any("error", err),
			)
			time.Sleep(retryInterval)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s after %d attempts: %w", cfg.Driver, maxRetries, err)
	}

	// 取得底層 sql.DB 物件以設定連線池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.db: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// SQLite 只允許一個寫入者；in-memory 資料庫在最後一條連線關閉時消失
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	} else {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return &Client{db: db, driver: cfg.Driver}, nil
}

func dialectorFor(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverMySQL:
		return mysql.Open(cfg.DataSourceName()), nil
	case DriverSQLite:
		dsn := cfg.DataSourceName()
		if dsn == "" {
			return nil, fmt.Errorf("gormdb: sqlite path is empty")
		}
		// file: URI 與 :memory: 不需要建立目錄
		if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("can not create database directory %s: %w", filepath.Dir(dsn), err)
			}
		}
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("gormdb: unsupported driver %q", cfg.Driver)
	}
}

// DB 回傳底層的 *gorm.DB 實例，供業務邏輯層使用
func (c *Client) DB() *gorm.DB {
	return c.db
}

// Driver 回傳連線使用的 driver 名稱
func (c *Client) Driver() string {
	return c.driver
}

// Close 關閉資料庫連線
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// newLogger 根據配置建立 GORM Logger
func newLogger(level string) logger.Interface {
	var logLevel logger.LogLevel
	switch level {
	case "info":
		logLevel = logger.Info
	case "warn":
		logLevel = logger.Warn
	case "error":
		logLevel = logger.Error
	case "silent":
		logLevel = logger.Silent
	default:
		logLevel = logger.Error // 預設只記錄錯誤
	}

	return logger.Default.LogMode(logLevel)
}
