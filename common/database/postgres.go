package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/common/config"

	_ "github.com/lib/pq"
	"go.uber.org/multierr"
)

const (
	defaultConnectAttempts = 3
	connectRetryDelay      = 2 * time.Second
	pingTimeout            = 5 * time.Second
	connMaxIdleTime        = 5 * time.Minute
)

// NewPostgresDB 创建PostgreSQL连接池，ping 失败时按 ConnectAttempts 重试
func NewPostgresDB(ctx context.Context, cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 设置连接池参数
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	db.SetConnMaxIdleTime(connMaxIdleTime)

	attempts := cfg.ConnectAttempts
	if attempts <= 0 {
		attempts = defaultConnectAttempts
	}
	if err := pingWithRetry(ctx, db, attempts, connectRetryDelay); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// pingWithRetry 最多尝试 attempts 次，返回所有失败原因
func pingWithRetry(ctx context.Context, db *sql.DB, attempts int, delay time.Duration) error {
	var errs error
	for i := 1; i <= attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		errs = multierr.Append(errs, err)
		if i == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to ping database: %w", multierr.Append(errs, ctx.Err()))
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("failed to ping database after %d attempts: %w", attempts, errs)
}

// Close 关闭数据库连接
func Close(db *sql.DB) error {
	if db != nil {
		return db.Close()
	}
	return nil
}
