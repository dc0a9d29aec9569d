package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		filename   TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// applyMigrations 依次执行迁移文件；已记录在 schema_migrations 中的文件跳过
// 每个文件在独立事务中执行
func applyMigrations(ctx context.Context, db *sql.DB, files []string, logger *zap.Logger) (int, error) {
	if _, err := db.ExecContext(ctx, createMigrationsTable); err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	applied := 0
	for _, file := range files {
		name := filepath.Base(file)

		var exists bool
		err := db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE filename = $1)`, name,
		).Scan(&exists)
		if err != nil {
			return applied, fmt.Errorf("failed to check migration %s: %w", name, err)
		}
		if exists {
			logger.Info("Migration already applied, skipping", zap.String("file", name))
			continue
		}

		content, err := os.ReadFile(file)
		if err != nil {
			return applied, fmt.Errorf("failed to read migration file: %w", err)
		}
		if strings.TrimSpace(string(content)) == "" {
			logger.Warn("Empty migration file", zap.String("file", name))
			continue
		}

		if err := applyOne(ctx, db, name, string(content)); err != nil {
			return applied, err
		}
		applied++
		logger.Info("Migration applied", zap.String("file", name))
	}
	return applied, nil
}

func applyOne(ctx context.Context, db *sql.DB, name, content string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, content); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, name); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", name, err)
	}
	return nil
}
