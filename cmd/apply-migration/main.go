package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/common/database"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/common/logger"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/config"

	"go.uber.org/zap"
)

// 用法：apply-migration [migration_file.sql ...]
// 不传参数时按文件名顺序执行 migrations/*.sql
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.Log.Level, "console", "apply-migration")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	files := os.Args[1:]
	if len(files) == 0 {
		files, err = filepath.Glob(filepath.Join("migrations", "*.sql"))
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		sort.Strings(files)
	}
	if len(files) == 0 {
		log.Fatal("No migration files found")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.NewPostgresDB(ctx, &cfg.Database.DatabaseConfig)
	if err != nil {
		log.Fatal("Cannot connect to database", zap.Error(err))
	}
	defer db.Close()

	log.Info("Connected to database", zap.String("database", cfg.Database.Database))

	applied, err := applyMigrations(ctx, db, files, log)
	if err != nil {
		log.Fatal("Migration failed", zap.Error(err))
	}
	log.Info("Migration completed", zap.Int("applied", applied))
}
