package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/models"

	"go.uber.org/zap"
)

// PostgresSamplesRepo 采样仓库（samples 表，权威存储）
type PostgresSamplesRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresSamplesRepo 创建采样仓库
func NewPostgresSamplesRepo(db *sql.DB, logger *zap.Logger) *PostgresSamplesRepo {
	return &PostgresSamplesRepo{
		db:     db,
		logger: logger,
	}
}

func (r *PostgresSamplesRepo) Append(ctx context.Context, s models.Sample) error {
	query := `
		INSERT INTO samples (
			timestamp, ax, ay, az, gx, gy, gz, lat, lng, context
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.Timestamp,
		s.Accel.X, s.Accel.Y, s.Accel.Z,
		s.Gyro.X, s.Gyro.Y, s.Gyro.Z,
		nullFloat(s.Lat),
		nullFloat(s.Lng),
		nullString(s.Context),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sample: %w", err)
	}
	return nil
}

// Recent 最近 n 条，最新在前
func (r *PostgresSamplesRepo) Recent(ctx context.Context, n int) ([]models.Sample, error) {
	query := `
		SELECT timestamp, ax, ay, az, gx, gy, gz, lat, lng, context
		FROM samples
		ORDER BY timestamp DESC, id DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, normalizeLimit(n))
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var samples []models.Sample
	for rows.Next() {
		var s models.Sample
		var lat, lng sql.NullFloat64
		var sampleContext sql.NullString
		if err := rows.Scan(
			&s.Timestamp,
			&s.Accel.X, &s.Accel.Y, &s.Accel.Z,
			&s.Gyro.X, &s.Gyro.Y, &s.Gyro.Z,
			&lat, &lng,
			&sampleContext,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		s.Lat = floatPtr(lat)
		s.Lng = floatPtr(lng)
		s.Context = sampleContext.String
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate samples: %w", err)
	}
	return samples, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
