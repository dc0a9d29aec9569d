package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const alertColumns = `
			alert_id,
			created_timestamp,
			reason,
			lat,
			lng,
			status,
			confirm_starts_at,
			expiry_at,
			created_at,
			updated_at`

// PostgresAlertsRepo 报警仓库（alerts 表）
type PostgresAlertsRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresAlertsRepo 创建报警仓库
func NewPostgresAlertsRepo(db *sql.DB, logger *zap.Logger) *PostgresAlertsRepo {
	return &PostgresAlertsRepo{
		db:     db,
		logger: logger,
	}
}

// Create 插入报警，ID 为空时生成 UUID
func (r *PostgresAlertsRepo) Create(ctx context.Context, alert *models.Alert) (string, error) {
	if alert == nil {
		return "", fmt.Errorf("alert is required")
	}
	id := alert.ID
	if id == "" {
		id = uuid.NewString()
	}

	query := `
		INSERT INTO alerts (` + alertColumns + `
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		id,
		alert.CreatedTimestamp,
		alert.Reason,
		nullFloat(alert.Lat),
		nullFloat(alert.Lng),
		alert.Status,
		alert.ConfirmStartsAt,
		alert.ExpiryAt,
		alert.CreatedAt,
		alert.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert alert: %w", err)
	}
	return id, nil
}

// Update 更新状态与截止时间
func (r *PostgresAlertsRepo) Update(ctx context.Context, alert *models.Alert) error {
	if alert == nil || alert.ID == "" {
		return fmt.Errorf("alert_id is required")
	}

	query := `
		UPDATE alerts
		SET status = $2,
			confirm_starts_at = $3,
			expiry_at = $4,
			updated_at = $5
		WHERE alert_id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		alert.ID,
		alert.Status,
		alert.ConfirmStartsAt,
		alert.ExpiryAt,
		alert.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("alert %s not found", alert.ID)
	}
	return nil
}

// FindByID 不存在时返回 (nil, nil)
func (r *PostgresAlertsRepo) FindByID(ctx context.Context, id string) (*models.Alert, error) {
	if id == "" {
		return nil, nil
	}
	if _, err := uuid.Parse(id); err != nil {
		// 非 UUID 一定不存在，避免数据库报类型错误
		return nil, nil
	}

	query := `SELECT` + alertColumns + `
		FROM alerts
		WHERE alert_id = $1
	`
	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return alert, nil
}

// FindDue 查询 status 匹配且截止字段 <= now 的报警，按截止时间升序
func (r *PostgresAlertsRepo) FindDue(ctx context.Context, status models.AlertStatus, field models.DeadlineField, now int64) ([]*models.Alert, error) {
	var column string
	switch field {
	case models.DeadlineConfirmStartsAt:
		column = "confirm_starts_at"
	case models.DeadlineExpiryAt:
		column = "expiry_at"
	default:
		return nil, fmt.Errorf("unknown deadline field: %s", field)
	}

	query := `SELECT` + alertColumns + `
		FROM alerts
		WHERE status = $1
		  AND ` + column + ` <= $2
		ORDER BY ` + column + ` ASC
	`
	rows, err := r.db.QueryContext(ctx, query, status, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due alerts: %w", err)
	}
	return collectAlerts(rows)
}

// ListRecent 最近创建的报警
func (r *PostgresAlertsRepo) ListRecent(ctx context.Context, limit int) ([]*models.Alert, error) {
	query := `SELECT` + alertColumns + `
		FROM alerts
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	return collectAlerts(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*models.Alert, error) {
	var a models.Alert
	var lat, lng sql.NullFloat64
	err := row.Scan(
		&a.ID,
		&a.CreatedTimestamp,
		&a.Reason,
		&lat,
		&lng,
		&a.Status,
		&a.ConfirmStartsAt,
		&a.ExpiryAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Lat = floatPtr(lat)
	a.Lng = floatPtr(lng)
	return &a, nil
}

func collectAlerts(rows *sql.Rows) ([]*models.Alert, error) {
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return alerts, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
