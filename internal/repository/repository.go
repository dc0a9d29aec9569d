// Package repository 采样与报警的存储实现（PostgreSQL / 内存）
package repository

import (
	"context"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/models"
)

// DefaultListLimit 列表查询默认条数
const DefaultListLimit = 30

// AlertsRepo 报警仓库
type AlertsRepo interface {
	Create(ctx context.Context, alert *models.Alert) (string, error)
	Update(ctx context.Context, alert *models.Alert) error
	FindByID(ctx context.Context, id string) (*models.Alert, error)
	FindDue(ctx context.Context, status models.AlertStatus, field models.DeadlineField, now int64) ([]*models.Alert, error)
	// ListRecent 按创建时间倒序
	ListRecent(ctx context.Context, limit int) ([]*models.Alert, error)
}

// SamplesRepo 采样仓库
type SamplesRepo interface {
	Append(ctx context.Context, sample models.Sample) error
	// Recent 最新在前
	Recent(ctx context.Context, n int) ([]models.Sample, error)
}

func normalizeLimit(n int) int {
	if n <= 0 {
		return DefaultListLimit
	}
	return n
}
