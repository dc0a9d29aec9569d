// Package alerting 跌倒报警引擎：抑制闸门、报警生命周期状态机与通知分发
package alerting

import (
	"context"
	"errors"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/evaluator"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/models"
)

// ErrPersistence 存储层失败（不重试，直接返回给调用方）
var ErrPersistence = errors.New("persistence failure")

// ErrInvalidTransition 非法状态迁移
var ErrInvalidTransition = errors.New("invalid alert status transition")

// SampleStore 采样存储
type SampleStore interface {
	Append(ctx context.Context, sample models.Sample) error
	// Recent 最近 n 条，最新在前
	Recent(ctx context.Context, n int) ([]models.Sample, error)
}

// AlertStore 报警存储
type AlertStore interface {
	// Create 保存新报警并返回 ID
	Create(ctx context.Context, alert *models.Alert) (string, error)
	Update(ctx context.Context, alert *models.Alert) error
	// FindByID 不存在时返回 (nil, nil)
	FindByID(ctx context.Context, id string) (*models.Alert, error)
	// FindDue 查询 status 匹配且 field <= now 的报警
	FindDue(ctx context.Context, status models.AlertStatus, field models.DeadlineField, now int64) ([]*models.Alert, error)
}

// Notifier 通知通道（Telegram / SMS 等），只返回成功与否
type Notifier interface {
	Send(ctx context.Context, text string) bool
}

// Observer 报警状态变化的观察者；创建时 from 为 0
type Observer interface {
	AlertChanged(ctx context.Context, alert *models.Alert, from models.AlertStatus)
}

// Metrics 引擎指标
type Metrics interface {
	ObserveDecision(d evaluator.Decision)
	ObserveSuppressed()
	ObserveTransition(from, to models.AlertStatus)
	ObserveDispatch(ok bool)
}

type nopMetrics struct{}

func (nopMetrics) ObserveDecision(evaluator.Decision)        {}
func (nopMetrics) ObserveSuppressed()                        {}
func (nopMetrics) ObserveTransition(_, _ models.AlertStatus) {}
func (nopMetrics) ObserveDispatch(bool)                      {}
