package alerting

import (
	"context"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/evaluator"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/models"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/predictor"

	"go.uber.org/zap"
)

// DefaultHistorySize 跌落判别读取的最近采样数
const DefaultHistorySize = 30

// ProcessResult 新建报警的摘要
type ProcessResult struct {
	AlertID         string             `json:"alertId"`
	Status          models.AlertStatus `json:"status"`
	ConfirmStartsAt int64              `json:"confirmStartsAt"`
	ExpiryAt        int64              `json:"expiryAt"`
}

// Engine 跌倒分类与报警引擎（对外暴露 Process / ConfirmAlert / Tick）
type Engine struct {
	samples     SampleStore
	predictor   *predictor.Predictor
	lifecycle   *Lifecycle
	defaults    evaluator.Timing
	historySize int
	metrics     Metrics
	logger      *zap.Logger
}

// NewEngine 创建引擎；defaults 为配置的静默期/确认期
func NewEngine(
	samples SampleStore,
	p *predictor.Predictor,
	lifecycle *Lifecycle,
	defaults evaluator.Timing,
	historySize int,
	logger *zap.Logger,
) *Engine {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &Engine{
		samples:     samples,
		predictor:   p,
		lifecycle:   lifecycle,
		defaults:    defaults,
		historySize: historySize,
		metrics:     lifecycle.metrics,
		logger:      logger,
	}
}

// SuppressedUntil 当前冷却截止时间（epoch ms）
func (e *Engine) SuppressedUntil() int64 {
	return e.lifecycle.gate.Deadline()
}

// Process 对一条采样做分类；不报警时返回 (nil, nil)
// 冷却期内直接返回，不读取历史、不评分、不创建报警
func (e *Engine) Process(ctx context.Context, sample models.Sample) (*ProcessResult, error) {
	if now := e.lifecycle.nowMs(); !e.lifecycle.gate.Allow(now) {
		e.metrics.ObserveSuppressed()
		e.logger.Debug("Sample ignored during cooldown",
			zap.Int64("timestamp", sample.Timestamp),
			zap.Int64("suppressed_until", e.lifecycle.gate.Deadline()),
		)
		return nil, nil
	}

	dropLike := evaluator.DetectDrop(sample, e.recentHistory(ctx))
	mlScore := e.predictor.PredictFallProbability(sample)
	decision := evaluator.Classify(sample, dropLike, mlScore)
	e.metrics.ObserveDecision(decision)

	e.logger.Debug("Sample classified",
		zap.Int64("timestamp", sample.Timestamp),
		zap.Float64("accel_mag", decision.AccelMag),
		zap.Float64("gyro_mag", decision.GyroMag),
		zap.Float64("ml_score", decision.MLScore),
		zap.String("context", sample.Context),
		zap.Bool("drop_like", dropLike),
		zap.Bool("alert", decision.Alert),
	)

	if !decision.Alert {
		return nil, nil
	}

	timing := evaluator.SelectTiming(decision, sample.Context, e.defaults)
	alert, err := e.lifecycle.Create(ctx, sample, decision.Reason(), timing)
	if err != nil {
		return nil, err
	}

	return &ProcessResult{
		AlertID:         alert.ID,
		Status:          alert.Status,
		ConfirmStartsAt: alert.ConfirmStartsAt,
		ExpiryAt:        alert.ExpiryAt,
	}, nil
}

// recentHistory 历史读取失败时按无历史处理（跌落判别回退为 false）
func (e *Engine) recentHistory(ctx context.Context) []models.Sample {
	history, err := e.samples.Recent(ctx, e.historySize)
	if err != nil {
		e.logger.Warn("Failed to read recent samples, drop detection disabled for this sample",
			zap.Error(err),
		)
		return nil
	}
	return history
}

// ConfirmAlert 用户确认（isOkay=true 表示安全，取消报警）
func (e *Engine) ConfirmAlert(ctx context.Context, alertID string, isOkay bool) error {
	return e.lifecycle.Confirm(ctx, alertID, isOkay)
}

// Tick 由调度器调用
func (e *Engine) Tick(ctx context.Context, now int64) error {
	return e.lifecycle.Tick(ctx, now)
}
