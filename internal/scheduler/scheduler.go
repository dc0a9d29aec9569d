// Package scheduler 周期推进报警生命周期
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval 推进周期
const DefaultInterval = time.Second

// Ticker 被周期调用的对象（alerting.Engine）
type Ticker interface {
	Tick(ctx context.Context, now int64) error
}

// Scheduler 固定间隔调用 Tick；上一次未结束时跳过本次，不会重叠执行
type Scheduler struct {
	target   Ticker
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger

	running atomic.Bool
}

// NewScheduler 创建调度器
func NewScheduler(target Ticker, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		target:   target,
		interval: interval,
		now:      time.Now,
		logger:   logger,
	}
}

// Start 阻塞运行直到 ctx 取消
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Alert scheduler started",
		zap.Duration("interval", s.interval),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// 立即执行一次，补上停机期间到期的报警
	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Alert scheduler stopped")
			return nil
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce 执行一次推进；返回 false 表示上一次仍在执行而跳过
// 错误只记录日志，下一周期继续
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Debug("Previous tick still running, skipping")
		return false
	}
	defer s.running.Store(false)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Tick panicked", zap.Any("panic", r))
		}
	}()

	if err := s.target.Tick(ctx, s.now().UnixMilli()); err != nil {
		s.logger.Error("Failed to advance alerts",
			zap.Error(err),
		)
		// 继续执行，不中断
	}
	return true
}
