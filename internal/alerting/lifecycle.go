package alerting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/evaluator"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/models"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// 冷却与窗口下限（毫秒）
const (
	SentCooldownMs   int64 = 20_000
	CancelCooldownMs int64 = 10_000
	MinModalMs       int64 = 1_000
)

// Lifecycle 报警生命周期状态机
// PENDING_SILENT → PENDING_CONFIRM → {SENT, CANCELLED}
// Tick 与 Confirm 的状态迁移互斥执行，同一报警不会被调度器和用户同时终结；
// 通知发送与观察者回调在锁外执行
type Lifecycle struct {
	alerts     AlertStore
	gate       *Gate
	dispatcher *Dispatcher
	observers  []Observer
	metrics    Metrics
	now        func() time.Time
	logger     *zap.Logger

	mu sync.Mutex
}

// Option 生命周期可选项
type Option func(*Lifecycle)

// WithClock 替换时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(l *Lifecycle) {
		l.now = now
	}
}

// WithObserver 注册状态变化观察者
func WithObserver(o Observer) Option {
	return func(l *Lifecycle) {
		if o != nil {
			l.observers = append(l.observers, o)
		}
	}
}

// WithMetrics 注册指标
func WithMetrics(m Metrics) Option {
	return func(l *Lifecycle) {
		if m != nil {
			l.metrics = m
		}
	}
}

// NewLifecycle 创建状态机
func NewLifecycle(alerts AlertStore, gate *Gate, dispatcher *Dispatcher, logger *zap.Logger, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		alerts:     alerts,
		gate:       gate,
		dispatcher: dispatcher,
		metrics:    nopMetrics{},
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.dispatcher.metrics = l.metrics
	return l
}

// Gate 全局抑制闸门
func (l *Lifecycle) Gate() *Gate {
	return l.gate
}

func (l *Lifecycle) nowMs() int64 {
	return l.now().UnixMilli()
}

// Create 创建处于静默期的报警
// confirmStartsAt = now + max(0, silentMs)，expiryAt = confirmStartsAt + max(1000, modalMs)
func (l *Lifecycle) Create(ctx context.Context, sample models.Sample, reason string, timing evaluator.Timing) (*models.Alert, error) {
	now := l.now()
	confirmStartsAt := now.UnixMilli() + max(0, timing.SilentMs)

	alert := &models.Alert{
		CreatedTimestamp: sample.Timestamp,
		Reason:           reason,
		Lat:              sample.Lat,
		Lng:              sample.Lng,
		Status:           models.StatusPendingSilent,
		ConfirmStartsAt:  confirmStartsAt,
		ExpiryAt:         confirmStartsAt + max(MinModalMs, timing.ModalMs),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	id, err := l.alerts.Create(ctx, alert)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create alert: %w", ErrPersistence, err)
	}
	alert.ID = id

	l.logger.Info("Alert pending (silent)",
		zap.String("alert_id", alert.ID),
		zap.Int64("timestamp", alert.CreatedTimestamp),
		zap.Int64("confirm_starts_at", alert.ConfirmStartsAt),
		zap.Int64("expiry_at", alert.ExpiryAt),
		zap.String("reason", reason),
	)
	l.notifyObservers(ctx, alert, 0)
	return alert, nil
}

// Tick 推进所有到期报警；每个报警独立处理，单个失败不影响其他报警
// 依靠状态判断保证幂等：重复调用不会再次迁移或发送
func (l *Lifecycle) Tick(ctx context.Context, now int64) error {
	var fx effects
	err := l.tick(ctx, now, &fx)
	l.flush(ctx, &fx)
	return err
}

func (l *Lifecycle) tick(ctx context.Context, now int64, fx *effects) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs error

	// 静默期结束 → 弹出确认
	toConfirm, err := l.alerts.FindDue(ctx, models.StatusPendingSilent, models.DeadlineConfirmStartsAt, now)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("%w: failed to find alerts due for confirmation: %w", ErrPersistence, err))
	}
	for _, alert := range toConfirm {
		if alert.Status != models.StatusPendingSilent || alert.ConfirmStartsAt > now {
			continue
		}
		if err := l.transition(ctx, alert, models.StatusPendingConfirm, fx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	// 确认期结束且无人取消 → 自动发送
	toSend, err := l.alerts.FindDue(ctx, models.StatusPendingConfirm, models.DeadlineExpiryAt, now)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("%w: failed to find expired alerts: %w", ErrPersistence, err))
	}
	for _, alert := range toSend {
		if alert.Status != models.StatusPendingConfirm || alert.ExpiryAt > now {
			continue
		}
		if err := l.send(ctx, alert, now, fx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// Confirm 用户响应：isOkay=true 取消报警，false 立即发送
// 报警不存在或已是终态时不做任何事
func (l *Lifecycle) Confirm(ctx context.Context, alertID string, isOkay bool) error {
	var fx effects
	err := l.confirm(ctx, alertID, isOkay, &fx)
	l.flush(ctx, &fx)
	return err
}

func (l *Lifecycle) confirm(ctx context.Context, alertID string, isOkay bool, fx *effects) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	alert, err := l.alerts.FindByID(ctx, alertID)
	if err != nil {
		return fmt.Errorf("%w: failed to get alert %s: %w", ErrPersistence, alertID, err)
	}
	if alert == nil || alert.Status.Terminal() {
		l.logger.Debug("Confirm ignored",
			zap.String("alert_id", alertID),
			zap.Bool("found", alert != nil),
		)
		return nil
	}

	now := l.nowMs()
	if !isOkay {
		l.logger.Info("Emergency confirmed by user", zap.String("alert_id", alertID))
		return l.send(ctx, alert, now, fx)
	}

	if err := l.transition(ctx, alert, models.StatusCancelled, fx); err != nil {
		return err
	}
	deadline := l.gate.Raise(now + CancelCooldownMs)
	l.logger.Info("Alert cancelled by user",
		zap.String("alert_id", alertID),
		zap.Int64("suppressed_until", deadline),
	)
	return nil
}

// send 迁移到 SENT 并进入冷却，通知在释放锁之后发送
// 先持久化再发送：存储失败时不发送，下一次 Tick 会重试迁移，避免重复通知
func (l *Lifecycle) send(ctx context.Context, alert *models.Alert, now int64, fx *effects) error {
	if err := l.transition(ctx, alert, models.StatusSent, fx); err != nil {
		return err
	}
	deadline := l.gate.Raise(now + SentCooldownMs)
	l.logger.Info("Alert sent",
		zap.String("alert_id", alert.ID),
		zap.Int64("suppressed_until", deadline),
	)
	fx.dispatches = append(fx.dispatches, alert.Clone())
	return nil
}

func (l *Lifecycle) transition(ctx context.Context, alert *models.Alert, next models.AlertStatus, fx *effects) error {
	from := alert.Status
	if !from.CanTransitionTo(next) {
		return fmt.Errorf("%w: alert %s %s -> %s", ErrInvalidTransition, alert.ID, from, next)
	}

	updated := alert.Clone()
	updated.Status = next
	updated.UpdatedAt = l.now()
	if err := l.alerts.Update(ctx, updated); err != nil {
		return fmt.Errorf("%w: failed to update alert %s: %w", ErrPersistence, alert.ID, err)
	}
	*alert = *updated

	l.logger.Debug("Alert transitioned",
		zap.String("alert_id", alert.ID),
		zap.Stringer("from", from),
		zap.Stringer("to", next),
	)
	l.metrics.ObserveTransition(from, next)
	fx.changes = append(fx.changes, change{alert: alert.Clone(), from: from})
	return nil
}

// effects 持锁期间收集的副作用，释放锁后执行
type effects struct {
	changes    []change
	dispatches []*models.Alert
}

type change struct {
	alert *models.Alert
	from  models.AlertStatus
}

// flush 通知观察者并发送通知；多条通知并行发送，各自受分发超时限制
func (l *Lifecycle) flush(ctx context.Context, fx *effects) {
	for _, c := range fx.changes {
		l.notifyObservers(ctx, c.alert, c.from)
	}

	var wg sync.WaitGroup
	for _, alert := range fx.dispatches {
		wg.Add(1)
		go func(a *models.Alert) {
			defer wg.Done()
			l.dispatcher.Dispatch(ctx, a)
		}(alert)
	}
	wg.Wait()
}

func (l *Lifecycle) notifyObservers(ctx context.Context, alert *models.Alert, from models.AlertStatus) {
	for _, o := range l.observers {
		o.AlertChanged(ctx, alert.Clone(), from)
	}
}
