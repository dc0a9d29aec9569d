package alerting

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/models"

	"go.uber.org/zap"
)

// DefaultDispatchTimeout 单次通知发送的超时时间
const DefaultDispatchTimeout = 10 * time.Second

// Dispatcher 通知分发：发送失败只记录日志，不影响状态迁移
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	metrics  Metrics
	logger   *zap.Logger
}

// NewDispatcher 创建分发器；notifier 为 nil 时只记录日志
func NewDispatcher(notifier Notifier, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}
	return &Dispatcher{
		notifier: notifier,
		timeout:  timeout,
		metrics:  nopMetrics{},
		logger:   logger,
	}
}

// Dispatch 发送报警通知并返回发送结果（调用方只用于记录）
// 使用脱离调用方取消的上下文，请求结束不会打断发送
func (d *Dispatcher) Dispatch(ctx context.Context, alert *models.Alert) (ok bool) {
	if d.notifier == nil {
		d.logger.Warn("No notifier configured, alert not delivered",
			zap.String("alert_id", alert.ID),
		)
		d.metrics.ObserveDispatch(false)
		return false
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Notifier panicked",
				zap.String("alert_id", alert.ID),
				zap.Any("panic", r),
			)
			ok = false
		}
		d.metrics.ObserveDispatch(ok)
	}()

	ok = d.notifier.Send(sendCtx, FormatMessage(alert))
	if ok {
		d.logger.Info("Alert notification sent",
			zap.String("alert_id", alert.ID),
		)
	} else {
		d.logger.Warn("Alert notification failed",
			zap.String("alert_id", alert.ID),
		)
	}
	return ok
}

// FormatMessage 通知正文
func FormatMessage(alert *models.Alert) string {
	var b strings.Builder
	b.WriteString("🚨 Fall detected\n")
	fmt.Fprintf(&b, "Time: %d\n", alert.CreatedTimestamp)
	fmt.Fprintf(&b, "Reason: %s\n", alert.Reason)

	if alert.Lat == nil || alert.Lng == nil {
		b.WriteString("Location: unknown")
		return b.String()
	}

	lat := strconv.FormatFloat(*alert.Lat, 'f', -1, 64)
	lng := strconv.FormatFloat(*alert.Lng, 'f', -1, 64)
	fmt.Fprintf(&b, "Location: %s, %s\n", lat, lng)
	fmt.Fprintf(&b, "Map: https://maps.google.com/?q=%s,%s", lat, lng)
	return b.String()
}
