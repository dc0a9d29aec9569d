// Package stream 将报警状态变化发布到 Redis Streams，供下游服务消费
package stream

import (
	"context"
	"time"

	rediscommon "github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/common/redis"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	// DefaultAlertStream 报警事件流
	DefaultAlertStream = "fall:alert:stream"
	// DefaultMaxLen 流的近似最大长度
	DefaultMaxLen int64 = 10_000

	publishTimeout = 2 * time.Second
)

// 事件类型
const (
	EventCreated             = "created"
	EventConfirmWindowOpened = "confirm_window_opened"
	EventSent                = "sent"
	EventCancelled           = "cancelled"
)

// AlertEvent 流消息 data 字段的内容
type AlertEvent struct {
	Event           string             `json:"event"`
	AlertID         string             `json:"alert_id"`
	Status          models.AlertStatus `json:"status"`
	PreviousStatus  string             `json:"previous_status,omitempty"`
	Timestamp       int64              `json:"timestamp"`
	Reason          string             `json:"reason"`
	Lat             *float64           `json:"lat,omitempty"`
	Lng             *float64           `json:"lng,omitempty"`
	ConfirmStartsAt int64              `json:"confirm_starts_at"`
	ExpiryAt        int64              `json:"expiry_at"`
}

// AlertPublisher 实现 alerting.Observer
type AlertPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
	logger *zap.Logger
}

// NewAlertPublisher 创建发布器
func NewAlertPublisher(client *redis.Client, stream string, logger *zap.Logger) *AlertPublisher {
	if stream == "" {
		stream = DefaultAlertStream
	}
	return &AlertPublisher{
		client: client,
		stream: stream,
		maxLen: DefaultMaxLen,
		logger: logger,
	}
}

// AlertChanged 发布失败只记录日志，不影响状态迁移
func (p *AlertPublisher) AlertChanged(ctx context.Context, alert *models.Alert, from models.AlertStatus) {
	event := NewAlertEvent(alert, from)

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	streamID, err := rediscommon.PublishJSONToStream(pubCtx, p.client, p.stream, p.maxLen, event)
	if err != nil {
		p.logger.Warn("Failed to publish alert event",
			zap.String("stream", p.stream),
			zap.String("alert_id", alert.ID),
			zap.String("event", event.Event),
			zap.Error(err),
		)
		return
	}

	p.logger.Debug("Published alert event",
		zap.String("stream", p.stream),
		zap.String("stream_id", streamID),
		zap.String("alert_id", alert.ID),
		zap.String("event", event.Event),
	)
}

// NewAlertEvent 由报警当前状态推导事件类型
func NewAlertEvent(alert *models.Alert, from models.AlertStatus) AlertEvent {
	e := AlertEvent{
		Event:           eventName(alert.Status),
		AlertID:         alert.ID,
		Status:          alert.Status,
		Timestamp:       alert.CreatedTimestamp,
		Reason:          alert.Reason,
		Lat:             alert.Lat,
		Lng:             alert.Lng,
		ConfirmStartsAt: alert.ConfirmStartsAt,
		ExpiryAt:        alert.ExpiryAt,
	}
	if from.Valid() {
		e.PreviousStatus = from.String()
	}
	return e
}

func eventName(status models.AlertStatus) string {
	switch status {
	case models.StatusPendingConfirm:
		return EventConfirmWindowOpened
	case models.StatusSent:
		return EventSent
	case models.StatusCancelled:
		return EventCancelled
	default:
		return EventCreated
	}
}
