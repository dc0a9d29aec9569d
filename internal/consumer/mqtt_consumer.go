// Package consumer 采样输入：MQTT 订阅与 Redis 最近采样缓冲
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqttcommon "github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/common/mqtt"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/alerting"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/models"

	"go.uber.org/zap"
)

// DefaultSampleTopic 采样上报主题：fall/{device}/samples
const DefaultSampleTopic = "fall/+/samples"

// defaultHandleTimeout 单条消息的处理超时
const defaultHandleTimeout = 15 * time.Second

// Ingester 采样入口（由 FallService 实现）
type Ingester interface {
	Ingest(ctx context.Context, sample models.Sample) (*alerting.ProcessResult, error)
}

// MQTTConsumer MQTT 采样消费者
type MQTTConsumer struct {
	mqttClient *mqttcommon.Client
	topic      string
	qos        byte
	ingester   Ingester
	now        func() time.Time
	logger     *zap.Logger
}

// NewMQTTConsumer 创建 MQTT 消费者
func NewMQTTConsumer(mqttClient *mqttcommon.Client, topic string, qos byte, ingester Ingester, logger *zap.Logger) *MQTTConsumer {
	if topic == "" {
		topic = DefaultSampleTopic
	}
	return &MQTTConsumer{
		mqttClient: mqttClient,
		topic:      topic,
		qos:        qos,
		ingester:   ingester,
		now:        time.Now,
		logger:     logger,
	}
}

// Start 订阅主题并阻塞直到 ctx 取消
func (c *MQTTConsumer) Start(ctx context.Context) error {
	if err := c.mqttClient.Subscribe(c.topic, c.qos, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to sample topic: %w", err)
	}

	c.logger.Info("MQTT consumer started",
		zap.String("topic", c.topic),
	)

	<-ctx.Done()
	return nil
}

// Stop 取消订阅
func (c *MQTTConsumer) Stop() {
	if err := c.mqttClient.Unsubscribe(c.topic); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}
	c.logger.Info("MQTT consumer stopped")
}

// handleMessage 解析采样并交给 Ingester；格式错误的消息丢弃
func (c *MQTTConsumer) handleMessage(topic string, payload []byte) error {
	c.logger.Debug("Received MQTT message",
		zap.String("topic", topic),
		zap.Int("payload_size", len(payload)),
	)

	var p models.SamplePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("failed to unmarshal sample: %w", err)
	}
	sample := p.ToSample(c.now().UnixMilli())

	ctx, cancel := context.WithTimeout(context.Background(), defaultHandleTimeout)
	defer cancel()

	result, err := c.ingester.Ingest(ctx, sample)
	if err != nil {
		return fmt.Errorf("failed to ingest sample: %w", err)
	}
	if result != nil {
		c.logger.Info("Alert created from MQTT sample",
			zap.String("topic", topic),
			zap.String("alert_id", result.AlertID),
			zap.Int64("confirm_starts_at", result.ConfirmStartsAt),
		)
	}
	return nil
}
