package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/models"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/repository"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// DefaultRecentKey 最近采样缓冲的 Redis key
const DefaultRecentKey = "fall:samples:recent"

// SampleBuffer 最近采样的 Redis 缓冲（List，最新在前，定长）
// 包装权威存储：写入先落库再写缓冲，读取优先缓冲，失败回退到权威存储
type SampleBuffer struct {
	inner    repository.SamplesRepo
	client   *redis.Client
	key      string
	capacity int
	logger   *zap.Logger
}

// NewSampleBuffer 创建采样缓冲
func NewSampleBuffer(inner repository.SamplesRepo, client *redis.Client, key string, capacity int, logger *zap.Logger) *SampleBuffer {
	if key == "" {
		key = DefaultRecentKey
	}
	if capacity <= 0 {
		capacity = repository.DefaultListLimit
	}
	return &SampleBuffer{
		inner:    inner,
		client:   client,
		key:      key,
		capacity: capacity,
		logger:   logger,
	}
}

// Append 写入权威存储并推入缓冲；缓冲写失败只记录日志
func (b *SampleBuffer) Append(ctx context.Context, sample models.Sample) error {
	if err := b.inner.Append(ctx, sample); err != nil {
		return err
	}

	if err := b.push(ctx, sample); err != nil {
		b.logger.Warn("Failed to push sample to recent buffer",
			zap.String("key", b.key),
			zap.Error(err),
		)
	}
	return nil
}

func (b *SampleBuffer) push(ctx context.Context, samples ...models.Sample) error {
	if len(samples) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(samples))
	for _, s := range samples {
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to marshal sample: %w", err)
		}
		values = append(values, data)
	}

	pipe := b.client.TxPipeline()
	pipe.LPush(ctx, b.key, values...)
	pipe.LTrim(ctx, b.key, 0, int64(b.capacity-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update recent buffer: %w", err)
	}
	return nil
}

// Recent 最近 n 条，最新在前
// 超出缓冲容量、缓冲为空或 Redis 出错时读取权威存储
func (b *SampleBuffer) Recent(ctx context.Context, n int) ([]models.Sample, error) {
	if n <= 0 {
		n = b.capacity
	}
	if n > b.capacity {
		return b.inner.Recent(ctx, n)
	}

	samples, err := b.readBuffer(ctx, n)
	if err != nil {
		b.logger.Warn("Recent buffer unavailable, reading from store",
			zap.String("key", b.key),
			zap.Error(err),
		)
		return b.inner.Recent(ctx, n)
	}
	if len(samples) == 0 {
		return b.inner.Recent(ctx, n)
	}
	return samples, nil
}

func (b *SampleBuffer) readBuffer(ctx context.Context, n int) ([]models.Sample, error) {
	raw, err := b.client.LRange(ctx, b.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read recent buffer: %w", err)
	}

	samples := make([]models.Sample, 0, len(raw))
	for _, item := range raw {
		var s models.Sample
		if err := json.Unmarshal([]byte(item), &s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal buffered sample: %w", err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// Warm 启动时用权威存储的最近采样重建缓冲
func (b *SampleBuffer) Warm(ctx context.Context) error {
	samples, err := b.inner.Recent(ctx, b.capacity)
	if err != nil {
		return fmt.Errorf("failed to load recent samples: %w", err)
	}
	if err := b.client.Del(ctx, b.key).Err(); err != nil {
		return fmt.Errorf("failed to reset recent buffer: %w", err)
	}

	// LPUSH 逐个插到表头，按从旧到新的顺序推入
	oldestFirst := make([]models.Sample, len(samples))
	for i, s := range samples {
		oldestFirst[len(samples)-1-i] = s
	}
	if err := b.push(ctx, oldestFirst...); err != nil {
		return err
	}

	b.logger.Info("Recent sample buffer warmed",
		zap.String("key", b.key),
		zap.Int("count", len(samples)),
	)
	return nil
}
