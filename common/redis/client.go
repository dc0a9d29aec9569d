package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/common/config"

	"github.com/go-redis/redis/v8"
)

// Client Redis客户端类型别名
type Client = redis.Client

// 采样缓冲与事件流都在请求路径上，读写超时取短值
const (
	dialTimeout = 3 * time.Second
	ioTimeout   = 1 * time.Second
	pingTimeout = 5 * time.Second
)

// Connect 创建Redis客户端并 ping 确认可用；失败时关闭客户端
func Connect(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// Close 关闭Redis连接
func Close(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
