package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/common/logger"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/config"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/service"

	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.ServiceName)
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	// 3. 创建服务
	fallService, err := service.NewFallService(cfg, log)
	if err != nil {
		log.Fatal("Failed to create fall service",
			zap.Error(err),
		)
	}
	defer fallService.Stop()

	// 4. 创建上下文（支持优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. 启动服务（在 goroutine 中）
	serviceErrChan := make(chan error, 1)
	serviceDone := make(chan struct{})
	go func() {
		defer close(serviceDone)
		if err := fallService.Start(ctx); err != nil {
			serviceErrChan <- err
		}
	}()

	// 6. 等待信号（优雅关闭）
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down",
			zap.String("signal", sig.String()),
		)
		cancel()
		<-serviceDone
	case err := <-serviceErrChan:
		log.Error("Service error",
			zap.Error(err),
		)
	}

	log.Info("Fall service stopped")
}
