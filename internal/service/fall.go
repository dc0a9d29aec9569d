// Package service 跌倒报警服务：组装存储、引擎、调度器、MQTT 与 HTTP
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/common/database"
	mqttcommon "github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/common/mqtt"
	rediscommon "github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/common/redis"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/alerting"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/config"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/consumer"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/evaluator"
	httpapi "github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/http"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/metrics"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/models"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/notifier"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/predictor"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/repository"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/scheduler"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/stream"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// FallService 跌倒报警服务（整合各层）
type FallService struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqttcommon.Client
	now         func() time.Time
	logger      *zap.Logger

	// 各层组件
	samples      repository.SamplesRepo
	alerts       repository.AlertsRepo
	buffer       *consumer.SampleBuffer
	metrics      *metrics.Metrics
	engine       *alerting.Engine
	scheduler    *scheduler.Scheduler
	mqttConsumer *consumer.MQTTConsumer
	httpServer   *http.Server
}

// Components 可替换的依赖（测试或自定义部署）
type Components struct {
	Samples   repository.SamplesRepo
	Alerts    repository.AlertsRepo
	Notifier  alerting.Notifier
	Source    predictor.DescriptorSource
	Observers []alerting.Observer
	Clock     func() time.Time
}

// NewFallService 按配置连接 PostgreSQL / Redis / MQTT 并组装服务
func NewFallService(cfg *config.Config, logger *zap.Logger) (*FallService, error) {
	var (
		db          *sql.DB
		redisClient *redis.Client
		comps       Components
		buffer      *consumer.SampleBuffer
		err         error
	)

	// 1. 数据库（未启用时使用内存仓库）
	if cfg.Database.Enabled {
		db, err = database.NewPostgresDB(context.Background(), &cfg.Database.DatabaseConfig)
		if err != nil {
			return nil, err
		}
		comps.Samples = repository.NewPostgresSamplesRepo(db, logger)
		comps.Alerts = repository.NewPostgresAlertsRepo(db, logger)
	} else {
		logger.Warn("Database disabled, using in-memory repositories")
		comps.Samples = repository.NewMemorySamplesRepo(0)
		comps.Alerts = repository.NewMemoryAlertsRepo()
	}

	// 2. Redis：最近采样缓冲 + 报警事件流
	if cfg.Redis.Enabled {
		redisClient, err = rediscommon.Connect(context.Background(), &cfg.Redis.RedisConfig)
		if err != nil {
			_ = database.Close(db)
			return nil, err
		}
		buffer = consumer.NewSampleBuffer(comps.Samples, redisClient, cfg.Redis.RecentKey, cfg.Alert.HistorySize, logger)
		comps.Samples = buffer
		comps.Observers = append(comps.Observers, stream.NewAlertPublisher(redisClient, cfg.Redis.AlertStream, logger))
	}

	// 3. 通知通道与模型
	comps.Notifier = notifier.Build(
		notifier.TelegramConfig{
			BotToken:   cfg.Notify.Telegram.BotToken,
			ChatID:     cfg.Notify.Telegram.ChatID,
			APIBase:    cfg.Notify.Telegram.APIBase,
			RatePerSec: cfg.Notify.Telegram.RatePerSec,
		},
		notifier.TwilioConfig{
			AccountSID: cfg.Notify.Twilio.AccountSID,
			AuthToken:  cfg.Notify.Twilio.AuthToken,
			From:       cfg.Notify.Twilio.From,
			To:         cfg.Notify.Twilio.To,
			APIBase:    cfg.Notify.Twilio.APIBase,
		},
		logger,
	)
	comps.Source = predictor.FileSource{Path: cfg.Alert.ModelPath}

	s := New(cfg, comps, logger)
	s.db = db
	s.redisClient = redisClient
	s.buffer = buffer

	// 4. MQTT 采样订阅
	if cfg.MQTT.Enabled {
		mqttClient, err := mqttcommon.NewClient(&cfg.MQTT.MQTTConfig, logger)
		if err != nil {
			_ = s.Stop()
			return nil, err
		}
		s.mqttClient = mqttClient
		s.mqttConsumer = consumer.NewMQTTConsumer(mqttClient, cfg.MQTT.SampleTopic, cfg.MQTT.QoS, s, logger)
	}

	return s, nil
}

// New 用给定组件组装服务（不建立外部连接）
func New(cfg *config.Config, comps Components, logger *zap.Logger) *FallService {
	m := metrics.NewMetrics()

	gate := alerting.NewGate()
	dispatcher := alerting.NewDispatcher(comps.Notifier, cfg.Notify.Timeout, logger)
	opts := []alerting.Option{alerting.WithMetrics(m)}
	for _, o := range comps.Observers {
		opts = append(opts, alerting.WithObserver(o))
	}
	if comps.Clock != nil {
		opts = append(opts, alerting.WithClock(comps.Clock))
	}
	lifecycle := alerting.NewLifecycle(comps.Alerts, gate, dispatcher, logger, opts...)

	engine := alerting.NewEngine(
		comps.Samples,
		loadPredictor(comps.Source, logger),
		lifecycle,
		evaluator.Timing{SilentMs: cfg.Alert.SilentMs, ModalMs: cfg.Alert.ModalMs},
		cfg.Alert.HistorySize,
		logger,
	)

	now := comps.Clock
	if now == nil {
		now = time.Now
	}

	s := &FallService{
		config:    cfg,
		now:       now,
		logger:    logger,
		samples:   comps.Samples,
		alerts:    comps.Alerts,
		metrics:   m,
		engine:    engine,
		scheduler: scheduler.NewScheduler(engine, cfg.Alert.SchedulerInterval, logger),
	}

	handler := httpapi.NewFallHandler(s, logger)
	s.httpServer = &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      httpapi.NewRouter(handler, m, cfg.HTTP.CORSAllowOrigins),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// loadPredictor 模型缺失或无效时使用启发式评分
func loadPredictor(source predictor.DescriptorSource, logger *zap.Logger) *predictor.Predictor {
	if source == nil {
		return predictor.New(nil)
	}
	descriptor, err := source.Load()
	if err != nil {
		logger.Warn("Failed to load model, using heuristic scoring", zap.Error(err))
		return predictor.New(nil)
	}
	if descriptor == nil {
		logger.Info("No model descriptor found, using heuristic scoring")
		return predictor.New(nil)
	}

	p := predictor.New(descriptor)
	logger.Info("Loaded logistic regression model",
		zap.Float64s("weights", descriptor.Weights[:]),
		zap.Float64("bias", descriptor.Bias),
		zap.Float64("threshold", p.Threshold()),
	)
	return p
}

// Handler HTTP 路由
func (s *FallService) Handler() http.Handler {
	return s.httpServer.Handler
}

// Ingest 保存采样并分类；保存失败时不分类
func (s *FallService) Ingest(ctx context.Context, sample models.Sample) (*alerting.ProcessResult, error) {
	if err := s.samples.Append(ctx, sample); err != nil {
		return nil, fmt.Errorf("%w: failed to save sample: %w", alerting.ErrPersistence, err)
	}
	return s.engine.Process(ctx, sample)
}

// ConfirmAlert 用户确认
func (s *FallService) ConfirmAlert(ctx context.Context, alertID string, isOkay bool) error {
	return s.engine.ConfirmAlert(ctx, alertID, isOkay)
}

// RecentAlerts 最近报警
func (s *FallService) RecentAlerts(ctx context.Context, limit int) ([]*models.Alert, error) {
	return s.alerts.ListRecent(ctx, limit)
}

// RecentSamples 最近采样
func (s *FallService) RecentSamples(ctx context.Context, limit int) ([]models.Sample, error) {
	return s.samples.Recent(ctx, limit)
}

// Tick 推进一次报警生命周期
func (s *FallService) Tick(ctx context.Context) error {
	return s.engine.Tick(ctx, s.now().UnixMilli())
}

// Start 启动调度器、MQTT 订阅与 HTTP 服务，阻塞直到 ctx 取消
func (s *FallService) Start(ctx context.Context) error {
	s.logger.Info("Starting fall service",
		zap.String("http_addr", s.config.HTTP.Addr),
		zap.Bool("db_enabled", s.db != nil),
		zap.Bool("redis_enabled", s.redisClient != nil),
		zap.Bool("mqtt_enabled", s.mqttConsumer != nil),
	)

	if s.buffer != nil {
		if err := s.buffer.Warm(ctx); err != nil {
			s.logger.Warn("Failed to warm recent sample buffer", zap.Error(err))
		}
	}

	go func() {
		_ = s.scheduler.Start(ctx)
	}()

	if s.mqttConsumer != nil {
		go func() {
			if err := s.mqttConsumer.Start(ctx); err != nil {
				s.logger.Error("MQTT consumer failed", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP shutdown error", zap.Error(err))
	}
	return nil
}

// Stop 关闭外部连接
func (s *FallService) Stop() error {
	s.logger.Info("Stopping fall service")

	if s.mqttConsumer != nil {
		s.mqttConsumer.Stop()
	}
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}

	if err := rediscommon.Close(s.redisClient); err != nil {
		s.logger.Error("Failed to close redis",
			zap.Error(err),
		)
	}

	if err := database.Close(s.db); err != nil {
		s.logger.Error("Failed to close database",
			zap.Error(err),
		)
	}

	return nil
}
