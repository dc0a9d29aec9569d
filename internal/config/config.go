package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/common/config"

	"github.com/joho/godotenv"
)

// Config 跌倒报警服务配置
type Config struct {
	Database struct {
		Enabled bool
		config.DatabaseConfig
	}

	Redis struct {
		Enabled bool
		config.RedisConfig
		RecentKey   string // 最近采样缓冲 key
		AlertStream string // 报警事件流
	}

	MQTT struct {
		Enabled bool
		config.MQTTConfig
		SampleTopic string
	}

	// 报警流程配置
	Alert struct {
		SilentMs          int64         // 默认静默期（毫秒）
		ModalMs           int64         // 默认确认期（毫秒）
		SchedulerInterval time.Duration // 生命周期推进间隔
		HistorySize       int           // 跌落判别读取的最近采样数
		ModelPath         string        // 逻辑回归描述符文件
	}

	Notify struct {
		Timeout time.Duration

		Telegram struct {
			BotToken   string
			ChatID     string
			APIBase    string
			RatePerSec float64
		}

		Twilio struct {
			AccountSID string
			AuthToken  string
			From       string
			To         string
			APIBase    string
		}
	}

	HTTP struct {
		Addr             string
		CORSAllowOrigins []string
	}

	Log struct {
		Level  string
		Format string
	}

	ServiceName string
}

// Load 加载配置（先读取 .env，环境变量优先）
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg := &Config{}

	cfg.Database.Enabled = getEnvBool("DB_ENABLED", true)
	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.Database = "fall_alerts"
	cfg.Database.SSLMode = "disable"
	cfg.Database.MaxConns = 10
	cfg.Database.MaxIdle = 5
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis.Enabled = getEnvBool("REDIS_ENABLED", true)
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.RedisConfig.LoadFromEnv("REDIS")
	cfg.Redis.RecentKey = getEnv("REDIS_RECENT_KEY", "fall:samples:recent")
	cfg.Redis.AlertStream = getEnv("REDIS_ALERT_STREAM", "fall:alert:stream")

	cfg.MQTT.Enabled = getEnvBool("MQTT_ENABLED", false)
	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "wisefido-fall"
	cfg.MQTT.QoS = 1
	cfg.MQTT.MQTTConfig.LoadFromEnv("MQTT")
	cfg.MQTT.SampleTopic = getEnv("MQTT_SAMPLE_TOPIC", "fall/+/samples")

	cfg.Alert.SilentMs = getEnvInt64("ALERT_CONFIRM_SILENT_MS", 10_000)
	cfg.Alert.ModalMs = getEnvInt64("ALERT_CONFIRM_MODAL_MS", 10_000)
	cfg.Alert.SchedulerInterval = time.Duration(getEnvInt64("SCHEDULER_INTERVAL_MS", 1_000)) * time.Millisecond
	cfg.Alert.HistorySize = int(getEnvInt64("HISTORY_SIZE", 30))
	cfg.Alert.ModelPath = getEnv("MODEL_PATH", "model/fall_model.json")

	cfg.Notify.Timeout = time.Duration(getEnvInt64("NOTIFY_TIMEOUT_MS", 10_000)) * time.Millisecond
	cfg.Notify.Telegram.BotToken = getEnv("TELEGRAM_BOT_TOKEN", "")
	cfg.Notify.Telegram.ChatID = getEnv("TELEGRAM_CHAT_ID", "")
	cfg.Notify.Telegram.APIBase = getEnv("TELEGRAM_API_BASE", "https://api.telegram.org")
	cfg.Notify.Telegram.RatePerSec = getEnvFloat("TELEGRAM_RATE_PER_SEC", 1)
	cfg.Notify.Twilio.AccountSID = getEnv("TWILIO_ACCOUNT_SID", "")
	cfg.Notify.Twilio.AuthToken = getEnv("TWILIO_AUTH_TOKEN", "")
	cfg.Notify.Twilio.From = getEnv("TWILIO_FROM", "")
	cfg.Notify.Twilio.To = getEnv("ALERT_TO", "")
	cfg.Notify.Twilio.APIBase = getEnv("TWILIO_API_BASE", "https://api.twilio.com")

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.HTTP.CORSAllowOrigins = splitList(getEnv("CORS_ALLOW_ORIGINS", "*"))

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")
	cfg.ServiceName = getEnv("SERVICE_NAME", "wisefido-fall")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if v, err := strconv.ParseInt(os.Getenv(key), 10, 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
