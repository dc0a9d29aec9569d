// Package notifier 报警通知通道：Telegram、Twilio 短信
package notifier

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultTelegramAPIBase Telegram Bot API 地址
const DefaultTelegramAPIBase = "https://api.telegram.org"

const redacted = "***REDACTED***"

// TelegramConfig Telegram 配置
type TelegramConfig struct {
	BotToken   string
	ChatID     string
	APIBase    string
	RatePerSec float64 // 每秒最多发送条数，<=0 不限流
}

// Configured token 与 chat_id 都已配置
func (c TelegramConfig) Configured() bool {
	return strings.TrimSpace(c.BotToken) != "" && strings.TrimSpace(c.ChatID) != ""
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// TelegramNotifier 通过 Bot API sendMessage 发送通知
type TelegramNotifier struct {
	httpClient *resty.Client
	config     TelegramConfig
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewTelegramNotifier 创建 Telegram 通知
func NewTelegramNotifier(cfg TelegramConfig, logger *zap.Logger) *TelegramNotifier {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultTelegramAPIBase
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIBase, "/")).
		SetTimeout(10 * time.Second).
		SetHeader("Accept", "application/json")

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	}

	return &TelegramNotifier{
		httpClient: client,
		config:     cfg,
		limiter:    limiter,
		logger:     logger,
	}
}

// Send 发送消息；未配置、限流等待被取消或请求失败时返回 false
func (n *TelegramNotifier) Send(ctx context.Context, text string) bool {
	if strings.TrimSpace(text) == "" {
		n.logger.Warn("Telegram message text is empty")
		return false
	}
	if !n.config.Configured() {
		n.logger.Warn("Telegram not configured, skipping",
			zap.Bool("bot_token_set", strings.TrimSpace(n.config.BotToken) != ""),
			zap.Bool("chat_id_set", strings.TrimSpace(n.config.ChatID) != ""),
		)
		return false
	}

	if err := n.limiter.Wait(ctx); err != nil {
		n.logger.Warn("Telegram send rate limited", zap.Error(err))
		return false
	}

	var result telegramResponse
	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id":    n.config.ChatID,
			"text":       text,
			"parse_mode": "HTML",
		}).
		SetResult(&result).
		SetError(&result).
		Post("/bot" + n.config.BotToken + "/sendMessage")
	if err != nil {
		n.logger.Error("Telegram API call failed",
			zap.String("error", n.redact(err.Error())),
		)
		return false
	}

	if !resp.IsSuccess() {
		n.logger.Error("Telegram API returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("description", n.redact(result.Description)),
		)
		return false
	}

	n.logger.Info("Telegram message sent",
		zap.String("chat_id", n.config.ChatID),
	)
	return true
}

func (n *TelegramNotifier) redact(s string) string {
	if n.config.BotToken == "" {
		return s
	}
	return strings.ReplaceAll(s, n.config.BotToken, redacted)
}
