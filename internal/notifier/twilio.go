package notifier

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultTwilioAPIBase Twilio REST API 地址
const DefaultTwilioAPIBase = "https://api.twilio.com"

// TwilioConfig 短信配置
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	To         string
	APIBase    string
}

// Configured 账号、号码均已配置
func (c TwilioConfig) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.From != "" && c.To != ""
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// TwilioNotifier 通过 Twilio Messages API 发送短信
type TwilioNotifier struct {
	httpClient *resty.Client
	config     TwilioConfig
	logger     *zap.Logger
}

// NewTwilioNotifier 创建短信通知
func NewTwilioNotifier(cfg TwilioConfig, logger *zap.Logger) *TwilioNotifier {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultTwilioAPIBase
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIBase, "/")).
		SetTimeout(10*time.Second).
		SetBasicAuth(cfg.AccountSID, cfg.AuthToken).
		SetHeader("Accept", "application/json")

	return &TwilioNotifier{
		httpClient: client,
		config:     cfg,
		logger:     logger,
	}
}

// Send 发送短信；配置缺失或请求失败返回 false
func (n *TwilioNotifier) Send(ctx context.Context, text string) bool {
	if !n.config.Configured() {
		n.logger.Warn("Twilio not configured, skipping SMS")
		return false
	}

	var apiErr twilioError
	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"To":   n.config.To,
			"From": n.config.From,
			"Body": text,
		}).
		SetError(&apiErr).
		Post("/2010-04-01/Accounts/" + n.config.AccountSID + "/Messages.json")
	if err != nil {
		n.logger.Error("Twilio API call failed", zap.Error(err))
		return false
	}

	if !resp.IsSuccess() {
		n.logger.Error("Twilio API returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.Int("code", apiErr.Code),
			zap.String("message", apiErr.Message),
		)
		return false
	}

	n.logger.Info("SMS sent", zap.String("to", n.config.To))
	return true
}
