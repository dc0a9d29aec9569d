package notifier

import (
	"context"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/alerting"

	"go.uber.org/zap"
)

// Multi 依次发送到所有通道，任一成功即视为成功
type Multi []alerting.Notifier

func (m Multi) Send(ctx context.Context, text string) bool {
	delivered := false
	for _, n := range m {
		if n.Send(ctx, text) {
			delivered = true
		}
	}
	return delivered
}

// Nop 未配置任何通道时使用，只记录日志
type Nop struct {
	Logger *zap.Logger
}

func (n Nop) Send(_ context.Context, text string) bool {
	if n.Logger != nil {
		n.Logger.Warn("No notification channel configured, alert logged only",
			zap.String("text", text),
		)
	}
	return false
}

// Build 按配置组装通知通道；都未配置时返回 Nop
func Build(telegram TelegramConfig, twilio TwilioConfig, logger *zap.Logger) alerting.Notifier {
	var channels Multi
	if telegram.Configured() {
		channels = append(channels, NewTelegramNotifier(telegram, logger.Named("telegram")))
	}
	if twilio.Configured() {
		channels = append(channels, NewTwilioNotifier(twilio, logger.Named("twilio")))
	}

	switch len(channels) {
	case 0:
		logger.Warn("No notification channel configured")
		return Nop{Logger: logger}
	case 1:
		return channels[0]
	default:
		return channels
	}
}
