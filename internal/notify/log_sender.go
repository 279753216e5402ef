package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSender satisfies both sender interfaces by writing the message to the log.
// Used in development when no provider is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender builds a sender that logs at info level.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (l *LogSender) SendEmail(_ context.Context, toEmail, _ string, subject, text, _ string) error {
	l.logger.Info("email (not sent)", zap.String("to", toEmail), zap.String("subject", subject), zap.String("text", text))
	return nil
}

func (l *LogSender) SendSMS(_ context.Context, to, body string) error {
	l.logger.Info("sms (not sent)", zap.String("to", to), zap.String("body", body))
	return nil
}
