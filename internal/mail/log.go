package mail

import (
	"context"

	"github.com/dtroode/sessionguard/internal/logger"
	"github.com/dtroode/sessionguard/internal/model"
)

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger *logger.Logger
}

func NewLogSender(logger *logger.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg model.Message) error {
	s.logger.Info("Mail: message not delivered, logging only",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body)
	return nil
}
