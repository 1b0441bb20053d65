package notify

import (
	"context"

	"expense_reminder/internal/domain/notifier"

	"github.com/sirupsen/logrus"
)

// ConsoleNotifier writes reminders to the log instead of delivering them.
// It is the default for development.
type ConsoleNotifier struct {
	logger *logrus.Entry
}

func NewConsoleNotifier(logger *logrus.Entry) *ConsoleNotifier {
	return &ConsoleNotifier{logger: logger}
}

func (n *ConsoleNotifier) Send(_ context.Context, msg notifier.Message) error {
	n.logger.WithFields(logrus.Fields{
		"to":      msg.To.Email,
		"subject": msg.Subject,
	}).Info(msg.TextBody)
	return nil
}
