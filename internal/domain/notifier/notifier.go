package notifier

import "context"

// Recipient identifies who a message is delivered to. Each Notifier picks the
// address field it understands.
type Recipient struct {
	Name           string
	Email          string
	TelegramChatID int64
}

// Message is a rendered reminder ready for delivery.
type Message struct {
	To       Recipient
	Subject  string
	HTMLBody string
	TextBody string
}

// Notifier defines an interface for delivering messages.
// This keeps the reminder logic independent of the transport (console, SMTP, webhook, Telegram).
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
