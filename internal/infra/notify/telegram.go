package notify

import (
	"context"
	"errors"
	"fmt"

	"expense_reminder/internal/domain/notifier"

	"gopkg.in/telebot.v3"
)

// ErrNoTelegramChat is returned when the recipient never linked a Telegram chat.
var ErrNoTelegramChat = errors.New("recipient has no telegram chat id")

// telegramSender is the subset of *telebot.Bot used for delivery.
type telegramSender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// TelegramNotifier delivers reminders as direct Telegram messages.
type TelegramNotifier struct {
	bot telegramSender
}

// NewTelegramBot creates a send-only bot. Offline skips the getMe call so the
// process can start while Telegram is unreachable.
func NewTelegramBot(token string) (*telebot.Bot, error) {
	b, err := telebot.NewBot(telebot.Settings{
		Token:   token,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return b, nil
}

func NewTelegramNotifier(b *telebot.Bot) *TelegramNotifier {
	return &TelegramNotifier{bot: b}
}

func (n *TelegramNotifier) Send(ctx context.Context, msg notifier.Message) error {
	if msg.To.TelegramChatID == 0 {
		return fmt.Errorf("%w: %s", ErrNoTelegramChat, msg.To.Name)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	text := msg.Subject + "\n\n" + msg.TextBody
	recipient := &telebot.User{ID: msg.To.TelegramChatID}
	if _, err := n.bot.Send(recipient, text, &telebot.SendOptions{DisableWebPagePreview: true}); err != nil {
		return fmt.Errorf("failed to send telegram message to chat %d: %w", msg.To.TelegramChatID, err)
	}
	return nil
}
