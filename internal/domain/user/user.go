package user

import (
	"database/sql"
	"time"
)

// User owns expenses and receives their renewal reminders.
type User struct {
	ID             int64
	Email          string
	Username       string
	CompanyName    sql.NullString
	TelegramChatID sql.NullInt64 // Set when the user linked a Telegram chat
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
