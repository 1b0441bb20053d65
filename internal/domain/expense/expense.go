// internal/domain/expense/expense.go
package expense

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Expense represents a recurring business cost that renews on RenewalDate.
// Corresponds to the 'expenses' table.
type Expense struct {
	ID           int64
	UserID       int64 // Foreign Key to users.id
	Name         string
	Category     string
	Amount       decimal.Decimal
	RenewalDate  time.Time // Calendar date, time-of-day is always midnight
	Description  sql.NullString
	ReminderSent bool // True once a reminder was delivered for the current RenewalDate
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DateOnly truncates t to midnight in t's own location.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDate reports whether a and b fall on the same calendar date,
// comparing the year/month/day fields as stored.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
