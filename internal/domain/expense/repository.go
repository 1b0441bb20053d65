// internal/domain/expense/repository.go
package expense

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when an expense does not exist.
var ErrNotFound = errors.New("expense not found")

// Repository defines the operations for persisting and retrieving Expense entities.
type Repository interface {
	Create(ctx context.Context, e *Expense) error
	GetByID(ctx context.Context, id int64) (*Expense, error)
	// UpdateDetails changes name, category, amount and description. It never touches
	// RenewalDate or ReminderSent.
	UpdateDetails(ctx context.Context, e *Expense) error
	// UpdateRenewalDate moves the renewal date and resets ReminderSent to false.
	UpdateRenewalDate(ctx context.Context, id int64, renewalDate time.Time) (*Expense, error)
	Delete(ctx context.Context, id int64) error

	// SetReminderSent flags the expense as notified only if its renewal date still equals
	// expectedRenewal. It returns false when the update was rejected as stale.
	SetReminderSent(ctx context.Context, id int64, expectedRenewal time.Time) (bool, error)
	// ListAwaitingReminder returns expenses with ReminderSent = false and a renewal date
	// strictly after renewalAfter.
	ListAwaitingReminder(ctx context.Context, renewalAfter time.Time) ([]*Expense, error)
}
