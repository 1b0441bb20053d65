// internal/domain/reminder/job.go
package reminder

import (
	"time"

	"github.com/google/uuid"
)

// DefaultLeadDays is how many days before the renewal date a reminder fires.
const DefaultLeadDays = 7

// JobState is the lifecycle state of a scheduled reminder job.
type JobState string

const (
	JobStatePending   JobState = "PENDING"
	JobStateFired     JobState = "FIRED"
	JobStateCancelled JobState = "CANCELLED"
)

// Job is a deferred reminder for one expense.
// Corresponds to a row of the 'reminder_jobs' table when the job log is enabled.
type Job struct {
	ID          uuid.UUID
	ExpenseID   int64
	RenewalDate time.Time // Renewal date the fire time was computed from
	FireAt      time.Time
	State       JobState
	Seq         int64 // Submit order; newer jobs always have a larger Seq
	CreatedAt   time.Time
}

// NewJob builds a pending job for expenseID firing at fireAt.
func NewJob(expenseID int64, renewalDate, fireAt time.Time) Job {
	return Job{
		ID:          uuid.New(),
		ExpenseID:   expenseID,
		RenewalDate: renewalDate,
		FireAt:      fireAt,
		State:       JobStatePending,
		CreatedAt:   time.Now(),
	}
}

// FireAt returns the start of the day leadDays before renewalDate in loc.
// Only the calendar fields of renewalDate are used, so every reminder for the
// same day fires at the same instant regardless of when the expense was saved.
func FireAt(renewalDate time.Time, leadDays int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := renewalDate.Date()
	return time.Date(y, m, d-leadDays, 0, 0, 0, 0, loc)
}
