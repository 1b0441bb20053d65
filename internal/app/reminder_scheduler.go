// internal/app/reminder_scheduler.go
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"expense_reminder/internal/domain/expense"
	"expense_reminder/internal/domain/reminder"

	"github.com/sirupsen/logrus"
)

// JobExecutor is the deferred job executor the scheduler submits to.
type JobExecutor interface {
	Submit(ctx context.Context, job reminder.Job) reminder.Job
	Cancel(ctx context.Context, expenseID int64) bool
	Live(expenseID int64) (reminder.Job, bool)
}

// ReminderScheduler turns renewal dates into reminder jobs. It keeps at most
// one pending job per expense.
type ReminderScheduler struct {
	// mu serialises submits so a reconcile pass that re-read an expense cannot
	// interleave with a concurrent Schedule or Cancel for it.
	mu sync.Mutex

	executor    JobExecutor
	expenseRepo expense.Repository
	leadDays    int
	location    *time.Location
	now         func() time.Time
	logger      *logrus.Entry
}

func NewReminderScheduler(
	executor JobExecutor,
	er expense.Repository,
	leadDays int,
	location *time.Location,
	logger *logrus.Entry,
) *ReminderScheduler {
	if leadDays <= 0 {
		leadDays = reminder.DefaultLeadDays
	}
	if location == nil {
		location = time.Local
	}
	return &ReminderScheduler{
		executor:    executor,
		expenseRepo: er,
		leadDays:    leadDays,
		location:    location,
		now:         time.Now,
		logger:      logger,
	}
}

// SetClock replaces time.Now.
func (s *ReminderScheduler) SetClock(now func() time.Time) {
	s.now = now
}

// FireAt returns when a reminder for renewalDate fires.
func (s *ReminderScheduler) FireAt(renewalDate time.Time) time.Time {
	return reminder.FireAt(renewalDate, s.leadDays, s.location)
}

// Schedule submits a reminder job for the expense. When the fire time is not
// strictly in the future no job is created and any job left over from an
// earlier renewal date is cancelled. It reports whether a job was scheduled.
func (s *ReminderScheduler) Schedule(ctx context.Context, expenseID int64, renewalDate time.Time) (reminder.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedule(ctx, expenseID, renewalDate)
}

func (s *ReminderScheduler) schedule(ctx context.Context, expenseID int64, renewalDate time.Time) (reminder.Job, bool) {
	fireAt := s.FireAt(renewalDate)
	log := s.logger.WithFields(logrus.Fields{
		"expense_id":   expenseID,
		"renewal_date": renewalDate.Format("2006-01-02"),
		"fire_at":      fireAt.Format(time.RFC3339),
	})

	if !fireAt.After(s.now()) {
		if s.executor.Cancel(ctx, expenseID) {
			log.Info("Cancelled reminder for previous renewal date")
		}
		log.Info("Reminder window already passed, no reminder scheduled")
		return reminder.Job{}, false
	}

	job := s.executor.Submit(ctx, reminder.NewJob(expenseID, expense.DateOnly(renewalDate), fireAt))
	log.WithField("job_id", job.ID).Info("Reminder scheduled")
	return job, true
}

// Cancel drops the pending reminder of the expense, if any.
func (s *ReminderScheduler) Cancel(ctx context.Context, expenseID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.executor.Cancel(ctx, expenseID) {
		s.logger.WithField("expense_id", expenseID).Info("Reminder cancelled")
	}
}

// Reconcile schedules reminders for expenses that await one but have no
// matching pending job, e.g. rows written while this process was down.
// It returns how many jobs were (re)scheduled.
func (s *ReminderScheduler) Reconcile(ctx context.Context) (int, error) {
	now := s.now().In(s.location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	// fire_at > now holds exactly for renewal dates after today + leadDays.
	renewalAfter := today.AddDate(0, 0, s.leadDays)

	expenses, err := s.expenseRepo.ListAwaitingReminder(ctx, renewalAfter)
	if err != nil {
		return 0, fmt.Errorf("failed to list expenses awaiting reminder: %w", err)
	}

	scheduled := 0
	for _, e := range expenses {
		ok, err := s.reconcileOne(ctx, e.ID)
		if err != nil {
			return scheduled, err
		}
		if ok {
			scheduled++
		}
	}
	s.logger.WithFields(logrus.Fields{
		"checked":   len(expenses),
		"scheduled": scheduled,
	}).Info("Reminder reconcile finished")
	return scheduled, nil
}

// reconcileOne re-reads the expense under the lock, since the listed row may
// be stale by now, and schedules it unless the live job already matches.
func (s *ReminderScheduler) reconcileOne(ctx context.Context, expenseID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.expenseRepo.GetByID(ctx, expenseID)
	if err != nil {
		if errors.Is(err, expense.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to re-read expense %d: %w", expenseID, err)
	}
	if e.ReminderSent {
		return false, nil
	}
	if live, ok := s.executor.Live(e.ID); ok && expense.SameDate(live.RenewalDate, e.RenewalDate) {
		return false, nil
	}
	_, ok := s.schedule(ctx, e.ID, e.RenewalDate)
	return ok, nil
}
