// internal/app/reminder_handler.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expense_reminder/internal/domain/expense"
	"expense_reminder/internal/domain/notifier"
	"expense_reminder/internal/domain/reminder"
	"expense_reminder/internal/domain/user"

	"github.com/sirupsen/logrus"
)

// ErrDeliveryFailed wraps notifier errors returned by ReminderHandler.Handle.
var ErrDeliveryFailed = errors.New("reminder delivery failed")

// ReminderHandler delivers a fired reminder job. It re-validates the expense
// before sending so that deleted, edited or already notified expenses are skipped.
type ReminderHandler struct {
	expenseRepo expense.Repository
	userRepo    user.Repository
	notifier    notifier.Notifier
	renderer    *MessageRenderer
	location    *time.Location
	now         func() time.Time
	logger      *logrus.Entry
}

func NewReminderHandler(
	er expense.Repository,
	ur user.Repository,
	n notifier.Notifier,
	renderer *MessageRenderer,
	location *time.Location,
	logger *logrus.Entry,
) *ReminderHandler {
	if location == nil {
		location = time.Local
	}
	return &ReminderHandler{
		expenseRepo: er,
		userRepo:    ur,
		notifier:    n,
		renderer:    renderer,
		location:    location,
		now:         time.Now,
		logger:      logger,
	}
}

// SetClock replaces time.Now.
func (h *ReminderHandler) SetClock(now func() time.Time) {
	h.now = now
}

// Handle is invoked once per fired job.
func (h *ReminderHandler) Handle(ctx context.Context, job reminder.Job) error {
	log := h.logger.WithFields(logrus.Fields{
		"expense_id": job.ExpenseID,
		"job_id":     job.ID,
	})

	exp, err := h.expenseRepo.GetByID(ctx, job.ExpenseID)
	if err != nil {
		if errors.Is(err, expense.ErrNotFound) {
			log.Info("Expense deleted after scheduling, nothing to send")
			return nil
		}
		return fmt.Errorf("failed to get expense %d: %w", job.ExpenseID, err)
	}

	if exp.ReminderSent {
		log.Info("Reminder already sent for this renewal, skipping")
		return nil
	}
	if !expense.SameDate(exp.RenewalDate, job.RenewalDate) {
		log.WithField("renewal_date", exp.RenewalDate.Format("2006-01-02")).Info("Job superseded by a renewal date change, skipping")
		return nil
	}
	if h.renewalPassed(exp.RenewalDate) {
		log.Info("Renewal date already passed, skipping")
		return nil
	}

	owner, err := h.userRepo.GetByID(ctx, exp.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			log.WithField("user_id", exp.UserID).Warn("Owner of expense not found, skipping")
			return nil
		}
		return fmt.Errorf("failed to get user %d: %w", exp.UserID, err)
	}

	msg, err := h.renderer.Render(owner, exp)
	if err != nil {
		return fmt.Errorf("failed to render reminder for expense %d: %w", exp.ID, err)
	}

	if err := h.notifier.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: expense %d: %w", ErrDeliveryFailed, exp.ID, err)
	}

	marked, err := h.expenseRepo.SetReminderSent(ctx, exp.ID, job.RenewalDate)
	if err != nil {
		return fmt.Errorf("reminder sent but failed to flag expense %d: %w", exp.ID, err)
	}
	if !marked {
		log.Warn("Reminder sent but renewal date changed concurrently, flag not set")
		return nil
	}
	log.WithField("user_id", owner.ID).Info("Reminder sent")
	return nil
}

func (h *ReminderHandler) renewalPassed(renewalDate time.Time) bool {
	now := h.now().In(h.location)
	y, m, d := renewalDate.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, h.location).Before(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.location))
}
