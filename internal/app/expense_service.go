package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"expense_reminder/internal/domain/expense"

	"github.com/sirupsen/logrus"
)

// ErrInvalidExpense is returned when an expense fails validation.
var ErrInvalidExpense = errors.New("invalid expense")

// ExpenseService is the entry point for API layers that change expenses.
// It keeps reminder jobs in sync with every create, renewal change and delete.
type ExpenseService struct {
	expenseRepo expense.Repository
	scheduler   *ReminderScheduler
	logger      *logrus.Entry
}

func NewExpenseService(er expense.Repository, scheduler *ReminderScheduler, logger *logrus.Entry) *ExpenseService {
	return &ExpenseService{
		expenseRepo: er,
		scheduler:   scheduler,
		logger:      logger,
	}
}

// CreateExpense stores a new expense and schedules its reminder.
func (s *ExpenseService) CreateExpense(ctx context.Context, e *expense.Expense) error {
	if err := validateDetails(e); err != nil {
		return err
	}
	if e.RenewalDate.IsZero() {
		return fmt.Errorf("%w: renewal date is required", ErrInvalidExpense)
	}
	e.RenewalDate = expense.DateOnly(e.RenewalDate)
	e.ReminderSent = false

	if err := s.expenseRepo.Create(ctx, e); err != nil {
		return fmt.Errorf("failed to create expense in repository: %w", err)
	}
	s.scheduler.Schedule(ctx, e.ID, e.RenewalDate)
	return nil
}

// UpdateDetails changes the descriptive fields of an expense. The reminder
// job is left untouched since it only depends on the renewal date.
func (s *ExpenseService) UpdateDetails(ctx context.Context, e *expense.Expense) error {
	if err := validateDetails(e); err != nil {
		return err
	}
	if err := s.expenseRepo.UpdateDetails(ctx, e); err != nil {
		if errors.Is(err, expense.ErrNotFound) {
			return expense.ErrNotFound
		}
		return fmt.Errorf("failed to update expense %d: %w", e.ID, err)
	}
	return nil
}

// UpdateRenewalDate moves the renewal date, which resets the reminder flag,
// and replaces the pending reminder job.
func (s *ExpenseService) UpdateRenewalDate(ctx context.Context, id int64, renewalDate time.Time) (*expense.Expense, error) {
	if renewalDate.IsZero() {
		return nil, fmt.Errorf("%w: renewal date is required", ErrInvalidExpense)
	}
	updated, err := s.expenseRepo.UpdateRenewalDate(ctx, id, expense.DateOnly(renewalDate))
	if err != nil {
		if errors.Is(err, expense.ErrNotFound) {
			return nil, expense.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update renewal date of expense %d: %w", id, err)
	}
	s.scheduler.Schedule(ctx, updated.ID, updated.RenewalDate)
	return updated, nil
}

// DeleteExpense removes the expense and cancels its pending reminder.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id int64) error {
	if err := s.expenseRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, expense.ErrNotFound) {
			return expense.ErrNotFound
		}
		return fmt.Errorf("failed to delete expense %d: %w", id, err)
	}
	s.scheduler.Cancel(ctx, id)
	return nil
}

func validateDetails(e *expense.Expense) error {
	switch {
	case e == nil:
		return fmt.Errorf("%w: expense is nil", ErrInvalidExpense)
	case strings.TrimSpace(e.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidExpense)
	case strings.TrimSpace(e.Category) == "":
		return fmt.Errorf("%w: category is required", ErrInvalidExpense)
	case !e.Amount.IsPositive():
		return fmt.Errorf("%w: amount must be positive", ErrInvalidExpense)
	}
	return nil
}
