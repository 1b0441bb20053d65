// internal/infra/database/postgres_expense_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"expense_reminder/internal/domain/expense"
)

type PostgresExpenseRepository struct {
	db *sql.DB
}

func NewPostgresExpenseRepository(db *sql.DB) *PostgresExpenseRepository {
	return &PostgresExpenseRepository{db: db}
}

const expenseColumns = `id, user_id, name, category, amount, renewal_date, description, reminder_sent, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*expense.Expense, error) {
	e := &expense.Expense{}
	err := row.Scan(&e.ID, &e.UserID, &e.Name, &e.Category, &e.Amount, &e.RenewalDate,
		&e.Description, &e.ReminderSent, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *PostgresExpenseRepository) Create(ctx context.Context, e *expense.Expense) error {
	query := `INSERT INTO expenses (user_id, name, category, amount, renewal_date, description, reminder_sent)
               VALUES ($1, $2, $3, $4, $5::date, $6, $7)
               RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, e.UserID, e.Name, e.Category, e.Amount, dateParam(e.RenewalDate),
		e.Description, e.ReminderSent).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating expense: %w", err)
	}
	return nil
}

func (r *PostgresExpenseRepository) GetByID(ctx context.Context, id int64) (*expense.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = $1`
	e, err := scanExpense(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, expense.ErrNotFound
		}
		return nil, fmt.Errorf("error getting expense by ID: %w", err)
	}
	return e, nil
}

func (r *PostgresExpenseRepository) UpdateDetails(ctx context.Context, e *expense.Expense) error {
	query := `UPDATE expenses
               SET name = $1, category = $2, amount = $3, description = $4, updated_at = NOW()
               WHERE id = $5
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, e.Name, e.Category, e.Amount, e.Description, e.ID).Scan(&e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return expense.ErrNotFound
		}
		return fmt.Errorf("error updating expense: %w", err)
	}
	return nil
}

// UpdateRenewalDate starts a new reminder cycle, so reminder_sent is reset in the same statement.
func (r *PostgresExpenseRepository) UpdateRenewalDate(ctx context.Context, id int64, renewalDate time.Time) (*expense.Expense, error) {
	query := `UPDATE expenses
               SET renewal_date = $1::date, reminder_sent = FALSE, updated_at = NOW()
               WHERE id = $2
               RETURNING ` + expenseColumns
	e, err := scanExpense(r.db.QueryRowContext(ctx, query, dateParam(renewalDate), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, expense.ErrNotFound
		}
		return nil, fmt.Errorf("error updating expense renewal date: %w", err)
	}
	return e, nil
}

func (r *PostgresExpenseRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading deleted rows: %w", err)
	}
	if n == 0 {
		return expense.ErrNotFound
	}
	return nil
}

// SetReminderSent is a single conditional update: it only succeeds while the
// renewal date the reminder was rendered for is still in effect.
func (r *PostgresExpenseRepository) SetReminderSent(ctx context.Context, id int64, expectedRenewal time.Time) (bool, error) {
	query := `UPDATE expenses
               SET reminder_sent = TRUE, updated_at = NOW()
               WHERE id = $1 AND renewal_date = $2::date AND reminder_sent = FALSE`
	res, err := r.db.ExecContext(ctx, query, id, dateParam(expectedRenewal))
	if err != nil {
		return false, fmt.Errorf("error setting reminder_sent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading updated rows: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresExpenseRepository) ListAwaitingReminder(ctx context.Context, renewalAfter time.Time) ([]*expense.Expense, error) {
	query := `SELECT ` + expenseColumns + `
               FROM expenses
               WHERE reminder_sent = FALSE AND renewal_date > $1::date
               ORDER BY renewal_date, id`
	rows, err := r.db.QueryContext(ctx, query, dateParam(renewalAfter))
	if err != nil {
		return nil, fmt.Errorf("error querying expenses awaiting reminder: %w", err)
	}
	defer rows.Close()

	expenses := make([]*expense.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning expense row: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expense rows: %w", err)
	}
	return expenses, nil
}
