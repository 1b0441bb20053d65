package database

import (
	"context"
	"database/sql"
	"fmt"

	"expense_reminder/internal/domain/reminder"

	"github.com/google/uuid"
)

// PostgresReminderJobRepository is the durable job log backing the executor.
type PostgresReminderJobRepository struct {
	db *sql.DB
}

func NewPostgresReminderJobRepository(db *sql.DB) *PostgresReminderJobRepository {
	return &PostgresReminderJobRepository{db: db}
}

// Save keeps one row per expense; the seq guard makes out-of-order writes harmless.
func (r *PostgresReminderJobRepository) Save(ctx context.Context, job reminder.Job) error {
	query := `INSERT INTO reminder_jobs (expense_id, job_id, renewal_date, fire_at, state, seq, created_at, updated_at)
               VALUES ($1, $2, $3::date, $4, $5, $6, $7, NOW())
               ON CONFLICT (expense_id) DO UPDATE
               SET job_id = EXCLUDED.job_id,
                   renewal_date = EXCLUDED.renewal_date,
                   fire_at = EXCLUDED.fire_at,
                   state = EXCLUDED.state,
                   seq = EXCLUDED.seq,
                   created_at = EXCLUDED.created_at,
                   updated_at = NOW()
               WHERE reminder_jobs.seq < EXCLUDED.seq`
	_, err := r.db.ExecContext(ctx, query, job.ExpenseID, job.ID, dateParam(job.RenewalDate), job.FireAt,
		string(job.State), job.Seq, job.CreatedAt)
	if err != nil {
		return fmt.Errorf("error saving reminder job %s: %w", job.ID, err)
	}
	return nil
}

func (r *PostgresReminderJobRepository) MarkState(ctx context.Context, expenseID int64, jobID uuid.UUID, state reminder.JobState) error {
	query := `UPDATE reminder_jobs SET state = $1, updated_at = NOW() WHERE expense_id = $2 AND job_id = $3`
	if _, err := r.db.ExecContext(ctx, query, string(state), expenseID, jobID); err != nil {
		return fmt.Errorf("error marking reminder job %s as %s: %w", jobID, state, err)
	}
	return nil
}

func (r *PostgresReminderJobRepository) ListPending(ctx context.Context) ([]reminder.Job, error) {
	query := `SELECT expense_id, job_id, renewal_date, fire_at, state, seq, created_at
               FROM reminder_jobs
               WHERE state = $1
               ORDER BY fire_at, seq`
	rows, err := r.db.QueryContext(ctx, query, string(reminder.JobStatePending))
	if err != nil {
		return nil, fmt.Errorf("error querying pending reminder jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]reminder.Job, 0)
	for rows.Next() {
		var j reminder.Job
		var state string
		if err := rows.Scan(&j.ExpenseID, &j.ID, &j.RenewalDate, &j.FireAt, &state, &j.Seq, &j.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning reminder job row: %w", err)
		}
		j.State = reminder.JobState(state)
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reminder job rows: %w", err)
	}
	return jobs, nil
}
