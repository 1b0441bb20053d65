// internal/domain/reminder/repository.go
package reminder

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the durable job log. It keeps the latest job per expense so
// pending reminders survive a process restart.
type Repository interface {
	// Save upserts job as the current job of its expense. Writes carrying an
	// older Seq than the stored row are ignored.
	Save(ctx context.Context, job Job) error
	// MarkState moves the job identified by (expenseID, jobID) to state.
	// It is a no-op when the stored row belongs to another job.
	MarkState(ctx context.Context, expenseID int64, jobID uuid.UUID, state JobState) error
	// ListPending returns all jobs still in JobStatePending ordered by fire time.
	ListPending(ctx context.Context) ([]Job, error)
}
