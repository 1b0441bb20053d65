// Package executor holds deferred reminder jobs in a time-ordered queue and
// releases each one to a handler at or after its fire time, at most once.
package executor

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"expense_reminder/internal/domain/reminder"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultJobLogTimeout = 5 * time.Second

// HandlerFunc processes a fired job. Errors are logged, never retried.
type HandlerFunc func(ctx context.Context, job reminder.Job) error

// Option configures an Executor.
type Option func(*Executor)

// WithClock replaces time.Now. Tests use it to simulate clock advance.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// WithJobLog mirrors every submit, fire and cancel into a durable job log.
func WithJobLog(repo reminder.Repository) Option {
	return func(e *Executor) { e.jobLog = repo }
}

// Executor is the deferred job executor. A single lock guards the queue and
// both indexes; the background loop is the only goroutine that pops.
type Executor struct {
	mu    sync.Mutex
	queue jobQueue
	live  map[int64]*reminder.Job     // expense id -> pending job
	byID  map[uuid.UUID]*reminder.Job // every job still in the queue
	seq   int64

	handler HandlerFunc
	jobLog  reminder.Repository
	now     func() time.Time
	logger  *logrus.Entry

	wake     chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
	inflight sync.WaitGroup
}

func New(handler HandlerFunc, logger *logrus.Entry, opts ...Option) *Executor {
	e := &Executor{
		live:    make(map[int64]*reminder.Job),
		byID:    make(map[uuid.UUID]*reminder.Job),
		seq:     time.Now().UnixNano(),
		handler: handler,
		now:     time.Now,
		logger:  logger,
		wake:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit inserts job as the live job of its expense. A pending job for the same
// expense is marked cancelled and left in the queue to be skipped when popped.
// The stored copy is returned with its ID, Seq and State filled in.
func (e *Executor) Submit(ctx context.Context, job reminder.Job) reminder.Job {
	e.mu.Lock()
	e.seq++
	job.Seq = e.seq
	job.State = reminder.JobStatePending
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = e.now()
	}

	var replaced uuid.UUID
	if prev, ok := e.live[job.ExpenseID]; ok {
		prev.State = reminder.JobStateCancelled
		replaced = prev.ID
	}
	stored := job
	heap.Push(&e.queue, &stored)
	e.live[job.ExpenseID] = &stored
	e.byID[job.ID] = &stored
	e.mu.Unlock()

	e.signal()

	fields := logrus.Fields{
		"expense_id": job.ExpenseID,
		"job_id":     job.ID,
		"fire_at":    job.FireAt.Format(time.RFC3339),
	}
	if replaced != uuid.Nil {
		fields["replaced_job_id"] = replaced
	}
	e.logger.WithFields(fields).Debug("Reminder job submitted")

	if e.jobLog != nil {
		lctx, cancel := context.WithTimeout(ctx, defaultJobLogTimeout)
		defer cancel()
		if err := e.jobLog.Save(lctx, job); err != nil {
			e.logger.WithFields(fields).WithError(err).Warn("Failed to persist reminder job")
		}
	}
	return job
}

// Cancel cancels the live job of expenseID. It reports whether a job was
// cancelled; a missing or already fired job is a no-op.
func (e *Executor) Cancel(ctx context.Context, expenseID int64) bool {
	e.mu.Lock()
	job, ok := e.live[expenseID]
	if !ok {
		e.mu.Unlock()
		return false
	}
	job.State = reminder.JobStateCancelled
	delete(e.live, expenseID)
	jobID := job.ID
	e.mu.Unlock()

	e.signal()
	e.logger.WithFields(logrus.Fields{"expense_id": expenseID, "job_id": jobID}).Debug("Reminder job cancelled")
	e.persistState(ctx, expenseID, jobID, reminder.JobStateCancelled)
	return true
}

// Restore loads pending jobs from the job log. It is meant to run before Start.
// Jobs whose fire time already passed fire on the first scan.
func (e *Executor) Restore(jobs []reminder.Job) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	restored := 0
	for _, job := range jobs {
		if job.State != reminder.JobStatePending {
			continue
		}
		if prev, ok := e.live[job.ExpenseID]; ok {
			if prev.Seq >= job.Seq {
				continue
			}
			prev.State = reminder.JobStateCancelled
		}
		if job.Seq > e.seq {
			e.seq = job.Seq
		}
		stored := job
		heap.Push(&e.queue, &stored)
		e.live[job.ExpenseID] = &stored
		e.byID[job.ID] = &stored
		restored++
	}
	return restored
}

// Start launches the scheduling loop. Calling Start twice is a no-op.
func (e *Executor) Start(ctx context.Context) {
	e.mu.Lock()
	if e.done != nil {
		e.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.mu.Unlock()

	e.logger.WithField("pending", e.Len()).Info("Reminder executor started")
	go e.loop(runCtx)
}

// Stop halts the loop and waits for in-flight handlers until ctx is done.
func (e *Executor) Stop(ctx context.Context) error {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done

	finished := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		e.logger.Info("Reminder executor stopped")
		return nil
	case <-ctx.Done():
		e.logger.Warn("Reminder executor stop timed out with handlers still running")
		return ctx.Err()
	}
}

// Wait blocks until every dispatched handler has returned.
func (e *Executor) Wait() {
	e.inflight.Wait()
}

func (e *Executor) loop(ctx context.Context) {
	defer close(e.done)
	for {
		e.DispatchDue(ctx)

		var timerC <-chan time.Time
		var timer *time.Timer
		if wait, ok := e.untilNext(); ok {
			timer = time.NewTimer(wait)
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-e.wake:
		case <-timerC:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// untilNext drops cancelled jobs from the head of the queue and returns how
// long until the earliest pending job is due.
func (e *Executor) untilNext() (time.Duration, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for e.queue.Len() > 0 && e.queue[0].State == reminder.JobStateCancelled {
		job := heap.Pop(&e.queue).(*reminder.Job)
		delete(e.byID, job.ID)
	}
	if e.queue.Len() == 0 {
		return 0, false
	}
	wait := e.queue[0].FireAt.Sub(e.now())
	if wait < 0 {
		wait = 0
	}
	return wait, true
}

// DispatchDue pops every job due at the current clock time, skips cancelled
// ones and hands the rest to the handler, each in its own goroutine.
// It returns the number of jobs dispatched.
func (e *Executor) DispatchDue(ctx context.Context) int {
	now := e.now()

	e.mu.Lock()
	var due []reminder.Job
	for e.queue.Len() > 0 && !e.queue[0].FireAt.After(now) {
		job := heap.Pop(&e.queue).(*reminder.Job)
		delete(e.byID, job.ID)
		if job.State == reminder.JobStateCancelled {
			continue
		}
		if job.State != reminder.JobStatePending || e.live[job.ExpenseID] != job {
			e.mu.Unlock()
			panic(fmt.Sprintf("executor: job %s for expense %d is %s but not the live job", job.ID, job.ExpenseID, job.State))
		}
		job.State = reminder.JobStateFired
		delete(e.live, job.ExpenseID)
		due = append(due, *job)
	}
	e.mu.Unlock()

	for _, job := range due {
		e.dispatch(ctx, job)
	}
	return len(due)
}

func (e *Executor) dispatch(ctx context.Context, job reminder.Job) {
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		jobLogger := e.logger.WithFields(logrus.Fields{
			"expense_id": job.ExpenseID,
			"job_id":     job.ID,
			"fire_at":    job.FireAt.Format(time.RFC3339),
		})
		defer func() {
			if r := recover(); r != nil {
				jobLogger.Errorf("Reminder handler panicked: %v", r)
			}
		}()

		// Handlers outlive the loop's context; Stop waits for them instead.
		// There is no deadline here, notifiers bound their own transport calls.
		hctx := context.WithoutCancel(ctx)
		e.persistState(hctx, job.ExpenseID, job.ID, reminder.JobStateFired)

		start := time.Now()
		if err := e.handler(hctx, job); err != nil {
			jobLogger.WithError(err).Error("Reminder job failed, it will not be retried")
			return
		}
		jobLogger.WithField("took", time.Since(start)).Debug("Reminder job handled")
	}()
}

func (e *Executor) persistState(ctx context.Context, expenseID int64, jobID uuid.UUID, state reminder.JobState) {
	if e.jobLog == nil {
		return
	}
	lctx, cancel := context.WithTimeout(ctx, defaultJobLogTimeout)
	defer cancel()
	if err := e.jobLog.MarkState(lctx, expenseID, jobID, state); err != nil {
		e.logger.WithFields(logrus.Fields{
			"expense_id": expenseID,
			"job_id":     jobID,
			"state":      state,
		}).WithError(err).Warn("Failed to persist reminder job state")
	}
}

func (e *Executor) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Live returns a copy of the pending job for expenseID.
func (e *Executor) Live(expenseID int64) (reminder.Job, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	job, ok := e.live[expenseID]
	if !ok {
		return reminder.Job{}, false
	}
	return *job, true
}

// Job returns a copy of a job that is still queued, pending or cancelled.
func (e *Executor) Job(id uuid.UUID) (reminder.Job, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	job, ok := e.byID[id]
	if !ok {
		return reminder.Job{}, false
	}
	return *job, true
}

// Len returns the number of pending jobs.
func (e *Executor) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.live)
}
