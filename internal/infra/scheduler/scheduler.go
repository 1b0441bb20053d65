package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Reconciler re-submits reminder jobs for expenses that have none.
type Reconciler interface {
	Reconcile(ctx context.Context) (int, error)
}

// ReconcileScheduler runs the reconciler periodically on a cron spec.
type ReconcileScheduler struct {
	cronEngine *cron.Cron
	reconciler Reconciler
	logger     *logrus.Entry
	cronSpec   string // e.g., "*/15 * * * *" (every 15 minutes)
	timeout    time.Duration
}

func NewReconcileScheduler(
	reconciler Reconciler,
	logger *logrus.Entry,
	cronSpec string,
	loc *time.Location,
	timeout time.Duration,
) *ReconcileScheduler {
	if loc == nil {
		loc = time.Local
	}
	return &ReconcileScheduler{
		cronEngine: cron.New(cron.WithLocation(loc)),
		reconciler: reconciler,
		logger:     logger,
		cronSpec:   cronSpec,
		timeout:    timeout,
	}
}

// Start registers the reconcile job and starts the cron engine.
func (s *ReconcileScheduler) Start() error {
	s.logger.Info("Starting reconcile scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		s.logger.Debug("Cron job triggered for reminder reconcile.")
		s.RunOnce(context.Background())
	})
	if err != nil {
		return fmt.Errorf("could not add reconcile cron job %q: %w", s.cronSpec, err)
	}

	s.cronEngine.Start()
	s.logger.WithField("spec", s.cronSpec).Info("Reconcile scheduler started.")
	return nil
}

// RunOnce performs a single reconcile pass bounded by the configured timeout.
func (s *ReconcileScheduler) RunOnce(parent context.Context) {
	ctx := parent
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, s.timeout)
		defer cancel()
	}

	n, err := s.reconciler.Reconcile(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Error during reminder reconcile.")
		return
	}
	if n > 0 {
		s.logger.WithField("scheduled", n).Info("Reconcile scheduled missing reminders.")
	}
}

func (s *ReconcileScheduler) Stop() {
	s.logger.Info("Stopping reconcile scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Reconcile scheduler gracefully stopped.")
}
