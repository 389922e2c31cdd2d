package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/saiteja-velpula/sagepick.core/internal/db"
	"github.com/saiteja-velpula/sagepick.core/internal/models"
)

// JobFunc is the body of a job execution. It reports progress through the
// job ID and stops early when the signal flips. A nil result means the job
// has no batch accounting to grade.
type JobFunc func(ctx context.Context, jobID int64, signal *CancelSignal) (*models.BatchProcessResult, error)

// Runner wraps every job execution in the shared lifecycle: status row
// creation, execution registration, terminal status mapping, and the
// failure rate policy. Individual jobs supply only their JobFunc.
type Runner struct {
	store              db.Store
	exec               *ExecutionManager
	errorRateThreshold float64
	logger             *logrus.Logger
}

func NewRunner(store db.Store, exec *ExecutionManager, errorRateThreshold float64, logger *logrus.Logger) *Runner {
	return &Runner{
		store:              store,
		exec:               exec,
		errorRateThreshold: errorRateThreshold,
		logger:             logger,
	}
}

// Run executes one job to a terminal status. totalEstimate seeds the
// status row's total_items for progress reporting; pass nil when the job
// has no upfront item count. A run whose batch failure rate reaches the
// threshold is recorded as failed even though it ran to completion; a
// cancelled run is recorded as cancelled, never failed.
func (r *Runner) Run(ctx context.Context, jobType models.JobType, totalEstimate *int, fn JobFunc) error {
	job, err := r.store.CreateJob(ctx, jobType, totalEstimate)
	if err != nil {
		return fmt.Errorf("failed to create %s job: %w", jobType, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signal := r.exec.Register(job.ID, jobType, cancel)
	defer r.exec.Unregister(job.ID)

	log := r.logger.WithFields(logrus.Fields{
		"job_id":   job.ID,
		"job_type": jobType,
	})

	if err := r.store.StartJob(ctx, job.ID); err != nil {
		r.finish(job.ID, func(ctx context.Context) error {
			return r.store.FailJob(ctx, job.ID, err.Error())
		})
		return fmt.Errorf("failed to start %s job: %w", jobType, err)
	}

	log.Info("Job started")
	result, runErr := fn(runCtx, job.ID, signal)

	cancelled := signal.IsCancelled() ||
		errors.Is(runErr, context.Canceled) || errors.Is(runCtx.Err(), context.Canceled)
	if cancelled {
		log.Warn("Job cancelled")
		r.finish(job.ID, func(ctx context.Context) error {
			return r.store.CancelJob(ctx, job.ID)
		})
		return nil
	}

	if runErr != nil {
		log.WithError(runErr).Error("Job failed")
		r.finish(job.ID, func(ctx context.Context) error {
			return r.store.FailJob(ctx, job.ID, runErr.Error())
		})
		return runErr
	}

	if result != nil && result.Attempted > 0 && result.FailureRate() >= r.errorRateThreshold {
		msg := fmt.Sprintf("failure rate %.2f reached threshold %.2f (%d of %d failed)",
			result.FailureRate(), r.errorRateThreshold, result.Failed, result.Attempted)
		log.WithFields(logrus.Fields{
			"attempted": result.Attempted,
			"failed":    result.Failed,
		}).Error("Job exceeded failure rate threshold")
		r.finish(job.ID, func(ctx context.Context) error {
			return r.store.FailJob(ctx, job.ID, msg)
		})
		return nil
	}

	log.Info("Job completed")
	r.finish(job.ID, func(ctx context.Context) error {
		return r.store.CompleteJob(ctx, job.ID)
	})
	return nil
}

// finish writes the terminal status on a fresh context, so a cancelled run
// context cannot leave the status row stuck at running.
func (r *Runner) finish(jobID int64, write func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := write(ctx); err != nil {
		r.logger.WithField("job_id", jobID).WithError(err).
			Error("Failed to record terminal job status")
	}
}
