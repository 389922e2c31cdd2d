package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/saiteja-velpula/sagepick.core/internal/db"
	"github.com/saiteja-velpula/sagepick.core/internal/models"
	"github.com/saiteja-velpula/sagepick.core/internal/tmdb"
)

// Locker serializes writes per movie across processes.
type Locker interface {
	Acquire(ctx context.Context, tmdbID int64) (bool, error)
	Release(ctx context.Context, tmdbID int64) error
}

// MovieProcessor is the strategy surface the orchestrator drives.
type MovieProcessor interface {
	Process(ctx context.Context, tmdbID int64, strategy Strategy) error
	InsertAndQueue(ctx context.Context, summary tmdb.MovieSummary) error
}

// Orchestrator runs batches of movies through the Processor with per-movie
// distributed locking, duplicate elimination, cooperative cancellation, and
// job count accounting.
type Orchestrator struct {
	processor MovieProcessor
	locker    Locker
	store     db.Store
	logger    *logrus.Logger
}

func NewOrchestrator(processor MovieProcessor, locker Locker, store db.Store, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		processor: processor,
		locker:    locker,
		store:     store,
		logger:    logger,
	}
}

type batchItem struct {
	tmdbID int64
	run    func(context.Context) error
}

// runBatch is the shared batch loop. Accounting rules:
//   - a movie whose lock is held elsewhere is counted as SkippedLocked and
//     nothing else; someone is already writing it
//   - a lock infrastructure error counts the movie as attempted and failed,
//     because its true state is unknown
//   - attempted always equals succeeded plus failed
//   - a cancelled batch still records the deltas of the movies it finished
func (o *Orchestrator) runBatch(ctx context.Context, jobID int64, items []batchItem, isCancelled func() bool) (*models.BatchProcessResult, error) {
	result := &models.BatchProcessResult{}

	seen := make(map[int64]struct{}, len(items))

	var batchErr error
	for _, item := range items {
		if _, dup := seen[item.tmdbID]; dup {
			continue
		}
		seen[item.tmdbID] = struct{}{}

		if err := ctx.Err(); err != nil {
			batchErr = err
			break
		}
		if isCancelled != nil && isCancelled() {
			batchErr = context.Canceled
			break
		}

		acquired, err := o.locker.Acquire(ctx, item.tmdbID)
		if err != nil {
			result.Attempted++
			result.Failed++
			o.logger.WithField("tmdb_id", item.tmdbID).WithError(err).
				Error("Lock acquisition errored, counting movie as failed")
			continue
		}
		if !acquired {
			result.SkippedLocked++
			continue
		}

		result.Attempted++
		if err := item.run(ctx); err != nil {
			result.Failed++
			o.logger.WithFields(logrus.Fields{
				"tmdb_id": item.tmdbID,
				"job_id":  jobID,
			}).WithError(err).Warn("Failed to process movie")
		} else {
			result.Succeeded++
		}

		if err := o.locker.Release(ctx, item.tmdbID); err != nil {
			o.logger.WithField("tmdb_id", item.tmdbID).WithError(err).
				Warn("Failed to release movie lock, it will expire on its own")
		}
	}

	o.finishBatch(ctx, jobID, result)
	return result, batchErr
}

// finishBatch records the batch outcome: one counter update and one audit
// log line per batch, not per movie. Runs on a fresh context when the batch
// context is already dead, so an interrupted batch still keeps its partial
// counts.
func (o *Orchestrator) finishBatch(ctx context.Context, jobID int64, result *models.BatchProcessResult) {
	if jobID == 0 {
		return
	}

	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}

	if err := o.store.IncrementJobCounts(ctx, jobID, result.Succeeded, result.Failed); err != nil {
		o.logger.WithField("job_id", jobID).WithError(err).
			Error("Failed to update job counters")
	}

	level := models.LogLevelInfo
	if result.Failed > 0 {
		level = models.LogLevelWarning
	}
	msg := fmt.Sprintf("batch done: attempted=%d succeeded=%d failed=%d skipped_locked=%d",
		result.Attempted, result.Succeeded, result.Failed, result.SkippedLocked)
	if err := o.store.AppendJobLog(ctx, jobID, level, msg); err != nil {
		o.logger.WithField("job_id", jobID).WithError(err).Warn("Failed to append job log")
	}
}

// ProcessBatch runs movie IDs through a fetch strategy. Duplicates keep
// their first position and are processed once.
func (o *Orchestrator) ProcessBatch(ctx context.Context, jobID int64, tmdbIDs []int64, strategy Strategy, isCancelled func() bool) (*models.BatchProcessResult, error) {
	items := make([]batchItem, 0, len(tmdbIDs))
	for _, id := range tmdbIDs {
		id := id
		items = append(items, batchItem{
			tmdbID: id,
			run: func(ctx context.Context) error {
				return o.processor.Process(ctx, id, strategy)
			},
		})
	}
	return o.runBatch(ctx, jobID, items, isCancelled)
}

// ProcessSummaries runs list results through the insert-and-queue strategy,
// which needs the summary payloads rather than bare IDs.
func (o *Orchestrator) ProcessSummaries(ctx context.Context, jobID int64, summaries []tmdb.MovieSummary, isCancelled func() bool) (*models.BatchProcessResult, error) {
	items := make([]batchItem, 0, len(summaries))
	for _, s := range summaries {
		s := s
		items = append(items, batchItem{
			tmdbID: s.ID,
			run: func(ctx context.Context) error {
				return o.processor.InsertAndQueue(ctx, s)
			},
		})
	}
	return o.runBatch(ctx, jobID, items, isCancelled)
}
