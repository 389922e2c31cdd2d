package jobs

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/saiteja-velpula/sagepick.core/internal/db"
	"github.com/saiteja-velpula/sagepick.core/internal/models"
	syncpkg "github.com/saiteja-velpula/sagepick.core/internal/sync"
	"github.com/saiteja-velpula/sagepick.core/internal/tmdb"
)

// ChangeTrackingJob walks the TMDB changes feed and refreshes every changed
// movie that already exists in the local catalog. Movies we never ingested
// are ignored; discovery brings those in on its own schedule.
type ChangeTrackingJob struct {
	client       *tmdb.Client
	orchestrator *syncpkg.Orchestrator
	store        db.Store
	logger       *logrus.Logger
}

func NewChangeTrackingJob(client *tmdb.Client, orchestrator *syncpkg.Orchestrator, store db.Store, logger *logrus.Logger) *ChangeTrackingJob {
	return &ChangeTrackingJob{
		client:       client,
		orchestrator: orchestrator,
		store:        store,
		logger:       logger,
	}
}

func (j *ChangeTrackingJob) Run(ctx context.Context, jobID int64, signal *CancelSignal) (*models.BatchProcessResult, error) {
	total := &models.BatchProcessResult{}
	knownTotal := 0

	page := 1
	for {
		if signal.IsCancelled() {
			return total, context.Canceled
		}

		changes, err := j.client.GetMovieChanges(ctx, page)
		if err != nil {
			return total, fmt.Errorf("failed to fetch changes page %d: %w", page, err)
		}
		if len(changes.Results) == 0 {
			break
		}

		changedIDs := make([]int64, 0, len(changes.Results))
		for _, c := range changes.Results {
			changedIDs = append(changedIDs, c.ID)
		}

		known, err := j.store.GetMoviesByTMDBIDs(ctx, changedIDs)
		if err != nil {
			return total, fmt.Errorf("failed to match changed movies: %w", err)
		}

		if len(known) > 0 {
			ids := make([]int64, 0, len(known))
			for _, m := range known {
				ids = append(ids, m.TMDBID)
			}

			knownTotal += len(ids)
			if err := j.store.UpdateTotalItems(ctx, jobID, knownTotal); err != nil {
				j.logger.WithError(err).Warn("Failed to update change tracking total")
			}

			result, err := j.orchestrator.ProcessBatch(ctx, jobID, ids, syncpkg.StrategyFetchAndUpsert, signal.IsCancelled)
			if result != nil {
				total.Add(result)
			}
			if err != nil {
				return total, err
			}
		}

		if changes.TotalPages > 0 && page >= changes.TotalPages {
			break
		}
		page++
	}

	j.logger.WithFields(logrus.Fields{
		"pages":     page,
		"attempted": total.Attempted,
		"failed":    total.Failed,
	}).Info("Change tracking run finished")
	return total, nil
}
