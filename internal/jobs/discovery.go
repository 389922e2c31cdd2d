package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/saiteja-velpula/sagepick.core/internal/config"
	"github.com/saiteja-velpula/sagepick.core/internal/db"
	"github.com/saiteja-velpula/sagepick.core/internal/models"
	syncpkg "github.com/saiteja-velpula/sagepick.core/internal/sync"
	"github.com/saiteja-velpula/sagepick.core/internal/tmdb"
)

// discoveryStateTTL bounds how long the Redis copy of the page cursor
// survives without the job running. The durable copy lives in Postgres.
const discoveryStateTTL = 7 * 24 * time.Hour

type discoveryState struct {
	Page int `json:"page"`
}

// BatchRunner runs movie IDs through a fetch strategy with per-movie
// locking and job accounting.
type BatchRunner interface {
	ProcessBatch(ctx context.Context, jobID int64, tmdbIDs []int64, strategy syncpkg.Strategy, isCancelled func() bool) (*models.BatchProcessResult, error)
}

// JobStateCache caches job cursor state in Redis.
type JobStateCache interface {
	GetJobState(ctx context.Context, jobType string, dest interface{}) (bool, error)
	SetJobState(ctx context.Context, jobType string, state interface{}, ttl time.Duration) error
}

// DiscoveryJob walks the TMDB discover feed one page per run, inserting
// every new movie fully hydrated (details and keywords fetched up front).
// The page cursor is read from Redis with a durable Postgres fallback, so
// a Redis flush does not restart the walk from page one.
type DiscoveryJob struct {
	client      *tmdb.Client
	runner      BatchRunner
	cache       JobStateCache
	store       db.Store
	itemsPerRun int
	logger      *logrus.Logger
}

func NewDiscoveryJob(client *tmdb.Client, runner BatchRunner, cache JobStateCache, store db.Store, cfg config.JobsConfig, logger *logrus.Logger) *DiscoveryJob {
	return &DiscoveryJob{
		client:      client,
		runner:      runner,
		cache:       cache,
		store:       store,
		itemsPerRun: cfg.DiscoveryItemsPerRun,
		logger:      logger,
	}
}

// loadCursor prefers the Redis cursor and falls back to Postgres when the
// Redis copy is missing or unreadable.
func (j *DiscoveryJob) loadCursor(ctx context.Context) int {
	var state discoveryState
	found, err := j.cache.GetJobState(ctx, string(models.JobTypeMovieDiscovery), &state)
	if err != nil {
		j.logger.WithError(err).Warn("Failed to read discovery cursor from Redis, falling back to Postgres")
	} else if found && state.Page >= 1 {
		return state.Page
	}

	page, err := j.store.GetDiscoveryPage(ctx)
	if err != nil {
		j.logger.WithError(err).Warn("Failed to read discovery cursor from Postgres, starting from page 1")
		return 1
	}
	return page
}

// saveCursor writes the cursor to both stores. Postgres is authoritative;
// the Redis copy only spares the next run a database read.
func (j *DiscoveryJob) saveCursor(ctx context.Context, page int) {
	if err := j.store.SetDiscoveryPage(ctx, page); err != nil {
		j.logger.WithError(err).Warn("Failed to persist discovery cursor")
	}
	if err := j.cache.SetJobState(ctx, string(models.JobTypeMovieDiscovery), discoveryState{Page: page}, discoveryStateTTL); err != nil {
		j.logger.WithError(err).Warn("Failed to cache discovery cursor")
	}
}

func (j *DiscoveryJob) Run(ctx context.Context, jobID int64, signal *CancelSignal) (*models.BatchProcessResult, error) {
	current := j.loadCursor(ctx)

	page, err := j.client.DiscoverMovies(ctx, current)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch discover page %d: %w", current, err)
	}

	summaries := page.Results
	if len(summaries) > j.itemsPerRun {
		summaries = summaries[:j.itemsPerRun]
	}
	tmdbIDs := make([]int64, 0, len(summaries))
	for _, s := range summaries {
		tmdbIDs = append(tmdbIDs, s.ID)
	}

	result, err := j.runner.ProcessBatch(ctx, jobID, tmdbIDs, syncpkg.StrategyFetchAndInsertFull, signal.IsCancelled)
	if err != nil {
		return result, err
	}

	next := current + 1
	if page.TotalPages > 0 && next > page.TotalPages {
		next = 1
	}
	j.saveCursor(ctx, next)

	j.logger.WithFields(logrus.Fields{
		"page":      current,
		"next_page": next,
		"attempted": result.Attempted,
	}).Info("Discovery run finished")
	return result, nil
}
