package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/saiteja-velpula/sagepick.core/internal/cache"
	"github.com/saiteja-velpula/sagepick.core/internal/config"
	"github.com/saiteja-velpula/sagepick.core/internal/db"
	"github.com/saiteja-velpula/sagepick.core/internal/models"
	syncpkg "github.com/saiteja-velpula/sagepick.core/internal/sync"
	"github.com/saiteja-velpula/sagepick.core/internal/tmdb"
)

// CategoryRefreshJob rebuilds the curated category shelves (popular, top
// rated, now playing, upcoming). Each run syncs the genre list, makes sure
// every listed movie exists fully hydrated, then replaces the category's
// membership in listed order.
type CategoryRefreshJob struct {
	client            *tmdb.Client
	orchestrator      *syncpkg.Orchestrator
	store             db.Store
	genres            *cache.GenreCache
	moviesPerCategory int
	logger            *logrus.Logger
}

func NewCategoryRefreshJob(client *tmdb.Client, orchestrator *syncpkg.Orchestrator, store db.Store, genres *cache.GenreCache, cfg config.JobsConfig, logger *logrus.Logger) *CategoryRefreshJob {
	return &CategoryRefreshJob{
		client:            client,
		orchestrator:      orchestrator,
		store:             store,
		genres:            genres,
		moviesPerCategory: cfg.MoviesPerCategory,
		logger:            logger,
	}
}

// SyncGenres pulls the genre list, upserts it, and resets the cache so the
// next lookup reloads the full table. Each refresh run starts with it, and
// main calls it once at startup so genres exist before any movie
// references them.
func (j *CategoryRefreshJob) SyncGenres(ctx context.Context) error {
	genres, err := j.client.GetGenres(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch genre list: %w", err)
	}

	pairs := make([]models.CategoryPair, 0, len(genres))
	for _, g := range genres {
		pairs = append(pairs, models.CategoryPair{TMDBID: g.ID, Name: g.Name})
	}
	if _, err := j.genres.ResolvePairs(ctx, pairs); err != nil {
		return fmt.Errorf("failed to sync genres: %w", err)
	}
	j.genres.Refresh()
	return nil
}

func (j *CategoryRefreshJob) Run(ctx context.Context, jobID int64, signal *CancelSignal) (*models.BatchProcessResult, error) {
	if err := j.SyncGenres(ctx); err != nil {
		return nil, err
	}

	categories, err := j.store.ListMediaCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list media categories: %w", err)
	}
	bySlug := make(map[string]*models.MediaCategory, len(categories))
	for _, c := range categories {
		bySlug[c.Slug] = c
	}

	total := &models.BatchProcessResult{}

	for _, category := range tmdb.Categories() {
		if signal.IsCancelled() {
			return total, context.Canceled
		}

		dbCategory, ok := bySlug[string(category)]
		if !ok {
			j.logger.WithField("category", category).Warn("Category missing from database, skipping")
			continue
		}

		page, err := j.client.ListByCategory(ctx, category, 1)
		if err != nil {
			return total, fmt.Errorf("failed to fetch %s list: %w", category, err)
		}

		summaries := page.Results
		if len(summaries) > j.moviesPerCategory {
			summaries = summaries[:j.moviesPerCategory]
		}

		listedIDs := make([]int64, 0, len(summaries))
		for _, s := range summaries {
			listedIDs = append(listedIDs, s.ID)
		}

		result, err := j.orchestrator.ProcessBatch(ctx, jobID, listedIDs, syncpkg.StrategyFetchAndInsertFull, signal.IsCancelled)
		if result != nil {
			total.Add(result)
		}
		if err != nil {
			return total, err
		}

		movies, err := j.store.GetMoviesByTMDBIDs(ctx, listedIDs)
		if err != nil {
			return total, fmt.Errorf("failed to resolve %s movies: %w", category, err)
		}
		localByTMDB := make(map[int64]int, len(movies))
		for _, m := range movies {
			localByTMDB[m.TMDBID] = m.ID
		}

		ordered := make([]int, 0, len(listedIDs))
		var missing []string
		for _, tmdbID := range listedIDs {
			if localID, ok := localByTMDB[tmdbID]; ok {
				ordered = append(ordered, localID)
			} else {
				missing = append(missing, fmt.Sprintf("%d", tmdbID))
			}
		}
		if len(missing) > 0 {
			j.logger.WithFields(logrus.Fields{
				"category": category,
				"tmdb_ids": strings.Join(missing, ","),
			}).Warn("Listed movies missing after sync, excluded from category")
		}

		if err := j.store.ReplaceCategoryMovies(ctx, dbCategory.ID, ordered); err != nil {
			return total, fmt.Errorf("failed to replace %s membership: %w", category, err)
		}

		j.logger.WithFields(logrus.Fields{
			"category": category,
			"movies":   len(ordered),
		}).Info("Category refreshed")
	}

	return total, nil
}
