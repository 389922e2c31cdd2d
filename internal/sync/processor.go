package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/saiteja-velpula/sagepick.core/internal/cache"
	"github.com/saiteja-velpula/sagepick.core/internal/db"
	"github.com/saiteja-velpula/sagepick.core/internal/models"
	"github.com/saiteja-velpula/sagepick.core/internal/tmdb"
)

// HydrationQueue accepts movie IDs for deferred background hydration.
type HydrationQueue interface {
	EnqueueHydration(ctx context.Context, tmdbIDs ...int64) error
}

// Strategy selects how the processor reconciles one movie against the
// catalog.
type Strategy int

const (
	// StrategyInsertAndQueue inserts a minimal row from list data and
	// defers the full fetch to the hydration worker. New rows only.
	StrategyInsertAndQueue Strategy = iota
	// StrategyFetchAndInsertFull leaves fully hydrated rows alone,
	// hydrates partial rows, and fetches-then-inserts missing ones.
	StrategyFetchAndInsertFull
	// StrategyFetchAndUpsert always fetches fresh details and writes
	// them, whatever the current row state.
	StrategyFetchAndUpsert
)

func (s Strategy) String() string {
	switch s {
	case StrategyInsertAndQueue:
		return "insert_and_queue"
	case StrategyFetchAndInsertFull:
		return "fetch_and_insert_full"
	case StrategyFetchAndUpsert:
		return "fetch_and_upsert"
	default:
		return "unknown"
	}
}

// Processor writes single movies to the catalog using one of the three
// strategies. It owns the TMDB fetch path (rate limited) and foreign-key
// resolution through the caches; locking and batch accounting live in
// Orchestrator.
type Processor struct {
	store    db.Store
	client   *tmdb.Client
	limiter  *Limiter
	genres   *cache.GenreCache
	keywords *cache.KeywordCache
	redis    HydrationQueue
	logger   *logrus.Logger
}

func NewProcessor(store db.Store, client *tmdb.Client, limiter *Limiter, genres *cache.GenreCache, keywords *cache.KeywordCache, redisClient HydrationQueue, logger *logrus.Logger) *Processor {
	return &Processor{
		store:    store,
		client:   client,
		limiter:  limiter,
		genres:   genres,
		keywords: keywords,
		redis:    redisClient,
		logger:   logger,
	}
}

func parseReleaseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

// fetchAndResolve pulls details and keywords for a movie, with the two
// requests issued concurrently behind the limiter, then resolves genre and
// keyword foreign keys through the caches.
func (p *Processor) fetchAndResolve(ctx context.Context, tmdbID int64) (*models.Movie, []int, []int, error) {
	type detailsResult struct {
		details *tmdb.MovieDetails
		err     error
	}
	type keywordsResult struct {
		keywords []tmdb.KeywordRef
		err      error
	}

	detailsCh := make(chan detailsResult, 1)
	keywordsCh := make(chan keywordsResult, 1)

	go func() {
		if err := p.limiter.Acquire(ctx); err != nil {
			detailsCh <- detailsResult{err: err}
			return
		}
		d, err := p.client.GetMovie(ctx, tmdbID)
		detailsCh <- detailsResult{details: d, err: err}
	}()
	go func() {
		if err := p.limiter.Acquire(ctx); err != nil {
			keywordsCh <- keywordsResult{err: err}
			return
		}
		k, err := p.client.GetMovieKeywords(ctx, tmdbID)
		keywordsCh <- keywordsResult{keywords: k, err: err}
	}()

	dr := <-detailsCh
	kr := <-keywordsCh
	if dr.err != nil {
		return nil, nil, nil, fmt.Errorf("failed to fetch movie %d: %w", tmdbID, dr.err)
	}
	if kr.err != nil {
		return nil, nil, nil, fmt.Errorf("failed to fetch keywords for movie %d: %w", tmdbID, kr.err)
	}

	genrePairs := make([]models.CategoryPair, 0, len(dr.details.Genres))
	for _, g := range dr.details.Genres {
		genrePairs = append(genrePairs, models.CategoryPair{TMDBID: g.ID, Name: g.Name})
	}
	genreMap, err := p.genres.ResolvePairs(ctx, genrePairs)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to resolve genres for movie %d: %w", tmdbID, err)
	}

	keywordPairs := make([]models.CategoryPair, 0, len(kr.keywords))
	for _, k := range kr.keywords {
		keywordPairs = append(keywordPairs, models.CategoryPair{TMDBID: k.ID, Name: k.Name})
	}
	keywordMap, err := p.keywords.ResolvePairs(ctx, keywordPairs)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to resolve keywords for movie %d: %w", tmdbID, err)
	}

	genreIDs := make([]int, 0, len(genreMap))
	for _, g := range dr.details.Genres {
		if id, ok := genreMap[g.ID]; ok {
			genreIDs = append(genreIDs, id)
		}
	}
	keywordIDs := make([]int, 0, len(keywordMap))
	for _, k := range kr.keywords {
		if id, ok := keywordMap[k.ID]; ok {
			keywordIDs = append(keywordIDs, id)
		}
	}

	now := time.Now().UTC()
	movie := &models.Movie{
		TMDBID:           dr.details.ID,
		Title:            dr.details.Title,
		OriginalTitle:    dr.details.OriginalTitle,
		Overview:         dr.details.Overview,
		OriginalLanguage: dr.details.OriginalLanguage,
		ReleaseDate:      parseReleaseDate(dr.details.ReleaseDate),
		Runtime:          dr.details.Runtime,
		Budget:           dr.details.Budget,
		Revenue:          dr.details.Revenue,
		VoteAverage:      dr.details.VoteAverage,
		VoteCount:        dr.details.VoteCount,
		Popularity:       dr.details.Popularity,
		PosterPath:       dr.details.PosterPath,
		BackdropPath:     dr.details.BackdropPath,
		Adult:            dr.details.Adult,
		Status:           dr.details.Status,
		Hydrated:         true,
		HydrationSource:  "detail_fetch",
		LastHydratedAt:   &now,
	}

	return movie, genreIDs, keywordIDs, nil
}

// InsertAndQueue writes a minimal unhydrated row from list data and queues
// the movie for background hydration. Existing rows are left untouched.
func (p *Processor) InsertAndQueue(ctx context.Context, summary tmdb.MovieSummary) error {
	movie := &models.Movie{
		TMDBID:           summary.ID,
		Title:            summary.Title,
		OriginalTitle:    summary.OriginalTitle,
		Overview:         summary.Overview,
		OriginalLanguage: summary.OriginalLanguage,
		ReleaseDate:      parseReleaseDate(summary.ReleaseDate),
		VoteAverage:      summary.VoteAverage,
		VoteCount:        summary.VoteCount,
		Popularity:       summary.Popularity,
		PosterPath:       summary.PosterPath,
		BackdropPath:     summary.BackdropPath,
		Adult:            summary.Adult,
		Hydrated:         false,
		HydrationSource:  "list_insert",
	}

	inserted, err := p.store.InsertMovieMinimal(ctx, movie)
	if err != nil {
		return fmt.Errorf("failed to insert movie %d: %w", summary.ID, err)
	}
	if !inserted {
		return nil
	}

	if err := p.redis.EnqueueHydration(ctx, summary.ID); err != nil {
		p.logger.WithField("tmdb_id", summary.ID).WithError(err).
			Warn("Inserted movie but failed to queue hydration")
	}
	return nil
}

// FetchAndInsertFull makes sure a movie exists fully hydrated: hydrated
// rows are a no-op, partial rows get hydrated in place, missing rows are
// fetched and written complete.
func (p *Processor) FetchAndInsertFull(ctx context.Context, tmdbID int64) error {
	existing, err := p.store.GetMovieByTMDBID(ctx, tmdbID)
	if err != nil {
		return fmt.Errorf("failed to look up movie %d: %w", tmdbID, err)
	}
	if existing != nil && existing.Hydrated {
		return nil
	}

	return p.FetchAndUpsert(ctx, tmdbID)
}

// FetchAndUpsert fetches fresh details and writes them unconditionally.
func (p *Processor) FetchAndUpsert(ctx context.Context, tmdbID int64) error {
	movie, genreIDs, keywordIDs, err := p.fetchAndResolve(ctx, tmdbID)
	if err != nil {
		return err
	}

	if _, err := p.store.UpsertMovieWithRelationships(ctx, movie, genreIDs, keywordIDs); err != nil {
		return fmt.Errorf("failed to upsert movie %d: %w", tmdbID, err)
	}
	return nil
}

// Process dispatches one movie ID through the given strategy.
// StrategyInsertAndQueue needs list data and is driven through
// InsertAndQueue directly.
func (p *Processor) Process(ctx context.Context, tmdbID int64, strategy Strategy) error {
	switch strategy {
	case StrategyFetchAndInsertFull:
		return p.FetchAndInsertFull(ctx, tmdbID)
	case StrategyFetchAndUpsert:
		return p.FetchAndUpsert(ctx, tmdbID)
	default:
		return fmt.Errorf("strategy %s cannot process a bare movie ID", strategy)
	}
}
