package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/saiteja-velpula/sagepick.core/internal/db"
	"github.com/saiteja-velpula/sagepick.core/internal/models"
)

// GenreCache maps TMDB genre IDs to local primary keys. The genre universe
// is tiny and changes almost never, so the cache is in-process only and
// loaded lazily from Postgres on first use.
type GenreCache struct {
	store  db.Store
	logger *logrus.Logger

	mu     sync.Mutex
	loaded bool
	byTMDB map[int64]int
}

func NewGenreCache(store db.Store, logger *logrus.Logger) *GenreCache {
	return &GenreCache{
		store:  store,
		logger: logger,
		byTMDB: make(map[int64]int),
	}
}

// ensureLoaded populates the map from the genres table once. Callers must
// hold the mutex.
func (c *GenreCache) ensureLoaded(ctx context.Context) error {
	if c.loaded {
		return nil
	}

	mappings, err := c.store.ListGenreMappings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load genre mappings: %w", err)
	}

	for tmdbID, localID := range mappings {
		c.byTMDB[tmdbID] = localID
	}
	c.loaded = true

	c.logger.WithField("count", len(c.byTMDB)).Debug("Genre cache loaded")
	return nil
}

// Get returns the local ID for a TMDB genre, if known.
func (c *GenreCache) Get(ctx context.Context, tmdbID int64) (int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(ctx); err != nil {
		return 0, false, err
	}
	localID, ok := c.byTMDB[tmdbID]
	return localID, ok, nil
}

// ResolvePairs maps TMDB genre (id, name) pairs to local IDs, upserting
// any genres not yet in the database. A batch upsert handles the misses;
// if the batch fails, each miss falls back to an individual upsert so one
// bad row cannot sink the whole set.
func (c *GenreCache) ResolvePairs(ctx context.Context, pairs []models.CategoryPair) (map[int64]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	resolved := make(map[int64]int, len(pairs))
	var missing []models.CategoryPair
	for _, p := range pairs {
		if localID, ok := c.byTMDB[p.TMDBID]; ok {
			resolved[p.TMDBID] = localID
		} else {
			missing = append(missing, p)
		}
	}

	if len(missing) == 0 {
		return resolved, nil
	}

	inserted, err := c.store.BatchUpsertGenres(ctx, missing)
	if err != nil {
		c.logger.WithError(err).Warn("Batch genre upsert failed, falling back to per-genre upserts")
		inserted = make(map[int64]int, len(missing))
		for _, p := range missing {
			localID, upsertErr := c.store.UpsertGenre(ctx, p.TMDBID, p.Name)
			if upsertErr != nil {
				return nil, fmt.Errorf("failed to upsert genre %d: %w", p.TMDBID, upsertErr)
			}
			inserted[p.TMDBID] = localID
		}
	}

	for tmdbID, localID := range inserted {
		if tmdbID <= 0 || localID <= 0 {
			c.logger.WithFields(logrus.Fields{
				"tmdb_id":  tmdbID,
				"local_id": localID,
			}).Warn("Refusing to cache invalid genre mapping")
			continue
		}
		c.byTMDB[tmdbID] = localID
		resolved[tmdbID] = localID
	}

	return resolved, nil
}

// Refresh drops the cached map so the next use reloads from Postgres.
func (c *GenreCache) Refresh() {
	c.mu.Lock()
	c.loaded = false
	c.byTMDB = make(map[int64]int)
	c.mu.Unlock()
}
