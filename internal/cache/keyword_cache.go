package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/saiteja-velpula/sagepick.core/internal/db"
	"github.com/saiteja-velpula/sagepick.core/internal/models"
)

// KeywordMirror is the shared Redis hash the cache warms from and writes
// through to.
type KeywordMirror interface {
	LoadKeywordMirror(ctx context.Context) (map[int64]int, error)
	StoreKeywordMappings(ctx context.Context, mappings map[int64]int) error
}

// KeywordCache maps TMDB keyword IDs to local primary keys. Keywords number
// in the hundreds of thousands, so the map is mirrored to a Redis hash:
// restarts warm from the mirror instead of a full table scan, and other
// instances share the same mapping. Redis failures degrade the mirror, not
// the cache; Postgres remains the source of truth.
type KeywordCache struct {
	store      db.Store
	redis      KeywordMirror
	logger     *logrus.Logger
	maxEntries int

	mu     sync.Mutex
	loaded bool
	byTMDB map[int64]int
}

func NewKeywordCache(store db.Store, redisClient KeywordMirror, maxEntries int, logger *logrus.Logger) *KeywordCache {
	return &KeywordCache{
		store:      store,
		redis:      redisClient,
		logger:     logger,
		maxEntries: maxEntries,
		byTMDB:     make(map[int64]int),
	}
}

// ensureLoaded warms the map, preferring the Redis mirror and falling back
// to a full Postgres load. A fresh Postgres load is pushed back to Redis
// when it fits under the mirror cutoff. Callers must hold the mutex.
func (c *KeywordCache) ensureLoaded(ctx context.Context) error {
	if c.loaded {
		return nil
	}

	mirror, err := c.redis.LoadKeywordMirror(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to read keyword mirror from Redis, loading from Postgres")
	} else if len(mirror) > 0 {
		c.byTMDB = mirror
		c.loaded = true
		c.logger.WithField("count", len(mirror)).Debug("Keyword cache warmed from Redis mirror")
		return nil
	}

	mappings, err := c.store.ListKeywordMappings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load keyword mappings: %w", err)
	}
	for tmdbID, localID := range mappings {
		c.byTMDB[tmdbID] = localID
	}
	c.loaded = true

	if len(c.byTMDB) > 0 && len(c.byTMDB) <= c.maxEntries {
		if err := c.redis.StoreKeywordMappings(ctx, c.byTMDB); err != nil {
			c.logger.WithError(err).Warn("Failed to persist keyword mirror to Redis")
		}
	}

	c.logger.WithField("count", len(c.byTMDB)).Debug("Keyword cache loaded from Postgres")
	return nil
}

// Get returns the local ID for a TMDB keyword, if known.
func (c *KeywordCache) Get(ctx context.Context, tmdbID int64) (int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(ctx); err != nil {
		return 0, false, err
	}
	localID, ok := c.byTMDB[tmdbID]
	return localID, ok, nil
}

// setLocked records mappings in the local map and mirrors them to Redis.
// Invalid IDs are rejected, never cached. Callers must hold the mutex.
func (c *KeywordCache) setLocked(ctx context.Context, mappings map[int64]int) {
	valid := make(map[int64]int, len(mappings))
	for tmdbID, localID := range mappings {
		if tmdbID <= 0 || localID <= 0 {
			c.logger.WithFields(logrus.Fields{
				"tmdb_id":  tmdbID,
				"local_id": localID,
			}).Warn("Refusing to cache invalid keyword mapping")
			continue
		}
		c.byTMDB[tmdbID] = localID
		valid[tmdbID] = localID
	}

	if len(valid) == 0 {
		return
	}
	if err := c.redis.StoreKeywordMappings(ctx, valid); err != nil {
		c.logger.WithError(err).Warn("Failed to mirror keyword mappings to Redis")
	}
}

// ResolvePairs maps TMDB keyword (id, name) pairs to local IDs, upserting
// unknown keywords into Postgres. Batch first, per-keyword fallback on
// batch failure.
func (c *KeywordCache) ResolvePairs(ctx context.Context, pairs []models.CategoryPair) (map[int64]int, error) {
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

	inserted, err := c.store.BatchUpsertKeywords(ctx, missing)
	if err != nil {
		c.logger.WithError(err).Warn("Batch keyword upsert failed, falling back to per-keyword upserts")
		inserted = make(map[int64]int, len(missing))
		for _, p := range missing {
			localID, upsertErr := c.store.UpsertKeyword(ctx, p.TMDBID, p.Name)
			if upsertErr != nil {
				return nil, fmt.Errorf("failed to upsert keyword %d: %w", p.TMDBID, upsertErr)
			}
			inserted[p.TMDBID] = localID
		}
	}

	c.setLocked(ctx, inserted)
	for tmdbID, localID := range inserted {
		if localID > 0 && tmdbID > 0 {
			resolved[tmdbID] = localID
		}
	}

	return resolved, nil
}
