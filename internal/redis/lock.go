package redis

import (
	"context"
	"fmt"
	"time"
)

const movieLockKeyPrefix = "movie_lock:"

// MovieLocker provides a best-effort distributed lock per movie so two
// overlapping jobs never write the same title at once. Locks auto-expire
// after the TTL; a crashed holder never blocks a movie forever.
type MovieLocker struct {
	client *Client
	ttl    time.Duration
}

func NewMovieLocker(client *Client, ttl time.Duration) *MovieLocker {
	return &MovieLocker{client: client, ttl: ttl}
}

func lockKey(tmdbID int64) string {
	return fmt.Sprintf("%s%d", movieLockKeyPrefix, tmdbID)
}

// Acquire attempts to take the lock for a movie. Returns false when another
// holder currently owns it. An error means the lock state is unknown and the
// caller should treat the item as failed rather than skipped.
func (l *MovieLocker) Acquire(ctx context.Context, tmdbID int64) (bool, error) {
	ok, err := l.client.rdb.SetNX(ctx, lockKey(tmdbID), 1, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock for movie %d: %w", tmdbID, err)
	}
	return ok, nil
}

// Release deletes the lock. Releasing a lock that already expired is a no-op.
func (l *MovieLocker) Release(ctx context.Context, tmdbID int64) error {
	if err := l.client.rdb.Del(ctx, lockKey(tmdbID)).Err(); err != nil {
		return fmt.Errorf("failed to release lock for movie %d: %w", tmdbID, err)
	}
	return nil
}

// Extend resets the TTL of a held lock. Returns false when the lock has
// already expired or was never held, in which case the holder no longer has
// exclusivity.
func (l *MovieLocker) Extend(ctx context.Context, tmdbID int64) (bool, error) {
	ok, err := l.client.rdb.Expire(ctx, lockKey(tmdbID), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to extend lock for movie %d: %w", tmdbID, err)
	}
	return ok, nil
}
