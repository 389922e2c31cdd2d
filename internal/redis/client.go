package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	keywordHashKey    = "sagepick:tmdb:keywords"
	hydrationQueueKey = "hydration:queue"
	jobStateKeyPrefix = "job_state:"
)

// Client wraps the shared Redis connection. All sync-state coordination
// (locks, keyword mirror, hydration queue, scheduler state) goes through it.
type Client struct {
	rdb *redis.Client
}

// NewClient connects to Redis using a redis:// URL and verifies the
// connection with a ping before returning.
func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// SetJobState stores a JSON snapshot of a job type's scheduler state with a
// TTL so stale state expires on its own.
func (c *Client) SetJobState(ctx context.Context, jobType string, state interface{}, ttl time.Duration) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal job state: %w", err)
	}

	if err := c.rdb.Set(ctx, jobStateKeyPrefix+jobType, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store job state: %w", err)
	}
	return nil
}

// GetJobState unmarshals the stored state into dest. Returns false when no
// state exists for the job type.
func (c *Client) GetJobState(ctx context.Context, jobType string, dest interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, jobStateKeyPrefix+jobType).Result()
	if err == redis.Nil {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to get job state: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal job state: %w", err)
	}
	return true, nil
}

// EnqueueHydration adds movie IDs to the hydration set. Membership is
// set-based so repeated enqueues of the same ID are free.
func (c *Client) EnqueueHydration(ctx context.Context, tmdbIDs ...int64) error {
	if len(tmdbIDs) == 0 {
		return nil
	}

	members := make([]interface{}, len(tmdbIDs))
	for i, id := range tmdbIDs {
		members[i] = id
	}

	if err := c.rdb.SAdd(ctx, hydrationQueueKey, members...).Err(); err != nil {
		return fmt.Errorf("failed to enqueue hydration ids: %w", err)
	}
	return nil
}

// DequeueHydration pops up to count movie IDs from the hydration set.
// Returns an empty slice when the set is empty.
func (c *Client) DequeueHydration(ctx context.Context, count int) ([]int64, error) {
	raw, err := c.rdb.SPopN(ctx, hydrationQueueKey, int64(count)).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to pop hydration ids: %w", err)
	}

	ids := make([]int64, 0, len(raw))
	for _, s := range raw {
		var id int64
		if _, err := fmt.Sscanf(s, "%d", &id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *Client) HydrationQueueSize(ctx context.Context) (int64, error) {
	n, err := c.rdb.SCard(ctx, hydrationQueueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read hydration queue size: %w", err)
	}
	return n, nil
}

// LoadKeywordMirror reads the full keyword hash: tmdb_id -> local id.
func (c *Client) LoadKeywordMirror(ctx context.Context) (map[int64]int, error) {
	raw, err := c.rdb.HGetAll(ctx, keywordHashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load keyword mirror: %w", err)
	}

	out := make(map[int64]int, len(raw))
	for k, v := range raw {
		var tmdbID int64
		var localID int
		if _, err := fmt.Sscanf(k, "%d", &tmdbID); err != nil {
			continue
		}
		if _, err := fmt.Sscanf(v, "%d", &localID); err != nil {
			continue
		}
		out[tmdbID] = localID
	}
	return out, nil
}

// StoreKeywordMappings writes tmdb_id -> local id pairs into the keyword
// hash in a single HSET.
func (c *Client) StoreKeywordMappings(ctx context.Context, mappings map[int64]int) error {
	if len(mappings) == 0 {
		return nil
	}

	fields := make([]interface{}, 0, len(mappings)*2)
	for tmdbID, localID := range mappings {
		fields = append(fields, fmt.Sprintf("%d", tmdbID), fmt.Sprintf("%d", localID))
	}

	if err := c.rdb.HSet(ctx, keywordHashKey, fields...).Err(); err != nil {
		return fmt.Errorf("failed to store keyword mappings: %w", err)
	}
	return nil
}
