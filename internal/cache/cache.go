package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kiranshivaraju/triage/pkg/models"
)

// Cache holds the short-lived state of the API: recently finished runs and
// rate-limit counters. Implementations must be safe for concurrent use.
type Cache interface {
	Ping(ctx context.Context) error
	SetRun(ctx context.Context, run *models.RunRecord, ttl time.Duration) error
	GetRun(ctx context.Context, runID string) (*models.RunRecord, bool, error)
	IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error)
}

// RedisCache implements Cache on go-redis/v9. Values are stored as JSON.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a RedisCache from a redis:// or rediss:// URL. No
// connection is made until the first command; call Ping to verify.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// SetRun stores a finished run under RunKey.
func (c *RedisCache) SetRun(ctx context.Context, run *models.RunRecord, ttl time.Duration) error {
	return setJSON(ctx, c.client, RunKey(run.RunID), run, ttl)
}

// GetRun returns the cached run, or found=false on a miss. An entry that
// no longer decodes is reported as an error, not a miss.
func (c *RedisCache) GetRun(ctx context.Context, runID string) (*models.RunRecord, bool, error) {
	return getJSON[models.RunRecord](ctx, c.client, RunKey(runID))
}

// IncrWithExpiry increments key and, only when it has no TTL yet, sets one.
// The first request of a window therefore fixes when the window ends.
func (c *RedisCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func setJSON(ctx context.Context, client redis.Cmdable, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return client.Set(ctx, key, data, ttl).Err()
}

func getJSON[T any](ctx context.Context, client redis.Cmdable, key string) (*T, bool, error) {
	data, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return &v, true, nil
}

var _ Cache = (*RedisCache)(nil)
