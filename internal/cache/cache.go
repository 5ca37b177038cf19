package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// AggregateCache memoizes computed aggregate payloads in Redis, keyed by
// the exact filter signature. Entries expire on TTL and are flushed when a
// new dataset is ingested. Cache fills go through singleflight so a miss
// is computed once per key no matter how many sessions request it.
type AggregateCache struct {
	redis *redis.Client
	ttl   time.Duration
	group singleflight.Group
}

// New creates an aggregate cache with the given entry TTL.
func New(redisClient *redis.Client, ttl time.Duration) *AggregateCache {
	return &AggregateCache{redis: redisClient, ttl: ttl}
}

const keyPrefix = "seed:agg:"

// GetOrCompute returns the cached payload for key, computing and storing
// it on a miss. The computed value is JSON-encoded for storage; callers
// get back raw JSON either way.
func (ac *AggregateCache) GetOrCompute(ctx context.Context, key string, compute func() (interface{}, error)) ([]byte, error) {
	fullKey := keyPrefix + key

	data, err := ac.redis.Get(ctx, fullKey).Bytes()
	if err == nil {
		return data, nil
	}
	if err != redis.Nil {
		return nil, fmt.Errorf("failed to get from cache: %w", err)
	}

	result, err, _ := ac.group.Do(fullKey, func() (interface{}, error) {
		// Another waiter may have filled the key while we queued
		data, err := ac.redis.Get(ctx, fullKey).Bytes()
		if err == nil {
			return data, nil
		}

		value, err := compute()
		if err != nil {
			return nil, err
		}

		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal cache value: %w", err)
		}

		if err := ac.redis.Set(ctx, fullKey, encoded, ac.ttl).Err(); err != nil {
			return nil, fmt.Errorf("failed to set cache value: %w", err)
		}
		return encoded, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}

// Invalidate removes every cached aggregate. Called after a dataset
// ingestion completes, since all cached results are stale from then on.
func (ac *AggregateCache) Invalidate(ctx context.Context) error {
	keys, err := ac.redis.Keys(ctx, keyPrefix+"*").Result()
	if err != nil {
		return fmt.Errorf("failed to list cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := ac.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	return nil
}
