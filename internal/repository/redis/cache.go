package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const embeddingCachePrefix = "embedding:"

// EmbeddingCache stores normalized embedding vectors in Redis
type EmbeddingCache struct {
	client *Client
}

// NewEmbeddingCache creates a new embedding cache
func NewEmbeddingCache(client *Client) *EmbeddingCache {
	return &EmbeddingCache{client: client}
}

// Get retrieves a cached vector. A miss is reported as ok=false.
func (c *EmbeddingCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	data, err := c.client.rdb.Get(ctx, embeddingCachePrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read embedding cache: %w", err)
	}

	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal embedding: %w", err)
	}
	return vec, true, nil
}

// Set caches a vector
func (c *EmbeddingCache) Set(ctx context.Context, key string, vec []float32, ttl time.Duration) error {
	data, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}
	return c.client.rdb.Set(ctx, embeddingCachePrefix+key, data, ttl).Err()
}

// FlushAll removes all cached embeddings
func (c *EmbeddingCache) FlushAll(ctx context.Context) (int64, error) {
	pattern := embeddingCachePrefix + "*"
	var cursor uint64
	var deleted int64

	for {
		keys, nextCursor, err := c.client.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(keys) > 0 {
			count, err := c.client.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("failed to delete keys: %w", err)
			}
			deleted += count
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return deleted, nil
}
