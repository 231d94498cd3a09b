package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rollout/backend/internal/infrastructure/config"
)

// RedisNarrativeCache implements NarrativeCache on Redis. This is the store
// to use when several instances serve the dashboard and must share entries.
type RedisNarrativeCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisNarrativeCache creates a Redis-backed narrative cache and verifies
// the connection before returning.
func NewRedisNarrativeCache(cfg config.RedisConfig) (*RedisNarrativeCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultNarrativeTTL
	}

	return &RedisNarrativeCache{
		client:    client,
		keyPrefix: "narrative:",
		ttl:       ttl,
	}, nil
}

// NewRedisNarrativeCacheWithClient creates a cache over an existing client.
// Useful for testing or when sharing a client across components.
func NewRedisNarrativeCacheWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisNarrativeCache {
	if keyPrefix == "" {
		keyPrefix = "narrative:"
	}
	if ttl <= 0 {
		ttl = DefaultNarrativeTTL
	}
	return &RedisNarrativeCache{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// Get returns the cached narrative when present and the stored content hash
// matches. A hash mismatch counts as a miss but leaves the entry in place
// until Set replaces it.
func (c *RedisNarrativeCache) Get(ctx context.Context, projectID string, contentHash string) (string, bool, error) {
	raw, err := c.client.Get(ctx, c.keyPrefix+projectID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read narrative cache: %w", err)
	}

	var entry narrativeEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		// Corrupt entry, treat as a miss.
		return "", false, nil
	}
	if entry.ContentHash != contentHash {
		return "", false, nil
	}
	return entry.Narrative, true, nil
}

// Set stores the narrative with its content hash, overwriting any previous
// entry for the project.
func (c *RedisNarrativeCache) Set(ctx context.Context, projectID string, contentHash string, narrative string) error {
	raw, err := json.Marshal(narrativeEntry{ContentHash: contentHash, Narrative: narrative})
	if err != nil {
		return fmt.Errorf("failed to encode narrative entry: %w", err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+projectID, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write narrative cache: %w", err)
	}
	return nil
}

// Invalidate drops the entry for the project.
func (c *RedisNarrativeCache) Invalidate(ctx context.Context, projectID string) error {
	if err := c.client.Del(ctx, c.keyPrefix+projectID).Err(); err != nil {
		return fmt.Errorf("failed to invalidate narrative cache: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (c *RedisNarrativeCache) Close() error {
	return c.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring).
func (c *RedisNarrativeCache) GetClient() *redis.Client {
	return c.client
}

var _ NarrativeCache = (*RedisNarrativeCache)(nil)
