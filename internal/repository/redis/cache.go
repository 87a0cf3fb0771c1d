// Package redis provides the Redis-backed experiment report cache.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/limiquantix/placesim/internal/config"
	"github.com/limiquantix/placesim/internal/domain"
	"github.com/limiquantix/placesim/internal/experiment"
)

// Ensure Cache implements experiment.ReportCache
var _ experiment.ReportCache = (*Cache)(nil)

const reportKeyPrefix = "placesim:report:"

// encMode keeps sub-second timestamps.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
}

// Cache wraps a Redis client for caching operations. Values are CBOR encoded.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCache creates a new Redis cache connection.
func NewCache(cfg config.RedisConfig, logger *zap.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis",
		zap.String("addr", cfg.Address()),
		zap.Duration("ttl", cfg.TTL),
	)

	return &Cache{
		client: client,
		ttl:    cfg.TTL,
		logger: logger.With(zap.String("component", "report-cache")),
	}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Health checks if Redis is reachable.
func (c *Cache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// =============================================================================
// Generic Cache Operations
// =============================================================================

// Get retrieves a value from cache and decodes it into dest.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get error: %w", err)
	}

	if err := cbor.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("failed to decode cached value: %w", err)
	}
	return nil
}

// Set stores a value in cache with a TTL. A zero TTL keeps the key forever.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encMode.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return c.client.Set(ctx, key, data, ttl).Err()
}

// Delete removes a key from cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// DeletePattern removes all keys matching a pattern.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Warn("Failed to delete key", zap.String("key", iter.Val()), zap.Error(err))
		}
	}
	return iter.Err()
}

// =============================================================================
// Report Cache Operations
// =============================================================================

// GetRun retrieves the run cached under an experiment fingerprint.
func (c *Cache) GetRun(ctx context.Context, fingerprint string) (*domain.ExperimentRun, error) {
	var run domain.ExperimentRun
	if err := c.Get(ctx, reportKey(fingerprint), &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// SetRun stores a run under its experiment fingerprint.
func (c *Cache) SetRun(ctx context.Context, fingerprint string, run *domain.ExperimentRun) error {
	return c.Set(ctx, reportKey(fingerprint), run, c.ttl)
}

// InvalidateRun removes one cached run.
func (c *Cache) InvalidateRun(ctx context.Context, fingerprint string) error {
	return c.Delete(ctx, reportKey(fingerprint))
}

// InvalidateAll removes every cached run.
func (c *Cache) InvalidateAll(ctx context.Context) error {
	return c.DeletePattern(ctx, reportKeyPrefix+"*")
}

func reportKey(fingerprint string) string {
	return reportKeyPrefix + fingerprint
}
