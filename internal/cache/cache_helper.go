package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheHelper provides common caching operations for repositories and services
type CacheHelper struct {
	client *redis.Client
	prefix string
}

// NewCacheHelper creates a new cache helper instance
func NewCacheHelper(client *redis.Client, prefix string) *CacheHelper {
	return &CacheHelper{
		client: client,
		prefix: prefix,
	}
}

// CacheConfig defines cache configuration for different data types
type CacheConfig struct {
	TTL    time.Duration
	Prefix string
}

var (
	// Admin reports are polled every few seconds and invalidated on every
	// completion or reset, so the TTL only bounds staleness after a missed invalidation.
	ReportCacheConfig = CacheConfig{
		TTL:    30 * time.Second,
		Prefix: "report:",
	}

	// Session counters never expire on their own; see redisstore
	SessionCacheConfig = CacheConfig{
		TTL:    0,
		Prefix: "session:",
	}
)

// Cache errors
var (
	ErrCacheNotAvailable = errors.New("cache not available")
	ErrCacheNotFound     = errors.New("cache not found")
)

// Available reports whether a redis client is configured
func (c *CacheHelper) Available() bool {
	return c != nil && c.client != nil
}

// GetCacheKey generates a cache key with prefix
func (c *CacheHelper) GetCacheKey(key string) string {
	return fmt.Sprintf("%s%s", c.prefix, key)
}

// Get retrieves and unmarshals data from cache
func (c *CacheHelper) Get(ctx context.Context, key string, dest interface{}) error {
	if !c.Available() {
		return ErrCacheNotAvailable
	}

	data, err := c.client.Get(ctx, c.GetCacheKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheNotFound
		}
		return fmt.Errorf("cache get error: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}

	return nil
}

// Set marshals and stores data in cache
func (c *CacheHelper) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.Available() {
		return nil // Graceful degradation when cache not available
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}

	return c.client.Set(ctx, c.GetCacheKey(key), data, ttl).Err()
}

// Delete removes data from cache
func (c *CacheHelper) Delete(ctx context.Context, keys ...string) error {
	if !c.Available() || len(keys) == 0 {
		return nil
	}

	cacheKeys := make([]string, len(keys))
	for i, key := range keys {
		cacheKeys[i] = c.GetCacheKey(key)
	}

	return c.client.Del(ctx, cacheKeys...).Err()
}

// GetMultiple retrieves raw values for several keys; missing keys are omitted
func (c *CacheHelper) GetMultiple(ctx context.Context, keys []string) (map[string]string, error) {
	if !c.Available() {
		return nil, ErrCacheNotAvailable
	}

	if len(keys) == 0 {
		return map[string]string{}, nil
	}

	cacheKeys := make([]string, len(keys))
	for i, key := range keys {
		cacheKeys[i] = c.GetCacheKey(key)
	}

	values, err := c.client.MGet(ctx, cacheKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("cache mget error: %w", err)
	}

	result := make(map[string]string)
	for i, value := range values {
		if str, ok := value.(string); ok {
			result[keys[i]] = str
		}
	}

	return result, nil
}

// Keys lists keys matching pattern using SCAN, returned without the helper prefix
func (c *CacheHelper) Keys(ctx context.Context, pattern string) ([]string, error) {
	full, err := c.scan(ctx, pattern)
	if err != nil {
		return nil, err
	}

	keys := make([]string, len(full))
	for i, k := range full {
		keys[i] = k[len(c.prefix):]
	}
	return keys, nil
}

func (c *CacheHelper) scan(ctx context.Context, pattern string) ([]string, error) {
	if !c.Available() {
		return nil, ErrCacheNotAvailable
	}

	fullPattern := c.GetCacheKey(pattern)
	var cursor uint64
	var keys []string

	// Use SCAN instead of KEYS for better performance
	for {
		var scanKeys []string
		var err error
		scanKeys, cursor, err = c.client.Scan(ctx, cursor, fullPattern, 100).Result()
		if err != nil {
			slog.ErrorContext(ctx, "Cache scan pattern error",
				"error", err,
				"pattern", fullPattern)
			return nil, fmt.Errorf("cache scan pattern error: %w", err)
		}
		keys = append(keys, scanKeys...)
		if cursor == 0 {
			break
		}
	}

	return keys, nil
}

// InvalidatePattern removes all keys matching a pattern
func (c *CacheHelper) InvalidatePattern(ctx context.Context, pattern string) error {
	if !c.Available() {
		return nil
	}

	keys, err := c.scan(ctx, pattern)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	// Delete using pipeline for better performance
	pipe := c.client.Pipeline()
	const batchSize = 100
	for i := 0; i < len(keys); i += batchSize {
		end := i + batchSize
		if end > len(keys) {
			end = len(keys)
		}
		pipe.Del(ctx, keys[i:end]...)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		slog.ErrorContext(ctx, "Cache pipeline delete error",
			"error", err,
			"total_keys", len(keys))
		return fmt.Errorf("cache pipeline delete error: %w", err)
	}

	return nil
}

// generationKey holds a counter bumped on every invalidation. Cached values are
// stored under the generation current when their fetch began, so a fetch that
// races an invalidation writes to a key no later reader looks at.
const generationKey = "generation"

// Generation returns the current invalidation generation, 0 if none was recorded
func (c *CacheHelper) Generation(ctx context.Context) (int64, error) {
	if !c.Available() {
		return 0, ErrCacheNotAvailable
	}

	gen, err := c.client.Get(ctx, c.GetCacheKey(generationKey)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("cache generation error: %w", err)
	}
	return gen, nil
}

// Bump starts a new generation, orphaning every value cached under the old one
func (c *CacheHelper) Bump(ctx context.Context) error {
	if !c.Available() {
		return nil
	}
	return c.client.Incr(ctx, c.GetCacheKey(generationKey)).Err()
}

// VersionedKey is the key CacheOrExecute stores key under for generation gen
func VersionedKey(key string, gen int64) string {
	return fmt.Sprintf("%s:g%d", key, gen)
}

// CacheOrExecute implements cache-aside pattern with proper error handling
func (c *CacheHelper) CacheOrExecute(ctx context.Context, key string, dest interface{}, ttl time.Duration, fetchFunc func() (interface{}, error)) error {
	cacheable := c.Available()
	gen, err := c.Generation(ctx)
	if err != nil {
		if !errors.Is(err, ErrCacheNotAvailable) {
			slog.Info("Cache generation error, bypassing cache", "error", err, "key", key)
		}
		cacheable = false
	}
	versioned := VersionedKey(key, gen)

	if cacheable {
		err := c.Get(ctx, versioned, dest)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrCacheNotFound) {
			slog.Info("Cache get error, proceeding to fetch", "error", err, "key", key)
		}
	}

	value, err := fetchFunc()
	if err != nil {
		return fmt.Errorf("fetch function error: %w", err)
	}

	if cacheable {
		// the request context may already be cancelled once the fetch returns
		setCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if err := c.Set(setCtx, versioned, value, ttl); err != nil {
			slog.Error("Cache set error", "error", err, "key", key)
		}
		cancel()
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal result error: %w", err)
	}

	return json.Unmarshal(data, dest)
}

// CacheManager manages the cache helpers used by the quiz service
type CacheManager struct {
	client *redis.Client
	Report *CacheHelper
}

// NewCacheManager creates cache manager with all cache helpers. A nil client
// yields helpers that miss on every read and drop every write.
func NewCacheManager(client *redis.Client) *CacheManager {
	return &CacheManager{
		client: client,
		Report: NewCacheHelper(client, ReportCacheConfig.Prefix),
	}
}

// HealthCheck verifies cache connectivity
func (cm *CacheManager) HealthCheck(ctx context.Context) error {
	if cm.client == nil {
		return ErrCacheNotAvailable
	}

	if _, err := cm.client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}

	return nil
}
