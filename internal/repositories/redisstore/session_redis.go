package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/cache"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/repositories"
)

// incrementScript adds one to KEYS[1] unless it already reached ARGV[1].
// Returns the new count, or -1 when the limit was hit.
var incrementScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if current >= tonumber(ARGV[1]) then
	return -1
end
return redis.call("INCR", KEYS[1])
`)

// SessionRedis keeps login counters in redis so several service instances
// share one cap.
type SessionRedis struct {
	client *redis.Client
	keys   *cache.CacheHelper
}

func NewSessionRedis(client *redis.Client) repositories.SessionRepository {
	return &SessionRedis{
		client: client,
		keys:   cache.NewCacheHelper(client, cache.SessionCacheConfig.Prefix),
	}
}

func (s *SessionRedis) Get(ctx context.Context, email string) (int, error) {
	val, err := s.client.Get(ctx, s.keys.GetCacheKey(email)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read session count: %w", err)
	}
	return val, nil
}

func (s *SessionRedis) Increment(ctx context.Context, email string, limit int) (int, error) {
	res, err := incrementScript.Run(ctx, s.client, []string{s.keys.GetCacheKey(email)}, limit).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to increment session count: %w", err)
	}
	if res < 0 {
		return 0, repositories.ErrSessionLimit
	}
	return res, nil
}

func (s *SessionRedis) All(ctx context.Context) (map[string]int, error) {
	emails, err := s.keys.Keys(ctx, "*")
	if err != nil {
		return nil, fmt.Errorf("failed to list session keys: %w", err)
	}

	values, err := s.keys.GetMultiple(ctx, emails)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(values))
	for email, raw := range values {
		n, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		counts[email] = n
	}
	return counts, nil
}

func (s *SessionRedis) DeleteAll(ctx context.Context) error {
	return s.keys.InvalidatePattern(ctx, "*")
}
