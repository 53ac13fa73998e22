package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces claim keys in a shared Redis.
const KeyPrefix = "runtelemetry:run:"

// RedisGuard is a Guard shared by every replica pointing at the same Redis.
type RedisGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisGuard wraps an existing client.
func NewRedisGuard(rdb *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{rdb: rdb, ttl: ttl}
}

// DialRedis parses a redis:// URL, connects and pings.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("dedupe: redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("dedupe: redis ping: %w", err)
	}
	return rdb, nil
}

func (g *RedisGuard) Claim(ctx context.Context, runID string) (bool, error) {
	ok, err := g.rdb.SetNX(ctx, KeyPrefix+runID, time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe: claim %s: %w", runID, err)
	}
	return ok, nil
}

func (g *RedisGuard) Release(ctx context.Context, runID string) error {
	if err := g.rdb.Del(ctx, KeyPrefix+runID).Err(); err != nil {
		return fmt.Errorf("dedupe: release %s: %w", runID, err)
	}
	return nil
}

// Ping reports whether Redis is reachable; used by health checks.
func (g *RedisGuard) Ping(ctx context.Context) error {
	return g.rdb.Ping(ctx).Err()
}
