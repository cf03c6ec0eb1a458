package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter implements a fixed-window counter per key, backed by
// Redis INCR/EXPIRE — the same Get/Set-style wrapping the teacher's
// RedisService used for session caching, generalized here to a
// counter. Multiple relay instances sharing one Redis instance get a
// consistent view of each key's quota.
type RedisLimiter struct {
	rdb    *redis.Client
	limit  int64
	window time.Duration
}

// NewRedisLimiter allows up to limit requests per key within window.
func NewRedisLimiter(rdb *redis.Client, limit int64, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, limit: limit, window: window}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("ratelimit:%s", key)

	count, err := r.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("ratelimit incr: %w", err)
	}
	if count == 1 {
		if err := r.rdb.Expire(ctx, redisKey, r.window).Err(); err != nil {
			return false, fmt.Errorf("ratelimit expire: %w", err)
		}
	}
	return count <= r.limit, nil
}
