package ratelimiter

import (
	"context"
	"time"

	"github.com/go-redis/redis_rate/v10"
)

const redisKeyPrefix = "trackify:ratelimit:"

// RedisLimiter shares quotas between nodes through a GCRA limiter in redis.
type RedisLimiter struct {
	limiter *redis_rate.Limiter
}

func NewRedisLimiter(limiter *redis_rate.Limiter) *RedisLimiter {
	return &RedisLimiter{limiter: limiter}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string, quota int, duration time.Duration) (Result, error) {
	r, err := rl.limiter.Allow(ctx, redisKeyPrefix+key, redis_rate.Limit{
		Rate:   quota,
		Burst:  quota,
		Period: duration,
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Allowed:   r.Allowed > 0,
		Remaining: r.Remaining,
		Reset:     r.ResetAfter,
	}
	// redis_rate reports -1 when the request was allowed
	if r.RetryAfter > 0 {
		res.RetryAfter = r.RetryAfter
	}
	return res, nil
}
