package ratelimiter

import (
	"context"
	"math"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// MemoryLimiter is a per-process token bucket limiter, used when no redis is
// configured. Buckets of idle keys are evicted.
type MemoryLimiter struct {
	buckets *expirable.LRU[string, *rate.Limiter]
}

func NewMemoryLimiter(size int, idle time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		buckets: expirable.NewLRU[string, *rate.Limiter](size, nil, idle),
	}
}

func (rl *MemoryLimiter) Allow(ctx context.Context, key string, quota int, duration time.Duration) (Result, error) {
	limiter, ok := rl.buckets.Get(key)
	if !ok {
		limiter = rate.NewLimiter(rate.Every(duration/time.Duration(quota)), quota)
		rl.buckets.Add(key, limiter)
	}

	now := time.Now()
	r := limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	if delay > 0 {
		r.CancelAt(now)
		return Result{Allowed: false, RetryAfter: delay, Reset: delay}, nil
	}
	remaining := int(math.Floor(limiter.TokensAt(now)))
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Remaining: remaining}, nil
}
