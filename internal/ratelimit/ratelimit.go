// Package ratelimit provides two independent limiters: an in-process
// token bucket per outbound scraper (golang.org/x/time/rate), and a
// Redis-backed fixed-window counter shared across every process for
// per-route, per-IP limiting (spec.md §6 "Environment knobs").
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"
)

// ScraperLimiter hands out one token-bucket limiter per scraper name,
// mirroring the per-indexer throttling a token-bucket decorator applies
// to outbound indexer calls.
type ScraperLimiter struct {
	calls  int
	period time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewScraperLimiter(calls int, period time.Duration) *ScraperLimiter {
	return &ScraperLimiter{calls: calls, period: period, limiters: make(map[string]*rate.Limiter)}
}

func (s *ScraperLimiter) limiterFor(name string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.limiters[name]; ok {
		return l
	}
	every := rate.Every(s.period / time.Duration(s.calls))
	l := rate.NewLimiter(every, s.calls)
	s.limiters[name] = l
	return l
}

// Wait blocks until the named scraper's bucket has a token available or
// ctx is cancelled.
func (s *ScraperLimiter) Wait(ctx context.Context, scraperName string) error {
	return s.limiterFor(scraperName).Wait(ctx)
}

// RouteLimiter enforces a fixed-window request count per (scope, key) pair
// using Redis INCR/EXPIRE, so the limit holds across every gateway
// instance rather than just the process that received the request.
type RouteLimiter struct {
	rdb *redis.Client
}

func NewRouteLimiter(rdb *redis.Client) *RouteLimiter {
	return &RouteLimiter{rdb: rdb}
}

// Allow increments the counter for scope+key and reports whether the
// caller is still under limit within window. The window resets via EXPIRE
// NX so concurrent first-hits don't race to reset it.
func (r *RouteLimiter) Allow(ctx context.Context, scope, key string, limit int, window time.Duration) (bool, error) {
	redisKey := fmt.Sprintf("ratelimit:%s:%s", scope, key)

	count, err := r.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := r.rdb.Expire(ctx, redisKey, window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(limit), nil
}
