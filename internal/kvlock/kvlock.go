// Package kvlock provides the two Redis-backed primitives the playback
// coordinator needs: a named blocking/non-blocking lock so only one
// goroutine materializes a given stream's URL at a time, and a sliding-TTL
// cache so a materialized URL survives repeat lookups without forcing a
// fresh provider round trip on every poll.
package kvlock

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrNotAcquired is returned by AcquireBlocking when ctx is cancelled
// before the lock becomes available.
var ErrNotAcquired = errors.New("kvlock: lock not acquired before deadline")

// Locker wraps a redis.Client to hand out named, TTL-bounded locks.
type Locker struct {
	rdb *redis.Client
}

func NewLocker(rdb *redis.Client) *Locker {
	return &Locker{rdb: rdb}
}

// Lock is a held named lock; callers must Release it.
type Lock struct {
	key string
	rdb *redis.Client
}

// AcquireNonBlocking attempts to take the named lock once and returns
// immediately, mirroring acquire_redis_lock(..., block=False).
func (l *Locker) AcquireNonBlocking(ctx context.Context, key string, ttl time.Duration) (*Lock, bool, error) {
	ok, err := l.rdb.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return &Lock{key: key, rdb: l.rdb}, true, nil
}

// AcquireBlocking polls for the named lock until it is acquired or ctx is
// cancelled, mirroring acquire_redis_lock(..., block=True) with the
// waitCeiling acting as the caller's overall deadline.
func (l *Locker) AcquireBlocking(ctx context.Context, key string, ttl, waitCeiling time.Duration) (*Lock, error) {
	deadline := time.Now().Add(waitCeiling)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		lock, ok, err := l.AcquireNonBlocking(ctx, key, ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return lock, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrNotAcquired
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Release drops the lock. Safe to call on a nil *Lock.
func (l *Lock) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.rdb.Del(ctx, l.key).Err()
}

// URLCache is a sliding-TTL cache for materialized playback URLs: every
// read extends the TTL (GETEX), so an actively-watched stream's cached
// URL never expires mid-playback.
type URLCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewURLCache(rdb *redis.Client, ttl time.Duration) *URLCache {
	return &URLCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached URL for key, refreshing its TTL, or ("", false)
// on a cache miss.
func (c *URLCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.GetEx(ctx, key, c.ttl).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set stores url under key with the cache's configured TTL.
func (c *URLCache) Set(ctx context.Context, key, url string) error {
	return c.rdb.Set(ctx, key, url, c.ttl).Err()
}

// CachedHashStore records info-hashes a client observed as instantly
// cached on a given service, so a later probe_cache call can fall back to
// this set when the provider's own instant-availability check is
// unreachable or rate-limited.
type CachedHashStore struct {
	rdb *redis.Client
}

func NewCachedHashStore(rdb *redis.Client) *CachedHashStore {
	return &CachedHashStore{rdb: rdb}
}

func (s *CachedHashStore) Submit(ctx context.Context, service string, infoHashes []string) error {
	if len(infoHashes) == 0 {
		return nil
	}
	members := make([]interface{}, len(infoHashes))
	for i, h := range infoHashes {
		members[i] = h
	}
	return s.rdb.SAdd(ctx, "cached_hashes:"+service, members...).Err()
}

func (s *CachedHashStore) IsKnownCached(ctx context.Context, service, infoHash string) (bool, error) {
	return s.rdb.SIsMember(ctx, "cached_hashes:"+service, infoHash).Result()
}
