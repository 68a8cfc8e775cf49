package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache reads process memory first and Redis second. Values found
// only in Redis are promoted to memory for l1TTL.
type LayeredCache struct {
	l1    *MemoryCache
	l2    *RedisCache
	l1TTL time.Duration
}

var _ Service = (*LayeredCache)(nil)

func NewLayeredCache(l2 *RedisCache, l1 *MemoryCache, l1TTL time.Duration) *LayeredCache {
	if l1TTL <= 0 {
		l1TTL = time.Minute
	}
	return &LayeredCache{l1: l1, l2: l2, l1TTL: l1TTL}
}

// Set writes memory first so a Redis outage still leaves a local copy. The
// Redis error, if any, is returned.
func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	l1TTL := lc.l1TTL
	if ttl > 0 && ttl < l1TTL {
		l1TTL = ttl
	}
	_ = lc.l1.Set(ctx, key, data, l1TTL)
	return lc.l2.Set(ctx, key, data, ttl)
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	var raw []byte
	if err := lc.l1.Get(ctx, key, &raw); err == nil {
		return decode(raw, dest)
	}
	if err := lc.l2.Get(ctx, key, &raw); err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			return errors.Join(ErrCacheMiss, err)
		}
		return err
	}
	_ = lc.l1.Set(ctx, key, raw, lc.l1TTL)
	return decode(raw, dest)
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.l1.Delete(ctx, keys...)
	return lc.l2.Delete(ctx, keys...)
}

// Close closes both layers.
func (lc *LayeredCache) Close() error {
	return errors.Join(lc.l1.Close(), lc.l2.Close())
}
