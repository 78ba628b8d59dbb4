package services

import (
	"context"
	"fmt"
	"time"

	"github.com/avatarctic/timecache/internal/infrastructure/memory"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Loader implements cache-aside over a TimedCache. Concurrent misses for the
// same key share a single call to the load function.
type Loader[V any] struct {
	cache  *memory.TimedCache[V]
	ttl    time.Duration
	sf     singleflight.Group
	logger *logrus.Logger
}

// NewLoader caches loaded values for ttl. A zero ttl uses the cache's default expiry.
func NewLoader[V any](cache *memory.TimedCache[V], ttl time.Duration, logger *logrus.Logger) *Loader[V] {
	if ttl <= 0 {
		ttl = cache.DefaultExpiry()
	}
	return &Loader[V]{cache: cache, ttl: ttl, logger: logger}
}

// Get returns the cached value for key, calling load on a miss.
// Load errors are returned and nothing is cached.
func (l *Loader[V]) Get(ctx context.Context, key string, load func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := l.cache.Get(key); ok {
		return v, nil
	}
	res, err, shared := l.sf.Do(key, func() (any, error) {
		// another caller may have filled the cache while we waited
		if v, ok := l.cache.Get(key); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		l.cache.SetWithTTL(key, v, l.ttl)
		return v, nil
	})
	if err != nil {
		if l.logger != nil {
			l.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Warn("cache load failed")
		}
		var zero V
		return zero, err
	}
	if shared && l.logger != nil {
		l.logger.WithFields(logrus.Fields{"key": key}).Debug("cache load shared")
	}
	v, ok := res.(V)
	if !ok {
		var zero V
		return zero, fmt.Errorf("unexpected type %T from loader", res)
	}
	return v, nil
}
