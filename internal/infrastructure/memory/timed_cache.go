// Package memory implements the in-process timed cache.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/avatarctic/timecache/internal/core/domain/cacheerr"
	"github.com/avatarctic/timecache/internal/core/domain/entry"
	"github.com/avatarctic/timecache/internal/core/ports"
	"github.com/avatarctic/timecache/internal/infrastructure/events"
)

const layer = "memory"

// TimedCache is a local key-value store where every entry expires after a TTL.
// Expiry is checked lazily on read; there is no background sweeper.
// All methods are safe for concurrent use and never block on I/O.
type TimedCache[V any] struct {
	mu         sync.Mutex
	entries    map[string]*entry.Entry[V]
	clock      ports.Clock
	defaultTTL time.Duration
	sink       ports.EventSink
	stats      Stats
}

// Option configures a TimedCache.
type Option func(*config)

type config struct {
	sink ports.EventSink
}

// WithEventSink routes hit/miss/expire events to sink.
func WithEventSink(sink ports.EventSink) Option {
	return func(c *config) {
		c.sink = sink
	}
}

// New creates a cache reading time from clk. defaultTTL must not be negative.
func New[V any](clk ports.Clock, defaultTTL time.Duration, opts ...Option) (*TimedCache[V], error) {
	if clk == nil {
		return nil, cacheerr.InvalidArgument("clock is required")
	}
	if defaultTTL < 0 {
		return nil, cacheerr.InvalidArgument("default ttl %s is negative", defaultTTL)
	}
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sink == nil {
		cfg.sink = events.Noop{}
	}
	return &TimedCache[V]{
		entries:    make(map[string]*entry.Entry[V]),
		clock:      clk,
		defaultTTL: defaultTTL,
		sink:       cfg.sink,
	}, nil
}

// DefaultExpiry returns the TTL applied by Set.
func (c *TimedCache[V]) DefaultExpiry() time.Duration {
	return c.defaultTTL
}

// Set stores value under key with the default TTL.
func (c *TimedCache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores value under key, replacing any previous entry and its expiry.
// A ttl of zero (or less) makes the entry expired for every later read.
func (c *TimedCache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.SetWithTags(key, value, ttl)
}

// SetWithTags is SetWithTTL that also attaches tags to the new entry.
func (c *TimedCache[V]) SetWithTags(key string, value V, ttl time.Duration, tags ...string) {
	now := c.clock.Now()
	e := entry.New(key, value, now, entry.WithTTL(ttl), entry.WithTags(tags...))

	c.mu.Lock()
	if prev, ok := c.entries[key]; ok {
		e.Version = prev.Version + 1
	}
	c.entries[key] = e
	c.mu.Unlock()

	c.sink.Emit(ports.Event{Layer: layer, Op: "set", Kind: ports.EventWrite, Key: key})
}

// Get returns the value for key, or false when the key is unknown or expired.
func (c *TimedCache[V]) Get(key string) (V, bool) {
	now := c.clock.Now()

	c.mu.Lock()
	e, ok, expired := c.live(key, now)
	var v V
	if ok {
		e.UpdateAccess(now)
		v = e.Data
	}
	c.mu.Unlock()

	c.emitExpired(key, expired)
	if ok {
		c.stats.hits.Add(1)
		c.sink.Emit(ports.Event{Layer: layer, Op: "get", Kind: ports.EventHit, Key: key})
	} else {
		c.stats.misses.Add(1)
		c.sink.Emit(ports.Event{Layer: layer, Op: "get", Kind: ports.EventMiss, Key: key})
	}
	return v, ok
}

// Peek returns a copy of the entry for key without recording an access.
func (c *TimedCache[V]) Peek(key string) (entry.Entry[V], bool) {
	var out entry.Entry[V]
	ok := c.withLive(key, func(e *entry.Entry[V], _ time.Time) {
		out = e.Clone()
	})
	return out, ok
}

// Touch extends the expiry of a live entry by extra. It returns false if the
// key is unknown or already expired.
func (c *TimedCache[V]) Touch(key string, extra time.Duration) bool {
	return c.withLive(key, func(e *entry.Entry[V], now time.Time) {
		e.ExtendExpiry(now, extra)
	})
}

// Tag attaches tag to a live entry.
func (c *TimedCache[V]) Tag(key, tag string) bool {
	return c.withLive(key, func(e *entry.Entry[V], _ time.Time) {
		e.AddTag(tag)
	})
}

// Untag detaches tag from a live entry.
func (c *TimedCache[V]) Untag(key, tag string) bool {
	return c.withLive(key, func(e *entry.Entry[V], _ time.Time) {
		e.RemoveTag(tag)
	})
}

// withLive runs fn under the lock when key holds a live entry.
func (c *TimedCache[V]) withLive(key string, fn func(e *entry.Entry[V], now time.Time)) bool {
	now := c.clock.Now()

	c.mu.Lock()
	e, ok, expired := c.live(key, now)
	if ok {
		fn(e, now)
	}
	c.mu.Unlock()

	c.emitExpired(key, expired)
	return ok
}

// Delete removes key and reports whether a live entry was removed.
func (c *TimedCache[V]) Delete(key string) bool {
	now := c.clock.Now()

	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	live := ok && !e.IsExpired(now)
	if live {
		c.sink.Emit(ports.Event{Layer: layer, Op: "delete", Kind: ports.EventDelete, Key: key})
	}
	return live
}

// Keys returns the live keys in sorted order.
func (c *TimedCache[V]) Keys() []string {
	now := c.clock.Now()

	c.mu.Lock()
	out := make([]string, 0, len(c.entries))
	for k, e := range c.entries {
		if !e.IsExpired(now) {
			out = append(out, k)
		}
	}
	c.mu.Unlock()

	sort.Strings(out)
	return out
}

// Len returns the number of live entries.
func (c *TimedCache[V]) Len() int {
	return len(c.Keys())
}

// Purge drops every expired entry and returns how many were removed.
func (c *TimedCache[V]) Purge() int {
	now := c.clock.Now()

	c.mu.Lock()
	var removed []string
	for k, e := range c.entries {
		if e.IsExpired(now) {
			delete(c.entries, k)
			removed = append(removed, k)
		}
	}
	c.mu.Unlock()

	for _, k := range removed {
		c.stats.expirations.Add(1)
		c.sink.Emit(ports.Event{Layer: layer, Op: "purge", Kind: ports.EventExpire, Key: k})
	}
	return len(removed)
}

// Stats returns a snapshot of hit/miss/expiration counters.
func (c *TimedCache[V]) Stats() Snapshot {
	return c.stats.snapshot()
}

// live returns the unexpired entry for key. An expired entry is dropped and
// reported as expired; the caller emits the event once c.mu is released.
// Callers must hold c.mu.
func (c *TimedCache[V]) live(key string, now time.Time) (e *entry.Entry[V], ok, expired bool) {
	e, found := c.entries[key]
	if !found {
		return nil, false, false
	}
	if e.IsExpired(now) {
		delete(c.entries, key)
		c.stats.expirations.Add(1)
		return nil, false, true
	}
	return e, true, false
}

func (c *TimedCache[V]) emitExpired(key string, expired bool) {
	if expired {
		c.sink.Emit(ports.Event{Layer: layer, Op: "get", Kind: ports.EventExpire, Key: key})
	}
}
