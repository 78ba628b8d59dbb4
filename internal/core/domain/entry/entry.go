// Package entry holds the metadata model for values stored in the in-process cache.
package entry

import (
	"sort"
	"time"
)

// NoExpiry is returned by TTLRemaining for entries that never expire.
const NoExpiry time.Duration = -1

// Entry wraps a cached value with expiration, tags and access metadata.
// An Entry is owned by exactly one store and is not safe for concurrent use on its own.
type Entry[T any] struct {
	Key          string
	Data         T
	CreatedAt    time.Time
	ExpiresAt    time.Time // meaningful only when HasExpiry is true
	AccessCount  int64
	LastAccessed time.Time
	Version      int64

	hasExpiry bool
	tags      map[string]struct{}
}

type options struct {
	ttl    time.Duration
	hasTTL bool
	tags   []string
}

// Option configures New.
type Option func(*options)

// WithTTL makes the entry expire ttl after its creation. A ttl of zero or less
// produces an entry that is already expired.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
		o.hasTTL = true
	}
}

// WithTags attaches tags to the entry. Duplicates collapse.
func WithTags(tags ...string) Option {
	return func(o *options) {
		o.tags = append(o.tags, tags...)
	}
}

// New creates an entry created at now.
func New[T any](key string, data T, now time.Time, opts ...Option) *Entry[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	e := &Entry[T]{
		Key:          key,
		Data:         data,
		CreatedAt:    now,
		LastAccessed: now,
		Version:      1,
		tags:         make(map[string]struct{}, len(o.tags)),
	}
	if o.hasTTL {
		if o.ttl < 0 {
			o.ttl = 0
		}
		e.ExpiresAt = now.Add(o.ttl)
		e.hasExpiry = true
	}
	for _, t := range o.tags {
		e.tags[t] = struct{}{}
	}
	return e
}

// HasExpiry reports whether the entry carries an expiration instant.
func (e *Entry[T]) HasExpiry() bool {
	return e.hasExpiry
}

// IsExpired reports whether the entry is expired at now.
// An entry is expired at or after its ExpiresAt instant.
func (e *Entry[T]) IsExpired(now time.Time) bool {
	return e.HasExpiry() && !now.Before(e.ExpiresAt)
}

// TTLRemaining returns the time left before expiry, clamped at zero,
// or NoExpiry when the entry never expires.
func (e *Entry[T]) TTLRemaining(now time.Time) time.Duration {
	if !e.HasExpiry() {
		return NoExpiry
	}
	if d := e.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// UpdateAccess records a read at now.
func (e *Entry[T]) UpdateAccess(now time.Time) {
	e.AccessCount++
	e.LastAccessed = now
}

// ExtendExpiry pushes an existing expiry back by d, or sets one at now+d
// when the entry had none.
func (e *Entry[T]) ExtendExpiry(now time.Time, d time.Duration) {
	if e.HasExpiry() {
		e.ExpiresAt = e.ExpiresAt.Add(d)
		return
	}
	e.ExpiresAt = now.Add(d)
	e.hasExpiry = true
}

// AddTag attaches tag. Adding a tag twice is a no-op.
func (e *Entry[T]) AddTag(tag string) {
	if e.tags == nil {
		e.tags = make(map[string]struct{})
	}
	e.tags[tag] = struct{}{}
}

// RemoveTag detaches tag. Removing a tag that is not present is a no-op.
func (e *Entry[T]) RemoveTag(tag string) {
	delete(e.tags, tag)
}

func (e *Entry[T]) HasTag(tag string) bool {
	_, ok := e.tags[tag]
	return ok
}

// Tags returns the entry's tags in sorted order.
func (e *Entry[T]) Tags() []string {
	out := make([]string, 0, len(e.tags))
	for t := range e.tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Clone returns a copy that shares no mutable state with e.
func (e *Entry[T]) Clone() Entry[T] {
	c := *e
	c.tags = make(map[string]struct{}, len(e.tags))
	for t := range e.tags {
		c.tags[t] = struct{}{}
	}
	return c
}
