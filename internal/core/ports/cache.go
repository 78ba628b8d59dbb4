package ports

import (
	"context"
	"time"
)

// The remote store is modelled as independent operation families so that a
// backend can implement only the subset it supports. All values are already
// encoded; absence is reported through ok=false, never through an error.

// ScalarStore is the mandatory family every backend provides.
type ScalarStore interface {
	// Set stores value under key. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Delete removes keys and returns how many existed.
	Delete(ctx context.Context, keys ...string) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Expire sets the key's TTL. It returns false if the key does not exist.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// TTL returns ok=false both when the key is missing and when it has no expiry.
	TTL(ctx context.Context, key string) (time.Duration, bool, error)
}

// BatchStore handles multi-key scalar reads and writes.
type BatchStore interface {
	SetMany(ctx context.Context, entries map[string][]byte, ttl time.Duration) error
	// GetMany returns only the keys that exist.
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)
}

// HashStore stores field maps under a single key.
type HashStore interface {
	// HSet writes fields. A positive ttl also (re)sets the key's expiry.
	HSet(ctx context.Context, key string, fields map[string][]byte, ttl time.Duration) error
	// HReplace swaps the whole hash for fields. The key ends up with ttl as its
	// expiry, or none when ttl is zero. Empty fields delete the key.
	HReplace(ctx context.Context, key string, fields map[string][]byte, ttl time.Duration) error
	HGet(ctx context.Context, key, field string) ([]byte, bool, error)
	// HGetAll returns an empty map when the key does not exist.
	HGetAll(ctx context.Context, key string) (map[string][]byte, error)
}

// ListStore is a double-ended list operated from the left end.
type ListStore interface {
	LPush(ctx context.Context, key string, value []byte) (int64, error)
	LPop(ctx context.Context, key string) ([]byte, bool, error)
	// LRange uses 0-based inclusive indices; negative indices count from the end.
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
	LLen(ctx context.Context, key string) (int64, error)
}

// Order selects the score direction for sorted set queries.
type Order int

const (
	Ascending Order = iota
	Descending
)

func (o Order) String() string {
	if o == Descending {
		return "desc"
	}
	return "asc"
}

// ScoredMember is one encoded sorted set member and its score.
type ScoredMember struct {
	Member []byte
	Score  float64
}

// SortedSetStore keeps members ordered by a float64 score.
type SortedSetStore interface {
	// ZAdd returns true iff member was newly inserted; otherwise its score is updated.
	ZAdd(ctx context.Context, key string, member []byte, score float64) (bool, error)
	ZRank(ctx context.Context, key string, member []byte, order Order) (int64, bool, error)
	ZRange(ctx context.Context, key string, start, stop int64, order Order) ([]ScoredMember, error)
	ZScore(ctx context.Context, key string, member []byte) (float64, bool, error)
}

// SetStore is an unordered collection without duplicates.
type SetStore interface {
	// SAdd returns false if member was already present.
	SAdd(ctx context.Context, key string, member []byte) (bool, error)
	SIsMember(ctx context.Context, key string, member []byte) (bool, error)
	SMembers(ctx context.Context, key string) ([][]byte, error)
	SRem(ctx context.Context, key string, member []byte) (bool, error)
}

// StreamEntry is one record of an append-only log.
type StreamEntry struct {
	ID     string
	Record []byte
}

// StreamStore is an append-only log with store-assigned, increasing ids.
type StreamStore interface {
	// XAdd returns the generated id. A failed append always returns a non-nil error.
	XAdd(ctx context.Context, key string, record []byte) (string, error)
	// XRange returns every entry in append order.
	XRange(ctx context.Context, key string) ([]StreamEntry, error)
	XLen(ctx context.Context, key string) (int64, error)
}

// KeyFinder discovers keys by glob pattern. Result order is unspecified.
type KeyFinder interface {
	Keys(ctx context.Context, pattern string) ([]string, error)
}
