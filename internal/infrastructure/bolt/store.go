// Package bolt implements the scalar, batch and key-discovery families on a
// local bbolt file. It has no hash, list, sorted set, set or stream support.
package bolt

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/avatarctic/timecache/internal/core/domain/cacheerr"
	"github.com/avatarctic/timecache/internal/core/ports"
	"github.com/gobwas/glob"
	bolt "go.etcd.io/bbolt"
)

// headerLen is the size of the big-endian expiresAt (unix nanos, 0 = never) prefix.
const headerLen = 8

// Store is a bbolt-backed scalar store with TTL semantics driven by an injected clock.
// It is safe for concurrent use by multiple goroutines.
type Store struct {
	db     *bolt.DB
	bucket []byte
	clock  ports.Clock
}

type Options struct {
	// Bucket is the name of the Bolt bucket to use.
	Bucket string
	// Timeout bounds how long Open waits for the file lock.
	Timeout time.Duration
}

// Open initializes or opens a Store at the given path.
func Open(path string, clk ports.Clock, opts Options) (*Store, error) {
	if clk == nil {
		return nil, cacheerr.InvalidArgument("clock is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	bucket := []byte("timecache")
	if opts.Bucket != "" {
		bucket = []byte(opts.Bucket)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, bucket: bucket, clock: clk}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database can serve a read transaction.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(s.bucket) == nil {
			return fmt.Errorf("bolt bucket %q missing", s.bucket)
		}
		return nil
	})
}

func (s *Store) encode(value []byte, expiresAt int64) []byte {
	buf := make([]byte, headerLen+len(value))
	binary.BigEndian.PutUint64(buf[:headerLen], uint64(expiresAt))
	copy(buf[headerLen:], value)
	return buf
}

func (s *Store) expiry(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return s.clock.Now().Add(ttl).UnixNano()
}

// decode splits a stored record. live is false when the record has expired.
func (s *Store) decode(raw []byte, now int64) (value []byte, expiresAt int64, live bool) {
	if len(raw) < headerLen {
		return nil, 0, false
	}
	expiresAt = int64(binary.BigEndian.Uint64(raw[:headerLen]))
	if expiresAt > 0 && now >= expiresAt {
		return nil, expiresAt, false
	}
	return raw[headerLen:], expiresAt, true
}

// Set implements ports.ScalarStore.Set.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf := s.encode(value, s.expiry(ttl))
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), buf)
	})
}

// Get implements ports.ScalarStore.Get.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	now := s.clock.Now().UnixNano()
	var (
		out []byte
		ok  bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(s.bucket).Get([]byte(key))
		if raw == nil {
			return nil
		}
		v, _, live := s.decode(raw, now)
		if !live {
			return nil
		}
		out = append([]byte(nil), v...)
		ok = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, ok, nil
}

// Delete removes keys and counts the live ones among them.
func (s *Store) Delete(ctx context.Context, keys ...string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	now := s.clock.Now().UnixNano()
	var n int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		for _, k := range keys {
			raw := b.Get([]byte(k))
			if raw == nil {
				continue
			}
			if _, _, live := s.decode(raw, now); live {
				n++
			}
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	return n, err
}

// Exists implements ports.ScalarStore.Exists.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

// Expire implements ports.ScalarStore.Expire.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	now := s.clock.Now()
	var ok bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		raw := b.Get([]byte(key))
		if raw == nil {
			return nil
		}
		v, _, live := s.decode(raw, now.UnixNano())
		if !live {
			return b.Delete([]byte(key))
		}
		ok = true
		return b.Put([]byte(key), s.encode(v, now.Add(ttl).UnixNano()))
	})
	return ok, err
}

// TTL implements ports.ScalarStore.TTL.
func (s *Store) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	now := s.clock.Now().UnixNano()
	var (
		d  time.Duration
		ok bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(s.bucket).Get([]byte(key))
		if raw == nil {
			return nil
		}
		_, expiresAt, live := s.decode(raw, now)
		if !live || expiresAt == 0 {
			return nil
		}
		d, ok = time.Duration(expiresAt-now), true
		return nil
	})
	return d, ok, err
}

// SetMany writes every entry in a single transaction.
func (s *Store) SetMany(ctx context.Context, entries map[string][]byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	expiresAt := s.expiry(ttl)
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		for k, v := range entries {
			if err := b.Put([]byte(k), s.encode(v, expiresAt)); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetMany implements ports.BatchStore.GetMany.
func (s *Store) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := s.clock.Now().UnixNano()
	out := make(map[string][]byte, len(keys))
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		for _, k := range keys {
			raw := b.Get([]byte(k))
			if raw == nil {
				continue
			}
			if v, _, live := s.decode(raw, now); live {
				out[k] = append([]byte(nil), v...)
			}
		}
		return nil
	})
	return out, err
}

// Keys returns live keys matching a glob pattern.
func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, cacheerr.InvalidArgument("key pattern %q: %v", pattern, err)
	}
	now := s.clock.Now().UnixNano()
	var out []string
	err = s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(k, v []byte) error {
			if _, _, live := s.decode(v, now); live && g.Match(string(k)) {
				out = append(out, string(k))
			}
			return nil
		})
	})
	return out, err
}
