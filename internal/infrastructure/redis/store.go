package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/avatarctic/timecache/internal/core/domain/cacheerr"
	"github.com/go-redis/redis/v8"
)

// recordField is the stream entry field holding the encoded record.
const recordField = "data"

// Store implements every remote operation family on top of a Redis client.
type Store struct {
	r redis.Cmdable
}

// NewStore wraps a Redis client (or pipeline, or cluster client).
func NewStore(r redis.Cmdable) *Store {
	return &Store{r: r}
}

// classify maps transport failures onto the cache error taxonomy.
// Server-side command errors (e.g. WRONGTYPE) are returned wrapped but unclassified.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	var redisErr redis.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("redis %s: %w: %w", op, cacheerr.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("redis %s: %w", op, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("redis %s: %w: %w", op, cacheerr.ErrTimeout, err)
	case errors.As(err, &redisErr):
		return fmt.Errorf("redis %s: %w", op, err)
	default:
		return fmt.Errorf("redis %s: %w: %w", op, cacheerr.ErrConnection, err)
	}
}

// Set implements ports.ScalarStore.Set.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return classify("set", s.r.Set(ctx, key, value, ttl).Err())
}

// Get implements ports.ScalarStore.Get.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.r.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, classify("get", err)
	}
	return val, true, nil
}

// Delete implements ports.ScalarStore.Delete.
func (s *Store) Delete(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := s.r.Del(ctx, keys...).Result()
	return n, classify("del", err)
}

// Exists implements ports.ScalarStore.Exists.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.r.Exists(ctx, key).Result()
	if err != nil {
		return false, classify("exists", err)
	}
	return n > 0, nil
}

// Expire implements ports.ScalarStore.Expire.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.r.Expire(ctx, key, ttl).Result()
	return ok, classify("expire", err)
}

// TTL reports ok=false for missing keys (-2) and keys without expiry (-1).
func (s *Store) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	d, err := s.r.PTTL(ctx, key).Result()
	if err != nil {
		return 0, false, classify("pttl", err)
	}
	if d < 0 {
		return 0, false, nil
	}
	return d, true, nil
}

// SetMany writes all entries in one MULTI/EXEC round trip.
func (s *Store) SetMany(ctx context.Context, entries map[string][]byte, ttl time.Duration) error {
	if len(entries) == 0 {
		return nil
	}
	if ttl < 0 {
		ttl = 0
	}
	pipe := s.r.TxPipeline()
	for k, v := range entries {
		pipe.Set(ctx, k, v, ttl)
	}
	_, err := pipe.Exec(ctx)
	return classify("set_many", err)
}

// GetMany implements ports.BatchStore.GetMany.
func (s *Store) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	vals, err := s.r.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, classify("mget", err)
	}
	for i, v := range vals {
		switch val := v.(type) {
		case string:
			out[keys[i]] = []byte(val)
		case []byte:
			out[keys[i]] = val
		}
	}
	return out, nil
}

// Keys walks the keyspace with SCAN so large databases are not blocked.
func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	var (
		cursor uint64
		out    []string
		seen   = make(map[string]struct{})
	)
	for {
		keys, next, err := s.r.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, classify("scan", err)
		}
		for _, k := range keys {
			// SCAN may return a key more than once
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
		cursor = next
		if cursor == 0 {
			return out, nil
		}
	}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return classify("ping", s.r.Ping(ctx).Err())
}
