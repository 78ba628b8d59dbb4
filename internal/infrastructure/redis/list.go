package redis

import (
	"context"

	"github.com/go-redis/redis/v8"
)

// LPush implements ports.ListStore.LPush.
func (s *Store) LPush(ctx context.Context, key string, value []byte) (int64, error) {
	n, err := s.r.LPush(ctx, key, value).Result()
	return n, classify("lpush", err)
}

// LPop implements ports.ListStore.LPop.
func (s *Store) LPop(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.r.LPop(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, classify("lpop", err)
	}
	return val, true, nil
}

// LRange implements ports.ListStore.LRange.
func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	vals, err := s.r.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, classify("lrange", err)
	}
	return toBytes(vals), nil
}

// LLen implements ports.ListStore.LLen.
func (s *Store) LLen(ctx context.Context, key string) (int64, error) {
	n, err := s.r.LLen(ctx, key).Result()
	return n, classify("llen", err)
}

func toBytes(vals []string) [][]byte {
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out
}
