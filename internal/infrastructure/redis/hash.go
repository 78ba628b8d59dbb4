package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// HSet implements ports.HashStore.HSet. Fields not named are left as they are.
func (s *Store) HSet(ctx context.Context, key string, fields map[string][]byte, ttl time.Duration) error {
	if len(fields) == 0 {
		return nil
	}
	pipe := s.r.TxPipeline()
	pipe.HSet(ctx, key, hashValues(fields))
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, err := pipe.Exec(ctx)
	return classify("hset", err)
}

// HReplace implements ports.HashStore.HReplace in one MULTI/EXEC so readers
// never see a mix of old and new fields.
func (s *Store) HReplace(ctx context.Context, key string, fields map[string][]byte, ttl time.Duration) error {
	pipe := s.r.TxPipeline()
	pipe.Del(ctx, key)
	if len(fields) > 0 {
		pipe.HSet(ctx, key, hashValues(fields))
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
	}
	_, err := pipe.Exec(ctx)
	return classify("hreplace", err)
}

// HGet implements ports.HashStore.HGet.
func (s *Store) HGet(ctx context.Context, key, field string) ([]byte, bool, error) {
	val, err := s.r.HGet(ctx, key, field).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, classify("hget", err)
	}
	return val, true, nil
}

// HGetAll implements ports.HashStore.HGetAll.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	m, err := s.r.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, classify("hgetall", err)
	}
	out := make(map[string][]byte, len(m))
	for f, v := range m {
		out[f] = []byte(v)
	}
	return out, nil
}

func hashValues(fields map[string][]byte) map[string]interface{} {
	values := make(map[string]interface{}, len(fields))
	for f, v := range fields {
		values[f] = v
	}
	return values
}
