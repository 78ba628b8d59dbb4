package redis

import (
	"context"
	"fmt"

	"github.com/avatarctic/timecache/internal/core/domain/cacheerr"
	"github.com/avatarctic/timecache/internal/core/ports"
	"github.com/go-redis/redis/v8"
)

// XAdd implements ports.StreamStore.XAdd.
func (s *Store) XAdd(ctx context.Context, key string, record []byte) (string, error) {
	id, err := s.r.XAdd(ctx, &redis.XAddArgs{
		Stream: key,
		Values: map[string]interface{}{recordField: record},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("%w: %w", cacheerr.ErrAppendFailed, classify("xadd", err))
	}
	if id == "" {
		return "", fmt.Errorf("%w: redis xadd returned no id", cacheerr.ErrAppendFailed)
	}
	return id, nil
}

// XRange implements ports.StreamStore.XRange.
func (s *Store) XRange(ctx context.Context, key string) ([]ports.StreamEntry, error) {
	msgs, err := s.r.XRange(ctx, key, "-", "+").Result()
	if err != nil {
		return nil, classify("xrange", err)
	}
	out := make([]ports.StreamEntry, 0, len(msgs))
	for _, m := range msgs {
		raw, ok := m.Values[recordField].(string)
		if !ok {
			return nil, &cacheerr.DecodeError{
				Target: "stream entry " + m.ID,
				Err:    fmt.Errorf("missing %q field", recordField),
			}
		}
		out = append(out, ports.StreamEntry{ID: m.ID, Record: []byte(raw)})
	}
	return out, nil
}

// XLen implements ports.StreamStore.XLen.
func (s *Store) XLen(ctx context.Context, key string) (int64, error) {
	n, err := s.r.XLen(ctx, key).Result()
	return n, classify("xlen", err)
}
