package redis

import (
	"context"
	"fmt"

	"github.com/avatarctic/timecache/internal/core/ports"
	"github.com/go-redis/redis/v8"
)

// ZAdd implements ports.SortedSetStore.ZAdd.
func (s *Store) ZAdd(ctx context.Context, key string, member []byte, score float64) (bool, error) {
	n, err := s.r.ZAdd(ctx, key, &redis.Z{Score: score, Member: member}).Result()
	if err != nil {
		return false, classify("zadd", err)
	}
	return n == 1, nil
}

// ZRank implements ports.SortedSetStore.ZRank.
func (s *Store) ZRank(ctx context.Context, key string, member []byte, order ports.Order) (int64, bool, error) {
	var cmd *redis.IntCmd
	if order == ports.Descending {
		cmd = s.r.ZRevRank(ctx, key, string(member))
	} else {
		cmd = s.r.ZRank(ctx, key, string(member))
	}
	rank, err := cmd.Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, classify("zrank", err)
	}
	return rank, true, nil
}

// ZRange implements ports.SortedSetStore.ZRange.
func (s *Store) ZRange(ctx context.Context, key string, start, stop int64, order ports.Order) ([]ports.ScoredMember, error) {
	var cmd *redis.ZSliceCmd
	if order == ports.Descending {
		cmd = s.r.ZRevRangeWithScores(ctx, key, start, stop)
	} else {
		cmd = s.r.ZRangeWithScores(ctx, key, start, stop)
	}
	zs, err := cmd.Result()
	if err != nil {
		return nil, classify("zrange", err)
	}
	out := make([]ports.ScoredMember, 0, len(zs))
	for _, z := range zs {
		m, ok := z.Member.(string)
		if !ok {
			return nil, fmt.Errorf("redis zrange: unexpected member type %T", z.Member)
		}
		out = append(out, ports.ScoredMember{Member: []byte(m), Score: z.Score})
	}
	return out, nil
}

// ZScore implements ports.SortedSetStore.ZScore.
func (s *Store) ZScore(ctx context.Context, key string, member []byte) (float64, bool, error) {
	score, err := s.r.ZScore(ctx, key, string(member)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, classify("zscore", err)
	}
	return score, true, nil
}
