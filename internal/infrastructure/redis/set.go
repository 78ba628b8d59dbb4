package redis

import "context"

// SAdd implements ports.SetStore.SAdd.
func (s *Store) SAdd(ctx context.Context, key string, member []byte) (bool, error) {
	n, err := s.r.SAdd(ctx, key, member).Result()
	if err != nil {
		return false, classify("sadd", err)
	}
	return n == 1, nil
}

// SIsMember implements ports.SetStore.SIsMember.
func (s *Store) SIsMember(ctx context.Context, key string, member []byte) (bool, error) {
	ok, err := s.r.SIsMember(ctx, key, member).Result()
	return ok, classify("sismember", err)
}

// SMembers implements ports.SetStore.SMembers.
func (s *Store) SMembers(ctx context.Context, key string) ([][]byte, error) {
	vals, err := s.r.SMembers(ctx, key).Result()
	if err != nil {
		return nil, classify("smembers", err)
	}
	return toBytes(vals), nil
}

// SRem implements ports.SetStore.SRem.
func (s *Store) SRem(ctx context.Context, key string, member []byte) (bool, error) {
	n, err := s.r.SRem(ctx, key, member).Result()
	if err != nil {
		return false, classify("srem", err)
	}
	return n == 1, nil
}
