package services

import (
	"context"
	"fmt"
	"time"

	"github.com/avatarctic/timecache/internal/core/ports"
	"github.com/samber/mo"
)

// Scored is a decoded sorted set member with its score.
type Scored[T any] struct {
	Member T
	Score  float64
}

// StreamRecord is a decoded append-log entry.
type StreamRecord[T any] struct {
	ID     string
	Record T
}

// SetHashField writes one field of the hash at key, leaving the other fields in place.
func (c *RemoteCache) SetHashField(ctx context.Context, key, field string, value any) error {
	const op = "set_hash_field"
	if c.hashes == nil {
		return unsupported("hash")
	}
	if err := validKey(key); err != nil {
		return err
	}
	raw, err := c.encode(value)
	if err != nil {
		return err
	}
	ctx, cancel, start := c.begin(ctx)
	defer cancel()
	if err := c.hashes.HSet(ctx, c.key(key), map[string][]byte{field: raw}, c.cfg.DefaultTTL); err != nil {
		return c.fail(op, key, start, err)
	}
	c.observe(op, key, start, ports.EventWrite)
	return nil
}

// GetHashField reads and decodes one field of the hash at key.
func GetHashField[T any](ctx context.Context, c *RemoteCache, key, field string) (mo.Option[T], error) {
	if c.hashes == nil {
		return mo.None[T](), unsupported("hash")
	}
	return fetchOne[T](ctx, c, "get_hash_field", key, func(ctx context.Context) ([]byte, bool, error) {
		return c.hashes.HGet(ctx, c.key(key), field)
	})
}

// SetHashAll replaces the hash at key with the top-level fields of record, using
// the client's default TTL. Fields from an earlier record do not survive.
func (c *RemoteCache) SetHashAll(ctx context.Context, key string, record any) error {
	return c.SetHashAllWithTTL(ctx, key, record, c.cfg.DefaultTTL)
}

// SetHashAllWithTTL is SetHashAll with an explicit TTL. Zero stores the key without expiry.
func (c *RemoteCache) SetHashAllWithTTL(ctx context.Context, key string, record any, ttl time.Duration) error {
	const op = "set_hash_all"
	if c.hashes == nil {
		return unsupported("hash")
	}
	if err := validKey(key); err != nil {
		return err
	}
	if err := validTTL(ttl); err != nil {
		return err
	}
	fields, err := c.codec.EncodeFields(record)
	if err != nil {
		return fmt.Errorf("%s %q: %w", op, key, err)
	}
	ctx, cancel, start := c.begin(ctx)
	defer cancel()
	if err := c.hashes.HReplace(ctx, c.key(key), fields, ttl); err != nil {
		return c.fail(op, key, start, err)
	}
	c.observe(op, key, start, ports.EventWrite)
	return nil
}

// GetHashAll rebuilds a record stored with SetHashAll. It is None when the key does not exist.
func GetHashAll[T any](ctx context.Context, c *RemoteCache, key string) (mo.Option[T], error) {
	const op = "get_hash_all"
	if c.hashes == nil {
		return mo.None[T](), unsupported("hash")
	}
	if err := validKey(key); err != nil {
		return mo.None[T](), err
	}
	ctx, cancel, start := c.begin(ctx)
	defer cancel()
	fields, err := c.hashes.HGetAll(ctx, c.key(key))
	if err != nil {
		return mo.None[T](), c.fail(op, key, start, err)
	}
	if len(fields) == 0 {
		c.observe(op, key, start, ports.EventMiss)
		return mo.None[T](), nil
	}
	var v T
	if err := c.codec.DecodeFields(fields, &v); err != nil {
		return mo.None[T](), c.fail(op, key, start, err)
	}
	c.observe(op, key, start, ports.EventHit)
	return mo.Some(v), nil
}

// PushLeft prepends value to the list at key and returns the new length.
func (c *RemoteCache) PushLeft(ctx context.Context, key string, value any) (int64, error) {
	const op = "push_left"
	if c.lists == nil {
		return 0, unsupported("list")
	}
	if err := validKey(key); err != nil {
		return 0, err
	}
	raw, err := c.encode(value)
	if err != nil {
		return 0, err
	}
	ctx, cancel, start := c.begin(ctx)
	defer cancel()
	n, err := c.lists.LPush(ctx, c.key(key), raw)
	if err != nil {
		return 0, c.fail(op, key, start, err)
	}
	c.observe(op, key, start, ports.EventWrite)
	return n, nil
}

// PopLeft removes and returns the most recently pushed element. It is None for an empty list.
func PopLeft[T any](ctx context.Context, c *RemoteCache, key string) (mo.Option[T], error) {
	if c.lists == nil {
		return mo.None[T](), unsupported("list")
	}
	return fetchOne[T](ctx, c, "pop_left", key, func(ctx context.Context) ([]byte, bool, error) {
		return c.lists.LPop(ctx, c.key(key))
	})
}

// ListRange returns elements start..stop (inclusive, 0-based, -1 = last),
// most recently pushed first.
func ListRange[T any](ctx context.Context, c *RemoteCache, key string, start, stop int64) ([]T, error) {
	const op = "list_range"
	if c.lists == nil {
		return nil, unsupported("list")
	}
	if err := validKey(key); err != nil {
		return nil, err
	}
	ctx, cancel, began := c.begin(ctx)
	defer cancel()
	raws, err := c.lists.LRange(ctx, c.key(key), start, stop)
	if err != nil {
		return nil, c.fail(op, key, began, err)
	}
	out, err := decodeAll[T](c.codec, raws)
	if err != nil {
		return nil, c.fail(op, key, began, err)
	}
	c.observe(op, key, began, hitOrMiss(len(out) > 0))
	return out, nil
}

// ListLength returns the number of elements in the list at key.
func (c *RemoteCache) ListLength(ctx context.Context, key string) (int64, error) {
	const op = "list_length"
	if c.lists == nil {
		return 0, unsupported("list")
	}
	if err := validKey(key); err != nil {
		return 0, err
	}
	ctx, cancel, start := c.begin(ctx)
	defer cancel()
	n, err := c.lists.LLen(ctx, c.key(key))
	if err != nil {
		return 0, c.fail(op, key, start, err)
	}
	c.observe(op, key, start, hitOrMiss(n > 0))
	return n, nil
}

// SortedSetAdd inserts member with score. It returns true iff member is new;
// re-adding an existing member updates its score and returns false.
func (c *RemoteCache) SortedSetAdd(ctx context.Context, key string, member any, score float64) (bool, error) {
	const op = "sorted_set_add"
	if c.zsets == nil {
		return false, unsupported("sorted set")
	}
	if err := validKey(key); err != nil {
		return false, err
	}
	raw, err := c.encode(member)
	if err != nil {
		return false, err
	}
	ctx, cancel, start := c.begin(ctx)
	defer cancel()
	added, err := c.zsets.ZAdd(ctx, c.key(key), raw, score)
	if err != nil {
		return false, c.fail(op, key, start, err)
	}
	c.observe(op, key, start, ports.EventWrite)
	return added, nil
}

// SortedSetRank returns member's 0-based position in the given order.
func (c *RemoteCache) SortedSetRank(ctx context.Context, key string, member any, order ports.Order) (mo.Option[int64], error) {
	const op = "sorted_set_rank"
	if c.zsets == nil {
		return mo.None[int64](), unsupported("sorted set")
	}
	if err := validKey(key); err != nil {
		return mo.None[int64](), err
	}
	raw, err := c.encode(member)
	if err != nil {
		return mo.None[int64](), err
	}
	ctx, cancel, start := c.begin(ctx)
	defer cancel()
	rank, ok, err := c.zsets.ZRank(ctx, c.key(key), raw, order)
	if err != nil {
		return mo.None[int64](), c.fail(op, key, start, err)
	}
	c.observe(op, key, start, hitOrMiss(ok))
	if !ok {
		return mo.None[int64](), nil
	}
	return mo.Some(rank), nil
}

// SortedSetScore returns member's score, or None when member is absent.
func (c *RemoteCache) SortedSetScore(ctx context.Context, key string, member any) (mo.Option[float64], error) {
	const op = "sorted_set_score"
	if c.zsets == nil {
		return mo.None[float64](), unsupported("sorted set")
	}
	if err := validKey(key); err != nil {
		return mo.None[float64](), err
	}
	raw, err := c.encode(member)
	if err != nil {
		return mo.None[float64](), err
	}
	ctx, cancel, start := c.begin(ctx)
	defer cancel()
	score, ok, err := c.zsets.ZScore(ctx, c.key(key), raw)
	if err != nil {
		return mo.None[float64](), c.fail(op, key, start, err)
	}
	c.observe(op, key, start, hitOrMiss(ok))
	if !ok {
		return mo.None[float64](), nil
	}
	return mo.Some(score), nil
}

// SortedSetRangeWithScores returns members at ranks start..stop (inclusive, -1 = last) in order.
func SortedSetRangeWithScores[T any](ctx context.Context, c *RemoteCache, key string, start, stop int64, order ports.Order) ([]Scored[T], error) {
	const op = "sorted_set_range"
	if c.zsets == nil {
		return nil, unsupported("sorted set")
	}
	if err := validKey(key); err != nil {
		return nil, err
	}
	ctx, cancel, began := c.begin(ctx)
	defer cancel()
	zs, err := c.zsets.ZRange(ctx, c.key(key), start, stop, order)
	if err != nil {
		return nil, c.fail(op, key, began, err)
	}
	out := make([]Scored[T], 0, len(zs))
	for _, z := range zs {
		m, err := decode[T](c.codec, z.Member)
		if err != nil {
			return nil, c.fail(op, key, began, err)
		}
		out = append(out, Scored[T]{Member: m, Score: z.Score})
	}
	c.observe(op, key, began, hitOrMiss(len(out) > 0))
	return out, nil
}

// SetAdd inserts member. It returns false if member was already present.
func (c *RemoteCache) SetAdd(ctx context.Context, key string, member any) (bool, error) {
	const op = "set_add"
	return c.setMutate(ctx, op, key, member, func(ctx context.Context, k string, raw []byte) (bool, error) {
		return c.sets.SAdd(ctx, k, raw)
	})
}

// SetRemove deletes member. It returns false if member was not present.
func (c *RemoteCache) SetRemove(ctx context.Context, key string, member any) (bool, error) {
	const op = "set_remove"
	return c.setMutate(ctx, op, key, member, func(ctx context.Context, k string, raw []byte) (bool, error) {
		return c.sets.SRem(ctx, k, raw)
	})
}

// SetContains reports whether member belongs to the set at key.
func (c *RemoteCache) SetContains(ctx context.Context, key string, member any) (bool, error) {
	const op = "set_contains"
	if c.sets == nil {
		return false, unsupported("set")
	}
	if err := validKey(key); err != nil {
		return false, err
	}
	raw, err := c.encode(member)
	if err != nil {
		return false, err
	}
	ctx, cancel, start := c.begin(ctx)
	defer cancel()
	ok, err := c.sets.SIsMember(ctx, c.key(key), raw)
	if err != nil {
		return false, c.fail(op, key, start, err)
	}
	c.observe(op, key, start, hitOrMiss(ok))
	return ok, nil
}

func (c *RemoteCache) setMutate(ctx context.Context, op, key string, member any, fn func(context.Context, string, []byte) (bool, error)) (bool, error) {
	if c.sets == nil {
		return false, unsupported("set")
	}
	if err := validKey(key); err != nil {
		return false, err
	}
	raw, err := c.encode(member)
	if err != nil {
		return false, err
	}
	ctx, cancel, start := c.begin(ctx)
	defer cancel()
	changed, err := fn(ctx, c.key(key), raw)
	if err != nil {
		return false, c.fail(op, key, start, err)
	}
	c.observe(op, key, start, ports.EventWrite)
	return changed, nil
}

// SetMembers returns the members of the set at key in no particular order.
func SetMembers[T any](ctx context.Context, c *RemoteCache, key string) ([]T, error) {
	const op = "set_members"
	if c.sets == nil {
		return nil, unsupported("set")
	}
	if err := validKey(key); err != nil {
		return nil, err
	}
	ctx, cancel, start := c.begin(ctx)
	defer cancel()
	raws, err := c.sets.SMembers(ctx, c.key(key))
	if err != nil {
		return nil, c.fail(op, key, start, err)
	}
	out, err := decodeAll[T](c.codec, raws)
	if err != nil {
		return nil, c.fail(op, key, start, err)
	}
	c.observe(op, key, start, hitOrMiss(len(out) > 0))
	return out, nil
}

// StreamAppend adds record to the log at key and returns its generated id.
// The id is only meaningful when err is nil; failures wrap cacheerr.ErrAppendFailed.
func (c *RemoteCache) StreamAppend(ctx context.Context, key string, record any) (string, error) {
	const op = "stream_append"
	if c.streams == nil {
		return "", unsupported("stream")
	}
	if err := validKey(key); err != nil {
		return "", err
	}
	raw, err := c.encode(record)
	if err != nil {
		return "", err
	}
	ctx, cancel, start := c.begin(ctx)
	defer cancel()
	id, err := c.streams.XAdd(ctx, c.key(key), raw)
	if err != nil {
		return "", c.fail(op, key, start, err)
	}
	c.observe(op, key, start, ports.EventWrite)
	return id, nil
}

// StreamRange returns every record of the log at key in append order.
func StreamRange[T any](ctx context.Context, c *RemoteCache, key string) ([]StreamRecord[T], error) {
	const op = "stream_range"
	if c.streams == nil {
		return nil, unsupported("stream")
	}
	if err := validKey(key); err != nil {
		return nil, err
	}
	ctx, cancel, start := c.begin(ctx)
	defer cancel()
	entries, err := c.streams.XRange(ctx, c.key(key))
	if err != nil {
		return nil, c.fail(op, key, start, err)
	}
	out := make([]StreamRecord[T], 0, len(entries))
	for _, e := range entries {
		v, err := decode[T](c.codec, e.Record)
		if err != nil {
			return nil, c.fail(op, key, start, err)
		}
		out = append(out, StreamRecord[T]{ID: e.ID, Record: v})
	}
	c.observe(op, key, start, hitOrMiss(len(out) > 0))
	return out, nil
}

// StreamLength returns the number of records in the log at key.
func (c *RemoteCache) StreamLength(ctx context.Context, key string) (int64, error) {
	const op = "stream_length"
	if c.streams == nil {
		return 0, unsupported("stream")
	}
	if err := validKey(key); err != nil {
		return 0, err
	}
	ctx, cancel, start := c.begin(ctx)
	defer cancel()
	n, err := c.streams.XLen(ctx, c.key(key))
	if err != nil {
		return 0, c.fail(op, key, start, err)
	}
	c.observe(op, key, start, hitOrMiss(n > 0))
	return n, nil
}
