package redis_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/avatarctic/timecache/internal/core/domain/cacheerr"
	"github.com/avatarctic/timecache/internal/core/ports"
	infraredis "github.com/avatarctic/timecache/internal/infrastructure/redis"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.ScalarStore    = (*infraredis.Store)(nil)
	_ ports.BatchStore     = (*infraredis.Store)(nil)
	_ ports.HashStore      = (*infraredis.Store)(nil)
	_ ports.ListStore      = (*infraredis.Store)(nil)
	_ ports.SortedSetStore = (*infraredis.Store)(nil)
	_ ports.SetStore       = (*infraredis.Store)(nil)
	_ ports.StreamStore    = (*infraredis.Store)(nil)
	_ ports.KeyFinder      = (*infraredis.Store)(nil)
)

func newStore(t *testing.T) (*infraredis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return infraredis.NewStore(client), mr
}

func TestScalar(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t)

	require.NoError(t, s.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), time.Minute))

	v, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("1"), v)

	_, ok, err = s.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = s.TTL(ctx, "a")
	require.NoError(t, err)
	require.False(t, ok, "no expiry")
	_, ok, err = s.TTL(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
	d, ok, err := s.TTL(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, time.Minute, d)

	set, err := s.Expire(ctx, "a", time.Second)
	require.NoError(t, err)
	require.True(t, set)
	set, err = s.Expire(ctx, "missing", time.Second)
	require.NoError(t, err)
	require.False(t, set)

	mr.FastForward(time.Second)
	exists, err := s.Exists(ctx, "a")
	require.NoError(t, err)
	require.False(t, exists)

	n, err := s.Delete(ctx, "b", "missing")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	n, err = s.Delete(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), n)
}

func TestBatch(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t)

	require.NoError(t, s.SetMany(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, time.Minute))
	require.Equal(t, time.Minute, mr.TTL("a"))

	got, err := s.GetMany(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, got)

	got, err = s.GetMany(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestHash(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t)

	require.NoError(t, s.HSet(ctx, "h", map[string][]byte{"f1": []byte("x"), "f2": []byte("y")}, time.Hour))
	require.Equal(t, time.Hour, mr.TTL("h"))

	v, ok, err := s.HGet(ctx, "h", "f1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("x"), v)

	_, ok, err = s.HGet(ctx, "h", "nope")
	require.NoError(t, err)
	require.False(t, ok)

	all, err := s.HGetAll(ctx, "h")
	require.NoError(t, err)
	require.Len(t, all, 2)

	all, err = s.HGetAll(ctx, "missing")
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestHash_ReplaceDropsOldFieldsAndExpiry(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t)

	require.NoError(t, s.HSet(ctx, "h", map[string][]byte{"a": []byte("1"), "b": []byte("2")}, time.Hour))
	require.NoError(t, s.HReplace(ctx, "h", map[string][]byte{"a": []byte("3")}, 0))

	all, err := s.HGetAll(ctx, "h")
	require.NoError(t, err)
	require.Equal(t, map[string][]byte{"a": []byte("3")}, all)
	require.Equal(t, time.Duration(0), mr.TTL("h"))

	require.NoError(t, s.HReplace(ctx, "h", map[string][]byte{"c": []byte("4")}, time.Minute))
	require.Equal(t, time.Minute, mr.TTL("h"))

	require.NoError(t, s.HReplace(ctx, "h", nil, 0))
	require.False(t, mr.Exists("h"))
}

func TestList_LIFO(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	for _, v := range []string{"1", "2", "3"} {
		_, err := s.LPush(ctx, "l", []byte(v))
		require.NoError(t, err)
	}
	n, err := s.LLen(ctx, "l")
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	vals, err := s.LRange(ctx, "l", 0, -1)
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("3"), []byte("2"), []byte("1")}, vals)

	v, ok, err := s.LPop(ctx, "l")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("3"), v)

	_, ok, err = s.LPop(ctx, "empty")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSortedSet(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	for m, score := range map[string]float64{"A": 100, "B": 200, "C": 150} {
		added, err := s.ZAdd(ctx, "z", []byte(m), score)
		require.NoError(t, err)
		require.True(t, added)
	}
	added, err := s.ZAdd(ctx, "z", []byte("A"), 120)
	require.NoError(t, err)
	require.False(t, added)

	desc, err := s.ZRange(ctx, "z", 0, -1, ports.Descending)
	require.NoError(t, err)
	require.Equal(t, []ports.ScoredMember{
		{Member: []byte("B"), Score: 200},
		{Member: []byte("C"), Score: 150},
		{Member: []byte("A"), Score: 120},
	}, desc)

	rank, ok, err := s.ZRank(ctx, "z", []byte("B"), ports.Descending)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(0), rank)
	rank, _, _ = s.ZRank(ctx, "z", []byte("B"), ports.Ascending)
	require.Equal(t, int64(2), rank)

	_, ok, err = s.ZRank(ctx, "z", []byte("nobody"), ports.Ascending)
	require.NoError(t, err)
	require.False(t, ok)

	score, ok, err := s.ZScore(ctx, "z", []byte("A"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 120.0, score)
}

func TestSet(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	added, err := s.SAdd(ctx, "s", []byte("x"))
	require.NoError(t, err)
	require.True(t, added)
	added, err = s.SAdd(ctx, "s", []byte("x"))
	require.NoError(t, err)
	require.False(t, added)
	_, _ = s.SAdd(ctx, "s", []byte("y"))

	members, err := s.SMembers(ctx, "s")
	require.NoError(t, err)
	got := []string{string(members[0]), string(members[1])}
	sort.Strings(got)
	require.Equal(t, []string{"x", "y"}, got)

	in, err := s.SIsMember(ctx, "s", []byte("y"))
	require.NoError(t, err)
	require.True(t, in)

	removed, err := s.SRem(ctx, "s", []byte("y"))
	require.NoError(t, err)
	require.True(t, removed)
	removed, _ = s.SRem(ctx, "s", []byte("y"))
	require.False(t, removed)
}

func TestStream(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	id1, err := s.XAdd(ctx, "st", []byte(`{"n":1}`))
	require.NoError(t, err)
	id2, err := s.XAdd(ctx, "st", []byte(`{"n":2}`))
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	entries, err := s.XRange(ctx, "st")
	require.NoError(t, err)
	require.Equal(t, []ports.StreamEntry{
		{ID: id1, Record: []byte(`{"n":1}`)},
		{ID: id2, Record: []byte(`{"n":2}`)},
	}, entries)

	n, err := s.XLen(ctx, "st")
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}

func TestStream_AppendToWrongTypeFails(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	require.NoError(t, s.Set(ctx, "str", []byte("x"), 0))

	id, err := s.XAdd(ctx, "str", []byte("{}"))
	require.ErrorIs(t, err, cacheerr.ErrAppendFailed)
	require.Empty(t, id)
}

func TestKeys(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	for _, k := range []string{"user:1", "user:2", "order:1"} {
		require.NoError(t, s.Set(ctx, k, []byte("v"), 0))
	}
	keys, err := s.Keys(ctx, "user:*")
	require.NoError(t, err)
	sort.Strings(keys)
	require.Equal(t, []string{"user:1", "user:2"}, keys)
}

func TestErrors_Classified(t *testing.T) {
	s, mr := newStore(t)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	_, _, err := s.Get(ctx, "k")
	require.ErrorIs(t, err, cacheerr.ErrTimeout)

	mr.Close()
	_, _, err = s.Get(context.Background(), "k")
	require.ErrorIs(t, err, cacheerr.ErrConnection)
}
