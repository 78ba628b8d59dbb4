package memory_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/avatarctic/timecache/internal/core/domain/cacheerr"
	"github.com/avatarctic/timecache/internal/core/ports"
	"github.com/avatarctic/timecache/internal/infrastructure/clock"
	"github.com/avatarctic/timecache/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newCache[V any](t *testing.T, ttl time.Duration, opts ...memory.Option) (*memory.TimedCache[V], *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(t0)
	c, err := memory.New[V](clk, ttl, opts...)
	require.NoError(t, err)
	return c, clk
}

func TestNew_InvalidArguments(t *testing.T) {
	_, err := memory.New[string](clock.NewManual(t0), -time.Second)
	require.ErrorIs(t, err, cacheerr.ErrInvalidArgument)

	_, err = memory.New[string](nil, time.Second)
	require.ErrorIs(t, err, cacheerr.ErrInvalidArgument)

	c, err := memory.New[string](clock.NewManual(t0), 0)
	require.NoError(t, err)
	require.Equal(t, time.Duration(0), c.DefaultExpiry())
}

func TestSetGet_DefaultTTLScenario(t *testing.T) {
	c, clk := newCache[string](t, 5*time.Minute)
	c.Set("k", "v")

	clk.Advance(3 * time.Minute)
	v, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", v)

	clk.Advance(3 * time.Minute)
	_, ok = c.Get("k")
	require.False(t, ok)
}

func TestGet_ExpiryBoundary(t *testing.T) {
	for _, ttl := range []time.Duration{time.Nanosecond, time.Second, time.Hour} {
		t.Run(ttl.String(), func(t *testing.T) {
			c, clk := newCache[int](t, time.Minute)
			c.SetWithTTL("k", 7, ttl)

			v, ok := c.Get("k")
			require.True(t, ok)
			require.Equal(t, 7, v)

			clk.Advance(ttl - time.Nanosecond)
			if ttl > time.Nanosecond {
				_, ok = c.Get("k")
				require.True(t, ok)
			}

			clk.Advance(time.Nanosecond)
			_, ok = c.Get("k")
			require.False(t, ok, "expired at exactly ttl")
		})
	}
}

func TestSetWithTTL_ZeroIsImmediatelyExpired(t *testing.T) {
	c, _ := newCache[string](t, time.Minute)
	c.SetWithTTL("k", "v", 0)
	_, ok := c.Get("k")
	require.False(t, ok)

	c.SetWithTTL("n", "v", -time.Second)
	_, ok = c.Get("n")
	require.False(t, ok)
}

func TestSet_OverwriteResetsTTL(t *testing.T) {
	c, clk := newCache[string](t, time.Minute)
	c.SetWithTTL("k", "old", 10*time.Minute)
	clk.Advance(time.Minute)
	c.SetWithTTL("k", "new", 2*time.Minute)

	clk.Advance(time.Minute)
	v, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "new", v)

	clk.Advance(time.Minute)
	_, ok = c.Get("k")
	require.False(t, ok, "old expiry must not survive the overwrite")
}

func TestSet_OverwriteShortensFromLong(t *testing.T) {
	c, clk := newCache[string](t, time.Minute)
	c.SetWithTTL("k", "a", time.Second)
	c.SetWithTTL("k", "b", time.Hour)
	clk.Advance(30 * time.Minute)
	v, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "b", v)
}

func TestGet_Unknown(t *testing.T) {
	c, _ := newCache[string](t, time.Minute)
	v, ok := c.Get("missing")
	require.False(t, ok)
	require.Equal(t, "", v)
}

func TestPeek_Metadata(t *testing.T) {
	c, clk := newCache[string](t, time.Minute)
	c.SetWithTags("k", "v", time.Minute, "users", "hot", "users")
	clk.Advance(10 * time.Second)
	c.Get("k")
	c.Get("k")

	e, ok := c.Peek("k")
	require.True(t, ok)
	require.Equal(t, int64(2), e.AccessCount)
	require.Equal(t, t0.Add(10*time.Second), e.LastAccessed)
	require.Equal(t, t0, e.CreatedAt)
	require.Equal(t, []string{"hot", "users"}, e.Tags())
	require.Equal(t, 50*time.Second, e.TTLRemaining(clk.Now()))
	require.Equal(t, int64(1), e.Version)

	c.Set("k", "v2")
	e, _ = c.Peek("k")
	require.Equal(t, int64(2), e.Version)
}

func TestTouch_ExtendsExpiry(t *testing.T) {
	c, clk := newCache[string](t, time.Minute)
	c.Set("k", "v")
	require.True(t, c.Touch("k", time.Minute))
	clk.Advance(90 * time.Second)
	_, ok := c.Get("k")
	require.True(t, ok)
	require.False(t, c.Touch("missing", time.Minute))
}

func TestTagUntag(t *testing.T) {
	c, _ := newCache[string](t, time.Minute)
	c.Set("k", "v")
	require.True(t, c.Tag("k", "a"))
	require.True(t, c.Tag("k", "a"))
	e, _ := c.Peek("k")
	require.Equal(t, []string{"a"}, e.Tags())
	require.True(t, c.Untag("k", "zzz"))
	require.True(t, c.Untag("k", "a"))
	e, _ = c.Peek("k")
	require.Empty(t, e.Tags())
	require.False(t, c.Tag("missing", "a"))
}

func TestDeleteKeysLenPurge(t *testing.T) {
	c, clk := newCache[int](t, time.Minute)
	c.Set("b", 2)
	c.Set("a", 1)
	c.SetWithTTL("short", 3, time.Second)
	require.Equal(t, []string{"a", "b", "short"}, c.Keys())

	clk.Advance(time.Second)
	require.Equal(t, 2, c.Len())
	require.Equal(t, 1, c.Purge())

	require.True(t, c.Delete("a"))
	require.False(t, c.Delete("a"))
	require.Equal(t, []string{"b"}, c.Keys())
}

func TestStats(t *testing.T) {
	c, clk := newCache[int](t, time.Second)
	c.Set("k", 1)
	c.Get("k")
	c.Get("nope")
	clk.Advance(time.Second)
	c.Get("k")

	s := c.Stats()
	require.Equal(t, int64(1), s.Hits)
	require.Equal(t, int64(2), s.Misses)
	require.Equal(t, int64(1), s.Expirations)
	require.InDelta(t, 1.0/3.0, s.HitRate(), 1e-9)
	require.Equal(t, float64(0), memory.Snapshot{}.HitRate())
}

type recorder struct {
	mu  sync.Mutex
	got []ports.EventKind
}

func (r *recorder) Emit(e ports.Event) {
	r.mu.Lock()
	r.got = append(r.got, e.Kind)
	r.mu.Unlock()
}

func TestEventSink(t *testing.T) {
	rec := &recorder{}
	c, clk := newCache[int](t, time.Second, memory.WithEventSink(rec))
	c.Set("k", 1)
	c.Get("k")
	clk.Advance(time.Second)
	c.Get("k")
	require.Equal(t, []ports.EventKind{ports.EventWrite, ports.EventHit, ports.EventExpire, ports.EventMiss}, rec.got)
}

func TestConcurrentAccess(t *testing.T) {
	type pair struct{ A, B int }
	c, _ := newCache[pair](t, time.Hour)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				c.Set(fmt.Sprintf("k%d", i%16), pair{A: i, B: i})
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				if v, ok := c.Get(fmt.Sprintf("k%d", i%16)); ok {
					assert.Equal(t, v.A, v.B)
				}
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 16, c.Len())
}

func TestZeroInstantClock_ZeroTTLStillExpires(t *testing.T) {
	clk := clock.NewManual(time.Time{})
	c, err := memory.New[string](clk, 0)
	require.NoError(t, err)

	c.Set("k", "v")
	_, ok := c.Get("k")
	require.False(t, ok)

	c.Set("k", "v")
	clk.Advance(time.Hour)
	_, ok = c.Get("k")
	require.False(t, ok)
}

// lenOnExpire reads the cache back from inside Emit, which only works when
// the cache does not hold its lock while emitting.
type lenOnExpire struct {
	cache *memory.TimedCache[int]
	lens  []int
}

func (s *lenOnExpire) Emit(e ports.Event) {
	if e.Kind == ports.EventExpire {
		s.lens = append(s.lens, s.cache.Len())
	}
}

func TestExpireEvent_EmittedOutsideLock(t *testing.T) {
	sink := &lenOnExpire{}
	c, clk := newCache[int](t, time.Second, memory.WithEventSink(sink))
	sink.cache = c

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Set("a", 1)
		c.Set("b", 2)
		clk.Advance(time.Second)
		c.Get("a")
		c.Touch("b", time.Minute)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sink could not re-enter the cache while an expire event was emitted")
	}
	require.Equal(t, []int{0, 0}, sink.lens)
}
