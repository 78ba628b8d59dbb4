package entry_test

import (
	"testing"
	"time"

	"github.com/avatarctic/timecache/internal/core/domain/entry"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestNew_Defaults(t *testing.T) {
	e := entry.New("k", "v", t0)
	require.Equal(t, "k", e.Key)
	require.Equal(t, "v", e.Data)
	require.Equal(t, int64(1), e.Version)
	require.Equal(t, int64(0), e.AccessCount)
	require.Equal(t, t0, e.CreatedAt)
	require.Equal(t, t0, e.LastAccessed)
	require.False(t, e.HasExpiry())
	require.False(t, e.IsExpired(t0.Add(24*time.Hour)))
	require.Equal(t, entry.NoExpiry, e.TTLRemaining(t0))
}

func TestIsExpired_Boundary(t *testing.T) {
	e := entry.New("k", 1, t0, entry.WithTTL(time.Minute))
	require.False(t, e.IsExpired(t0.Add(time.Minute-time.Nanosecond)))
	require.True(t, e.IsExpired(t0.Add(time.Minute)))
	require.True(t, e.IsExpired(t0.Add(time.Hour)))
}

func TestWithTTL_ZeroIsImmediatelyExpired(t *testing.T) {
	e := entry.New("k", 1, t0, entry.WithTTL(0))
	require.True(t, e.IsExpired(t0))
	require.Equal(t, time.Duration(0), e.TTLRemaining(t0))
}

func TestTTLRemaining(t *testing.T) {
	e := entry.New("k", 1, t0, entry.WithTTL(10*time.Second))
	require.Equal(t, 7*time.Second, e.TTLRemaining(t0.Add(3*time.Second)))
	require.Equal(t, time.Duration(0), e.TTLRemaining(t0.Add(time.Minute)))
}

func TestUpdateAccess(t *testing.T) {
	e := entry.New("k", 1, t0)
	e.UpdateAccess(t0.Add(time.Second))
	e.UpdateAccess(t0.Add(2 * time.Second))
	require.Equal(t, int64(2), e.AccessCount)
	require.Equal(t, t0.Add(2*time.Second), e.LastAccessed)
}

func TestExtendExpiry(t *testing.T) {
	e := entry.New("k", 1, t0, entry.WithTTL(time.Minute))
	e.ExtendExpiry(t0.Add(30*time.Second), time.Minute)
	require.Equal(t, t0.Add(2*time.Minute), e.ExpiresAt)

	never := entry.New("k", 1, t0)
	never.ExtendExpiry(t0.Add(time.Hour), time.Minute)
	require.Equal(t, t0.Add(time.Hour+time.Minute), never.ExpiresAt)
}

func TestTags_Idempotent(t *testing.T) {
	e := entry.New("k", 1, t0, entry.WithTags("b", "a", "b"))
	require.Equal(t, []string{"a", "b"}, e.Tags())

	e.AddTag("a")
	e.AddTag("c")
	require.Equal(t, []string{"a", "b", "c"}, e.Tags())

	e.RemoveTag("missing")
	e.RemoveTag("b")
	require.Equal(t, []string{"a", "c"}, e.Tags())
	require.True(t, e.HasTag("c"))
	require.False(t, e.HasTag("b"))
}

func TestClone_Independent(t *testing.T) {
	e := entry.New("k", 1, t0, entry.WithTags("x"))
	c := e.Clone()
	c.AddTag("y")
	c.AccessCount = 9
	require.Equal(t, []string{"x"}, e.Tags())
	require.Equal(t, int64(0), e.AccessCount)
}

func TestExpiry_AtZeroInstant(t *testing.T) {
	var zero time.Time

	e := entry.New("k", 1, zero, entry.WithTTL(0))
	require.True(t, e.HasExpiry())
	require.True(t, e.IsExpired(zero))
	require.True(t, e.IsExpired(zero.Add(time.Hour)))

	never := entry.New("k", 1, zero)
	require.False(t, never.HasExpiry())
	require.False(t, never.IsExpired(zero.Add(time.Hour)))

	never.ExtendExpiry(zero, 0)
	require.True(t, never.HasExpiry())
	require.True(t, never.IsExpired(zero))
}
