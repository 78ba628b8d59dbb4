package cacheerr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/avatarctic/timecache/internal/core/domain/cacheerr"
	"github.com/stretchr/testify/require"
)

func TestInvalidArgument_Wraps(t *testing.T) {
	err := cacheerr.InvalidArgument("ttl %s is negative", "-1s")
	require.ErrorIs(t, err, cacheerr.ErrInvalidArgument)
	require.Contains(t, err.Error(), "ttl -1s is negative")
}

func TestIsDecode(t *testing.T) {
	inner := errors.New("bad json")
	err := fmt.Errorf("get %q: %w", "k", &cacheerr.DecodeError{Target: "*int", Err: inner})
	require.True(t, cacheerr.IsDecode(err))
	require.ErrorIs(t, err, inner)
	require.False(t, cacheerr.IsDecode(cacheerr.ErrTimeout))
}
