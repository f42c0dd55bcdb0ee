package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vesselpdp/internal/opt"
)

func TestKey(t *testing.T) {
	a := Key("sum1", opt.Solution{1, 1, 0, 0})
	assert.Equal(t, a, Key("sum1", opt.Solution{1, 1, 0, 0}))
	assert.NotEqual(t, a, Key("sum2", opt.Solution{1, 1, 0, 0}))
	assert.NotEqual(t, a, Key("sum1", opt.Solution{0, 1, 1, 0}))
	assert.Contains(t, a, "eval:")
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	m := NewMemory(time.Minute, 0)
	m.now = func() time.Time { return now }

	res := opt.Result{Feasible: true, Reason: opt.FeasibleReason, Cost: 550}
	require.NoError(t, m.Set(ctx, "k", res))

	got, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, res, got)

	now = now.Add(2 * time.Minute)
	_, ok, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, m.Len())
}

func TestMemoryBounded(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0, 2)
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, m.Set(ctx, k, opt.Result{}))
	}
	assert.Equal(t, 2, m.Len())
	_, ok, _ := m.Get(ctx, "c")
	assert.True(t, ok)

	require.NoError(t, m.Set(ctx, "c", opt.Result{Cost: 1}))
	assert.Equal(t, 2, m.Len())
}
