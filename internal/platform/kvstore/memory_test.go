package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetNXHonorsTTL(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }
	ctx := context.Background()

	ok, err := store.SetNX(ctx, "season:lock", "locked", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.SetNX(ctx, "season:lock", "locked", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must be rejected while key lives")

	clock = clock.Add(61 * time.Second)
	ok, err = store.SetNX(ctx, "season:lock", "locked", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired key must be reacquirable")
}

func TestMemoryStore_HashOps(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.HSet(ctx, "canvas", map[string]string{"1:2": "red", "3:4": "blue"}))

	value, ok, err := store.HGet(ctx, "canvas", "1:2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "red", value)

	all, err := store.HGetAll(ctx, "canvas")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	n, err := store.HLen(ctx, "canvas")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, store.HDel(ctx, "canvas", "1:2"))
	_, ok, err = store.HGet(ctx, "canvas", "1:2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_ZRangeByRank(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.ZAdd(ctx, "lb",
		ZMember{Member: "alice", Score: 3},
		ZMember{Member: "bob", Score: 1},
		ZMember{Member: "carol", Score: 2},
	))

	asc, err := store.ZRangeByRank(ctx, "lb", 0, -1, false)
	require.NoError(t, err)
	require.Len(t, asc, 3)
	assert.Equal(t, "bob", asc[0].Member)
	assert.Equal(t, "alice", asc[2].Member)

	top, err := store.ZRangeByRank(ctx, "lb", 0, 0, true)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "alice", top[0].Member)

	tail, err := store.ZRangeByRank(ctx, "lb", -2, -1, false)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, "carol", tail[0].Member)

	empty, err := store.ZRangeByRank(ctx, "missing", 0, -1, false)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryStore_ZRemRanges(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	for i, member := range []string{"s1", "s2", "s3", "s4"} {
		require.NoError(t, store.ZAdd(ctx, "idx", ZMember{Member: member, Score: float64(i + 1)}))
	}

	require.NoError(t, store.ZRemRangeByRank(ctx, "idx", 0, 1))
	n, err := store.ZCard(ctx, "idx")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, store.ZRemRangeByScore(ctx, "idx", 3, 4))
	n, err = store.ZCard(ctx, "idx")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestMemoryStore_ZIncrBy(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	score, err := store.ZIncrBy(ctx, "lb", "alice", 1)
	require.NoError(t, err)
	assert.Equal(t, float64(1), score)

	score, err = store.ZIncrBy(ctx, "lb", "alice", 1)
	require.NoError(t, err)
	assert.Equal(t, float64(2), score)
}
