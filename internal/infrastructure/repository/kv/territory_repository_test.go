package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/turf-wars/internal/platform/kvstore"
)

func TestTerritoryRepository_SetPixelRoundTrip(t *testing.T) {
	t.Parallel()

	repo := NewTerritoryRepository(kvstore.NewMemoryStore(), "g1")
	ctx := context.Background()

	require.NoError(t, repo.SetPixel(ctx, 4, 7, "red", 1000))

	teamID, ok, err := repo.GetPixel(ctx, 4, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "red", teamID)

	pixels, err := repo.GetAllPixels(ctx)
	require.NoError(t, err)
	require.Len(t, pixels, 1)
	assert.Equal(t, 4, pixels[0].X)
	assert.Equal(t, 7, pixels[0].Y)
	assert.Equal(t, "red", pixels[0].TeamID)
}

func TestTerritoryRepository_UpdateLog(t *testing.T) {
	t.Parallel()

	repo := NewTerritoryRepository(kvstore.NewMemoryStore(), "g1")
	ctx := context.Background()

	require.NoError(t, repo.SetPixel(ctx, 1, 1, "red", 1000))
	require.NoError(t, repo.SetPixel(ctx, 2, 2, "blue", 2000))

	updates, err := repo.GetUpdatesSince(ctx, 1500)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, "blue", updates[0].TeamID)
	assert.Equal(t, int64(2000), updates[0].Timestamp)

	updates, err = repo.GetUpdatesSince(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, updates, 2)

	require.NoError(t, repo.PruneUpdatesBefore(ctx, 1500))
	updates, err = repo.GetUpdatesSince(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, updates, 1)
}

func TestTerritoryRepository_ZoneControllers(t *testing.T) {
	t.Parallel()

	repo := NewTerritoryRepository(kvstore.NewMemoryStore(), "g1")
	ctx := context.Background()

	require.NoError(t, repo.SetZoneController(ctx, 0, 0, "red"))
	require.NoError(t, repo.SetZoneController(ctx, 1, 0, "blue"))

	controllers, err := repo.GetZoneControllers(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"0:0": "red", "1:0": "blue"}, controllers)

	// Empty team deletes the entry: absence means uncontrolled.
	require.NoError(t, repo.SetZoneController(ctx, 0, 0, ""))
	controllers, err = repo.GetZoneControllers(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"1:0": "blue"}, controllers)
}

func TestTerritoryRepository_InstancesAreIsolated(t *testing.T) {
	t.Parallel()

	store := kvstore.NewMemoryStore()
	a := NewTerritoryRepository(store, "a")
	b := NewTerritoryRepository(store, "b")
	ctx := context.Background()

	require.NoError(t, a.SetPixel(ctx, 0, 0, "red", 1))

	_, ok, err := b.GetPixel(ctx, 0, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}
