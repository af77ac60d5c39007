package kv

import (
	"context"
	"fmt"
	"math"

	"github.com/riskibarqy/turf-wars/internal/domain/territory"
	"github.com/riskibarqy/turf-wars/internal/platform/kvstore"
)

// updateLogWindow bounds how far back an incremental sync can reach; clients
// further behind must refetch the full canvas.
const updateLogWindow = 1000

// TerritoryRepository stores the canvas hash, the append-only update log and
// the sparse zone-controller map for one game instance.
type TerritoryRepository struct {
	store      kvstore.Store
	instanceID string
}

func NewTerritoryRepository(store kvstore.Store, instanceID string) *TerritoryRepository {
	return &TerritoryRepository{store: store, instanceID: instanceID}
}

func (r *TerritoryRepository) GetPixel(ctx context.Context, x, y int) (string, bool, error) {
	teamID, ok, err := r.store.HGet(ctx, canvasKey(r.instanceID), coordField(x, y))
	if err != nil {
		return "", false, fmt.Errorf("get pixel %d:%d: %w", x, y, err)
	}
	return teamID, ok, nil
}

func (r *TerritoryRepository) SetPixel(ctx context.Context, x, y int, teamID string, timestamp int64) error {
	field := coordField(x, y)
	if err := r.store.HSet(ctx, canvasKey(r.instanceID), map[string]string{field: teamID}); err != nil {
		return fmt.Errorf("set pixel %s: %w", field, err)
	}

	member := kvstore.ZMember{Member: updateMember(x, y, teamID), Score: float64(timestamp)}
	if err := r.store.ZAdd(ctx, canvasUpdatesKey(r.instanceID), member); err != nil {
		return fmt.Errorf("log pixel update %s: %w", field, err)
	}
	return nil
}

func (r *TerritoryRepository) GetAllPixels(ctx context.Context) ([]territory.Pixel, error) {
	data, err := r.store.HGetAll(ctx, canvasKey(r.instanceID))
	if err != nil {
		return nil, fmt.Errorf("read canvas: %w", err)
	}

	pixels := make([]territory.Pixel, 0, len(data))
	for field, teamID := range data {
		x, y, ok := parseCoordField(field)
		if !ok {
			continue
		}
		pixels = append(pixels, territory.Pixel{X: x, Y: y, TeamID: teamID})
	}
	return pixels, nil
}

func (r *TerritoryRepository) GetUpdatesSince(ctx context.Context, since int64) ([]territory.Pixel, error) {
	members, err := r.store.ZRangeByRank(ctx, canvasUpdatesKey(r.instanceID), -updateLogWindow, -1, false)
	if err != nil {
		return nil, fmt.Errorf("read update log: %w", err)
	}

	var pixels []territory.Pixel
	for _, m := range members {
		if int64(m.Score) <= since {
			continue
		}
		x, y, teamID, ok := parseUpdateMember(m.Member)
		if !ok {
			continue
		}
		pixels = append(pixels, territory.Pixel{X: x, Y: y, TeamID: teamID, Timestamp: int64(m.Score)})
	}
	return pixels, nil
}

func (r *TerritoryRepository) PruneUpdatesBefore(ctx context.Context, cutoff int64) error {
	err := r.store.ZRemRangeByScore(ctx, canvasUpdatesKey(r.instanceID), math.Inf(-1), float64(cutoff))
	if err != nil {
		return fmt.Errorf("prune update log: %w", err)
	}
	return nil
}

func (r *TerritoryRepository) PixelCount(ctx context.Context) (int64, error) {
	n, err := r.store.HLen(ctx, canvasKey(r.instanceID))
	if err != nil {
		return 0, fmt.Errorf("count pixels: %w", err)
	}
	return n, nil
}

func (r *TerritoryRepository) SetZoneController(ctx context.Context, zoneX, zoneY int, teamID string) error {
	key := zoneControlKey(r.instanceID)
	field := coordField(zoneX, zoneY)

	if teamID == "" {
		if err := r.store.HDel(ctx, key, field); err != nil {
			return fmt.Errorf("clear zone controller %s: %w", field, err)
		}
		return nil
	}
	if err := r.store.HSet(ctx, key, map[string]string{field: teamID}); err != nil {
		return fmt.Errorf("set zone controller %s: %w", field, err)
	}
	return nil
}

func (r *TerritoryRepository) GetZoneControllers(ctx context.Context) (map[string]string, error) {
	data, err := r.store.HGetAll(ctx, zoneControlKey(r.instanceID))
	if err != nil {
		return nil, fmt.Errorf("read zone controllers: %w", err)
	}
	return data, nil
}

func (r *TerritoryRepository) ReplaceZoneControllers(ctx context.Context, controllers map[string]string) error {
	key := zoneControlKey(r.instanceID)
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("reset zone controllers: %w", err)
	}
	if len(controllers) == 0 {
		return nil
	}
	if err := r.store.HSet(ctx, key, controllers); err != nil {
		return fmt.Errorf("store zone controllers: %w", err)
	}
	return nil
}

func (r *TerritoryRepository) ClearCanvas(ctx context.Context) error {
	if err := r.store.Del(ctx, canvasKey(r.instanceID)); err != nil {
		return fmt.Errorf("clear canvas: %w", err)
	}
	return nil
}

func (r *TerritoryRepository) ClearUpdateLog(ctx context.Context) error {
	if err := r.store.Del(ctx, canvasUpdatesKey(r.instanceID)); err != nil {
		return fmt.Errorf("clear update log: %w", err)
	}
	return nil
}

func (r *TerritoryRepository) ClearZones(ctx context.Context) error {
	if err := r.store.Del(ctx, zoneControlKey(r.instanceID)); err != nil {
		return fmt.Errorf("clear zone controllers: %w", err)
	}
	return nil
}
