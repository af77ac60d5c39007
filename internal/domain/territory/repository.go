package territory

import "context"

// Repository owns pixel state, the append-only update log and the sparse
// zone-controller map.
type Repository interface {
	GetPixel(ctx context.Context, x, y int) (string, bool, error)
	SetPixel(ctx context.Context, x, y int, teamID string, timestamp int64) error
	GetAllPixels(ctx context.Context) ([]Pixel, error)
	GetUpdatesSince(ctx context.Context, since int64) ([]Pixel, error)
	PruneUpdatesBefore(ctx context.Context, cutoff int64) error
	PixelCount(ctx context.Context) (int64, error)

	// SetZoneController stores the zone's controller, or deletes the entry
	// when teamID is empty: absence means uncontrolled.
	SetZoneController(ctx context.Context, zoneX, zoneY int, teamID string) error
	GetZoneControllers(ctx context.Context) (map[string]string, error)
	ReplaceZoneControllers(ctx context.Context, controllers map[string]string) error

	ClearCanvas(ctx context.Context) error
	ClearUpdateLog(ctx context.Context) error
	ClearZones(ctx context.Context) error
}
