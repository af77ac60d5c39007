package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/turf-wars/internal/domain/credit"
	"github.com/riskibarqy/turf-wars/internal/domain/game"
	"github.com/riskibarqy/turf-wars/internal/domain/territory"
)

const updateLogRetention = 24 * time.Hour

// TerritoryService owns the canvas and the derived zone-control map.
// Pixel writes are last-write-wins; the append-only update log gives
// clients eventual consistency without per-key locking.
type TerritoryService struct {
	territoryRepo territory.Repository
	credits       *CreditService
	teams         *TeamService
	leaderboard   *LeaderboardService
	cfg           game.Config
	now           func() time.Time
}

func NewTerritoryService(
	territoryRepo territory.Repository,
	credits *CreditService,
	teams *TeamService,
	leaderboard *LeaderboardService,
	cfg game.Config,
) *TerritoryService {
	return &TerritoryService{
		territoryRepo: territoryRepo,
		credits:       credits,
		teams:         teams,
		leaderboard:   leaderboard,
		cfg:           cfg,
		now:           time.Now,
	}
}

// PlacementResult is everything a client needs to render the outcome of
// one placement.
type PlacementResult struct {
	Pixel   territory.Pixel `json:"pixel"`
	Zone    territory.Zone  `json:"zone"`
	Credits credit.State    `json:"credits"`
}

// PlacePixel is the hot-path player action: spend a credit, claim the
// cell for the player's team, bump the leaderboard and recompute just the
// affected zone. The credit deduction is the gate; everything after it is
// not rolled back on failure.
func (s *TerritoryService) PlacePixel(ctx context.Context, username string, x, y int) (PlacementResult, error) {
	ctx, span := startUsecaseSpan(ctx, "TerritoryService.PlacePixel")
	defer span.End()

	if err := s.validateCoordinate(x, y); err != nil {
		return PlacementResult{}, err
	}

	team, err := s.teams.GetUserTeam(ctx, username)
	if err != nil {
		return PlacementResult{}, err
	}

	credits, err := s.credits.DeductCredit(ctx, username)
	if err != nil {
		return PlacementResult{}, err
	}

	timestamp := s.now().UnixMilli()
	if err := s.territoryRepo.SetPixel(ctx, x, y, team.ID, timestamp); err != nil {
		return PlacementResult{}, fmt.Errorf("set pixel: %w", err)
	}

	if _, err := s.leaderboard.IncrementPlayerScore(ctx, username); err != nil {
		return PlacementResult{}, fmt.Errorf("increment score: %w", err)
	}

	pixels, err := s.territoryRepo.GetAllPixels(ctx)
	if err != nil {
		return PlacementResult{}, fmt.Errorf("read pixels: %w", err)
	}
	zone, err := s.UpdateZoneForPixel(ctx, x, y, pixels)
	if err != nil {
		return PlacementResult{}, err
	}

	return PlacementResult{
		Pixel:   territory.Pixel{X: x, Y: y, TeamID: team.ID, Timestamp: timestamp},
		Zone:    zone,
		Credits: credits,
	}, nil
}

func (s *TerritoryService) GetPixel(ctx context.Context, x, y int) (string, bool, error) {
	if err := s.validateCoordinate(x, y); err != nil {
		return "", false, err
	}
	return s.territoryRepo.GetPixel(ctx, x, y)
}

func (s *TerritoryService) GetAllPixels(ctx context.Context) ([]territory.Pixel, error) {
	ctx, span := startUsecaseSpan(ctx, "TerritoryService.GetAllPixels")
	defer span.End()

	pixels, err := s.territoryRepo.GetAllPixels(ctx)
	if err != nil {
		return nil, fmt.Errorf("read pixels: %w", err)
	}
	return pixels, nil
}

// GetUpdatesSince returns log entries newer than the given unix-milli
// timestamp, for incremental client sync.
func (s *TerritoryService) GetUpdatesSince(ctx context.Context, since int64) ([]territory.Pixel, error) {
	ctx, span := startUsecaseSpan(ctx, "TerritoryService.GetUpdatesSince")
	defer span.End()

	updates, err := s.territoryRepo.GetUpdatesSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("read update log: %w", err)
	}
	return updates, nil
}

func (s *TerritoryService) PixelCount(ctx context.Context) (int64, error) {
	return s.territoryRepo.PixelCount(ctx)
}

// PixelCountByTeam is a full-scan aggregate for splash displays.
func (s *TerritoryService) PixelCountByTeam(ctx context.Context) (map[string]int, error) {
	ctx, span := startUsecaseSpan(ctx, "TerritoryService.PixelCountByTeam")
	defer span.End()

	pixels, err := s.territoryRepo.GetAllPixels(ctx)
	if err != nil {
		return nil, fmt.Errorf("read pixels: %w", err)
	}

	counts := make(map[string]int)
	for _, pixel := range pixels {
		counts[pixel.TeamID]++
	}
	return counts, nil
}

// CalculateZoneControl tallies the given pixel set for one zone. The
// controller must hold strictly more pixels than every other team in the
// zone; a tie for the lead leaves the zone uncontrolled.
func (s *TerritoryService) CalculateZoneControl(zoneX, zoneY int, pixels []territory.Pixel) territory.Zone {
	pixelCount := make(map[string]int)
	for _, pixel := range pixels {
		px, py := territory.ZoneFor(pixel.X, pixel.Y, s.cfg.ZoneSize)
		if px == zoneX && py == zoneY {
			pixelCount[pixel.TeamID]++
		}
	}

	var controller string
	maxCount := 0
	for teamID, count := range pixelCount {
		switch {
		case count > maxCount:
			controller = teamID
			maxCount = count
		case count == maxCount:
			controller = ""
		}
	}

	return territory.Zone{
		X:               zoneX,
		Y:               zoneY,
		ControllingTeam: controller,
		PixelCount:      pixelCount,
	}
}

// CalculateAllZones recomputes every zone in the grid from scratch.
// O(zones × pixels): used for season-end winner computation, never on
// the placement hot path.
func (s *TerritoryService) CalculateAllZones(pixels []territory.Pixel) []territory.Zone {
	zones := make([]territory.Zone, 0, s.cfg.ZonesX()*s.cfg.ZonesY())
	for zx := 0; zx < s.cfg.ZonesX(); zx++ {
		for zy := 0; zy < s.cfg.ZonesY(); zy++ {
			zones = append(zones, s.CalculateZoneControl(zx, zy, pixels))
		}
	}
	return zones
}

// UpdateZoneForPixel recomputes only the zone containing (x, y) and
// persists that single entry.
func (s *TerritoryService) UpdateZoneForPixel(ctx context.Context, x, y int, pixels []territory.Pixel) (territory.Zone, error) {
	zoneX, zoneY := territory.ZoneFor(x, y, s.cfg.ZoneSize)
	zone := s.CalculateZoneControl(zoneX, zoneY, pixels)

	if err := s.territoryRepo.SetZoneController(ctx, zoneX, zoneY, zone.ControllingTeam); err != nil {
		return territory.Zone{}, fmt.Errorf("persist zone %d:%d: %w", zoneX, zoneY, err)
	}
	return zone, nil
}

// StoreZoneControl replaces the persisted sparse zone map; zones with no
// controller are not stored.
func (s *TerritoryService) StoreZoneControl(ctx context.Context, zones []territory.Zone) error {
	ctx, span := startUsecaseSpan(ctx, "TerritoryService.StoreZoneControl")
	defer span.End()

	controllers := make(map[string]string)
	for _, zone := range zones {
		if zone.ControllingTeam != "" {
			controllers[fmt.Sprintf("%d:%d", zone.X, zone.Y)] = zone.ControllingTeam
		}
	}

	if err := s.territoryRepo.ReplaceZoneControllers(ctx, controllers); err != nil {
		return fmt.Errorf("replace zone controllers: %w", err)
	}
	return nil
}

// GetZoneControl reads the sparse zone map and materializes the full
// grid; zones missing from storage come back uncontrolled. Pixel counts
// are not persisted and come back empty.
func (s *TerritoryService) GetZoneControl(ctx context.Context) ([]territory.Zone, error) {
	ctx, span := startUsecaseSpan(ctx, "TerritoryService.GetZoneControl")
	defer span.End()

	controllers, err := s.territoryRepo.GetZoneControllers(ctx)
	if err != nil {
		return nil, fmt.Errorf("read zone controllers: %w", err)
	}

	zones := make([]territory.Zone, 0, s.cfg.ZonesX()*s.cfg.ZonesY())
	for zx := 0; zx < s.cfg.ZonesX(); zx++ {
		for zy := 0; zy < s.cfg.ZonesY(); zy++ {
			zones = append(zones, territory.Zone{
				X:               zx,
				Y:               zy,
				ControllingTeam: controllers[fmt.Sprintf("%d:%d", zx, zy)],
				PixelCount:      map[string]int{},
			})
		}
	}
	return zones, nil
}

// CountZonesByTeam tallies controlled zones per team from a computed
// zone list.
func (s *TerritoryService) CountZonesByTeam(zones []territory.Zone) map[string]int {
	counts := make(map[string]int)
	for _, zone := range zones {
		if zone.ControllingTeam != "" {
			counts[zone.ControllingTeam]++
		}
	}
	return counts
}

// PruneOldUpdates drops update-log entries older than the retention
// window.
func (s *TerritoryService) PruneOldUpdates(ctx context.Context) error {
	ctx, span := startUsecaseSpan(ctx, "TerritoryService.PruneOldUpdates")
	defer span.End()

	cutoff := s.now().Add(-updateLogRetention).UnixMilli()
	if err := s.territoryRepo.PruneUpdatesBefore(ctx, cutoff); err != nil {
		return fmt.Errorf("prune update log: %w", err)
	}
	return nil
}

func (s *TerritoryService) validateCoordinate(x, y int) error {
	if x < 0 || x >= s.cfg.CanvasWidth || y < 0 || y >= s.cfg.CanvasHeight {
		return fmt.Errorf("%w: coordinate (%d,%d) outside %dx%d canvas",
			ErrInvalidInput, x, y, s.cfg.CanvasWidth, s.cfg.CanvasHeight)
	}
	return nil
}
