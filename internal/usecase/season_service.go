package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/riskibarqy/turf-wars/internal/domain/game"
	"github.com/riskibarqy/turf-wars/internal/domain/player"
	"github.com/riskibarqy/turf-wars/internal/domain/season"
	"github.com/riskibarqy/turf-wars/internal/domain/territory"
	"github.com/riskibarqy/turf-wars/internal/platform/logging"
)

const (
	seasonLockKey = "season:lock"
	seasonLockTTL = 60 * time.Second

	zoneScoreWeight = 100
)

// SeasonService is the lifecycle orchestrator: it owns the current
// season record, the transition pipeline and the derived winner
// computation.
type SeasonService struct {
	seasonRepo    season.Repository
	territoryRepo territory.Repository
	scoreRepo     player.ScoreRepository
	teamRepo      player.TeamRepository
	cfg           game.Config
	logger        *logging.Logger
	now           func() time.Time
}

func NewSeasonService(
	seasonRepo season.Repository,
	territoryRepo territory.Repository,
	scoreRepo player.ScoreRepository,
	teamRepo player.TeamRepository,
	cfg game.Config,
	logger *logging.Logger,
) *SeasonService {
	if logger == nil {
		logger = logging.Default()
	}
	return &SeasonService{
		seasonRepo:    seasonRepo,
		territoryRepo: territoryRepo,
		scoreRepo:     scoreRepo,
		teamRepo:      teamRepo,
		cfg:           cfg,
		logger:        logger,
		now:           time.Now,
	}
}

// Initialize is the idempotent bootstrap: it ensures settings exist and
// starts season 1 when no season has ever run. Safe to call on every
// process start.
func (s *SeasonService) Initialize(ctx context.Context) error {
	ctx, span := startUsecaseSpan(ctx, "SeasonService.Initialize")
	defer span.End()

	settings, err := s.seasonRepo.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("load season settings: %w", err)
	}

	current, exists, err := s.seasonRepo.GetCurrentSeason(ctx)
	if err != nil {
		return fmt.Errorf("load current season: %w", err)
	}
	if !exists {
		started, err := s.StartNewSeason(ctx)
		if err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "season system initialized",
			"season", started.Number, "duration_ms", started.DurationMs)
		return nil
	}

	s.logger.InfoContext(ctx, "season system initialized",
		"season", current.Number,
		"remaining_ms", maxInt64(0, current.EndTime-s.now().UnixMilli()),
		"duration_ms", settings.DurationMs)
	return nil
}

// GetCurrentSeason fails with ErrNoActiveSeason when the system was
// never initialized.
func (s *SeasonService) GetCurrentSeason(ctx context.Context) (season.Season, error) {
	current, exists, err := s.seasonRepo.GetCurrentSeason(ctx)
	if err != nil {
		return season.Season{}, fmt.Errorf("load current season: %w", err)
	}
	if !exists {
		return season.Season{}, ErrNoActiveSeason
	}
	return current, nil
}

// GetTimeRemaining reports milliseconds until the current season ends,
// clamped at zero once the end time has passed.
func (s *SeasonService) GetTimeRemaining(ctx context.Context) (int64, error) {
	current, err := s.GetCurrentSeason(ctx)
	if err != nil {
		return 0, err
	}
	return maxInt64(0, current.EndTime-s.now().UnixMilli()), nil
}

func (s *SeasonService) GetSettings(ctx context.Context) (season.Settings, error) {
	settings, err := s.seasonRepo.GetSettings(ctx)
	if err != nil {
		return season.Settings{}, fmt.Errorf("load season settings: %w", err)
	}
	return settings, nil
}

// UpdateSettings merges the patch into stored settings. The running
// season is never touched; the result applies to seasons started after
// this call.
func (s *SeasonService) UpdateSettings(ctx context.Context, patch season.SettingsPatch) (season.Settings, error) {
	ctx, span := startUsecaseSpan(ctx, "SeasonService.UpdateSettings")
	defer span.End()

	settings, err := s.seasonRepo.GetSettings(ctx)
	if err != nil {
		return season.Settings{}, fmt.Errorf("load season settings: %w", err)
	}

	if patch.DurationMs != nil {
		settings.DurationMs = *patch.DurationMs
	}
	if patch.EnableAutoPosts != nil {
		settings.EnableAutoPosts = *patch.EnableAutoPosts
	}
	if patch.Enable24hWarn != nil {
		settings.Enable24hWarn = *patch.Enable24hWarn
	}
	if patch.Enable1hWarn != nil {
		settings.Enable1hWarn = *patch.Enable1hWarn
	}

	if settings.DurationMs <= 0 {
		return season.Settings{}, fmt.Errorf("%w: season duration must be positive", ErrInvalidInput)
	}

	if err := s.seasonRepo.SetSettings(ctx, settings); err != nil {
		return season.Settings{}, fmt.Errorf("persist season settings: %w", err)
	}
	s.logger.InfoContext(ctx, "season settings updated", "duration_ms", settings.DurationMs)
	return settings, nil
}

// StartNewSeason replaces the current season record with its successor:
// number current+1 (or 1 on first run), starting now, running for the
// currently configured duration.
func (s *SeasonService) StartNewSeason(ctx context.Context) (season.Season, error) {
	ctx, span := startUsecaseSpan(ctx, "SeasonService.StartNewSeason")
	defer span.End()

	number := 1
	if current, exists, err := s.seasonRepo.GetCurrentSeason(ctx); err != nil {
		return season.Season{}, fmt.Errorf("load current season: %w", err)
	} else if exists {
		number = current.Number + 1
	}

	settings, err := s.seasonRepo.GetSettings(ctx)
	if err != nil {
		return season.Season{}, fmt.Errorf("load season settings: %w", err)
	}

	now := s.now().UnixMilli()
	next := season.Season{
		Number:     number,
		StartTime:  now,
		EndTime:    now + settings.DurationMs,
		DurationMs: settings.DurationMs,
		Status:     season.StatusActive,
	}
	if err := s.seasonRepo.SetCurrentSeason(ctx, next); err != nil {
		return season.Season{}, fmt.Errorf("persist new season: %w", err)
	}

	s.logger.InfoContext(ctx, "season started",
		"season", next.Number, "end_time", next.EndTime)
	return next, nil
}

// CalculateWinner derives the final standings from the live game state.
// Team score = zones controlled × 100 + total pixels. Ties keep the
// configured team order, so the first-listed team wins a dead heat; an
// empty game yields the first configured team as a zero-score winner.
func (s *SeasonService) CalculateWinner(ctx context.Context) (season.WinningTeam, []season.Standing, season.Statistics, error) {
	ctx, span := startUsecaseSpan(ctx, "SeasonService.CalculateWinner")
	defer span.End()

	if len(s.cfg.Teams) == 0 {
		return season.WinningTeam{}, nil, season.Statistics{},
			fmt.Errorf("%w: no teams configured", ErrInvalidInput)
	}

	pixels, err := s.territoryRepo.GetAllPixels(ctx)
	if err != nil {
		return season.WinningTeam{}, nil, season.Statistics{}, fmt.Errorf("read pixels: %w", err)
	}
	zoneControllers, err := s.territoryRepo.GetZoneControllers(ctx)
	if err != nil {
		return season.WinningTeam{}, nil, season.Statistics{}, fmt.Errorf("read zone controllers: %w", err)
	}
	scores, err := s.scoreRepo.AllScores(ctx)
	if err != nil {
		return season.WinningTeam{}, nil, season.Statistics{}, fmt.Errorf("read leaderboard: %w", err)
	}
	assignments, err := s.teamRepo.AllAssignments(ctx)
	if err != nil {
		return season.WinningTeam{}, nil, season.Statistics{}, fmt.Errorf("read team assignments: %w", err)
	}

	pixelCounts := make(map[string]int)
	for _, pixel := range pixels {
		pixelCounts[pixel.TeamID]++
	}
	zoneCounts := make(map[string]int)
	for _, teamID := range zoneControllers {
		zoneCounts[teamID]++
	}
	playerCounts := make(map[string]int)
	for _, teamID := range assignments {
		playerCounts[teamID]++
	}

	standings := make([]season.Standing, 0, len(s.cfg.Teams))
	for _, team := range s.cfg.Teams {
		standings = append(standings, season.Standing{
			TeamID:          team.ID,
			TeamName:        team.Name,
			Score:           zoneCounts[team.ID]*zoneScoreWeight + pixelCounts[team.ID],
			ZonesControlled: zoneCounts[team.ID],
			PlayerCount:     playerCounts[team.ID],
		})
	}
	// Stable sort keeps the configured team order as the tie-breaker.
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Score > standings[j].Score
	})

	winnerTeam, _ := s.cfg.TeamByID(standings[0].TeamID)
	winner := season.WinningTeam{
		ID:         standings[0].TeamID,
		Name:       standings[0].TeamName,
		Color:      winnerTeam.Color,
		FinalScore: standings[0].Score,
	}

	topPlayer := season.TopPlayer{Username: "Unknown", TeamID: "unknown", PixelsPlaced: 0}
	if len(scores) > 0 {
		top := scores[0]
		teamID := assignments[top.Username]
		if teamID == "" {
			teamID = "unknown"
		}
		topPlayer = season.TopPlayer{
			Username:     top.Username,
			TeamID:       teamID,
			PixelsPlaced: top.PixelsPlaced,
		}
	}

	stats := season.Statistics{
		TotalPixelsPlaced: len(pixels),
		TotalPlayers:      len(assignments),
		TopPlayer:         topPlayer,
	}
	return winner, standings, stats, nil
}

// ResetGameState clears the canvas, update log, leaderboard and zone
// map in parallel. Team assignments are deliberately preserved so
// returning players keep their side.
func (s *SeasonService) ResetGameState(ctx context.Context) error {
	ctx, span := startUsecaseSpan(ctx, "SeasonService.ResetGameState")
	defer span.End()

	p := pool.New().WithErrors().WithContext(ctx)
	p.Go(func(ctx context.Context) error { return s.territoryRepo.ClearCanvas(ctx) })
	p.Go(func(ctx context.Context) error { return s.territoryRepo.ClearUpdateLog(ctx) })
	p.Go(func(ctx context.Context) error { return s.territoryRepo.ClearZones(ctx) })
	p.Go(func(ctx context.Context) error { return s.scoreRepo.Clear(ctx) })

	if err := p.Wait(); err != nil {
		return fmt.Errorf("reset game state: %w", err)
	}
	s.logger.InfoContext(ctx, "game state reset complete")
	return nil
}

func (s *SeasonService) GetSeasonHistory(ctx context.Context, number int) (season.History, error) {
	h, exists, err := s.seasonRepo.GetHistory(ctx, number)
	if err != nil {
		return season.History{}, fmt.Errorf("load season history: %w", err)
	}
	if !exists {
		return season.History{}, fmt.Errorf("%w: season=%d", ErrNotFound, number)
	}
	return h, nil
}

// GetAllSeasonHistory returns the retained records, newest first.
func (s *SeasonService) GetAllSeasonHistory(ctx context.Context) ([]season.History, error) {
	records, err := s.seasonRepo.ListHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("list season history: %w", err)
	}
	return records, nil
}

func (s *SeasonService) ListFailedPosts(ctx context.Context) ([]season.FailedPost, error) {
	posts, err := s.seasonRepo.ListFailedPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list failed posts: %w", err)
	}
	return posts, nil
}

func (s *SeasonService) ClearFailedPosts(ctx context.Context) error {
	if err := s.seasonRepo.ClearFailedPosts(ctx); err != nil {
		return fmt.Errorf("clear failed posts: %w", err)
	}
	return nil
}

// EndSeason runs the transition pipeline under the global season lock:
// winner computation (fatal), history save (best effort), state reset
// (fatal), next season start (fatal). A second concurrent caller is
// rejected with ErrTransitionInProgress rather than queued; the lock is
// released on every exit path. Returns the completed season's history
// even though its successor is current by then.
func (s *SeasonService) EndSeason(ctx context.Context) (season.History, error) {
	ctx, span := startUsecaseSpan(ctx, "SeasonService.EndSeason")
	defer span.End()

	acquired, err := s.seasonRepo.AcquireLock(ctx, seasonLockKey, seasonLockTTL)
	if err != nil {
		return season.History{}, fmt.Errorf("acquire season lock: %w", err)
	}
	if !acquired {
		return season.History{}, ErrTransitionInProgress
	}
	defer func() {
		if err := s.seasonRepo.ReleaseLock(ctx, seasonLockKey); err != nil {
			s.logger.ErrorContext(ctx, "release season lock failed", "error", err)
		}
	}()

	current, err := s.GetCurrentSeason(ctx)
	if err != nil {
		return season.History{}, err
	}
	s.logger.InfoContext(ctx, "ending season", "season", current.Number)

	winner, standings, stats, err := s.CalculateWinner(ctx)
	if err != nil {
		return season.History{}, fmt.Errorf("calculate winner: %w", err)
	}

	history := season.History{
		Number:         current.Number,
		StartTime:      current.StartTime,
		EndTime:        current.EndTime,
		DurationMs:     current.DurationMs,
		WinningTeam:    winner,
		FinalStandings: standings,
		Statistics:     stats,
	}

	// History is best effort: a failed save is queued for manual
	// follow-up and the transition continues.
	if err := s.seasonRepo.SaveHistory(ctx, history); err != nil {
		s.logger.ErrorContext(ctx, "save season history failed, continuing",
			"season", current.Number, "error", err)
		post := season.FailedPost{
			Title:     fmt.Sprintf("Season %d History Save Failed", current.Number),
			Body:      fmt.Sprintf("Failed to save history: %v", err),
			Timestamp: s.now().UnixMilli(),
			Error:     err.Error(),
		}
		if queueErr := s.seasonRepo.AddFailedPost(ctx, post); queueErr != nil {
			s.logger.ErrorContext(ctx, "queue failed post failed",
				"season", current.Number, "error", queueErr)
		}
	}

	if err := s.ResetGameState(ctx); err != nil {
		return season.History{}, err
	}

	next, err := s.StartNewSeason(ctx)
	if err != nil {
		return season.History{}, err
	}

	s.logger.InfoContext(ctx, "season transition complete",
		"ended", current.Number, "started", next.Number,
		"winner", winner.Name, "final_score", winner.FinalScore)
	return history, nil
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
