package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/riskibarqy/turf-wars/internal/domain/game"
	"github.com/riskibarqy/turf-wars/internal/domain/season"
)

func newSeasonServiceForTest(seasonRepo *stubSeasonRepository, territoryRepo *stubTerritoryRepository, scoreRepo *stubScoreRepository, teamRepo *stubTeamRepository) *SeasonService {
	return NewSeasonService(seasonRepo, territoryRepo, scoreRepo, teamRepo, game.DefaultConfig(), nil)
}

func TestSeasonService_Initialize_IsIdempotent(t *testing.T) {
	t.Parallel()

	seasonRepo := newStubSeasonRepository()
	service := newSeasonServiceForTest(seasonRepo, newStubTerritoryRepository(), newStubScoreRepository(), newStubTeamRepository())
	service.now = fixedClock(1_000_000)

	if err := service.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize error: %v", err)
	}
	first, err := service.GetCurrentSeason(context.Background())
	if err != nil {
		t.Fatalf("GetCurrentSeason error: %v", err)
	}
	if first.Number != 1 {
		t.Fatalf("expected season 1, got %d", first.Number)
	}
	if first.EndTime != first.StartTime+first.DurationMs {
		t.Fatalf("end time must be start+duration: %+v", first)
	}

	if err := service.Initialize(context.Background()); err != nil {
		t.Fatalf("second Initialize error: %v", err)
	}
	second, err := service.GetCurrentSeason(context.Background())
	if err != nil {
		t.Fatalf("GetCurrentSeason error: %v", err)
	}
	if second.Number != 1 {
		t.Fatalf("Initialize must not duplicate seasons, got season %d", second.Number)
	}
}

func TestSeasonService_GetCurrentSeason_FailsWhenUninitialized(t *testing.T) {
	t.Parallel()

	service := newSeasonServiceForTest(newStubSeasonRepository(), newStubTerritoryRepository(), newStubScoreRepository(), newStubTeamRepository())

	if _, err := service.GetCurrentSeason(context.Background()); !errors.Is(err, ErrNoActiveSeason) {
		t.Fatalf("expected ErrNoActiveSeason, got %v", err)
	}
	if _, err := service.GetTimeRemaining(context.Background()); !errors.Is(err, ErrNoActiveSeason) {
		t.Fatalf("expected ErrNoActiveSeason, got %v", err)
	}
}

func TestSeasonService_GetTimeRemaining_ClampsAtZero(t *testing.T) {
	t.Parallel()

	seasonRepo := newStubSeasonRepository()
	seasonRepo.current = &season.Season{
		Number: 1, StartTime: 0, EndTime: 1000, DurationMs: 1000, Status: season.StatusActive,
	}
	service := newSeasonServiceForTest(seasonRepo, newStubTerritoryRepository(), newStubScoreRepository(), newStubTeamRepository())
	service.now = fixedClock(5000)

	remaining, err := service.GetTimeRemaining(context.Background())
	if err != nil {
		t.Fatalf("GetTimeRemaining error: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected 0 after end time, got %d", remaining)
	}
}

func TestSeasonService_UpdateSettings_MergesAndValidates(t *testing.T) {
	t.Parallel()

	seasonRepo := newStubSeasonRepository()
	service := newSeasonServiceForTest(seasonRepo, newStubTerritoryRepository(), newStubScoreRepository(), newStubTeamRepository())

	duration := int64(3_600_000)
	disabled := false
	got, err := service.UpdateSettings(context.Background(), season.SettingsPatch{
		DurationMs:    &duration,
		Enable24hWarn: &disabled,
	})
	if err != nil {
		t.Fatalf("UpdateSettings error: %v", err)
	}
	if got.DurationMs != duration || got.Enable24hWarn {
		t.Fatalf("patch not applied: %+v", got)
	}
	if !got.Enable1hWarn || !got.EnableAutoPosts {
		t.Fatalf("untouched fields must keep stored values: %+v", got)
	}

	invalid := int64(0)
	if _, err := service.UpdateSettings(context.Background(), season.SettingsPatch{DurationMs: &invalid}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for non-positive duration, got %v", err)
	}
}

func TestSeasonService_StartNewSeason_IncrementsNumber(t *testing.T) {
	t.Parallel()

	seasonRepo := newStubSeasonRepository()
	seasonRepo.current = &season.Season{Number: 4, DurationMs: 1000, Status: season.StatusActive}
	seasonRepo.settings = &season.Settings{DurationMs: 2000, EnableAutoPosts: true}

	service := newSeasonServiceForTest(seasonRepo, newStubTerritoryRepository(), newStubScoreRepository(), newStubTeamRepository())
	service.now = fixedClock(10_000)

	next, err := service.StartNewSeason(context.Background())
	if err != nil {
		t.Fatalf("StartNewSeason error: %v", err)
	}
	if next.Number != 5 {
		t.Fatalf("expected season 5, got %d", next.Number)
	}
	if next.StartTime != 10_000 || next.EndTime != 12_000 || next.DurationMs != 2000 {
		t.Fatalf("season not built from settings: %+v", next)
	}
	if seasonRepo.current.Number != 5 {
		t.Fatalf("new season must replace the current record")
	}
}

func TestSeasonService_CalculateWinner_ScoresAndTieOrder(t *testing.T) {
	t.Parallel()

	seasonRepo := newStubSeasonRepository()
	territoryRepo := newStubTerritoryRepository()
	scoreRepo := newStubScoreRepository()
	teamRepo := newStubTeamRepository()
	ctx := context.Background()

	// blue: 2 zones + 1 pixel = 201; red: 1 zone + 101 pixels = 201.
	// The configured order lists red first, so red wins the tie.
	territoryRepo.zones = map[string]string{"0:0": "red", "1:0": "blue", "2:0": "blue"}
	for i := 0; i < 101; i++ {
		territoryRepo.pixels[coordKey(i%10, i/10)] = pixelFor(i%10, i/10, "red")
	}
	territoryRepo.pixels[coordKey(99, 99)] = pixelFor(99, 99, "blue")

	teamRepo.assignments = map[string]string{"alice": "red", "bob": "blue", "carol": "red"}
	scoreRepo.scores = map[string]int{"alice": 60, "bob": 41}

	service := newSeasonServiceForTest(seasonRepo, territoryRepo, scoreRepo, teamRepo)

	winner, standings, stats, err := service.CalculateWinner(ctx)
	if err != nil {
		t.Fatalf("CalculateWinner error: %v", err)
	}
	if winner.ID != "red" || winner.FinalScore != 201 {
		t.Fatalf("expected red to win the tie with 201, got %+v", winner)
	}
	if winner.Color != "#FF4444" {
		t.Fatalf("winner color must come from config, got %q", winner.Color)
	}
	if standings[0].TeamID != "red" || standings[1].TeamID != "blue" {
		t.Fatalf("unexpected standings order: %+v", standings)
	}
	if standings[1].Score != 201 || standings[1].ZonesControlled != 2 {
		t.Fatalf("unexpected blue standing: %+v", standings[1])
	}
	if standings[0].PlayerCount != 2 {
		t.Fatalf("expected 2 red players, got %d", standings[0].PlayerCount)
	}
	if stats.TotalPixelsPlaced != 102 || stats.TotalPlayers != 3 {
		t.Fatalf("unexpected statistics: %+v", stats)
	}
	if stats.TopPlayer.Username != "alice" || stats.TopPlayer.TeamID != "red" || stats.TopPlayer.PixelsPlaced != 60 {
		t.Fatalf("unexpected top player: %+v", stats.TopPlayer)
	}
}

func TestSeasonService_CalculateWinner_EmptyGameState(t *testing.T) {
	t.Parallel()

	service := newSeasonServiceForTest(newStubSeasonRepository(), newStubTerritoryRepository(), newStubScoreRepository(), newStubTeamRepository())

	winner, standings, stats, err := service.CalculateWinner(context.Background())
	if err != nil {
		t.Fatalf("CalculateWinner must not fail on an empty game: %v", err)
	}
	if winner.ID != "red" || winner.FinalScore != 0 {
		t.Fatalf("expected first configured team as zero-score winner, got %+v", winner)
	}
	if len(standings) != 4 {
		t.Fatalf("expected all configured teams in standings, got %d", len(standings))
	}
	if stats.TopPlayer.Username != "Unknown" || stats.TopPlayer.PixelsPlaced != 0 {
		t.Fatalf("expected Unknown top player, got %+v", stats.TopPlayer)
	}
}

func TestSeasonService_ResetGameState_PreservesTeamAssignments(t *testing.T) {
	t.Parallel()

	territoryRepo := newStubTerritoryRepository()
	scoreRepo := newStubScoreRepository()
	teamRepo := newStubTeamRepository()
	ctx := context.Background()

	territoryRepo.pixels[coordKey(1, 1)] = pixelFor(1, 1, "red")
	territoryRepo.updates = append(territoryRepo.updates, pixelFor(1, 1, "red"))
	territoryRepo.zones["0:0"] = "red"
	scoreRepo.scores["alice"] = 7
	teamRepo.assignments["alice"] = "red"

	service := newSeasonServiceForTest(newStubSeasonRepository(), territoryRepo, scoreRepo, teamRepo)

	if err := service.ResetGameState(ctx); err != nil {
		t.Fatalf("ResetGameState error: %v", err)
	}
	if len(territoryRepo.pixels) != 0 || len(territoryRepo.updates) != 0 || len(territoryRepo.zones) != 0 {
		t.Fatalf("game state not fully cleared")
	}
	if len(scoreRepo.scores) != 0 {
		t.Fatalf("leaderboard not cleared")
	}
	if teamRepo.assignments["alice"] != "red" {
		t.Fatalf("team assignments must survive the reset")
	}
}

func TestSeasonService_EndSeason_FullTransition(t *testing.T) {
	t.Parallel()

	seasonRepo := newStubSeasonRepository()
	seasonRepo.current = &season.Season{
		Number: 2, StartTime: 100, EndTime: 1100, DurationMs: 1000, Status: season.StatusActive,
	}
	territoryRepo := newStubTerritoryRepository()
	territoryRepo.pixels[coordKey(1, 1)] = pixelFor(1, 1, "blue")
	territoryRepo.zones["0:0"] = "blue"

	service := newSeasonServiceForTest(seasonRepo, territoryRepo, newStubScoreRepository(), newStubTeamRepository())
	service.now = fixedClock(2000)

	history, err := service.EndSeason(context.Background())
	if err != nil {
		t.Fatalf("EndSeason error: %v", err)
	}
	if history.Number != 2 || history.WinningTeam.ID != "blue" || history.WinningTeam.FinalScore != 101 {
		t.Fatalf("unexpected history: %+v", history)
	}
	if seasonRepo.current.Number != 3 {
		t.Fatalf("expected season 3 current after transition, got %d", seasonRepo.current.Number)
	}
	if _, ok := seasonRepo.history[2]; !ok {
		t.Fatalf("history for the ended season must be saved")
	}
	if len(territoryRepo.pixels) != 0 {
		t.Fatalf("canvas must be cleared by the transition")
	}
	if seasonRepo.locks[seasonLockKey] {
		t.Fatalf("lock must be released after the transition")
	}
}

func TestSeasonService_EndSeason_RejectsConcurrentTransition(t *testing.T) {
	t.Parallel()

	seasonRepo := newStubSeasonRepository()
	seasonRepo.current = &season.Season{Number: 1, DurationMs: 1000, Status: season.StatusActive}
	seasonRepo.locks[seasonLockKey] = true

	service := newSeasonServiceForTest(seasonRepo, newStubTerritoryRepository(), newStubScoreRepository(), newStubTeamRepository())

	if _, err := service.EndSeason(context.Background()); !errors.Is(err, ErrTransitionInProgress) {
		t.Fatalf("expected ErrTransitionInProgress, got %v", err)
	}
}

func TestSeasonService_EndSeason_HistoryFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	seasonRepo := newStubSeasonRepository()
	seasonRepo.current = &season.Season{Number: 1, DurationMs: 1000, Status: season.StatusActive}
	seasonRepo.saveHistoryErr = errors.New("storage offline")

	service := newSeasonServiceForTest(seasonRepo, newStubTerritoryRepository(), newStubScoreRepository(), newStubTeamRepository())
	service.now = fixedClock(5000)

	history, err := service.EndSeason(context.Background())
	if err != nil {
		t.Fatalf("history failure must not abort the transition: %v", err)
	}
	if history.Number != 1 {
		t.Fatalf("unexpected history: %+v", history)
	}
	if seasonRepo.current.Number != 2 {
		t.Fatalf("transition must complete despite history failure")
	}
	if len(seasonRepo.failedPosts) != 1 {
		t.Fatalf("expected 1 queued failed post, got %d", len(seasonRepo.failedPosts))
	}
	if seasonRepo.failedPosts[0].Error != "storage offline" {
		t.Fatalf("unexpected failed post: %+v", seasonRepo.failedPosts[0])
	}
}

func TestSeasonService_EndSeason_ResetFailureIsFatal(t *testing.T) {
	t.Parallel()

	seasonRepo := newStubSeasonRepository()
	seasonRepo.current = &season.Season{Number: 1, DurationMs: 1000, Status: season.StatusActive}
	territoryRepo := newStubTerritoryRepository()
	territoryRepo.clearCanvasErr = errors.New("storage offline")

	service := newSeasonServiceForTest(seasonRepo, territoryRepo, newStubScoreRepository(), newStubTeamRepository())

	if _, err := service.EndSeason(context.Background()); err == nil {
		t.Fatalf("expected reset failure to abort the transition")
	}
	if seasonRepo.current.Number != 1 {
		t.Fatalf("no new season may start after a fatal reset failure")
	}
	if seasonRepo.locks[seasonLockKey] {
		t.Fatalf("lock must be released on the failure path")
	}
}
