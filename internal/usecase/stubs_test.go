package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/riskibarqy/turf-wars/internal/domain/player"
	"github.com/riskibarqy/turf-wars/internal/domain/season"
	"github.com/riskibarqy/turf-wars/internal/domain/territory"
)

type stubSeasonRepository struct {
	current        *season.Season
	settings       *season.Settings
	history        map[int]season.History
	jobs           map[int]season.Jobs
	failedPosts    []season.FailedPost
	locks          map[string]bool
	saveHistoryErr error
	setCurrentErr  error
}

func newStubSeasonRepository() *stubSeasonRepository {
	return &stubSeasonRepository{
		history: map[int]season.History{},
		jobs:    map[int]season.Jobs{},
		locks:   map[string]bool{},
	}
}

func (s *stubSeasonRepository) GetCurrentSeason(_ context.Context) (season.Season, bool, error) {
	if s.current == nil {
		return season.Season{}, false, nil
	}
	return *s.current, true, nil
}

func (s *stubSeasonRepository) SetCurrentSeason(_ context.Context, sn season.Season) error {
	if s.setCurrentErr != nil {
		return s.setCurrentErr
	}
	s.current = &sn
	return nil
}

func (s *stubSeasonRepository) GetSettings(_ context.Context) (season.Settings, error) {
	if s.settings == nil {
		return season.DefaultSettings(), nil
	}
	return *s.settings, nil
}

func (s *stubSeasonRepository) SetSettings(_ context.Context, settings season.Settings) error {
	s.settings = &settings
	return nil
}

func (s *stubSeasonRepository) GetHistory(_ context.Context, number int) (season.History, bool, error) {
	h, ok := s.history[number]
	return h, ok, nil
}

func (s *stubSeasonRepository) SaveHistory(_ context.Context, h season.History) error {
	if s.saveHistoryErr != nil {
		return s.saveHistoryErr
	}
	s.history[h.Number] = h
	return nil
}

func (s *stubSeasonRepository) ListHistory(_ context.Context) ([]season.History, error) {
	numbers := make([]int, 0, len(s.history))
	for n := range s.history {
		numbers = append(numbers, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(numbers)))

	out := make([]season.History, 0, len(numbers))
	for _, n := range numbers {
		out = append(out, s.history[n])
	}
	return out, nil
}

func (s *stubSeasonRepository) GetJobs(_ context.Context, number int) (season.Jobs, bool, error) {
	jobs, ok := s.jobs[number]
	return jobs, ok, nil
}

func (s *stubSeasonRepository) SetJobs(_ context.Context, number int, jobs season.Jobs) error {
	s.jobs[number] = jobs
	return nil
}

func (s *stubSeasonRepository) DeleteJobs(_ context.Context, number int) error {
	delete(s.jobs, number)
	return nil
}

func (s *stubSeasonRepository) AcquireLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	if s.locks[key] {
		return false, nil
	}
	s.locks[key] = true
	return true, nil
}

func (s *stubSeasonRepository) ReleaseLock(_ context.Context, key string) error {
	delete(s.locks, key)
	return nil
}

func (s *stubSeasonRepository) AddFailedPost(_ context.Context, post season.FailedPost) error {
	s.failedPosts = append(s.failedPosts, post)
	return nil
}

func (s *stubSeasonRepository) ListFailedPosts(_ context.Context) ([]season.FailedPost, error) {
	return s.failedPosts, nil
}

func (s *stubSeasonRepository) ClearFailedPosts(_ context.Context) error {
	s.failedPosts = nil
	return nil
}

type stubTerritoryRepository struct {
	pixels         map[string]territory.Pixel
	updates        []territory.Pixel
	zones          map[string]string
	clearCanvasErr error
}

func newStubTerritoryRepository() *stubTerritoryRepository {
	return &stubTerritoryRepository{
		pixels: map[string]territory.Pixel{},
		zones:  map[string]string{},
	}
}

func coordKey(x, y int) string { return fmt.Sprintf("%d:%d", x, y) }

func pixelFor(x, y int, teamID string) territory.Pixel {
	return territory.Pixel{X: x, Y: y, TeamID: teamID}
}

func (s *stubTerritoryRepository) GetPixel(_ context.Context, x, y int) (string, bool, error) {
	p, ok := s.pixels[coordKey(x, y)]
	return p.TeamID, ok, nil
}

func (s *stubTerritoryRepository) SetPixel(_ context.Context, x, y int, teamID string, timestamp int64) error {
	s.pixels[coordKey(x, y)] = territory.Pixel{X: x, Y: y, TeamID: teamID}
	s.updates = append(s.updates, territory.Pixel{X: x, Y: y, TeamID: teamID, Timestamp: timestamp})
	return nil
}

func (s *stubTerritoryRepository) GetAllPixels(_ context.Context) ([]territory.Pixel, error) {
	out := make([]territory.Pixel, 0, len(s.pixels))
	for _, p := range s.pixels {
		out = append(out, p)
	}
	return out, nil
}

func (s *stubTerritoryRepository) GetUpdatesSince(_ context.Context, since int64) ([]territory.Pixel, error) {
	var out []territory.Pixel
	for _, u := range s.updates {
		if u.Timestamp > since {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *stubTerritoryRepository) PruneUpdatesBefore(_ context.Context, cutoff int64) error {
	var kept []territory.Pixel
	for _, u := range s.updates {
		if u.Timestamp >= cutoff {
			kept = append(kept, u)
		}
	}
	s.updates = kept
	return nil
}

func (s *stubTerritoryRepository) PixelCount(_ context.Context) (int64, error) {
	return int64(len(s.pixels)), nil
}

func (s *stubTerritoryRepository) SetZoneController(_ context.Context, zoneX, zoneY int, teamID string) error {
	if teamID == "" {
		delete(s.zones, coordKey(zoneX, zoneY))
		return nil
	}
	s.zones[coordKey(zoneX, zoneY)] = teamID
	return nil
}

func (s *stubTerritoryRepository) GetZoneControllers(_ context.Context) (map[string]string, error) {
	out := make(map[string]string, len(s.zones))
	for k, v := range s.zones {
		out[k] = v
	}
	return out, nil
}

func (s *stubTerritoryRepository) ReplaceZoneControllers(_ context.Context, controllers map[string]string) error {
	s.zones = map[string]string{}
	for k, v := range controllers {
		s.zones[k] = v
	}
	return nil
}

func (s *stubTerritoryRepository) ClearCanvas(_ context.Context) error {
	if s.clearCanvasErr != nil {
		return s.clearCanvasErr
	}
	s.pixels = map[string]territory.Pixel{}
	return nil
}

func (s *stubTerritoryRepository) ClearUpdateLog(_ context.Context) error {
	s.updates = nil
	return nil
}

func (s *stubTerritoryRepository) ClearZones(_ context.Context) error {
	s.zones = map[string]string{}
	return nil
}

type stubScoreRepository struct {
	scores map[string]int
}

func newStubScoreRepository() *stubScoreRepository {
	return &stubScoreRepository{scores: map[string]int{}}
}

func (s *stubScoreRepository) IncrementScore(_ context.Context, username string) (int, error) {
	s.scores[username]++
	return s.scores[username], nil
}

func (s *stubScoreRepository) TopScores(ctx context.Context, limit int) ([]player.Ranking, error) {
	all, err := s.AllScores(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *stubScoreRepository) AllScores(_ context.Context) ([]player.Ranking, error) {
	out := make([]player.Ranking, 0, len(s.scores))
	for username, score := range s.scores {
		out = append(out, player.Ranking{Username: username, PixelsPlaced: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PixelsPlaced != out[j].PixelsPlaced {
			return out[i].PixelsPlaced > out[j].PixelsPlaced
		}
		return out[i].Username < out[j].Username
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

func (s *stubScoreRepository) Clear(_ context.Context) error {
	s.scores = map[string]int{}
	return nil
}

type stubTeamRepository struct {
	assignments map[string]string
}

func newStubTeamRepository() *stubTeamRepository {
	return &stubTeamRepository{assignments: map[string]string{}}
}

func (s *stubTeamRepository) GetAssignment(_ context.Context, username string) (string, bool, error) {
	teamID, ok := s.assignments[username]
	return teamID, ok, nil
}

func (s *stubTeamRepository) SetAssignment(_ context.Context, username, teamID string) error {
	s.assignments[username] = teamID
	return nil
}

func (s *stubTeamRepository) AllAssignments(_ context.Context) (map[string]string, error) {
	out := make(map[string]string, len(s.assignments))
	for k, v := range s.assignments {
		out[k] = v
	}
	return out, nil
}

type scheduledJob struct {
	kind         season.JobKind
	seasonNumber int
	runAt        time.Time
}

type stubJobRunner struct {
	jobs      []scheduledJob
	cancelled []string
	runErr    error
	cancelErr error
	nextID    int
}

func (s *stubJobRunner) RunJob(_ context.Context, kind season.JobKind, seasonNumber int, runAt time.Time) (string, error) {
	if s.runErr != nil {
		return "", s.runErr
	}
	s.nextID++
	s.jobs = append(s.jobs, scheduledJob{kind: kind, seasonNumber: seasonNumber, runAt: runAt})
	return fmt.Sprintf("job-%d", s.nextID), nil
}

func (s *stubJobRunner) CancelJob(_ context.Context, jobID string) error {
	if s.cancelErr != nil {
		return s.cancelErr
	}
	s.cancelled = append(s.cancelled, jobID)
	return nil
}
