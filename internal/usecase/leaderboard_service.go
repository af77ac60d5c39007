package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/turf-wars/internal/domain/player"
)

// LeaderboardService tracks pixels placed per player for the running
// season. Scores are cleared on season reset.
type LeaderboardService struct {
	scoreRepo player.ScoreRepository
	teamRepo  player.TeamRepository
}

func NewLeaderboardService(scoreRepo player.ScoreRepository, teamRepo player.TeamRepository) *LeaderboardService {
	return &LeaderboardService{
		scoreRepo: scoreRepo,
		teamRepo:  teamRepo,
	}
}

// IncrementPlayerScore adds one pixel to the player's tally and returns
// the new total.
func (s *LeaderboardService) IncrementPlayerScore(ctx context.Context, username string) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "LeaderboardService.IncrementPlayerScore")
	defer span.End()

	username = strings.TrimSpace(username)
	if username == "" {
		return 0, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}

	return s.scoreRepo.IncrementScore(ctx, username)
}

// TopPlayers returns the highest-scoring players, enriched with their
// team assignment.
func (s *LeaderboardService) TopPlayers(ctx context.Context, limit int) ([]player.Ranking, error) {
	ctx, span := startUsecaseSpan(ctx, "LeaderboardService.TopPlayers")
	defer span.End()

	if limit <= 0 {
		limit = 10
	}

	rankings, err := s.scoreRepo.TopScores(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("read top scores: %w", err)
	}
	if len(rankings) == 0 {
		return rankings, nil
	}

	assignments, err := s.teamRepo.AllAssignments(ctx)
	if err != nil {
		return nil, fmt.Errorf("read team assignments: %w", err)
	}
	for i := range rankings {
		rankings[i].TeamID = assignments[rankings[i].Username]
	}
	return rankings, nil
}

// PlayerRank finds the player's position among all scorers; rank zero
// means the player has not placed a pixel yet.
func (s *LeaderboardService) PlayerRank(ctx context.Context, username string) (player.Ranking, error) {
	ctx, span := startUsecaseSpan(ctx, "LeaderboardService.PlayerRank")
	defer span.End()

	username = strings.TrimSpace(username)
	if username == "" {
		return player.Ranking{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}

	all, err := s.scoreRepo.AllScores(ctx)
	if err != nil {
		return player.Ranking{}, fmt.Errorf("read scores: %w", err)
	}
	for _, ranking := range all {
		if ranking.Username == username {
			return ranking, nil
		}
	}
	return player.Ranking{Username: username}, nil
}

func (s *LeaderboardService) Clear(ctx context.Context) error {
	return s.scoreRepo.Clear(ctx)
}
