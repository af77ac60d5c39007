package kv

import (
	"context"
	"fmt"

	"github.com/riskibarqy/turf-wars/internal/domain/player"
	"github.com/riskibarqy/turf-wars/internal/platform/kvstore"
)

// PlayerScoreRepository is the score-ordered leaderboard over a sorted set.
type PlayerScoreRepository struct {
	store      kvstore.Store
	instanceID string
}

func NewPlayerScoreRepository(store kvstore.Store, instanceID string) *PlayerScoreRepository {
	return &PlayerScoreRepository{store: store, instanceID: instanceID}
}

func (r *PlayerScoreRepository) IncrementScore(ctx context.Context, username string) (int, error) {
	score, err := r.store.ZIncrBy(ctx, leaderboardKey(r.instanceID), username, 1)
	if err != nil {
		return 0, fmt.Errorf("increment score for %s: %w", username, err)
	}
	return int(score), nil
}

func (r *PlayerScoreRepository) TopScores(ctx context.Context, limit int) ([]player.Ranking, error) {
	if limit <= 0 {
		return nil, nil
	}
	return r.rangeScores(ctx, int64(limit-1))
}

func (r *PlayerScoreRepository) AllScores(ctx context.Context) ([]player.Ranking, error) {
	return r.rangeScores(ctx, -1)
}

func (r *PlayerScoreRepository) rangeScores(ctx context.Context, stop int64) ([]player.Ranking, error) {
	members, err := r.store.ZRangeByRank(ctx, leaderboardKey(r.instanceID), 0, stop, true)
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}

	out := make([]player.Ranking, 0, len(members))
	for i, m := range members {
		out = append(out, player.Ranking{
			Username:     m.Member,
			PixelsPlaced: int(m.Score),
			Rank:         i + 1,
		})
	}
	return out, nil
}

func (r *PlayerScoreRepository) Clear(ctx context.Context) error {
	if err := r.store.Del(ctx, leaderboardKey(r.instanceID)); err != nil {
		return fmt.Errorf("clear leaderboard: %w", err)
	}
	return nil
}

// PlayerTeamRepository stores team assignments in a hash keyed by username.
// Reset never touches this key.
type PlayerTeamRepository struct {
	store      kvstore.Store
	instanceID string
}

func NewPlayerTeamRepository(store kvstore.Store, instanceID string) *PlayerTeamRepository {
	return &PlayerTeamRepository{store: store, instanceID: instanceID}
}

func (r *PlayerTeamRepository) GetAssignment(ctx context.Context, username string) (string, bool, error) {
	teamID, ok, err := r.store.HGet(ctx, teamAssignmentsKey(r.instanceID), username)
	if err != nil {
		return "", false, fmt.Errorf("get team for %s: %w", username, err)
	}
	return teamID, ok, nil
}

func (r *PlayerTeamRepository) SetAssignment(ctx context.Context, username, teamID string) error {
	err := r.store.HSet(ctx, teamAssignmentsKey(r.instanceID), map[string]string{username: teamID})
	if err != nil {
		return fmt.Errorf("assign team for %s: %w", username, err)
	}
	return nil
}

func (r *PlayerTeamRepository) AllAssignments(ctx context.Context) (map[string]string, error) {
	data, err := r.store.HGetAll(ctx, teamAssignmentsKey(r.instanceID))
	if err != nil {
		return nil, fmt.Errorf("read team assignments: %w", err)
	}
	return data, nil
}
