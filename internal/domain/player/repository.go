package player

import "context"

// ScoreRepository is the score-ordered leaderboard. Cleared on season reset.
type ScoreRepository interface {
	IncrementScore(ctx context.Context, username string) (int, error)
	TopScores(ctx context.Context, limit int) ([]Ranking, error)
	AllScores(ctx context.Context) ([]Ranking, error)
	Clear(ctx context.Context) error
}

// TeamRepository holds player-to-team assignments. Deliberately survives
// season resets so returning players keep their side.
type TeamRepository interface {
	GetAssignment(ctx context.Context, username string) (string, bool, error)
	SetAssignment(ctx context.Context, username, teamID string) error
	AllAssignments(ctx context.Context) (map[string]string, error)
}
