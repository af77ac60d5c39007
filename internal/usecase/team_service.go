package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/turf-wars/internal/domain/game"
	"github.com/riskibarqy/turf-wars/internal/domain/player"
)

// TeamService assigns players to sides. Assignments are sticky: once made
// they survive season resets, so returning players keep their team.
type TeamService struct {
	teamRepo player.TeamRepository
	cfg      game.Config
}

func NewTeamService(teamRepo player.TeamRepository, cfg game.Config) *TeamService {
	return &TeamService{
		teamRepo: teamRepo,
		cfg:      cfg,
	}
}

// GetUserTeam returns the player's team, assigning one to the smallest
// team first when the player has none yet.
func (s *TeamService) GetUserTeam(ctx context.Context, username string) (game.Team, error) {
	ctx, span := startUsecaseSpan(ctx, "TeamService.GetUserTeam")
	defer span.End()

	username = strings.TrimSpace(username)
	if username == "" {
		return game.Team{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}

	teamID, ok, err := s.teamRepo.GetAssignment(ctx, username)
	if err != nil {
		return game.Team{}, fmt.Errorf("get team assignment: %w", err)
	}
	if ok {
		return s.teamByID(teamID)
	}

	teamID, err = s.assignBalanced(ctx, username)
	if err != nil {
		return game.Team{}, err
	}
	return s.teamByID(teamID)
}

// assignBalanced picks the configured team with the fewest members; the
// configured order breaks ties.
func (s *TeamService) assignBalanced(ctx context.Context, username string) (string, error) {
	if len(s.cfg.Teams) == 0 {
		return "", fmt.Errorf("%w: no teams configured", ErrInvalidInput)
	}

	sizes, err := s.TeamSizes(ctx)
	if err != nil {
		return "", err
	}

	smallest := s.cfg.Teams[0].ID
	smallestSize := sizes[smallest]
	for _, team := range s.cfg.Teams[1:] {
		if sizes[team.ID] < smallestSize {
			smallest = team.ID
			smallestSize = sizes[team.ID]
		}
	}

	if err := s.teamRepo.SetAssignment(ctx, username, smallest); err != nil {
		return "", fmt.Errorf("assign team: %w", err)
	}
	return smallest, nil
}

// TeamSizes counts players per configured team. Every configured team is
// present in the result, empty ones with zero.
func (s *TeamService) TeamSizes(ctx context.Context) (map[string]int, error) {
	assignments, err := s.teamRepo.AllAssignments(ctx)
	if err != nil {
		return nil, fmt.Errorf("read team assignments: %w", err)
	}

	sizes := make(map[string]int, len(s.cfg.Teams))
	for _, team := range s.cfg.Teams {
		sizes[team.ID] = 0
	}
	for _, teamID := range assignments {
		sizes[teamID]++
	}
	return sizes, nil
}

// TeamMembers lists usernames assigned to one team.
func (s *TeamService) TeamMembers(ctx context.Context, teamID string) ([]string, error) {
	assignments, err := s.teamRepo.AllAssignments(ctx)
	if err != nil {
		return nil, fmt.Errorf("read team assignments: %w", err)
	}

	var members []string
	for username, assigned := range assignments {
		if assigned == teamID {
			members = append(members, username)
		}
	}
	return members, nil
}

func (s *TeamService) Teams() []game.Team {
	return s.cfg.Teams
}

// teamByID resolves the team, falling back to the first configured team
// when a stored assignment references a team that no longer exists.
func (s *TeamService) teamByID(teamID string) (game.Team, error) {
	if team, ok := s.cfg.TeamByID(teamID); ok {
		return team, nil
	}
	if len(s.cfg.Teams) == 0 {
		return game.Team{}, fmt.Errorf("%w: no teams configured", ErrInvalidInput)
	}
	return s.cfg.Teams[0], nil
}
