package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/riskibarqy/turf-wars/internal/usecase"
)

const defaultLeaderboardLimit = 10

func (h *Handler) GetMyCredits(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMyCredits")
	defer span.End()

	username, ok := usernameFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: missing authenticated user", usecase.ErrUnauthorized))
		return
	}

	state, err := h.creditService.GetUserCredits(ctx, username)
	if err != nil {
		h.logger.WarnContext(ctx, "get user credits failed", "username", username, "error", err)
		writeError(ctx, w, err)
		return
	}

	timeUntilNext, err := h.creditService.TimeUntilNextCredit(ctx, username)
	if err != nil {
		h.logger.WarnContext(ctx, "get time until next credit failed", "username", username, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, creditStateToDTO(ctx, state, timeUntilNext))
}

func (h *Handler) GetMyTeam(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMyTeam")
	defer span.End()

	username, ok := usernameFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: missing authenticated user", usecase.ErrUnauthorized))
		return
	}

	team, err := h.teamService.GetUserTeam(ctx, username)
	if err != nil {
		h.logger.WarnContext(ctx, "get user team failed", "username", username, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, teamToDTO(ctx, team, 0))
}

func (h *Handler) GetMyRank(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMyRank")
	defer span.End()

	username, ok := usernameFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: missing authenticated user", usecase.ErrUnauthorized))
		return
	}

	ranking, err := h.leaderboardService.PlayerRank(ctx, username)
	if err != nil {
		h.logger.WarnContext(ctx, "get player rank failed", "username", username, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, rankingToDTO(ctx, ranking))
}

func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetLeaderboard")
	defer span.End()

	limit := defaultLeaderboardLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(ctx, w, fmt.Errorf("%w: limit must be a positive integer", usecase.ErrInvalidInput))
			return
		}
		limit = parsed
	}

	rankings, err := h.leaderboardService.TopPlayers(ctx, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "get leaderboard failed", "limit", limit, "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]rankingDTO, 0, len(rankings))
	for _, item := range rankings {
		out = append(out, rankingToDTO(ctx, item))
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListTeams")
	defer span.End()

	sizes, err := h.teamService.TeamSizes(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "list teams failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	teams := h.teamService.Teams()
	out := make([]teamDTO, 0, len(teams))
	for _, team := range teams {
		out = append(out, teamToDTO(ctx, team, sizes[team.ID]))
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}
