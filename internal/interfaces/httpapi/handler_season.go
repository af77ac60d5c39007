package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/riskibarqy/turf-wars/internal/domain/season"
	"github.com/riskibarqy/turf-wars/internal/usecase"
)

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) GetCurrentSeason(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetCurrentSeason")
	defer span.End()

	current, err := h.seasonService.GetCurrentSeason(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "get current season failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	timeRemaining, err := h.seasonService.GetTimeRemaining(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "get time remaining failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, seasonToDTO(ctx, current, timeRemaining))
}

func (h *Handler) GetSeasonSettings(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSeasonSettings")
	defer span.End()

	settings, err := h.seasonService.GetSettings(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "get season settings failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, settingsToDTO(ctx, settings))
}

func (h *Handler) UpdateSeasonSettings(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdateSeasonSettings")
	defer span.End()

	var req updateSettingsRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	settings, err := h.seasonService.UpdateSettings(ctx, season.SettingsPatch{
		DurationMs:      req.DurationMs,
		EnableAutoPosts: req.EnableAutoPosts,
		Enable24hWarn:   req.Enable24hWarn,
		Enable1hWarn:    req.Enable1hWarn,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "update season settings failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, settingsToDTO(ctx, settings))
}

func (h *Handler) ListSeasonHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListSeasonHistory")
	defer span.End()

	items, err := h.seasonService.GetAllSeasonHistory(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "list season history failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]historyDTO, 0, len(items))
	for _, item := range items {
		out = append(out, historyToDTO(ctx, item))
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) GetSeasonHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSeasonHistory")
	defer span.End()

	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil || number < 1 {
		writeError(ctx, w, fmt.Errorf("%w: season number must be a positive integer", usecase.ErrInvalidInput))
		return
	}

	item, err := h.seasonService.GetSeasonHistory(ctx, number)
	if err != nil {
		h.logger.WarnContext(ctx, "get season history failed", "season_number", number, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, historyToDTO(ctx, item))
}
