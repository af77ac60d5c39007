package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/turf-wars/internal/usecase"
)

func (h *Handler) GetCanvas(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetCanvas")
	defer span.End()

	pixels, err := h.territoryService.GetAllPixels(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "get canvas failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	pixelDTOs := make([]pixelDTO, 0, len(pixels))
	for _, item := range pixels {
		pixelDTOs = append(pixelDTOs, pixelToDTO(ctx, item))
	}

	teams := make([]teamDTO, 0, len(h.gameConfig.Teams))
	for _, team := range h.gameConfig.Teams {
		teams = append(teams, teamToDTO(ctx, team, 0))
	}

	writeSuccess(ctx, w, http.StatusOK, canvasDTO{
		Width:    h.gameConfig.CanvasWidth,
		Height:   h.gameConfig.CanvasHeight,
		ZoneSize: h.gameConfig.ZoneSize,
		Teams:    teams,
		Pixels:   pixelDTOs,
	})
}

func (h *Handler) GetCanvasUpdates(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetCanvasUpdates")
	defer span.End()

	since := int64(0)
	if raw := strings.TrimSpace(r.URL.Query().Get("since")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			writeError(ctx, w, fmt.Errorf("%w: since must be a non-negative unix millisecond timestamp", usecase.ErrInvalidInput))
			return
		}
		since = parsed
	}

	updates, err := h.territoryService.GetUpdatesSince(ctx, since)
	if err != nil {
		h.logger.WarnContext(ctx, "get canvas updates failed", "since", since, "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]pixelDTO, 0, len(updates))
	for _, item := range updates {
		out = append(out, pixelToDTO(ctx, item))
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) PlacePixel(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.PlacePixel")
	defer span.End()

	username, ok := usernameFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: missing authenticated user", usecase.ErrUnauthorized))
		return
	}

	var req placePixelRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.territoryService.PlacePixel(ctx, username, req.X, req.Y)
	if err != nil {
		h.logger.WarnContext(ctx, "place pixel failed", "username", username, "x", req.X, "y", req.Y, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, placementDTO{
		Pixel:   pixelToDTO(ctx, result.Pixel),
		Zone:    zoneToDTO(ctx, result.Zone),
		Credits: creditStateToDTO(ctx, result.Credits, 0),
	})
}

func (h *Handler) GetPixel(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPixel")
	defer span.End()

	x, errX := strconv.Atoi(r.PathValue("x"))
	y, errY := strconv.Atoi(r.PathValue("y"))
	if errX != nil || errY != nil {
		writeError(ctx, w, fmt.Errorf("%w: pixel coordinates must be integers", usecase.ErrInvalidInput))
		return
	}

	teamID, found, err := h.territoryService.GetPixel(ctx, x, y)
	if err != nil {
		h.logger.WarnContext(ctx, "get pixel failed", "x", x, "y", y, "error", err)
		writeError(ctx, w, err)
		return
	}
	if !found {
		writeError(ctx, w, fmt.Errorf("%w: pixel (%d,%d) is unclaimed", usecase.ErrNotFound, x, y))
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]any{
		"x":      x,
		"y":      y,
		"teamId": teamID,
	})
}

func (h *Handler) ListZones(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListZones")
	defer span.End()

	zones, err := h.territoryService.GetZoneControl(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "list zones failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]zoneDTO, 0, len(zones))
	for _, item := range zones {
		out = append(out, zoneToDTO(ctx, item))
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

func decodeJSONBody(r *http.Request, target any) error {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", usecase.ErrInvalidInput)
		}
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}
