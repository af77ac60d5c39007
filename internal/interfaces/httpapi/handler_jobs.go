package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/turf-wars/internal/domain/season"
	"github.com/riskibarqy/turf-wars/internal/usecase"
)

func (h *Handler) RunSeasonEndJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunSeasonEndJob")
	defer span.End()

	if h.schedulerService == nil || h.onSeasonEnd == nil {
		writeError(ctx, w, fmt.Errorf("%w: season scheduler is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	req, err := decodeInternalJobRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if req.SeasonNumber < 1 {
		writeError(ctx, w, fmt.Errorf("%w: season_number must be a positive integer", usecase.ErrInvalidInput))
		return
	}

	if err := h.schedulerService.HandleSeasonEnd(ctx, req.SeasonNumber, h.onSeasonEnd); err != nil {
		h.logger.WarnContext(ctx, "run season end job failed", "season_number", req.SeasonNumber, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]any{
		"seasonNumber": req.SeasonNumber,
		"job":          string(season.JobSeasonEnd),
	})
}

func (h *Handler) RunWarningJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunWarningJob")
	defer span.End()

	if h.schedulerService == nil || h.onWarning == nil {
		writeError(ctx, w, fmt.Errorf("%w: season scheduler is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	req, err := decodeInternalJobRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if req.SeasonNumber < 1 {
		writeError(ctx, w, fmt.Errorf("%w: season_number must be a positive integer", usecase.ErrInvalidInput))
		return
	}

	kind := season.JobKind(req.Kind)
	if kind != season.JobWarning24h && kind != season.JobWarning1h {
		writeError(ctx, w, fmt.Errorf("%w: kind must be %q or %q", usecase.ErrInvalidInput, season.JobWarning24h, season.JobWarning1h))
		return
	}

	if err := h.schedulerService.HandleWarning(ctx, kind, req.SeasonNumber, h.onWarning); err != nil {
		h.logger.WarnContext(ctx, "run warning job failed", "season_number", req.SeasonNumber, "kind", string(kind), "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]any{
		"seasonNumber": req.SeasonNumber,
		"job":          string(kind),
	})
}

func (h *Handler) ListFailedPosts(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListFailedPosts")
	defer span.End()

	posts, err := h.seasonService.ListFailedPosts(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "list failed posts failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]failedPostDTO, 0, len(posts))
	for _, item := range posts {
		out = append(out, failedPostToDTO(ctx, item))
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) ClearFailedPosts(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ClearFailedPosts")
	defer span.End()

	if err := h.seasonService.ClearFailedPosts(ctx); err != nil {
		h.logger.WarnContext(ctx, "clear failed posts failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "cleared"})
}

func decodeInternalJobRequest(r *http.Request) (internalJobRequest, error) {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var req internalJobRequest
	if err := decoder.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return internalJobRequest{}, nil
		}
		return internalJobRequest{}, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}

	return req, nil
}
