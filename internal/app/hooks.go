package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/riskibarqy/turf-wars/internal/domain/season"
	"github.com/riskibarqy/turf-wars/internal/infrastructure/announce"
	"github.com/riskibarqy/turf-wars/internal/platform/logging"
	"github.com/riskibarqy/turf-wars/internal/usecase"
)

// seasonHooks holds the fire-time callbacks shared by the in-process job
// runner and the internal job HTTP routes.
type seasonHooks struct {
	seasons    *usecase.SeasonService
	scheduler  *usecase.SchedulerService
	seasonRepo season.Repository
	announcer  *announce.WebhookPublisher
	logger     *logging.Logger
	now        func() time.Time
}

func newSeasonHooks(
	seasons *usecase.SeasonService,
	scheduler *usecase.SchedulerService,
	seasonRepo season.Repository,
	announcer *announce.WebhookPublisher,
	logger *logging.Logger,
) *seasonHooks {
	if logger == nil {
		logger = logging.Default()
	}
	return &seasonHooks{
		seasons:    seasons,
		scheduler:  scheduler,
		seasonRepo: seasonRepo,
		announcer:  announcer,
		logger:     logger,
		now:        time.Now,
	}
}

// OnSeasonEnd runs the transition, arms the successor's triggers and
// publishes the wrap-up posts. Announcements are best effort; a failure
// lands in the failed-posts queue instead of failing the transition.
func (h *seasonHooks) OnSeasonEnd(ctx context.Context, seasonNumber int) error {
	history, err := h.seasons.EndSeason(ctx)
	if err != nil {
		return fmt.Errorf("end season %d: %w", seasonNumber, err)
	}

	next, err := h.seasons.GetCurrentSeason(ctx)
	if err != nil {
		return fmt.Errorf("load successor season: %w", err)
	}
	settings, err := h.seasons.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("load season settings: %w", err)
	}

	var armErr error
	if err := h.scheduler.ScheduleSeasonEnd(ctx, next.EndTime, next.Number); err != nil {
		h.logger.ErrorContext(ctx, "arm season end trigger failed",
			"season", next.Number, "error", err)
		armErr = errors.Join(armErr, err)
	}
	if err := h.scheduler.ScheduleWarnings(ctx, next.EndTime, next.Number, settings); err != nil {
		h.logger.ErrorContext(ctx, "arm warning triggers failed",
			"season", next.Number, "error", err)
		armErr = errors.Join(armErr, err)
	}

	if h.announcer != nil && settings.EnableAutoPosts {
		now := h.now().UnixMilli()
		h.publish(ctx, announce.BuildSeasonEnd(history, now))
		h.publish(ctx, announce.BuildSeasonStart(next, now))
	}

	return armErr
}

// OnWarning posts the countdown announcement for the still-current
// season. Errors bubble up so the scheduler can queue the failed post.
func (h *seasonHooks) OnWarning(ctx context.Context, kind season.JobKind, seasonNumber int) error {
	if h.announcer == nil {
		h.logger.InfoContext(ctx, "warning fired without announcer, skipping",
			"kind", string(kind), "season", seasonNumber)
		return nil
	}

	current, err := h.seasons.GetCurrentSeason(ctx)
	if err != nil {
		return fmt.Errorf("load current season: %w", err)
	}

	a := announce.BuildWarning(kind, current, h.now().UnixMilli())
	if err := h.announcer.Publish(ctx, a); err != nil {
		return fmt.Errorf("publish %s warning for season %d: %w", kind, seasonNumber, err)
	}
	return nil
}

func (h *seasonHooks) publish(ctx context.Context, a announce.Announcement) {
	if err := h.announcer.Publish(ctx, a); err != nil {
		h.logger.ErrorContext(ctx, "publish announcement failed",
			"kind", string(a.Kind), "season", a.SeasonNumber,
			"transient", announce.IsTransient(err), "error", err)

		post := season.FailedPost{
			Title:     a.Title,
			Body:      a.Body,
			Timestamp: h.now().UnixMilli(),
			Error:     err.Error(),
		}
		if queueErr := h.seasonRepo.AddFailedPost(ctx, post); queueErr != nil {
			h.logger.ErrorContext(ctx, "queue failed post failed",
				"kind", string(a.Kind), "season", a.SeasonNumber, "error", queueErr)
		}
	}
}
