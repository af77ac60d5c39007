package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/riskibarqy/turf-wars/internal/domain/season"
	"github.com/riskibarqy/turf-wars/internal/platform/logging"
)

const (
	warning24hLead = 24 * time.Hour
	warning1hLead  = time.Hour

	seasonEndRetryDelay = time.Minute
)

// JobRunner arms and cancels absolute-time triggers. Implementations only
// guarantee pre-fire cancellation; an in-flight callback cannot be
// stopped.
type JobRunner interface {
	RunJob(ctx context.Context, kind season.JobKind, seasonNumber int, runAt time.Time) (string, error)
	CancelJob(ctx context.Context, jobID string) error
}

type noopJobRunner struct{}

func (noopJobRunner) RunJob(_ context.Context, _ season.JobKind, _ int, _ time.Time) (string, error) {
	return "", nil
}

func (noopJobRunner) CancelJob(_ context.Context, _ string) error { return nil }

func NewNoopJobRunner() JobRunner {
	return noopJobRunner{}
}

// SchedulerService arms the season timeline triggers and runs the
// fire-time handlers. Idempotency does not rely on the recorded job
// handles: every handler re-checks the live current season before doing
// anything.
type SchedulerService struct {
	seasonRepo season.Repository
	runner     JobRunner
	logger     *logging.Logger
	now        func() time.Time
}

func NewSchedulerService(seasonRepo season.Repository, runner JobRunner, logger *logging.Logger) *SchedulerService {
	if runner == nil {
		runner = NewNoopJobRunner()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SchedulerService{
		seasonRepo: seasonRepo,
		runner:     runner,
		logger:     logger,
		now:        time.Now,
	}
}

// ScheduleSeasonEnd arms the season-end trigger at the season's absolute
// end time and records the handle under the season number.
func (s *SchedulerService) ScheduleSeasonEnd(ctx context.Context, endTime int64, seasonNumber int) error {
	ctx, span := startUsecaseSpan(ctx, "SchedulerService.ScheduleSeasonEnd")
	defer span.End()

	jobID, err := s.runner.RunJob(ctx, season.JobSeasonEnd, seasonNumber, time.UnixMilli(endTime))
	if err != nil {
		return fmt.Errorf("schedule season end for season %d: %w", seasonNumber, err)
	}

	if err := s.recordJob(ctx, seasonNumber, season.JobSeasonEnd, jobID, endTime); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "season end scheduled",
		"season", seasonNumber, "run_at", endTime, "job_id", jobID)
	return nil
}

// ScheduleWarnings arms the 24h and 1h warnings where enabled. A warning
// whose trigger time is already past is skipped silently: seasons shorter
// than the lead time simply get no such warning.
func (s *SchedulerService) ScheduleWarnings(ctx context.Context, endTime int64, seasonNumber int, settings season.Settings) error {
	ctx, span := startUsecaseSpan(ctx, "SchedulerService.ScheduleWarnings")
	defer span.End()

	if settings.Enable24hWarn {
		if err := s.scheduleWarning(ctx, season.JobWarning24h, endTime-warning24hLead.Milliseconds(), seasonNumber); err != nil {
			return err
		}
	}
	if settings.Enable1hWarn {
		if err := s.scheduleWarning(ctx, season.JobWarning1h, endTime-warning1hLead.Milliseconds(), seasonNumber); err != nil {
			return err
		}
	}
	return nil
}

func (s *SchedulerService) scheduleWarning(ctx context.Context, kind season.JobKind, runAt int64, seasonNumber int) error {
	if runAt <= s.now().UnixMilli() {
		s.logger.InfoContext(ctx, "warning trigger already past, skipping",
			"kind", string(kind), "season", seasonNumber)
		return nil
	}

	jobID, err := s.runner.RunJob(ctx, kind, seasonNumber, time.UnixMilli(runAt))
	if err != nil {
		return fmt.Errorf("schedule %s for season %d: %w", kind, seasonNumber, err)
	}

	if err := s.recordJob(ctx, seasonNumber, kind, jobID, runAt); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "warning scheduled",
		"kind", string(kind), "season", seasonNumber, "run_at", runAt, "job_id", jobID)
	return nil
}

// CancelSeasonJobs cancels every recorded trigger for the season. Each
// cancellation failure is logged and swallowed so one bad handle does not
// block the others; the job record is deleted regardless.
func (s *SchedulerService) CancelSeasonJobs(ctx context.Context, seasonNumber int) error {
	ctx, span := startUsecaseSpan(ctx, "SchedulerService.CancelSeasonJobs")
	defer span.End()

	jobs, exists, err := s.seasonRepo.GetJobs(ctx, seasonNumber)
	if err != nil {
		return fmt.Errorf("load jobs for season %d: %w", seasonNumber, err)
	}
	if !exists {
		return nil
	}

	for kind, record := range jobs {
		if record.JobID == "" {
			continue
		}
		if err := s.runner.CancelJob(ctx, record.JobID); err != nil {
			s.logger.WarnContext(ctx, "cancel job failed",
				"kind", string(kind), "job_id", record.JobID, "error", err)
		}
	}

	if err := s.seasonRepo.DeleteJobs(ctx, seasonNumber); err != nil {
		return fmt.Errorf("delete jobs for season %d: %w", seasonNumber, err)
	}
	return nil
}

// SeasonJobs returns the recorded triggers for one season.
func (s *SchedulerService) SeasonJobs(ctx context.Context, seasonNumber int) (season.Jobs, bool, error) {
	jobs, exists, err := s.seasonRepo.GetJobs(ctx, seasonNumber)
	if err != nil {
		return nil, false, fmt.Errorf("load jobs for season %d: %w", seasonNumber, err)
	}
	return jobs, exists, nil
}

// HandleSeasonEnd runs at fire time. A stale trigger, one whose tagged
// season is no longer current, no-ops. On callback failure exactly one
// retry is armed 60s out and the original failure is returned; a failure
// to arm the retry is joined onto it.
func (s *SchedulerService) HandleSeasonEnd(ctx context.Context, seasonNumber int, onSeasonEnd func(ctx context.Context, seasonNumber int) error) error {
	ctx, span := startUsecaseSpan(ctx, "SchedulerService.HandleSeasonEnd")
	defer span.End()

	stale, err := s.isStale(ctx, season.JobSeasonEnd, seasonNumber)
	if err != nil {
		return err
	}
	if stale {
		return nil
	}

	if err := onSeasonEnd(ctx, seasonNumber); err != nil {
		s.logger.ErrorContext(ctx, "season end handler failed, scheduling retry",
			"season", seasonNumber, "error", err)

		runAt := s.now().Add(seasonEndRetryDelay)
		if _, retryErr := s.runner.RunJob(ctx, season.JobSeasonEnd, seasonNumber, runAt); retryErr != nil {
			s.logger.ErrorContext(ctx, "schedule season end retry failed",
				"season", seasonNumber, "error", retryErr)
			return errors.Join(
				fmt.Errorf("season end for season %d: %w", seasonNumber, err),
				fmt.Errorf("schedule retry: %w", retryErr),
			)
		}
		return fmt.Errorf("season end for season %d: %w", seasonNumber, err)
	}

	s.logger.InfoContext(ctx, "season end completed", "season", seasonNumber)
	return nil
}

// HandleWarning runs at fire time with the same staleness check. A
// failed warning lands in the failed-posts queue and is never re-raised:
// a missed post must not destabilize the season timeline.
func (s *SchedulerService) HandleWarning(ctx context.Context, kind season.JobKind, seasonNumber int, onWarning func(ctx context.Context, kind season.JobKind, seasonNumber int) error) error {
	ctx, span := startUsecaseSpan(ctx, "SchedulerService.HandleWarning")
	defer span.End()

	stale, err := s.isStale(ctx, kind, seasonNumber)
	if err != nil {
		return err
	}
	if stale {
		return nil
	}

	if err := onWarning(ctx, kind, seasonNumber); err != nil {
		s.logger.ErrorContext(ctx, "warning handler failed",
			"kind", string(kind), "season", seasonNumber, "error", err)

		post := season.FailedPost{
			Title:     fmt.Sprintf("Season %d %s warning failed", seasonNumber, kind),
			Body:      fmt.Sprintf("Warning handler failed: %v", err),
			Timestamp: s.now().UnixMilli(),
			Error:     err.Error(),
		}
		if queueErr := s.seasonRepo.AddFailedPost(ctx, post); queueErr != nil {
			s.logger.ErrorContext(ctx, "queue failed post failed",
				"season", seasonNumber, "error", queueErr)
		}
		return nil
	}

	s.logger.InfoContext(ctx, "warning completed",
		"kind", string(kind), "season", seasonNumber)
	return nil
}

// isStale reports whether the tagged season is no longer the live
// current season. Fire-time correctness relies on this check, not on the
// recorded handles.
func (s *SchedulerService) isStale(ctx context.Context, kind season.JobKind, seasonNumber int) (bool, error) {
	current, exists, err := s.seasonRepo.GetCurrentSeason(ctx)
	if err != nil {
		return false, fmt.Errorf("load current season: %w", err)
	}
	if !exists {
		s.logger.WarnContext(ctx, "no current season at fire time",
			"kind", string(kind), "season", seasonNumber)
		return true, nil
	}
	if current.Number != seasonNumber {
		s.logger.WarnContext(ctx, "stale trigger, season superseded",
			"kind", string(kind), "season", seasonNumber, "current", current.Number)
		return true, nil
	}
	return false, nil
}

func (s *SchedulerService) recordJob(ctx context.Context, seasonNumber int, kind season.JobKind, jobID string, runAt int64) error {
	jobs, exists, err := s.seasonRepo.GetJobs(ctx, seasonNumber)
	if err != nil {
		return fmt.Errorf("load jobs for season %d: %w", seasonNumber, err)
	}
	if !exists {
		jobs = season.Jobs{}
	}
	jobs[kind] = season.JobRecord{JobID: jobID, RunAt: runAt}

	if err := s.seasonRepo.SetJobs(ctx, seasonNumber, jobs); err != nil {
		return fmt.Errorf("record job for season %d: %w", seasonNumber, err)
	}
	return nil
}
