package jobrunner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/riskibarqy/turf-wars/internal/domain/season"
	"github.com/riskibarqy/turf-wars/internal/platform/logging"
)

// Handler is invoked when an armed trigger fires.
type Handler func(ctx context.Context, kind season.JobKind, seasonNumber int) error

// Runner is an in-process trigger scheduler: one timer per armed job,
// handler invocations run on a bounded worker pool so a slow transition
// cannot pile up goroutines. Jobs do not survive a restart; the season
// bootstrap re-arms them from the persisted season record.
type Runner struct {
	pool    *ants.Pool
	logger  *logging.Logger
	baseCtx context.Context

	handlerTimeout time.Duration

	mu      sync.Mutex
	handler Handler
	timers  map[string]*time.Timer
	nextSeq int64
	closed  bool
}

type Config struct {
	PoolSize       int
	HandlerTimeout time.Duration
}

func New(baseCtx context.Context, cfg Config, logger *logging.Logger) (*Runner, error) {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if cfg.PoolSize < 1 {
		cfg.PoolSize = 4
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 5 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}

	pool, err := ants.NewPool(cfg.PoolSize, ants.WithNonblocking(false))
	if err != nil {
		return nil, fmt.Errorf("create job pool: %w", err)
	}

	return &Runner{
		pool:           pool,
		logger:         logger,
		baseCtx:        baseCtx,
		handlerTimeout: cfg.HandlerTimeout,
		timers:         map[string]*time.Timer{},
	}, nil
}

// SetHandler wires the fire-time dispatch. Must be called before any job
// fires; jobs firing without a handler are dropped with a log line.
func (r *Runner) SetHandler(handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = handler
}

// RunJob arms a trigger and returns its handle. Times already past fire
// immediately.
func (r *Runner) RunJob(_ context.Context, kind season.JobKind, seasonNumber int, runAt time.Time) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return "", fmt.Errorf("job runner is closed")
	}

	r.nextSeq++
	jobID := fmt.Sprintf("%s-%d-%d", kind, seasonNumber, r.nextSeq)

	delay := time.Until(runAt)
	if delay < 0 {
		delay = 0
	}
	r.timers[jobID] = time.AfterFunc(delay, func() {
		r.fire(jobID, kind, seasonNumber)
	})
	return jobID, nil
}

// CancelJob stops a pending trigger. Cancelling an unknown or already
// fired job is not an error.
func (r *Runner) CancelJob(_ context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if timer, ok := r.timers[jobID]; ok {
		timer.Stop()
		delete(r.timers, jobID)
	}
	return nil
}

func (r *Runner) fire(jobID string, kind season.JobKind, seasonNumber int) {
	r.mu.Lock()
	delete(r.timers, jobID)
	handler := r.handler
	closed := r.closed
	timeout := r.handlerTimeout
	r.mu.Unlock()

	if closed {
		return
	}
	if handler == nil {
		r.logger.Warn("job fired without handler, dropping",
			"job_id", jobID, "kind", string(kind), "season", seasonNumber)
		return
	}

	err := r.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(r.baseCtx, timeout)
		defer cancel()

		if err := handler(ctx, kind, seasonNumber); err != nil {
			r.logger.ErrorContext(ctx, "job handler failed",
				"job_id", jobID, "kind", string(kind), "season", seasonNumber, "error", err)
		}
	})
	if err != nil {
		r.logger.Error("submit job to pool failed",
			"job_id", jobID, "kind", string(kind), "error", err)
	}
}

// Close stops all pending timers and releases the worker pool. In-flight
// handlers finish on their own timeout.
func (r *Runner) Close() {
	r.mu.Lock()
	r.closed = true
	for jobID, timer := range r.timers {
		timer.Stop()
		delete(r.timers, jobID)
	}
	r.mu.Unlock()

	r.pool.Release()
}
