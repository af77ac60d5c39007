package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/riskibarqy/turf-wars/internal/config"
	"github.com/riskibarqy/turf-wars/internal/domain/season"
	"github.com/riskibarqy/turf-wars/internal/infrastructure/announce"
	"github.com/riskibarqy/turf-wars/internal/infrastructure/jobrunner"
	pgstore "github.com/riskibarqy/turf-wars/internal/infrastructure/kvstore/postgres"
	cacherepo "github.com/riskibarqy/turf-wars/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/turf-wars/internal/infrastructure/repository/kv"
	"github.com/riskibarqy/turf-wars/internal/interfaces/httpapi"
	"github.com/riskibarqy/turf-wars/internal/observability"
	basecache "github.com/riskibarqy/turf-wars/internal/platform/cache"
	"github.com/riskibarqy/turf-wars/internal/platform/kvstore"
	"github.com/riskibarqy/turf-wars/internal/platform/logging"
	"github.com/riskibarqy/turf-wars/internal/platform/resilience"
	"github.com/riskibarqy/turf-wars/internal/usecase"
)

// App owns the wired service graph and every resource that needs a
// deliberate shutdown.
type App struct {
	Server *http.Server

	cfg           config.Config
	logger        *logging.Logger
	db            *sqlx.DB
	runner        *jobrunner.Runner
	pprofServer   *http.Server
	stopPyroscope func() error
	stopTracing   func(context.Context) error
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	stopTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init uptrace: %w", err)
	}
	stopPyroscope, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init pyroscope: %w", err)
	}
	pprofServer, err := observability.StartPprofServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("start pprof server: %w", err)
	}

	var db *sqlx.DB
	var store kvstore.Store
	if strings.TrimSpace(cfg.DBURL) == "" {
		logger.Info("using in-memory store", "reason", "DB_URL empty")
		store = kvstore.NewMemoryStore()
	} else {
		db, err = otelsqlx.Connect("postgres", cfg.DBURL,
			otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
			otelsql.WithQueryFormatter(formatDBQueryForTrace),
		)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		store = pgstore.NewStore(db)
		logger.Info("using postgres store", "database", dbNameFromURL(cfg.DBURL))
	}

	instanceID := cfg.AppEnv

	var seasonRepo season.Repository = kv.NewSeasonRepository(store)
	if cfg.CacheEnabled {
		seasonRepo = cacherepo.NewSeasonRepository(seasonRepo, basecache.NewStore(cfg.CacheTTL))
	}
	territoryRepo := kv.NewTerritoryRepository(store, instanceID)
	creditRepo := kv.NewCreditRepository(store, instanceID)
	scoreRepo := kv.NewPlayerScoreRepository(store, instanceID)
	teamRepo := kv.NewPlayerTeamRepository(store, instanceID)

	creditService := usecase.NewCreditService(creditRepo, cfg.Game)
	teamService := usecase.NewTeamService(teamRepo, cfg.Game)
	leaderboardService := usecase.NewLeaderboardService(scoreRepo, teamRepo)
	territoryService := usecase.NewTerritoryService(territoryRepo, creditService, teamService, leaderboardService, cfg.Game)
	seasonService := usecase.NewSeasonService(seasonRepo, territoryRepo, scoreRepo, teamRepo, cfg.Game, logger)

	runner, err := jobrunner.New(ctx, jobrunner.Config{
		PoolSize:       cfg.JobPoolSize,
		HandlerTimeout: cfg.JobHandlerTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create job runner: %w", err)
	}
	schedulerService := usecase.NewSchedulerService(seasonRepo, runner, logger)

	var announcer *announce.WebhookPublisher
	if cfg.AnnounceEnabled {
		announcer, err = announce.NewWebhookPublisher(announce.WebhookPublisherConfig{
			URL:     cfg.AnnounceWebhookURL,
			Token:   cfg.AnnounceWebhookToken,
			Timeout: cfg.AnnounceTimeout,
			Breaker: resilience.CircuitBreakerConfig{
				FailureThreshold: cfg.AnnounceCircuitFailures,
				OpenTimeout:      cfg.AnnounceCircuitOpenWait,
				HalfOpenMaxReq:   cfg.AnnounceCircuitHalfOpenReq,
			},
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create announcement publisher: %w", err)
		}
	}

	hooks := newSeasonHooks(seasonService, schedulerService, seasonRepo, announcer, logger)
	runner.SetHandler(func(ctx context.Context, kind season.JobKind, seasonNumber int) error {
		if kind == season.JobSeasonEnd {
			return schedulerService.HandleSeasonEnd(ctx, seasonNumber, hooks.OnSeasonEnd)
		}
		return schedulerService.HandleWarning(ctx, kind, seasonNumber, hooks.OnWarning)
	})

	if err := seasonService.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize season state: %w", err)
	}
	if err := armSeasonJobs(ctx, seasonService, schedulerService); err != nil {
		return nil, fmt.Errorf("arm season triggers: %w", err)
	}

	handler := httpapi.NewHandler(
		seasonService,
		territoryService,
		creditService,
		teamService,
		leaderboardService,
		schedulerService,
		hooks.OnSeasonEnd,
		hooks.OnWarning,
		cfg.Game,
		logger,
	)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return &App{
		Server:        server,
		cfg:           cfg,
		logger:        logger,
		db:            db,
		runner:        runner,
		pprofServer:   pprofServer,
		stopPyroscope: stopPyroscope,
		stopTracing:   stopTracing,
	}, nil
}

// armSeasonJobs re-arms the in-process triggers for the live season on
// every boot; timers do not survive a restart.
func armSeasonJobs(ctx context.Context, seasons *usecase.SeasonService, scheduler *usecase.SchedulerService) error {
	current, err := seasons.GetCurrentSeason(ctx)
	if err != nil {
		return fmt.Errorf("load current season: %w", err)
	}
	settings, err := seasons.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("load season settings: %w", err)
	}

	if err := scheduler.ScheduleSeasonEnd(ctx, current.EndTime, current.Number); err != nil {
		return fmt.Errorf("schedule season end: %w", err)
	}
	if err := scheduler.ScheduleWarnings(ctx, current.EndTime, current.Number, settings); err != nil {
		return fmt.Errorf("schedule warnings: %w", err)
	}
	return nil
}

// Close tears the app down in reverse dependency order. Every component
// gets its shutdown attempt even when an earlier one fails.
func (a *App) Close(ctx context.Context) error {
	var errs []error

	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
		}
	}
	if a.runner != nil {
		a.runner.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if err := observability.StopPprofServer(a.pprofServer, a.logger, 5*time.Second); err != nil {
		errs = append(errs, fmt.Errorf("stop pprof server: %w", err))
	}
	if a.stopPyroscope != nil {
		if err := a.stopPyroscope(); err != nil {
			errs = append(errs, fmt.Errorf("stop pyroscope: %w", err))
		}
	}
	if a.stopTracing != nil {
		if err := a.stopTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
	}

	return errors.Join(errs...)
}
