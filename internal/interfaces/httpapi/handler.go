package httpapi

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/turf-wars/internal/domain/credit"
	"github.com/riskibarqy/turf-wars/internal/domain/game"
	"github.com/riskibarqy/turf-wars/internal/domain/player"
	"github.com/riskibarqy/turf-wars/internal/domain/season"
	"github.com/riskibarqy/turf-wars/internal/domain/territory"
	"github.com/riskibarqy/turf-wars/internal/platform/logging"
	"github.com/riskibarqy/turf-wars/internal/usecase"
)

type Handler struct {
	seasonService      *usecase.SeasonService
	territoryService   *usecase.TerritoryService
	creditService      *usecase.CreditService
	teamService        *usecase.TeamService
	leaderboardService *usecase.LeaderboardService
	schedulerService   *usecase.SchedulerService
	onSeasonEnd        func(ctx context.Context, seasonNumber int) error
	onWarning          func(ctx context.Context, kind season.JobKind, seasonNumber int) error
	gameConfig         game.Config
	logger             *logging.Logger
	validator          *validator.Validate
}

func NewHandler(
	seasonService *usecase.SeasonService,
	territoryService *usecase.TerritoryService,
	creditService *usecase.CreditService,
	teamService *usecase.TeamService,
	leaderboardService *usecase.LeaderboardService,
	schedulerService *usecase.SchedulerService,
	onSeasonEnd func(ctx context.Context, seasonNumber int) error,
	onWarning func(ctx context.Context, kind season.JobKind, seasonNumber int) error,
	gameConfig game.Config,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		seasonService:      seasonService,
		territoryService:   territoryService,
		creditService:      creditService,
		teamService:        teamService,
		leaderboardService: leaderboardService,
		schedulerService:   schedulerService,
		onSeasonEnd:        onSeasonEnd,
		onWarning:          onWarning,
		gameConfig:         gameConfig,
		logger:             logger,
		validator:          validator.New(),
	}
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

type placePixelRequest struct {
	X int `json:"x" validate:"gte=0"`
	Y int `json:"y" validate:"gte=0"`
}

type updateSettingsRequest struct {
	DurationMs      *int64 `json:"durationMs" validate:"omitempty,gt=0"`
	EnableAutoPosts *bool  `json:"enableAutoPosts"`
	Enable24hWarn   *bool  `json:"enable24hWarning"`
	Enable1hWarn    *bool  `json:"enable1hWarning"`
}

type internalJobRequest struct {
	SeasonNumber int    `json:"season_number"`
	Kind         string `json:"kind"`
}

type seasonDTO struct {
	Number        int    `json:"seasonNumber"`
	StartTime     int64  `json:"startTime"`
	EndTime       int64  `json:"endTime"`
	DurationMs    int64  `json:"duration"`
	Status        string `json:"status"`
	TimeRemaining int64  `json:"timeRemaining"`
}

type settingsDTO struct {
	DurationMs      int64 `json:"durationMs"`
	EnableAutoPosts bool  `json:"enableAutoPosts"`
	Enable24hWarn   bool  `json:"enable24hWarning"`
	Enable1hWarn    bool  `json:"enable1hWarning"`
}

type historyDTO struct {
	Number         int           `json:"seasonNumber"`
	StartTime      int64         `json:"startTime"`
	EndTime        int64         `json:"endTime"`
	DurationMs     int64         `json:"duration"`
	WinningTeam    winnerDTO     `json:"winningTeam"`
	FinalStandings []standingDTO `json:"finalStandings"`
	Statistics     statisticsDTO `json:"statistics"`
}

type winnerDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	FinalScore int    `json:"finalScore"`
}

type standingDTO struct {
	TeamID          string `json:"teamId"`
	TeamName        string `json:"teamName"`
	Score           int    `json:"score"`
	ZonesControlled int    `json:"zonesControlled"`
	PlayerCount     int    `json:"playerCount"`
}

type statisticsDTO struct {
	TotalPixelsPlaced int          `json:"totalPixelsPlaced"`
	TotalPlayers      int          `json:"totalPlayers"`
	TopPlayer         topPlayerDTO `json:"topPlayer"`
}

type topPlayerDTO struct {
	Username     string `json:"username"`
	TeamID       string `json:"teamId"`
	PixelsPlaced int    `json:"pixelsPlaced"`
}

type pixelDTO struct {
	X         int    `json:"x"`
	Y         int    `json:"y"`
	TeamID    string `json:"teamId"`
	Timestamp int64  `json:"timestamp"`
}

type zoneDTO struct {
	X               int            `json:"x"`
	Y               int            `json:"y"`
	ControllingTeam string         `json:"controllingTeam"`
	PixelCount      map[string]int `json:"pixelCount"`
}

type canvasDTO struct {
	Width    int        `json:"width"`
	Height   int        `json:"height"`
	ZoneSize int        `json:"zoneSize"`
	Teams    []teamDTO  `json:"teams"`
	Pixels   []pixelDTO `json:"pixels"`
}

type teamDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Size  int    `json:"size,omitempty"`
}

type creditStateDTO struct {
	Credits        int   `json:"credits"`
	NextCreditTime int64 `json:"nextCreditTime"`
	TimeUntilNext  int64 `json:"timeUntilNext"`
}

type rankingDTO struct {
	Username     string `json:"username"`
	PixelsPlaced int    `json:"pixelsPlaced"`
	Rank         int    `json:"rank"`
	TeamID       string `json:"teamId"`
}

type placementDTO struct {
	Pixel   pixelDTO       `json:"pixel"`
	Zone    zoneDTO        `json:"zone"`
	Credits creditStateDTO `json:"credits"`
}

type failedPostDTO struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	Timestamp int64  `json:"timestamp"`
	Error     string `json:"error"`
}

func seasonToDTO(ctx context.Context, v season.Season, timeRemaining int64) seasonDTO {
	ctx, span := startSpan(ctx, "httpapi.seasonToDTO")
	defer span.End()

	return seasonDTO{
		Number:        v.Number,
		StartTime:     v.StartTime,
		EndTime:       v.EndTime,
		DurationMs:    v.DurationMs,
		Status:        string(v.Status),
		TimeRemaining: timeRemaining,
	}
}

func settingsToDTO(ctx context.Context, v season.Settings) settingsDTO {
	ctx, span := startSpan(ctx, "httpapi.settingsToDTO")
	defer span.End()

	return settingsDTO{
		DurationMs:      v.DurationMs,
		EnableAutoPosts: v.EnableAutoPosts,
		Enable24hWarn:   v.Enable24hWarn,
		Enable1hWarn:    v.Enable1hWarn,
	}
}

func historyToDTO(ctx context.Context, v season.History) historyDTO {
	ctx, span := startSpan(ctx, "httpapi.historyToDTO")
	defer span.End()

	standings := make([]standingDTO, 0, len(v.FinalStandings))
	for _, item := range v.FinalStandings {
		standings = append(standings, standingDTO(item))
	}

	return historyDTO{
		Number:         v.Number,
		StartTime:      v.StartTime,
		EndTime:        v.EndTime,
		DurationMs:     v.DurationMs,
		WinningTeam:    winnerDTO(v.WinningTeam),
		FinalStandings: standings,
		Statistics: statisticsDTO{
			TotalPixelsPlaced: v.Statistics.TotalPixelsPlaced,
			TotalPlayers:      v.Statistics.TotalPlayers,
			TopPlayer:         topPlayerDTO(v.Statistics.TopPlayer),
		},
	}
}

func pixelToDTO(ctx context.Context, v territory.Pixel) pixelDTO {
	ctx, span := startSpan(ctx, "httpapi.pixelToDTO")
	defer span.End()

	return pixelDTO(v)
}

func zoneToDTO(ctx context.Context, v territory.Zone) zoneDTO {
	ctx, span := startSpan(ctx, "httpapi.zoneToDTO")
	defer span.End()

	counts := make(map[string]int, len(v.PixelCount))
	for teamID, count := range v.PixelCount {
		counts[teamID] = count
	}

	return zoneDTO{
		X:               v.X,
		Y:               v.Y,
		ControllingTeam: v.ControllingTeam,
		PixelCount:      counts,
	}
}

func creditStateToDTO(ctx context.Context, v credit.State, timeUntilNext int64) creditStateDTO {
	ctx, span := startSpan(ctx, "httpapi.creditStateToDTO")
	defer span.End()

	return creditStateDTO{
		Credits:        v.Credits,
		NextCreditTime: v.NextCreditTime,
		TimeUntilNext:  timeUntilNext,
	}
}

func rankingToDTO(ctx context.Context, v player.Ranking) rankingDTO {
	ctx, span := startSpan(ctx, "httpapi.rankingToDTO")
	defer span.End()

	return rankingDTO(v)
}

func teamToDTO(ctx context.Context, v game.Team, size int) teamDTO {
	ctx, span := startSpan(ctx, "httpapi.teamToDTO")
	defer span.End()

	return teamDTO{
		ID:    v.ID,
		Name:  v.Name,
		Color: v.Color,
		Size:  size,
	}
}

func failedPostToDTO(ctx context.Context, v season.FailedPost) failedPostDTO {
	ctx, span := startSpan(ctx, "httpapi.failedPostToDTO")
	defer span.End()

	return failedPostDTO(v)
}
