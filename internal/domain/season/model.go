package season

import "fmt"

// Status of a season. Only active is ever persisted: a season is current
// until the transition replaces it with its successor.
type Status string

const StatusActive Status = "active"

// Season is the current round's metadata. Replaced wholesale on transition,
// never edited in place.
type Season struct {
	Number     int    `json:"seasonNumber"`
	StartTime  int64  `json:"startTime"` // unix millis
	EndTime    int64  `json:"endTime"`   // unix millis
	DurationMs int64  `json:"duration"`
	Status     Status `json:"status"`
}

func (s Season) Validate() error {
	if s.Number < 1 {
		return fmt.Errorf("season number must be positive, got %d", s.Number)
	}
	if s.DurationMs <= 0 {
		return fmt.Errorf("season duration must be positive, got %d", s.DurationMs)
	}
	return nil
}

// Settings control seasons started after the update; the running season is
// never affected.
type Settings struct {
	DurationMs      int64 `json:"durationMs"`
	EnableAutoPosts bool  `json:"enableAutoPosts"`
	Enable24hWarn   bool  `json:"enable24hWarning"`
	Enable1hWarn    bool  `json:"enable1hWarning"`
}

// SettingsPatch carries a partial settings update; nil fields keep the
// stored value.
type SettingsPatch struct {
	DurationMs      *int64 `json:"durationMs"`
	EnableAutoPosts *bool  `json:"enableAutoPosts"`
	Enable24hWarn   *bool  `json:"enable24hWarning"`
	Enable1hWarn    *bool  `json:"enable1hWarning"`
}

func DefaultSettings() Settings {
	return Settings{
		DurationMs:      7 * 24 * 60 * 60 * 1000,
		EnableAutoPosts: true,
		Enable24hWarn:   true,
		Enable1hWarn:    true,
	}
}

// Standing is one team's final rank at season end.
type Standing struct {
	TeamID          string `json:"teamId"`
	TeamName        string `json:"teamName"`
	Score           int    `json:"score"`
	ZonesControlled int    `json:"zonesControlled"`
	PlayerCount     int    `json:"playerCount"`
}

type WinningTeam struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	FinalScore int    `json:"finalScore"`
}

type TopPlayer struct {
	Username     string `json:"username"`
	TeamID       string `json:"teamId"`
	PixelsPlaced int    `json:"pixelsPlaced"`
}

type Statistics struct {
	TotalPixelsPlaced int       `json:"totalPixelsPlaced"`
	TotalPlayers      int       `json:"totalPlayers"`
	TopPlayer         TopPlayer `json:"topPlayer"`
}

// History is the immutable record of a completed season.
type History struct {
	Number         int         `json:"seasonNumber"`
	StartTime      int64       `json:"startTime"`
	EndTime        int64       `json:"endTime"`
	DurationMs     int64       `json:"duration"`
	WinningTeam    WinningTeam `json:"winningTeam"`
	FinalStandings []Standing  `json:"finalStandings"`
	Statistics     Statistics  `json:"statistics"`
}

// FailedPost is a best-effort operation that failed and awaits manual
// follow-up.
type FailedPost struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	Timestamp int64  `json:"timestamp"`
	Error     string `json:"error"`
}

// JobKind tags a scheduled trigger.
type JobKind string

const (
	JobSeasonEnd  JobKind = "season-end"
	JobWarning24h JobKind = "warning-24h"
	JobWarning1h  JobKind = "warning-1h"
)

// JobRecord tracks one armed trigger for bulk cancellation and
// introspection. Idempotency does not rely on it; fire-time handlers
// re-check the live current season instead.
type JobRecord struct {
	JobID string `json:"jobId"`
	RunAt int64  `json:"runAt"` // unix millis
}

// Jobs maps job kind to its record for one season.
type Jobs map[JobKind]JobRecord
