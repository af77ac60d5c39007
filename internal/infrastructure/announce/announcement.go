package announce

import (
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/turf-wars/internal/domain/season"
)

// Kind tags an announcement payload for the receiving webhook.
type Kind string

const (
	KindSeasonStart Kind = "season-start"
	KindSeasonEnd   Kind = "season-end"
	KindWarning24h  Kind = "warning-24h"
	KindWarning1h   Kind = "warning-1h"
)

// Announcement is the structured payload POSTed to the announcement
// webhook. Body carries pre-rendered markdown so the receiver can relay
// it without knowing game internals.
type Announcement struct {
	Kind         Kind   `json:"kind"`
	SeasonNumber int    `json:"seasonNumber"`
	Title        string `json:"title"`
	Body         string `json:"body"`
	Timestamp    int64  `json:"timestamp"`
}

// BuildSeasonStart announces a freshly started season.
func BuildSeasonStart(s season.Season, now int64) Announcement {
	days := s.DurationMs / (24 * time.Hour).Milliseconds()
	var b strings.Builder
	fmt.Fprintf(&b, "# Season %d has begun\n\n", s.Number)
	fmt.Fprintf(&b, "The canvas is blank and every team starts from zero.\n\n")
	fmt.Fprintf(&b, "- Ends: %s\n", time.UnixMilli(s.EndTime).UTC().Format(time.RFC1123))
	fmt.Fprintf(&b, "- Duration: %s\n", formatDays(days))
	b.WriteString("\nClaim zones by holding more pixels in them than any other team.")

	return Announcement{
		Kind:         KindSeasonStart,
		SeasonNumber: s.Number,
		Title:        fmt.Sprintf("Season %d Has Begun!", s.Number),
		Body:         b.String(),
		Timestamp:    now,
	}
}

// BuildWarning announces an approaching season end.
func BuildWarning(kind season.JobKind, s season.Season, now int64) Announcement {
	switch kind {
	case season.JobWarning1h:
		return Announcement{
			Kind:         KindWarning1h,
			SeasonNumber: s.Number,
			Title:        fmt.Sprintf("Final Hour! Season %d Ends Soon!", s.Number),
			Body: fmt.Sprintf(
				"# Season %d enters its final hour\n\nEvery pixel placed now can flip a zone. The season ends at %s.",
				s.Number, time.UnixMilli(s.EndTime).UTC().Format(time.RFC1123)),
			Timestamp: now,
		}
	default:
		return Announcement{
			Kind:         KindWarning24h,
			SeasonNumber: s.Number,
			Title:        fmt.Sprintf("24 Hours Left in Season %d!", s.Number),
			Body: fmt.Sprintf(
				"# Only 24 hours remain in season %d\n\nThe season ends at %s. Rally your team for the final push.",
				s.Number, time.UnixMilli(s.EndTime).UTC().Format(time.RFC1123)),
			Timestamp: now,
		}
	}
}

// BuildSeasonEnd announces the winner with final standings and season
// statistics.
func BuildSeasonEnd(h season.History, now int64) Announcement {
	days := h.DurationMs / (24 * time.Hour).Milliseconds()

	var b strings.Builder
	fmt.Fprintf(&b, "# Season %d results\n\n", h.Number)
	fmt.Fprintf(&b, "## Winner: %s\n\n", h.WinningTeam.Name)
	fmt.Fprintf(&b, "Final score: %d points\n\n", h.WinningTeam.FinalScore)

	b.WriteString("## Final standings\n\n")
	b.WriteString("| Rank | Team | Score | Zones | Players |\n")
	b.WriteString("|------|------|-------|-------|--------|\n")
	for i, standing := range h.FinalStandings {
		fmt.Fprintf(&b, "| %d | %s | %d | %d | %d |\n",
			i+1, standing.TeamName, standing.Score, standing.ZonesControlled, standing.PlayerCount)
	}

	b.WriteString("\n## Season statistics\n\n")
	fmt.Fprintf(&b, "- Total pixels placed: %d\n", h.Statistics.TotalPixelsPlaced)
	fmt.Fprintf(&b, "- Total players: %d\n", h.Statistics.TotalPlayers)
	fmt.Fprintf(&b, "- Season duration: %s\n", formatDays(days))
	fmt.Fprintf(&b, "- Top player: %s (%d pixels)\n",
		h.Statistics.TopPlayer.Username, h.Statistics.TopPlayer.PixelsPlaced)
	fmt.Fprintf(&b, "\nSeason %d is starting now on a fresh canvas.", h.Number+1)

	return Announcement{
		Kind:         KindSeasonEnd,
		SeasonNumber: h.Number,
		Title:        fmt.Sprintf("Season %d Winner: %s!", h.Number, h.WinningTeam.Name),
		Body:         b.String(),
		Timestamp:    now,
	}
}

func formatDays(days int64) string {
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
