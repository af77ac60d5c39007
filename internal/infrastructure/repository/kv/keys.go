package kv

import (
	"fmt"
	"strconv"
	"strings"
)

// Season-scoped keys are global: one season spans every game instance.
const (
	keySeasonCurrent      = "season:current"
	keySeasonSettings     = "season:settings"
	keySeasonHistoryIndex = "season:history:index"
	keyFailedPosts        = "season:failed-posts"
)

func seasonHistoryKey(number int) string {
	return fmt.Sprintf("season:history:%d", number)
}

func seasonJobsKey(number int) string {
	return fmt.Sprintf("season:jobs:%d", number)
}

// Game-scoped keys are namespaced by instance ID so several canvases can
// share one store.
func canvasKey(instanceID string) string {
	return fmt.Sprintf("game:%s:canvas", instanceID)
}

func canvasUpdatesKey(instanceID string) string {
	return fmt.Sprintf("game:%s:canvas:updates", instanceID)
}

func zoneControlKey(instanceID string) string {
	return fmt.Sprintf("game:%s:zones", instanceID)
}

func leaderboardKey(instanceID string) string {
	return fmt.Sprintf("game:%s:leaderboard:players", instanceID)
}

func teamAssignmentsKey(instanceID string) string {
	return fmt.Sprintf("game:%s:teams", instanceID)
}

func userCreditsKey(instanceID, username string) string {
	return fmt.Sprintf("game:%s:user:%s:credits", instanceID, username)
}

func coordField(x, y int) string {
	return strconv.Itoa(x) + ":" + strconv.Itoa(y)
}

func parseCoordField(field string) (int, int, bool) {
	sep := strings.IndexByte(field, ':')
	if sep < 0 {
		return 0, 0, false
	}
	x, err := strconv.Atoi(field[:sep])
	if err != nil {
		return 0, 0, false
	}
	y, err := strconv.Atoi(field[sep+1:])
	if err != nil {
		return 0, 0, false
	}
	return x, y, true
}

func updateMember(x, y int, teamID string) string {
	return coordField(x, y) + ":" + teamID
}

func parseUpdateMember(member string) (int, int, string, bool) {
	parts := strings.SplitN(member, ":", 3)
	if len(parts) != 3 {
		return 0, 0, "", false
	}
	x, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, "", false
	}
	y, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, "", false
	}
	return x, y, parts[2], true
}
