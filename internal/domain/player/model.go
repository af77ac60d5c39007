package player

// Ranking is one leaderboard row.
type Ranking struct {
	Username     string `json:"username"`
	PixelsPlaced int    `json:"pixelsPlaced"`
	Rank         int    `json:"rank"`
	TeamID       string `json:"teamId"`
}
