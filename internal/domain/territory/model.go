package territory

// Pixel is one owned cell on the canvas. Timestamp is only populated for
// entries read back from the update log; the canvas hash stores ownership
// without history.
type Pixel struct {
	X         int    `json:"x"`
	Y         int    `json:"y"`
	TeamID    string `json:"teamId"`
	Timestamp int64  `json:"timestamp"`
}

// Zone is the derived control aggregate for one fixed-size block of cells.
// ControllingTeam is empty when no team holds strictly more pixels in the
// zone than every other team present, which covers the tie case.
type Zone struct {
	X               int            `json:"x"`
	Y               int            `json:"y"`
	ControllingTeam string         `json:"controllingTeam"`
	PixelCount      map[string]int `json:"pixelCount"`
}

// ZoneFor maps a canvas coordinate to its zone coordinate.
func ZoneFor(x, y, zoneSize int) (int, int) {
	return x / zoneSize, y / zoneSize
}
