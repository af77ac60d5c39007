package game

import "github.com/go-playground/validator/v10"

// Team is one of the fixed sides players are assigned to.
type Team struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Color string `json:"color" validate:"required"`
}

// Config holds the per-instance game rules. Teams are listed in priority
// order: earlier teams win score ties in final standings.
type Config struct {
	CanvasWidth    int    `json:"canvasWidth" validate:"gt=0"`
	CanvasHeight   int    `json:"canvasHeight" validate:"gt=0"`
	CreditCooldown int    `json:"creditCooldown" validate:"gt=0"` // seconds per regenerated credit
	MaxCredits     int    `json:"maxCredits" validate:"gt=0"`
	InitialCredits int    `json:"initialCredits" validate:"gte=0"`
	ZoneSize       int    `json:"zoneSize" validate:"gt=0"`
	Teams          []Team `json:"teams" validate:"min=1,dive"`
}

var configValidator = validator.New()

func (c Config) Validate() error {
	return configValidator.Struct(c)
}

// CreditCooldownMs is the regeneration interval in milliseconds.
func (c Config) CreditCooldownMs() int64 {
	return int64(c.CreditCooldown) * 1000
}

// ZonesX gives the zone grid width; partial zones at the canvas edge count
// as full zones.
func (c Config) ZonesX() int {
	return (c.CanvasWidth + c.ZoneSize - 1) / c.ZoneSize
}

func (c Config) ZonesY() int {
	return (c.CanvasHeight + c.ZoneSize - 1) / c.ZoneSize
}

func (c Config) TeamByID(id string) (Team, bool) {
	for _, t := range c.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return Team{}, false
}

func DefaultConfig() Config {
	return Config{
		CanvasWidth:    100,
		CanvasHeight:   100,
		CreditCooldown: 120,
		MaxCredits:     10,
		InitialCredits: 5,
		ZoneSize:       10,
		Teams: []Team{
			{ID: "red", Name: "Red Team", Color: "#FF4444"},
			{ID: "blue", Name: "Blue Team", Color: "#4444FF"},
			{ID: "green", Name: "Green Team", Color: "#44FF44"},
			{ID: "yellow", Name: "Yellow Team", Color: "#FFFF44"},
		},
	}
}
