package credit

// State is one player's regenerating currency. NextCreditTime is the unix
// millisecond at which the next credit lands; zero means no cooldown is
// running, either because the player is untouched or already at max.
type State struct {
	Credits        int   `json:"credits"`
	NextCreditTime int64 `json:"nextCreditTime"`
}
