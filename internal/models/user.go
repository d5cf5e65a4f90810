package models

// StartGameResponse is returned by the start-game trigger. Each token binds
// its holder to one seat of the new game.
type StartGameResponse struct {
	GameID    string              `json:"game_id"`
	Tokens    map[string]string   `json:"tokens"`
	PublicKey map[string]string   `json:"public_key"`
	Shuffle   []ShuffleTranscript `json:"shuffle"`
}

// SeatInfo describes the caller of a seat-authenticated request.
type SeatInfo struct {
	GameID   string         `json:"game_id"`
	Seat     string         `json:"seat"`
	Opponent string         `json:"opponent"`
	Phase    string         `json:"phase"`
	Round    int            `json:"round"`
	Scores   map[string]int `json:"scores"`
}
