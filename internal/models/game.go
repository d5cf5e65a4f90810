package models

import "time"

// GameState is the per-seat "update_game" payload. Hand holds only the
// receiving seat's cards; the opponent is reduced to a count.
type GameState struct {
	Message       string         `json:"message"`
	Phase         string         `json:"phase"`
	Round         int            `json:"round"`
	DeckSize      int            `json:"deck_size"`
	Turn          string         `json:"turn"`
	Pending       *string        `json:"pending"`
	Hand          []string       `json:"hand"`
	OpponentCount int            `json:"opponent_count"`
	DiscardString *string        `json:"discard_string"`
	Scores        map[string]int `json:"scores"`
}

type Meld struct {
	Kind  string   `json:"kind"`
	Cards []string `json:"cards"`
}

// RoundOver is broadcast to both seats when a round ends.
type RoundOver struct {
	Round            int            `json:"round"`
	Winner           string         `json:"winner"`
	Reason           string         `json:"reason"`
	Points           int            `json:"points"`
	Knocker          string         `json:"knocker"`
	KnockerDeadwood  int            `json:"knocker_deadwood"`
	DefenderDeadwood int            `json:"defender_deadwood"`
	Melds            []Meld         `json:"melds,omitempty"`
	Scores           map[string]int `json:"scores"`
}

type GameOver struct {
	Winner string         `json:"winner"`
	Score  int            `json:"score"`
	Scores map[string]int `json:"scores"`
}

// RoundRecord is one finished round as kept in the history store.
type RoundRecord struct {
	ID         string         `json:"id" redis:"id"`
	GameID     string         `json:"game_id" redis:"game_id"`
	Round      int            `json:"round" redis:"round"`
	Winner     string         `json:"winner" redis:"winner"`
	Reason     string         `json:"reason" redis:"reason"`
	Points     int            `json:"points" redis:"points"`
	Scores     map[string]int `json:"scores" redis:"-"`
	GameOver   bool           `json:"game_over" redis:"game_over"`
	FinishedAt time.Time      `json:"finished_at" redis:"finished_at"`
}

type ShuffleTranscript struct {
	Party  string `json:"party"`
	Rounds int    `json:"rounds"`
	Zeros  int    `json:"zeros"`
	Ones   int    `json:"ones"`
	Final  string `json:"final"`
}
