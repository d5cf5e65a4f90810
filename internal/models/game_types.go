package models

// ActionType names an inbound player action.
type ActionType string

const (
	ActionJoin     ActionType = "join_game"
	ActionDraw     ActionType = "draw_card"
	ActionDiscard  ActionType = "discard_card"
	ActionKnock    ActionType = "knock"
	ActionMoveCard ActionType = "new_hand"
	ActionNewRound ActionType = "new_round"
	ActionNewGame  ActionType = "new_game"
)

// EventType names an outbound event.
type EventType string

const (
	EventUpdateGame EventType = "update_game"
	EventRoundOver  EventType = "round_over"
	EventGameOver   EventType = "game_over"
	EventKnockError EventType = "knock_error"
	EventError      EventType = "error"
)

// Action is what a seat sends over the socket or a REST mirror. The player is
// never taken from the payload; it comes from the seat token.
type Action struct {
	Type ActionType `json:"type"`
	Data ActionData `json:"data"`
}

type ActionData struct {
	Source    string `json:"source,omitempty"`
	CardIndex *int   `json:"cardIndex,omitempty"`
	FromIndex *int   `json:"fromIndex,omitempty"`
	ToIndex   *int   `json:"toIndex,omitempty"`
}

// Delivery addresses one outbound event. An empty To reaches every seat of
// the game.
type Delivery struct {
	To    string    `json:"to,omitempty"`
	Event EventType `json:"event"`
	Data  any       `json:"data"`
}

type ErrorPayload struct {
	Error    string `json:"error"`
	Severity string `json:"severity,omitempty"`
}

type DrawRequest struct {
	Source string `json:"source" binding:"required,oneof=stock discard"`
}

type DiscardRequest struct {
	CardIndex *int `json:"cardIndex" binding:"required,min=0"`
}

type MoveRequest struct {
	FromIndex *int `json:"fromIndex" binding:"required,min=0"`
	ToIndex   *int `json:"toIndex" binding:"required,min=0"`
}
