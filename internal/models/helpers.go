package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"mental-gin-backend/internal/cards"
	"mental-gin-backend/internal/game"
	"mental-gin-backend/internal/shuffle"
)

func GenerateGameID() string {
	return fmt.Sprintf("gin_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateRoundID(gameID string, round int) string {
	return fmt.Sprintf("%s_r%d_%s", gameID, round, uuid.NewString()[:8])
}

func Scores(s map[game.PlayerID]int) map[string]int {
	out := make(map[string]int, len(s))
	for id, v := range s {
		out[string(id)] = v
	}
	return out
}

func NewGameState(s game.Snapshot) *GameState {
	st := &GameState{
		Message:       s.Message,
		Phase:         string(s.Phase),
		Round:         s.Round,
		DeckSize:      s.DeckSize,
		Turn:          string(s.Turn),
		Hand:          cards.Strings(s.Hand),
		OpponentCount: s.OpponentCount,
		Scores:        Scores(s.Scores),
	}
	if s.Pending != "" {
		p := string(s.Pending)
		st.Pending = &p
	}
	if s.DiscardTop.Valid() {
		d := s.DiscardTop.String()
		st.DiscardString = &d
	}
	return st
}

func NewRoundOver(r *game.RoundResult, scores map[game.PlayerID]int) *RoundOver {
	out := &RoundOver{
		Round:            r.Round,
		Winner:           string(r.Winner),
		Reason:           string(r.Reason),
		Points:           r.Points,
		Knocker:          string(r.Knocker),
		KnockerDeadwood:  r.KnockerDeadwood,
		DefenderDeadwood: r.DefenderDeadwood,
		Scores:           Scores(scores),
	}
	for _, m := range r.Melds {
		out.Melds = append(out.Melds, Meld{Kind: string(m.Kind), Cards: cards.Strings(m.Cards)})
	}
	return out
}

func NewGameOver(r *game.GameResult, scores map[game.PlayerID]int) *GameOver {
	return &GameOver{
		Winner: string(r.Winner),
		Score:  r.Score,
		Scores: Scores(scores),
	}
}

func NewTranscripts(ts []shuffle.Transcript) []ShuffleTranscript {
	out := make([]ShuffleTranscript, len(ts))
	for i, t := range ts {
		out[i] = ShuffleTranscript(t)
	}
	return out
}
