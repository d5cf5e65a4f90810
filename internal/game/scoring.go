package game

import "mental-gin-backend/internal/deadwood"

const (
	// KnockLimit is the highest deadwood a player may knock with.
	KnockLimit = 10

	GinBonus      = 25
	BigGinBonus   = 31
	UndercutBonus = 25

	HandSize   = 10
	BigGinSize = 11
)

type Reason string

const (
	ReasonGin      Reason = "Gin"
	ReasonBigGin   Reason = "Big Gin"
	ReasonKnock    Reason = "Knock"
	ReasonUndercut Reason = "Undercut"
)

// RoundResult is the outcome of a finished round.
type RoundResult struct {
	Round            int             `json:"round"`
	Winner           PlayerID        `json:"winner"`
	Reason           Reason          `json:"reason"`
	Points           int             `json:"points"`
	Knocker          PlayerID        `json:"knocker"`
	KnockerDeadwood  int             `json:"knocker_deadwood"`
	DefenderDeadwood int             `json:"defender_deadwood"`
	Melds            []deadwood.Meld `json:"melds,omitempty"`
}

// GameResult names the player who crossed the target score.
type GameResult struct {
	Winner PlayerID `json:"winner"`
	Score  int      `json:"score"`
}

// Settle applies the scoring rules to a knock. knockerCards is the knocker's
// hand size, which tells Gin from Big Gin.
func Settle(knocker PlayerID, knockerDeadwood, defenderDeadwood, knockerCards int) RoundResult {
	r := RoundResult{
		Knocker:          knocker,
		KnockerDeadwood:  knockerDeadwood,
		DefenderDeadwood: defenderDeadwood,
	}

	switch {
	case knockerDeadwood == 0 && knockerCards == BigGinSize:
		r.Winner, r.Reason, r.Points = knocker, ReasonBigGin, BigGinBonus+defenderDeadwood
	case knockerDeadwood == 0:
		r.Winner, r.Reason, r.Points = knocker, ReasonGin, GinBonus+defenderDeadwood
	case defenderDeadwood <= knockerDeadwood:
		r.Winner, r.Reason = knocker.Opponent(), ReasonUndercut
		r.Points = knockerDeadwood - defenderDeadwood + UndercutBonus
	default:
		r.Winner, r.Reason = knocker, ReasonKnock
		r.Points = defenderDeadwood - knockerDeadwood
	}
	return r
}
