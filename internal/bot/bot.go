// Package bot is a greedy gin rummy player that drives a game.Game through
// its public transitions. It is used by the simulator and end-to-end tests.
package bot

import (
	"errors"
	"fmt"

	"mental-gin-backend/internal/cards"
	"mental-gin-backend/internal/deadwood"
	"mental-gin-backend/internal/game"
)

// ErrStockExhausted ends a round with no winner.
var ErrStockExhausted = errors.New("bot: stock exhausted")

// DefaultMaxTurns caps a single round.
const DefaultMaxTurns = 200

// BestDiscard returns the first index whose removal leaves the lowest deadwood.
func BestDiscard(hand []cards.Card) (index, dw int, err error) {
	if len(hand) == 0 {
		return 0, 0, fmt.Errorf("bot: empty hand")
	}
	index, dw = -1, 0
	rest := make([]cards.Card, 0, len(hand)-1)
	for i := range hand {
		rest = append(rest[:0], hand[:i]...)
		rest = append(rest, hand[i+1:]...)
		d, err := deadwood.Compute(rest)
		if err != nil {
			return 0, 0, err
		}
		if index < 0 || d < dw {
			index, dw = i, d
		}
	}
	return index, dw, nil
}

// ShouldTakeDiscard reports whether picking up top and then discarding
// something else lowers the deadwood of hand.
func ShouldTakeDiscard(hand []cards.Card, top cards.Card) (bool, error) {
	current, err := deadwood.Compute(hand)
	if err != nil {
		return false, err
	}
	with := append(append(make([]cards.Card, 0, len(hand)+1), hand...), top)
	idx, dw, err := BestDiscard(with)
	if err != nil {
		return false, err
	}
	return idx != len(hand) && dw < current, nil
}

// PlayTurn draws, discards and knocks when the hand allows it. It returns the
// round result if the turn ended the round.
func PlayTurn(g *game.Game, id game.PlayerID) (*game.RoundResult, error) {
	hand, err := g.HandValues(id)
	if err != nil {
		return nil, err
	}

	source := game.Stock
	if top, ok := g.DiscardTop(); ok {
		take, err := ShouldTakeDiscard(hand, top)
		if err != nil {
			return nil, err
		}
		if take {
			source = game.DiscardPile
		}
	}
	if source == game.Stock && g.DeckSize() == 0 {
		return nil, ErrStockExhausted
	}
	if _, err := g.Draw(id, source); err != nil {
		return nil, err
	}

	hand, err = g.HandValues(id)
	if err != nil {
		return nil, err
	}
	idx, dw, err := BestDiscard(hand)
	if err != nil {
		return nil, err
	}
	_, r, err := g.DiscardAndCheck(id, idx)
	if err != nil || r != nil {
		return r, err
	}
	if dw <= game.KnockLimit {
		return g.Knock(id)
	}
	return nil, nil
}

// PlayRound lets both seats play until the round ends. A nil result with a
// nil error means the stock ran out or maxTurns was reached.
func PlayRound(g *game.Game, maxTurns int) (*game.RoundResult, error) {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	for range maxTurns {
		r, err := PlayTurn(g, g.Turn())
		if errors.Is(err, ErrStockExhausted) {
			return nil, nil
		}
		if err != nil || r != nil {
			return r, err
		}
	}
	return nil, nil
}

// PlayGame plays rounds until someone reaches the target score or maxRounds
// rounds have been dealt.
func PlayGame(g *game.Game, maxRounds int) ([]*game.RoundResult, *game.GameResult, error) {
	var results []*game.RoundResult
	for i := 0; i < maxRounds; i++ {
		if i > 0 {
			if err := g.ResetRound(false); err != nil {
				return results, nil, err
			}
		}
		r, err := PlayRound(g, DefaultMaxTurns)
		if err != nil {
			return results, nil, err
		}
		if r != nil {
			results = append(results, r)
		}
		if over := g.CheckGameOver(); over != nil {
			return results, over, nil
		}
	}
	return results, nil, nil
}
