// Package deadwood finds the cheapest way to group a gin rummy hand into melds.
package deadwood

import (
	"errors"
	"fmt"
	"math/bits"
	"slices"

	"mental-gin-backend/internal/cards"
)

// MaxHand bounds the search. A gin hand never holds more than 11 cards.
const MaxHand = 11

var ErrInvalidHand = errors.New("deadwood: invalid hand")

type Kind string

const (
	Set Kind = "set"
	Run Kind = "run"
)

type Meld struct {
	Kind  Kind         `json:"kind"`
	Cards []cards.Card `json:"cards"`
}

// Result is one optimal grouping. Only Deadwood is canonical; when several
// groupings tie, any of them may be reported.
type Result struct {
	Deadwood int          `json:"deadwood"`
	Melds    []Meld       `json:"melds"`
	Leftover []cards.Card `json:"leftover"`
}

// Compute returns the minimum deadwood of hand.
func Compute(hand []cards.Card) (int, error) {
	r, err := Analyze(hand)
	if err != nil {
		return 0, err
	}
	return r.Deadwood, nil
}

// Analyze searches every partition of hand into sets, runs and leftovers and
// returns a minimum-deadwood one.
func Analyze(hand []cards.Card) (Result, error) {
	if len(hand) > MaxHand {
		return Result{}, fmt.Errorf("%w: %d cards", ErrInvalidHand, len(hand))
	}
	seen := make(map[cards.Card]bool, len(hand))
	for _, c := range hand {
		if !c.Valid() || seen[c] {
			return Result{}, fmt.Errorf("%w: card %d", ErrInvalidHand, int(c))
		}
		seen[c] = true
	}

	s := newSearch(hand)
	full := uint16(1)<<len(s.cards) - 1
	s.best(full)
	return s.result(full), nil
}

// step is the decision taken for the lowest card of a mask.
type step struct {
	cost int
	meld uint16 // zero when the card is left ungrouped
	kind Kind
}

type search struct {
	cards []cards.Card
	memo  map[uint16]step
}

func newSearch(hand []cards.Card) *search {
	sorted := slices.Clone(hand)
	slices.SortFunc(sorted, func(a, b cards.Card) int {
		if a.Suit() != b.Suit() {
			return int(a.Suit()) - int(b.Suit())
		}
		return a.Rank() - b.Rank()
	})
	return &search{cards: sorted, memo: make(map[uint16]step)}
}

func (s *search) best(mask uint16) int {
	if mask == 0 {
		return 0
	}
	if st, ok := s.memo[mask]; ok {
		return st.cost
	}

	first := bits.TrailingZeros16(mask)
	firstBit := uint16(1) << first
	c := s.cards[first]

	choice := step{cost: c.Points() + s.best(mask&^firstBit)}

	for _, set := range s.sets(mask, first) {
		if cost := s.best(mask &^ set); cost < choice.cost {
			choice = step{cost: cost, meld: set, kind: Set}
		}
	}
	for _, run := range s.runs(mask, first) {
		if cost := s.best(mask &^ run); cost < choice.cost {
			choice = step{cost: cost, meld: run, kind: Run}
		}
	}

	s.memo[mask] = choice
	return choice.cost
}

// sets lists every 3- and 4-card same-rank group that includes first.
func (s *search) sets(mask uint16, first int) []uint16 {
	rank := s.cards[first].Rank()
	var others []int
	for i := range s.cards {
		if i != first && mask&(1<<i) != 0 && s.cards[i].Rank() == rank {
			others = append(others, i)
		}
	}

	base := uint16(1) << first
	var out []uint16
	for a := 0; a < len(others); a++ {
		for b := a + 1; b < len(others); b++ {
			three := base | 1<<others[a] | 1<<others[b]
			out = append(out, three)
			for c := b + 1; c < len(others); c++ {
				out = append(out, three|1<<others[c])
			}
		}
	}
	return out
}

// runs lists every consecutive same-suit chain of length 3 or more starting at
// first. first is the lowest remaining card of its suit because the cards are
// sorted by suit then rank.
func (s *search) runs(mask uint16, first int) []uint16 {
	var out []uint16
	chain := uint16(1) << first
	length := 1
	prev := s.cards[first]

	for i := first + 1; i < len(s.cards); i++ {
		if mask&(1<<i) == 0 {
			continue
		}
		c := s.cards[i]
		if c.Suit() != prev.Suit() || c.Rank() != prev.Rank()+1 {
			break
		}
		chain |= 1 << i
		length++
		prev = c
		if length >= 3 {
			out = append(out, chain)
		}
	}
	return out
}

func (s *search) result(mask uint16) Result {
	r := Result{Deadwood: s.best(mask)}
	for mask != 0 {
		st := s.memo[mask]
		first := bits.TrailingZeros16(mask)
		if st.meld == 0 {
			r.Leftover = append(r.Leftover, s.cards[first])
			mask &^= 1 << first
			continue
		}
		r.Melds = append(r.Melds, Meld{Kind: st.kind, Cards: s.pick(st.meld)})
		mask &^= st.meld
	}
	return r
}

func (s *search) pick(mask uint16) []cards.Card {
	out := make([]cards.Card, 0, bits.OnesCount16(mask))
	for i := range s.cards {
		if mask&(1<<i) != 0 {
			out = append(out, s.cards[i])
		}
	}
	return out
}
