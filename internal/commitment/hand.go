package commitment

import (
	"errors"
	"fmt"
)

// ErrCardNotFound is returned by Prove for a card that was never committed.
// Reaching it from a hand snapshot indicates a logic bug.
var ErrCardNotFound = errors.New("commitment: card not found in hand commitments")

// Entry is the stored (commitment, salt) for one card.
type Entry struct {
	Commitment Digest
	Salt       []byte
}

// Table maps a card encoding to its commitment. It is built fresh before every
// discard proof and dropped after the single verification it serves.
type Table struct {
	entries map[string]Entry
}

// Proof reveals a committed card and its salt. It is an integrity check: the
// card value is disclosed to the verifier.
type Proof struct {
	Card []byte
	Salt []byte
}

// CommitHand draws a fresh salt for every card and commits to it.
func CommitHand(hand [][]byte) (*Table, error) {
	t := &Table{entries: make(map[string]Entry, len(hand))}
	for _, card := range hand {
		salt, err := NewSalt()
		if err != nil {
			return nil, err
		}
		t.entries[string(card)] = Entry{
			Commitment: Commit(card, salt),
			Salt:       salt,
		}
	}
	return t, nil
}

func (t *Table) Len() int {
	return len(t.entries)
}

// Lookup returns the stored entry for a card.
func (t *Table) Lookup(card []byte) (Entry, bool) {
	e, ok := t.entries[string(card)]
	return e, ok
}

// Prove builds the reveal for a committed card.
func (t *Table) Prove(card []byte) (Proof, error) {
	e, ok := t.entries[string(card)]
	if !ok {
		return Proof{}, fmt.Errorf("%w (%d committed)", ErrCardNotFound, len(t.entries))
	}
	salt := make([]byte, len(e.Salt))
	copy(salt, e.Salt)
	return Proof{Card: append([]byte(nil), card...), Salt: salt}, nil
}

// Verify recomputes the commitment from the proof. Unknown cards, wrong salts
// and altered cards all verify false.
func (t *Table) Verify(p Proof) bool {
	e, ok := t.entries[string(p.Card)]
	if !ok {
		return false
	}
	return Open(e.Commitment, p.Card, p.Salt)
}
