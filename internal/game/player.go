package game

import (
	"fmt"
	"math/big"
	"slices"

	"mental-gin-backend/internal/cards"
	"mental-gin-backend/internal/elgamal"
)

type PlayerID string

const (
	Player1 PlayerID = "player1"
	Player2 PlayerID = "player2"
)

// Seats lists the players in dealing order.
var Seats = []PlayerID{Player1, Player2}

func (id PlayerID) Valid() bool {
	return id == Player1 || id == Player2
}

func (id PlayerID) Opponent() PlayerID {
	if id == Player1 {
		return Player2
	}
	return Player1
}

// Player owns an encrypted hand and exactly one exponent share. Reading a card
// needs the opponent's partial decryption first.
type Player struct {
	ID   PlayerID
	Name string

	pub   *elgamal.PublicKey
	share *big.Int
	hand  []elgamal.Ciphertext
}

func newPlayer(id PlayerID, name string, pub *elgamal.PublicKey, share *big.Int) *Player {
	return &Player{ID: id, Name: name, pub: pub, share: share}
}

// Partial strips this player's share from a card the opponent wants to read.
func (p *Player) Partial(ct elgamal.Ciphertext) (*big.Int, error) {
	return elgamal.PartialDecrypt(ct, p.share, p.pub)
}

// Complete finishes decryption of ct given the opponent's partial.
func (p *Player) Complete(ct elgamal.Ciphertext, partial *big.Int) (cards.Card, error) {
	v, err := elgamal.CompleteDecrypt(ct, partial, p.share, p.pub)
	if err != nil {
		return 0, err
	}
	c := cards.Card(v)
	if !c.Valid() {
		return 0, fmt.Errorf("decrypted value %d is not a card", v)
	}
	return c, nil
}

func (p *Player) HandSize() int {
	return len(p.hand)
}

func (p *Player) receive(ct elgamal.Ciphertext) {
	p.hand = append(p.hand, ct)
}

func (p *Player) remove(i int) elgamal.Ciphertext {
	ct := p.hand[i]
	p.hand = slices.Delete(p.hand, i, i+1)
	return ct
}

// move pops the card at from and reinserts it at to.
func (p *Player) move(from, to int) bool {
	n := len(p.hand)
	if from < 0 || from >= n || to < 0 || to >= n {
		return false
	}
	ct := p.hand[from]
	p.hand = slices.Delete(p.hand, from, from+1)
	p.hand = slices.Insert(p.hand, to, ct)
	return true
}
