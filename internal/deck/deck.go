// Package deck holds a plaintext card order alongside its encryption.
package deck

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"mental-gin-backend/internal/cards"
	"mental-gin-backend/internal/elgamal"
	"mental-gin-backend/internal/shuffle"
)

var ErrBadOrder = errors.New("deck: order is not a permutation of the remaining cards")

// Deck pairs the plaintext order with ciphertexts in the same order. Draws
// advance a head index so the remaining cards keep their relative order.
type Deck struct {
	pub       *elgamal.PublicKey
	order     []cards.Card
	encrypted []elgamal.Ciphertext
	head      int
}

// New builds a 52-card deck, applies one bootstrap shuffle and encrypts every
// card under pub. The bootstrap order is expected to be replaced by Reorder
// before anything is dealt.
func New(pub *elgamal.PublicKey) (*Deck, error) {
	order := cards.FullDeck()
	rand.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	d := &Deck{pub: pub}
	if err := d.load(order); err != nil {
		return nil, err
	}
	return d, nil
}

// Order returns the remaining plaintext identifiers front to back.
func (d *Deck) Order() []int {
	rest := d.order[d.head:]
	out := make([]int, len(rest))
	for i, c := range rest {
		out[i] = int(c)
	}
	return out
}

// Reorder replaces the remaining cards with order and re-encrypts them with
// fresh randomness, so old ciphertexts cannot be matched to new positions.
func (d *Deck) Reorder(order []int) error {
	if !shuffle.IsBijection(d.Order(), order) {
		return ErrBadOrder
	}
	next := make([]cards.Card, len(order))
	for i, v := range order {
		next[i] = cards.Card(v)
	}
	return d.load(next)
}

func (d *Deck) load(order []cards.Card) error {
	encrypted := make([]elgamal.Ciphertext, len(order))
	for i, c := range order {
		ct, err := elgamal.Encrypt(d.pub, int64(c))
		if err != nil {
			return fmt.Errorf("deck: encrypt card %d: %w", i, err)
		}
		encrypted[i] = ct
	}
	d.order = order
	d.encrypted = encrypted
	d.head = 0
	return nil
}

// Draw removes the front card. ok is false when the deck is empty.
func (d *Deck) Draw() (ct elgamal.Ciphertext, ok bool) {
	if d.head >= len(d.encrypted) {
		return elgamal.Ciphertext{}, false
	}
	ct = d.encrypted[d.head]
	d.head++
	return ct, true
}

func (d *Deck) Len() int {
	return len(d.encrypted) - d.head
}
