package game

import (
	"mental-gin-backend/internal/cards"
	"mental-gin-backend/internal/commitment"
	"mental-gin-backend/internal/elgamal"
)

// SetHandForTest replaces id's hand with freshly encrypted cards.
func (g *Game) SetHandForTest(id PlayerID, hand []cards.Card) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	cts := make([]elgamal.Ciphertext, len(hand))
	for i, c := range hand {
		ct, err := elgamal.Encrypt(g.pub, int64(c))
		if err != nil {
			return err
		}
		cts[i] = ct
	}
	g.players[id].hand = cts
	return nil
}

func (g *Game) SetProveForTest(f func(t *commitment.Table, card []byte) (commitment.Proof, error)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prove = f
}

func (g *Game) ClearDiscardForTest() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.discard, g.discardCard = nil, 0
}

func (g *Game) DrainStockForTest() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for {
		if _, ok := g.deck.Draw(); !ok {
			return
		}
	}
}
