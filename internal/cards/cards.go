package cards

import (
	"fmt"
	"strings"
)

// DeckSize is the number of distinct card identifiers in a deck.
const DeckSize = 52

type Suit int

const (
	Hearts Suit = iota
	Diamonds
	Clubs
	Spades
)

var suitNames = [...]string{"Hearts", "Diamonds", "Clubs", "Spades"}

func (s Suit) String() string {
	if s < Hearts || s > Spades {
		return "?"
	}
	return suitNames[s]
}

const (
	Ace   = 1
	Jack  = 11
	Queen = 12
	King  = 13
)

// Card is an identifier in [1,52]:
//   - rank = ((id-1) mod 13) + 1   (1=Ace … 13=King)
//   - suit = (id-1) div 13
type Card int

// New builds the identifier for a suit and rank.
func New(suit Suit, rank int) Card {
	return Card(int(suit)*13 + rank)
}

func (c Card) Valid() bool {
	return c >= 1 && c <= DeckSize
}

func (c Card) Rank() int {
	return (int(c)-1)%13 + 1
}

func (c Card) Suit() Suit {
	return Suit((int(c) - 1) / 13)
}

// Points is the deadwood value: Ace counts 1, face cards 10, others their rank.
func (c Card) Points() int {
	r := c.Rank()
	if r >= Jack {
		return 10
	}
	return r
}

func rankString(r int) string {
	switch r {
	case Ace:
		return "A"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	default:
		return fmt.Sprintf("%d", r)
	}
}

// String renders "<Suit> <Rank>", e.g. "Hearts A" or "Spades 10".
func (c Card) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Card(%d)", int(c))
	}
	return c.Suit().String() + " " + rankString(c.Rank())
}

// Parse is the inverse of Card.String.
func Parse(s string) (Card, error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid card %q", s)
	}

	suit := Suit(-1)
	for i, name := range suitNames {
		if strings.EqualFold(name, parts[0]) {
			suit = Suit(i)
			break
		}
	}
	if suit < 0 {
		return 0, fmt.Errorf("invalid suit %q", parts[0])
	}

	for r := Ace; r <= King; r++ {
		if strings.EqualFold(rankString(r), parts[1]) {
			return New(suit, r), nil
		}
	}
	return 0, fmt.Errorf("invalid rank %q", parts[1])
}

// MustParse panics on malformed input. Intended for fixtures.
func MustParse(s string) Card {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// FullDeck returns the canonical identifiers 1..52 in order.
func FullDeck() []Card {
	deck := make([]Card, DeckSize)
	for i := range deck {
		deck[i] = Card(i + 1)
	}
	return deck
}

// Strings renders cs in the "<Suit> <Rank>" form.
func Strings(cs []Card) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}
