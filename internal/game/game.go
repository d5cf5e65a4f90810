// Package game sequences a two-player gin rummy match over an encrypted deck.
//
// A Game is an explicit instance handle. Every transition takes the instance
// lock, so transitions on one game never interleave while independent games
// proceed concurrently.
package game

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"mental-gin-backend/internal/cards"
	"mental-gin-backend/internal/commitment"
	"mental-gin-backend/internal/deadwood"
	"mental-gin-backend/internal/deck"
	"mental-gin-backend/internal/elgamal"
	"mental-gin-backend/internal/shuffle"
)

const DefaultTargetScore = 100

type Phase string

const (
	AwaitingDraw    Phase = "awaiting_draw"
	AwaitingDiscard Phase = "awaiting_discard"
	RoundOver       Phase = "round_over"
	GameOver        Phase = "game_over"
)

type Source string

const (
	Stock       Source = "stock"
	DiscardPile Source = "discard"
)

type Options struct {
	// Rounds is the number of cut-and-choose rounds per player.
	Rounds      int
	KeyBits     int
	TargetScore int
	// AutoKnock lets CheckForWinner end a round at knockable deadwood, not
	// only at gin.
	AutoKnock bool
	// ShuffleOptions are passed to every shuffle run.
	ShuffleOptions []shuffle.Option
}

func (o Options) withDefaults() Options {
	if o.Rounds <= 0 {
		o.Rounds = shuffle.DefaultRounds
	}
	if o.KeyBits == 0 {
		o.KeyBits = elgamal.MinBits
	}
	if o.TargetScore <= 0 {
		o.TargetScore = DefaultTargetScore
	}
	return o
}

type proveFunc func(t *commitment.Table, card []byte) (commitment.Proof, error)

type Game struct {
	mu sync.Mutex

	opts    Options
	pub     *elgamal.PublicKey
	players map[PlayerID]*Player

	deck        *deck.Deck
	discard     *elgamal.Ciphertext
	discardCard cards.Card

	turn    PlayerID
	pending PlayerID
	phase   Phase
	round   int
	scores  map[PlayerID]int

	transcripts []shuffle.Transcript
	lastResult  *RoundResult
	result      *GameResult

	prove proveFunc
}

// New generates the game keys, hands one share to each player and deals the
// first round. A failed shuffle is returned with FatalSetup severity.
func New(opts Options) (*Game, error) {
	opts = opts.withDefaults()

	pub, priv, err := elgamal.GenerateKeys(opts.KeyBits)
	if err != nil {
		return nil, ErrKeySetup.wrap(err)
	}

	g := &Game{
		opts: opts,
		pub:  pub,
		players: map[PlayerID]*Player{
			Player1: newPlayer(Player1, "Player 1", pub, priv.X1),
			Player2: newPlayer(Player2, "Player 2", pub, priv.X2),
		},
		scores: map[PlayerID]int{Player1: 0, Player2: 0},
		prove: func(t *commitment.Table, card []byte) (commitment.Proof, error) {
			return t.Prove(card)
		},
	}
	if err := g.resetLocked(true); err != nil {
		return nil, err
	}
	return g, nil
}

// Draw takes a card from the stock or the discard pile. pending is claimed
// before anything can fail and released on every failure path.
func (g *Game) Draw(id PlayerID, source Source) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, err := g.playerLocked(id)
	if err != nil {
		return "", err
	}
	if err := g.playingLocked(); err != nil {
		return "", err
	}
	if g.turn != id {
		return "", ErrNotYourTurn
	}
	if g.pending != "" {
		return "", ErrMustDiscardFirst
	}

	g.pending = id

	var ct elgamal.Ciphertext
	switch source {
	case Stock:
		var ok bool
		if ct, ok = g.deck.Draw(); !ok {
			g.pending = ""
			return "", ErrNoCardsLeft
		}
	case DiscardPile:
		if g.discard == nil {
			g.pending = ""
			return "", ErrDiscardEmpty
		}
		ct = *g.discard
		g.discard, g.discardCard = nil, 0
	default:
		g.pending = ""
		return "", ErrInvalidSource
	}

	p.receive(ct)
	g.phase = AwaitingDiscard
	return fmt.Sprintf("%s drew a card from %s", id, source), nil
}

// Discard commits to the whole hand, proves the chosen card against the
// commitments and only then moves it to the discard pile.
func (g *Game) Discard(id PlayerID, index int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.discardLocked(id, index)
}

// DiscardAndCheck discards and then resolves an implicit win in the same
// critical section, so no other transition can land in between.
func (g *Game) DiscardAndCheck(id PlayerID, index int) (string, *RoundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	msg, err := g.discardLocked(id, index)
	if err != nil {
		return "", nil, err
	}
	result, err := g.checkWinnerLocked(id)
	if err != nil {
		return "", nil, err
	}
	return msg, result, nil
}

func (g *Game) discardLocked(id PlayerID, index int) (string, error) {
	p, err := g.playerLocked(id)
	if err != nil {
		return "", err
	}
	if err := g.playingLocked(); err != nil {
		return "", err
	}
	if g.pending != id {
		return "", ErrMustDrawFirst
	}
	if index < 0 || index >= len(p.hand) {
		return "", ErrInvalidIndex
	}

	encoded := make([][]byte, len(p.hand))
	for i, ct := range p.hand {
		encoded[i] = ct.Bytes()
	}
	table, err := commitment.CommitHand(encoded)
	if err != nil {
		return "", ErrDiscardValidation.wrap(err)
	}
	proof, err := g.prove(table, encoded[index])
	if err != nil {
		return "", ErrCardNotCommitted.wrap(err)
	}
	if !table.Verify(proof) {
		return "", ErrDiscardValidation
	}

	card, err := g.revealLocked(id, p.hand[index])
	if err != nil {
		return "", err
	}

	ct := p.remove(index)
	g.discard, g.discardCard = &ct, card
	g.pending = ""
	g.turn = id.Opponent()
	g.phase = AwaitingDraw
	return fmt.Sprintf("%s discarded a card", id), nil
}

// Knock ends the round for id. It is refused while the opponent is between
// draw and discard.
func (g *Game) Knock(id PlayerID) (*RoundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := g.playerLocked(id); err != nil {
		return nil, err
	}
	if err := g.playingLocked(); err != nil {
		return nil, err
	}
	if g.pending == id.Opponent() {
		return nil, ErrNotYourTurn
	}

	knocker, err := g.analyzeLocked(id)
	if err != nil {
		return nil, err
	}
	if knocker.Deadwood > KnockLimit {
		return nil, ErrDeadwoodTooHigh
	}
	return g.settleLocked(id, knocker)
}

// CheckForWinner resolves the round without an explicit knock when id's hand
// is already gin, or knockable when AutoKnock is set. It returns nil when the
// round goes on, including while the opponent is between draw and discard.
func (g *Game) CheckForWinner(id PlayerID) (*RoundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.checkWinnerLocked(id)
}

func (g *Game) checkWinnerLocked(id PlayerID) (*RoundResult, error) {
	if _, err := g.playerLocked(id); err != nil {
		return nil, err
	}
	if g.phase == RoundOver || g.phase == GameOver {
		return nil, nil
	}
	if g.pending == id.Opponent() {
		return nil, nil
	}

	a, err := g.analyzeLocked(id)
	if err != nil {
		return nil, err
	}
	if a.Deadwood == 0 || (g.opts.AutoKnock && a.Deadwood <= KnockLimit) {
		return g.settleLocked(id, a)
	}
	return nil, nil
}

// CheckGameOver ends the game once the best score reaches the target. Ties go
// to player1.
func (g *Game) CheckGameOver() *GameResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.result != nil {
		r := *g.result
		return &r
	}

	var best *GameResult
	for _, id := range Seats {
		s := g.scores[id]
		if s < g.opts.TargetScore {
			continue
		}
		if best == nil || s > best.Score {
			best = &GameResult{Winner: id, Score: s}
		}
	}
	if best == nil {
		return nil
	}

	g.result = best
	g.phase = GameOver
	r := *best
	return &r
}

// ResetRound deals a fresh round. resetScores starts a new game on the same
// instance; without it a finished game cannot be continued. On failure the
// previous state is left untouched.
func (g *Game) ResetRound(resetScores bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !resetScores && g.phase == GameOver {
		return ErrGameOver
	}
	return g.resetLocked(resetScores)
}

func (g *Game) resetLocked(resetScores bool) error {
	d, err := deck.New(g.pub)
	if err != nil {
		return ErrShuffleFailed.wrap(err)
	}

	seats := make([]string, len(Seats))
	for i, id := range Seats {
		seats[i] = string(id)
	}
	order, transcripts, err := shuffle.Run(d.Order(), g.opts.Rounds, seats, g.opts.ShuffleOptions...)
	if err != nil {
		return ErrShuffleFailed.wrap(err)
	}
	if err := d.Reorder(order); err != nil {
		return ErrShuffleFailed.wrap(err)
	}

	hands := map[PlayerID][]elgamal.Ciphertext{}
	for range HandSize {
		for _, id := range Seats {
			ct, _ := d.Draw()
			hands[id] = append(hands[id], ct)
		}
	}
	top, _ := d.Draw()
	topCard, err := g.revealLocked(Player1, top)
	if err != nil {
		return err
	}

	for _, id := range Seats {
		g.players[id].hand = hands[id]
	}
	g.deck = d
	g.discard, g.discardCard = &top, topCard
	g.turn = Player1
	g.pending = ""
	g.phase = AwaitingDraw
	g.transcripts = transcripts
	g.lastResult = nil
	if resetScores {
		g.scores = map[PlayerID]int{Player1: 0, Player2: 0}
		g.result = nil
		g.round = 0
	}
	g.round++
	return nil
}

// MoveCard reorders id's hand. It has no protocol effect.
func (g *Game) MoveCard(id PlayerID, from, to int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, err := g.playerLocked(id)
	if err != nil {
		return err
	}
	if !p.move(from, to) {
		return ErrInvalidIndex
	}
	return nil
}

// Snapshot is one player's view of the table. The opponent's hand is a count.
type Snapshot struct {
	Message       string
	Phase         Phase
	Round         int
	DeckSize      int
	Turn          PlayerID
	Pending       PlayerID
	Hand          []cards.Card
	OpponentCount int
	DiscardTop    cards.Card
	Scores        map[PlayerID]int
}

// View builds id's snapshot, revealing only id's own cards.
func (g *Game) View(id PlayerID, message string) (Snapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := g.playerLocked(id); err != nil {
		return Snapshot{}, err
	}
	hand, err := g.handLocked(id)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Message:       message,
		Phase:         g.phase,
		Round:         g.round,
		DeckSize:      g.deck.Len(),
		Turn:          g.turn,
		Pending:       g.pending,
		Hand:          hand,
		OpponentCount: g.players[id.Opponent()].HandSize(),
		DiscardTop:    g.discardCard,
		Scores:        maps.Clone(g.scores),
	}, nil
}

// HandValues reveals id's hand in hand order.
func (g *Game) HandValues(id PlayerID) ([]cards.Card, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := g.playerLocked(id); err != nil {
		return nil, err
	}
	return g.handLocked(id)
}

func (g *Game) Turn() PlayerID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.turn
}

func (g *Game) Pending() PlayerID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending
}

func (g *Game) Phase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

func (g *Game) Round() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.round
}

func (g *Game) Scores() map[PlayerID]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return maps.Clone(g.scores)
}

func (g *Game) DeckSize() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.deck.Len()
}

// DiscardTop returns the revealed discard pile card, if any.
func (g *Game) DiscardTop() (cards.Card, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.discardCard, g.discard != nil
}

func (g *Game) HandSize(id PlayerID) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.players[id]; ok {
		return p.HandSize()
	}
	return 0
}

func (g *Game) PublicKey() *elgamal.PublicKey {
	return g.pub
}

// Transcripts returns the shuffle summaries of the current round.
func (g *Game) Transcripts() []shuffle.Transcript {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.transcripts)
}

func (g *Game) LastResult() *RoundResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastResult == nil {
		return nil
	}
	r := *g.lastResult
	return &r
}

func (g *Game) playerLocked(id PlayerID) (*Player, error) {
	p, ok := g.players[id]
	if !ok {
		return nil, ErrUnknownPlayer
	}
	return p, nil
}

func (g *Game) playingLocked() error {
	switch g.phase {
	case RoundOver:
		return ErrRoundOver
	case GameOver:
		return ErrGameOver
	}
	return nil
}

// revealLocked decrypts a card for owner: the opponent applies its share
// first, then the owner completes.
func (g *Game) revealLocked(owner PlayerID, ct elgamal.Ciphertext) (cards.Card, error) {
	partial, err := g.players[owner.Opponent()].Partial(ct)
	if err != nil {
		return 0, ErrRevealFailed.wrap(err)
	}
	c, err := g.players[owner].Complete(ct, partial)
	if err != nil {
		return 0, ErrRevealFailed.wrap(err)
	}
	return c, nil
}

func (g *Game) handLocked(id PlayerID) ([]cards.Card, error) {
	p := g.players[id]
	out := make([]cards.Card, len(p.hand))
	for i, ct := range p.hand {
		c, err := g.revealLocked(id, ct)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func (g *Game) analyzeLocked(id PlayerID) (deadwood.Result, error) {
	hand, err := g.handLocked(id)
	if err != nil {
		return deadwood.Result{}, err
	}
	r, err := deadwood.Analyze(hand)
	if err != nil {
		return deadwood.Result{}, ErrRevealFailed.wrap(err)
	}
	return r, nil
}

// settleLocked scores a knock by id and closes the round. Pending and turn are
// left as they were.
func (g *Game) settleLocked(id PlayerID, knocker deadwood.Result) (*RoundResult, error) {
	defender, err := g.analyzeLocked(id.Opponent())
	if err != nil {
		return nil, err
	}

	r := Settle(id, knocker.Deadwood, defender.Deadwood, g.players[id].HandSize())
	r.Round = g.round
	r.Melds = knocker.Melds
	g.scores[r.Winner] += r.Points
	g.phase = RoundOver
	g.lastResult = &r

	out := r
	return &out, nil
}
