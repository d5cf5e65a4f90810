package shuffle

import (
	"fmt"
	"slices"

	"github.com/pkg/errors"
)

// DefaultRounds is the number of cut-and-choose rounds each party runs.
const DefaultRounds = 100

// Transcript summarises one party's run.
type Transcript struct {
	Party  string `json:"party"`
	Rounds int    `json:"rounds"`
	Zeros  int    `json:"zeros"`
	Ones   int    `json:"ones"`
	// Final is the commitment that covered the ordering handed on by the last round.
	Final string `json:"final"`
}

// RevealHook sees every opening before it reaches the verifier.
type RevealHook func(round int, r *Reveal)

type options struct {
	party string
	hook  RevealHook
}

type Option func(*options)

func WithParty(name string) Option {
	return func(o *options) { o.party = name }
}

// WithRevealHook lets the caller inspect or alter openings in flight.
func WithRevealHook(h RevealHook) Option {
	return func(o *options) { o.hook = h }
}

// RunParty runs rounds cut-and-choose rounds over deck. Any failed round aborts
// the run with ErrRoundFailed; there are no retries.
func RunParty(deck []int, rounds int, opts ...Option) ([]int, Transcript, error) {
	o := options{party: "party"}
	for _, opt := range opts {
		opt(&o)
	}

	tr := Transcript{Party: o.party}
	if rounds <= 0 {
		return nil, tr, fmt.Errorf("shuffle: rounds must be positive, got %d", rounds)
	}

	current := slices.Clone(deck)
	for i := 1; i <= rounds; i++ {
		prover, err := NewProver(current)
		if err != nil {
			return nil, tr, err
		}
		c := prover.Commitments()

		verifier := NewVerifier(current, c)
		bit, err := verifier.Challenge()
		if err != nil {
			return nil, tr, err
		}

		reveal, err := prover.Reveal(bit)
		if err != nil {
			return nil, tr, err
		}
		if o.hook != nil {
			o.hook(i, &reveal)
		}
		if !verifier.Verify(reveal) {
			return nil, tr, fmt.Errorf("%w: %s round %d", ErrRoundFailed, o.party, i)
		}

		current = prover.Next(bit)
		tr.Rounds++
		if bit == 0 {
			tr.Zeros++
			tr.Final = c.First.String()
		} else {
			tr.Ones++
			tr.Final = c.Second.String()
		}
	}
	return current, tr, nil
}

// Run chains one RunParty per party, each starting from the previous party's
// output. A failure from any party is fatal for the whole shuffle.
func Run(deck []int, rounds int, parties []string, opts ...Option) ([]int, []Transcript, error) {
	current := slices.Clone(deck)
	transcripts := make([]Transcript, 0, len(parties))

	for _, party := range parties {
		partyOpts := append(slices.Clone(opts), WithParty(party))
		next, tr, err := RunParty(current, rounds, partyOpts...)
		if err != nil {
			return nil, transcripts, errors.Wrapf(err, "secure shuffle by %s", party)
		}
		transcripts = append(transcripts, tr)
		current = next
	}
	return current, transcripts, nil
}
