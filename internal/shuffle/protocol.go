// Package shuffle implements the cut-and-choose deck shuffle.
//
// In each round the prover commits to two chained permutations of the input,
// the verifier picks one of them at random, and the prover opens only that one.
// The ordering carried into the next round is the one the verifier never saw
// fully derived from data it holds. A prover that wants to bias the outcome
// has to predict every challenge bit in advance.
package shuffle

import (
	"crypto/rand"
	"errors"
	"fmt"
	"slices"

	"mental-gin-backend/internal/commitment"
)

var (
	// ErrRoundFailed marks a round whose opening did not match its commitment.
	ErrRoundFailed  = errors.New("shuffle: round verification failed")
	ErrBadChallenge = errors.New("shuffle: challenge bit must be 0 or 1")
)

// Commitments are what the prover publishes before the challenge.
type Commitments struct {
	First  commitment.Digest
	Second commitment.Digest
}

// Reveal opens one of the two permutations. Source is the ordering the
// mapping was derived from: the round input for bit 0, the first permutation
// for bit 1.
type Reveal struct {
	Bit     uint8
	Source  []int
	Mapping []int
	Seed    []byte
}

// Prover holds one round's secrets.
type Prover struct {
	input  []int
	seed1  []byte
	seed2  []byte
	perm1  []int
	perm2  []int
	commit Commitments
}

// NewProver draws two seeds and builds both permutations for input.
func NewProver(input []int) (*Prover, error) {
	seed1, err := newSeed()
	if err != nil {
		return nil, err
	}
	seed2, err := newSeed()
	if err != nil {
		return nil, err
	}

	p := &Prover{
		input: slices.Clone(input),
		seed1: seed1,
		seed2: seed2,
	}
	p.perm1 = Permute(p.input, seed1)
	p.perm2 = Permute(p.perm1, seed2)
	p.commit = Commitments{
		First:  commit(p.perm1, seed1),
		Second: commit(p.perm2, seed2),
	}
	return p, nil
}

func (p *Prover) Commitments() Commitments {
	return p.commit
}

// Reveal opens the permutation selected by bit and nothing else.
func (p *Prover) Reveal(bit uint8) (Reveal, error) {
	switch bit {
	case 0:
		return Reveal{
			Bit:     0,
			Source:  slices.Clone(p.input),
			Mapping: slices.Clone(p.perm1),
			Seed:    slices.Clone(p.seed1),
		}, nil
	case 1:
		return Reveal{
			Bit:     1,
			Source:  slices.Clone(p.perm1),
			Mapping: slices.Clone(p.perm2),
			Seed:    slices.Clone(p.seed2),
		}, nil
	}
	return Reveal{}, ErrBadChallenge
}

// Next is the ordering carried into the following round.
func (p *Prover) Next(bit uint8) []int {
	if bit == 0 {
		return slices.Clone(p.perm1)
	}
	return slices.Clone(p.perm2)
}

// Verifier checks a single round against the input it was shown.
type Verifier struct {
	input  []int
	commit Commitments
	bit    uint8
	issued bool
}

func NewVerifier(input []int, c Commitments) *Verifier {
	return &Verifier{input: slices.Clone(input), commit: c}
}

// Challenge draws the challenge bit from crypto/rand.
func (v *Verifier) Challenge() (uint8, error) {
	var b [1]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("shuffle: read challenge: %w", err)
	}
	v.bit = b[0] & 1
	v.issued = true
	return v.bit, nil
}

// Verify recomputes the opened permutation from its source and seed and
// compares it with both the revealed mapping and the matching commitment.
func (v *Verifier) Verify(r Reveal) bool {
	if !v.issued || r.Bit != v.bit {
		return false
	}

	want := v.commit.First
	if r.Bit == 0 {
		if !slices.Equal(r.Source, v.input) {
			return false
		}
	} else {
		want = v.commit.Second
		if !IsBijection(v.input, r.Source) {
			return false
		}
	}

	recomputed := Permute(r.Source, r.Seed)
	if !slices.Equal(recomputed, r.Mapping) {
		return false
	}
	return commitment.Open(want, encode(recomputed), r.Seed)
}

func newSeed() ([]byte, error) {
	seed := make([]byte, SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("shuffle: read seed: %w", err)
	}
	return seed, nil
}
