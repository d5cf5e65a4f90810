package shuffle

import (
	"encoding/binary"
	"io"
	"math"
	"slices"

	"golang.org/x/crypto/sha3"

	"mental-gin-backend/internal/commitment"
)

// SeedSize is the length of every prover seed.
const SeedSize = 32

var permDomain = []byte("mental-gin|permute|v1|")

// Permute returns a copy of deck shuffled by Fisher-Yates, driven by a
// SHAKE-256 stream keyed with seed. The same (deck, seed) always gives the
// same output.
func Permute(deck []int, seed []byte) []int {
	out := slices.Clone(deck)

	xof := sha3.NewShake256()
	xof.Write(permDomain)
	xof.Write(seed)

	for i := len(out) - 1; i > 0; i-- {
		j := uniform(xof, uint64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// uniform draws from [0, n) without modulo bias.
func uniform(r io.Reader, n uint64) uint64 {
	limit := math.MaxUint64 - math.MaxUint64%n
	var buf [8]byte
	for {
		io.ReadFull(r, buf[:])
		v := binary.LittleEndian.Uint64(buf[:])
		if v < limit {
			return v % n
		}
	}
}

// commit hashes an ordering together with the seed that produced it.
func commit(perm []int, seed []byte) commitment.Digest {
	return commitment.Commit(encode(perm), seed)
}

func encode(perm []int) []byte {
	out := make([]byte, 0, 4+4*len(perm))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(perm)))
	for _, v := range perm {
		out = binary.LittleEndian.AppendUint32(out, uint32(v))
	}
	return out
}

// IsBijection reports whether got holds exactly the elements of want.
func IsBijection(want, got []int) bool {
	if len(want) != len(got) {
		return false
	}
	counts := make(map[int]int, len(want))
	for _, v := range want {
		counts[v]++
	}
	for _, v := range got {
		counts[v]--
		if counts[v] < 0 {
			return false
		}
	}
	return true
}
