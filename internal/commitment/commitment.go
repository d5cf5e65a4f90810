// Package commitment provides salted SHA-256 commitments and the hand
// commitment table used to back a discard with a reveal.
package commitment

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// SaltSize is the number of random bytes mixed into every commitment.
const SaltSize = 16

var domain = []byte("mental-gin|commit|v1|")

type Digest [sha256.Size]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// NewSalt reads SaltSize bytes from crypto/rand.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("commitment: read salt: %w", err)
	}
	return salt, nil
}

// Commit binds value and salt. Both are length-prefixed so that no
// (value, salt) pair can collide with a different split of the same bytes.
func Commit(value, salt []byte) Digest {
	h := sha256.New()
	h.Write(domain)
	writeLenBytes(h, value)
	writeLenBytes(h, salt)

	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// Open reports whether (value, salt) reproduces the digest.
func Open(d Digest, value, salt []byte) bool {
	got := Commit(value, salt)
	return subtle.ConstantTimeCompare(got[:], d[:]) == 1
}

func writeLenBytes(h interface{ Write([]byte) (int, error) }, b []byte) {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(b)))
	h.Write(n[:])
	h.Write(b)
}
