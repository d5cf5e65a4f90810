// Package elgamal implements ElGamal encryption of card identifiers over the
// multiplicative group of integers modulo a prime p.
//
// The private exponent is split into two shares x1, x2 with y = g^(x1*x2) mod p.
// Holding both shares decrypts directly (Decrypt); holding one share only lets
// a party take part in cooperative decryption (PartialDecrypt followed by the
// other share holder's CompleteDecrypt).
package elgamal

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"go.dedis.ch/kyber/v4/util/random"
)

// MinBits is the smallest accepted modulus size.
const MinBits = 256

var (
	one = big.NewInt(1)
	two = big.NewInt(2)
)

var (
	ErrKeySize        = errors.New("elgamal: modulus must be at least 256 bits")
	ErrMessageRange   = errors.New("elgamal: message must lie in [1, p-1]")
	ErrNotInvertible  = errors.New("elgamal: shared secret is not invertible mod p")
	ErrMalformedInput = errors.New("elgamal: malformed ciphertext")
)

// PublicKey is the triple (p, g, y).
type PublicKey struct {
	P *big.Int `json:"p"`
	G *big.Int `json:"g"`
	Y *big.Int `json:"y"`
}

// PrivatePair holds the two secret exponents. Their product is the effective
// decryption exponent.
type PrivatePair struct {
	X1 *big.Int
	X2 *big.Int
}

type Ciphertext struct {
	C1 *big.Int `json:"c1"`
	C2 *big.Int `json:"c2"`
}

// GenerateKeys draws a prime p of the given size, a generator g in [2, p-1]
// and two exponents in [1, p-2]. The only failure mode is the entropy source.
func GenerateKeys(bits int) (*PublicKey, *PrivatePair, error) {
	if bits < MinBits {
		return nil, nil, ErrKeySize
	}

	p, err := rand.Prime(rand.Reader, bits)
	if err != nil {
		return nil, nil, fmt.Errorf("elgamal: generate prime: %w", err)
	}

	stream := random.New()
	g := sampleRange(p, two, stream)
	x1 := sampleExponent(p, stream)
	x2 := sampleExponent(p, stream)

	pub := &PublicKey{
		P: p,
		G: g,
		Y: new(big.Int).Exp(g, exponent(p, x1, x2), p),
	}
	return pub, &PrivatePair{X1: x1, X2: x2}, nil
}

// Encrypt computes (g^k, m*y^k) mod p with a fresh ephemeral k per call.
func Encrypt(pub *PublicKey, m int64) (Ciphertext, error) {
	msg := big.NewInt(m)
	pMinus1 := new(big.Int).Sub(pub.P, one)
	if msg.Sign() <= 0 || msg.Cmp(pMinus1) > 0 {
		return Ciphertext{}, ErrMessageRange
	}

	k := sampleExponent(pub.P, random.New())
	c1 := new(big.Int).Exp(pub.G, k, pub.P)
	c2 := new(big.Int).Exp(pub.Y, k, pub.P)
	c2.Mul(c2, msg).Mod(c2, pub.P)

	return Ciphertext{C1: c1, C2: c2}, nil
}

// Decrypt recovers m = c2 * (c1^(x1*x2))^-1 mod p using both shares.
func Decrypt(ct Ciphertext, priv *PrivatePair, pub *PublicKey) (int64, error) {
	if err := ct.check(pub); err != nil {
		return 0, err
	}
	s := new(big.Int).Exp(ct.C1, exponent(pub.P, priv.X1, priv.X2), pub.P)
	return unblind(ct, s, pub)
}

// PartialDecrypt applies one share to c1. The result reveals nothing about the
// plaintext without the other share.
func PartialDecrypt(ct Ciphertext, share *big.Int, pub *PublicKey) (*big.Int, error) {
	if err := ct.check(pub); err != nil {
		return nil, err
	}
	return new(big.Int).Exp(ct.C1, share, pub.P), nil
}

// CompleteDecrypt raises a partial decryption produced with the other share to
// this share and unblinds c2.
func CompleteDecrypt(ct Ciphertext, partial, share *big.Int, pub *PublicKey) (int64, error) {
	if err := ct.check(pub); err != nil {
		return 0, err
	}
	if partial == nil || partial.Sign() <= 0 || partial.Cmp(pub.P) >= 0 {
		return 0, ErrMalformedInput
	}
	s := new(big.Int).Exp(partial, share, pub.P)
	return unblind(ct, s, pub)
}

func unblind(ct Ciphertext, s *big.Int, pub *PublicKey) (int64, error) {
	inv := new(big.Int).ModInverse(s, pub.P)
	if inv == nil {
		return 0, ErrNotInvertible
	}
	m := inv.Mul(inv, ct.C2)
	m.Mod(m, pub.P)
	if !m.IsInt64() {
		return 0, ErrMessageRange
	}
	return m.Int64(), nil
}

func (ct Ciphertext) check(pub *PublicKey) error {
	if ct.C1 == nil || ct.C2 == nil {
		return ErrMalformedInput
	}
	if ct.C1.Sign() <= 0 || ct.C1.Cmp(pub.P) >= 0 || ct.C2.Sign() <= 0 || ct.C2.Cmp(pub.P) >= 0 {
		return ErrMalformedInput
	}
	return nil
}

// Equal reports whether two ciphertexts are component-wise identical.
func (ct Ciphertext) Equal(other Ciphertext) bool {
	if ct.C1 == nil || other.C1 == nil || ct.C2 == nil || other.C2 == nil {
		return false
	}
	return ct.C1.Cmp(other.C1) == 0 && ct.C2.Cmp(other.C2) == 0
}

// Bytes is a length-prefixed encoding of (c1, c2), stable for hashing.
func (ct Ciphertext) Bytes() []byte {
	c1, c2 := ct.C1.Bytes(), ct.C2.Bytes()
	out := make([]byte, 0, 8+len(c1)+len(c2))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(c1)))
	out = append(out, c1...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(c2)))
	out = append(out, c2...)
	return out
}

// exponent returns x1*x2 reduced mod p-1, which leaves g^e unchanged for any
// base coprime to p.
func exponent(p, x1, x2 *big.Int) *big.Int {
	order := new(big.Int).Sub(p, one)
	e := new(big.Int).Mul(x1, x2)
	return e.Mod(e, order)
}

// sampleExponent draws uniformly from [1, p-2].
func sampleExponent(p *big.Int, stream cipher.Stream) *big.Int {
	return sampleRange(p, one, stream)
}

// sampleRange draws uniformly from the p-2 consecutive integers starting at lo.
func sampleRange(p, lo *big.Int, stream cipher.Stream) *big.Int {
	span := new(big.Int).Sub(p, two)
	v := random.Int(span, stream)
	return v.Add(v, lo)
}
