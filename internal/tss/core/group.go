// Package core provides the discrete-log group arithmetic shared by the
// DKG and FROST signing packages: secp256k1 scalars and points, the
// domain-separation constants used across every hash-to-scalar call, and
// the Lagrange-interpolation helper used to combine Shamir shares.
package core

import (
	"crypto/rand"
	"errors"
	"sort"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/sha3"
)

// Domain-separation tags for every hash used by the threshold engine. Each
// protocol role gets its own tag so a transcript from one role can never be
// replayed as another.
const (
	DSTDkg     = "airlock/tss/v1/DKG"
	DSTSig     = "airlock/tss/v1/SIG"
	DSTBinding = "airlock/tss/v1/BINDING"
	DSTApp     = "airlock/app/v1/MSG"
)

var (
	ErrInvalidParams = errors.New("tss/core: invalid parameters")
	ErrInvalidShare  = errors.New("tss/core: invalid share")
	ErrInvalidPoint  = errors.New("tss/core: invalid point")
)

// RandScalar returns a cryptographically random, nonzero scalar mod the
// group order.
func RandScalar() (*secp256k1.ModNScalar, error) {
	for i := 0; i < 16; i++ {
		var buf [32]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return nil, err
		}
		var s secp256k1.ModNScalar
		overflow := s.SetBytes(&buf)
		if overflow == 0 && !s.IsZero() {
			return &s, nil
		}
	}
	return nil, errors.New("tss/core: failed to sample scalar")
}

// ScalarFromInt builds a scalar from a small non-negative integer, used for
// Shamir participant indices.
func ScalarFromInt(v int) *secp256k1.ModNScalar {
	var s secp256k1.ModNScalar
	s.SetInt(uint32(v))
	return &s
}

// HashToScalar derives a scalar deterministically from a domain tag and an
// arbitrary message, used for Fiat-Shamir challenges and FROST binding
// factors. It hashes dst||msg with SHA3-256 and reduces mod the group order.
func HashToScalar(dst string, msg ...[]byte) *secp256k1.ModNScalar {
	h := sha3.New256()
	h.Write([]byte(dst))
	for _, m := range msg {
		h.Write(m)
	}
	sum := h.Sum(nil)
	var buf [32]byte
	copy(buf[:], sum)
	var s secp256k1.ModNScalar
	s.SetBytes(&buf)
	return &s
}

// BasePoint returns g^k for scalar k, in affine coordinates as a compressed
// public key.
func BasePoint(k *secp256k1.ModNScalar) *secp256k1.PublicKey {
	var p secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(k, &p)
	p.ToAffine()
	return secp256k1.NewPublicKey(&p.X, &p.Y)
}

// ScalarMult returns k*P for an arbitrary point P.
func ScalarMult(k *secp256k1.ModNScalar, p *secp256k1.PublicKey) *secp256k1.PublicKey {
	var jp, result secp256k1.JacobianPoint
	p.AsJacobian(&jp)
	secp256k1.ScalarMultNonConst(k, &jp, &result)
	result.ToAffine()
	return secp256k1.NewPublicKey(&result.X, &result.Y)
}

// AddPoints returns P+Q.
func AddPoints(p, q *secp256k1.PublicKey) *secp256k1.PublicKey {
	var jp, jq, result secp256k1.JacobianPoint
	p.AsJacobian(&jp)
	q.AsJacobian(&jq)
	secp256k1.AddNonConst(&jp, &jq, &result)
	result.ToAffine()
	return secp256k1.NewPublicKey(&result.X, &result.Y)
}

// AddScalars returns a+b mod n.
func AddScalars(a, b *secp256k1.ModNScalar) *secp256k1.ModNScalar {
	var out secp256k1.ModNScalar
	out.Add2(a, b)
	return &out
}

// MulScalars returns a*b mod n.
func MulScalars(a, b *secp256k1.ModNScalar) *secp256k1.ModNScalar {
	var out secp256k1.ModNScalar
	out.Mul2(a, b)
	return &out
}

// NegScalar returns -a mod n.
func NegScalar(a *secp256k1.ModNScalar) *secp256k1.ModNScalar {
	out := new(secp256k1.ModNScalar).Set(a)
	out.Negate()
	return out
}

// SubScalars returns a-b mod n.
func SubScalars(a, b *secp256k1.ModNScalar) *secp256k1.ModNScalar {
	return AddScalars(a, NegScalar(b))
}

// InvScalar returns a^-1 mod n. a must be nonzero.
func InvScalar(a *secp256k1.ModNScalar) *secp256k1.ModNScalar {
	var out secp256k1.ModNScalar
	return out.InverseValNonConst(a)
}

// EvalPolynomial evaluates a polynomial with the given coefficients
// (constant term first) at x, used by a DKG dealer to derive per-participant
// shares from its secret polynomial.
func EvalPolynomial(coeffs []*secp256k1.ModNScalar, x int) (*secp256k1.ModNScalar, error) {
	if len(coeffs) == 0 || x <= 0 {
		return nil, ErrInvalidParams
	}
	xs := ScalarFromInt(x)
	acc := ScalarFromInt(0)
	pow := ScalarFromInt(1)
	for _, c := range coeffs {
		if c == nil {
			return nil, ErrInvalidParams
		}
		term := MulScalars(c, pow)
		acc = AddScalars(acc, term)
		pow = MulScalars(pow, xs)
	}
	return acc, nil
}

// CommitPolynomial returns the Feldman commitments C_j = g^{a_j} for each
// coefficient of a dealer's secret polynomial.
func CommitPolynomial(coeffs []*secp256k1.ModNScalar) ([]*secp256k1.PublicKey, error) {
	if len(coeffs) == 0 {
		return nil, ErrInvalidParams
	}
	out := make([]*secp256k1.PublicKey, 0, len(coeffs))
	for _, c := range coeffs {
		if c == nil {
			return nil, ErrInvalidParams
		}
		out = append(out, BasePoint(c))
	}
	return out, nil
}

// VerifyFeldmanShare checks that g^{share} == Σ C_j * x^j, i.e. that a share
// handed to participant x is consistent with the dealer's published
// commitments, without revealing the dealer's polynomial.
func VerifyFeldmanShare(share *secp256k1.ModNScalar, x int, commitments []*secp256k1.PublicKey) (bool, error) {
	if share == nil || x <= 0 || len(commitments) == 0 {
		return false, ErrInvalidParams
	}
	lhs := BasePoint(share)

	xs := ScalarFromInt(x)
	pow := ScalarFromInt(1)
	var rhs *secp256k1.PublicKey
	for _, c := range commitments {
		if c == nil {
			return false, ErrInvalidPoint
		}
		term := ScalarMult(pow, c)
		if rhs == nil {
			rhs = term
		} else {
			rhs = AddPoints(rhs, term)
		}
		pow = MulScalars(pow, xs)
	}
	return lhs.IsEqual(rhs), nil
}

// LagrangeAtZero computes λ_i(0), the Lagrange basis coefficient for
// participant i evaluated at x=0, given the full set of participant indices
// taking part in the combination.
func LagrangeAtZero(i int, indices []int) (*secp256k1.ModNScalar, error) {
	if i <= 0 || len(indices) == 0 {
		return nil, ErrInvalidParams
	}
	xi := ScalarFromInt(i)
	num := ScalarFromInt(1)
	den := ScalarFromInt(1)
	zero := ScalarFromInt(0)
	for _, j := range indices {
		if j == i {
			continue
		}
		if j <= 0 {
			return nil, ErrInvalidParams
		}
		xj := ScalarFromInt(j)
		num = MulScalars(num, SubScalars(zero, xj))
		den = MulScalars(den, SubScalars(xi, xj))
	}
	if den.IsZero() {
		return nil, ErrInvalidShare
	}
	return MulScalars(num, InvScalar(den)), nil
}

// CombineSharesAtZero combines Shamir shares (each tagged with its
// participant index) into the secret at x=0 via Lagrange interpolation.
// Shares are sorted by index and deduplicated before combination; the first
// k are used once at least k distinct indices are present.
func CombineSharesAtZero(shares map[int]*secp256k1.ModNScalar, k int) (*secp256k1.ModNScalar, error) {
	if k <= 0 || len(shares) < k {
		return nil, ErrInvalidParams
	}
	indices := make([]int, 0, len(shares))
	for idx := range shares {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	indices = indices[:k]

	acc := ScalarFromInt(0)
	for _, idx := range indices {
		coeff, err := LagrangeAtZero(idx, indices)
		if err != nil {
			return nil, err
		}
		acc = AddScalars(acc, MulScalars(shares[idx], coeff))
	}
	return acc, nil
}
