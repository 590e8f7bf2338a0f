// Package vdf implements the time-lock stage of the airlock: a Wesolowski
// verifiable delay function over an RSA modulus. Computing a proof requires
// a prescribed number of sequential squarings; verifying one is cheap. For a
// flagged intent the enforced delay runs alongside guardian voting; if voting
// resolves first the job is bypassed, otherwise the intent proceeds once the
// delay has elapsed.
package vdf

import (
	"crypto/rand"
	"errors"
	"math/big"

	"golang.org/x/crypto/sha3"
)

var (
	// ErrNilChallenge is returned when Evaluate or Verify is given an empty
	// challenge.
	ErrNilChallenge = errors.New("vdf: nil challenge")
	// ErrZeroIterations is returned when T is zero.
	ErrZeroIterations = errors.New("vdf: zero iterations")
	// ErrInvalidProof is returned by Verify when a proof is structurally
	// malformed (missing fields) rather than merely failing the check.
	ErrInvalidProof = errors.New("vdf: invalid proof")
)

// Params holds the security parameters for a VDF instance: the squaring
// count T and the bit length of each prime factor of the RSA modulus N.
type Params struct {
	T      uint64
	Lambda uint64
}

// DefaultParams returns T=2^21 squarings at a 128-bit security parameter.
func DefaultParams() Params {
	return Params{T: 1 << 21, Lambda: 128}
}

// Proof is the output of one VDF evaluation: the challenge x, the result
// y = x^(2^T) mod N, and the Wesolowski witness pi that lets a verifier
// check the exponentiation without repeating it.
type Proof struct {
	Challenge  []byte
	Output     []byte
	Witness    []byte
	Iterations uint64
}

// IsZero reports whether p is the zero-proof sentinel used when a job is
// bypassed instead of completed.
func (p Proof) IsZero() bool {
	return p.Iterations == 0 && p.Witness == nil
}

// ZeroProof returns the sentinel proof for a bypassed job: a fixed-width
// zero output, no witness, and Iterations=0. Verify always rejects it.
func ZeroProof() Proof {
	return Proof{Output: make([]byte, 32), Witness: nil, Iterations: 0}
}

// Wesolowski evaluates and verifies time-lock puzzles against a single RSA
// modulus. One Wesolowski instance is shared by every job the engine runs.
type Wesolowski struct {
	n *big.Int
}

// NewWesolowski generates a fresh RSA modulus at the given security
// parameter. Each process should construct exactly one of these at startup;
// generating a new modulus per job would let a participant who learns its
// factorization forge proofs for that job only, but rotating moduli on every
// call defeats the point of a shared, externally-verifiable delay.
func NewWesolowski(lambda uint64) (*Wesolowski, error) {
	n, err := generateModulus(lambda)
	if err != nil {
		return nil, err
	}
	return &Wesolowski{n: n}, nil
}

// NewWesolowskiWithModulus builds an instance against an explicit modulus,
// used by tests that need a fixed, small N.
func NewWesolowskiWithModulus(n *big.Int) *Wesolowski {
	return &Wesolowski{n: new(big.Int).Set(n)}
}

// Modulus returns a copy of the RSA modulus in use.
func (w *Wesolowski) Modulus() *big.Int { return new(big.Int).Set(w.n) }

// Evaluate computes y = x^(2^T) mod N by T sequential squarings and derives
// the Wesolowski proof pi = x^q mod N where q = floor(2^T / l) and l is a
// Fiat-Shamir challenge prime hashed from x and y.
//
// progress, if non-nil, is invoked after every step squarings with the
// current iteration count, letting callers checkpoint and poll for
// cancellation without unwinding the big.Int state.
func (w *Wesolowski) Evaluate(challenge []byte, T uint64, step uint64, progress func(done uint64) (cancel bool)) (Proof, bool, error) {
	if len(challenge) == 0 {
		return Proof{}, false, ErrNilChallenge
	}
	if T == 0 {
		return Proof{}, false, ErrZeroIterations
	}
	if step == 0 {
		step = T
	}

	x := normalize(challenge, w.n)
	y := new(big.Int).Set(x)

	var i uint64
	for i = 0; i < T; i++ {
		y.Mul(y, y)
		y.Mod(y, w.n)
		if (i+1)%step == 0 && progress != nil {
			if progress(i + 1) {
				return Proof{}, true, nil
			}
		}
	}

	l := hashToPrime(x, y)
	pi := accumulateProof(x, T, l, w.n)

	return Proof{
		Challenge:  challenge,
		Output:     y.Bytes(),
		Witness:    pi.Bytes(),
		Iterations: T,
	}, false, nil
}

// Verify checks a Wesolowski proof: it recomputes l = HashToPrime(x, y) and
// r = 2^T mod l, then checks pi^l * x^r == y (mod N). A zero-proof (as
// produced for a bypassed job) always fails.
func (w *Wesolowski) Verify(p Proof) bool {
	if p.IsZero() {
		return false
	}
	if len(p.Challenge) == 0 || len(p.Output) == 0 || len(p.Witness) == 0 || p.Iterations == 0 {
		return false
	}

	x := normalize(p.Challenge, w.n)
	y := new(big.Int).SetBytes(p.Output)
	pi := new(big.Int).SetBytes(p.Witness)

	l := hashToPrime(x, y)

	two := big.NewInt(2)
	tBig := new(big.Int).SetUint64(p.Iterations)
	r := new(big.Int).Exp(two, tBig, l)

	piL := new(big.Int).Exp(pi, l, w.n)
	xR := new(big.Int).Exp(x, r, w.n)
	lhs := new(big.Int).Mul(piL, xR)
	lhs.Mod(lhs, w.n)

	return lhs.Cmp(y) == 0
}

// normalize reduces a challenge into [2, N) so that a zero or one input
// never degenerates the squaring chain.
func normalize(challenge []byte, n *big.Int) *big.Int {
	x := new(big.Int).SetBytes(challenge)
	x.Mod(x, n)
	if x.Cmp(big.NewInt(2)) < 0 {
		x.SetInt64(2)
	}
	return x
}

// hashToPrime derives the Fiat-Shamir challenge prime l from x and y by
// hashing their concatenation with SHA3-256 and walking forward to the next
// probable prime.
func hashToPrime(x, y *big.Int) *big.Int {
	h := sha3.Sum256(append(x.Bytes(), y.Bytes()...))
	candidate := new(big.Int).SetBytes(h[:])
	candidate.SetBit(candidate, 0, 1)
	for !candidate.ProbablyPrime(20) {
		candidate.Add(candidate, big.NewInt(2))
	}
	return candidate
}

// accumulateProof computes pi = x^q mod N where q = floor(2^T / l), tracking
// the quotient bits as it squares so that 2^T never needs to be formed
// explicitly.
func accumulateProof(x *big.Int, T uint64, l, n *big.Int) *big.Int {
	pi := big.NewInt(1)
	r := big.NewInt(1)
	two := big.NewInt(2)

	for i := uint64(0); i < T; i++ {
		r.Mul(r, two)
		pi.Mul(pi, pi)
		pi.Mod(pi, n)
		if r.Cmp(l) >= 0 {
			r.Sub(r, l)
			pi.Mul(pi, x)
			pi.Mod(pi, n)
		}
	}
	return pi
}

// generateModulus produces N = p*q for two random primes of the given
// bit-length. Production deployments should source N from an MPC ceremony
// so that no single party learns its factorization; this path is used for
// single-process deployments and tests.
func generateModulus(lambda uint64) (*big.Int, error) {
	bits := int(lambda)
	if bits < 64 {
		bits = 64
	}
	p, err := rand.Prime(rand.Reader, bits)
	if err != nil {
		return nil, err
	}
	q, err := rand.Prime(rand.Reader, bits)
	if err != nil {
		return nil, err
	}
	for p.Cmp(q) == 0 {
		if q, err = rand.Prime(rand.Reader, bits); err != nil {
			return nil, err
		}
	}
	return new(big.Int).Mul(p, q), nil
}
