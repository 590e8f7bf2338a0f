// Package sign implements two-round FROST-style Schnorr threshold signing
// over secp256k1: each participating guardian commits to a pair of nonces,
// then emits a signature share once it has seen every other participant's
// commitments; any t of the n shares combine into a single Schnorr
// signature verifiable against the group's public key alone.
package sign

import (
	"errors"
	"sort"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/zmlAEQ/airlock-core/internal/tss/core"
)

var (
	// ErrInsufficientParticipants is returned when fewer than t guardians
	// provided nonce commitments or signature shares.
	ErrInsufficientParticipants = errors.New("sign: insufficient participants")
	// ErrInvalidShare is returned when a signature share fails its
	// per-participant verification check during aggregation.
	ErrInvalidShare = errors.New("sign: invalid signature share")
	// ErrDuplicateSlot is returned when CommitNonces is called twice for
	// the same signing slot by the same session.
	ErrDuplicateSlot = errors.New("sign: duplicate nonce commitment for slot")
)

// NonceCommitment is one guardian's first-round output: the two EC points
// D=g^d and E=g^e it will later bind into its signature share.
type NonceCommitment struct {
	Index int
	D, E  *secp256k1.PublicKey
}

// nonceSecret is the private counterpart to a NonceCommitment, held only by
// the guardian that generated it.
type nonceSecret struct {
	d, e *secp256k1.ModNScalar
}

// Signature is a combined Schnorr signature: the aggregated nonce point R
// and the aggregated response scalar z, satisfying g^z = R + c·PK where
// c = H(R, PK, msg).
type Signature struct {
	R *secp256k1.PublicKey
	Z *secp256k1.ModNScalar
}

// Session tracks one signing round for one message: which slots have
// already committed nonces (duplicate-slot rejection), the nonce secrets
// this process is responsible for, and the group parameters needed to
// verify and combine shares.
type Session struct {
	GroupPK *secp256k1.PublicKey
	T       int

	used    map[int]bool
	secrets map[int]nonceSecret
}

// NewSession starts a signing session against the given group public key
// and threshold.
func NewSession(groupPK *secp256k1.PublicKey, t int) *Session {
	return &Session{
		GroupPK: groupPK,
		T:       t,
		used:    make(map[int]bool),
		secrets: make(map[int]nonceSecret),
	}
}

// CommitNonces runs round 1 for guardian `index`: it samples two fresh
// nonces and returns their public commitments. Calling it twice for the
// same index within one session is rejected — a guardian must never reuse
// or double-commit a nonce pair, since doing so leaks its long-term share.
func (s *Session) CommitNonces(index int) (NonceCommitment, error) {
	if s.used[index] {
		return NonceCommitment{}, ErrDuplicateSlot
	}
	d, err := core.RandScalar()
	if err != nil {
		return NonceCommitment{}, err
	}
	e, err := core.RandScalar()
	if err != nil {
		return NonceCommitment{}, err
	}
	s.used[index] = true
	s.secrets[index] = nonceSecret{d: d, e: e}

	return NonceCommitment{
		Index: index,
		D:     core.BasePoint(d),
		E:     core.BasePoint(e),
	}, nil
}

// bindingFactor computes rho_i = H(index, msg, B) where B is the full,
// canonically-sorted set of round-1 commitments. Folding the whole
// commitment list into every participant's binding factor (rather than just
// its own pair) is what makes FROST's aggregate nonce unforgeable under
// concurrent sessions.
func bindingFactor(index int, msg []byte, commitments []NonceCommitment) *secp256k1.ModNScalar {
	sorted := make([]NonceCommitment, len(commitments))
	copy(sorted, commitments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	buf := []byte{byte(index)}
	buf = append(buf, msg...)
	for _, c := range sorted {
		buf = append(buf, byte(c.Index))
		buf = append(buf, c.D.SerializeCompressed()...)
		buf = append(buf, c.E.SerializeCompressed()...)
	}
	return core.HashToScalar(core.DSTBinding, buf)
}

// aggregateNonce computes R = Σ_i (D_i + rho_i·E_i) over the commitment set.
func aggregateNonce(msg []byte, commitments []NonceCommitment) *secp256k1.PublicKey {
	var r *secp256k1.PublicKey
	for _, c := range commitments {
		rho := bindingFactor(c.Index, msg, commitments)
		term := core.AddPoints(c.D, core.ScalarMult(rho, c.E))
		if r == nil {
			r = term
		} else {
			r = core.AddPoints(r, term)
		}
	}
	return r
}

// challenge computes c = H(R, PK, msg), the Fiat-Shamir challenge binding a
// Schnorr signature to its message and signer.
func challenge(r, pk *secp256k1.PublicKey, msg []byte) *secp256k1.ModNScalar {
	buf := append(r.SerializeCompressed(), pk.SerializeCompressed()...)
	buf = append(buf, msg...)
	return core.HashToScalar(core.DSTSig, buf)
}

// SignShare runs round 2 for guardian `index`: given the message, every
// participant's round-1 commitments, this guardian's own long-term share
// `share`, and the full participant set, it computes
// z_i = d_i + rho_i·e_i + lambda_i·share·c.
func (s *Session) SignShare(index int, msg []byte, commitments []NonceCommitment, share *secp256k1.ModNScalar, participants []int) (*secp256k1.ModNScalar, error) {
	sec, ok := s.secrets[index]
	if !ok {
		return nil, ErrInvalidShare
	}
	if len(participants) < s.T {
		return nil, ErrInsufficientParticipants
	}

	rho := bindingFactor(index, msg, commitments)
	r := aggregateNonce(msg, commitments)
	c := challenge(r, s.GroupPK, msg)

	lambda, err := core.LagrangeAtZero(index, participants)
	if err != nil {
		return nil, err
	}

	term1 := core.AddScalars(sec.d, core.MulScalars(rho, sec.e))
	term2 := core.MulScalars(core.MulScalars(lambda, share), c)
	return core.AddScalars(term1, term2), nil
}

// Aggregate combines per-guardian signature shares into a single Schnorr
// signature, verifying each share against its own public commitments before
// summing so that one bad guardian cannot silently corrupt the group
// signature.
func Aggregate(msg []byte, groupPK *secp256k1.PublicKey, commitments []NonceCommitment, shares map[int]*secp256k1.ModNScalar, guardianPKs map[int]*secp256k1.PublicKey, participants []int) (Signature, error) {
	if len(shares) < len(participants) {
		return Signature{}, ErrInsufficientParticipants
	}
	r := aggregateNonce(msg, commitments)
	c := challenge(r, groupPK, msg)

	commitByIndex := make(map[int]NonceCommitment, len(commitments))
	for _, cm := range commitments {
		commitByIndex[cm.Index] = cm
	}

	z := core.ScalarFromInt(0)
	for _, idx := range participants {
		zi, ok := shares[idx]
		if !ok {
			return Signature{}, ErrInvalidShare
		}
		if guardianPKs != nil {
			cm, ok := commitByIndex[idx]
			if !ok {
				return Signature{}, ErrInvalidShare
			}
			rho := bindingFactor(idx, msg, commitments)
			lambda, err := core.LagrangeAtZero(idx, participants)
			if err != nil {
				return Signature{}, err
			}
			lhs := core.BasePoint(zi)
			rhs := core.AddPoints(core.AddPoints(cm.D, core.ScalarMult(rho, cm.E)), core.ScalarMult(core.MulScalars(lambda, c), guardianPKs[idx]))
			if !lhs.IsEqual(rhs) {
				return Signature{}, ErrInvalidShare
			}
		}
		z = core.AddScalars(z, zi)
	}

	return Signature{R: r, Z: z}, nil
}

// Verify checks a combined signature against the group public key: it
// accepts iff g^z == R + c·PK where c = H(R, PK, msg).
func Verify(msg []byte, groupPK *secp256k1.PublicKey, sig Signature) bool {
	if sig.R == nil || sig.Z == nil || groupPK == nil {
		return false
	}
	c := challenge(sig.R, groupPK, msg)
	lhs := core.BasePoint(sig.Z)
	rhs := core.AddPoints(sig.R, core.ScalarMult(c, groupPK))
	return lhs.IsEqual(rhs)
}
