// Package dkg runs the one-shot Feldman verifiable secret sharing ceremony
// that produces the guardian group's threshold key material: a group public
// key and, for each guardian, a Shamir share of the group secret plus the
// Feldman commitments needed to verify that share without trusting the
// dealer that produced it.
package dkg

import (
	"errors"
	"sort"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/zmlAEQ/airlock-core/internal/tss/core"
)

var (
	// ErrInvalidParams is returned when n, t are out of range.
	ErrInvalidParams = errors.New("dkg: invalid parameters")
	// ErrShareMismatch is returned when a dealer's share fails Feldman
	// verification against its own published commitments.
	ErrShareMismatch = errors.New("dkg: share failed verification against commitments")
)

// KeyShare is one guardian's portion of the ceremony's output: its Shamir
// share of the group secret, the group's public key, and the per-coefficient
// commitments contributed by every dealer (flattened, summed by degree),
// which third parties can use to verify any guardian's share.
type KeyShare struct {
	Index       int                  `json:"index"`
	GroupPK     []byte               `json:"group_pk"`
	Share       []byte               `json:"share"`
	Commitments [][]byte             `json:"commitments"`
}

// Result is the full output of a DKG ceremony, kept in-memory by whichever
// process runs it, persisted per-guardian via KeyStore.
type Result struct {
	N, T        int
	GroupPK     *secp256k1.PublicKey
	Shares      map[int]*secp256k1.ModNScalar
	Commitments []*secp256k1.PublicKey
}

// RunDKG simulates an n-party, t-threshold Feldman VSS ceremony in a single
// process: each of the n participants acts as a dealer for a degree-(t-1)
// polynomial, contributes Feldman commitments to it, and every participant's
// final share is the sum of what each dealer privately sent it. This mirrors
// a real DKG's share-summing step without the network round-trips; it is
// intended for bootstrapping a guardian set that then persists its KeyShare
// independently, not for re-running once guardians hold live shares.
func RunDKG(n, t int) (Result, error) {
	if n <= 0 || t <= 0 || t > n {
		return Result{}, ErrInvalidParams
	}

	type dealer struct {
		coeffs      []*secp256k1.ModNScalar
		commitments []*secp256k1.PublicKey
	}

	dealers := make(map[int]dealer, n)
	for idx := 1; idx <= n; idx++ {
		coeffs := make([]*secp256k1.ModNScalar, 0, t)
		for j := 0; j < t; j++ {
			c, err := core.RandScalar()
			if err != nil {
				return Result{}, err
			}
			coeffs = append(coeffs, c)
		}
		commitments, err := core.CommitPolynomial(coeffs)
		if err != nil {
			return Result{}, err
		}
		dealers[idx] = dealer{coeffs: coeffs, commitments: commitments}
	}

	// Group public key is the sum of every dealer's constant-term
	// commitment, i.e. g^(Σ a_0 over all dealers).
	var groupPK *secp256k1.PublicKey
	dealerIdx := make([]int, 0, n)
	for idx := range dealers {
		dealerIdx = append(dealerIdx, idx)
	}
	sort.Ints(dealerIdx)
	for _, idx := range dealerIdx {
		c0 := dealers[idx].commitments[0]
		if groupPK == nil {
			groupPK = c0
		} else {
			groupPK = core.AddPoints(groupPK, c0)
		}
	}

	// Aggregated per-coefficient commitments (degree 0..t-1), summed across
	// dealers, published alongside the group key so any guardian's share
	// can later be re-verified independently of the ceremony.
	aggCommitments := make([]*secp256k1.PublicKey, t)
	for j := 0; j < t; j++ {
		for _, idx := range dealerIdx {
			c := dealers[idx].commitments[j]
			if aggCommitments[j] == nil {
				aggCommitments[j] = c
			} else {
				aggCommitments[j] = core.AddPoints(aggCommitments[j], c)
			}
		}
	}

	shares := make(map[int]*secp256k1.ModNScalar, n)
	for i := 1; i <= n; i++ {
		sum := core.ScalarFromInt(0)
		for _, dealerIdxI := range dealerIdx {
			d := dealers[dealerIdxI]
			si, err := core.EvalPolynomial(d.coeffs, i)
			if err != nil {
				return Result{}, err
			}
			ok, err := core.VerifyFeldmanShare(si, i, d.commitments)
			if err != nil {
				return Result{}, err
			}
			if !ok {
				return Result{}, ErrShareMismatch
			}
			sum = core.AddScalars(sum, si)
		}
		shares[i] = sum
	}

	return Result{
		N:           n,
		T:           t,
		GroupPK:     groupPK,
		Shares:      shares,
		Commitments: aggCommitments,
	}, nil
}

// ToKeyShare projects the ceremony result into the per-guardian record that
// gets persisted, encoding points and scalars as compressed/fixed-width
// bytes suitable for JSON storage.
func (r Result) ToKeyShare(index int) (KeyShare, error) {
	share, ok := r.Shares[index]
	if !ok {
		return KeyShare{}, ErrInvalidParams
	}
	commitments := make([][]byte, len(r.Commitments))
	for i, c := range r.Commitments {
		commitments[i] = c.SerializeCompressed()
	}
	shareBytes := share.Bytes()
	return KeyShare{
		Index:       index,
		GroupPK:     r.GroupPK.SerializeCompressed(),
		Share:       shareBytes[:],
		Commitments: commitments,
	}, nil
}

// VerifyKeyShare re-derives the Feldman verification equation for a
// persisted KeyShare against its own commitments, used when a guardian
// loads its share from disk before the first signing session.
func VerifyKeyShare(ks KeyShare) (bool, error) {
	if len(ks.Share) != 32 || len(ks.Commitments) == 0 {
		return false, ErrInvalidParams
	}
	var buf [32]byte
	copy(buf[:], ks.Share)
	var share secp256k1.ModNScalar
	if share.SetBytes(&buf) != 0 {
		return false, ErrInvalidParams
	}
	commitments := make([]*secp256k1.PublicKey, len(ks.Commitments))
	for i, cb := range ks.Commitments {
		p, err := secp256k1.ParsePubKey(cb)
		if err != nil {
			return false, err
		}
		commitments[i] = p
	}
	return core.VerifyFeldmanShare(&share, ks.Index, commitments)
}
