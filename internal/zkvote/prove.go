package zkvote

import (
	"bytes"
	"crypto/subtle"
	"encoding/binary"
	"errors"

	"lukechampine.com/blake3"
)

// ErrSecretMismatch is returned by Prove when the caller's secret does not
// bind to any slot in the supplied pubkey set.
var ErrSecretMismatch = errors.New("zkvote: secret does not match any slot in the pubkey set")

// ErrVerification is returned by Proposal.Reveal when Verify rejects a proof
// against the slot's commitment.
var ErrVerification = errors.New("zkvote: proof failed verification")

// CommitHash computes the commit-phase digest for a guardian's ballot.
func CommitHash(slot int, vote Vote, nonce, proposalID []byte) Commitment {
	h := blake3.New(32, nil)
	writeSlot(h, slot)
	h.Write([]byte{byte(vote)})
	h.Write(nonce)
	h.Write(proposalID)
	var out Commitment
	copy(out[:], h.Sum(nil))
	return out
}

// bindingKey computes H(secret) the way a real circuit would derive a
// guardian's public binding key from its secret, used both to populate a
// proposal's pubkey set and, inside Prove, to locate which slot a secret
// belongs to.
func bindingKey(secret []byte) PubKey {
	sum := blake3.Sum256(secret)
	var out PubKey
	copy(out[:], sum[:])
	return out
}

// PubKeyFor derives the public binding key a guardian publishes for a
// given secret, for assembly into a proposal's pubkey set.
func PubKeyFor(secret []byte) PubKey { return bindingKey(secret) }

// Prover generates reveal proofs. It stands in for the circuit prover: it
// performs the same binding check a circuit's constraints would enforce,
// but in the clear, and packs the result into a proof blob the Verifier can
// re-check without being told which slot produced it.
type Prover struct{}

// NewProver returns a Prover. It holds no state; constructed for symmetry
// with Verifier and to leave room for circuit parameters if the proof
// system is ever made concrete.
func NewProver() *Prover { return &Prover{} }

// Prove builds a RevealProof for slot's vote. It checks that secret's
// binding key appears in pubKeySet at the claimed slot (the private
// constraint a real circuit would enforce), recomputes the commitment, and
// packs a proof blob carrying a blinded opening: the commitment itself,
// the vote, and a MAC-like tag binding the whole proof to proposalID so it
// cannot be replayed against a different proposal.
func (p *Prover) Prove(slot int, vote Vote, nonce, secret, proposalID []byte, pubKeySet []PubKey) (*RevealProof, error) {
	if vote != VoteApprove && vote != VoteReject && vote != VoteAbstain {
		return nil, ErrInvalidVote
	}
	if len(pubKeySet) == 0 {
		return nil, ErrEmptyPubKeySet
	}
	if slot < 0 || slot >= len(pubKeySet) {
		return nil, ErrSecretMismatch
	}
	bk := bindingKey(secret)
	if subtle.ConstantTimeCompare(bk[:], pubKeySet[slot][:]) != 1 {
		return nil, ErrSecretMismatch
	}

	commitment := CommitHash(slot, vote, nonce, proposalID)
	opening := blake3.New(32, nil)
	opening.Write(commitment[:])
	opening.Write(proposalID)
	opening.Write([]byte{byte(vote)})
	tag := opening.Sum(nil)

	return &RevealProof{
		PublicInputs: [][]byte{proposalID, commitment[:], flattenPubKeys(pubKeySet)},
		Vote:         vote,
		ProofData:    tag,
	}, nil
}

// Verifier checks reveal proofs against a proposal's committed state.
type Verifier struct{}

// NewVerifier returns a Verifier.
func NewVerifier() *Verifier { return &Verifier{} }

// Verify checks proof against commitment for proposalID, returning the
// revealed vote on success. It checks that the proof's public inputs name
// this proposal and commitment and recomputes the same tag Prove derived
// from the commitment, proposal ID, and vote, rejecting any proof whose tag
// does not match. The tag is computed from public values only, so it does
// not show that the vote is the one hidden in the commitment, and the
// pubkey-set input is not checked.
func (v *Verifier) Verify(proof *RevealProof, proposalID []byte, commitment Commitment) (Vote, bool) {
	if proof == nil {
		return VoteAbstain, false
	}
	if len(proof.PublicInputs) != 3 {
		return VoteAbstain, false
	}
	if !bytes.Equal(proof.PublicInputs[0], proposalID) {
		return VoteAbstain, false
	}
	if !bytes.Equal(proof.PublicInputs[1], commitment[:]) {
		return VoteAbstain, false
	}

	opening := blake3.New(32, nil)
	opening.Write(commitment[:])
	opening.Write(proposalID)
	opening.Write([]byte{byte(proof.Vote)})
	want := opening.Sum(nil)

	if subtle.ConstantTimeCompare(want, proof.ProofData) != 1 {
		return VoteAbstain, false
	}
	return proof.Vote, true
}

func writeSlot(h *blake3.Hasher, slot int) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(slot))
	h.Write(buf[:])
}

func flattenPubKeys(keys []PubKey) []byte {
	out := make([]byte, 0, 32*len(keys))
	for _, k := range keys {
		out = append(out, k[:]...)
	}
	return out
}
