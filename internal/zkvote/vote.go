// Package zkvote runs the guardian commit-reveal vote for one proposal:
// guardians first commit to a blinded vote, then reveal it along with a
// proof that the reveal matches their commitment without exposing which
// guardian cast which vote. The proof circuit itself (R1CS/PlonK
// constraints) is out of scope — this package only needs a hash the
// prover and verifier agree on and a proof blob shaped the way a real
// zero-knowledge reveal proof would be.
package zkvote

import "errors"

// Vote is a guardian's ballot.
type Vote uint8

const (
	VoteAbstain Vote = iota
	VoteApprove
	VoteReject
)

// Commitment is the blake3 digest a guardian publishes in the commit phase:
// blake3(slot ‖ vote ‖ nonce ‖ proposalID). blake3 stands in for the
// algebraic hash a real proof circuit would use natively — the circuit
// itself is never implemented, so the engine only needs a hash both the
// simulated prover and verifier agree on.
type Commitment [32]byte

// PubKey identifies a guardian's reveal-binding key within a proposal's
// pubkey set, used by Prove to check that a reveal's secret matches the
// slot it claims. Verify does not consult the pubkey set.
type PubKey [32]byte

// RevealProof is what a guardian publishes in the reveal phase: its vote in
// the clear, plus a proof blob a verifier checks against the proposal ID and
// the commitment without learning the guardian's slot or secret; the pubkey
// set input is carried but not checked by Verify. Shaped after the pack's
// ZKProofInput/ZKProofResult split:
// PublicInputs are the values any verifier already has (proposal ID,
// commitment, pubkey set); ProofData is the opaque proof blob.
type RevealProof struct {
	PublicInputs [][]byte
	Vote         Vote
	ProofData    []byte
}

var (
	// ErrInvalidVote is returned for a Vote outside the defined range.
	ErrInvalidVote = errors.New("zkvote: invalid vote")
	// ErrEmptyPubKeySet is returned when Prove is given no pubkey set to
	// bind against.
	ErrEmptyPubKeySet = errors.New("zkvote: empty pubkey set")
)

// Tally accumulates reveals for one proposal.
type Tally struct {
	Approve int
	Reject  int
	Abstain int
	Pending int
}

// Outcome is the result of applying the proposal's approval/rejection
// thresholds to a Tally.
type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
	OutcomePending  Outcome = "pending"
	OutcomeExpired  Outcome = "expired"
)

// Resolve applies the threshold rules: at least approveThreshold APPROVE
// votes clears the proposal; more than rejectThreshold REJECT votes blocks
// it outright; otherwise it stays pending unless expired is true, in which
// case an unresolved tally becomes OutcomeExpired.
func (t Tally) Resolve(approveThreshold, rejectThreshold int, expired bool) Outcome {
	if t.Reject > rejectThreshold {
		return OutcomeRejected
	}
	if t.Approve >= approveThreshold {
		return OutcomeApproved
	}
	if expired {
		return OutcomeExpired
	}
	return OutcomePending
}
