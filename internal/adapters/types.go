// Package adapters defines the capability interfaces the orchestrator
// depends on — Scorer, Executor, GuardianNetwork — plus the wire shapes
// that cross those boundaries and in-memory implementations for tests.
// Nothing in this package owns orchestrator state; it only describes the
// contract at the edge of the core.
package adapters

import (
	"context"
	"encoding/hex"

	"github.com/zmlAEQ/airlock-core/internal/proposal"
	"github.com/zmlAEQ/airlock-core/internal/vdf"
	"github.com/zmlAEQ/airlock-core/internal/zkvote"
)

// Fingerprint identifies a transaction intent and its proposal.
type Fingerprint = proposal.Fingerprint

// Hash is an opaque 32-byte digest, used for commitment hashes crossing the
// guardian network boundary.
type Hash [32]byte

// Intent is the immutable transaction the airlock gates.
type Intent struct {
	Caller      string
	Destination string
	Value       uint64
	Payload     []byte
	SourceChain string
	DestChain   string
	Nonce       uint64
}

// Fingerprint derives the deterministic proposal key for in: a function
// of destination, payload, value, source chain, and nonce.
func (in Intent) Fingerprint() Fingerprint {
	return ComputeFingerprint(in.Destination, in.Payload, in.Value, in.SourceChain, in.Nonce)
}

// Verdict is the scorer's qualitative risk label.
type Verdict string

const (
	VerdictSafe       Verdict = "safe"
	VerdictSuspicious Verdict = "suspicious"
	VerdictDangerous  Verdict = "dangerous"
)

// ScoreInput is what the orchestrator hands the scorer.
type ScoreInput struct {
	Sender      string
	Destination string
	Value       uint64
	Payload     []byte
	Chain       string
}

// ScoreResult is the scorer's verdict on an intent.
type ScoreResult struct {
	Score       float64
	Verdict     Verdict
	Explanation string
}

// Scorer is the ML risk-scoring adapter. Implementations own model
// inference and transport; the orchestrator only calls Analyze and applies
// FlagThreshold to the returned score.
type Scorer interface {
	Analyze(ctx context.Context, in ScoreInput) (ScoreResult, error)
}

// OutcomeTag is the signed disposition carried by an envelope.
type OutcomeTag string

const (
	OutcomeTagApproved        OutcomeTag = "approved"
	OutcomeTagRejected        OutcomeTag = "rejected"
	OutcomeTagDelayedApproved OutcomeTag = "delayed-approved"
)

// VDFProofWire is the envelope's VDF proof, possibly the zero-proof when
// voting resolved before the VDF job did.
type VDFProofWire struct {
	Output     [32]byte
	Witness    []byte
	Iterations uint64
}

// IsZero reports whether this is the distinguished zero-proof.
func (p VDFProofWire) IsZero() bool { return p.Iterations == 0 && len(p.Witness) == 0 }

// ThresholdSigWire is the FROST aggregate signature over an envelope's
// fingerprint and outcome tag, in a fixed {R, z} shape.
type ThresholdSigWire struct {
	R [32]byte
	Z [32]byte
}

// Envelope is the terminal artifact the orchestrator hands to the executor.
type Envelope struct {
	Fingerprint Fingerprint
	VDFProof    VDFProofWire
	Signature   ThresholdSigWire
	Outcome     OutcomeTag
}

// Receipt is whatever the executor returns after accepting an envelope.
type Receipt struct {
	TxHash string
	Status string
}

// Executor is the on-chain submission adapter. It is opaque to the core —
// RPC details, gas estimation, and chain selection all live behind it.
type Executor interface {
	Submit(ctx context.Context, env Envelope) (Receipt, error)
}

// Phase mirrors a proposal's zkvote-engine phase as seen from outside the
// core, for guardian-network snapshots.
type Phase string

const (
	PhaseCommit   Phase = "commit"
	PhaseReveal   Phase = "reveal"
	PhaseComplete Phase = "complete"
	PhaseExpired  Phase = "expired"
)

// TallySnapshot is what PollTally returns: the running vote counts and
// phase for a proposal, plus its threshold signature once finalized.
type TallySnapshot struct {
	Approve   int
	Reject    int
	Abstain   int
	Pending   int
	Phase     Phase
	Signature *ThresholdSigWire
}

// GuardianNetwork is the pull-based adapter to the guardian commit-reveal
// network: submit a commit or reveal, and poll the running tally.
// Implementations validate what they receive (LocalGuardianNetwork through
// internal/zkvote); recording into internal/proposal is done by the
// orchestrator's own SubmitCommit/SubmitReveal, not by the implementation.
type GuardianNetwork interface {
	SubmitCommit(ctx context.Context, fp Fingerprint, slot int, hash Hash) error
	SubmitReveal(ctx context.Context, fp Fingerprint, slot int, vote zkvote.Vote, proof zkvote.RevealProof) error
	PollTally(ctx context.Context, fp Fingerprint) (TallySnapshot, error)
	// SignDelayed assembles a threshold signature over the
	// OutcomeTagDelayedApproved tag for fp using whichever guardians have
	// revealed so far, independent of whether either vote tally threshold
	// has been crossed. Called when a VDF time-lock completes before voting
	// resolves; returns an error if fewer than the signing threshold have
	// revealed.
	SignDelayed(ctx context.Context, fp Fingerprint) (*ThresholdSigWire, error)
}

// PolicySnapshot is a copy-on-write view of the blacklist/pause state, read
// once at proposal open so later mutations never retroactively affect an
// in-flight proposal.
type PolicySnapshot struct {
	Paused    bool
	Blacklist map[string]struct{}
}

// IsBlacklisted reports whether caller appears in the snapshot's blacklist.
func (s PolicySnapshot) IsBlacklisted(caller string) bool {
	if s.Blacklist == nil {
		return false
	}
	_, found := s.Blacklist[caller]
	return found
}

// PolicySource is the adapter that owns blacklist/pause state across
// restarts.
type PolicySource interface {
	Snapshot(ctx context.Context) (PolicySnapshot, error)
}

// ToVDFProofWire converts an internal/vdf proof into its envelope wire
// shape, encoding the zero-proof distinguished value.
func ToVDFProofWire(p vdf.Proof) VDFProofWire {
	if p.IsZero() {
		return VDFProofWire{}
	}
	var out VDFProofWire
	copy(out.Output[:], p.Output)
	out.Witness = append([]byte(nil), p.Witness...)
	out.Iterations = p.Iterations
	return out
}

// ComputeFingerprint derives a proposal key from raw fields, for callers
// that need the same key without building an Intent.
func ComputeFingerprint(destination string, payload []byte, value uint64, sourceChain string, nonce uint64) Fingerprint {
	digest := computeFingerprint(destination, payload, value, sourceChain, nonce)
	return Fingerprint(hex.EncodeToString(digest[:]))
}
