// Package airlocktest provides test-only seams for forcing an
// Orchestrator's scoring and voting outcomes without adding a reachable
// backdoor to internal/airlock itself (see DESIGN.md's open-question log).
// These are ordinary adapters.Scorer/adapters.GuardianNetwork
// implementations a test wires in through Orchestrator.SetScorer/
// SetGuardianNetwork, not a flag the orchestrator itself checks.
package airlocktest

import (
	"context"
	"sync"

	"github.com/zmlAEQ/airlock-core/internal/adapters"
	"github.com/zmlAEQ/airlock-core/internal/zkvote"
)

// forcedScorer always returns a fixed ScoreResult, ignoring its input.
type forcedScorer struct {
	result adapters.ScoreResult
}

func (f forcedScorer) Analyze(_ context.Context, _ adapters.ScoreInput) (adapters.ScoreResult, error) {
	return f.result, nil
}

// WithForcedScore returns a Scorer that scores every intent at score,
// bypassing whatever a real model would say. Useful for pinning a test to
// the flagged or unflagged branch without depending on ScoreResult.Verdict
// thresholds staying in sync with a real scorer implementation.
func WithForcedScore(score float64) adapters.Scorer {
	return forcedScorer{result: adapters.ScoreResult{Score: score}}
}

// WithForcedVerdict is WithForcedScore plus a Verdict/Explanation, for tests
// that assert on the full ScoreResult an executor or bus listener observes.
func WithForcedVerdict(result adapters.ScoreResult) adapters.Scorer {
	return forcedScorer{result: result}
}

// forcedTally is a GuardianNetwork that ignores every commit and reveal it
// receives and always reports the same fixed TallySnapshot. It lets a test
// drive the orchestrator's race logic directly against a chosen outcome
// without running real commit-reveal rounds.
type forcedTally struct {
	mu   sync.Mutex
	snap adapters.TallySnapshot
}

func (f *forcedTally) SubmitCommit(_ context.Context, _ adapters.Fingerprint, _ int, _ adapters.Hash) error {
	return nil
}

func (f *forcedTally) SubmitReveal(_ context.Context, _ adapters.Fingerprint, _ int, _ zkvote.Vote, _ zkvote.RevealProof) error {
	return nil
}

func (f *forcedTally) PollTally(_ context.Context, _ adapters.Fingerprint) (adapters.TallySnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap, nil
}

// SignDelayed reports the same forced snapshot's signature, if any, so a
// test can also pin the VDF-wins-the-race branch to a chosen outcome
// without running a real signing session.
func (f *forcedTally) SignDelayed(_ context.Context, _ adapters.Fingerprint) (*adapters.ThresholdSigWire, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snap.Signature == nil {
		return nil, adapters.ErrInsufficientSigners
	}
	return f.snap.Signature, nil
}

// Resolve updates the snapshot PollTally returns, so a test can hold a
// GuardianNetwork pending and then flip it to a resolved tally mid-race.
func (f *forcedTally) Resolve(snap adapters.TallySnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = snap
}

// WithForcedTally returns a GuardianNetwork that always reports snap,
// regardless of what commits or reveals the orchestrator submits to it. The
// returned value's Resolve method lets a test change the snapshot later —
// e.g. start pending, then resolve once the orchestrator's race has begun.
func WithForcedTally(snap adapters.TallySnapshot) *forcedTally {
	return &forcedTally{snap: snap}
}
