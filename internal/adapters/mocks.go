package adapters

import (
	"context"
	"errors"
	"sync"

	"github.com/zmlAEQ/airlock-core/internal/zkvote"
)

// MockScorer returns a fixed ScoreResult (or error) on every call,
// recording each input it was given: a small struct recording calls, no
// framework.
type MockScorer struct {
	mu      sync.Mutex
	Result  ScoreResult
	Err     error
	Calls   []ScoreInput
}

func NewMockScorer(result ScoreResult) *MockScorer {
	return &MockScorer{Result: result}
}

func (m *MockScorer) Analyze(_ context.Context, in ScoreInput) (ScoreResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, in)
	if m.Err != nil {
		return ScoreResult{}, m.Err
	}
	return m.Result, nil
}

func (m *MockScorer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockExecutor records every envelope it was asked to submit and returns a
// canned receipt or error.
type MockExecutor struct {
	mu        sync.Mutex
	Receipt   Receipt
	Err       error
	Envelopes []Envelope
}

func NewMockExecutor(receipt Receipt) *MockExecutor {
	return &MockExecutor{Receipt: receipt}
}

func (m *MockExecutor) Submit(_ context.Context, env Envelope) (Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Envelopes = append(m.Envelopes, env)
	if m.Err != nil {
		return Receipt{}, m.Err
	}
	return m.Receipt, nil
}

func (m *MockExecutor) LastEnvelope() (Envelope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Envelopes) == 0 {
		return Envelope{}, false
	}
	return m.Envelopes[len(m.Envelopes)-1], true
}

// ErrGuardianProposalMissing is returned by MockGuardianNetwork when a
// caller polls or submits against a fingerprint it was never told about.
var ErrGuardianProposalMissing = errors.New("adapters: unknown proposal fingerprint")

type guardianProposal struct {
	commits   map[int]Hash
	reveals   map[int]zkvote.Vote
	approve   int
	reject    int
	abstain   int
	guardians int
	phase     Phase
	signature *ThresholdSigWire
}

// MockGuardianNetwork is an in-memory stand-in for the guardian network:
// it accepts commits/reveals and tracks a running tally per fingerprint,
// without any of internal/zkvote's proof verification — tests that need
// verified reveals should drive internal/zkvote's Proposal directly and
// wire its result through PollTally. SetThresholds opts into producing a
// placeholder (not cryptographically meaningful) signature once a tally
// crosses one of them, for orchestrator-level tests that only need a
// non-nil Signature to observe voting resolve; SetSignThreshold separately
// opts SignDelayed into answering once enough slots have revealed,
// regardless of which way they voted — signature validity itself is
// exercised against LocalGuardianNetwork instead.
type MockGuardianNetwork struct {
	mu                 sync.Mutex
	guardians          int
	approvalThreshold  int
	rejectionThreshold int
	signThreshold      int
	proposals          map[Fingerprint]*guardianProposal
}

// NewMockGuardianNetwork returns a mock sized for guardianCount slots.
// Thresholds are disabled (no Signature is ever produced) until
// SetThresholds is called.
func NewMockGuardianNetwork(guardianCount int) *MockGuardianNetwork {
	return &MockGuardianNetwork{
		guardians: guardianCount,
		proposals: make(map[Fingerprint]*guardianProposal),
	}
}

// SetThresholds opts this mock into resolving: once a proposal's tally
// crosses approvalThreshold or rejectionThreshold, PollTally starts
// returning a non-nil (placeholder) Signature and PhaseComplete.
func (m *MockGuardianNetwork) SetThresholds(approvalThreshold, rejectionThreshold int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.approvalThreshold = approvalThreshold
	m.rejectionThreshold = rejectionThreshold
}

// SetSignThreshold opts this mock into answering SignDelayed: once at least
// signThreshold slots have revealed (regardless of which way they voted),
// SignDelayed starts returning a non-nil (placeholder) signature instead of
// ErrInsufficientSigners.
func (m *MockGuardianNetwork) SetSignThreshold(signThreshold int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signThreshold = signThreshold
}

func (m *MockGuardianNetwork) open(fp Fingerprint) *guardianProposal {
	p, ok := m.proposals[fp]
	if !ok {
		p = &guardianProposal{
			commits:   make(map[int]Hash),
			reveals:   make(map[int]zkvote.Vote),
			guardians: m.guardians,
			phase:     PhaseCommit,
		}
		m.proposals[fp] = p
	}
	return p
}

func (m *MockGuardianNetwork) SubmitCommit(_ context.Context, fp Fingerprint, slot int, hash Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.open(fp)
	p.commits[slot] = hash
	if len(p.commits) == p.guardians {
		p.phase = PhaseReveal
	}
	return nil
}

func (m *MockGuardianNetwork) SubmitReveal(_ context.Context, fp Fingerprint, slot int, vote zkvote.Vote, _ zkvote.RevealProof) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[fp]
	if !ok {
		return ErrGuardianProposalMissing
	}
	if _, committed := p.commits[slot]; !committed {
		return ErrGuardianProposalMissing
	}
	if _, revealed := p.reveals[slot]; revealed {
		return nil
	}
	p.reveals[slot] = vote
	switch vote {
	case zkvote.VoteApprove:
		p.approve++
	case zkvote.VoteReject:
		p.reject++
	default:
		p.abstain++
	}
	if p.signature == nil && m.approvalThreshold > 0 {
		if p.approve >= m.approvalThreshold || p.reject >= m.rejectionThreshold {
			p.signature = &ThresholdSigWire{}
			p.phase = PhaseComplete
		}
	}
	return nil
}

// SignDelayed reports a placeholder signature once len(reveals) reaches the
// configured signThreshold, independent of p.approve/p.reject — it never
// gates on the decision thresholds SubmitReveal uses for p.signature.
func (m *MockGuardianNetwork) SignDelayed(_ context.Context, fp Fingerprint) (*ThresholdSigWire, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[fp]
	if !ok {
		return nil, ErrGuardianProposalMissing
	}
	revealed := len(p.reveals)
	if m.signThreshold <= 0 || revealed < m.signThreshold {
		return nil, ErrInsufficientSigners
	}
	return &ThresholdSigWire{}, nil
}

func (m *MockGuardianNetwork) PollTally(_ context.Context, fp Fingerprint) (TallySnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[fp]
	if !ok {
		return TallySnapshot{}, ErrGuardianProposalMissing
	}
	return TallySnapshot{
		Approve:   p.approve,
		Reject:    p.reject,
		Abstain:   p.abstain,
		Pending:   p.guardians - p.approve - p.reject - p.abstain,
		Phase:     p.phase,
		Signature: p.signature,
	}, nil
}

// MockPolicySource returns a fixed snapshot, mutable between calls for
// tests that need to flip pause/blacklist state mid-run.
type MockPolicySource struct {
	mu       sync.Mutex
	snapshot PolicySnapshot
}

func NewMockPolicySource(snap PolicySnapshot) *MockPolicySource {
	return &MockPolicySource{snapshot: snap}
}

func (m *MockPolicySource) Snapshot(_ context.Context) (PolicySnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot, nil
}

func (m *MockPolicySource) Set(snap PolicySnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = snap
}
