package zkvote

import (
	"errors"
	"sync"

	"github.com/zmlAEQ/airlock-core/pkg/metrics"
)

var (
	// ErrDuplicateSlot is returned when a slot commits twice.
	ErrDuplicateSlot = errors.New("zkvote: duplicate slot")
	// ErrNotCommitted is returned when Reveal is called for a slot that
	// never committed.
	ErrNotCommitted = errors.New("zkvote: slot has not committed")
	// ErrAlreadyRevealed is returned when Reveal is called twice for the
	// same slot.
	ErrAlreadyRevealed = errors.New("zkvote: slot already revealed")
)

// Proposal tracks one proposal's commit-reveal round: which slots have
// committed, which have revealed, and the running tally. It is driven by
// its owner (adapters.LocalGuardianNetwork) and owns no deadline or
// persistence; those live in internal/proposal.Store.
type Proposal struct {
	mu sync.Mutex

	proposalID []byte
	pubKeySet  []PubKey

	commits map[int]Commitment
	reveals map[int]Vote
	verifier *Verifier
	tally   Tally
}

// NewProposal opens a commit-reveal round for proposalID against the given
// guardian pubkey set.
func NewProposal(proposalID []byte, pubKeySet []PubKey) *Proposal {
	return &Proposal{
		proposalID: proposalID,
		pubKeySet:  pubKeySet,
		commits:    make(map[int]Commitment),
		reveals:    make(map[int]Vote),
		verifier:   NewVerifier(),
	}
}

// Commit records slot's blinded commitment. A second commit for the same
// slot is rejected — a guardian may not change its mind after committing.
func (p *Proposal) Commit(slot int, c Commitment) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.commits[slot]; exists {
		metrics.Inc("zkvote_commit_total", map[string]string{"result": "dup"})
		return ErrDuplicateSlot
	}
	p.commits[slot] = c
	metrics.Inc("zkvote_commit_total", map[string]string{"result": "ok"})
	metrics.SetGauge("zkvote_commits_open", map[string]string{"proposal": string(p.proposalID)}, int64(len(p.commits)))
	return nil
}

// Reveal verifies proof against slot's earlier commitment and, on success,
// records the revealed vote in the tally.
func (p *Proposal) Reveal(slot int, proof *RevealProof) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.commits[slot]
	if !ok {
		metrics.Inc("zkvote_reveal_total", map[string]string{"result": "not_committed"})
		return ErrNotCommitted
	}
	if _, exists := p.reveals[slot]; exists {
		metrics.Inc("zkvote_reveal_total", map[string]string{"result": "dup"})
		return ErrAlreadyRevealed
	}

	vote, ok := p.verifier.Verify(proof, p.proposalID, c)
	if !ok {
		metrics.Inc("zkvote_reveal_total", map[string]string{"result": "invalid_proof"})
		return ErrVerification
	}

	p.reveals[slot] = vote
	switch vote {
	case VoteApprove:
		p.tally.Approve++
	case VoteReject:
		p.tally.Reject++
	default:
		p.tally.Abstain++
	}
	metrics.Inc("zkvote_reveal_total", map[string]string{"result": "ok"})
	return nil
}

// Tally returns a snapshot of the current vote tally. Pending is computed
// by the caller from the guardian count minus total reveals, since this
// type has no notion of the expected guardian count.
func (p *Proposal) Tally() Tally {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tally
}

// Reveals returns the number of slots that have revealed so far.
func (p *Proposal) Reveals() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.reveals)
}

// Commits returns the number of slots that have committed so far.
func (p *Proposal) Commits() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.commits)
}
