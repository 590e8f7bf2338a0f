// Package proposal holds the in-memory state for every transaction intent
// currently moving through guardian commit-reveal voting: who has
// committed, who has revealed, the running tally, and whether the proposal
// has finalized. Each proposal gets its own mutex so that unrelated
// proposals never contend, and the top-level index is itself sharded so
// that locking one proposal never blocks lookups for another.
package proposal

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/benbjohnson/clock"

	"github.com/zmlAEQ/airlock-core/pkg/logger"
	"github.com/zmlAEQ/airlock-core/pkg/metrics"
)

// storeShards partitions the open-proposal map so unrelated fingerprints
// never contend on the same top-level lock, not just on the same
// proposalEntry. 32 shards comfortably spreads the guardian-count-sized
// proposal volumes this module expects without adding meaningful memory
// overhead.
const storeShards = 32

// Fingerprint is the deterministic identifier of a transaction intent,
// used as a proposal's primary key.
type Fingerprint string

// Vote mirrors the guardian vote values the zkvote engine resolves reveals
// into; kept as a small int type here so this package has no import-time
// dependency on internal/zkvote.
type Vote uint8

const (
	VoteAbstain Vote = iota
	VoteApprove
	VoteReject
)

// Outcome is a proposal's terminal state.
type Outcome string

const (
	OutcomePending  Outcome = "pending"
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
	OutcomeExpired  Outcome = "expired"
)

var (
	// ErrDuplicateFingerprint is returned by Open when a proposal with the
	// same fingerprint is already open (spec invariant: one proposal per
	// intent at a time).
	ErrDuplicateFingerprint = errors.New("proposal: duplicate fingerprint")
	// ErrDuplicateSlot is returned by RecordCommit when a slot has already
	// committed for this proposal.
	ErrDuplicateSlot = errors.New("proposal: slot has already committed")
	// ErrNotCommitted is returned by RecordReveal when a slot reveals
	// before committing.
	ErrNotCommitted = errors.New("proposal: slot has not committed")
	// ErrAlreadyFinalized is returned by any mutation after Finalize.
	ErrAlreadyFinalized = errors.New("proposal: already finalized")
	// ErrNotFound is returned when an operation targets an unknown or
	// expired fingerprint.
	ErrNotFound = errors.New("proposal: not found")
)

// Snapshot is a read-only, point-in-time view of a proposal. Store.Snapshot
// returns this by loading an atomic pointer rather than taking the entry's
// mutex, so reads never block a concurrent mutation.
type Snapshot struct {
	Fingerprint Fingerprint
	CreatedAt   time.Time
	Deadline    time.Time
	CommitSet   map[int]struct{}
	RevealSet   map[int]Vote
	Approve     int
	Reject      int
	Abstain     int
	Finalized   bool
	Outcome     Outcome
	VDFJobID    string
}

type proposalEntry struct {
	mu   sync.Mutex
	snap atomic.Pointer[Snapshot]
}

func (e *proposalEntry) load() Snapshot  { return *e.snap.Load() }
func (e *proposalEntry) store(s Snapshot) { e.snap.Store(&s) }

type storeShard struct {
	mu      sync.Mutex
	entries map[Fingerprint]*proposalEntry
}

// Store holds every open and recently-expired proposal.
type Store struct {
	clock clock.Clock

	shards [storeShards]*storeShard

	expired *lru.Cache[Fingerprint, Snapshot]
}

// New builds a Store. maxExpired bounds how many finalized/expired
// proposals are retained for audit snapshots before the oldest is evicted.
func New(c clock.Clock, maxExpired int) (*Store, error) {
	if c == nil {
		c = clock.New()
	}
	if maxExpired <= 0 {
		maxExpired = 4096
	}
	cache, err := lru.New[Fingerprint, Snapshot](maxExpired)
	if err != nil {
		return nil, err
	}
	s := &Store{clock: c, expired: cache}
	for i := range s.shards {
		s.shards[i] = &storeShard{entries: make(map[Fingerprint]*proposalEntry)}
	}
	return s, nil
}

func (s *Store) shardFor(fp Fingerprint) *storeShard {
	h := xxhash.Sum64String(string(fp))
	return s.shards[h%uint64(storeShards)]
}

// openCount sums every shard's live entry count, for the open-proposal gauge.
func (s *Store) openCount() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}

// Open creates a new proposal for fp with the given voting deadline.
func (s *Store) Open(fp Fingerprint, deadline time.Time) error {
	sh := s.shardFor(fp)
	sh.mu.Lock()
	if _, exists := sh.entries[fp]; exists {
		sh.mu.Unlock()
		metrics.Inc("proposal_open_total", map[string]string{"result": "dup"})
		return ErrDuplicateFingerprint
	}
	e := &proposalEntry{}
	e.store(Snapshot{
		Fingerprint: fp,
		CreatedAt:   s.clock.Now(),
		Deadline:    deadline,
		CommitSet:   make(map[int]struct{}),
		RevealSet:   make(map[int]Vote),
		Outcome:     OutcomePending,
	})
	sh.entries[fp] = e
	sh.mu.Unlock()

	metrics.Inc("proposal_open_total", map[string]string{"result": "ok"})
	metrics.SetGauge("proposal_open_count", nil, int64(s.openCount()))
	logger.InfoJ("proposal_store", map[string]any{"op": "open", "fingerprint": string(fp)})
	return nil
}

func (s *Store) lookup(fp Fingerprint) (*proposalEntry, error) {
	sh := s.shardFor(fp)
	sh.mu.Lock()
	e, ok := sh.entries[fp]
	sh.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

// RecordCommit records that slot has committed for fp. Only the slot is
// kept (Snapshot's CommitSet); the commitment hash itself is checked by the
// guardian network, not stored here.
func (s *Store) RecordCommit(fp Fingerprint, slot int) error {
	e, err := s.lookup(fp)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	cur := e.load()
	if cur.Finalized {
		metrics.Inc("proposal_commit_total", map[string]string{"result": "finalized"})
		return ErrAlreadyFinalized
	}
	if _, exists := cur.CommitSet[slot]; exists {
		metrics.Inc("proposal_commit_total", map[string]string{"result": "dup"})
		return ErrDuplicateSlot
	}
	next := cur
	next.CommitSet = cloneCommitSet(cur.CommitSet)
	next.CommitSet[slot] = struct{}{}
	e.store(next)
	metrics.Inc("proposal_commit_total", map[string]string{"result": "ok"})
	return nil
}

// RecordReveal records slot's revealed vote for fp, incrementing the
// matching tally counter. The caller (internal/zkvote) is responsible for
// having already verified the reveal proof; this method only enforces the
// commit-before-reveal and no-double-reveal invariants.
func (s *Store) RecordReveal(fp Fingerprint, slot int, vote Vote) error {
	e, err := s.lookup(fp)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	cur := e.load()
	if cur.Finalized {
		metrics.Inc("proposal_reveal_total", map[string]string{"result": "finalized"})
		return ErrAlreadyFinalized
	}
	if _, committed := cur.CommitSet[slot]; !committed {
		metrics.Inc("proposal_reveal_total", map[string]string{"result": "not_committed"})
		return ErrNotCommitted
	}
	if _, exists := cur.RevealSet[slot]; exists {
		metrics.Inc("proposal_reveal_total", map[string]string{"result": "dup"})
		return ErrDuplicateSlot
	}

	next := cur
	next.RevealSet = cloneRevealSet(cur.RevealSet)
	next.RevealSet[slot] = vote
	switch vote {
	case VoteApprove:
		next.Approve++
	case VoteReject:
		next.Reject++
	default:
		next.Abstain++
	}
	e.store(next)
	metrics.Inc("proposal_reveal_total", map[string]string{"result": "ok"})
	return nil
}

// SetVDFJobID attaches a VDF job reference to the proposal, used by the
// orchestrator so a Snapshot can report the in-flight time-lock job.
func (s *Store) SetVDFJobID(fp Fingerprint, jobID string) error {
	e, err := s.lookup(fp)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	cur := e.load()
	if cur.Finalized {
		return ErrAlreadyFinalized
	}
	cur.VDFJobID = jobID
	e.store(cur)
	return nil
}

// Snapshot returns a lock-free, point-in-time view of fp's proposal.
func (s *Store) Snapshot(fp Fingerprint) (Snapshot, error) {
	e, err := s.lookup(fp)
	if err != nil {
		if snap, ok := s.expired.Get(fp); ok {
			return snap, nil
		}
		return Snapshot{}, err
	}
	return e.load(), nil
}

// Finalize sets fp's terminal outcome, after which no further commits or
// reveals may mutate it, and moves the proposal into the bounded expired
// cache for later audit.
func (s *Store) Finalize(fp Fingerprint, outcome Outcome) error {
	e, err := s.lookup(fp)
	if err != nil {
		return err
	}
	e.mu.Lock()
	cur := e.load()
	if cur.Finalized {
		e.mu.Unlock()
		return ErrAlreadyFinalized
	}
	cur.Finalized = true
	cur.Outcome = outcome
	e.store(cur)
	e.mu.Unlock()

	sh := s.shardFor(fp)
	sh.mu.Lock()
	delete(sh.entries, fp)
	sh.mu.Unlock()
	s.expired.Add(fp, cur)

	metrics.Inc("proposal_finalize_total", map[string]string{"outcome": string(outcome)})
	logger.InfoJ("proposal_store", map[string]any{"op": "finalize", "fingerprint": string(fp), "outcome": string(outcome)})
	return nil
}

// ExpireSweep finalizes every still-open proposal whose deadline has
// passed as OutcomeExpired, returning their fingerprints.
func (s *Store) ExpireSweep(now time.Time) []Fingerprint {
	candidates := make([]Fingerprint, 0)
	for _, sh := range s.shards {
		sh.mu.Lock()
		for fp, e := range sh.entries {
			snap := e.load()
			if !snap.Finalized && !snap.Deadline.IsZero() && now.After(snap.Deadline) {
				candidates = append(candidates, fp)
			}
		}
		sh.mu.Unlock()
	}

	expired := make([]Fingerprint, 0, len(candidates))
	for _, fp := range candidates {
		if err := s.Finalize(fp, OutcomeExpired); err == nil {
			expired = append(expired, fp)
		}
	}
	return expired
}

func cloneCommitSet(m map[int]struct{}) map[int]struct{} {
	out := make(map[int]struct{}, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneRevealSet(m map[int]Vote) map[int]Vote {
	out := make(map[int]Vote, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
