package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/zmlAEQ/airlock-core/internal/tss/core"
	"github.com/zmlAEQ/airlock-core/internal/tss/dkg"
	"github.com/zmlAEQ/airlock-core/internal/tss/sign"
	"github.com/zmlAEQ/airlock-core/internal/zkvote"
)

// ErrInsufficientSigners is returned when a signature is requested but fewer
// than the signing threshold of guardians have revealed (on either side), so
// no threshold signature can be assembled yet.
var ErrInsufficientSigners = errors.New("adapters: fewer than threshold guardians available to sign")

// LocalGuardianNetwork is the default, single-process GuardianNetwork: it
// runs a real Feldman DKG ceremony at construction time and, once a
// proposal's commit-reveal tally crosses a threshold, runs a real two-round
// FROST signing session over the winning outcome tag — a production stand-in
// for a guardian network until guardians run as separate processes talking
// over a real transport.
type LocalGuardianNetwork struct {
	n                   int
	approvalThreshold   int
	rejectionThreshold  int
	signThreshold       int
	dkgResult           dkg.Result
	secrets             [][]byte
	pubKeySet           []zkvote.PubKey
	guardianPKs         map[int]*secp256k1.PublicKey

	mu        sync.Mutex
	proposals map[Fingerprint]*localProposal
}

type localProposal struct {
	proposalID []byte
	votes      *zkvote.Proposal
	reveals    map[int]zkvote.Vote
	finalized  bool
	outcome    OutcomeTag
	signature  *ThresholdSigWire
}

// NewLocalGuardianNetwork runs a fresh DKG ceremony for n guardians and
// returns a network ready to accept commits and reveals. signThreshold is
// FROST's t; approvalThreshold/rejectionThreshold are the vote tally
// thresholds, independent of signThreshold (cmd/airlockd defaults
// signThreshold to the approval threshold).
func NewLocalGuardianNetwork(n, signThreshold, approvalThreshold, rejectionThreshold int) (*LocalGuardianNetwork, error) {
	result, err := dkg.RunDKG(n, signThreshold)
	if err != nil {
		return nil, err
	}
	return fromDKGResult(result, n, signThreshold, approvalThreshold, rejectionThreshold), nil
}

// NewLocalGuardianNetworkPersistent behaves like NewLocalGuardianNetwork but
// persists every guardian's share under keyDir, one file per slot, through
// internal/tss/dkg.KeyStore. On a later call against the same directory it
// loads and Feldman-verifies all n shares instead of running a fresh
// ceremony, so the guardian group's key material — and therefore its group
// public key — survives a daemon restart instead of being silently
// replaced.
func NewLocalGuardianNetworkPersistent(n, signThreshold, approvalThreshold, rejectionThreshold int, keyDir string) (*LocalGuardianNetwork, error) {
	stores := make([]*dkg.KeyStore, n)
	for slot := 0; slot < n; slot++ {
		stores[slot] = dkg.NewKeyStoreFromEnv(filepath.Join(keyDir, fmt.Sprintf("guardian-%d.json", slot+1)))
	}

	if result, ok := loadPersistedResult(stores, n, signThreshold); ok {
		return fromDKGResult(result, n, signThreshold, approvalThreshold, rejectionThreshold), nil
	}

	result, err := dkg.RunDKG(n, signThreshold)
	if err != nil {
		return nil, err
	}
	for slot := 0; slot < n; slot++ {
		ks, err := result.ToKeyShare(slot + 1)
		if err != nil {
			return nil, err
		}
		if err := stores[slot].SaveKeyShare(context.Background(), ks); err != nil {
			return nil, fmt.Errorf("adapters: persisting guardian %d share: %w", slot+1, err)
		}
	}
	return fromDKGResult(result, n, signThreshold, approvalThreshold, rejectionThreshold), nil
}

// loadPersistedResult loads and Feldman-verifies every guardian's share from
// stores, reconstructing the ceremony's dkg.Result if all n are present,
// individually valid, and agree on the same group public key. Any gap or
// mismatch is treated as "no usable persisted state" rather than an error,
// so a partially-initialized key directory falls back to a fresh ceremony.
func loadPersistedResult(stores []*dkg.KeyStore, n, t int) (dkg.Result, bool) {
	shares := make(map[int]*secp256k1.ModNScalar, n)
	var groupPKBytes []byte
	var commitmentBytes [][]byte

	for slot := 0; slot < n; slot++ {
		ks, err := stores[slot].LoadKeyShare(context.Background())
		if err != nil {
			return dkg.Result{}, false
		}
		ok, err := dkg.VerifyKeyShare(ks)
		if err != nil || !ok {
			return dkg.Result{}, false
		}
		if groupPKBytes == nil {
			groupPKBytes = ks.GroupPK
			commitmentBytes = ks.Commitments
		} else if !bytes.Equal(groupPKBytes, ks.GroupPK) {
			return dkg.Result{}, false
		}

		var buf [32]byte
		copy(buf[:], ks.Share)
		share := new(secp256k1.ModNScalar)
		if share.SetBytes(&buf) != 0 {
			return dkg.Result{}, false
		}
		shares[slot+1] = share
	}

	groupPK, err := secp256k1.ParsePubKey(groupPKBytes)
	if err != nil {
		return dkg.Result{}, false
	}
	commitments := make([]*secp256k1.PublicKey, len(commitmentBytes))
	for i, cb := range commitmentBytes {
		pk, err := secp256k1.ParsePubKey(cb)
		if err != nil {
			return dkg.Result{}, false
		}
		commitments[i] = pk
	}

	return dkg.Result{N: n, T: t, GroupPK: groupPK, Shares: shares, Commitments: commitments}, true
}

func fromDKGResult(result dkg.Result, n, signThreshold, approvalThreshold, rejectionThreshold int) *LocalGuardianNetwork {
	secrets := make([][]byte, n)
	pubKeySet := make([]zkvote.PubKey, n)
	guardianPKs := make(map[int]*secp256k1.PublicKey, n)
	for slot := 0; slot < n; slot++ {
		secrets[slot] = []byte(fmt.Sprintf("airlock-guardian-secret-%d", slot))
		pubKeySet[slot] = zkvote.PubKeyFor(secrets[slot])
		guardianPKs[slot+1] = core.BasePoint(result.Shares[slot+1])
	}
	return &LocalGuardianNetwork{
		n:                  n,
		approvalThreshold:  approvalThreshold,
		rejectionThreshold: rejectionThreshold,
		signThreshold:      signThreshold,
		dkgResult:          result,
		secrets:            secrets,
		pubKeySet:          pubKeySet,
		guardianPKs:        guardianPKs,
		proposals:          make(map[Fingerprint]*localProposal),
	}
}

// GroupPK exposes the ceremony's aggregate public key, e.g. for envelope
// signature verification in tests.
func (n *LocalGuardianNetwork) GroupPK() *secp256k1.PublicKey { return n.dkgResult.GroupPK }

func (n *LocalGuardianNetwork) proposalFor(fp Fingerprint) *localProposal {
	p, ok := n.proposals[fp]
	if !ok {
		p = &localProposal{
			proposalID: []byte(fp),
			votes:      zkvote.NewProposal([]byte(fp), n.pubKeySet),
			reveals:    make(map[int]zkvote.Vote),
		}
		n.proposals[fp] = p
	}
	return p
}

func (n *LocalGuardianNetwork) SubmitCommit(_ context.Context, fp Fingerprint, slot int, hash Hash) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	p := n.proposalFor(fp)
	return p.votes.Commit(slot, zkvote.Commitment(hash))
}

func (n *LocalGuardianNetwork) SubmitReveal(_ context.Context, fp Fingerprint, slot int, vote zkvote.Vote, proof zkvote.RevealProof) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	p := n.proposalFor(fp)
	if err := p.votes.Reveal(slot, &proof); err != nil {
		return err
	}
	p.reveals[slot] = vote
	n.tryResolve(p)
	return nil
}

// Vote is a convenience entry point for tests and demo wiring that play all
// guardian roles locally: it derives the commitment and reveal proof from
// this network's own per-slot secret and submits both in one call.
func (n *LocalGuardianNetwork) Vote(ctx context.Context, fp Fingerprint, slot int, vote zkvote.Vote, nonce []byte) error {
	n.mu.Lock()
	secret := n.secrets[slot]
	pubKeySet := n.pubKeySet
	n.mu.Unlock()

	proposalID := []byte(fp)
	commitment := zkvote.CommitHash(slot, vote, nonce, proposalID)
	if err := n.SubmitCommit(ctx, fp, slot, Hash(commitment)); err != nil {
		return err
	}
	proof, err := zkvote.NewProver().Prove(slot, vote, nonce, secret, proposalID, pubKeySet)
	if err != nil {
		return err
	}
	return n.SubmitReveal(ctx, fp, slot, vote, *proof)
}

func (n *LocalGuardianNetwork) PollTally(_ context.Context, fp Fingerprint) (TallySnapshot, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.proposals[fp]
	if !ok {
		return TallySnapshot{}, ErrGuardianProposalMissing
	}
	tally := p.votes.Tally()
	phase := PhaseCommit
	if p.finalized {
		phase = PhaseComplete
	} else if p.votes.Commits() == n.n {
		phase = PhaseReveal
	}
	return TallySnapshot{
		Approve:   tally.Approve,
		Reject:    tally.Reject,
		Abstain:   tally.Abstain,
		Pending:   n.n - tally.Approve - tally.Reject - tally.Abstain,
		Phase:     phase,
		Signature: p.signature,
	}, nil
}

// SignDelayed assembles a threshold signature over OutcomeTagDelayedApproved
// using whichever slots have revealed so far, regardless of whether either
// vote tally threshold has been crossed. It exists for the case where a VDF
// time-lock finishes before voting resolves: the orchestrator still needs an
// attestation that at least signThreshold guardians looked at the proposal,
// even though no approve/reject decision exists yet.
func (n *LocalGuardianNetwork) SignDelayed(_ context.Context, fp Fingerprint) (*ThresholdSigWire, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.proposals[fp]
	if !ok {
		return nil, ErrGuardianProposalMissing
	}

	participants := make([]int, 0, len(p.reveals))
	for slot := range p.reveals {
		participants = append(participants, slot+1)
	}
	sort.Ints(participants)
	return n.signOutcome(p.proposalID, OutcomeTagDelayedApproved, participants)
}

// tryResolve checks whether p's tally has crossed a decision threshold and,
// if so, assembles the threshold signature over the winning outcome tag.
// Called with n.mu held.
func (n *LocalGuardianNetwork) tryResolve(p *localProposal) {
	if p.finalized {
		return
	}
	tally := p.votes.Tally()
	var outcome OutcomeTag
	switch {
	case tally.Approve >= n.approvalThreshold:
		outcome = OutcomeTagApproved
	case tally.Reject >= n.rejectionThreshold:
		outcome = OutcomeTagRejected
	default:
		return
	}

	// Any signThreshold guardians who revealed can jointly sign the decided
	// outcome: FROST signs the group's attestation of the tally result, not
	// each signer's individual vote, so the signing set need not match the
	// winning side.
	participants := make([]int, 0, len(p.reveals))
	for slot := range p.reveals {
		participants = append(participants, slot+1)
	}
	sort.Ints(participants)
	sig, err := n.signOutcome(p.proposalID, outcome, participants)
	if err != nil {
		return
	}
	p.finalized = true
	p.outcome = outcome
	p.signature = sig
}

// signOutcome runs a full two-round FROST session over participants (DKG
// 1-indexed slots) for the message fingerprint||outcome, returning the
// aggregate signature's wire encoding.
func (n *LocalGuardianNetwork) signOutcome(proposalID []byte, outcome OutcomeTag, participants []int) (*ThresholdSigWire, error) {
	if len(participants) < n.signThreshold {
		return nil, ErrInsufficientSigners
	}
	participants = participants[:n.signThreshold]

	msg := append(append([]byte{}, proposalID...), []byte(outcome)...)
	session := sign.NewSession(n.dkgResult.GroupPK, n.signThreshold)

	commitments := make([]sign.NonceCommitment, 0, len(participants))
	for _, idx := range participants {
		nc, err := session.CommitNonces(idx)
		if err != nil {
			return nil, err
		}
		commitments = append(commitments, nc)
	}

	shares := make(map[int]*secp256k1.ModNScalar, len(participants))
	for _, idx := range participants {
		zi, err := session.SignShare(idx, msg, commitments, n.dkgResult.Shares[idx], participants)
		if err != nil {
			return nil, err
		}
		shares[idx] = zi
	}

	aggregate, err := sign.Aggregate(msg, n.dkgResult.GroupPK, commitments, shares, n.guardianPKs, participants)
	if err != nil {
		return nil, err
	}
	// The wire shape keeps only R's x-coordinate and DecodeThresholdSig
	// always rebuilds the even-y point, so a session whose R has odd y is
	// discarded and re-run with fresh nonces.
	if aggregate.R.SerializeCompressed()[0] != 0x02 {
		return n.signOutcome(proposalID, outcome, participants)
	}

	wire := EncodeThresholdSig(aggregate)
	return &wire, nil
}
