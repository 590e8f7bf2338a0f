package adapters

import (
	"context"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/zmlAEQ/airlock-core/internal/zkvote"
)

func TestIntent_FingerprintDeterministic(t *testing.T) {
	in := Intent{Destination: "0xabc", Payload: []byte("call"), Value: 10, SourceChain: "eth", Nonce: 1}
	if in.Fingerprint() != in.Fingerprint() {
		t.Fatal("fingerprint is not deterministic")
	}
	other := in
	other.Nonce = 2
	if in.Fingerprint() == other.Fingerprint() {
		t.Fatal("different nonces produced the same fingerprint")
	}
}

func TestMockScorer_RecordsCallsAndResult(t *testing.T) {
	s := NewMockScorer(ScoreResult{Score: 80, Verdict: VerdictDangerous})
	res, err := s.Analyze(context.Background(), ScoreInput{Sender: "a"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if res.Score != 80 || s.CallCount() != 1 {
		t.Fatalf("unexpected mock scorer state: %+v calls=%d", res, s.CallCount())
	}
}

func TestMockExecutor_RecordsEnvelope(t *testing.T) {
	e := NewMockExecutor(Receipt{TxHash: "0x1", Status: "ok"})
	env := Envelope{Fingerprint: Fingerprint("fp"), Outcome: OutcomeTagApproved}
	if _, err := e.Submit(context.Background(), env); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	last, ok := e.LastEnvelope()
	if !ok || last.Fingerprint != env.Fingerprint {
		t.Fatalf("expected envelope to be recorded, got %+v", last)
	}
}

func TestMockGuardianNetwork_CommitRevealPollTally(t *testing.T) {
	net := NewMockGuardianNetwork(3)
	fp := Fingerprint("fp-1")
	ctx := context.Background()

	for slot := 0; slot < 3; slot++ {
		if err := net.SubmitCommit(ctx, fp, slot, Hash{byte(slot)}); err != nil {
			t.Fatalf("SubmitCommit(%d) failed: %v", slot, err)
		}
	}
	if err := net.SubmitReveal(ctx, fp, 0, zkvote.VoteApprove, zkvote.RevealProof{}); err != nil {
		t.Fatalf("SubmitReveal failed: %v", err)
	}
	if err := net.SubmitReveal(ctx, fp, 1, zkvote.VoteReject, zkvote.RevealProof{}); err != nil {
		t.Fatalf("SubmitReveal failed: %v", err)
	}

	snap, err := net.PollTally(ctx, fp)
	if err != nil {
		t.Fatalf("PollTally failed: %v", err)
	}
	if snap.Approve != 1 || snap.Reject != 1 || snap.Pending != 1 {
		t.Fatalf("unexpected tally: %+v", snap)
	}
	if snap.Phase != PhaseReveal {
		t.Fatalf("expected PhaseReveal once all slots committed, got %v", snap.Phase)
	}
}

func TestMockGuardianNetwork_UnknownFingerprint(t *testing.T) {
	net := NewMockGuardianNetwork(3)
	if _, err := net.PollTally(context.Background(), Fingerprint("missing")); err != ErrGuardianProposalMissing {
		t.Fatalf("expected ErrGuardianProposalMissing, got %v", err)
	}
}

func TestMockPolicySource_Set(t *testing.T) {
	src := NewMockPolicySource(PolicySnapshot{Paused: false})
	snap, err := src.Snapshot(context.Background())
	if err != nil || snap.Paused {
		t.Fatalf("unexpected initial snapshot: %+v err=%v", snap, err)
	}
	src.Set(PolicySnapshot{Paused: true, Blacklist: map[string]struct{}{"bad": {}}})
	snap, _ = src.Snapshot(context.Background())
	if !snap.Paused || !snap.IsBlacklisted("bad") {
		t.Fatalf("expected updated snapshot, got %+v", snap)
	}
}

func TestGomockScorer_SatisfiesInterface(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := NewMockScorerGomock(ctrl)
	m.EXPECT().Analyze(gomock.Any(), gomock.Any()).Return(ScoreResult{Score: 10}, nil)

	var s Scorer = m
	res, err := s.Analyze(context.Background(), ScoreInput{})
	if err != nil || res.Score != 10 {
		t.Fatalf("unexpected gomock result: %+v err=%v", res, err)
	}
}
