package adapters

import (
	"bytes"
	"context"
	"testing"

	"github.com/zmlAEQ/airlock-core/internal/tss/sign"
	"github.com/zmlAEQ/airlock-core/internal/zkvote"
)

func TestNewLocalGuardianNetworkPersistent_ReloadsSameGroupKey(t *testing.T) {
	dir := t.TempDir()

	first, err := NewLocalGuardianNetworkPersistent(5, 3, 3, 3, dir)
	if err != nil {
		t.Fatalf("first NewLocalGuardianNetworkPersistent failed: %v", err)
	}

	second, err := NewLocalGuardianNetworkPersistent(5, 3, 3, 3, dir)
	if err != nil {
		t.Fatalf("second NewLocalGuardianNetworkPersistent failed: %v", err)
	}

	if !bytes.Equal(first.GroupPK().SerializeCompressed(), second.GroupPK().SerializeCompressed()) {
		t.Fatal("reloading from the same key directory produced a different group public key")
	}
}

func TestNewLocalGuardianNetworkPersistent_EmptyDirRunsFreshCeremony(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()

	a, err := NewLocalGuardianNetworkPersistent(5, 3, 3, 3, dirA)
	if err != nil {
		t.Fatalf("NewLocalGuardianNetworkPersistent(dirA) failed: %v", err)
	}
	b, err := NewLocalGuardianNetworkPersistent(5, 3, 3, 3, dirB)
	if err != nil {
		t.Fatalf("NewLocalGuardianNetworkPersistent(dirB) failed: %v", err)
	}

	if bytes.Equal(a.GroupPK().SerializeCompressed(), b.GroupPK().SerializeCompressed()) {
		t.Fatal("two independent key directories produced the same group public key")
	}
}

func TestLocalGuardianNetwork_ApprovalResolvesAndSigns(t *testing.T) {
	net, err := NewLocalGuardianNetwork(10, 7, 7, 4)
	if err != nil {
		t.Fatalf("NewLocalGuardianNetwork failed: %v", err)
	}
	ctx := context.Background()
	fp := Fingerprint("fp-approve")

	for slot := 0; slot < 7; slot++ {
		if err := net.Vote(ctx, fp, slot, zkvote.VoteApprove, []byte{byte(slot)}); err != nil {
			t.Fatalf("Vote(%d) failed: %v", slot, err)
		}
	}
	for slot := 7; slot < 9; slot++ {
		if err := net.Vote(ctx, fp, slot, zkvote.VoteReject, []byte{byte(slot)}); err != nil {
			t.Fatalf("Vote(%d) failed: %v", slot, err)
		}
	}

	snap, err := net.PollTally(ctx, fp)
	if err != nil {
		t.Fatalf("PollTally failed: %v", err)
	}
	if snap.Approve != 7 || snap.Phase != PhaseComplete {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.Signature == nil {
		t.Fatal("expected a threshold signature once approval resolved")
	}

	msg := append(append([]byte{}, []byte(fp)...), []byte(OutcomeTagApproved)...)
	sig, err := DecodeThresholdSig(*snap.Signature)
	if err != nil {
		t.Fatalf("DecodeThresholdSig failed: %v", err)
	}
	if !sign.Verify(msg, net.GroupPK(), sig) {
		t.Fatal("aggregate signature failed verification against group pk")
	}
}

func TestLocalGuardianNetwork_RejectionResolves(t *testing.T) {
	net, err := NewLocalGuardianNetwork(10, 7, 7, 4)
	if err != nil {
		t.Fatalf("NewLocalGuardianNetwork failed: %v", err)
	}
	ctx := context.Background()
	fp := Fingerprint("fp-reject")

	for slot := 0; slot < 4; slot++ {
		if err := net.Vote(ctx, fp, slot, zkvote.VoteReject, []byte{byte(slot)}); err != nil {
			t.Fatalf("Vote(%d) failed: %v", slot, err)
		}
	}
	// Rejection crosses its tally threshold at 4 reveals, but signing still
	// needs signThreshold=7 guardians to have revealed (any of them, not
	// just the ones who voted reject) before a signature can be assembled.
	for slot := 4; slot < 7; slot++ {
		if err := net.Vote(ctx, fp, slot, zkvote.VoteApprove, []byte{byte(slot)}); err != nil {
			t.Fatalf("Vote(%d) failed: %v", slot, err)
		}
	}

	snap, err := net.PollTally(ctx, fp)
	if err != nil {
		t.Fatalf("PollTally failed: %v", err)
	}
	if snap.Reject != 4 || snap.Signature == nil {
		t.Fatalf("expected resolved rejection with signature, got %+v", snap)
	}
}

func TestLocalGuardianNetwork_SignDelayedSignsOverDelayedApprovedTag(t *testing.T) {
	net, err := NewLocalGuardianNetwork(10, 7, 7, 4)
	if err != nil {
		t.Fatalf("NewLocalGuardianNetwork failed: %v", err)
	}
	ctx := context.Background()
	fp := Fingerprint("fp-delayed")

	// 4 approvals and 3 rejections: 7 total reveals clears signThreshold=7
	// but neither decision threshold (approve>=7, reject>=4 crosses, so
	// pick votes that keep approve below 7 while still reaching 7 reveals).
	for slot := 0; slot < 4; slot++ {
		if err := net.Vote(ctx, fp, slot, zkvote.VoteApprove, []byte{byte(slot)}); err != nil {
			t.Fatalf("Vote(%d) failed: %v", slot, err)
		}
	}
	for slot := 4; slot < 7; slot++ {
		if err := net.Vote(ctx, fp, slot, zkvote.VoteReject, []byte{byte(slot)}); err != nil {
			t.Fatalf("Vote(%d) failed: %v", slot, err)
		}
	}

	snap, err := net.PollTally(ctx, fp)
	if err != nil {
		t.Fatalf("PollTally failed: %v", err)
	}
	if snap.Signature != nil {
		t.Fatalf("expected no decided signature yet (4 approve, 3 reject), got %+v", snap)
	}

	sig, err := net.SignDelayed(ctx, fp)
	if err != nil {
		t.Fatalf("SignDelayed failed: %v", err)
	}
	if sig == nil {
		t.Fatal("expected a signature once signThreshold guardians revealed")
	}

	msg := append(append([]byte{}, []byte(fp)...), []byte(OutcomeTagDelayedApproved)...)
	decoded, err := DecodeThresholdSig(*sig)
	if err != nil {
		t.Fatalf("DecodeThresholdSig failed: %v", err)
	}
	if !sign.Verify(msg, net.GroupPK(), decoded) {
		t.Fatal("delayed-approved signature failed verification against the delayed-approved tag")
	}

	msgWrongTag := append(append([]byte{}, []byte(fp)...), []byte(OutcomeTagApproved)...)
	if sign.Verify(msgWrongTag, net.GroupPK(), decoded) {
		t.Fatal("delayed-approved signature must not also verify against the plain approved tag")
	}
}

func TestLocalGuardianNetwork_SignDelayedInsufficientReveals(t *testing.T) {
	net, err := NewLocalGuardianNetwork(10, 7, 7, 4)
	if err != nil {
		t.Fatalf("NewLocalGuardianNetwork failed: %v", err)
	}
	ctx := context.Background()
	fp := Fingerprint("fp-delayed-too-few")

	for slot := 0; slot < 3; slot++ {
		if err := net.Vote(ctx, fp, slot, zkvote.VoteApprove, []byte{byte(slot)}); err != nil {
			t.Fatalf("Vote(%d) failed: %v", slot, err)
		}
	}

	if _, err := net.SignDelayed(ctx, fp); err != ErrInsufficientSigners {
		t.Fatalf("expected ErrInsufficientSigners with only 3 reveals, got %v", err)
	}
}

func TestLocalGuardianNetwork_PendingBelowThreshold(t *testing.T) {
	net, err := NewLocalGuardianNetwork(10, 7, 7, 4)
	if err != nil {
		t.Fatalf("NewLocalGuardianNetwork failed: %v", err)
	}
	ctx := context.Background()
	fp := Fingerprint("fp-pending")

	if err := net.Vote(ctx, fp, 0, zkvote.VoteApprove, []byte{0}); err != nil {
		t.Fatalf("Vote failed: %v", err)
	}
	snap, err := net.PollTally(ctx, fp)
	if err != nil {
		t.Fatalf("PollTally failed: %v", err)
	}
	if snap.Signature != nil {
		t.Fatalf("expected no signature yet, got %+v", snap.Signature)
	}
}
