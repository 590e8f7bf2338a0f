package sign

import (
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/zmlAEQ/airlock-core/internal/tss/core"
	"github.com/zmlAEQ/airlock-core/internal/tss/dkg"
)

func runFullSignature(t *testing.T, n, threshold int, participants []int, msg []byte) (Signature, *secp256k1.PublicKey) {
	res, err := dkg.RunDKG(n, threshold)
	if err != nil {
		t.Fatalf("RunDKG failed: %v", err)
	}

	guardianPKs := make(map[int]*secp256k1.PublicKey, len(participants))
	for _, idx := range participants {
		guardianPKs[idx] = core.BasePoint(res.Shares[idx])
	}

	sess := NewSession(res.GroupPK, threshold)
	commitments := make([]NonceCommitment, 0, len(participants))
	for _, idx := range participants {
		c, err := sess.CommitNonces(idx)
		if err != nil {
			t.Fatalf("CommitNonces(%d) failed: %v", idx, err)
		}
		commitments = append(commitments, c)
	}

	shares := make(map[int]*secp256k1.ModNScalar, len(participants))
	for _, idx := range participants {
		z, err := sess.SignShare(idx, msg, commitments, res.Shares[idx], participants)
		if err != nil {
			t.Fatalf("SignShare(%d) failed: %v", idx, err)
		}
		shares[idx] = z
	}

	sig, err := Aggregate(msg, res.GroupPK, commitments, shares, guardianPKs, participants)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	return sig, res.GroupPK
}

func TestFROST_EndToEndSignAndVerify(t *testing.T) {
	participants := []int{1, 2, 3, 4, 5, 6, 7}
	msg := []byte("proposal-fingerprint|approve")
	sig, groupPK := runFullSignature(t, 10, 7, participants, msg)

	if !Verify(msg, groupPK, sig) {
		t.Fatal("valid threshold signature failed verification")
	}
}

func TestFROST_VerifyRejectsWrongMessage(t *testing.T) {
	participants := []int{1, 2, 3, 4, 5, 6, 7}
	msg := []byte("proposal-fingerprint|approve")
	sig, groupPK := runFullSignature(t, 10, 7, participants, msg)

	if Verify([]byte("proposal-fingerprint|reject"), groupPK, sig) {
		t.Fatal("signature over a different message should not verify")
	}
}

func TestSession_DuplicateSlotRejected(t *testing.T) {
	res, err := dkg.RunDKG(5, 3)
	if err != nil {
		t.Fatalf("RunDKG failed: %v", err)
	}
	sess := NewSession(res.GroupPK, 3)
	if _, err := sess.CommitNonces(1); err != nil {
		t.Fatalf("first CommitNonces failed: %v", err)
	}
	if _, err := sess.CommitNonces(1); err != ErrDuplicateSlot {
		t.Fatalf("expected ErrDuplicateSlot, got %v", err)
	}
}

func TestSignShare_InsufficientParticipants(t *testing.T) {
	participants := []int{1, 2, 3}
	msg := []byte("msg")
	res, err := dkg.RunDKG(10, 7)
	if err != nil {
		t.Fatalf("RunDKG failed: %v", err)
	}
	sess := NewSession(res.GroupPK, 7)
	commitments := make([]NonceCommitment, 0, len(participants))
	for _, idx := range participants {
		c, err := sess.CommitNonces(idx)
		if err != nil {
			t.Fatalf("CommitNonces failed: %v", err)
		}
		commitments = append(commitments, c)
	}
	if _, err := sess.SignShare(1, msg, commitments, res.Shares[1], participants); err != ErrInsufficientParticipants {
		t.Fatalf("expected ErrInsufficientParticipants, got %v", err)
	}
}

func TestAggregate_RejectsForgedShare(t *testing.T) {
	participants := []int{1, 2, 3, 4, 5, 6, 7}
	msg := []byte("proposal-fingerprint|approve")

	res, err := dkg.RunDKG(10, 7)
	if err != nil {
		t.Fatalf("RunDKG failed: %v", err)
	}
	guardianPKs := make(map[int]*secp256k1.PublicKey, len(participants))
	for _, idx := range participants {
		guardianPKs[idx] = core.BasePoint(res.Shares[idx])
	}
	sess := NewSession(res.GroupPK, 7)
	commitments := make([]NonceCommitment, 0, len(participants))
	for _, idx := range participants {
		c, err := sess.CommitNonces(idx)
		if err != nil {
			t.Fatalf("CommitNonces failed: %v", err)
		}
		commitments = append(commitments, c)
	}
	shares := make(map[int]*secp256k1.ModNScalar, len(participants))
	for _, idx := range participants {
		z, err := sess.SignShare(idx, msg, commitments, res.Shares[idx], participants)
		if err != nil {
			t.Fatalf("SignShare failed: %v", err)
		}
		shares[idx] = z
	}
	// Corrupt one guardian's share.
	shares[3] = core.AddScalars(shares[3], core.ScalarFromInt(1))

	if _, err := Aggregate(msg, res.GroupPK, commitments, shares, guardianPKs, participants); err != ErrInvalidShare {
		t.Fatalf("expected ErrInvalidShare, got %v", err)
	}
}
