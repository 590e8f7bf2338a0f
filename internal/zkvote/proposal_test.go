package zkvote

import "testing"

func TestProposal_CommitRevealFlow(t *testing.T) {
	secrets := [][]byte{[]byte("s0"), []byte("s1"), []byte("s2")}
	pubKeySet := make([]PubKey, len(secrets))
	for i, s := range secrets {
		pubKeySet[i] = PubKeyFor(s)
	}
	proposalID := []byte("proposal-1")
	prop := NewProposal(proposalID, pubKeySet)
	prover := NewProver()

	votes := []Vote{VoteApprove, VoteApprove, VoteReject}
	for slot, secret := range secrets {
		nonce := []byte{byte(slot)}
		c := CommitHash(slot, votes[slot], nonce, proposalID)
		if err := prop.Commit(slot, c); err != nil {
			t.Fatalf("Commit(%d) failed: %v", slot, err)
		}
		proof, err := prover.Prove(slot, votes[slot], nonce, secret, proposalID, pubKeySet)
		if err != nil {
			t.Fatalf("Prove(%d) failed: %v", slot, err)
		}
		if err := prop.Reveal(slot, proof); err != nil {
			t.Fatalf("Reveal(%d) failed: %v", slot, err)
		}
	}

	tally := prop.Tally()
	if tally.Approve != 2 || tally.Reject != 1 {
		t.Fatalf("unexpected tally: %+v", tally)
	}
}

func TestProposal_DuplicateCommitRejected(t *testing.T) {
	prop := NewProposal([]byte("pid"), []PubKey{PubKeyFor([]byte("s"))})
	c := CommitHash(0, VoteApprove, []byte("n"), []byte("pid"))
	if err := prop.Commit(0, c); err != nil {
		t.Fatalf("first Commit failed: %v", err)
	}
	if err := prop.Commit(0, c); err != ErrDuplicateSlot {
		t.Fatalf("expected ErrDuplicateSlot, got %v", err)
	}
}

func TestProposal_RevealWithoutCommit(t *testing.T) {
	prop := NewProposal([]byte("pid"), []PubKey{PubKeyFor([]byte("s"))})
	proof, err := NewProver().Prove(0, VoteApprove, []byte("n"), []byte("s"), []byte("pid"), []PubKey{PubKeyFor([]byte("s"))})
	if err != nil {
		t.Fatalf("Prove failed: %v", err)
	}
	if err := prop.Reveal(0, proof); err != ErrNotCommitted {
		t.Fatalf("expected ErrNotCommitted, got %v", err)
	}
}

func TestProposal_DuplicateRevealRejected(t *testing.T) {
	secret := []byte("s")
	pubKeySet := []PubKey{PubKeyFor(secret)}
	proposalID := []byte("pid")
	nonce := []byte("n")
	prop := NewProposal(proposalID, pubKeySet)

	c := CommitHash(0, VoteApprove, nonce, proposalID)
	if err := prop.Commit(0, c); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	proof, err := NewProver().Prove(0, VoteApprove, nonce, secret, proposalID, pubKeySet)
	if err != nil {
		t.Fatalf("Prove failed: %v", err)
	}
	if err := prop.Reveal(0, proof); err != nil {
		t.Fatalf("first Reveal failed: %v", err)
	}
	if err := prop.Reveal(0, proof); err != ErrAlreadyRevealed {
		t.Fatalf("expected ErrAlreadyRevealed, got %v", err)
	}
}
