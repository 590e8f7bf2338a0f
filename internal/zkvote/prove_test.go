package zkvote

import "testing"

func TestProveAndVerify_RoundTrip(t *testing.T) {
	secret := []byte("guardian-3-secret")
	pubKeySet := []PubKey{PubKeyFor([]byte("g0")), PubKeyFor([]byte("g1")), PubKeyFor(secret)}
	proposalID := []byte("proposal-42")
	nonce := []byte("nonce-1")

	p := NewProver()
	proof, err := p.Prove(2, VoteApprove, nonce, secret, proposalID, pubKeySet)
	if err != nil {
		t.Fatalf("Prove failed: %v", err)
	}

	commitment := CommitHash(2, VoteApprove, nonce, proposalID)
	v := NewVerifier()
	vote, ok := v.Verify(proof, proposalID, commitment)
	if !ok {
		t.Fatal("valid proof failed verification")
	}
	if vote != VoteApprove {
		t.Fatalf("expected VoteApprove, got %v", vote)
	}
}

func TestProve_RejectsWrongSecret(t *testing.T) {
	pubKeySet := []PubKey{PubKeyFor([]byte("g0")), PubKeyFor([]byte("g1"))}
	p := NewProver()
	_, err := p.Prove(0, VoteApprove, []byte("n"), []byte("not-the-secret"), []byte("pid"), pubKeySet)
	if err != ErrSecretMismatch {
		t.Fatalf("expected ErrSecretMismatch, got %v", err)
	}
}

func TestVerify_RejectsWrongProposal(t *testing.T) {
	secret := []byte("secret")
	pubKeySet := []PubKey{PubKeyFor(secret)}
	proposalID := []byte("pid-1")
	nonce := []byte("n")

	proof, err := NewProver().Prove(0, VoteReject, nonce, secret, proposalID, pubKeySet)
	if err != nil {
		t.Fatalf("Prove failed: %v", err)
	}

	commitment := CommitHash(0, VoteReject, nonce, proposalID)
	vote, ok := NewVerifier().Verify(proof, []byte("pid-2"), commitment)
	if ok {
		t.Fatal("proof should not verify against a different proposal id")
	}
	if vote != VoteAbstain {
		t.Fatal("failed verification should report VoteAbstain")
	}
}

func TestVerify_RejectsTamperedCommitment(t *testing.T) {
	secret := []byte("secret")
	pubKeySet := []PubKey{PubKeyFor(secret)}
	proposalID := []byte("pid")
	nonce := []byte("n")

	proof, err := NewProver().Prove(0, VoteApprove, nonce, secret, proposalID, pubKeySet)
	if err != nil {
		t.Fatalf("Prove failed: %v", err)
	}

	wrongCommitment := CommitHash(0, VoteReject, nonce, proposalID)
	if _, ok := NewVerifier().Verify(proof, proposalID, wrongCommitment); ok {
		t.Fatal("proof should not verify against a mismatched commitment")
	}
}

func TestTally_Resolve(t *testing.T) {
	cases := []struct {
		name    string
		tally   Tally
		approve int
		reject  int
		expired bool
		want    Outcome
	}{
		{"approved", Tally{Approve: 7}, 7, 3, false, OutcomeApproved},
		{"rejected", Tally{Reject: 4}, 7, 3, false, OutcomeRejected},
		{"pending", Tally{Approve: 3, Reject: 1}, 7, 3, false, OutcomePending},
		{"expired", Tally{Approve: 3, Reject: 1}, 7, 3, true, OutcomeExpired},
	}
	for _, c := range cases {
		if got := c.tally.Resolve(c.approve, c.reject, c.expired); got != c.want {
			t.Errorf("%s: got %s, want %s", c.name, got, c.want)
		}
	}
}
