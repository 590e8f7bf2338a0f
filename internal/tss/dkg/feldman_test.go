package dkg

import "testing"

func TestRunDKG_ProducesConsistentShares(t *testing.T) {
	res, err := RunDKG(10, 7)
	if err != nil {
		t.Fatalf("RunDKG failed: %v", err)
	}
	if len(res.Shares) != 10 {
		t.Fatalf("expected 10 shares, got %d", len(res.Shares))
	}
	if res.GroupPK == nil {
		t.Fatal("expected a non-nil group public key")
	}
}

func TestRunDKG_InvalidParams(t *testing.T) {
	cases := []struct{ n, t int }{
		{0, 1}, {5, 0}, {5, 6}, {-1, 1},
	}
	for _, c := range cases {
		if _, err := RunDKG(c.n, c.t); err != ErrInvalidParams {
			t.Fatalf("RunDKG(%d,%d): expected ErrInvalidParams, got %v", c.n, c.t, err)
		}
	}
}

func TestToKeyShare_RoundTripsThroughVerify(t *testing.T) {
	res, err := RunDKG(5, 3)
	if err != nil {
		t.Fatalf("RunDKG failed: %v", err)
	}
	for i := 1; i <= res.N; i++ {
		ks, err := res.ToKeyShare(i)
		if err != nil {
			t.Fatalf("ToKeyShare(%d) failed: %v", i, err)
		}
		ok, err := VerifyKeyShare(ks)
		if err != nil {
			t.Fatalf("VerifyKeyShare(%d) failed: %v", i, err)
		}
		if !ok {
			t.Fatalf("guardian %d's persisted share should verify", i)
		}
	}
}

func TestVerifyKeyShare_RejectsTamperedShare(t *testing.T) {
	res, err := RunDKG(5, 3)
	if err != nil {
		t.Fatalf("RunDKG failed: %v", err)
	}
	ks, err := res.ToKeyShare(1)
	if err != nil {
		t.Fatalf("ToKeyShare failed: %v", err)
	}
	ks.Share[0] ^= 0xff
	ok, err := VerifyKeyShare(ks)
	if err != nil {
		t.Fatalf("VerifyKeyShare failed: %v", err)
	}
	if ok {
		t.Fatal("tampered share should fail verification")
	}
}
