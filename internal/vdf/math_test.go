package vdf

import (
	"math/big"
	"testing"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	if p.T != 1<<21 {
		t.Errorf("expected T=2^21, got %d", p.T)
	}
	if p.Lambda != 128 {
		t.Errorf("expected Lambda=128, got %d", p.Lambda)
	}
}

func TestWesolowski_EvaluateAndVerify(t *testing.T) {
	n := smallModulus()
	w := NewWesolowskiWithModulus(n)

	proof, bypassed, err := w.Evaluate([]byte("test challenge"), 10, 0, nil)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if bypassed {
		t.Fatal("did not expect bypass")
	}
	if proof.Iterations != 10 {
		t.Errorf("expected iterations=10, got %d", proof.Iterations)
	}
	if len(proof.Output) == 0 || len(proof.Witness) == 0 {
		t.Fatal("output or witness is empty")
	}
	if !w.Verify(proof) {
		t.Fatal("valid proof failed verification")
	}
}

func TestWesolowski_VerifyRejectsTampered(t *testing.T) {
	n := smallModulus()
	w := NewWesolowskiWithModulus(n)

	proof, _, err := w.Evaluate([]byte("tamper test"), 8, 0, nil)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	tamperedOutput := proof
	out := append([]byte{}, proof.Output...)
	out[0] ^= 0xff
	tamperedOutput.Output = out
	if w.Verify(tamperedOutput) {
		t.Fatal("tampered output should fail verification")
	}

	tamperedWitness := proof
	wit := append([]byte{}, proof.Witness...)
	wit[0] ^= 0xff
	tamperedWitness.Witness = wit
	if w.Verify(tamperedWitness) {
		t.Fatal("tampered witness should fail verification")
	}
}

func TestWesolowski_NilChallenge(t *testing.T) {
	w := NewWesolowskiWithModulus(smallModulus())
	if _, _, err := w.Evaluate(nil, 5, 0, nil); err != ErrNilChallenge {
		t.Fatalf("expected ErrNilChallenge, got %v", err)
	}
	if _, _, err := w.Evaluate([]byte{}, 5, 0, nil); err != ErrNilChallenge {
		t.Fatalf("expected ErrNilChallenge for empty challenge, got %v", err)
	}
}

func TestWesolowski_ZeroIterations(t *testing.T) {
	w := NewWesolowskiWithModulus(smallModulus())
	if _, _, err := w.Evaluate([]byte("x"), 0, 0, nil); err != ErrZeroIterations {
		t.Fatalf("expected ErrZeroIterations, got %v", err)
	}
}

func TestWesolowski_VerifyRejectsZeroProof(t *testing.T) {
	w := NewWesolowskiWithModulus(smallModulus())
	if w.Verify(ZeroProof()) {
		t.Fatal("zero-proof should never verify")
	}
	if w.Verify(Proof{}) {
		t.Fatal("empty proof should fail verification")
	}
}

func TestWesolowski_Deterministic(t *testing.T) {
	n := smallModulus()
	w := NewWesolowskiWithModulus(n)

	p1, _, err := w.Evaluate([]byte("deterministic"), 10, 0, nil)
	if err != nil {
		t.Fatalf("first Evaluate failed: %v", err)
	}
	p2, _, err := w.Evaluate([]byte("deterministic"), 10, 0, nil)
	if err != nil {
		t.Fatalf("second Evaluate failed: %v", err)
	}
	if string(p1.Output) != string(p2.Output) {
		t.Fatal("same challenge should produce same output")
	}
}

func TestWesolowski_ProgressBypass(t *testing.T) {
	w := NewWesolowskiWithModulus(smallModulus())
	calls := 0
	_, bypassed, err := w.Evaluate([]byte("bypass test"), 100, 10, func(done uint64) bool {
		calls++
		return done >= 20
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !bypassed {
		t.Fatal("expected evaluation to be bypassed")
	}
	if calls == 0 {
		t.Fatal("expected progress callback to be invoked")
	}
}

func smallModulus() *big.Int {
	n := new(big.Int)
	n.SetString("10967535067461", 10)
	return n
}
