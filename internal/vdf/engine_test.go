package vdf

import (
	"context"
	"math/big"
	"testing"
	"time"
)

func testEngine(maxConcurrent int64) *Engine {
	n := new(big.Int)
	n.SetString("10967535067461", 10)
	w := NewWesolowskiWithModulus(n)
	return NewEngine(w, maxConcurrent, 2)
}

func TestEngine_RequestAndAwait(t *testing.T) {
	e := testEngine(4)
	id, err := e.Request(context.Background(), []byte("intent-1"), 20)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	snap, err := e.Await(context.Background(), id)
	if err != nil {
		t.Fatalf("Await failed: %v", err)
	}
	if snap.Status != StatusReady {
		t.Fatalf("expected StatusReady, got %s", snap.Status)
	}
	if !e.Verify(snap.Proof) {
		t.Fatal("expected valid proof")
	}
}

func TestEngine_Bypass(t *testing.T) {
	e := testEngine(4)
	id, err := e.Request(context.Background(), []byte("intent-2"), 1_000_000)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if err := e.Bypass(id); err != nil {
		t.Fatalf("Bypass failed: %v", err)
	}
	snap, err := e.Await(context.Background(), id)
	if err != nil {
		t.Fatalf("Await failed: %v", err)
	}
	if snap.Status != StatusBypassed {
		t.Fatalf("expected StatusBypassed, got %s", snap.Status)
	}
	if !snap.Proof.IsZero() {
		t.Fatal("expected zero-proof on bypass")
	}
	if e.Verify(snap.Proof) {
		t.Fatal("zero-proof must never verify")
	}

	// Idempotent: a second Bypass on an already-finished job is a no-op.
	if err := e.Bypass(id); err != nil {
		t.Fatalf("second Bypass should be a no-op, got %v", err)
	}
}

func TestEngine_UnknownJob(t *testing.T) {
	e := testEngine(4)
	if _, ok := e.Poll(JobID("nope")); ok {
		t.Fatal("expected unknown job")
	}
	if err := e.Bypass(JobID("nope")); err != ErrUnknownJob {
		t.Fatalf("expected ErrUnknownJob, got %v", err)
	}
}

func TestEngine_RateLimited(t *testing.T) {
	e := testEngine(1)
	id, err := e.Request(context.Background(), []byte("slow"), 5_000_000)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer e.Bypass(id)

	if _, err := e.Request(context.Background(), []byte("second"), 10); err != ErrRateLimited {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestEngine_AwaitContextCancel(t *testing.T) {
	e := testEngine(4)
	id, err := e.Request(context.Background(), []byte("ctx-cancel"), 5_000_000)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer e.Bypass(id)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	if _, err := e.Await(ctx, id); err == nil {
		t.Fatal("expected context deadline error")
	}
}
