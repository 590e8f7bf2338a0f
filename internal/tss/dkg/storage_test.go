package dkg

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestKeyStore_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guardian-1.dat")
	ks := NewKeyStore(path)

	want := KeyShare{Index: 1, GroupPK: []byte{1, 2, 3}, Share: []byte{4, 5, 6}, Commitments: [][]byte{{7, 8}}}
	if err := ks.SaveKeyShare(context.Background(), want); err != nil {
		t.Fatalf("SaveKeyShare failed: %v", err)
	}

	got, err := ks.LoadKeyShare(context.Background())
	if err != nil {
		t.Fatalf("LoadKeyShare failed: %v", err)
	}
	if got.Index != want.Index || string(got.Share) != string(want.Share) {
		t.Fatalf("loaded share mismatch: got %+v want %+v", got, want)
	}
}

func TestKeyStore_FallsBackToBak(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guardian-2.dat")
	ks := NewKeyStore(path)

	first := KeyShare{Index: 2, Share: []byte{1}}
	second := KeyShare{Index: 2, Share: []byte{2}}
	if err := ks.SaveKeyShare(context.Background(), first); err != nil {
		t.Fatalf("first SaveKeyShare failed: %v", err)
	}
	if err := ks.SaveKeyShare(context.Background(), second); err != nil {
		t.Fatalf("second SaveKeyShare failed: %v", err)
	}

	// Corrupt the primary file; .bak should still hold `first`.
	if err := os.WriteFile(path, []byte("garbage"), 0o600); err != nil {
		t.Fatalf("corrupting primary failed: %v", err)
	}

	got, err := ks.LoadKeyShare(context.Background())
	if err != nil {
		t.Fatalf("LoadKeyShare should fall back to .bak, got error: %v", err)
	}
	if string(got.Share) != string(first.Share) {
		t.Fatalf("expected fallback to first share, got %+v", got)
	}
}

func TestKeyStore_NotFound(t *testing.T) {
	dir := t.TempDir()
	ks := NewKeyStore(filepath.Join(dir, "missing.dat"))
	if _, err := ks.LoadKeyShare(context.Background()); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestKeyStore_EncryptedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guardian-3.dat")
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	ks := NewKeyStoreEncrypted(path, key, true)

	want := KeyShare{Index: 3, Share: []byte{9, 9, 9}}
	if err := ks.SaveKeyShare(context.Background(), want); err != nil {
		t.Fatalf("SaveKeyShare failed: %v", err)
	}
	got, err := ks.LoadKeyShare(context.Background())
	if err != nil {
		t.Fatalf("LoadKeyShare failed: %v", err)
	}
	if string(got.Share) != string(want.Share) {
		t.Fatalf("decrypted share mismatch: got %+v want %+v", got, want)
	}

	// Without the key, a fresh KeyStore cannot decrypt the file.
	unkeyed := NewKeyStore(path)
	if _, err := unkeyed.LoadKeyShare(context.Background()); err == nil {
		t.Fatal("expected failure reading encrypted share without key")
	}
}
