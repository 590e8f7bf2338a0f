package dkg

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zmlAEQ/airlock-core/pkg/logger"
	"github.com/zmlAEQ/airlock-core/pkg/metrics"
)

// KeyStore persists a guardian's KeyShare to disk using an atomic write
// (tmp file + fsync + rename) with a .bak fallback for recovery, and an
// optional AES-256-GCM encryption layer for the share at rest.
type KeyStore struct {
	mu      sync.Mutex
	path    string
	aead    cipher.AEAD
	encrypt bool
	zeroize bool
}

// NewKeyStore builds a KeyStore at path with encryption disabled.
func NewKeyStore(path string) *KeyStore { return &KeyStore{path: path} }

// NewKeyStoreEncrypted builds a KeyStore with AES-256-GCM encryption using
// the given 32-byte key. zeroize, if true, best-effort zeroes plaintext
// buffers after use. An invalid key length falls back to no encryption.
func NewKeyStoreEncrypted(path string, key []byte, zeroize bool) *KeyStore {
	ks := &KeyStore{path: path}
	if len(key) != 32 {
		return ks
	}
	if a, err := newAESGCM(key); err == nil {
		ks.aead = a
		ks.encrypt = true
		ks.zeroize = zeroize
	}
	zero(key)
	return ks
}

// NewKeyStoreFromEnv builds a KeyStore configured from environment
// variables: AIRLOCK_KEYSTORE_ENCRYPT=1 enables encryption, with the key
// supplied via AIRLOCK_KEYSTORE_KEY (64 hex chars) or
// AIRLOCK_KEYSTORE_KEY_FILE (raw 32 bytes); AIRLOCK_ZEROIZE=1 enables
// best-effort memory zeroing.
func NewKeyStoreFromEnv(path string) *KeyStore {
	if os.Getenv("AIRLOCK_KEYSTORE_ENCRYPT") == "1" {
		var key []byte
		if hexStr := os.Getenv("AIRLOCK_KEYSTORE_KEY"); hexStr != "" {
			if b, err := hex.DecodeString(hexStr); err == nil {
				key = b
			}
		} else if f := os.Getenv("AIRLOCK_KEYSTORE_KEY_FILE"); f != "" {
			if b, err := os.ReadFile(f); err == nil {
				key = b
			}
		}
		zeroize := os.Getenv("AIRLOCK_ZEROIZE") == "1"
		return NewKeyStoreEncrypted(path, key, zeroize)
	}
	return NewKeyStore(path)
}

// ErrNotFound is returned when neither the primary file nor its .bak
// fallback can be read.
var ErrNotFound = errors.New("dkg: key share not found")

const (
	magicTSS    uint32 = 0x41495253 // 'AIRS'
	version     uint16 = 1
	flagEncrypt uint16 = 1 << 0
)

// On-disk layout: [magic u32][version u16][flags u16][length u32][crc32 u32]
// [payload...]. payload is JSON-encoded KeyShare, optionally wrapped as
// nonce(12B)||ciphertext when encryption is enabled.
func (s *KeyStore) writeAtomic(path string, ks KeyShare) error {
	dir := filepath.Dir(path)
	tmp := path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(ks)
	if err != nil {
		_ = f.Close()
		return err
	}

	flags := uint16(0)
	body := payload
	if s.encrypt && s.aead != nil {
		nonce := make([]byte, 12)
		if _, err := rand.Read(nonce); err != nil {
			_ = f.Close()
			zero(payload)
			return err
		}
		sealed := s.aead.Seal(nil, nonce, payload, nil)
		body = make([]byte, 0, len(nonce)+len(sealed))
		body = append(body, nonce...)
		body = append(body, sealed...)
		flags |= flagEncrypt
		if s.zeroize {
			zero(payload)
		}
	}

	length := uint32(len(body))
	crc := crc32.ChecksumIEEE(body)

	var hdr [4 + 2 + 2 + 4 + 4]byte
	off := 0
	binary.BigEndian.PutUint32(hdr[off:], magicTSS)
	off += 4
	binary.BigEndian.PutUint16(hdr[off:], version)
	off += 2
	binary.BigEndian.PutUint16(hdr[off:], flags)
	off += 2
	binary.BigEndian.PutUint32(hdr[off:], length)
	off += 4
	binary.BigEndian.PutUint32(hdr[off:], crc)

	if _, err = f.Write(hdr[:]); err != nil {
		_ = f.Close()
		return err
	}
	if _, err = f.Write(body); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}

	if d, err2 := os.Open(dir); err2 == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	bak := path + ".bak"
	if _, err := os.Stat(path); err == nil {
		_ = os.Rename(path, bak)
	}
	if err = os.Rename(tmp, path); err != nil {
		return err
	}
	if d, err2 := os.Open(dir); err2 == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

func (s *KeyStore) readFile(path string) (KeyShare, error) {
	f, err := os.Open(path)
	if err != nil {
		return KeyShare{}, err
	}
	defer f.Close()
	var hdr [4 + 2 + 2 + 4 + 4]byte
	if _, err = io.ReadFull(f, hdr[:]); err != nil {
		return KeyShare{}, err
	}
	off := 0
	mg := binary.BigEndian.Uint32(hdr[off:])
	off += 4
	if mg != magicTSS {
		return KeyShare{}, errors.New("dkg: bad magic")
	}
	_ = binary.BigEndian.Uint16(hdr[off:])
	off += 2
	flags := binary.BigEndian.Uint16(hdr[off:])
	off += 2
	length := binary.BigEndian.Uint32(hdr[off:])
	off += 4
	want := binary.BigEndian.Uint32(hdr[off:])
	if length == 0 {
		return KeyShare{}, errors.New("dkg: bad length")
	}
	body := make([]byte, int(length))
	if _, err = io.ReadFull(f, body); err != nil {
		return KeyShare{}, err
	}
	if got := crc32.ChecksumIEEE(body); got != want {
		return KeyShare{}, errors.New("dkg: crc mismatch")
	}

	var plain []byte
	if (flags & flagEncrypt) != 0 {
		if s.aead == nil {
			return KeyShare{}, errors.New("dkg: encrypted but no key configured")
		}
		if len(body) < 12 {
			return KeyShare{}, errors.New("dkg: bad nonce")
		}
		nonce, ct := body[:12], body[12:]
		p, err := s.aead.Open(nil, nonce, ct, nil)
		if err != nil {
			return KeyShare{}, err
		}
		plain = p
	} else {
		plain = body
	}

	var ks KeyShare
	err = json.Unmarshal(plain, &ks)
	if s.zeroize && len(plain) > 0 {
		zero(plain)
	}
	if err != nil {
		return KeyShare{}, err
	}
	return ks, nil
}

// SaveKeyShare persists ks atomically, timing the operation and logging the
// outcome.
func (s *KeyStore) SaveKeyShare(_ context.Context, ks KeyShare) error {
	begin := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeAtomic(s.path, ks); err != nil {
		metrics.Inc("dkg_persist_errors_total", nil)
		logger.ErrorJ("dkg_storage", map[string]any{"op": "persist", "result": "error", "err": err.Error()})
		return err
	}
	ms := float64(time.Since(begin).Milliseconds())
	metrics.ObserveSummary("dkg_persist_ms", nil, ms)
	logger.InfoJ("dkg_storage", map[string]any{"op": "persist", "result": "ok", "latency_ms": ms, "index": ks.Index})
	return nil
}

// LoadKeyShare reads the persisted KeyShare, falling back to the .bak copy
// if the primary file is missing or corrupt.
func (s *KeyStore) LoadKeyShare(_ context.Context) (KeyShare, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ks, err := s.readFile(s.path); err == nil {
		metrics.Inc("dkg_recovery_total", map[string]string{"result": "ok"})
		return ks, nil
	}
	if ks, err := s.readFile(s.path + ".bak"); err == nil {
		metrics.Inc("dkg_recovery_total", map[string]string{"result": "fallback"})
		logger.InfoJ("dkg_storage", map[string]any{"op": "recovery", "result": "fallback"})
		return ks, nil
	}
	metrics.Inc("dkg_recovery_total", map[string]string{"result": "fail"})
	return KeyShare{}, ErrNotFound
}

// Close is a no-op; KeyStore holds no resources beyond the AEAD key already
// captured at construction.
func (s *KeyStore) Close() error { return nil }

func newAESGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
