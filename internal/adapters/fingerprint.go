package adapters

import (
	"encoding/binary"

	"lukechampine.com/blake3"
)

// computeFingerprint hashes an intent's identifying fields into a single
// 32-byte key, using the same hash family internal/zkvote uses for
// commitments so the core has one algebraic-hash choice throughout.
func computeFingerprint(destination string, payload []byte, value uint64, sourceChain string, nonce uint64) [32]byte {
	h := blake3.New(32, nil)
	h.Write([]byte(destination))
	h.Write(payload)
	var valueBuf, nonceBuf [8]byte
	binary.BigEndian.PutUint64(valueBuf[:], value)
	binary.BigEndian.PutUint64(nonceBuf[:], nonce)
	h.Write(valueBuf[:])
	h.Write([]byte(sourceChain))
	h.Write(nonceBuf[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
