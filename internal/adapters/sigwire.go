package adapters

import (
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/zmlAEQ/airlock-core/internal/tss/sign"
)

// ErrInvalidSignatureWire is returned when a ThresholdSigWire's R coordinate
// does not correspond to any point on the curve under either parity.
var ErrInvalidSignatureWire = errors.New("adapters: threshold signature wire encoding is invalid")

// EncodeThresholdSig projects a FROST aggregate signature into a fixed
// {R, z} wire shape: R as its 32-byte x-coordinate. The y parity is not
// carried, so only a signature whose R has even y round-trips through
// DecodeThresholdSig, the same x-only convention BIP340 uses.
func EncodeThresholdSig(sig sign.Signature) ThresholdSigWire {
	var wire ThresholdSigWire
	compressed := sig.R.SerializeCompressed()
	copy(wire.R[:], compressed[1:])
	zBytes := sig.Z.Bytes()
	copy(wire.Z[:], zBytes[:])
	return wire
}

// DecodeThresholdSig reconstructs a sign.Signature from its wire encoding.
// The wire shape carries only R's x-coordinate, and any x on the curve parses
// under the even prefix, so the returned R is always the even-y point.
func DecodeThresholdSig(wire ThresholdSigWire) (sign.Signature, error) {
	var z secp256k1.ModNScalar
	if overflow := z.SetBytes(&wire.Z); overflow != 0 {
		return sign.Signature{}, ErrInvalidSignatureWire
	}
	for _, prefix := range [2]byte{0x02, 0x03} {
		compressed := append([]byte{prefix}, wire.R[:]...)
		if r, err := secp256k1.ParsePubKey(compressed); err == nil {
			return sign.Signature{R: r, Z: &z}, nil
		}
	}
	return sign.Signature{}, ErrInvalidSignatureWire
}
