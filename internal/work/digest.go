package work

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// NonceSize is the size in bytes of a link key produced by Search.
const NonceSize = 4

// DigestSize is the size in bytes of a SHA3-224 digest.
const DigestSize = 28

// Digest computes SHA3-224(prev || payload || nonce).
func Digest(prev, payload, nonce []byte) []byte {
	buf := make([]byte, 0, len(prev)+len(payload)+len(nonce))
	buf = append(buf, prev...)
	buf = append(buf, payload...)
	buf = append(buf, nonce...)
	sum := sha3.Sum224(buf)
	return sum[:]
}

// Verify reports whether nonce links payload to prev at the given bit cost.
// It performs exactly one digest.
func Verify(prev, payload, nonce []byte, bits int) bool {
	return BitMatch(bits, prev, Digest(prev, payload, nonce))
}

// EncodeNonce returns the little-endian bytes of n.
func EncodeNonce(n uint32) [NonceSize]byte {
	var b [NonceSize]byte
	binary.LittleEndian.PutUint32(b[:], n)
	return b
}
