package work

import (
	crand "crypto/rand"
	"math/rand/v2"
)

// Source supplies the candidate nonces tried by Search.
//
// Implementations need not be safe for concurrent use; Search draws from a
// single goroutine.
type Source interface {
	Uint32() uint32
}

// NewSource returns a ChaCha8 generator seeded from crypto/rand.
func NewSource() Source {
	var seed [32]byte
	_, _ = crand.Read(seed[:]) // crypto/rand.Read never returns an error since Go 1.24
	return rand.New(rand.NewChaCha8(seed))
}
