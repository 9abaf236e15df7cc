package testutil

import (
	"math/rand/v2"
	"sync"
)

// NewSeededSource returns a reproducible nonce source for tests.
//
// Two sources built from the same seed yield the same sequence, so a mining
// run driven by one can be replayed exactly.
func NewSeededSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// FixedSource returns predetermined nonces in order.
//
// Thread-safety: FixedSource is safe for concurrent use via internal mutex.
type FixedSource struct {
	mu     sync.Mutex
	values []uint32
	idx    int
}

// NewFixedSource creates a source that yields values in order.
//
// Example:
//
//	src := NewFixedSource(7, 42)
//	src.Uint32() // 7
//	src.Uint32() // 42
//	src.Uint32() // panic: all values exhausted
func NewFixedSource(values ...uint32) *FixedSource {
	return &FixedSource{values: values}
}

// Uint32 returns the next predetermined value.
//
// Panics if all values have been consumed, which catches tests that mine
// more than they planned for.
func (s *FixedSource) Uint32() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idx >= len(s.values) {
		panic("FixedSource: all values exhausted")
	}
	v := s.values[s.idx]
	s.idx++
	return v
}

// Drawn returns how many values have been consumed.
func (s *FixedSource) Drawn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx
}

// CountingSource wraps a source and counts draws.
type CountingSource struct {
	mu    sync.Mutex
	inner interface{ Uint32() uint32 }
	n     uint64
}

// NewCountingSource wraps inner.
func NewCountingSource(inner interface{ Uint32() uint32 }) *CountingSource {
	return &CountingSource{inner: inner}
}

// Uint32 draws from the wrapped source.
func (s *CountingSource) Uint32() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.inner.Uint32()
}

// Count returns the number of draws so far.
func (s *CountingSource) Count() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}
