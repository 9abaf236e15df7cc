package work

import (
	"context"
	"encoding/binary"
	"errors"
	"math"

	"golang.org/x/crypto/sha3"
)

// ErrExhausted is returned by Search when the attempt bound is reached
// without finding a matching nonce.
var ErrExhausted = errors.New("work: attempt bound reached without a match")

// DefaultPeriod is the default progress period. At one report every
// 2^32-1 attempts it effectively never fires.
const DefaultPeriod = math.MaxUint32

// cancelCheckInterval is how many attempts run between context checks.
const cancelCheckInterval = 256

// Progress is reported to the progress callback every period attempts.
type Progress struct {
	// Attempts is the number of digests computed so far, including this one.
	Attempts uint64

	// Digest is the digest of the latest attempt.
	Digest []byte
}

// Result describes a successful search.
type Result struct {
	Nonce    [NonceSize]byte
	Digest   []byte
	Attempts uint64
}

type searchConfig struct {
	period      uint32
	progress    func(Progress)
	maxAttempts uint64
}

// SearchOption configures Search.
type SearchOption func(*searchConfig)

// WithPeriod sets how many attempts pass between progress reports.
// A period of 0 disables reporting.
func WithPeriod(period uint32) SearchOption {
	return func(c *searchConfig) {
		c.period = period
	}
}

// WithProgress registers a callback invoked in-line with the search loop.
// A slow callback stalls the search.
func WithProgress(fn func(Progress)) SearchOption {
	return func(c *searchConfig) {
		c.progress = fn
	}
}

// WithMaxAttempts bounds the search. Zero means unbounded.
func WithMaxAttempts(n uint64) SearchOption {
	return func(c *searchConfig) {
		c.maxAttempts = n
	}
}

// Search looks for a nonce such that Digest(prev, payload, nonce) matches
// prev on its trailing bits bits.
//
// Candidates are the little-endian bytes of src.Uint32(). The context is
// checked between attempts; on cancellation Search returns ctx.Err().
// With WithMaxAttempts it returns ErrExhausted once the bound is reached.
func Search(ctx context.Context, prev, payload []byte, bits int, src Source, opts ...SearchOption) (Result, error) {
	cfg := searchConfig{period: DefaultPeriod}
	for _, opt := range opts {
		opt(&cfg)
	}

	buf := make([]byte, 0, len(prev)+len(payload)+NonceSize)
	buf = append(buf, prev...)
	buf = append(buf, payload...)
	base := len(buf)
	buf = append(buf, make([]byte, NonceSize)...)

	for attempt := uint64(0); ; attempt++ {
		if cfg.maxAttempts > 0 && attempt >= cfg.maxAttempts {
			return Result{Attempts: attempt}, ErrExhausted
		}
		if attempt%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Result{Attempts: attempt}, err
			}
		}

		binary.LittleEndian.PutUint32(buf[base:], src.Uint32())
		sum := sha3.Sum224(buf)

		if cfg.progress != nil && cfg.period > 0 && (attempt+1)%uint64(cfg.period) == 0 {
			digest := sum
			cfg.progress(Progress{Attempts: attempt + 1, Digest: digest[:]})
			if err := ctx.Err(); err != nil {
				return Result{Attempts: attempt + 1}, err
			}
		}

		if BitMatch(bits, prev, sum[:]) {
			var res Result
			copy(res.Nonce[:], buf[base:])
			res.Digest = sum[:]
			res.Attempts = attempt + 1
			return res, nil
		}
	}
}
