package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/dit/internal/work"
)

// MiningError is a search that stopped without finding a key.
type MiningError struct {
	// RunID identifies the run.
	RunID string

	// Attempts is the number of digests computed before stopping.
	Attempts uint64

	// Err is context.Canceled, context.DeadlineExceeded or
	// work.ErrExhausted.
	Err error
}

func (e *MiningError) Error() string {
	return fmt.Sprintf("mining stopped after %d attempts (run=%s): %v", e.Attempts, e.RunID, e.Err)
}

func (e *MiningError) Unwrap() error {
	return e.Err
}

// IsCancelled returns true if a run stopped because its context was done.
// Uses errors.Is to handle wrapped errors.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// IsExhausted returns true if a run hit its attempt bound.
func IsExhausted(err error) bool {
	return errors.Is(err, work.ErrExhausted)
}
