package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ConflictError reports a stored link that differs from the imported one
// at the same position.
type ConflictError struct {
	ChainID string
	Seq     int64
	Stored  string
	Got     string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("chain %s: link %d already stored as %s, got %s", e.ChainID, e.Seq, e.Stored, e.Got)
}

// IsConflict returns true if err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// Chain describes an imported log.
type Chain struct {
	ID       string
	Mode     string
	RootHash string

	// Header holds the state header lines of the log, one per line,
	// without the format and mode lines.
	Header string

	Links int64
}

// ImportLedger mirrors links into chain chainID and returns how many were
// new. Links already stored with the same key and action are skipped; a
// different key or action at a stored seq fails the whole import.
//
// The chain row is created on first import. Importing into an existing
// chain with a different mode or root hash is an error.
func (s *Store) ImportLedger(ctx context.Context, c Chain, links []Link) (inserted int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("import ledger: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chains (id, mode, root_hash, header)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, c.ID, c.Mode, c.RootHash, c.Header); err != nil {
		return 0, fmt.Errorf("import ledger: write chain: %w", err)
	}

	var mode, root, header string
	if err := tx.QueryRowContext(ctx, `SELECT mode, root_hash, header FROM chains WHERE id = ?`, c.ID).Scan(&mode, &root, &header); err != nil {
		return 0, fmt.Errorf("import ledger: read chain: %w", err)
	}
	if mode != c.Mode || root != c.RootHash {
		return 0, fmt.Errorf("import ledger: chain %s is mode %s root %s, got mode %s root %s", c.ID, mode, root, c.Mode, c.RootHash)
	}
	if header != c.Header {
		return 0, fmt.Errorf("import ledger: chain %s has header %q, got %q", c.ID, header, c.Header)
	}

	for _, l := range links {
		var key, action string
		err := tx.QueryRowContext(ctx, `
			SELECT key, action FROM links WHERE chain_id = ? AND seq = ?
		`, c.ID, l.Seq).Scan(&key, &action)
		switch {
		case err == nil:
			if key != l.Key || action != l.Action {
				return 0, &ConflictError{ChainID: c.ID, Seq: l.Seq, Stored: key, Got: l.Key}
			}
			continue
		case !errors.Is(err, sql.ErrNoRows):
			return 0, fmt.Errorf("import ledger: read link %d: %w", l.Seq, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO links (chain_id, seq, key, action_type, action, bit_cost)
			VALUES (?, ?, ?, ?, ?, ?)
		`, c.ID, l.Seq, l.Key, l.ActionType, l.Action, l.BitCost); err != nil {
			return 0, fmt.Errorf("import ledger: write link %d: %w", l.Seq, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("import ledger: commit: %w", err)
	}
	return inserted, nil
}

// Verification is the outcome of one validation run over a chain.
type Verification struct {
	ChainID    string
	RunID      string
	Links      int
	OK         bool
	FailedLine int
	ErrorCode  string
}

// RecordVerification stores a validation outcome. Writing the same RunID
// twice is a no-op.
func (s *Store) RecordVerification(ctx context.Context, v Verification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO verifications (chain_id, run_id, links, ok, failed_line, error_code)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`, v.ChainID, v.RunID, v.Links, v.OK, v.FailedLine, v.ErrorCode)
	if err != nil {
		return fmt.Errorf("record verification: %w", err)
	}
	return nil
}
