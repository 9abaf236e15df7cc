package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ReadLinks returns the stored links of a chain ordered by seq.
//
// Returns an empty slice (not nil) if the chain has no links.
func (s *Store) ReadLinks(ctx context.Context, chainID string) ([]Link, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, key, action_type, action, bit_cost
		FROM links
		WHERE chain_id = ?
		ORDER BY seq ASC
	`, chainID)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()

	links := []Link{}
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.Seq, &l.Key, &l.ActionType, &l.Action, &l.BitCost); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate links: %w", err)
	}
	return links, nil
}

// ListChains returns every imported chain with its link count, ordered by
// id.
func (s *Store) ListChains(ctx context.Context) ([]Chain, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.mode, c.root_hash, c.header, COUNT(l.seq)
		FROM chains c
		LEFT JOIN links l ON l.chain_id = c.id
		GROUP BY c.id, c.mode, c.root_hash, c.header
		ORDER BY c.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query chains: %w", err)
	}
	defer rows.Close()

	chains := []Chain{}
	for rows.Next() {
		var c Chain
		if err := rows.Scan(&c.ID, &c.Mode, &c.RootHash, &c.Header, &c.Links); err != nil {
			return nil, fmt.Errorf("scan chain: %w", err)
		}
		chains = append(chains, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chains: %w", err)
	}
	return chains, nil
}

// CountByType returns how many links of each action type a chain holds.
func (s *Store) CountByType(ctx context.Context, chainID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT action_type, COUNT(*)
		FROM links
		WHERE chain_id = ?
		GROUP BY action_type
		ORDER BY action_type COLLATE BINARY ASC
	`, chainID)
	if err != nil {
		return nil, fmt.Errorf("query action types: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("scan action type: %w", err)
		}
		counts[typ] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate action types: %w", err)
	}
	return counts, nil
}

// LastVerification returns the most recent verification of a chain.
// ok is false if the chain was never verified.
func (s *Store) LastVerification(ctx context.Context, chainID string) (v Verification, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT chain_id, run_id, links, ok, failed_line, error_code
		FROM verifications
		WHERE chain_id = ?
		ORDER BY id DESC
		LIMIT 1
	`, chainID).Scan(&v.ChainID, &v.RunID, &v.Links, &v.OK, &v.FailedLine, &v.ErrorCode)
	if errors.Is(err, sql.ErrNoRows) {
		return Verification{}, false, nil
	}
	if err != nil {
		return Verification{}, false, fmt.Errorf("query verification: %w", err)
	}
	return v, true, nil
}
