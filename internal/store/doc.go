// Package store mirrors dit logs into SQLite for querying.
//
// The log file stays the source of truth. The mirror holds:
//   - chains: one row per imported log (mode, root hash, state header)
//   - links: the links of each chain, keyed by (chain_id, seq)
//   - verifications: the outcome of each validation run
//
// Imports are append-only and idempotent: re-importing a log inserts only
// the links the mirror has not seen. A stored link whose key or action
// differs from the imported one at the same seq is reported as a
// ConflictError, since the file was rewritten behind the mirror's back.
//
// # Ordering
//
// All ordering uses seq (link position) or autoincrement ids, never wall
// clock time.
//
// # Database Configuration
//
// Every connection is opened with WAL journaling, synchronous=NORMAL, a
// 5 second busy timeout and foreign keys on. The schema version lives in
// PRAGMA user_version; Open migrates older databases forward and refuses
// newer ones.
package store
