package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, s.Close())
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	for _, table := range []string{"chains", "links", "verifications"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		assert.NoError(t, err, "table %q", table)
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	for name, expected := range expectedPragmas {
		assert.NoError(t, s.verifyPragma(name, expected))
	}
}

func TestOpen_SchemaVersion(t *testing.T) {
	s := createTestStore(t)

	assert.Equal(t, 2, SchemaVersion())
	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, SchemaVersion(), version)

	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_links_action_type'",
	).Scan(&name)
	assert.NoError(t, err, "migration index missing")
}

func TestOpen_MigratesChainsWithoutHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	// A v1 database: chains predates the header column.
	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.Exec(`
		CREATE TABLE chains (id TEXT PRIMARY KEY, mode TEXT NOT NULL, root_hash TEXT NOT NULL);
		INSERT INTO chains (id, mode, root_hash) VALUES ('old', 'A', 'abcd');
		PRAGMA user_version = 1;
	`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	chains, err := s.ListChains(context.Background())
	require.NoError(t, err)
	require.Len(t, chains, 1)
	assert.Equal(t, "old", chains[0].ID)
	assert.Empty(t, chains[0].Header)
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.db")

	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	_, err = Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.ImportLedger(context.Background(), testChain("mem"), nil)
	require.NoError(t, err)

	chains, err := s.ListChains(context.Background())
	require.NoError(t, err)
	require.Len(t, chains, 1)
	_, err = os.Stat(":memory:")
	assert.True(t, os.IsNotExist(err), "no file for an in-memory store")
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	assert.Error(t, err)
}

func TestClose_Nil(t *testing.T) {
	var s Store
	assert.NoError(t, s.Close())
}
