package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/dit/internal/engine"
	"github.com/roach88/dit/internal/modea"
	"github.com/roach88/dit/internal/testutil"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// mineBook mines actions into a fresh mode A book.
func mineBook(t *testing.T, seed uint64, actions ...modea.ActionA) *modea.Book {
	t.Helper()
	eng := engine.New[modea.ActionA, modea.StateA](engine.WithSource(testutil.NewSeededSource(seed)))
	book := modea.NewBook()
	for _, a := range actions {
		out, err := eng.Commit(context.Background(), book, a)
		if err != nil || !out.Committed {
			t.Fatalf("Commit(%s) = %+v, %v", a, out, err)
		}
	}
	return book
}

func testChain(id string) Chain {
	return Chain{
		ID:       id,
		Mode:     "A",
		RootHash: modea.StateA{}.RootHash().String(),
	}
}
