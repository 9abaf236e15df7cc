package logfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/dit/internal/chain"
	"github.com/roach88/dit/internal/engine"
	"github.com/roach88/dit/internal/modea"
	"github.com/roach88/dit/internal/testutil"
	"github.com/roach88/dit/internal/work"
)

type (
	actionA = modea.ActionA
	stateA  = modea.StateA
)

func newEngine(seed uint64, opts ...engine.Option) *engine.Engine[actionA, stateA] {
	return engine.New[actionA, stateA](append([]engine.Option{engine.WithSource(testutil.NewSeededSource(seed))}, opts...)...)
}

func constant(a actionA) Producer[actionA, stateA] {
	return func(stateA) (actionA, error) { return a, nil }
}

// writeLog mines actions into a fresh log file and returns its path.
func writeLog(t *testing.T, actions ...actionA) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "game.dit")
	eng := newEngine(21)
	for _, a := range actions {
		out, err := WithState(context.Background(), path, constant(a), eng)
		require.NoError(t, err)
		require.True(t, out.Committed, "action %s", a)
	}
	return path
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func writeLines(t *testing.T, path string, lines []string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

// failingKey returns a key that prev does not accept for action at state.
func failingKey(t *testing.T, prev chain.Message[actionA], action actionA, state stateA) chain.HexString {
	t.Helper()
	for i := uint32(0); i < 1000; i++ {
		nonce := work.EncodeNonce(i)
		key := chain.HexFromBytes(nonce[:])
		if !chain.Accepts(prev, chain.Message[actionA]{Key: key, Action: action}, state) {
			return key
		}
	}
	t.Fatal("no failing key found")
	return chain.HexString{}
}
