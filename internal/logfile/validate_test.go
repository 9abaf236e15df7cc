package logfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dit/internal/chain"
	"github.com/roach88/dit/internal/modea"
)

func TestValidate_Valid(t *testing.T) {
	path := writeLog(t, modea.Marker("hello"), modea.UpdateVersion(10200), modea.LearnSpell(modea.IceDagger))

	require.NoError(t, Validate[actionA, stateA](context.Background(), path))

	book, err := ValidateFile[actionA, stateA](context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, book.Len())
	assert.Equal(t, 3, book.SavedLines())
	assert.Equal(t, uint64(10200), book.State().Version)
}

func TestValidate_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.dit")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	assert.NoError(t, Validate[actionA, stateA](context.Background(), path))
}

func TestValidate_MissingFile(t *testing.T) {
	err := Validate[actionA, stateA](context.Background(), filepath.Join(t.TempDir(), "nope.dit"))
	require.Error(t, err)
	assert.True(t, chain.IsNotFound(err))
	assert.Equal(t, chain.CodeNotFound, chain.Code(err))
}

func TestValidate_CorruptSecondLink(t *testing.T) {
	// no header, so the second link is on physical line 2
	path := writeLog(t, modea.Marker("a"), modea.Marker("b"), modea.Marker("c"))
	lines := readLines(t, path)[2:]

	first, err := chain.DecodeMessage[actionA]([]byte(lines[0]))
	require.NoError(t, err)
	second, err := chain.DecodeMessage[actionA]([]byte(lines[1]))
	require.NoError(t, err)

	state := chain.DefaultState[stateA]()
	bad := chain.Message[actionA]{Key: failingKey(t, first, second.Action, state), Action: second.Action}
	line, err := chain.EncodeMessage(bad)
	require.NoError(t, err)
	lines[1] = string(line)
	writeLines(t, path, lines)

	err = Validate[actionA, stateA](context.Background(), path)
	require.Error(t, err)

	var fv *chain.FailedValidationError[actionA]
	require.ErrorAs(t, err, &fv)
	assert.Equal(t, path, fv.File)
	assert.Equal(t, 2, fv.Line)
	assert.Equal(t, first, fv.Last)
	assert.Equal(t, bad, fv.Failed)
}

func TestValidate_TamperedAction(t *testing.T) {
	path := writeLog(t, modea.UpdateVersion(10200), modea.CastSpell(modea.FireBall))
	lines := readLines(t, path)

	// lines[0:2] are the header; rewrite the cast to the other spell
	cast, err := chain.DecodeMessage[actionA]([]byte(lines[3]))
	require.NoError(t, err)
	cast.Action = modea.CastSpell(modea.IceDagger)
	prev, err := chain.DecodeMessage[actionA]([]byte(lines[2]))
	require.NoError(t, err)
	state := modea.StateA{Version: 10200, HP: 100}
	if chain.Accepts(prev, cast, state) {
		t.Skip("tampered link happens to carry valid work")
	}
	line, err := chain.EncodeMessage(cast)
	require.NoError(t, err)
	lines[3] = string(line)
	writeLines(t, path, lines)

	err = Validate[actionA, stateA](context.Background(), path)
	var fv chain.ValidationFailure
	require.ErrorAs(t, err, &fv)
	assert.Equal(t, 4, fv.FailedLine())
}

func TestValidate_SerializationError(t *testing.T) {
	path := writeLog(t, modea.Marker("x"))
	lines := append(readLines(t, path), `{"key":"00000000","action":{"type":"teleport"}}`)
	writeLines(t, path, lines)

	err := Validate[actionA, stateA](context.Background(), path)
	var se *chain.SerializationError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 4, se.Line)
}

func TestValidate_WrongMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b.dit")
	require.NoError(t, os.WriteFile(path, []byte("#dit 1.0.0\n#mode B\n"), 0o644))

	err := Validate[actionA, stateA](context.Background(), path)
	assert.True(t, chain.IsWrongMode(err))
}

func TestValidate_Cancelled(t *testing.T) {
	path := writeLog(t, modea.Marker("x"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Validate[actionA, stateA](ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}
