package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dit/internal/chain"
	"github.com/roach88/dit/internal/config"
	"github.com/roach88/dit/internal/modea"
	"github.com/roach88/dit/internal/work"
)

// mineCLI appends each "add" argument list to the log in the working
// directory, seeding every search.
func mineCLI(t *testing.T, adds ...[]string) {
	t.Helper()
	for i, add := range adds {
		args := append([]string{"add"}, add...)
		args = append(args, "--seed", strconv.Itoa(i+1))
		_, err := runCLI(t, args...)
		require.NoError(t, err, "add %v", add)
	}
}

// writeTamperedLog writes a log whose only link carries a key the default
// link does not accept.
func writeTamperedLog(t *testing.T, path string) {
	t.Helper()
	prev := chain.DefaultMessage[modea.ActionA]()
	action := modea.Marker("forged")
	state := modea.StateA{}.DefaultState()

	for i := uint32(0); i < 1000; i++ {
		nonce := work.EncodeNonce(i)
		msg := chain.Message[modea.ActionA]{Key: chain.HexFromBytes(nonce[:]), Action: action}
		if chain.Accepts(prev, msg, state) {
			continue
		}
		line, err := chain.EncodeMessage(msg)
		require.NoError(t, err)
		data := "#dit 1.0.0\n#mode A\n" + string(line) + "\n"
		require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
		return
	}
	t.Fatal("no failing key found")
}

// failingSeed returns a seed whose first candidate key does not satisfy
// action on an empty log.
func failingSeed(t *testing.T, action modea.ActionA) uint64 {
	t.Helper()
	prev := chain.DefaultMessage[modea.ActionA]()
	state := modea.StateA{}.DefaultState()
	for seed := uint64(1); seed < 1000; seed++ {
		nonce := work.EncodeNonce(rand.New(rand.NewPCG(seed, seed)).Uint32())
		msg := chain.Message[modea.ActionA]{Key: chain.HexFromBytes(nonce[:]), Action: action}
		if !chain.Accepts(prev, msg, state) {
			return seed
		}
	}
	t.Fatal("no failing seed found")
	return 0
}

func TestInit(t *testing.T) {
	dir := inTempDir(t)

	out, err := runCLI(t, "init", "--hp", "42")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Created .dit")

	data, err := os.ReadFile(filepath.Join(dir, ".dit"))
	require.NoError(t, err)
	assert.Equal(t, "#dit 1.0.0\n#mode A\n#hp 42\n", string(data))

	_, err = runCLI(t, "init")
	require.Error(t, err, "init never touches a log with content")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestAddAndState(t *testing.T) {
	dir := inTempDir(t)

	mineCLI(t,
		[]string{"marker", "hello"},
		[]string{"version", "1.2.3"},
		[]string{"cast", "FireBall"},
	)

	lines := strings.Split(strings.TrimSpace(readFile(t, filepath.Join(dir, ".dit"))), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "#dit 1.0.0", lines[0])
	assert.Equal(t, "#mode A", lines[1])
	assert.Contains(t, lines[2], `"action":{"type":"marker","content":"hello"}`)
	assert.Contains(t, lines[3], `"action":{"type":"updateversion","version":10203}`)

	out, err := runCLI(t, "--format", "json", "state")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   StateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1.2.3", resp.Data.Version)
	assert.Equal(t, modea.DefaultHP, resp.Data.HP)
	assert.Equal(t, 3, resp.Data.Links)
	assert.Equal(t, modea.StateA{}.RootHash().String(), resp.Data.RootHash)
}

func TestAddJSON(t *testing.T) {
	inTempDir(t)

	out, err := runCLI(t, "--format", "json", "add", "seek", "--seed", "9")
	require.NoError(t, err)

	var resp struct {
		Data AddResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "attemptseekencounter", resp.Data.Type)
	assert.Equal(t, modea.CostSeekEncounter, resp.Data.BitCost)
	assert.NotEmpty(t, resp.Data.RunID)
	assert.Len(t, resp.Data.Key, 2*work.NonceSize)
	assert.Positive(t, resp.Data.Attempts)
}

func TestAddNotApplicable(t *testing.T) {
	dir := inTempDir(t)

	out, err := runCLI(t, "add", "version", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, chain.ErrNotApplicable)
	assert.Contains(t, out, "E_BAD_ACTION")

	_, statErr := os.Stat(filepath.Join(dir, ".dit"))
	assert.True(t, os.IsNotExist(statErr) || readFile(t, filepath.Join(dir, ".dit")) == "", "nothing is written")
}

func TestAddBadArguments(t *testing.T) {
	inTempDir(t)

	for _, args := range [][]string{
		{"add", "learn", "Teleport"},
		{"add", "version", "not-a-version"},
		{"add", "version", "1.100.0"},
		{"add", "marker", ""},
	} {
		_, err := runCLI(t, args...)
		require.Error(t, err, "%v", args)
		assert.Equal(t, ExitCommandError, GetExitCode(err), "%v", args)
	}
}

func TestAddExhausted(t *testing.T) {
	dir := inTempDir(t)
	seed := failingSeed(t, modea.CastSpell(modea.FireBall))

	out, err := runCLI(t, "add", "cast", "FireBall", "--max-attempts", "1", "--seed", strconv.FormatUint(seed, 10))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeMining)

	_, statErr := os.Stat(filepath.Join(dir, ".dit"))
	assert.True(t, os.IsNotExist(statErr) || readFile(t, filepath.Join(dir, ".dit")) == "")
}

func TestAddMiningSettings(t *testing.T) {
	tests := []struct {
		name   string
		config string
		args   []string
		want   []string
	}{
		{"defaults", "", nil, []string{"period=65536", "max_attempts=0"}},
		{"config zero period", "period = 0\n", nil, []string{"period=0"}},
		{"config bound", "period = 9\nmax_attempts = 5000\n", nil, []string{"period=9", "max_attempts=5000"}},
		{"flag over config", "period = 0\n", []string{"--period", "7"}, []string{"period=7"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inTempDir(t)
			if tt.config != "" {
				require.NoError(t, os.WriteFile(config.FileName, []byte(tt.config), 0o644))
			}

			stderr := &bytes.Buffer{}
			cmd := NewRootCommand()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(stderr)
			cmd.SetArgs(append([]string{"-v", "add", "noop", "--seed", "1"}, tt.args...))
			require.NoError(t, cmd.Execute())

			for _, w := range tt.want {
				assert.Contains(t, stderr.String(), w)
			}
		})
	}
}

func TestAddProgress_ReplayFailure(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".dit"), []byte("not json\n"), 0o644))

	out, err := runCLI(t, "add", "marker", "x", "--progress")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, chain.CodeSerialization)
	assert.Equal(t, "not json\n", readFile(t, filepath.Join(dir, ".dit")))
}

func TestSettleSpinner(t *testing.T) {
	start := func() *pterm.SpinnerPrinter {
		sp, err := pterm.DefaultSpinner.WithWriter(&bytes.Buffer{}).Start("mining")
		require.NoError(t, err)
		return sp
	}

	failed := start()
	settleSpinner(failed, errors.New("open .dit: permission denied"))
	assert.False(t, failed.IsActive)

	done := start()
	settleSpinner(done, nil)
	assert.False(t, done.IsActive)

	settleSpinner(nil, nil)
}

func TestValidate(t *testing.T) {
	inTempDir(t)
	mineCLI(t, []string{"marker", "a"}, []string{"seek"})

	out, err := runCLI(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ .dit valid (2 links)")
}

func TestValidateTampered(t *testing.T) {
	dir := inTempDir(t)
	writeTamperedLog(t, filepath.Join(dir, ".dit"))

	out, err := runCLI(t, "--format", "json", "validate")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	assert.Equal(t, 3, resp.Data.Line)
	assert.Equal(t, chain.CodeFailedValidation, resp.Data.Code)

	// replay without validation still works
	_, err = runCLI(t, "state")
	require.NoError(t, err)

	_, err = runCLI(t, "state", "--validate")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestValidateMissingFile(t *testing.T) {
	inTempDir(t)

	out, err := runCLI(t, "validate")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, chain.CodeNotFound)
}

func TestValidateWrongMode(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".dit"), []byte("#dit 1.0.0\n#mode B\n"), 0o644))

	out, err := runCLI(t, "validate")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, chain.CodeWrongMode)
}

func TestReplay(t *testing.T) {
	inTempDir(t)
	mineCLI(t, []string{"marker", "a"}, []string{"version", "10200"})

	out, err := runCLI(t, "replay")
	require.NoError(t, err)
	assert.Contains(t, out, "Replay Summary: 2 link(s)")
	assert.Contains(t, out, "Version: 1.2.0")
	assert.Contains(t, out, "✓ Replay verified deterministic")
}

func TestIndexAndRestore(t *testing.T) {
	dir := inTempDir(t)
	mineCLI(t, []string{"marker", "a"}, []string{"seek"}, []string{"marker", "b"})

	out, err := runCLI(t, "--format", "json", "index", "--chain", "game")
	require.NoError(t, err)
	var resp struct {
		Data IndexResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 3, resp.Data.Inserted)
	assert.Equal(t, map[string]int{"marker": 2, "attemptseekencounter": 1}, resp.Data.Types)
	assert.FileExists(t, filepath.Join(dir, ".dit.db"))

	// re-indexing inserts nothing new
	out, err = runCLI(t, "index", "--chain", "game")
	require.NoError(t, err)
	assert.Contains(t, out, "(3 links, 0 new)")

	out, err = runCLI(t, "index", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ game (mode A, 3 links)")

	_, err = runCLI(t, "index", "restore", "--chain", "game", "restored.dit")
	require.NoError(t, err)
	assert.Equal(t, readFile(t, filepath.Join(dir, ".dit")), readFile(t, filepath.Join(dir, "restored.dit")))

	_, err = runCLI(t, "index", "restore", "--chain", "game", "restored.dit")
	require.Error(t, err, "restore never overwrites")
}

func TestIndexRecordsFailure(t *testing.T) {
	dir := inTempDir(t)
	writeTamperedLog(t, filepath.Join(dir, ".dit"))

	_, err := runCLI(t, "index")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out, err := runCLI(t, "--format", "json", "index", "list")
	require.NoError(t, err)
	var resp struct {
		Data []ChainSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, ".dit", resp.Data[0].ID)
	assert.True(t, resp.Data[0].Verified)
	assert.False(t, resp.Data[0].LastOK)
	assert.Equal(t, 3, resp.Data[0].LastFailedAt)
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"10100", 10100, false},
		{"1.2.3", 10203, false},
		{"2.0.0", 20000, false},
		{"1.2", 0, true},
		{"1.2.100", 0, true},
		{"v1", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseVersion(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
