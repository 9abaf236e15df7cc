package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dit/internal/modea"
)

func TestParseScenario_Valid(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: basic
description: "one marker"
seed: 4
hp: 12
steps:
  - action: { type: marker, content: hi }
    expect: committed
assertions:
  - type: final_state
    state: { hp: 12 }
`))
	require.NoError(t, err)
	assert.Equal(t, "basic", s.Name)
	assert.Equal(t, uint64(4), s.Seed)
	require.NotNil(t, s.HP)
	assert.Equal(t, int64(12), *s.HP)

	action, err := s.Steps[0].ToAction()
	require.NoError(t, err)
	assert.Equal(t, modea.Marker("hi"), action)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    "name: x\ndescription: d\nstep: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "missing name",
			yaml:    "description: d\nsteps:\n  - action: {type: noop}\n    expect: committed\n",
			wantErr: "name is required",
		},
		{
			name:    "missing steps",
			yaml:    "name: x\ndescription: d\n",
			wantErr: "steps list is required",
		},
		{
			name:    "unknown action type",
			yaml:    "name: x\ndescription: d\nsteps:\n  - action: {type: fly}\n    expect: committed\n",
			wantErr: "unknown action type",
		},
		{
			name:    "extra action field",
			yaml:    "name: x\ndescription: d\nsteps:\n  - action: {type: noop, content: x}\n    expect: committed\n",
			wantErr: "steps[0]",
		},
		{
			name:    "missing expect",
			yaml:    "name: x\ndescription: d\nsteps:\n  - action: {type: noop}\n",
			wantErr: "expect is required",
		},
		{
			name:    "unknown outcome",
			yaml:    "name: x\ndescription: d\nsteps:\n  - action: {type: noop}\n    expect: maybe\n",
			wantErr: "unknown outcome",
		},
		{
			name:    "unknown assertion",
			yaml:    "name: x\ndescription: d\nsteps:\n  - action: {type: noop}\n    expect: committed\nassertions:\n  - type: vibes\n",
			wantErr: "unknown assertion type",
		},
		{
			name:    "empty final_state",
			yaml:    "name: x\ndescription: d\nsteps:\n  - action: {type: noop}\n    expect: committed\nassertions:\n  - type: final_state\n",
			wantErr: "state is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadDir_DuplicateNames(t *testing.T) {
	dir := t.TempDir()
	body := "name: same\ndescription: d\nsteps:\n  - action: {type: noop}\n    expect: committed\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(body), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(body), 0o644))

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already used")
}
