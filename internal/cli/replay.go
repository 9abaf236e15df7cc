package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/dit/internal/logfile"
	"github.com/roach88/dit/internal/modea"
)

// ReplayResult contains the result of replaying a log.
type ReplayResult struct {
	File          string `json:"file"`
	Links         int    `json:"links"`
	Version       string `json:"version"`
	HP            int64  `json:"hp"`
	Deterministic bool   `json:"deterministic"`
	Mismatch      string `json:"mismatch,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Verify that replaying the log is deterministic",
		Long: `Replay the log twice, once plainly and once while checking every proof of
work, and verify both runs reach the same state over the same links.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, cmd)
		},
	}

	return cmd
}

func runReplay(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	path := opts.file()

	first, err := logfile.ReadBook[modea.ActionA, modea.StateA](path)
	if err != nil {
		return formatter.Fail("replay failed", err)
	}
	formatter.VerboseLog("Replayed %d link(s)", first.Len())

	second, err := logfile.ValidateFile[modea.ActionA, modea.StateA](cmd.Context(), path)
	if err != nil {
		return formatter.Fail("replay failed", err)
	}
	formatter.VerboseLog("Validated %d link(s)", second.Len())

	result := ReplayResult{
		File:          path,
		Links:         first.Len(),
		Version:       first.State().VersionString(),
		HP:            first.State().HP,
		Deterministic: true,
	}
	if m := compareBooks(first, second); m != "" {
		result.Deterministic = false
		result.Mismatch = m
	}

	if opts.Format == "json" {
		if err := outputReplayJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else {
		outputReplayText(cmd.OutOrStdout(), result)
	}

	if !result.Deterministic {
		return NewExitError(ExitFailure, "non-deterministic replay detected")
	}
	return nil
}

// compareBooks describes the first difference between a and b, or returns
// "" when they agree.
func compareBooks(a, b *modea.Book) string {
	if a.Len() != b.Len() {
		return fmt.Sprintf("link count %d != %d", a.Len(), b.Len())
	}
	if a.InitialState() != b.InitialState() {
		return fmt.Sprintf("initial state %+v != %+v", a.InitialState(), b.InitialState())
	}
	la, lb := a.Ledger(), b.Ledger()
	for i := range la.Len() {
		ma, mb := la.At(i), lb.At(i)
		if ma.Key != mb.Key || ma.Action != mb.Action {
			return fmt.Sprintf("link %d differs: %s != %s", i+1, ma, mb)
		}
	}
	if a.State() != b.State() {
		return fmt.Sprintf("final state %+v != %+v", a.State(), b.State())
	}
	return ""
}

func outputReplayJSON(w io.Writer, result ReplayResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if !result.Deterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeDeterminism,
			Message: result.Mismatch,
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

func outputReplayText(w io.Writer, result ReplayResult) {
	fmt.Fprintf(w, "Replay Summary: %d link(s)\n", result.Links)
	fmt.Fprintf(w, "  Version: %s\n", result.Version)
	fmt.Fprintf(w, "  HP: %d\n", result.HP)
	fmt.Fprintln(w)

	if result.Deterministic {
		fmt.Fprintln(w, "✓ Replay verified deterministic")
		return
	}

	fmt.Fprintf(w, "  Warning: %s\n", result.Mismatch)
	fmt.Fprintln(w, "✗ Determinism verification failed")
}
