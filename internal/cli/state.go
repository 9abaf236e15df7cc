package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dit/internal/logfile"
	"github.com/roach88/dit/internal/modea"
)

// StateResult is the replayed state of a log.
type StateResult struct {
	File     string `json:"file"`
	Version  string `json:"version"`
	HP       int64  `json:"hp"`
	Links    int    `json:"links"`
	RootHash string `json:"root_hash"`
	LastKey  string `json:"last_key"`
}

// NewStateCommand creates the state command.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	var validate bool

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the state the log replays to",
		Long: `Replay the log and print the resulting state.

Replay folds every action into the state without re-checking proofs of
work. Use --validate to check them on the way.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runState(rootOpts, validate, cmd)
		},
	}

	cmd.Flags().BoolVar(&validate, "validate", false, "check every link while replaying")

	return cmd
}

func runState(opts *RootOptions, validate bool, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	path := opts.file()

	var (
		book *modea.Book
		err  error
	)
	if validate {
		book, err = logfile.ValidateFile[modea.ActionA, modea.StateA](cmd.Context(), path)
	} else {
		book, err = logfile.ReadBook[modea.ActionA, modea.StateA](path)
	}
	if err != nil {
		return formatter.Fail("state failed", err)
	}

	state := book.State()
	result := StateResult{
		File:     path,
		Version:  state.VersionString(),
		HP:       state.HP,
		Links:    book.Len(),
		RootHash: book.RootHash().String(),
		LastKey:  book.Last().Key.String(),
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "File:      %s\n", result.File)
	fmt.Fprintf(w, "Version:   %s\n", result.Version)
	fmt.Fprintf(w, "HP:        %d\n", result.HP)
	fmt.Fprintf(w, "Links:     %d\n", result.Links)
	fmt.Fprintf(w, "Root hash: %s\n", result.RootHash)
	fmt.Fprintf(w, "Last key:  %s\n", result.LastKey)
	return nil
}
