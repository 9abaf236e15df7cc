package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dit/internal/chain"
	"github.com/roach88/dit/internal/logfile"
	"github.com/roach88/dit/internal/modea"
)

// InitResult is the JSON payload of init.
type InitResult struct {
	File          string `json:"file"`
	Mode          string `json:"mode"`
	FormatVersion string `json:"format_version"`
	HP            int64  `json:"hp"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	var hp int64

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new log with a header",
		Long: `Create a new log file containing only its header lines.

The header records the format version and mode. --hp overrides the
starting hp. init refuses to touch a file that already has content.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var hpOverride *int64
			if cmd.Flags().Changed("hp") {
				hpOverride = &hp
			}
			return runInit(rootOpts, hpOverride, cmd)
		},
	}

	cmd.Flags().Int64Var(&hp, "hp", modea.DefaultHP, "starting hp")

	return cmd
}

func runInit(opts *RootOptions, hp *int64, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	path := opts.file()

	state := modea.StateA{}.DefaultState()
	if hp != nil {
		state.HP = *hp
	}

	if err := logfile.Create[modea.StateA](path, state.HeaderLines()...); err != nil {
		return formatter.Fail("init failed", err)
	}
	opts.logger().Debug("log created", "file", path, "hp", state.HP)

	if formatter.Format == "json" {
		return formatter.Success(InitResult{
			File:          path,
			Mode:          string(chain.ModeA),
			FormatVersion: chain.FormatVersion,
			HP:            state.HP,
		})
	}

	fmt.Fprintf(formatter.Writer, "✓ Created %s (mode %s, format %s)\n", path, chain.ModeA, chain.FormatVersion)
	return nil
}
