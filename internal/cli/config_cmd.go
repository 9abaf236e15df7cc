package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dit/internal/config"
)

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "init [path]",
		Short:         "Write a config file with default settings",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.FileName
			if len(args) == 1 {
				path = args[0]
			}
			formatter := rootOpts.formatter(cmd)
			if err := config.WriteFile(path, config.Default()); err != nil {
				_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
				return WrapExitError(ExitCommandError, "failed to write config", err)
			}
			if formatter.Format == "json" {
				return formatter.Success(map[string]string{"path": path})
			}
			fmt.Fprintf(formatter.Writer, "✓ Wrote %s\n", path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "show",
		Short:         "Print the resolved settings",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			if formatter.Format == "json" {
				return formatter.Success(rootOpts.Config)
			}
			data, err := rootOpts.Config.Encode()
			if err != nil {
				_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
				return WrapExitError(ExitCommandError, "failed to encode config", err)
			}
			_, err = formatter.Writer.Write(data)
			return err
		},
	})

	return cmd
}
