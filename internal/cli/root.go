package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/dit/internal/config"
)

// RootOptions holds global flags and the resolved configuration shared by
// all commands.
type RootOptions struct {
	ConfigFile string
	File       string
	Verbose    bool
	Format     string // "json" | "text"

	// Config is resolved in PersistentPreRunE from flags, DIT_* environment
	// variables and the config file.
	Config config.Config

	// Logger writes structured diagnostics to stderr.
	Logger *slog.Logger

	viper *viper.Viper

	// loaded is set once Config holds resolved settings.
	loaded bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = config.ValidFormats

// NewRootCommand creates the root command for the dit CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{viper: viper.New()}

	cmd := &cobra.Command{
		Use:   "dit",
		Short: "dit - a proof-of-work action log",
		Long: `dit keeps an append-only log of actions. Each action is admitted only
after a proof-of-work search links it to the previous entry, so the log can
be replayed into the current state and re-validated to detect tampering.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			cfg, err := config.Load(opts.viper, opts.ConfigFile)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			opts.Config = cfg
			opts.loaded = true
			opts.File = cfg.File
			opts.Format = cfg.Format
			opts.Verbose = cfg.Verbose
			opts.Logger = newLogger(cmd.ErrOrStderr(), cfg.Verbose)
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (default ./"+config.FileName+" or ~/"+config.FileName+")")
	flags.StringVarP(&opts.File, "file", "f", config.DefaultFile, "log file")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", config.DefaultFormat, "output format (json|text)")

	opts.bindFlag(config.KeyFile, flags.Lookup("file"))
	opts.bindFlag(config.KeyVerbose, flags.Lookup("verbose"))
	opts.bindFlag(config.KeyFormat, flags.Lookup("format"))

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewStateCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewIndexCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

// bindFlag routes a flag through viper so it takes precedence over the
// environment and config file when set.
func (o *RootOptions) bindFlag(key string, f *pflag.Flag) {
	if o.viper == nil || f == nil {
		return
	}
	_ = o.viper.BindPFlag(key, f)
}

// logger returns the configured logger, or one that discards when the
// command runs without the root's pre-run.
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// file returns the log path, falling back to the default.
func (o *RootOptions) file() string {
	if o.File != "" {
		return o.File
	}
	return config.DefaultFile
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// formatter builds an OutputFormatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}
