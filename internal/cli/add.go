package cli

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"strconv"

	"github.com/Masterminds/semver/v3"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/roach88/dit/internal/chain"
	"github.com/roach88/dit/internal/config"
	"github.com/roach88/dit/internal/engine"
	"github.com/roach88/dit/internal/logfile"
	"github.com/roach88/dit/internal/modea"
)

// AddResult is the JSON payload of a committed add.
type AddResult struct {
	File     string `json:"file"`
	RunID    string `json:"run_id"`
	Type     string `json:"type"`
	Key      string `json:"key"`
	BitCost  int    `json:"bit_cost"`
	Attempts uint64 `json:"attempts"`
	Version  string `json:"version"`
	HP       int64  `json:"hp"`
}

type addOptions struct {
	period      uint32
	maxAttempts uint64
	seed        uint64
	progress    bool
}

// NewAddCommand creates the add command and one subcommand per action.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &addOptions{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Mine an action onto the log",
		Long: `Replay the log, mine the given action on top of its last link and append
the new link.

Mining searches for a key whose digest matches the previous key on as many
trailing bits as the action costs. Interrupt (Ctrl-C) stops the search and
leaves the log untouched.`,
	}

	flags := cmd.PersistentFlags()
	flags.Uint32Var(&opts.period, "period", config.DefaultPeriod, "attempts between progress reports (0 disables)")
	flags.Uint64Var(&opts.maxAttempts, "max-attempts", 0, "give up after this many attempts (0 is unbounded)")
	flags.Uint64Var(&opts.seed, "seed", 0, "seed the key search for reproducible runs")
	flags.BoolVar(&opts.progress, "progress", false, "show a progress spinner on stderr")

	rootOpts.bindFlag(config.KeyPeriod, flags.Lookup("period"))
	rootOpts.bindFlag(config.KeyMaxAttempts, flags.Lookup("max-attempts"))

	actionCommand := func(use, short string, args cobra.PositionalArgs, build func(args []string) (modea.ActionA, error)) *cobra.Command {
		return &cobra.Command{
			Use:           use,
			Short:         short,
			Args:          args,
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				action, err := build(args)
				if err != nil {
					formatter := rootOpts.formatter(cmd)
					_ = formatter.Error(ErrCodeArgs, err.Error(), nil)
					return WrapExitError(ExitCommandError, "invalid arguments", err)
				}
				return runAdd(rootOpts, opts, action, cmd)
			},
		}
	}

	cmd.AddCommand(
		actionCommand("noop", "Mine a no-op", cobra.NoArgs, func([]string) (modea.ActionA, error) {
			return modea.NoOp(), nil
		}),
		actionCommand("marker <text>", "Record free text", cobra.ExactArgs(1), func(args []string) (modea.ActionA, error) {
			if args[0] == "" {
				return modea.ActionA{}, errors.New("marker text is empty")
			}
			return modea.Marker(args[0]), nil
		}),
		actionCommand("version <version>", "Move to a newer version (packed integer or major.minor.patch)", cobra.ExactArgs(1), func(args []string) (modea.ActionA, error) {
			v, err := parseVersion(args[0])
			if err != nil {
				return modea.ActionA{}, err
			}
			return modea.UpdateVersion(v), nil
		}),
		actionCommand("seek", "Attempt to seek an encounter", cobra.NoArgs, func([]string) (modea.ActionA, error) {
			return modea.SeekEncounter(), nil
		}),
		actionCommand("learn <spell>", "Attempt to learn a spell", cobra.ExactArgs(1), func(args []string) (modea.ActionA, error) {
			spell, err := modea.ParseSpell(args[0])
			if err != nil {
				return modea.ActionA{}, err
			}
			return modea.LearnSpell(spell), nil
		}),
		actionCommand("cast <spell>", "Cast a spell", cobra.ExactArgs(1), func(args []string) (modea.ActionA, error) {
			spell, err := modea.ParseSpell(args[0])
			if err != nil {
				return modea.ActionA{}, err
			}
			return modea.CastSpell(spell), nil
		}),
	)

	return cmd
}

func runAdd(rootOpts *RootOptions, opts *addOptions, action modea.ActionA, cmd *cobra.Command) error {
	formatter := rootOpts.formatter(cmd)
	path := rootOpts.file()
	logger := rootOpts.logger()

	// Resolved config already reflects bound flags; zero values are real
	// settings there (period 0 disables progress).
	period, maxAttempts := opts.period, opts.maxAttempts
	if rootOpts.loaded {
		if !cmd.Flags().Changed("period") {
			period = rootOpts.Config.Period
		}
		if !cmd.Flags().Changed("max-attempts") {
			maxAttempts = rootOpts.Config.MaxAttempts
		}
	}
	logger.Debug("mining", "file", path, "action", action.Type, "period", period, "max_attempts", maxAttempts)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	engineOpts := []engine.Option{
		engine.WithPeriod(period),
		engine.WithMaxAttempts(maxAttempts),
		engine.WithLogger(logger),
	}
	if cmd.Flags().Changed("seed") {
		engineOpts = append(engineOpts, engine.WithSource(rand.New(rand.NewPCG(opts.seed, opts.seed))))
	}
	var spinner *pterm.SpinnerPrinter
	if opts.progress {
		sp, err := pterm.DefaultSpinner.
			WithWriter(cmd.ErrOrStderr()).
			WithRemoveWhenDone(formatter.Format == "json").
			Start(fmt.Sprintf("Mining %s", action.Type))
		if err == nil {
			spinner = sp
			engineOpts = append(engineOpts, engine.WithObserver(spinnerObserver(spinner)))
		}
	}

	eng := engine.New[modea.ActionA, modea.StateA](engineOpts...)
	var bits int
	out, err := logfile.WithState(ctx, path, func(state modea.StateA) (modea.ActionA, error) {
		bits = action.BitCost(state)
		return action, nil
	}, eng)
	settleSpinner(spinner, err)

	var merr *engine.MiningError
	switch {
	case errors.As(err, &merr):
		_ = formatter.Error(ErrCodeMining, merr.Error(), map[string]any{"attempts": merr.Attempts, "run_id": merr.RunID})
		if engine.IsCancelled(err) {
			return WrapExitError(ExitCommandError, "mining interrupted", err)
		}
		return WrapExitError(ExitFailure, "mining failed", err)
	case err != nil:
		return formatter.Fail("add failed", err)
	case !out.Committed:
		_ = formatter.Error(chain.CodeBadAction, fmt.Sprintf("%s is not applicable to the current state", action), nil)
		return WrapExitError(ExitFailure, "action not applicable", chain.ErrNotApplicable)
	}

	result := AddResult{
		File:     path,
		RunID:    out.RunID,
		Type:     string(action.Type),
		Key:      out.Message.Key.String(),
		BitCost:  bits,
		Attempts: out.Attempts,
		Version:  out.State.VersionString(),
		HP:       out.State.HP,
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ %s mined in %d attempts (%d bits)\n", result.Type, result.Attempts, result.BitCost)
	formatter.VerboseLog("  Key: %s", result.Key)
	formatter.VerboseLog("  Run: %s", result.RunID)
	return nil
}

// settleSpinner stops a spinner the engine observer did not finish, which
// happens when WithState fails before mining (open, replay).
func settleSpinner(spinner *pterm.SpinnerPrinter, err error) {
	if spinner == nil || !spinner.IsActive {
		return
	}
	if err != nil {
		spinner.Fail(err.Error())
		return
	}
	_ = spinner.Stop()
}

// spinnerObserver drives a pterm spinner from engine events.
func spinnerObserver(spinner *pterm.SpinnerPrinter) engine.Observer {
	return engine.Hooks{
		Attempt: func(p engine.Progress) {
			spinner.UpdateText(fmt.Sprintf("Mining: %d attempts, last digest %s", p.Attempts, p.Digest))
		},
		Success: func(key chain.HexString) {
			spinner.Success(fmt.Sprintf("Found key %s", key))
		},
		Failure: func(err error) {
			spinner.Fail(err.Error())
		},
	}
}

// parseVersion accepts a packed version (major*10000 + minor*100 + patch) or
// dotted major.minor.patch.
func parseVersion(s string) (uint64, error) {
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return n, nil
	}
	v, err := semver.StrictNewVersion(s)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", s, err)
	}
	if v.Minor() > 99 || v.Patch() > 99 {
		return 0, fmt.Errorf("invalid version %q: minor and patch must be below 100", s)
	}
	return v.Major()*10000 + v.Minor()*100 + v.Patch(), nil
}
