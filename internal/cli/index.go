package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dit/internal/chain"
	"github.com/roach88/dit/internal/config"
	"github.com/roach88/dit/internal/engine"
	"github.com/roach88/dit/internal/logfile"
	"github.com/roach88/dit/internal/modea"
	"github.com/roach88/dit/internal/store"
)

// IndexResult is the outcome of mirroring a log into the database.
type IndexResult struct {
	File     string         `json:"file"`
	Database string         `json:"database"`
	Chain    string         `json:"chain"`
	RunID    string         `json:"run_id"`
	Valid    bool           `json:"valid"`
	Links    int            `json:"links"`
	Inserted int            `json:"inserted"`
	Types    map[string]int `json:"types,omitempty"`
}

// ChainSummary is one row of index list.
type ChainSummary struct {
	ID           string `json:"id"`
	Mode         string `json:"mode"`
	Links        int64  `json:"links"`
	Verified     bool   `json:"verified"`
	LastRunID    string `json:"last_run_id,omitempty"`
	LastOK       bool   `json:"last_ok"`
	LastFailedAt int    `json:"last_failed_line,omitempty"`
}

type indexOptions struct {
	dbPath string
	chain  string
}

// NewIndexCommand creates the index command.
func NewIndexCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &indexOptions{}

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Validate the log and mirror it into SQLite",
		Long: `Validate the log and copy its links into a SQLite database for querying.

Every run records a verification row. Re-indexing a grown log only inserts
the new links; a log whose history differs from the mirror is rejected.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(rootOpts, opts, cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.dbPath, "db", config.DefaultDatabase, "path to SQLite database")
	flags.StringVar(&opts.chain, "chain", "", "chain id in the database (default: log file name)")
	rootOpts.bindFlag(config.KeyDatabase, flags.Lookup("db"))

	cmd.AddCommand(newIndexListCommand(rootOpts, opts))
	cmd.AddCommand(newIndexRestoreCommand(rootOpts, opts))

	return cmd
}

func (o *indexOptions) database(rootOpts *RootOptions, cmd *cobra.Command) string {
	if !cmd.Flags().Changed("db") && rootOpts.Config.Database != "" {
		return rootOpts.Config.Database
	}
	return o.dbPath
}

func (o *indexOptions) chainID(path string) string {
	if o.chain != "" {
		return o.chain
	}
	return filepath.Base(path)
}

func runIndex(rootOpts *RootOptions, opts *indexOptions, cmd *cobra.Command) error {
	formatter := rootOpts.formatter(cmd)
	ctx := cmd.Context()
	path := rootOpts.file()
	dbPath := opts.database(rootOpts, cmd)
	chainID := opts.chainID(path)

	st, err := store.Open(dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	result := IndexResult{
		File:     path,
		Database: dbPath,
		Chain:    chainID,
		RunID:    engine.UUIDv7Generator{}.Generate(),
	}

	book, verr := logfile.ValidateFile[modea.ActionA, modea.StateA](ctx, path)
	if code := chain.Code(verr); code == chain.CodeIO || code == chain.CodeNotFound {
		return formatter.Fail("index failed", verr)
	}

	header := ""
	if verr == nil {
		header = encodeHeader(book.InitialState().HeaderLines())
	} else if prev, ok := findChain(ctx, st, chainID); ok {
		header = prev.Header
	}
	c := store.Chain{
		ID:       chainID,
		Mode:     string(chain.ModeA),
		RootHash: modea.StateA{}.RootHash().String(),
		Header:   header,
	}

	var links []store.Link
	if verr == nil {
		links, err = store.LinksFromBook(book)
		if err != nil {
			return formatter.Fail("index failed", err)
		}
	}
	result.Inserted, err = st.ImportLedger(ctx, c, links)
	if err != nil {
		code := ErrCodeDatabase
		if store.IsConflict(err) {
			code = ErrCodeConflict
		}
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to import log", err)
	}

	v := store.Verification{
		ChainID:    chainID,
		RunID:      result.RunID,
		OK:         verr == nil,
		FailedLine: lineOf(verr),
		ErrorCode:  chain.Code(verr),
	}
	if verr == nil {
		v.Links = book.Len()
	}
	if err := st.RecordVerification(ctx, v); err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to record verification", err)
	}
	rootOpts.logger().Info("indexed", "chain", chainID, "run_id", result.RunID, "ok", v.OK, "inserted", result.Inserted)

	if verr != nil {
		return outputValidationFailure(formatter, path, verr)
	}

	result.Valid = true
	result.Links = book.Len()
	result.Types, err = st.CountByType(ctx, chainID)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to count links", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Indexed %s into %s as %q (%d links, %d new)\n", path, dbPath, chainID, result.Links, result.Inserted)
	if formatter.Verbose {
		types := make([]string, 0, len(result.Types))
		for t := range result.Types {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			fmt.Fprintf(w, "  %s: %d\n", t, result.Types[t])
		}
	}
	return nil
}

func newIndexListCommand(rootOpts *RootOptions, opts *indexOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List mirrored chains and their last verification",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			ctx := cmd.Context()

			st, err := store.Open(opts.database(rootOpts, cmd))
			if err != nil {
				_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
				return WrapExitError(ExitCommandError, "failed to open database", err)
			}
			defer st.Close()

			chains, err := st.ListChains(ctx)
			if err != nil {
				_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
				return WrapExitError(ExitCommandError, "failed to list chains", err)
			}

			summaries := make([]ChainSummary, 0, len(chains))
			for _, c := range chains {
				s := ChainSummary{ID: c.ID, Mode: c.Mode, Links: c.Links}
				v, ok, err := st.LastVerification(ctx, c.ID)
				if err != nil {
					_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
					return WrapExitError(ExitCommandError, "failed to read verification", err)
				}
				if ok {
					s.Verified = true
					s.LastRunID = v.RunID
					s.LastOK = v.OK
					s.LastFailedAt = v.FailedLine
				}
				summaries = append(summaries, s)
			}

			if formatter.Format == "json" {
				return formatter.Success(summaries)
			}

			w := formatter.Writer
			if len(summaries) == 0 {
				fmt.Fprintln(w, "No chains found in database.")
				return nil
			}
			for _, s := range summaries {
				status := "?"
				switch {
				case s.Verified && s.LastOK:
					status = "✓"
				case s.Verified:
					status = "✗"
				}
				fmt.Fprintf(w, "%s %s (mode %s, %d links)\n", status, s.ID, s.Mode, s.Links)
				if s.Verified && !s.LastOK {
					fmt.Fprintf(w, "  last verification failed at line %d\n", s.LastFailedAt)
				}
			}
			return nil
		},
	}
}

func newIndexRestoreCommand(rootOpts *RootOptions, opts *indexOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <out>",
		Short: "Rebuild a log file from the mirror",
		Long: `Rebuild a log file from a mirrored chain. Every stored link is checked
before anything is written. The output file must not exist or be empty.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndexRestore(rootOpts, opts, args[0], cmd)
		},
	}
}

func runIndexRestore(rootOpts *RootOptions, opts *indexOptions, out string, cmd *cobra.Command) error {
	formatter := rootOpts.formatter(cmd)
	ctx := cmd.Context()
	chainID := opts.chainID(rootOpts.file())

	st, err := store.Open(opts.database(rootOpts, cmd))
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	c, ok := findChain(ctx, st, chainID)
	if !ok {
		_ = formatter.Error(chain.CodeNotFound, fmt.Sprintf("chain %q not found", chainID), nil)
		return NewExitError(ExitCommandError, "chain not found")
	}

	stored, err := st.ReadLinks(ctx, chainID)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read links", err)
	}
	ledger, err := store.LedgerFromLinks[modea.ActionA](stored)
	if err != nil {
		_ = formatter.Error(chain.CodeSerialization, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to decode links", err)
	}

	book, err := restoreBook(c, ledger)
	if err != nil {
		return formatter.Fail("restore failed", err)
	}

	if info, err := os.Stat(out); err == nil && info.Size() > 0 {
		return formatter.Fail("restore failed", &chain.IOError{File: out, Op: "create", Err: os.ErrExist})
	}
	if err := logfile.Create[modea.StateA](out, book.InitialState().HeaderLines()...); err != nil {
		return formatter.Fail("restore failed", err)
	}
	if err := logfile.Append(out, book); err != nil {
		return formatter.Fail("restore failed", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{"file": out, "chain": chainID, "links": book.Len()})
	}
	fmt.Fprintf(formatter.Writer, "✓ Restored %s from %q (%d links)\n", out, chainID, book.Len())
	return nil
}

// restoreBook replays ledger on top of the chain's header, checking each
// link the way validate does.
func restoreBook(c store.Chain, ledger chain.Ledger[modea.ActionA]) (*modea.Book, error) {
	state := modea.StateA{}.DefaultState()
	for i, line := range strings.Split(c.Header, "\n") {
		if line == "" {
			continue
		}
		h, err := chain.ParseHeaderLine(line)
		if err == nil {
			state, err = chain.ApplyHeader(state, h)
		}
		if err != nil {
			return nil, &chain.SerializationError{Line: i + 1, Text: line, Err: err}
		}
	}

	book := chain.NewBookFrom[modea.ActionA](state)
	for i, msg := range ledger.All() {
		if !chain.Accepts(book.Last(), msg, book.State()) {
			return nil, &chain.FailedValidationError[modea.ActionA]{
				File:   c.ID,
				Line:   i + 1,
				Last:   book.Last(),
				Failed: msg,
			}
		}
		if err := book.ApplyMessage(msg); err != nil {
			var bad *chain.BadActionError
			if errors.As(err, &bad) {
				bad.Line = i + 1
			}
			return nil, err
		}
	}
	return book, nil
}

func findChain(ctx context.Context, st *store.Store, id string) (store.Chain, bool) {
	chains, err := st.ListChains(ctx)
	if err != nil {
		return store.Chain{}, false
	}
	for _, c := range chains {
		if c.ID == id {
			return c, true
		}
	}
	return store.Chain{}, false
}

func encodeHeader(lines []chain.HeaderLine) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.String()
	}
	return strings.Join(parts, "\n")
}
