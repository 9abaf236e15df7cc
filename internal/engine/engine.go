package engine

import (
	"context"
	"io"
	"log/slog"

	"github.com/roach88/dit/internal/chain"
	"github.com/roach88/dit/internal/work"
)

// Outcome describes one Run.
type Outcome[A any, S any] struct {
	RunID string

	// Committed is true when a key was found and the action applied.
	Committed bool

	// Message is the new link. Zero unless Committed.
	Message chain.Message[A]

	// State is the state after the action, or the input state when not
	// committed.
	State S

	// Attempts is the number of digests computed.
	Attempts uint64
}

type config struct {
	observer    Observer
	period      uint32
	maxAttempts uint64
	src         work.Source
	runIDs      RunIDGenerator
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*config)

// WithObserver sets the observer for progress, success and failure events.
func WithObserver(o Observer) Option {
	return func(c *config) {
		c.observer = o
	}
}

// WithPeriod sets how many attempts pass between OnAttempt calls.
//
// Default: work.DefaultPeriod (effectively never). Zero disables reports.
func WithPeriod(period uint32) Option {
	return func(c *config) {
		c.period = period
	}
}

// WithMaxAttempts bounds each search. Zero (the default) is unbounded.
func WithMaxAttempts(n uint64) Option {
	return func(c *config) {
		c.maxAttempts = n
	}
}

// WithSource sets the nonce source. Default: work.NewSource().
func WithSource(src work.Source) Option {
	return func(c *config) {
		c.src = src
	}
}

// WithRunIDs sets the run ID generator. Default: UUIDv7Generator.
func WithRunIDs(g RunIDGenerator) Option {
	return func(c *config) {
		c.runIDs = g
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// Engine mines actions onto a chain.
//
// An Engine holds no chain state; the ledger and state are passed to each
// Run. It is not safe for concurrent use when its Source is not.
type Engine[A chain.Action[A, S], S chain.State[S]] struct {
	cfg config
}

// New creates an Engine.
func New[A chain.Action[A, S], S chain.State[S]](opts ...Option) *Engine[A, S] {
	cfg := config{
		observer: Hooks{},
		period:   work.DefaultPeriod,
		runIDs:   UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.src == nil {
		cfg.src = work.NewSource()
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine[A, S]{cfg: cfg}
}

// Run checks, mines and applies action on top of ledger at state.
//
// Run does not modify ledger; the caller commits Outcome.Message (see
// Commit).
func (e *Engine[A, S]) Run(ctx context.Context, action A, ledger chain.Ledger[A], state S) (Outcome[A, S], error) {
	runID := e.cfg.runIDs.Generate()
	log := e.cfg.logger.With("run_id", runID, "position", ledger.Len())
	out := Outcome[A, S]{RunID: runID, State: state}

	if !action.Applicable(ledger, state) {
		log.Info("action not applicable", "action", action)
		e.cfg.observer.OnFailure(chain.ErrNotApplicable)
		return out, nil
	}

	prev, ok := ledger.Last()
	if !ok {
		prev = chain.DefaultMessage[A]()
	}

	bits := action.BitCost(state)
	log.Debug("mining started", "bits", bits, "prev", prev.Key)

	opts := []work.SearchOption{
		work.WithPeriod(e.cfg.period),
		work.WithMaxAttempts(e.cfg.maxAttempts),
		work.WithProgress(func(p work.Progress) {
			e.cfg.observer.OnAttempt(Progress{
				RunID:    runID,
				Attempts: p.Attempts,
				Digest:   chain.HexFromBytes(p.Digest),
			})
		}),
	}
	msg, res, err := chain.NextMessage(ctx, prev, action, state, e.cfg.src, opts...)
	out.Attempts = res.Attempts
	if err != nil {
		merr := &MiningError{RunID: runID, Attempts: res.Attempts, Err: err}
		log.Warn("mining stopped", "attempts", res.Attempts, "error", err)
		e.cfg.observer.OnFailure(merr)
		return out, merr
	}

	next, err := action.Apply(ledger.Pending(msg.Key), state)
	if err != nil {
		berr := &chain.BadActionError{Err: err}
		log.Warn("apply failed", "key", msg.Key, "error", err)
		e.cfg.observer.OnFailure(berr)
		return out, berr
	}

	out.Committed = true
	out.Message = msg
	out.State = next
	log.Info("link mined", "key", msg.Key, "bits", bits, "attempts", res.Attempts)
	e.cfg.observer.OnSuccess(msg.Key)
	return out, nil
}

// Commit runs action against book and appends the new link on success.
// The state Run computed is committed as is; Apply runs once per link.
// The book is unchanged unless the outcome is committed.
func (e *Engine[A, S]) Commit(ctx context.Context, book *chain.Book[A, S], action A) (Outcome[A, S], error) {
	ledger := book.Ledger()
	out, err := e.Run(ctx, action, ledger, book.State())
	if err != nil || !out.Committed {
		return out, err
	}
	if err := book.Extend(ledger.Len(), out.Message, out.State); err != nil {
		out.Committed = false
		return out, err
	}
	return out, nil
}
