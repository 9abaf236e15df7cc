package harness

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/roach88/dit/internal/chain"
	"github.com/roach88/dit/internal/engine"
	"github.com/roach88/dit/internal/logfile"
	"github.com/roach88/dit/internal/modea"
	"github.com/roach88/dit/internal/store"
	"github.com/roach88/dit/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with a seeded key search and fixed run IDs.
type Harness struct {
	engine *engine.Engine[modea.ActionA, modea.StateA]
	book   *modea.Book
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Start an empty book at the scenario's initial state
// 2. Mine each step and compare its outcome with the expectation
// 3. Serialize the log and validate it from scratch
// 4. Mirror the log into an in-memory store and cross-check it
// 5. Evaluate assertions
//
// A scenario that runs but does not hold yields a failing Result, not an
// error.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	initial := modea.StateA{}.DefaultState()
	if scenario.HP != nil {
		initial.HP = *scenario.HP
	}

	ids := make([]string, len(scenario.Steps))
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-%d", scenario.Name, i+1)
	}

	logger := slog.New(slog.DiscardHandler)
	h := &Harness{
		engine: engine.New[modea.ActionA, modea.StateA](
			engine.WithSource(testutil.NewSeededSource(scenario.Seed)),
			engine.WithRunIDs(engine.NewFixedGenerator(ids...)),
			engine.WithMaxAttempts(scenario.MaxAttempts),
			engine.WithLogger(logger),
		),
		book:   chain.NewBookFrom[modea.ActionA](initial),
		logger: logger,
	}

	result := NewResult()
	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}
	result.State = h.book.State()
	result.Links = h.book.Len()

	// Checks still run when mining was cancelled.
	checkCtx := context.WithoutCancel(ctx)
	if err := h.checkLog(checkCtx, scenario.Name, result); err != nil {
		return nil, err
	}
	if err := h.checkMirror(checkCtx, scenario.Name, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// RunFile loads and runs the scenario at path.
func RunFile(ctx context.Context, path string) (*Result, error) {
	scenario, err := LoadScenario(path)
	if err != nil {
		return nil, err
	}
	return Run(ctx, scenario)
}

// executeSteps mines each step onto the book and records its outcome.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		action, err := step.ToAction()
		if err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}

		bits := action.BitCost(h.book.State())
		out, err := h.engine.Commit(ctx, h.book, action)

		outcome := OutcomeCommitted
		switch {
		case err != nil:
			outcome = OutcomeError
		case !out.Committed:
			outcome = OutcomeRejected
		}

		state := h.book.State()
		result.AddTrace(TraceEvent{
			Seq:     i + 1,
			Type:    string(action.Type),
			BitCost: bits,
			Outcome: outcome,
			Version: state.Version,
			HP:      state.HP,
		})
		h.logger.Debug("step finished", "step", i+1, "run_id", out.RunID, "outcome", outcome, "attempts", out.Attempts)

		if step.Expect != outcome {
			msg := fmt.Sprintf("step %d (%s): expected %s, got %s", i+1, action.Type, step.Expect, outcome)
			if err != nil {
				msg += ": " + err.Error()
			}
			result.AddError(msg)
		}
	}
	return nil
}

// checkLog serializes the book and validates the bytes as a fresh log.
func (h *Harness) checkLog(ctx context.Context, name string, result *Result) error {
	var buf bytes.Buffer
	if err := chain.WriteHeader[modea.StateA](&buf, h.book.InitialState().HeaderLines()...); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := h.book.WriteChanges(&buf); err != nil {
		return fmt.Errorf("write links: %w", err)
	}
	result.Log = bytes.Clone(buf.Bytes())

	validated, err := logfile.ValidateReader[modea.ActionA, modea.StateA](ctx, &buf, name)
	if err != nil {
		result.AddError(fmt.Sprintf("log does not validate: %v", err))
		return nil
	}
	if validated.State() != h.book.State() {
		result.AddError(fmt.Sprintf("validated state %+v differs from mined state %+v", validated.State(), h.book.State()))
	}
	return nil
}

// checkMirror imports the book into an in-memory store and compares the
// stored per-type counts with the trace.
func (h *Harness) checkMirror(ctx context.Context, name string, result *Result) error {
	st, err := store.Open(":memory:")
	if err != nil {
		return fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	links, err := store.LinksFromBook(h.book)
	if err != nil {
		return fmt.Errorf("encode links: %w", err)
	}
	c := store.Chain{
		ID:       name,
		Mode:     string(chain.ModeA),
		RootHash: h.book.RootHash().String(),
	}
	if _, err := st.ImportLedger(ctx, c, links); err != nil {
		return fmt.Errorf("import links: %w", err)
	}

	stored, err := st.CountByType(ctx, name)
	if err != nil {
		return fmt.Errorf("count links: %w", err)
	}
	if want := committedCounts(result.Trace); !maps.Equal(stored, want) {
		result.AddError(fmt.Sprintf("mirror holds %v, trace committed %v", stored, want))
	}
	return nil
}
