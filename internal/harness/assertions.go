package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/dit/internal/modea"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s (%d bits)\n", event.Seq, event.Type, event.Outcome, event.BitCost)
	}

	return buf.String()
}

// assertTraceContains checks for a step of the given action type, and
// outcome when one is given.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Type == assertion.Action && (assertion.Outcome == "" || event.Outcome == assertion.Outcome) {
			return nil
		}
	}

	expected := assertion.Action
	if assertion.Outcome != "" {
		expected += " " + assertion.Outcome
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "no matching step",
		Trace:    trace,
	}
}

// assertTraceOrder checks that committed action types first appear in the
// specified order. They need not be consecutive.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for _, event := range trace {
		if event.Outcome != OutcomeCommitted {
			continue
		}
		if _, seen := positions[event.Type]; !seen {
			positions[event.Type] = event.Seq
		}
	}

	for _, action := range assertion.Actions {
		if _, ok := positions[action]; !ok {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions committed: %v", assertion.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Actions); i++ {
		prev := assertion.Actions[i-1]
		curr := assertion.Actions[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual: fmt.Sprintf("%s (step %d) should be before %s (step %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks the action type was committed exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := committedCounts(trace)[assertion.Action]
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d commits of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d commits", count),
			Trace:    trace,
		}
	}
	return nil
}

func assertLinkCount(result *Result, assertion Assertion) error {
	if result.Links != assertion.Count {
		return &AssertionError{
			Type:     AssertLinkCount,
			Expected: fmt.Sprintf("%d links", assertion.Count),
			Actual:   fmt.Sprintf("%d links", result.Links),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertFinalState(state modea.StateA, trace []TraceEvent, assertion Assertion) error {
	want := assertion.State
	var diffs []string
	if want.Version != nil && *want.Version != state.Version {
		diffs = append(diffs, fmt.Sprintf("version=%d (want %d)", state.Version, *want.Version))
	}
	if want.HP != nil && *want.HP != state.HP {
		diffs = append(diffs, fmt.Sprintf("hp=%d (want %d)", state.HP, *want.HP))
	}
	if len(diffs) > 0 {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%+v", describeExpect(want)),
			Actual:   strings.Join(diffs, ", "),
			Trace:    trace,
		}
	}
	return nil
}

func describeExpect(e *StateExpect) map[string]any {
	m := map[string]any{}
	if e.Version != nil {
		m["version"] = *e.Version
	}
	if e.HP != nil {
		m["hp"] = *e.HP
	}
	return m
}

// committedCounts counts committed steps per action type.
func committedCounts(trace []TraceEvent) map[string]int {
	counts := map[string]int{}
	for _, event := range trace {
		if event.Outcome == OutcomeCommitted {
			counts[event.Type]++
		}
	}
	return counts
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertLinkCount:
			err = assertLinkCount(result, assertion)
		case AssertFinalState:
			if assertion.State == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires state", i)
			} else {
				err = assertFinalState(result.State, result.Trace, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
