package harness

import "github.com/roach88/dit/internal/modea"

// Step outcomes.
const (
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
)

// TraceEvent records one step. Keys are left out so traces stay readable
// and stable across source changes.
type TraceEvent struct {
	Seq     int    `json:"seq"`
	Type    string `json:"type"`
	BitCost int    `json:"bit_cost"`
	Outcome string `json:"outcome"`
	Version uint64 `json:"version"`
	HP      int64  `json:"hp"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step met its expectation, the log validated
	// and every assertion held.
	Pass bool `json:"pass"`

	// Trace has one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final state.
	State modea.StateA `json:"state"`

	// Links is the number of committed links.
	Links int `json:"links"`

	// Log is the serialized log, header included.
	Log []byte `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event.
func (r *Result) AddTrace(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}
