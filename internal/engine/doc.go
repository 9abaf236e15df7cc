// Package engine runs actions against a chain: it checks applicability,
// mines the proof of work, applies the action and reports what happened.
//
// One Run is one synchronous mining attempt on the caller's goroutine.
// Progress is reported in-line with the search loop through an Observer,
// so a slow observer slows mining. Cancellation is explicit: cancel the
// context passed to Run and the search stops between attempts.
//
// Outcomes:
//   - inapplicable action: OnFailure(chain.ErrNotApplicable), nil error
//   - mined and applied: OnSuccess(key), nil error
//   - cancelled, exhausted or Apply failed: OnFailure(err), err
package engine
