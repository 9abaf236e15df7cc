// Package harness runs scripted mode A scenarios against the engine.
//
// A scenario lists actions to mine onto an empty log, the outcome expected
// of each, and assertions over the resulting trace and state. Every run is
// seeded, so the same scenario always produces the same log.
//
// # Scenario Format
//
//	name: version_upgrade
//	description: "Versions only move forward"
//	seed: 7
//	hp: 100            # optional starting hp, written as a header line
//	max_attempts: 0    # optional per-search bound
//	steps:
//	  - action: { type: updateversion, version: 10200 }
//	    expect: committed
//	  - action: { type: updateversion, version: 10100 }
//	    expect: rejected
//	assertions:
//	  - type: trace_count
//	    action: updateversion
//	    count: 1
//	  - type: final_state
//	    state: { version: 10200 }
//
// Outcomes are committed, rejected (not applicable, nothing mined) and
// error (the search or apply failed).
//
// # Assertion Types
//
//   - trace_contains: a step of the given action type has the given outcome
//   - trace_order: committed action types appear in this order
//   - trace_count: the action type was committed exactly N times
//   - final_state: the final state has the given fields
//   - link_count: the log holds exactly N links
//
// After the steps run, the harness serializes the log and validates it from
// scratch; a log that fails validation fails the scenario.
package harness
