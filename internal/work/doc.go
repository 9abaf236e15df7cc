// Package work implements the proof-of-work primitives of the dit chain.
//
// A link is admitted after its predecessor only when the SHA3-224 digest of
//
//	predecessorKey || actionJSON || nonce
//
// agrees with predecessorKey on its trailing N bits, where N is the bit cost
// of the action. Finding a nonce is a Las Vegas search: the expected number
// of attempts is 2^N and there is no upper bound unless the caller sets one.
// Verifying a nonce costs exactly one digest.
//
// Randomness is never global. Callers hand a Source to Search so tests can
// reproduce a search with a seeded generator.
package work
