// Package chain provides the data model of a dit log.
//
// A log is an ordered, append-only sequence of links (Message). Each link
// pairs an action with a key: the proof-of-work nonce that ties the action to
// the key of the link before it (see package work). The first link follows a
// virtual default link whose key is "00000000" and whose action is the
// domain's default action.
//
// Domains plug into the chain by implementing two contracts:
//
//   - State: a snapshot with a canonical default, header parsing, a root hash
//     and a mode tag.
//   - Action: a serializable transition with a bit cost, a cheap
//     applicability check and a pure Apply.
//
// State is only ever produced by folding actions, in log order, over the
// default state. Book owns a log plus that fold and a watermark of how many
// links are already persisted.
//
// # On-disk format
//
// One JSON object per line:
//
//	{"key":"<lowercase hex>","action":{"type":"...", ...}}
//
// The log may start with header lines beginning with '#':
//
//	#dit 1.0.0
//	#mode A
//
// Line numbers reported in errors are physical, 1-based line numbers.
package chain
