package chain

import "iter"

// Ledger is a read-only view of a prefix of a log.
//
// Views share storage with the Book they came from but are capped at their
// length, so nothing appended later is visible through them.
type Ledger[A any] struct {
	links []Message[A]
}

// NewLedger copies links into a fresh ledger.
func NewLedger[A any](links ...Message[A]) Ledger[A] {
	cp := make([]Message[A], len(links))
	copy(cp, links)
	return Ledger[A]{links: cp}
}

// Len returns the number of links.
func (l Ledger[A]) Len() int {
	return len(l.links)
}

// At returns link i. It panics if i is out of range.
func (l Ledger[A]) At(i int) Message[A] {
	return l.links[i]
}

// Last returns the final link, or false for an empty ledger.
func (l Ledger[A]) Last() (Message[A], bool) {
	if len(l.links) == 0 {
		var zero Message[A]
		return zero, false
	}
	return l.links[len(l.links)-1], true
}

// All iterates links in log order with their 0-based positions.
func (l Ledger[A]) All() iter.Seq2[int, Message[A]] {
	return func(yield func(int, Message[A]) bool) {
		for i, m := range l.links {
			if !yield(i, m) {
				return
			}
		}
	}
}

// Actions iterates the actions in log order.
func (l Ledger[A]) Actions() iter.Seq[A] {
	return func(yield func(A) bool) {
		for _, m := range l.links {
			if !yield(m.Action) {
				return
			}
		}
	}
}

// Links returns a copy of the links.
func (l Ledger[A]) Links() []Message[A] {
	cp := make([]Message[A], len(l.links))
	copy(cp, l.links)
	return cp
}

// Prefix returns the first n links. It panics if n is out of range.
func (l Ledger[A]) Prefix(n int) Ledger[A] {
	return Ledger[A]{links: l.links[:n:n]}
}

// Pending pairs the ledger with the key of the link being added to it.
func (l Ledger[A]) Pending(key HexString) PendingLedger[A] {
	return PendingLedger[A]{Ledger: l, Key: key}
}

// PendingLedger is the ledger an action sees while it is being applied:
// every link before it plus the key it was mined with.
type PendingLedger[A any] struct {
	Ledger[A]
	Key HexString
}

// Position is the 0-based index the pending link will occupy.
func (p PendingLedger[A]) Position() int {
	return p.Len()
}
