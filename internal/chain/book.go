package chain

import (
	"errors"
	"fmt"
	"io"
)

// Book is a log together with the state it replays to.
//
// The state always equals the fold of the links over the default state (or
// over the header-initialized state for books read from a file). The saved
// watermark counts how many links are already persisted.
type Book[A Action[A, S], S State[S]] struct {
	links   []Message[A]
	initial S
	state   S
	saved   int
}

// NewBook returns an empty book at the default state.
func NewBook[A Action[A, S], S State[S]]() *Book[A, S] {
	s := defaultState[S]()
	return &Book[A, S]{initial: s, state: s}
}

// NewBookFrom returns an empty book at the given starting state, as produced
// by a log header.
func NewBookFrom[A Action[A, S], S State[S]](state S) *Book[A, S] {
	return &Book[A, S]{initial: state, state: state}
}

// ReadBook replays a log. Every link read from r counts as saved.
//
// Replay checks applicability and applies each action; it does not re-verify
// proof of work (see logfile.Validate for that).
func ReadBook[A Action[A, S], S State[S]](r io.Reader) (*Book[A, S], error) {
	dec := NewDecoder[A](r)
	header, err := dec.ReadHeader()
	if err != nil {
		return nil, err
	}

	state := defaultState[S]()
	for i, h := range header {
		state, err = ApplyHeader(state, h)
		if err != nil {
			var wm *WrongModeError
			if errors.As(err, &wm) {
				return nil, err
			}
			return nil, &SerializationError{Line: i + 1, Text: h.String(), Err: err}
		}
	}

	book := NewBookFrom[A](state)
	for {
		msg, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := book.ApplyMessage(msg); err != nil {
			var bad *BadActionError
			if errors.As(err, &bad) {
				bad.Line = dec.Line()
			}
			return nil, err
		}
	}
	book.saved = len(book.links)
	return book, nil
}

// Ledger returns a view of all links.
func (b *Book[A, S]) Ledger() Ledger[A] {
	return Ledger[A]{links: b.links[:len(b.links):len(b.links)]}
}

// State returns the current state.
func (b *Book[A, S]) State() S {
	return b.state
}

// Len returns the number of links.
func (b *Book[A, S]) Len() int {
	return len(b.links)
}

// InitialState returns the state the links are folded over.
func (b *Book[A, S]) InitialState() S {
	return b.initial
}

// SavedLines returns the persisted watermark.
func (b *Book[A, S]) SavedLines() int {
	return b.saved
}

// Pending returns the number of links not yet persisted.
func (b *Book[A, S]) Pending() int {
	return len(b.links) - b.saved
}

// Last returns the last link, or the default message for an empty book.
func (b *Book[A, S]) Last() Message[A] {
	if len(b.links) == 0 {
		return DefaultMessage[A]()
	}
	return b.links[len(b.links)-1]
}

// RootHash returns the root hash of the current state.
func (b *Book[A, S]) RootHash() HexString {
	return b.state.RootHash()
}

// ApplyMessage appends msg if its action is applicable and applies cleanly.
// On error the book is unchanged.
func (b *Book[A, S]) ApplyMessage(msg Message[A]) error {
	ledger := b.Ledger()
	if !msg.Action.Applicable(ledger, b.state) {
		return &BadActionError{Err: ErrNotApplicable}
	}
	next, err := msg.Action.Apply(ledger.Pending(msg.Key), b.state)
	if err != nil {
		if !errors.Is(err, ErrBadAction) {
			err = fmt.Errorf("%w: %w", ErrBadAction, err)
		}
		return &BadActionError{Err: err}
	}
	b.links = append(b.links, msg)
	b.state = next
	return nil
}

// WriteChanges writes the unsaved links and advances the watermark past
// every line written in full. A failed write can leave a torn partial line
// on w; the caller must remove it before retrying.
func (b *Book[A, S]) WriteChanges(w io.Writer) error {
	n, err := b.WritePendingChanges(w)
	b.saved += n
	return err
}

// WritePendingChanges writes the unsaved links without moving the watermark
// and returns how many lines were written in full. Each line goes to w in a
// single Write call.
func (b *Book[A, S]) WritePendingChanges(w io.Writer) (int, error) {
	pending := b.links[b.saved:]
	for i, msg := range pending {
		line, err := EncodeMessage(msg)
		if err != nil {
			return i, err
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return i, err
		}
	}
	return len(pending), nil
}

// Extend appends msg with next as its resulting state, for callers that
// already applied msg.Action at position pos (see engine.Commit). It fails,
// leaving the book unchanged, if the book no longer has pos links.
func (b *Book[A, S]) Extend(pos int, msg Message[A], next S) error {
	if pos != len(b.links) {
		return fmt.Errorf("extend at link %d: book has %d links", pos, len(b.links))
	}
	b.links = append(b.links, msg)
	b.state = next
	return nil
}

// MarkSaved moves the watermark to the end, for callers that persisted the
// pending links themselves.
func (b *Book[A, S]) MarkSaved() {
	b.saved = len(b.links)
}
