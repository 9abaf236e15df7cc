package logfile

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/roach88/dit/internal/chain"
)

// Validate re-checks the proof of work of every link in the log at path.
//
// Starting from the default link and the header state, each link must be
// accepted by the one before it; its action is then folded into the state.
// The first failure stops validation. Validation computes exactly one digest
// per link and never searches.
func Validate[A chain.Action[A, S], S chain.State[S]](ctx context.Context, path string) error {
	_, err := ValidateFile[A, S](ctx, path)
	return err
}

// ValidateFile is Validate returning the validated book.
func ValidateFile[A chain.Action[A, S], S chain.State[S]](ctx context.Context, path string) (*chain.Book[A, S], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &chain.IOError{File: path, Op: "open", Err: err}
	}
	defer f.Close()

	book, err := ValidateReader[A, S](ctx, f, path)
	if err != nil {
		return nil, annotate(path, err)
	}
	return book, nil
}

// ValidateReader validates a log read from r. name identifies the log in
// errors.
func ValidateReader[A chain.Action[A, S], S chain.State[S]](ctx context.Context, r io.Reader, name string) (*chain.Book[A, S], error) {
	dec := chain.NewDecoder[A](r)
	header, err := dec.ReadHeader()
	if err != nil {
		return nil, err
	}

	state := chain.DefaultState[S]()
	for i, h := range header {
		state, err = chain.ApplyHeader(state, h)
		if err != nil {
			if chain.IsWrongMode(err) {
				return nil, err
			}
			return nil, &chain.SerializationError{Line: i + 1, Text: h.String(), Err: err}
		}
	}

	book := chain.NewBookFrom[A](state)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		msg, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		last := book.Last()
		if !chain.Accepts(last, msg, book.State()) {
			return nil, &chain.FailedValidationError[A]{
				File:   name,
				Line:   dec.Line(),
				Last:   last,
				Failed: msg,
			}
		}
		if err := book.ApplyMessage(msg); err != nil {
			var bad *chain.BadActionError
			if errors.As(err, &bad) {
				bad.Line = dec.Line()
			}
			return nil, err
		}
	}
	book.MarkSaved()
	return book, nil
}
