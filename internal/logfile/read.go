package logfile

import (
	"errors"
	"os"

	"github.com/roach88/dit/internal/chain"
)

// ReadBook replays the log at path.
func ReadBook[A chain.Action[A, S], S chain.State[S]](path string) (*chain.Book[A, S], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &chain.IOError{File: path, Op: "open", Err: err}
	}
	defer f.Close()

	book, err := chain.ReadBook[A, S](f)
	if err != nil {
		return nil, annotate(path, err)
	}
	return book, nil
}

// ReadState replays the log at path and returns the final state with the
// links that produced it.
func ReadState[A chain.Action[A, S], S chain.State[S]](path string) (S, chain.Ledger[A], error) {
	book, err := ReadBook[A, S](path)
	if err != nil {
		var zero S
		return zero, chain.Ledger[A]{}, err
	}
	return book.State(), book.Ledger(), nil
}

// annotate attaches the file name to errors that carry one and wraps bare
// read errors as IOError.
func annotate(path string, err error) error {
	var fv chain.ValidationFailure
	var se *chain.SerializationError
	var bad *chain.BadActionError
	var wm *chain.WrongModeError
	var ioe *chain.IOError
	switch {
	case errors.As(err, &fv), errors.As(err, &se), errors.As(err, &bad), errors.As(err, &wm), errors.As(err, &ioe):
		return err
	default:
		return &chain.IOError{File: path, Op: "read", Err: err}
	}
}
