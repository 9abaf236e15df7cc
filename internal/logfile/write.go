package logfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/roach88/dit/internal/chain"
	"github.com/roach88/dit/internal/engine"
)

// Producer picks the next action given the replayed state.
type Producer[A, S any] func(state S) (A, error)

// Create writes a fresh header to path. It fails if path already has
// content.
func Create[S chain.State[S]](path string, extra ...chain.HeaderLine) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return &chain.IOError{File: path, Op: "open", Err: err}
	}
	defer f.Close()

	empty, err := isEmpty(f)
	if err != nil {
		return &chain.IOError{File: path, Op: "stat", Err: err}
	}
	if !empty {
		return &chain.IOError{File: path, Op: "create", Err: os.ErrExist}
	}
	if err := chain.WriteHeader[S](f, extra...); err != nil {
		return &chain.IOError{File: path, Op: "write", Err: err}
	}
	return nil
}

// WithState replays the log at path, asks produce for the next action and
// mines it with eng. On commit exactly the new line is appended; a new or
// empty file gets a header first.
func WithState[A chain.Action[A, S], S chain.State[S]](
	ctx context.Context,
	path string,
	produce Producer[A, S],
	eng *engine.Engine[A, S],
) (engine.Outcome[A, S], error) {
	var none engine.Outcome[A, S]

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return none, &chain.IOError{File: path, Op: "open", Err: err}
	}
	defer f.Close()

	empty, err := isEmpty(f)
	if err != nil {
		return none, &chain.IOError{File: path, Op: "stat", Err: err}
	}

	book, err := chain.ReadBook[A, S](f)
	if err != nil {
		return none, annotate(path, err)
	}

	action, err := produce(book.State())
	if err != nil {
		return none, fmt.Errorf("produce action: %w", err)
	}

	out, err := eng.Commit(ctx, book, action)
	if err != nil || !out.Committed {
		return out, err
	}

	if err := flush(f, book, empty); err != nil {
		return out, &chain.IOError{File: path, Op: "write", Err: err}
	}
	return out, nil
}

// Append writes book's unsaved links to path, creating it with a header if
// needed. A new file's header reproduces the book's starting state. The
// watermark only moves when the whole write succeeds; otherwise the file is
// left as it was.
func Append[A chain.Action[A, S], S chain.State[S]](path string, book *chain.Book[A, S]) error {
	if book.Pending() == 0 {
		return nil
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return &chain.IOError{File: path, Op: "open", Err: err}
	}
	defer f.Close()

	empty, err := isEmpty(f)
	if err != nil {
		return &chain.IOError{File: path, Op: "stat", Err: err}
	}
	if err := flush(f, book, empty); err != nil {
		return &chain.IOError{File: path, Op: "write", Err: err}
	}
	return nil
}

// logFile is the part of *os.File that flush needs.
type logFile interface {
	io.Writer
	Stat() (os.FileInfo, error)
	Truncate(size int64) error
	Sync() error
}

// flush appends book's unsaved links to f, after the header when header is
// set. The header carries the domain lines of the book's starting state. On
// any error f is cut back to its previous size and the watermark stays put.
func flush[A chain.Action[A, S], S chain.State[S]](f logFile, book *chain.Book[A, S], header bool) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	size := info.Size()

	err = writeLinks(f, book, header)
	if err == nil {
		err = f.Sync()
	}
	if err != nil {
		if terr := f.Truncate(size); terr != nil {
			return errors.Join(err, fmt.Errorf("truncate to %d bytes: %w", size, terr))
		}
		return err
	}
	book.MarkSaved()
	return nil
}

func writeLinks[A chain.Action[A, S], S chain.State[S]](w io.Writer, book *chain.Book[A, S], header bool) error {
	if header {
		if err := chain.WriteHeader[S](w, chain.HeaderLinesOf(book.InitialState())...); err != nil {
			return err
		}
	}
	_, err := book.WritePendingChanges(w)
	return err
}

func isEmpty(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	return info.Size() == 0, nil
}
