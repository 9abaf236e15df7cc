package chain

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// ErrBadAction marks an action that cannot be applied to the current state.
// Domain Apply implementations wrap it.
var ErrBadAction = errors.New("bad action")

// ErrNotApplicable is reported when Applicable rejects an action.
var ErrNotApplicable = fmt.Errorf("%w: not applicable", ErrBadAction)

// Error codes. Stable strings for machine-readable output.
const (
	CodeIO               = "E_IO"
	CodeNotFound         = "E_NOT_FOUND"
	CodeSerialization    = "E_SERIALIZATION"
	CodeFailedValidation = "E_FAILED_VALIDATION"
	CodeBadAction        = "E_BAD_ACTION"
	CodeWrongMode        = "E_WRONG_MODE"
	CodeInternal         = "E_INTERNAL"
)

// IOError is a failure reading or writing a log file.
type IOError struct {
	File string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	op := e.Op
	if op == "" {
		op = "access"
	}
	return fmt.Sprintf("%s %s: %v", op, e.File, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// NotFound reports whether the underlying error is a missing file.
func (e *IOError) NotFound() bool {
	return errors.Is(e.Err, fs.ErrNotExist)
}

// SerializationError is a line that does not parse.
type SerializationError struct {
	Line int
	Text string
	Err  error
}

func (e *SerializationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: malformed entry: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("malformed entry: %v", e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// FailedValidationError is a link whose proof of work does not check out
// against the link before it.
type FailedValidationError[A any] struct {
	File   string
	Line   int
	Last   Message[A]
	Failed Message[A]
}

func (e *FailedValidationError[A]) Error() string {
	var b strings.Builder
	if e.File != "" {
		fmt.Fprintf(&b, "%s: ", e.File)
	}
	fmt.Fprintf(&b, "validation failed at line %d: key %s does not follow %s", e.Line, e.Failed.Key, e.Last.Key)
	return b.String()
}

// FailedLine implements ValidationFailure.
func (e *FailedValidationError[A]) FailedLine() int {
	return e.Line
}

// ValidationFailure is implemented by every FailedValidationError
// instantiation, so callers can match it without knowing the action type.
type ValidationFailure interface {
	error
	FailedLine() int
}

// BadActionError is an action rejected during replay.
type BadActionError struct {
	Line int
	Err  error
}

func (e *BadActionError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return e.Err.Error()
}

func (e *BadActionError) Unwrap() error {
	return e.Err
}

// Is makes every BadActionError match ErrBadAction.
func (e *BadActionError) Is(target error) bool {
	return target == ErrBadAction
}

// WrongModeError is a log written against a different schema.
type WrongModeError struct {
	Mode     Mode
	Expected []Mode
}

func (e *WrongModeError) Error() string {
	expected := make([]string, len(e.Expected))
	for i, m := range e.Expected {
		expected[i] = string(m)
	}
	return fmt.Sprintf("wrong mode %q, expected %s", e.Mode, strings.Join(expected, " or "))
}

// IsIO returns true if err is an IOError.
func IsIO(err error) bool {
	var e *IOError
	return errors.As(err, &e)
}

// IsNotFound returns true if err is an IOError for a missing file.
func IsNotFound(err error) bool {
	var e *IOError
	return errors.As(err, &e) && e.NotFound()
}

// IsSerialization returns true if err is a SerializationError.
func IsSerialization(err error) bool {
	var e *SerializationError
	return errors.As(err, &e)
}

// IsFailedValidation returns true if err is a FailedValidationError of any
// action type.
func IsFailedValidation(err error) bool {
	var e ValidationFailure
	return errors.As(err, &e)
}

// IsBadAction returns true if err is or wraps ErrBadAction.
func IsBadAction(err error) bool {
	return errors.Is(err, ErrBadAction)
}

// IsWrongMode returns true if err is a WrongModeError.
func IsWrongMode(err error) bool {
	var e *WrongModeError
	return errors.As(err, &e)
}

// Code maps err to its stable error code.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case IsNotFound(err):
		return CodeNotFound
	case IsIO(err):
		return CodeIO
	case IsSerialization(err):
		return CodeSerialization
	case IsFailedValidation(err):
		return CodeFailedValidation
	case IsWrongMode(err):
		return CodeWrongMode
	case IsBadAction(err):
		return CodeBadAction
	default:
		return CodeInternal
	}
}
