package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/dit/internal/chain"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The log is invalid, tampered with, or non-deterministic
	ExitCommandError = 2 // Command error (missing file, bad arguments, I/O, etc.)
)

// Error codes that do not come from package chain.
const (
	ErrCodeArgs        = "E_ARGS"
	ErrCodeConfig      = "E_CONFIG"
	ErrCodeDatabase    = "E_DATABASE"
	ErrCodeMining      = "E_MINING"
	ErrCodeDeterminism = "E_DETERMINISM"
	ErrCodeConflict    = "E_CONFLICT"
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// exitCodeFor maps chain error kinds to exit codes: problems with the log's
// content fail (1), problems reaching it are command errors (2).
func exitCodeFor(err error) int {
	switch chain.Code(err) {
	case chain.CodeFailedValidation, chain.CodeSerialization, chain.CodeBadAction, chain.CodeWrongMode:
		return ExitFailure
	default:
		return ExitCommandError
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
	RunID  string    `json:"run_id,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E_FAILED_VALIDATION", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "✗ [%s] %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "  Details: %v\n", details)
	}
	return nil
}

// Fail reports err with its chain error code and returns the ExitError the
// command should return.
func (f *OutputFormatter) Fail(message string, err error) error {
	code := chain.Code(err)
	if outErr := f.Error(code, fmt.Sprintf("%s: %v", message, err), errorDetails(err)); outErr != nil {
		return outErr
	}
	return WrapExitError(exitCodeFor(err), message, err)
}

// errorDetails pulls the structured fields out of chain errors for JSON
// output.
func errorDetails(err error) any {
	if line := lineOf(err); line > 0 {
		return map[string]any{"line": line}
	}
	var ioe *chain.IOError
	if errors.As(err, &ioe) {
		return map[string]any{"file": ioe.File}
	}
	return nil
}

// lineOf returns the 1-based log line an error points at, or 0.
func lineOf(err error) int {
	var fv chain.ValidationFailure
	var se *chain.SerializationError
	var bad *chain.BadActionError
	switch {
	case errors.As(err, &fv):
		return fv.FailedLine()
	case errors.As(err, &se):
		return se.Line
	case errors.As(err, &bad):
		return bad.Line
	}
	return 0
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
