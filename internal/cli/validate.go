package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dit/internal/chain"
	"github.com/roach88/dit/internal/logfile"
	"github.com/roach88/dit/internal/modea"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	File    string `json:"file"`
	Valid   bool   `json:"valid"`
	Links   int    `json:"links"`
	Line    int    `json:"line,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check every link of the log",
		Long: `Replay the log and check that every link's key is a valid proof of work
over the previous key and its action, and that every action applies.

Reports the first line that fails. Exit code 1 means the log is invalid,
2 means it could not be read.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	path := opts.file()

	book, err := logfile.ValidateFile[modea.ActionA, modea.StateA](cmd.Context(), path)
	if err != nil {
		if code := chain.Code(err); code == chain.CodeIO || code == chain.CodeNotFound {
			return formatter.Fail("validate failed", err)
		}
		return outputValidationFailure(formatter, path, err)
	}

	formatter.VerboseLog("Checked %d link(s) in %s", book.Len(), path)
	return outputValidateSuccess(formatter, ValidationResult{File: path, Valid: true, Links: book.Len()})
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ %s valid (%d links)\n", result.File, result.Links)
	return nil
}

// outputValidationFailure reports an invalid log.
func outputValidationFailure(formatter *OutputFormatter, path string, err error) error {
	result := ValidationResult{
		File:    path,
		Valid:   false,
		Line:    lineOf(err),
		Code:    chain.Code(err),
		Message: err.Error(),
	}

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    result.Code,
				Message: result.Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if encErr := encoder.Encode(response); encErr != nil {
			return encErr
		}
		return WrapExitError(exitCodeFor(err), "validation failed", err)
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	if result.Line > 0 {
		fmt.Fprintf(formatter.Writer, "line %d\n", result.Line)
	}
	fmt.Fprintf(formatter.Writer, "  %s: %s\n", result.Code, result.Message)

	return WrapExitError(exitCodeFor(err), "validation failed", err)
}
