package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/provex/internal/engine"
	"github.com/roach88/provex/internal/program"
	"github.com/roach88/provex/internal/seed"
)

// ValidationIssue is one problem found in a program.
type ValidationIssue struct {
	Field   string `json:"field,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Digest    string            `json:"digest,omitempty"`
	Relations int               `json:"relations"`
	Rules     int               `json:"rules"`
	Seeds     int               `json:"seeds"`
	Errors    []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <program-dir>",
		Short: "Check a program without explaining it",
		Long: `Compile a CUE program directory and check that the explorer accepts it.

Reports snapshot errors (bad relation declarations, tuples of the wrong
width, malformed subproof answers) with their CUE positions, then checks
every rule description the explorer will read.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, programDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, err := LoadProgram(programDir)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Field != "" {
			return outputValidationErrors(formatter, []ValidationIssue{{
				Field:   loadErr.Field,
				Code:    loadErr.Code,
				Message: loadErr.Message,
				Line:    loadErr.Line(),
			}})
		}
		// Missing directories and unloadable CUE are command errors.
		return reportCommandError(formatter, err)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, programDir)

	result, issues := validateSnapshot(loaded.Snapshot, formatter)
	if len(issues) > 0 {
		return outputValidationErrors(formatter, issues)
	}
	return outputValidateSuccess(formatter, result)
}

// validateSnapshot checks what CompileSnapshot cannot: that the explorer
// can index every info relation.
func validateSnapshot(snap *program.Snapshot, formatter *OutputFormatter) (ValidationResult, []ValidationIssue) {
	result := ValidationResult{Relations: len(snap.Relations())}

	digest, err := snap.Digest()
	if err != nil {
		return result, []ValidationIssue{{Code: ErrCodeGeneric, Message: err.Error()}}
	}
	result.Digest = digest

	ex, err := engine.New(snap)
	if err != nil {
		code := string(engine.ContractCode(err))
		if code == "" {
			code = ErrCodeGeneric
		}
		return result, []ValidationIssue{{Field: "rules", Code: code, Message: err.Error()}}
	}

	result.Rules = ex.Index().Len()
	result.Seeds = len(seed.Default(snap))
	formatter.VerboseLog("Indexed %d rule(s); %d output tuple(s) to explain by default", result.Rules, result.Seeds)

	result.Valid = true
	return result, nil
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "✓ Program valid")
	fmt.Fprintf(formatter.Writer, "  relations: %d, rules: %d, default seeds: %d\n",
		result.Relations, result.Rules, result.Seeds)
	return nil
}

// outputValidationErrors outputs validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []ValidationIssue) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := formatter.encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		if err.Field != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
		} else {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
		}
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
