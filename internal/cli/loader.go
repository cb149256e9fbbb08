package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/provex/internal/compiler"
)

// LoadError represents an error that occurred while loading a program
// directory.
type LoadError struct {
	Code    string
	Message string
	Field   string    // snapshot field path, for compile errors
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Line returns the CUE line of the error, or 0.
func (e *LoadError) Line() int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

// LoadProgram compiles the CUE program directory dir. Every failure is a
// *LoadError carrying one of the E-codes below.
func LoadProgram(dir string) (*compiler.Loaded, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("program directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing program directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	loaded, err := compiler.LoadDir(dir)
	if err != nil {
		return nil, convertLoadError(err)
	}
	return loaded, nil
}

// convertLoadError converts a compiler failure to a LoadError with position
// info. Compile errors are coded by snapshot section; CUE build errors keep
// the code of the stage that raised them.
func convertLoadError(err error) *LoadError {
	code := ErrCodeGeneric
	var failure *compiler.LoadFailure
	if errors.As(err, &failure) {
		switch failure.Stage {
		case compiler.StageScan:
			code = ErrCodeScanError
		case compiler.StageNoFiles:
			code = ErrCodeNoFiles
		case compiler.StageLoad:
			code = ErrCodeLoadFailed
		case compiler.StageBuild:
			code = ErrCodeBuildFailed
		}
	}

	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		if c := MapFieldToErrorCode(compileErr.Field); c != ErrCodeGeneric {
			code = c
		}
		return &LoadError{
			Code:    code,
			Message: compileErr.Message,
			Field:   compileErr.Field,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: code, Message: err.Error()}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeStore       = "E008" // Run store error

	// Snapshot compile errors
	ErrCodeRelations = "E101" // Invalid relation declaration or tuple
	ErrCodeRules     = "E102" // Invalid rule description
	ErrCodeSubproofs = "E103" // Invalid subproof answer
	ErrCodeSymbols   = "E104" // Invalid symbol table
)

// MapFieldToErrorCode maps a compiler error field path such as
// "relations.edge.tuples[1]" to an error code by its top-level section.
func MapFieldToErrorCode(field string) string {
	section, _, _ := strings.Cut(field, ".")
	section, _, _ = strings.Cut(section, "[")
	switch section {
	case "relations":
		return ErrCodeRelations
	case "rules":
		return ErrCodeRules
	case "subproofs":
		return ErrCodeSubproofs
	case "symbols":
		return ErrCodeSymbols
	default:
		return ErrCodeGeneric
	}
}
