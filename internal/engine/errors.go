package engine

import (
	"context"
	"errors"
	"fmt"
)

// ContractError reports evaluator output that breaks the provenance
// contract: the fixed auxiliary arity, descriptor-consistent grounding sizes
// or complete rule metadata.
//
// The evaluator is trusted, so a violation means its output cannot be
// interpreted. The run aborts; records already emitted stay in the sink.
type ContractError struct {
	// Code identifies the violation.
	Code ContractErrorCode

	// Message is a human-readable description.
	Message string

	// Relation is the head relation being explored, if any.
	Relation string

	// Rule is the rule number being explored, if any.
	Rule int32

	// Details contains additional context.
	Details map[string]string
}

// ContractErrorCode categorizes contract violations.
type ContractErrorCode string

const (
	// ErrCodeAuxArity: a worklist relation does not carry exactly two auxiliary fields.
	ErrCodeAuxArity ContractErrorCode = "AUX_ARITY"

	// ErrCodeUnknownHead: a worklist entry names a relation the catalog lacks.
	ErrCodeUnknownHead ContractErrorCode = "UNKNOWN_HEAD"

	// ErrCodeTupleShape: a worklist tuple does not match its relation's arity.
	ErrCodeTupleShape ContractErrorCode = "TUPLE_SHAPE"

	// ErrCodeMissingInfo: no info record exists for (relation, rule).
	ErrCodeMissingInfo ContractErrorCode = "MISSING_INFO"

	// ErrCodeInfoMalformed: an info relation could not be indexed.
	ErrCodeInfoMalformed ContractErrorCode = "INFO_MALFORMED"

	// ErrCodeShortRead: a subproof answer ended inside a grounding.
	ErrCodeShortRead ContractErrorCode = "SHORT_READ"

	// ErrCodeStalledGroup: a grounding consumed no words while words remained.
	ErrCodeStalledGroup ContractErrorCode = "STALLED_GROUP"
)

// Error implements the error interface.
func (e *ContractError) Error() string {
	if e.Relation != "" {
		return fmt.Sprintf("%s: %s (relation=%s, rule=%d)", e.Code, e.Message, e.Relation, e.Rule)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsContractError returns true if the error is a contract violation.
// Uses errors.As to handle wrapped errors.
func IsContractError(err error) bool {
	var ce *ContractError
	return errors.As(err, &ce)
}

// ContractCode returns the violation code of err, or "" if err is not a
// contract violation.
func ContractCode(err error) ContractErrorCode {
	var ce *ContractError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

func newContractError(code ContractErrorCode, relation string, rule int32, format string, args ...any) *ContractError {
	return &ContractError{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Relation: relation,
		Rule:     rule,
	}
}

// SinkError wraps a failure to persist a proof record.
type SinkError struct {
	Seq int64
	Err error
}

// Error implements the error interface.
func (e *SinkError) Error() string {
	return fmt.Sprintf("emit proof %d: %v", e.Seq, e.Err)
}

// Unwrap returns the underlying I/O error.
func (e *SinkError) Unwrap() error {
	return e.Err
}

// IsSinkError returns true if the error is a proof sink failure.
func IsSinkError(err error) bool {
	var se *SinkError
	return errors.As(err, &se)
}

// Run error codes reported by ErrorCode for errors that are not contract
// violations.
const (
	CodeQuotaExceeded = "QUOTA_EXCEEDED"
	CodeSinkFailed    = "SINK_FAILED"
	CodeCancelled     = "CANCELLED"
	CodeRunFailed     = "RUN_FAILED"
)

// ErrorCode classifies an error returned by Run or Explore. It returns ""
// for nil.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case IsContractError(err):
		return string(ContractCode(err))
	case IsQuotaError(err):
		return CodeQuotaExceeded
	case IsSinkError(err):
		return CodeSinkFailed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCancelled
	default:
		return CodeRunFailed
	}
}
