package harness

import (
	"github.com/roach88/provex/internal/engine"
	"github.com/roach88/provex/internal/ir"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success: the run ended the way the
	// scenario expected and every assertion held.
	Pass bool `json:"pass"`

	// RunID is the id of the run row in the scenario's store.
	RunID string `json:"run_id"`

	// Artifact is the exact proof artifact the run produced.
	Artifact string `json:"artifact"`

	// Records are the proofs in emission order.
	Records []ir.ProofRecord `json:"records"`

	// Report holds the run counters and diagnostics. Never nil.
	Report *engine.Report `json:"report"`

	// RunError is the fatal run error, if any.
	RunError string `json:"run_error,omitempty"`

	// ErrorCode is the code of RunError.
	ErrorCode string `json:"error_code,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Records: []ir.ProofRecord{},
		Report:  &engine.Report{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Heads returns the head of every record in order.
func (r *Result) Heads() []string {
	heads := make([]string, len(r.Records))
	for i, rec := range r.Records {
		heads[i] = rec.Head
	}
	return heads
}
