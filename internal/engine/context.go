package engine

import (
	"go.uber.org/zap"

	"github.com/roach88/provex/internal/ir"
)

// Sink receives proof records in emission order. The explorer aborts the
// run on the first Emit error.
type Sink interface {
	Emit(rec ir.ProofRecord) error
}

// Stats counts what a run did.
type Stats struct {
	Seeds       int `json:"seeds"`
	Popped      int `json:"popped"`
	InputFacts  int `json:"input_facts"`
	Duplicates  int `json:"duplicates"`
	Expanded    int `json:"expanded"`
	OracleCalls int `json:"oracle_calls"`
	Proofs      int `json:"proofs"`
	ProvenKeys  int `json:"proven_keys"`
}

// Report is the outcome of a run: counters plus every non-fatal diagnostic
// in the order it was raised.
type Report struct {
	Stats       Stats           `json:"stats"`
	Diagnostics []ir.Diagnostic `json:"diagnostics"`
}

// ExplorationContext holds the state of one run: worklist, proven set,
// sink and accumulated diagnostics. It is created per run and discarded
// afterwards; nothing in it is shared with other runs.
type ExplorationContext struct {
	worklist *worklist
	proven   *provenSet
	sink     Sink
	seq      sequence
	quota    *quotaEnforcer

	diagnostics []ir.Diagnostic
	// unknown remembers body relations already reported as undeclared.
	unknown map[string]bool
	stats   Stats

	logger *zap.Logger
	ex     *Explorer
}

// NewContext creates an empty run state writing to sink.
func (e *Explorer) NewContext(sink Sink) *ExplorationContext {
	return &ExplorationContext{
		worklist: newWorklist(0),
		proven:   newProvenSet(),
		sink:     sink,
		quota:    newQuotaEnforcer(e.opts.maxExpansions),
		unknown:  make(map[string]bool),
		logger:   e.opts.logger,
		ex:       e,
	}
}

// Seed queues facts in order.
func (x *ExplorationContext) Seed(facts ...ir.Fact) {
	for _, f := range facts {
		x.worklist.Push(f)
		x.stats.Seeds++
	}
}

// Diagnose records a non-fatal problem. It never interrupts the run.
func (x *ExplorationContext) Diagnose(d ir.Diagnostic) {
	x.diagnostics = append(x.diagnostics, d)
	x.ex.opts.metrics.Diagnostic(d.Code)
	x.logger.Warn("diagnostic",
		zap.String("code", string(d.Code)),
		zap.String("message", d.Message),
		zap.String("relation", d.Relation))
}

// Pending returns the number of facts still queued.
func (x *ExplorationContext) Pending() int {
	return x.worklist.Len()
}

// Report snapshots the counters and diagnostics so far.
func (x *ExplorationContext) Report() *Report {
	stats := x.stats
	stats.ProvenKeys = x.proven.Len()
	return &Report{
		Stats:       stats,
		Diagnostics: append([]ir.Diagnostic(nil), x.diagnostics...),
	}
}
