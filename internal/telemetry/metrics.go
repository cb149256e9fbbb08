package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/provex/internal/ir"
)

// Metrics counts what one or more explanation runs did.
//
// Every method is safe on a nil receiver so callers can pass a nil
// *Metrics to disable collection. Each Metrics owns a private registry;
// independent runs never share counters unless they share the value.
type Metrics struct {
	registry *prometheus.Registry

	proofs       prometheus.Counter
	expanded     prometheus.Counter
	duplicates   prometheus.Counter
	inputs       prometheus.Counter
	oracleCalls  prometheus.Counter
	diagnostics  *prometheus.CounterVec
	subproofSize prometheus.Histogram
}

// NewMetrics registers the run metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		proofs: f.NewCounter(prometheus.CounterOpts{
			Namespace: "provex",
			Subsystem: "explain",
			Name:      "proofs_emitted_total",
			Help:      "Proof records written to the sink",
		}),
		expanded: f.NewCounter(prometheus.CounterOpts{
			Namespace: "provex",
			Subsystem: "explain",
			Name:      "tuples_expanded_total",
			Help:      "Derived tuples whose subproof was requested",
		}),
		duplicates: f.NewCounter(prometheus.CounterOpts{
			Namespace: "provex",
			Subsystem: "explain",
			Name:      "duplicates_skipped_total",
			Help:      "Worklist entries skipped because their key was already proven",
		}),
		inputs: f.NewCounter(prometheus.CounterOpts{
			Namespace: "provex",
			Subsystem: "explain",
			Name:      "input_facts_total",
			Help:      "Worklist entries that were level-0 input facts",
		}),
		oracleCalls: f.NewCounter(prometheus.CounterOpts{
			Namespace: "provex",
			Subsystem: "oracle",
			Name:      "calls_total",
			Help:      "Subproof oracle invocations",
		}),
		diagnostics: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "provex",
			Subsystem: "explain",
			Name:      "diagnostics_total",
			Help:      "Non-fatal diagnostics by code",
		}, []string{"code"}),
		subproofSize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "provex",
			Subsystem: "oracle",
			Name:      "subproof_values",
			Help:      "Number of words returned per subproof call",
			Buckets:   prometheus.ExponentialBuckets(4, 2, 10),
		}),
	}
}

// ProofEmitted counts one written proof record.
func (m *Metrics) ProofEmitted() {
	if m == nil {
		return
	}
	m.proofs.Inc()
}

// TupleExpanded counts one derived tuple handed to the oracle.
func (m *Metrics) TupleExpanded() {
	if m == nil {
		return
	}
	m.expanded.Inc()
}

// DuplicateSkipped counts one already-proven worklist entry.
func (m *Metrics) DuplicateSkipped() {
	if m == nil {
		return
	}
	m.duplicates.Inc()
}

// InputFact counts one level-0 worklist entry.
func (m *Metrics) InputFact() {
	if m == nil {
		return
	}
	m.inputs.Inc()
}

// OracleCall records one subproof call and the size of its answer.
func (m *Metrics) OracleCall(values int) {
	if m == nil {
		return
	}
	m.oracleCalls.Inc()
	m.subproofSize.Observe(float64(values))
}

// Diagnostic counts one diagnostic under its code.
func (m *Metrics) Diagnostic(code ir.DiagnosticCode) {
	if m == nil {
		return
	}
	m.diagnostics.WithLabelValues(string(code)).Inc()
}

// Registry exposes the private registry, for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// WriteTextfile writes every metric in the Prometheus text format, the
// layout the node exporter textfile collector reads.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
