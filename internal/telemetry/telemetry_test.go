package telemetry

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/roach88/provex/internal/ir"
)

func TestNewLogger_ConsoleLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := NewLogger(LogOptions{Console: &buf})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("shown", zap.String("relation", "path"))
	require.NoError(t, closeFn())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, `"relation": "path"`)
}

func TestNewLogger_NoColorWhenCaptured(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := NewLogger(LogOptions{Console: &buf})
	require.NoError(t, err)
	logger.Warn("careful")
	require.NoError(t, closeFn())

	assert.Contains(t, buf.String(), "WARN")
	assert.NotContains(t, buf.String(), "\x1b[")

	f, err := os.Create(filepath.Join(t.TempDir(), "console.log"))
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, isTerminal(f))
	assert.False(t, isTerminal(&buf))
}

func TestNewLogger_Verbose(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := NewLogger(LogOptions{Console: &buf, Verbose: true})
	require.NoError(t, err)

	logger.Debug("step")
	require.NoError(t, closeFn())
	assert.Contains(t, buf.String(), "step")
}

func TestNewLogger_TraceFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "prov", TraceFile)

	logger, closeFn, err := NewLogger(LogOptions{Console: &buf, TracePath: path})
	require.NoError(t, err)

	logger.Debug("exploring", zap.String("head", "path(1,2)"))
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "exploring")
	assert.Contains(t, string(data), "path(1,2)")
	assert.NotContains(t, buf.String(), "exploring", "debug entries stay out of the console by default")
}

func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if matchLabels(metric, labels) {
				if c := metric.GetCounter(); c != nil {
					return c.GetValue()
				}
				if h := metric.GetHistogram(); h != nil {
					return float64(h.GetSampleCount())
				}
			}
		}
	}
	return 0
}

func matchLabels(metric *dto.Metric, labels map[string]string) bool {
	if len(labels) != len(metric.GetLabel()) {
		return false
	}
	for _, lp := range metric.GetLabel() {
		if labels[lp.GetName()] != lp.GetValue() {
			return false
		}
	}
	return true
}

func TestMetrics_Counts(t *testing.T) {
	m := NewMetrics()

	m.ProofEmitted()
	m.ProofEmitted()
	m.TupleExpanded()
	m.DuplicateSkipped()
	m.InputFact()
	m.OracleCall(12)
	m.Diagnostic(ir.DiagTargetNoMatch)
	m.Diagnostic(ir.DiagTargetNoMatch)

	assert.Equal(t, 2.0, counterValue(t, m, "provex_explain_proofs_emitted_total", nil))
	assert.Equal(t, 1.0, counterValue(t, m, "provex_explain_tuples_expanded_total", nil))
	assert.Equal(t, 1.0, counterValue(t, m, "provex_explain_duplicates_skipped_total", nil))
	assert.Equal(t, 1.0, counterValue(t, m, "provex_explain_input_facts_total", nil))
	assert.Equal(t, 1.0, counterValue(t, m, "provex_oracle_calls_total", nil))
	assert.Equal(t, 1.0, counterValue(t, m, "provex_oracle_subproof_values", nil))
	assert.Equal(t, 2.0, counterValue(t, m, "provex_explain_diagnostics_total",
		map[string]string{"code": string(ir.DiagTargetNoMatch)}))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ProofEmitted()
		m.TupleExpanded()
		m.DuplicateSkipped()
		m.InputFact()
		m.OracleCall(3)
		m.Diagnostic(ir.DiagEmptySubproof)
	})
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.ProofEmitted()

	path := filepath.Join(t.TempDir(), "explain.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "provex_explain_proofs_emitted_total 1")
	assert.Contains(t, string(data), "# TYPE provex_oracle_calls_total counter")
}
