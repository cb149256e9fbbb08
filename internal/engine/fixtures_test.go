package engine

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/provex/internal/ir"
	"github.com/roach88/provex/internal/program"
	"github.com/roach88/provex/internal/sink"
	"github.com/roach88/provex/internal/testutil"
)

const (
	ruleBase  = "path(x,y) :- edge(x,y)."
	ruleTrans = "path(x,z) :- path(x,y), edge(y,z)."
)

// graphProgram is the transitive closure of edge(1,2), edge(2,3):
//
//	path(1,2) rule 1 level 1 from edge(1,2)
//	path(2,3) rule 1 level 1 from edge(2,3)
//	path(1,3) rule 2 level 2 from path(1,2), edge(2,3)
func graphProgram() *testutil.ProgramBuilder {
	return testutil.NewProgram().
		Relation("edge", program.KindInput, "ii").
		Relation("path", program.KindOutput, "ii").
		Fact("edge", 1, 2).
		Fact("edge", 2, 3).
		Derived("path", 1, 1, 1, 2).
		Derived("path", 1, 1, 2, 3).
		Derived("path", 2, 2, 1, 3).
		Rule("path", 1, ruleBase, "path,x,y", "edge,x,y").
		Rule("path", 2, ruleTrans, "path,x,z", "path,x,y", "edge,y,z").
		Subproof("path", 1, 1, ir.Tuple{1, 2}, testutil.Grounding(2, ir.Tuple{1, 2, 0, 0})).
		Subproof("path", 1, 1, ir.Tuple{2, 3}, testutil.Grounding(2, ir.Tuple{2, 3, 0, 0})).
		Subproof("path", 2, 2, ir.Tuple{1, 3}, testutil.Grounding(2, ir.Tuple{1, 2, 1, 1}, ir.Tuple{2, 3, 0, 0}))
}

// recordingOracle wraps a program and remembers every subproof call.
type recordingOracle struct {
	program.Program
	calls []string
}

func (r *recordingOracle) Subproof(ctx context.Context, relation string, rule int32, args ir.Tuple) (ir.Tuple, error) {
	r.calls = append(r.calls, relation+"/"+ir.Domain(rule).String()+"/"+args.Encode())
	return r.Program.Subproof(ctx, relation, rule, args)
}

type runResult struct {
	artifact string
	report   *Report
	err      error
	records  []ir.ProofRecord
}

func explain(t *testing.T, prog program.Program, seeds []ir.Fact, opts ...Option) runResult {
	t.Helper()
	ex, err := New(prog, opts...)
	require.NoError(t, err)

	var buf bytes.Buffer
	collector := &sink.Collector{}
	report, runErr := ex.Run(context.Background(), seeds, sink.Multi(sink.NewWriter(&buf), collector))
	require.NotNil(t, report)
	return runResult{artifact: buf.String(), report: report, err: runErr, records: collector.Records()}
}

func fact(relation string, words ...ir.Domain) ir.Fact {
	return ir.Fact{Relation: relation, Tuple: ir.Tuple(words)}
}
