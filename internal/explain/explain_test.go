package explain

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/provex/internal/engine"
	"github.com/roach88/provex/internal/ir"
	"github.com/roach88/provex/internal/program"
	"github.com/roach88/provex/internal/seed"
	"github.com/roach88/provex/internal/sink"
	"github.com/roach88/provex/internal/testutil"
)

const graphArtifact = "path(1,2)\tedge(1,2)\t#path.@info.1\n" +
	"path(2,3)\tedge(2,3)\t#path.@info.1\n" +
	"path(1,3)\tpath(1,2)\tedge(2,3)\t#path.@info.2\n"

func graph(t *testing.T) *program.Snapshot {
	t.Helper()
	return testutil.NewProgram().
		Relation("edge", program.KindInput, "ii").
		Relation("path", program.KindOutput, "ii").
		Fact("edge", 1, 2).
		Fact("edge", 2, 3).
		Derived("path", 1, 1, 1, 2).
		Derived("path", 1, 1, 2, 3).
		Derived("path", 2, 2, 1, 3).
		Rule("path", 1, "path(x,y) :- edge(x,y).", "path,x,y", "edge,x,y").
		Rule("path", 2, "path(x,z) :- path(x,y), edge(y,z).", "path,x,z", "path,x,y", "edge,y,z").
		Subproof("path", 1, 1, ir.Tuple{1, 2}, testutil.Grounding(2, ir.Tuple{1, 2, 0, 0})).
		Subproof("path", 1, 1, ir.Tuple{2, 3}, testutil.Grounding(2, ir.Tuple{2, 3, 0, 0})).
		Subproof("path", 2, 2, ir.Tuple{1, 3}, testutil.Grounding(2, ir.Tuple{1, 2, 1, 1}, ir.Tuple{2, 3, 0, 0})).
		Build(t)
}

func TestRun_DefaultMode(t *testing.T) {
	var c sink.Collector
	res, err := Run(context.Background(), graph(t), seed.List{}, &c, Config{})
	require.NoError(t, err)

	assert.False(t, res.Targeted)
	assert.Len(t, res.Seeds, 3)
	heads := make([]string, 0)
	for _, r := range c.Records() {
		heads = append(heads, r.Head)
	}
	assert.Equal(t, []string{"path(1,2)", "path(2,3)", "path(1,3)"}, heads)
	assert.Equal(t, 1, res.Report.Stats.Duplicates, "path(1,2) is reached twice")
	assert.Zero(t, res.Unexplored)
}

func TestRun_QuotaLeavesWorkQueued(t *testing.T) {
	var c sink.Collector
	res, err := Run(context.Background(), graph(t), seed.List{}, &c, Config{MaxExpansions: 1})
	require.Error(t, err)
	assert.Equal(t, "QUOTA_EXCEEDED", engine.ErrorCode(err))
	assert.Len(t, c.Records(), 1)
	assert.Positive(t, res.Unexplored)
}

func TestRun_TargetDiagnosticsFirst(t *testing.T) {
	list, err := seed.ParseTargets(strings.NewReader("path 1 x\nnope 1\npath 1 3\npath 3 1\n"))
	require.NoError(t, err)

	var c sink.Collector
	res, err := Run(context.Background(), graph(t), list, &c, Config{Citation: engine.CiteRule})
	require.NoError(t, err)

	require.Len(t, c.Records(), 2)
	assert.Equal(t, "path(x,z) :- path(x,y), edge(y,z).", c.Records()[0].Citation)

	codes := make([]ir.DiagnosticCode, 0)
	for _, d := range res.Report.Diagnostics {
		codes = append(codes, d.Code)
	}
	assert.Equal(t, []ir.DiagnosticCode{
		ir.DiagTargetMalformed,
		ir.DiagTargetUnknownRelation,
		ir.DiagTargetNoMatch,
	}, codes)
}

func TestRun_MalformedInfoKeepsReport(t *testing.T) {
	prog := testutil.NewProgram().
		Relation("p", program.KindOutput, "i").
		Schema(program.Schema{Name: "p.@info.1", Types: []ir.TypeTag{'i', 's'}, Kind: program.KindInfo}).
		Build(t)

	res, err := Run(context.Background(), prog, seed.List{}, &sink.Collector{}, Config{})
	require.Error(t, err)
	assert.True(t, engine.IsContractError(err))
	require.NotNil(t, res)
	assert.NotNil(t, res.Report)
}

func TestRunDir_WritesArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prov")

	res, err := RunDir(context.Background(), graph(t), DirOptions{Dir: dir})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, sink.ArtifactFile))
	require.NoError(t, err)
	assert.Equal(t, graphArtifact, string(data))
	assert.Equal(t, ir.ArtifactDigest(data), res.ArtifactDigest)
	assert.Equal(t, filepath.Join(dir, sink.ArtifactFile), res.ArtifactPath)
}

func TestRunDir_ReadsTargetList(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, seed.TargetsFile), []byte("path 2 3\n"), 0o644))

	tee := &sink.Collector{}
	res, err := RunDir(context.Background(), graph(t), DirOptions{Dir: dir, Tee: tee})
	require.NoError(t, err)

	assert.True(t, res.Targeted)
	data, err := os.ReadFile(res.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, "path(2,3)\tedge(2,3)\t#path.@info.1\n", string(data))
	assert.Len(t, tee.Records(), 1, "tee sees every record")
}

func TestRunDir_Idempotent(t *testing.T) {
	dir := t.TempDir()
	prog := graph(t)

	first, err := RunDir(context.Background(), prog, DirOptions{Dir: dir})
	require.NoError(t, err)
	second, err := RunDir(context.Background(), prog, DirOptions{Dir: dir, Fsync: true})
	require.NoError(t, err)

	assert.Equal(t, first.ArtifactDigest, second.ArtifactDigest)
}

func TestRunDir_SinkFailureKeepsPrefix(t *testing.T) {
	dir := t.TempDir()

	res, err := RunDir(context.Background(), graph(t), DirOptions{Dir: dir, Tee: &sink.Failing{Remaining: 1}})
	require.Error(t, err)

	data, readErr := os.ReadFile(res.ArtifactPath)
	require.NoError(t, readErr)
	// the artifact sink runs first in the fan-out, so the failed record is
	// already on disk
	assert.Equal(t, testutil.ReadLines(graphArtifact)[:2], testutil.ReadLines(string(data)))
	assert.Equal(t, ir.ArtifactDigest(data), res.ArtifactDigest)
}
