package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/provex/internal/engine"
	"github.com/roach88/provex/internal/ir"
)

func TestBeginRun_ScriptedIDs(t *testing.T) {
	s := createTestStore(t, "run-a", "run-b")
	ctx := context.Background()
	digest := importGraph(t, s)

	a, err := s.BeginRun(ctx, RunParams{Program: digest, Citation: "relation"})
	require.NoError(t, err)
	b, err := s.BeginRun(ctx, RunParams{Program: digest, Citation: "rule", Targeted: true})
	require.NoError(t, err)

	assert.Equal(t, "run-a", a.ID)
	assert.Equal(t, int64(1), a.Seq)
	assert.Equal(t, RunRunning, a.Status)
	assert.Equal(t, ir.EngineVersion, a.EngineVersion)
	assert.False(t, a.Targeted)
	assert.Nil(t, a.Report)

	assert.Equal(t, "run-b", b.ID)
	assert.Equal(t, int64(2), b.Seq)
	assert.True(t, b.Targeted)
	assert.Equal(t, "rule", b.Citation)
}

func TestBeginRun_UnknownProgram(t *testing.T) {
	s := createTestStore(t)

	_, err := s.BeginRun(context.Background(), RunParams{Program: "nope", Citation: "relation"})
	require.Error(t, err, "foreign key rejects runs of programs never imported")
}

func TestBeginRun_UUIDv7ByDefault(t *testing.T) {
	s, err := Open(t.TempDir() + "/uuid.db")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	info, err := s.ImportSnapshot(ctx, "graph", graphSnapshot(t))
	require.NoError(t, err)
	run, err := s.BeginRun(ctx, RunParams{Program: info.Digest, Citation: "relation"})
	require.NoError(t, err)

	assert.Len(t, run.ID, 36)
	assert.Equal(t, byte('7'), run.ID[14], "version nibble")
}

func TestFinishRun(t *testing.T) {
	s := createTestStore(t, "ok", "bad")
	ctx := context.Background()
	digest := importGraph(t, s)

	_, err := s.BeginRun(ctx, RunParams{Program: digest, Citation: "relation"})
	require.NoError(t, err)
	_, err = s.BeginRun(ctx, RunParams{Program: digest, Citation: "relation"})
	require.NoError(t, err)

	report := &engine.Report{
		Stats: engine.Stats{Seeds: 3, Proofs: 3, Expanded: 3},
		Diagnostics: []ir.Diagnostic{
			{Code: ir.DiagEmptySubproof, Message: "no grounding", Relation: "path"},
		},
	}
	require.NoError(t, s.FinishRun(ctx, "ok", RunOutcome{ArtifactDigest: "abc", Report: report}))
	require.NoError(t, s.FinishRun(ctx, "bad", RunOutcome{Err: errors.New("oracle unavailable")}))

	ok, err := s.ReadRun(ctx, "ok")
	require.NoError(t, err)
	assert.Equal(t, RunComplete, ok.Status)
	assert.Equal(t, "abc", ok.ArtifactDigest)
	assert.Equal(t, report, ok.Report)
	assert.Empty(t, ok.Error)

	bad, err := s.ReadRun(ctx, "bad")
	require.NoError(t, err)
	assert.Equal(t, RunFailed, bad.Status)
	assert.Equal(t, "oracle unavailable", bad.Error)
	assert.Nil(t, bad.Report)

	err = s.FinishRun(ctx, "ok", RunOutcome{})
	require.Error(t, err, "a finished run cannot be finished again")
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestListRuns_Order(t *testing.T) {
	s := createTestStore(t, "z-first", "a-second")
	ctx := context.Background()
	digest := importGraph(t, s)

	empty, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)

	for i := 0; i < 2; i++ {
		_, err := s.BeginRun(ctx, RunParams{Program: digest, Citation: "relation"})
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "z-first", runs[0].ID, "ordered by seq, not id")
	assert.Equal(t, "a-second", runs[1].ID)
}

func TestProofSink_WriteAndRead(t *testing.T) {
	s := createTestStore(t, "r1")
	ctx := context.Background()
	digest := importGraph(t, s)
	run, err := s.BeginRun(ctx, RunParams{Program: digest, Citation: "relation"})
	require.NoError(t, err)

	records := []ir.ProofRecord{
		{Seq: 1, Head: "path(1,3)", Body: []string{"path(1,2)", "edge(2,3)"}, Citation: "path.@info.2", Relation: "path", Rule: 2, Level: 2},
		{Seq: 2, Head: "path(1,2)", Body: []string{"edge(1,2)"}, Citation: "path.@info.1", Relation: "path", Rule: 1, Level: 1},
		{Seq: 3, Head: "p()", Body: []string{}, Citation: "p.@info.1", Relation: "p", Rule: 1, Level: 1},
	}

	w := s.ProofSink(ctx, run.ID)
	for _, rec := range records {
		require.NoError(t, w.Emit(rec))
	}
	assert.Equal(t, int64(3), w.Count())

	got, err := s.ReadProofs(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, records, got)

	// same position twice violates the primary key
	require.Error(t, w.Emit(records[0]))
}

func TestProofSink_AssignsMissingSeq(t *testing.T) {
	s := createTestStore(t, "r1")
	ctx := context.Background()
	digest := importGraph(t, s)
	run, err := s.BeginRun(ctx, RunParams{Program: digest, Citation: "relation"})
	require.NoError(t, err)

	w := s.ProofSink(ctx, run.ID)
	require.NoError(t, w.Emit(ir.ProofRecord{Head: "a()", Relation: "a"}))
	require.NoError(t, w.Emit(ir.ProofRecord{Head: "b()", Relation: "b"}))

	got, err := s.ReadProofs(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].Seq)
	assert.Equal(t, int64(2), got[1].Seq)
	assert.Equal(t, []string{}, got[0].Body)
}

func TestReadProofs_Empty(t *testing.T) {
	s := createTestStore(t)

	got, err := s.ReadProofs(context.Background(), "nothing")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
