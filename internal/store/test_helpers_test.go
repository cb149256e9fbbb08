package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/provex/internal/ir"
	"github.com/roach88/provex/internal/program"
	"github.com/roach88/provex/internal/testutil"
)

// createTestStore creates a new store in a temp dir with scripted run ids.
func createTestStore(t *testing.T, runIDs ...string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithRunIDGenerator(testutil.NewScriptedRunIDs(runIDs...)))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// graphSnapshot is the two-edge transitive closure used across store tests.
func graphSnapshot(t *testing.T) *program.Snapshot {
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

// smallSnapshot holds a single input fact.
func smallSnapshot(t *testing.T) *program.Snapshot {
	t.Helper()
	return testutil.NewProgram().
		Relation("node", program.KindInput, "i").
		Fact("node", 7).
		Build(t)
}

// importGraph imports graphSnapshot and returns its digest.
func importGraph(t *testing.T, s *Store) string {
	t.Helper()
	info, err := s.ImportSnapshot(context.Background(), "graph", graphSnapshot(t))
	if err != nil {
		t.Fatalf("ImportSnapshot() failed: %v", err)
	}
	return info.Digest
}
