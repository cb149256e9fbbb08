package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShowArtifactMatchesRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "provex.db")
	explainInto(t, db, "run-a", "")

	stdout, _, err := execute(t, "show", "run-a", "--db", db, "--artifact")
	require.NoError(t, err)
	assert.Equal(t, readGolden(t, "graph_default"), stdout)
}

func TestShowText(t *testing.T) {
	db := filepath.Join(t.TempDir(), "provex.db")
	explainInto(t, db, "run-a", "path 1 3\n")

	stdout, _, err := execute(t, "show", "run-a", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Run run-a (#1)")
	assert.Contains(t, stdout, "status: complete, mode: targeted, cite: relation")
	assert.Contains(t, stdout, "✓\n")
	assert.Contains(t, stdout, "   1  path(1,3)\tpath(1,2)\tedge(2,3)\t#path.@info.2\n")
	assert.Contains(t, stdout, "   2  path(1,2)\tedge(1,2)\t#path.@info.1\n")
}

func TestShowJSON(t *testing.T) {
	db := filepath.Join(t.TempDir(), "provex.db")
	explainInto(t, db, "run-a", "")

	stdout, _, err := execute(t, "--format", "json", "show", "run-a", "--db", db)
	require.NoError(t, err)

	var result ShowResult
	require.NoError(t, json.Unmarshal(decodeResponse(t, stdout).Data, &result))
	assert.Equal(t, "run-a", result.Run.ID)
	assert.True(t, result.DigestMatch)
	require.Len(t, result.Proofs, 3)
	assert.Equal(t, "path(1,3)", result.Proofs[2].Head)
	assert.Equal(t, []string{"path(1,2)", "edge(2,3)"}, result.Proofs[2].Body)
	require.NotNil(t, result.Run.Report)
	assert.Equal(t, 3, result.Run.Report.Stats.Proofs)
}

func TestShowUnknownRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "provex.db")
	explainInto(t, db, "run-a", "")

	stdout, _, err := execute(t, "show", "run-z", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, stdout, "run not found: run-z")
}
