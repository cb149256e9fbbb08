package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var harnessScenarios = filepath.Join("..", "harness", "testdata", "scenarios")

// writeGraphScenario writes a scenario over the graph program into dir.
func writeGraphScenario(t *testing.T, dir, name, assertions string) string {
	t.Helper()
	program, err := filepath.Abs(graphProgram)
	require.NoError(t, err)
	path := filepath.Join(dir, name+".yaml")
	writeFile(t, path, fmt.Sprintf(`name: %s
description: "graph scenario"
program: %s
targets: "path 1 3\n"
assertions:
%s`, name, program, assertions))
	return path
}

const passingAssertions = `  - type: proof_count
    count: 2
`

func runTestCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := runTestCommand(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := runTestCommand(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandNegativeParallel(t *testing.T) {
	_, err := runTestCommand(t, "text", t.TempDir(), "--parallel", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := runTestCommand(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, err := runTestCommand(t, "json", t.TempDir())
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	var result TestResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, 0, result.Total)
	assert.Empty(t, result.Scenarios)
}

func TestTestCommandHarnessScenarios(t *testing.T) {
	out, err := runTestCommand(t, "text", harnessScenarios, "--parallel", "3")
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ graph_default\n")
	assert.Contains(t, out, "✓ graph_quota\n")
	assert.Contains(t, out, "Test Summary: 10 passed, 0 failed, 10 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFilter(t *testing.T) {
	out, err := runTestCommand(t, "json", harnessScenarios, "--filter", "graph_*")
	require.NoError(t, err)

	var result TestResult
	require.NoError(t, json.Unmarshal(decodeResponse(t, out).Data, &result))
	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 5, result.Passed)
	for _, s := range result.Scenarios {
		assert.Equal(t, "missing", s.Golden, s.Name)
	}
}

func TestTestCommandInvalidFilter(t *testing.T) {
	_, err := runTestCommand(t, "text", harnessScenarios, "--filter", "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestTestCommandUpdateThenMatch(t *testing.T) {
	dir := t.TempDir()
	writeGraphScenario(t, dir, "targeted", passingAssertions)

	out, err := runTestCommand(t, "text", dir, "--update")
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ targeted (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "targeted.golden"))
	require.NoError(t, err)
	assert.Equal(t, readGolden(t, "graph_targeted"), string(golden))

	out, err = runTestCommand(t, "json", dir)
	require.NoError(t, err, out)
	var result TestResult
	require.NoError(t, json.Unmarshal(decodeResponse(t, out).Data, &result))
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "match", result.Scenarios[0].Golden)
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	writeGraphScenario(t, dir, "targeted", passingAssertions)
	writeFile(t, filepath.Join(dir, "golden", "targeted.golden"), "path(1,3)\t#stale\n")

	out, err := runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ targeted")
	assert.Contains(t, out, "artifact does not match golden file")
}

func TestTestCommandFailingAssertion(t *testing.T) {
	dir := t.TempDir()
	writeGraphScenario(t, dir, "wrong_count", `  - type: proof_count
    count: 7
`)

	out, err := runTestCommand(t, "json", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)

	var result TestResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	require.Len(t, result.Scenarios, 1)
	assert.False(t, result.Scenarios[0].Pass)
	require.NotEmpty(t, result.Scenarios[0].Errors)
	assert.Contains(t, result.Scenarios[0].Errors[0], "Expected: 7 proofs")
}

func TestTestCommandLoadErrorDoesNotStopOthers(t *testing.T) {
	dir := t.TempDir()
	writeGraphScenario(t, dir, "good", passingAssertions)
	writeFile(t, filepath.Join(dir, "broken.yaml"), "name: broken\n")

	out, err := runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✓ good")
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("s", "golden", "x.golden"), goldenFilePath(filepath.Join("s", "x.yaml")))
}

func TestFindScenarioFilesSkipsGolden(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), "")
	writeFile(t, filepath.Join(dir, "nested", "b.yml"), "")
	writeFile(t, filepath.Join(dir, "golden", "c.yaml"), "")
	writeFile(t, filepath.Join(dir, "notes.txt"), "")

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yaml"),
		filepath.Join(dir, "nested", "b.yml"),
	}, files)
}
