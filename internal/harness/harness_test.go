package harness

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func loadScenarios(t *testing.T) []*Scenario {
	t.Helper()
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	scenarios := make([]*Scenario, 0, len(files))
	for _, f := range files {
		s, err := LoadScenario(f)
		require.NoError(t, err, f)
		scenarios = append(scenarios, s)
	}
	return scenarios
}

func graphScenario(t *testing.T) *Scenario {
	t.Helper()
	s, err := LoadScenario("testdata/scenarios/graph_default.yaml")
	require.NoError(t, err)
	return s
}

// TestScenarios runs every scenario under testdata/scenarios and compares
// its artifact with the golden file of the same name.
func TestScenarios(t *testing.T) {
	for _, scenario := range loadScenarios(t) {
		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "scenario failed:\n%s", strings.Join(result.Errors, "\n"))
			assert.Equal(t, scenario.Name, result.RunID)
		})
	}
}

func TestRun_RecordsMatchArtifact(t *testing.T) {
	result, err := Run(context.Background(), graphScenario(t))
	require.NoError(t, err)
	require.True(t, result.Pass, strings.Join(result.Errors, "\n"))

	assert.Equal(t, []string{"path(1,2)", "path(2,3)", "path(1,3)"}, result.Heads())
	assert.Equal(t, 3, result.Report.Stats.Proofs)
	// Level-0 pops are counted per pop, not per key: edge(2,3) is reached
	// from both path(2,3) and path(1,3).
	assert.Equal(t, 3, result.Report.Stats.InputFacts)
	assert.Empty(t, result.RunError)
}

func TestRun_Deterministic(t *testing.T) {
	first, err := Run(context.Background(), graphScenario(t))
	require.NoError(t, err)
	second, err := Run(context.Background(), graphScenario(t))
	require.NoError(t, err)

	assert.Equal(t, first.Artifact, second.Artifact)
	assert.Equal(t, first.Report, second.Report)
	assert.Equal(t, first.RunID, second.RunID)
}

func TestRun_FailingAssertionsReported(t *testing.T) {
	scenario := graphScenario(t)
	scenario.Assertions = []Assertion{
		{Type: AssertProofCount, Count: 5},
		{Type: AssertNotProved, Head: "path(1,3)"},
		{Type: AssertProofContains, Head: "path(1,3)"},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "proof_count")
	assert.Contains(t, result.Errors[1], "not_proved")
}

func TestRun_UnexpectedRunError(t *testing.T) {
	scenario := graphScenario(t)
	scenario.MaxExpansions = 1
	scenario.Assertions = []Assertion{{Type: AssertProofCount, Count: 1}}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, "QUOTA_EXCEEDED", result.ErrorCode)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "unexpected run error [QUOTA_EXCEEDED]")
}

func TestRun_ExpectedErrorMissing(t *testing.T) {
	scenario := graphScenario(t)
	scenario.ExpectError = "QUOTA_EXCEEDED"

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected run error QUOTA_EXCEEDED, run succeeded")
}

func TestRun_ExpectedErrorWrongCode(t *testing.T) {
	scenario := graphScenario(t)
	scenario.Targets = "path 1 3\n"
	scenario.MaxExpansions = 1
	scenario.ExpectError = "SINK_FAILED"
	scenario.Assertions = []Assertion{{Type: AssertProofCount, Count: 1}}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected run error SINK_FAILED, got QUOTA_EXCEEDED")
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, graphScenario(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_ProgramLoadFailure(t *testing.T) {
	scenario := graphScenario(t)
	scenario.Program = filepath.Join(t.TempDir(), "missing")

	_, err := Run(context.Background(), scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load program")
}

func TestRun_BadCitation(t *testing.T) {
	scenario := graphScenario(t)
	scenario.Cite = "footnote"

	_, err := Run(context.Background(), scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown citation")
}

func TestRunAll_PreservesOrder(t *testing.T) {
	scenarios := loadScenarios(t)

	results, err := RunAll(context.Background(), scenarios, 0)
	require.NoError(t, err)
	require.Len(t, results, len(scenarios))
	for i, r := range results {
		assert.Equal(t, scenarios[i].Name, r.RunID)
		assert.True(t, r.Pass, "%s: %s", scenarios[i].Name, strings.Join(r.Errors, "\n"))
	}
}

func TestRunAll_Limited(t *testing.T) {
	scenarios := loadScenarios(t)

	results, err := RunAll(context.Background(), scenarios, 2)
	require.NoError(t, err)
	for i, r := range results {
		assert.Equal(t, scenarios[i].Name, r.RunID)
	}
}

func TestRunAll_SetupErrorNamesScenario(t *testing.T) {
	good := graphScenario(t)
	bad := graphScenario(t)
	bad.Name = "broken"
	bad.Program = filepath.Join(t.TempDir(), "missing")

	_, err := RunAll(context.Background(), []*Scenario{good, bad}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken:")
}
