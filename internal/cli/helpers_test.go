package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/provex/internal/testutil"
)

// graphProgram is the two-rule transitive closure program shared with the
// harness scenarios.
var graphProgram = filepath.Join("..", "harness", "testdata", "programs", "graph")

// execute runs the root command with args and returns stdout, stderr and
// the command error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// jsonResponse is CLIResponse with the payload left undecoded.
type jsonResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func decodeResponse(t *testing.T, out string) jsonResponse {
	t.Helper()
	var resp jsonResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp
}

func readGolden(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "harness", "testdata", "golden", name+".golden"))
	require.NoError(t, err)
	return string(data)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// explainInto explains the graph program into db under a fixed run id and
// returns the provenance directory.
func explainInto(t *testing.T, db, runID, targets string) string {
	t.Helper()
	out := t.TempDir()
	if targets != "" {
		writeFile(t, filepath.Join(out, "targets.list"), targets)
	}
	root := &RootOptions{Format: "text"}
	opts := &ExplainOptions{
		RootOptions: root,
		Out:         out,
		Database:    db,
		Cite:        "relation",
		RunIDs:      testutil.NewScriptedRunIDs(runID),
	}
	cmd := &cobra.Command{}
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	require.NoError(t, runExplain(opts, graphProgram, cmd))
	return out
}
