package harness

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/provex/internal/compiler"
	"github.com/roach88/provex/internal/engine"
	"github.com/roach88/provex/internal/explain"
	"github.com/roach88/provex/internal/ir"
	"github.com/roach88/provex/internal/seed"
	"github.com/roach88/provex/internal/sink"
	"github.com/roach88/provex/internal/store"
	"github.com/roach88/provex/internal/testutil"
)

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory store. The program is
// compiled from its CUE directory, imported, and read back from the store
// before exploration, so every scenario also exercises the store round
// trip. The run id is the scenario name, which keeps results reproducible.
//
// The returned error reports problems setting the scenario up. Run errors
// are part of the result and are checked against ExpectError.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	loaded, err := compiler.LoadDir(scenario.Program)
	if err != nil {
		return nil, fmt.Errorf("failed to load program %s: %w", scenario.Program, err)
	}

	citation, err := engine.ParseCitation(scenario.Cite)
	if err != nil {
		return nil, err
	}
	list, err := seed.ParseTargets(strings.NewReader(scenario.Targets))
	if err != nil {
		return nil, fmt.Errorf("failed to read targets: %w", err)
	}

	st, err := store.Open(":memory:", store.WithRunIDGenerator(testutil.NewScriptedRunIDs(scenario.Name)))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	info, err := st.ImportSnapshot(ctx, scenario.Name, loaded.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to import program: %w", err)
	}
	snap, err := st.LoadSnapshot(ctx, info.Digest)
	if err != nil {
		return nil, fmt.Errorf("failed to reload program: %w", err)
	}

	run, err := st.BeginRun(ctx, store.RunParams{
		Program:  info.Digest,
		Citation: citation.String(),
		Targeted: list.Targeted,
	})
	if err != nil {
		return nil, err
	}

	var artifact bytes.Buffer
	var collected sink.Collector
	out := sink.Multi(sink.NewWriter(&artifact), &collected, st.ProofSink(ctx, run.ID))

	res, runErr := explain.Run(ctx, snap, list, out, explain.Config{
		Citation:      citation,
		MaxExpansions: scenario.MaxExpansions,
		Logger:        zap.NewNop(),
	})

	result := NewResult()
	result.RunID = run.ID
	result.Artifact = artifact.String()
	result.Records = append(result.Records, collected.Records()...)
	result.Report = res.Report
	if runErr != nil {
		result.RunError = runErr.Error()
		result.ErrorCode = engine.ErrorCode(runErr)
	}

	if err := st.FinishRun(ctx, run.ID, store.RunOutcome{
		ArtifactDigest: ir.ArtifactDigest(artifact.Bytes()),
		Report:         res.Report,
		Err:            runErr,
	}); err != nil {
		return nil, err
	}
	if err := checkStoredProofs(ctx, st, run.ID, result); err != nil {
		return nil, err
	}

	switch {
	case scenario.ExpectError == "" && runErr != nil:
		result.AddError(fmt.Sprintf("unexpected run error [%s]: %s", result.ErrorCode, result.RunError))
	case scenario.ExpectError != "" && runErr == nil:
		result.AddError(fmt.Sprintf("expected run error %s, run succeeded", scenario.ExpectError))
	case scenario.ExpectError != "" && result.ErrorCode != scenario.ExpectError:
		result.AddError(fmt.Sprintf("expected run error %s, got %s: %s",
			scenario.ExpectError, result.ErrorCode, result.RunError))
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// checkStoredProofs compares the proofs the store recorded with what the
// artifact received.
func checkStoredProofs(ctx context.Context, st *store.Store, runID string, result *Result) error {
	stored, err := st.ReadProofs(ctx, runID)
	if err != nil {
		return err
	}
	if len(stored) != len(result.Records) {
		result.AddError(fmt.Sprintf("run store holds %d proofs, artifact has %d", len(stored), len(result.Records)))
		return nil
	}
	for i := range stored {
		if sink.Format(stored[i]) != sink.Format(result.Records[i]) {
			result.AddError(fmt.Sprintf("run store proof %d differs: %q != %q",
				i+1, sink.Format(stored[i]), sink.Format(result.Records[i])))
			return nil
		}
	}
	return nil
}

// RunAll executes scenarios concurrently, at most limit at a time (0 means
// no limit), and returns their results in input order. Every scenario gets
// its own store, so runs share nothing. The first setup error cancels the
// remaining scenarios.
func RunAll(ctx context.Context, scenarios []*Scenario, limit int) ([]*Result, error) {
	results := make([]*Result, len(scenarios))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			res, err := Run(ctx, sc)
			if err != nil {
				return fmt.Errorf("%s: %w", sc.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
