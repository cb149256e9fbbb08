// Package explain runs one explanation end to end: seed selection, proof
// exploration and artifact writing.
package explain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/roach88/provex/internal/engine"
	"github.com/roach88/provex/internal/ir"
	"github.com/roach88/provex/internal/program"
	"github.com/roach88/provex/internal/seed"
	"github.com/roach88/provex/internal/sink"
	"github.com/roach88/provex/internal/telemetry"
)

// Config carries the explorer settings of a run.
type Config struct {
	Citation      engine.Citation
	MaxExpansions int
	Logger        *zap.Logger
	Metrics       *telemetry.Metrics
}

func (c Config) options() []engine.Option {
	return []engine.Option{
		engine.WithCitation(c.Citation),
		engine.WithMaxExpansions(c.MaxExpansions),
		engine.WithLogger(c.Logger),
		engine.WithMetrics(c.Metrics),
	}
}

// Result describes a finished or aborted run. Report is never nil.
type Result struct {
	Report   *engine.Report
	Targeted bool
	Seeds    []ir.Fact
	// Unexplored counts facts still queued when an aborted run stopped.
	Unexplored int
}

// Run explains prog. Target-list and selection diagnostics are recorded in
// the report ahead of anything the explorer raises.
func Run(ctx context.Context, prog program.Program, list seed.List, out engine.Sink, cfg Config) (*Result, error) {
	res := &Result{Report: &engine.Report{}, Targeted: list.Targeted}

	ex, err := engine.New(prog, cfg.options()...)
	if err != nil {
		return res, err
	}

	facts, diags := seed.Select(prog, list)
	res.Seeds = facts

	xc := ex.NewContext(out)
	for _, d := range diags {
		xc.Diagnose(d)
	}
	xc.Seed(facts...)
	err = ex.Explore(ctx, xc)
	res.Report = xc.Report()
	res.Unexplored = xc.Pending()
	return res, err
}

// DirOptions configures RunDir.
type DirOptions struct {
	// Dir is the provenance directory. It is created if missing.
	Dir string
	// TargetsPath overrides Dir/targets.list.
	TargetsPath string
	// Targets, when set, is used instead of reading the target list.
	Targets *seed.List
	// Fsync syncs the artifact after every record.
	Fsync bool
	// Tee receives every record after the artifact file, e.g. the run store.
	Tee engine.Sink
	Config
}

// DirResult adds the artifact location and digest to Result.
type DirResult struct {
	*Result
	ArtifactPath   string
	ArtifactDigest string
}

// ReadTargets reads the target list of a provenance directory, or path when
// it is set. An unreadable list falls back to default mode.
func ReadTargets(dir, path string, logger *zap.Logger) seed.List {
	if path == "" {
		path = filepath.Join(dir, seed.TargetsFile)
	}
	list, err := seed.LoadTargets(path)
	if err != nil {
		if logger != nil {
			logger.Warn("target list unreadable, using default mode",
				zap.String("path", path), zap.Error(err))
		}
		return seed.List{}
	}
	return list
}

// RunDir explains prog into a provenance directory: targets are read from
// the directory's target list and proofs go to its cons_all.txt. The
// artifact digest is computed over whatever was written, even when the run
// failed part way.
func RunDir(ctx context.Context, prog program.Program, opts DirOptions) (*DirResult, error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create provenance directory: %w", err)
	}

	var list seed.List
	if opts.Targets != nil {
		list = *opts.Targets
	} else {
		list = ReadTargets(opts.Dir, opts.TargetsPath, opts.Logger)
	}

	var sinkOpts []sink.Option
	if opts.Fsync {
		sinkOpts = append(sinkOpts, sink.WithFsync())
	}
	artifact, err := sink.Create(filepath.Join(opts.Dir, sink.ArtifactFile), sinkOpts...)
	if err != nil {
		return nil, err
	}

	var out engine.Sink = artifact
	if opts.Tee != nil {
		out = sink.Multi(artifact, opts.Tee)
	}

	res, runErr := Run(ctx, prog, list, out, opts.Config)
	dr := &DirResult{Result: res, ArtifactPath: artifact.Path()}

	if err := artifact.Close(); err != nil && runErr == nil {
		runErr = err
	}
	data, err := os.ReadFile(artifact.Path())
	if err != nil {
		if runErr == nil {
			runErr = fmt.Errorf("read artifact: %w", err)
		}
		return dr, runErr
	}
	dr.ArtifactDigest = ir.ArtifactDigest(data)
	return dr, runErr
}
