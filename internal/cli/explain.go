package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/provex/internal/engine"
	"github.com/roach88/provex/internal/explain"
	"github.com/roach88/provex/internal/ir"
	"github.com/roach88/provex/internal/program"
	"github.com/roach88/provex/internal/store"
	"github.com/roach88/provex/internal/telemetry"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	Out           string
	Targets       string
	Database      string
	Cite          string
	MaxExpansions int
	Trace         bool
	Metrics       string
	Fsync         bool

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to store.UUIDv7Generator.
	RunIDs store.RunIDGenerator
}

// ExplainResult is the payload printed after a run.
type ExplainResult struct {
	Dir            string          `json:"dir"`
	Artifact       string          `json:"artifact"`
	ArtifactDigest string          `json:"artifact_digest"`
	Program        string          `json:"program"`
	RunID          string          `json:"run_id,omitempty"`
	Targeted       bool            `json:"targeted"`
	Seeds          int             `json:"seeds"`
	Stats          engine.Stats    `json:"stats"`
	Diagnostics    []ir.Diagnostic `json:"diagnostics"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain [program-dir]",
		Short: "Write proofs for target tuples",
		Long: `Explain tuples of an evaluated program.

Targets are read from <out>/targets.list (or --targets): one line per tuple,
the relation name followed by its key fields as unsigned integers. Without
a target list every tuple of every output relation is explained. Proofs are
written to <out>/cons_all.txt, one rule application per line.

With --db the program is imported into the run store and the run and its
proofs are recorded there. Omitting program-dir explains the most recently
imported program of --db.

Exit codes:
  0 - Run completed (diagnostics may still have been reported)
  1 - Run aborted (quota, sink or evaluator contract failure)
  2 - Command error (invalid program, bad flags, unreadable database)

Examples:
  provex explain ./program --out ./prov
  provex explain ./program --out ./prov --cite rule --trace
  provex explain --db ./provex.db --out ./prov --max-expansions 1000`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return runExplain(opts, dir, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "provenance directory (required)")
	cmd.Flags().StringVar(&opts.Targets, "targets", "", "target list (default <out>/targets.list)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run store")
	cmd.Flags().StringVar(&opts.Cite, "cite", "relation", "citation mode (relation|rule)")
	cmd.Flags().IntVar(&opts.MaxExpansions, "max-expansions", 0, "abort after expanding this many derived tuples (0 = unlimited)")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "write the exploration trace to <out>/log.txt")
	cmd.Flags().StringVar(&opts.Metrics, "metrics", "", "write run metrics in Prometheus text format to this file")
	cmd.Flags().BoolVar(&opts.Fsync, "fsync", false, "fsync the artifact after every proof")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runExplain(opts *ExplainOptions, programDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	citation, err := engine.ParseCitation(opts.Cite)
	if err != nil {
		return NewExitError(ExitCommandError, err.Error())
	}
	if opts.MaxExpansions < 0 {
		return NewExitError(ExitCommandError, "--max-expansions must not be negative")
	}
	if programDir == "" && opts.Database == "" {
		return NewExitError(ExitCommandError, "a program directory or --db is required")
	}

	tracePath := ""
	if opts.Trace {
		tracePath = filepath.Join(opts.Out, telemetry.TraceFile)
	}
	logger, closeLog, err := telemetry.NewLogger(telemetry.LogOptions{
		Verbose:   opts.Verbose,
		Console:   cmd.ErrOrStderr(),
		TracePath: tracePath,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create logger", err)
	}
	defer closeLog()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	src, err := resolveProgram(ctx, opts, programDir, logger)
	if err != nil {
		return reportCommandError(formatter, err)
	}
	if src.store != nil {
		defer src.store.Close()
	}

	var metrics *telemetry.Metrics
	if opts.Metrics != "" {
		metrics = telemetry.NewMetrics()
	}

	list := explain.ReadTargets(opts.Out, opts.Targets, logger)
	dirOpts := explain.DirOptions{
		Dir:     opts.Out,
		Targets: &list,
		Fsync:   opts.Fsync,
		Config: explain.Config{
			Citation:      citation,
			MaxExpansions: opts.MaxExpansions,
			Logger:        logger,
			Metrics:       metrics,
		},
	}

	var run store.Run
	if src.store != nil {
		run, err = src.store.BeginRun(ctx, store.RunParams{
			Program:  src.digest,
			Citation: citation.String(),
			Targeted: list.Targeted,
		})
		if err != nil {
			return reportCommandError(formatter, &LoadError{Code: ErrCodeStore, Message: err.Error()})
		}
		dirOpts.Tee = src.store.ProofSink(ctx, run.ID)
		logger.Info("run started", zap.String("run", run.ID), zap.String("program", src.digest))
	}

	res, runErr := explain.RunDir(ctx, src.snapshot, dirOpts)
	if res == nil {
		return reportCommandError(formatter, &LoadError{Code: ErrCodeWriteFailed, Message: runErr.Error()})
	}

	if src.store != nil {
		// The run row is finished even when ctx was cancelled mid-run.
		if err := src.store.FinishRun(context.WithoutCancel(ctx), run.ID, store.RunOutcome{
			ArtifactDigest: res.ArtifactDigest,
			Report:         res.Report,
			Err:            runErr,
		}); err != nil {
			logger.Error("failed to record run outcome", zap.String("run", run.ID), zap.Error(err))
		}
	}
	if metrics != nil {
		if err := metrics.WriteTextfile(opts.Metrics); err != nil {
			logger.Error("failed to write metrics", zap.String("path", opts.Metrics), zap.Error(err))
		}
	}

	result := ExplainResult{
		Dir:            opts.Out,
		Artifact:       res.ArtifactPath,
		ArtifactDigest: res.ArtifactDigest,
		Program:        src.digest,
		RunID:          run.ID,
		Targeted:       res.Targeted,
		Seeds:          len(res.Seeds),
		Stats:          res.Report.Stats,
		Diagnostics:    res.Report.Diagnostics,
	}
	if result.Diagnostics == nil {
		result.Diagnostics = []ir.Diagnostic{}
	}

	if runErr != nil {
		code := engine.ErrorCode(runErr)
		_ = formatter.Error(code, runErr.Error(), result)
		return WrapExitError(ExitFailure, "run aborted", runErr)
	}
	return outputExplainSuccess(formatter, result)
}

// programSource is the program a run explains, with the store it was
// imported into when --db is set.
type programSource struct {
	snapshot *program.Snapshot
	digest   string
	store    *store.Store
}

func resolveProgram(ctx context.Context, opts *ExplainOptions, programDir string, logger *zap.Logger) (*programSource, error) {
	src := &programSource{}
	if programDir != "" {
		loaded, err := LoadProgram(programDir)
		if err != nil {
			return nil, err
		}
		src.snapshot = loaded.Snapshot
		digest, err := loaded.Snapshot.Digest()
		if err != nil {
			return nil, &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
		}
		src.digest = digest
		logger.Debug("program compiled", zap.String("dir", programDir),
			zap.Int("files", loaded.FileCount), zap.String("digest", digest))
	}
	if opts.Database == "" {
		return src, nil
	}

	st, err := openStore(opts.Database, opts.RunIDs)
	if err != nil {
		return nil, err
	}
	if src.snapshot != nil {
		if _, err := st.ImportSnapshot(ctx, filepath.Base(programDir), src.snapshot); err != nil {
			st.Close()
			return nil, &LoadError{Code: ErrCodeStore, Message: err.Error()}
		}
		src.store = st
		return src, nil
	}

	info, err := st.LatestProgram(ctx)
	if err != nil {
		st.Close()
		return nil, &LoadError{Code: ErrCodeStore, Message: fmt.Sprintf("no program imported into %s", opts.Database)}
	}
	snap, err := st.LoadSnapshot(ctx, info.Digest)
	if err != nil {
		st.Close()
		return nil, &LoadError{Code: ErrCodeStore, Message: err.Error()}
	}
	src.snapshot, src.digest, src.store = snap, info.Digest, st
	return src, nil
}

// openStore opens a run store, using gen for run ids when set.
func openStore(path string, gen store.RunIDGenerator) (*store.Store, error) {
	var storeOpts []store.Option
	if gen != nil {
		storeOpts = append(storeOpts, store.WithRunIDGenerator(gen))
	}
	st, err := store.Open(path, storeOpts...)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeStore, Message: fmt.Sprintf("failed to open database: %v", err)}
	}
	return st, nil
}

// reportCommandError prints a LoadError (or any error) and returns the
// matching command-error exit.
func reportCommandError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", loadErr.Code, loadErr.Message))
	}
	_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitCommandError, ErrCodeGeneric, err)
}

func outputExplainSuccess(formatter *OutputFormatter, result ExplainResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	mode := "default"
	if result.Targeted {
		mode = "targeted"
	}
	fmt.Fprintf(w, "✓ %d proof(s) written to %s\n", result.Stats.Proofs, result.Artifact)
	fmt.Fprintf(w, "  mode: %s, seeds: %d, expanded: %d, input facts: %d, duplicates: %d\n",
		mode, result.Seeds, result.Stats.Expanded, result.Stats.InputFacts, result.Stats.Duplicates)
	fmt.Fprintf(w, "  artifact digest: %s\n", result.ArtifactDigest)
	if result.RunID != "" {
		fmt.Fprintf(w, "  run: %s\n", result.RunID)
	}
	for _, d := range result.Diagnostics {
		fmt.Fprintf(w, "! %s\n", d.String())
	}
	return nil
}
