package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/provex/internal/ir"
	"github.com/roach88/provex/internal/sink"
	"github.com/roach88/provex/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
	Artifact bool
}

// ShowResult is a stored run with its proofs.
type ShowResult struct {
	Run    store.Run        `json:"run"`
	Proofs []ir.ProofRecord `json:"proofs"`
	// DigestMatch reports whether the stored proofs re-render to the
	// artifact digest recorded when the run finished.
	DigestMatch bool `json:"digest_match"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a recorded run and its proofs",
		Long: `Print one run from the run store: its program, citation mode, outcome
and every proof it emitted, in emission order.

With --artifact only the proof lines are printed, byte for byte what the
run wrote to cons_all.txt.

Examples:
  provex show --db ./provex.db 0190a5d2-...
  provex show --db ./provex.db 0190a5d2-... --artifact > cons_all.txt`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run store (required)")
	cmd.Flags().BoolVar(&opts.Artifact, "artifact", false, "print only the proof artifact")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runShow(opts *ShowOptions, runID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openStore(opts.Database, nil)
	if err != nil {
		return reportCommandError(formatter, err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	run, err := st.ReadRun(ctx, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return reportCommandError(formatter, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("run not found: %s", runID)})
	}
	if err != nil {
		return reportCommandError(formatter, &LoadError{Code: ErrCodeStore, Message: err.Error()})
	}
	proofs, err := st.ReadProofs(ctx, runID)
	if err != nil {
		return reportCommandError(formatter, &LoadError{Code: ErrCodeStore, Message: err.Error()})
	}

	var artifact strings.Builder
	for _, rec := range proofs {
		artifact.WriteString(sink.Format(rec))
	}
	result := ShowResult{
		Run:         run,
		Proofs:      proofs,
		DigestMatch: run.ArtifactDigest != "" && ir.ArtifactDigest([]byte(artifact.String())) == run.ArtifactDigest,
	}

	if opts.Artifact {
		_, err := fmt.Fprint(formatter.Writer, artifact.String())
		return err
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	mode := "default"
	if run.Targeted {
		mode = "targeted"
	}
	fmt.Fprintf(w, "Run %s (#%d)\n", run.ID, run.Seq)
	fmt.Fprintf(w, "  program: %s\n", run.Program)
	fmt.Fprintf(w, "  status: %s, mode: %s, cite: %s, engine: %s\n", run.Status, mode, run.Citation, run.EngineVersion)
	if run.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", run.Error)
	}
	if run.ArtifactDigest != "" {
		check := "✓"
		if !result.DigestMatch {
			check = "✗"
		}
		fmt.Fprintf(w, "  artifact digest: %s %s\n", run.ArtifactDigest, check)
	}
	if run.Report != nil {
		for _, d := range run.Report.Diagnostics {
			fmt.Fprintf(w, "! %s\n", d.String())
		}
	}

	fmt.Fprintln(w)
	if len(proofs) == 0 {
		fmt.Fprintln(w, "No proofs recorded.")
		return nil
	}
	for _, rec := range proofs {
		fmt.Fprintf(w, "%4d  %s", rec.Seq, sink.Format(rec))
	}
	return nil
}
