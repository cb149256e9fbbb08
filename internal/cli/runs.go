package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/provex/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
}

// RunsResult lists what a run store holds.
type RunsResult struct {
	Programs []store.ProgramInfo `json:"programs"`
	Runs     []store.Run         `json:"runs"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List imported programs and recorded runs",
		Long: `List the programs imported into a run store and every run recorded
against them, in the order they were started.

Examples:
  provex runs --db ./provex.db
  provex runs --db ./provex.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run store (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
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

	programs, err := st.ListPrograms(ctx)
	if err != nil {
		return reportCommandError(formatter, &LoadError{Code: ErrCodeStore, Message: err.Error()})
	}
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return reportCommandError(formatter, &LoadError{Code: ErrCodeStore, Message: err.Error()})
	}

	result := RunsResult{Programs: programs, Runs: runs}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if len(programs) == 0 {
		fmt.Fprintln(w, "No programs imported.")
		return nil
	}
	fmt.Fprintln(w, "Programs:")
	for _, p := range programs {
		fmt.Fprintf(w, "  %d  %s  %s\n", p.Seq, shortDigest(p.Digest), p.Name)
	}

	fmt.Fprintln(w)
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	fmt.Fprintln(w, "Runs:")
	for _, r := range runs {
		proofs := "-"
		if r.Report != nil {
			proofs = strconv.Itoa(r.Report.Stats.Proofs)
		}
		fmt.Fprintf(w, "  %d  %s  %-8s  program %s  cite %s  proofs %s\n",
			r.Seq, r.ID, r.Status, shortDigest(r.Program), r.Citation, proofs)
	}
	return nil
}

// shortDigest trims a hex digest for display.
func shortDigest(d string) string {
	if len(d) <= 12 {
		return d
	}
	return d[:12]
}
