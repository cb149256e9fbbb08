package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/provex/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database string
	Name     string
}

// ImportResult is the payload printed after an import.
type ImportResult struct {
	store.ProgramInfo
	Relations int `json:"relations"`
	Symbols   int `json:"symbols"`
	Subproofs int `json:"subproofs"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <program-dir>",
		Short: "Compile a program and store it in the run store",
		Long: `Compile a CUE program directory and import the snapshot into the run
store. Programs are keyed by content digest, so importing the same program
twice is a no-op that reports the existing entry.

Example:
  provex import ./program --db ./provex.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "program name (default: directory name)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runImport(opts *ImportOptions, programDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, err := LoadProgram(programDir)
	if err != nil {
		return reportCommandError(formatter, err)
	}
	formatter.VerboseLog("Compiled %d CUE file(s) from %s", loaded.FileCount, programDir)

	st, err := openStore(opts.Database, nil)
	if err != nil {
		return reportCommandError(formatter, err)
	}
	defer st.Close()

	name := opts.Name
	if name == "" {
		name = filepath.Base(filepath.Clean(programDir))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	info, err := st.ImportSnapshot(ctx, name, loaded.Snapshot)
	if err != nil {
		return reportCommandError(formatter, &LoadError{Code: ErrCodeStore, Message: err.Error()})
	}

	result := ImportResult{
		ProgramInfo: info,
		Relations:   len(loaded.Snapshot.Relations()),
		Symbols:     len(loaded.Snapshot.Symbols()),
		Subproofs:   len(loaded.Snapshot.Subproofs()),
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Imported %s as program %d\n", info.Name, info.Seq)
	fmt.Fprintf(formatter.Writer, "  digest: %s\n", info.Digest)
	fmt.Fprintf(formatter.Writer, "  relations: %d, symbols: %d, subproofs: %d\n",
		result.Relations, result.Symbols, result.Subproofs)
	return nil
}
