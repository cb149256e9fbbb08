package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions are the flags every command sees.
type RootOptions struct {
	Verbose bool
	Format  string // "text" | "json"
}

// ValidFormats lists the accepted --format values.
var ValidFormats = []string{"text", "json"}

// NewRootCommand assembles the provex command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	root := &cobra.Command{
		Use:   "provex",
		Short: "provex - proof explanations for evaluated Datalog programs",
		Long: `Reconstruct and print the rule applications that derived tuples of an
already-evaluated Datalog program. Programs are CUE snapshots of what the
evaluator left behind: relation contents with provenance fields, rule
descriptions and subproof answers.`,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if isValidFormat(opts.Format) {
				return nil
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")

	for _, sub := range []func(*RootOptions) *cobra.Command{
		NewExplainCommand,
		NewImportCommand,
		NewValidateCommand,
		NewRunsCommand,
		NewShowCommand,
		NewTuplesCommand,
		NewTestCommand,
	} {
		root.AddCommand(sub(opts))
	}
	return root
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
