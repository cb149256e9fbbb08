package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/provex/internal/decode"
	"github.com/roach88/provex/internal/ir"
	"github.com/roach88/provex/internal/program"
)

// TuplesOptions holds flags for the tuples command.
type TuplesOptions struct {
	*RootOptions
	Database string
	Program  string
}

// TupleRow is one stored tuple, decoded.
type TupleRow struct {
	Atom  string   `json:"atom"`
	Rule  int32    `json:"rule"`
	Level int32    `json:"level"`
	Words ir.Tuple `json:"words"`
}

// TuplesResult is the output of the tuples command.
type TuplesResult struct {
	Program  string     `json:"program"`
	Relation string     `json:"relation"`
	Tuples   []TupleRow `json:"tuples"`
}

// NewTuplesCommand creates the tuples command.
func NewTuplesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TuplesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tuples <relation> [key...]",
		Short: "Look up stored tuples of an imported program",
		Long: `Print the tuples of one relation of an imported program, with the rule
and level that derived each of them.

Key words are written as in a target list: unsigned 32-bit integers, one per
primary field. Without a key every tuple of the relation is printed.

Examples:
  provex tuples --db ./provex.db path 1 3
  provex tuples --db ./provex.db edge --program 3f2a...`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTuples(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run store (required)")
	cmd.Flags().StringVar(&opts.Program, "program", "", "program digest (default: most recent import)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runTuples(opts *TuplesOptions, relation string, keyArgs []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	key, err := parseKey(keyArgs)
	if err != nil {
		return NewExitError(ExitCommandError, err.Error())
	}

	st, err := openStore(opts.Database, nil)
	if err != nil {
		return reportCommandError(formatter, err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	digest := opts.Program
	if digest == "" {
		info, err := st.LatestProgram(ctx)
		if err != nil {
			return reportCommandError(formatter, &LoadError{Code: ErrCodeStore, Message: fmt.Sprintf("no program imported into %s", opts.Database)})
		}
		digest = info.Digest
	}
	snap, err := st.LoadSnapshot(ctx, digest)
	if err != nil {
		return reportCommandError(formatter, &LoadError{Code: ErrCodeStore, Message: err.Error()})
	}
	rel, ok := snap.Relation(relation)
	if !ok {
		return reportCommandError(formatter, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("relation not found: %s", relation)})
	}

	tuples := rel.Tuples()
	if len(key) > 0 {
		if len(key) != rel.PrimaryArity() {
			return NewExitError(ExitCommandError,
				fmt.Sprintf("%s has %d key field(s), got %d", relation, rel.PrimaryArity(), len(key)))
		}
		tuples, err = st.MatchTuples(ctx, digest, relation, key)
		if err != nil {
			return reportCommandError(formatter, &LoadError{Code: ErrCodeStore, Message: err.Error()})
		}
	}

	result := TuplesResult{Program: digest, Relation: relation, Tuples: make([]TupleRow, 0, len(tuples))}
	for _, t := range tuples {
		result.Tuples = append(result.Tuples, decodeTuple(snap, rel, t))
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	w := formatter.Writer
	if len(result.Tuples) == 0 {
		fmt.Fprintln(w, "No matching tuples.")
		return nil
	}
	for _, row := range result.Tuples {
		if rel.AuxArity() == ir.AuxArity {
			fmt.Fprintf(w, "%s\trule %d\tlevel %d\n", row.Atom, row.Rule, row.Level)
		} else {
			fmt.Fprintln(w, row.Atom)
		}
	}
	return nil
}

// parseKey reads key words the way a target list spells them.
func parseKey(args []string) (ir.Tuple, error) {
	key := make(ir.Tuple, 0, len(args))
	for _, a := range args {
		u, err := strconv.ParseUint(a, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("key word %q is not an unsigned 32-bit integer", a)
		}
		key = append(key, ir.FromUnsigned(uint32(u)))
	}
	return key, nil
}

func decodeTuple(snap *program.Snapshot, rel *program.Relation, t ir.Tuple) TupleRow {
	primary, aux := t.Split(rel.PrimaryArity())
	row := TupleRow{Atom: decode.Atom(snap, rel.Name(), primary), Words: t}
	if len(aux) == ir.AuxArity {
		row.Rule, row.Level = int32(aux[0]), int32(aux[1])
	}
	return row
}
