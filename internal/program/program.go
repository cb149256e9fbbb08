package program

import (
	"context"

	"github.com/roach88/provex/internal/ir"
)

// Catalog exposes relation metadata and contents.
//
// Lookups fail softly: an unknown relation reports false, never an error.
// Callers render unknown relations as UNK(...) rather than aborting.
type Catalog interface {
	// Relation returns the named relation.
	Relation(name string) (*Relation, bool)

	// Relations returns every relation ordered by name.
	Relations() []*Relation

	// Symbol resolves an interned-string id.
	Symbol(id ir.Domain) (string, bool)
}

// Oracle is the evaluator's subproof query.
//
// Subproof is called with the head relation, the rule number that derived the
// head and the head's primary key followed by its level number. It returns a
// flat sequence holding zero or more complete groundings of the rule body,
// each followed by the evaluator's bookkeeping block.
type Oracle interface {
	Subproof(ctx context.Context, relation string, rule int32, args ir.Tuple) (ir.Tuple, error)
}

// Program is an evaluated program: contents plus its subproof oracle.
type Program interface {
	Catalog
	Oracle
}

// Outputs returns the output relations ordered by name.
func Outputs(c Catalog) []*Relation {
	var out []*Relation
	for _, r := range c.Relations() {
		if r.Kind() == KindOutput {
			out = append(out, r)
		}
	}
	return out
}

// Infos returns the rule-metadata relations ordered by name.
func Infos(c Catalog) []*Relation {
	var out []*Relation
	for _, r := range c.Relations() {
		if r.Kind() == KindInfo {
			out = append(out, r)
		}
	}
	return out
}
