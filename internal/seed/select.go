package seed

import (
	"fmt"

	"github.com/roach88/provex/internal/ir"
	"github.com/roach88/provex/internal/program"
)

// Select turns a target list into worklist entries.
//
// Targeted lists enqueue every live tuple whose primary key equals the
// requested key, in stored order. Requests that name an unknown relation or
// carry the wrong key length are skipped with a diagnostic. Default mode
// enqueues every output tuple, relations in name order.
func Select(catalog program.Catalog, list List) ([]ir.Fact, []ir.Diagnostic) {
	diags := append([]ir.Diagnostic(nil), list.Diagnostics...)
	if !list.Targeted {
		return Default(catalog), diags
	}

	var facts []ir.Fact
	for _, t := range list.Targets {
		rel, ok := catalog.Relation(t.Relation)
		if !ok {
			diags = append(diags, ir.Diagnostic{
				Code:     ir.DiagTargetUnknownRelation,
				Message:  fmt.Sprintf("line %d: relation %s is not declared", t.Line, t.Relation),
				Relation: t.Relation,
			})
			continue
		}
		if len(t.Key) != rel.PrimaryArity() {
			diags = append(diags, ir.Diagnostic{
				Code: ir.DiagTargetArity,
				Message: fmt.Sprintf("line %d: key has %d fields, %s has primary arity %d",
					t.Line, len(t.Key), t.Relation, rel.PrimaryArity()),
				Relation: t.Relation,
				Detail:   t.Key.Encode(),
			})
			continue
		}

		matches := rel.Match(t.Key)
		if len(matches) == 0 {
			diags = append(diags, ir.Diagnostic{
				Code:     ir.DiagTargetNoMatch,
				Message:  fmt.Sprintf("line %d: no live tuple of %s has key (%s)", t.Line, t.Relation, t.Key.Encode()),
				Relation: t.Relation,
				Detail:   t.Key.Encode(),
			})
			continue
		}
		for _, tuple := range matches {
			facts = append(facts, ir.Fact{Relation: t.Relation, Tuple: tuple})
		}
	}
	return facts, diags
}

// Default returns every tuple of every output relation.
func Default(catalog program.Catalog) []ir.Fact {
	var facts []ir.Fact
	for _, rel := range program.Outputs(catalog) {
		for _, tuple := range rel.Tuples() {
			facts = append(facts, ir.Fact{Relation: rel.Name(), Tuple: tuple})
		}
	}
	return facts
}
