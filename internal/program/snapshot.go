package program

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/provex/internal/ir"
)

// SubproofEntry is one recorded oracle answer.
type SubproofEntry struct {
	Relation string
	Rule     int32
	// Args is the head primary key followed by its level number.
	Args ir.Tuple
	// Values is the flat grounding sequence the evaluator returned.
	Values ir.Tuple
}

type subproofKey struct {
	relation string
	rule     int32
	args     string
}

// Snapshot is an evaluated program captured from an evaluator run.
//
// The oracle replays recorded answers; a query that was never recorded
// returns an empty sequence, the same answer the evaluator gives for a
// tuple with no grounding.
type Snapshot struct {
	relations map[string]*Relation
	ordered   []*Relation
	symbols   []string
	subproofs map[subproofKey]ir.Tuple
	entries   []SubproofEntry
}

// NewSnapshot assembles a snapshot. Symbol ids are positions in symbols.
// Relation names and subproof keys must be unique.
func NewSnapshot(symbols []string, relations []*Relation, subproofs []SubproofEntry) (*Snapshot, error) {
	s := &Snapshot{
		relations: make(map[string]*Relation, len(relations)),
		symbols:   append([]string(nil), symbols...),
		subproofs: make(map[subproofKey]ir.Tuple, len(subproofs)),
	}
	for _, r := range relations {
		if _, dup := s.relations[r.Name()]; dup {
			return nil, fmt.Errorf("duplicate relation %q", r.Name())
		}
		s.relations[r.Name()] = r
		s.ordered = append(s.ordered, r)
	}
	sort.Slice(s.ordered, func(i, j int) bool {
		return s.ordered[i].Name() < s.ordered[j].Name()
	})

	for _, e := range subproofs {
		key := subproofKey{relation: e.Relation, rule: e.Rule, args: e.Args.Encode()}
		if _, dup := s.subproofs[key]; dup {
			return nil, fmt.Errorf("duplicate subproof for %s rule %d args (%s)", e.Relation, e.Rule, key.args)
		}
		values := append(ir.Tuple(nil), e.Values...)
		s.subproofs[key] = values
		s.entries = append(s.entries, SubproofEntry{
			Relation: e.Relation,
			Rule:     e.Rule,
			Args:     append(ir.Tuple(nil), e.Args...),
			Values:   values,
		})
	}
	return s, nil
}

// Relation implements Catalog.
func (s *Snapshot) Relation(name string) (*Relation, bool) {
	r, ok := s.relations[name]
	return r, ok
}

// Relations implements Catalog.
func (s *Snapshot) Relations() []*Relation {
	return s.ordered
}

// Symbol implements Catalog.
func (s *Snapshot) Symbol(id ir.Domain) (string, bool) {
	if id < 0 || int(id) >= len(s.symbols) {
		return "", false
	}
	return s.symbols[id], true
}

// Symbols returns the symbol table in id order.
func (s *Snapshot) Symbols() []string {
	return s.symbols
}

// Subproofs returns the recorded oracle answers in insertion order.
func (s *Snapshot) Subproofs() []SubproofEntry {
	return s.entries
}

// Subproof implements Oracle.
func (s *Snapshot) Subproof(ctx context.Context, relation string, rule int32, args ir.Tuple) (ir.Tuple, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	values := s.subproofs[subproofKey{relation: relation, rule: rule, args: args.Encode()}]
	out := make(ir.Tuple, len(values))
	copy(out, values)
	return out, nil
}

// Canonical returns the snapshot as a canonical-JSON-ready tree.
//
// Relations appear in name order; subproofs are sorted by relation, rule and
// encoded args so that two snapshots with the same content hash identically
// regardless of declaration order.
func (s *Snapshot) Canonical() map[string]any {
	rels := make([]any, 0, len(s.ordered))
	for _, r := range s.ordered {
		types := make([]byte, 0, r.Arity())
		for _, t := range r.schema.Types {
			types = append(types, byte(t))
		}
		tuples := make([]any, 0, r.Len())
		for _, t := range r.tuples {
			tuples = append(tuples, t)
		}
		rels = append(rels, map[string]any{
			"name":   r.Name(),
			"kind":   r.Kind().String(),
			"types":  string(types),
			"aux":    r.AuxArity(),
			"tuples": tuples,
		})
	}

	entries := append([]SubproofEntry(nil), s.entries...)
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Relation != b.Relation {
			return a.Relation < b.Relation
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Args.Encode() < b.Args.Encode()
	})
	subs := make([]any, 0, len(entries))
	for _, e := range entries {
		subs = append(subs, map[string]any{
			"relation": e.Relation,
			"rule":     e.Rule,
			"args":     e.Args,
			"values":   e.Values,
		})
	}

	return map[string]any{
		"format":    ir.FormatVersion,
		"symbols":   s.symbols,
		"relations": rels,
		"subproofs": subs,
	}
}

// Digest hashes the canonical form.
func (s *Snapshot) Digest() (string, error) {
	return ir.ProgramDigest(s.Canonical())
}

var _ Program = (*Snapshot)(nil)
