package program

import (
	"fmt"
	"strings"

	"github.com/roach88/provex/internal/ir"
)

// InfoMarker tags the evaluator-generated relations that describe rule bodies.
const InfoMarker = "@info"

// Kind flags how the evaluator declared a relation.
type Kind int

const (
	// KindInternal is a relation that is neither loaded nor printed.
	KindInternal Kind = iota
	// KindInput is loaded from facts; its tuples carry level 0.
	KindInput
	// KindOutput is printed by the evaluator; default seeding explains these.
	KindOutput
	// KindInfo is a rule-metadata relation whose name contains InfoMarker.
	KindInfo
)

// ParseKind maps the snapshot spelling of a kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "internal":
		return KindInternal, nil
	case "input":
		return KindInput, nil
	case "output":
		return KindOutput, nil
	case "info":
		return KindInfo, nil
	default:
		return KindInternal, fmt.Errorf("unknown relation kind %q", s)
	}
}

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindOutput:
		return "output"
	case KindInfo:
		return "info"
	default:
		return "internal"
	}
}

// Schema is the declared shape of a relation.
type Schema struct {
	Name string
	// Types has one tag per field, auxiliary fields included.
	Types []ir.TypeTag
	// AuxArity counts the trailing provenance fields.
	AuxArity int
	Kind     Kind
}

// Relation is a read-only relation with its live tuples.
type Relation struct {
	schema Schema
	tuples []ir.Tuple
	// index maps an encoded primary key to tuple positions in stored order.
	index map[string][]int
}

// NewRelation validates the tuples against the schema and indexes them by
// primary key.
func NewRelation(schema Schema, tuples []ir.Tuple) (*Relation, error) {
	if schema.Name == "" {
		return nil, fmt.Errorf("relation name is required")
	}
	if schema.AuxArity < 0 || schema.AuxArity > len(schema.Types) {
		return nil, fmt.Errorf("relation %s: auxiliary arity %d out of range for arity %d",
			schema.Name, schema.AuxArity, len(schema.Types))
	}
	if strings.Contains(schema.Name, InfoMarker) {
		schema.Kind = KindInfo
	}

	r := &Relation{
		schema: schema,
		tuples: make([]ir.Tuple, 0, len(tuples)),
		index:  make(map[string][]int, len(tuples)),
	}
	primary := r.PrimaryArity()
	for i, t := range tuples {
		if len(t) != len(schema.Types) {
			return nil, fmt.Errorf("relation %s: tuple %d has %d fields, arity is %d",
				schema.Name, i, len(t), len(schema.Types))
		}
		cp := make(ir.Tuple, len(t))
		copy(cp, t)
		key := cp[:primary].Encode()
		r.index[key] = append(r.index[key], len(r.tuples))
		r.tuples = append(r.tuples, cp)
	}
	return r, nil
}

// Name returns the relation name.
func (r *Relation) Name() string { return r.schema.Name }

// Arity is the declared arity, auxiliary fields included.
func (r *Relation) Arity() int { return len(r.schema.Types) }

// AuxArity is the number of trailing provenance fields.
func (r *Relation) AuxArity() int { return r.schema.AuxArity }

// PrimaryArity is the number of user-data fields.
func (r *Relation) PrimaryArity() int { return len(r.schema.Types) - r.schema.AuxArity }

// Kind returns how the relation was declared.
func (r *Relation) Kind() Kind { return r.schema.Kind }

// Schema returns a copy of the declared shape.
func (r *Relation) Schema() Schema {
	s := r.schema
	s.Types = append([]ir.TypeTag(nil), r.schema.Types...)
	return s
}

// Type returns the tag of field i. Out-of-range positions report false.
func (r *Relation) Type(i int) (ir.TypeTag, bool) {
	if i < 0 || i >= len(r.schema.Types) {
		return 0, false
	}
	return r.schema.Types[i], true
}

// Len returns the number of live tuples.
func (r *Relation) Len() int { return len(r.tuples) }

// Tuples returns the live tuples in stored order. Callers must not mutate them.
func (r *Relation) Tuples() []ir.Tuple { return r.tuples }

// Lookup returns the first tuple whose primary key equals key.
func (r *Relation) Lookup(key ir.Tuple) (ir.Tuple, bool) {
	if len(key) != r.PrimaryArity() {
		return nil, false
	}
	positions := r.index[key.Encode()]
	if len(positions) == 0 {
		return nil, false
	}
	return r.tuples[positions[0]], true
}

// Match returns every tuple whose primary key equals key, in stored order.
// Several tuples may share a key when the evaluator kept more than one
// rule/level witness for the same fact.
func (r *Relation) Match(key ir.Tuple) []ir.Tuple {
	if len(key) != r.PrimaryArity() {
		return nil
	}
	positions := r.index[key.Encode()]
	out := make([]ir.Tuple, 0, len(positions))
	for _, p := range positions {
		out = append(out, r.tuples[p])
	}
	return out
}
