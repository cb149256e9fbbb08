package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/provex/internal/ir"
	"github.com/roach88/provex/internal/program"
)

// ProgramBuilder assembles an evaluated-program snapshot for tests.
//
// Relations declared through Relation carry the two provenance fields;
// Fact and Derived append them. Rule creates the "<head>.@info.<rule>"
// metadata relation the evaluator would have emitted.
//
// Not safe for concurrent use.
type ProgramBuilder struct {
	symbols   []string
	symbolIDs map[string]ir.Domain
	schemas   map[string]program.Schema
	order     []string
	tuples    map[string][]ir.Tuple
	subproofs []program.SubproofEntry
	err       error
}

// NewProgram creates an empty builder.
func NewProgram() *ProgramBuilder {
	return &ProgramBuilder{
		symbolIDs: make(map[string]ir.Domain),
		schemas:   make(map[string]program.Schema),
		tuples:    make(map[string][]ir.Tuple),
	}
}

// Sym interns text and returns its id. Repeated text yields the same id.
func (b *ProgramBuilder) Sym(text string) ir.Domain {
	if id, ok := b.symbolIDs[text]; ok {
		return id
	}
	id := ir.Domain(len(b.symbols))
	b.symbols = append(b.symbols, text)
	b.symbolIDs[text] = id
	return id
}

// Relation declares a provenance-instrumented relation. types spells the
// primary fields only ("ii", "si"); the rule/level fields are appended.
func (b *ProgramBuilder) Relation(name string, kind program.Kind, types string) *ProgramBuilder {
	tags := make([]ir.TypeTag, 0, len(types)+ir.AuxArity)
	for _, c := range []byte(types) {
		tags = append(tags, ir.TypeTag(c))
	}
	for i := 0; i < ir.AuxArity; i++ {
		tags = append(tags, ir.TypeSigned)
	}
	return b.declare(program.Schema{Name: name, Types: tags, AuxArity: ir.AuxArity, Kind: kind})
}

// Schema declares a relation with an explicit shape.
func (b *ProgramBuilder) Schema(s program.Schema) *ProgramBuilder {
	return b.declare(s)
}

func (b *ProgramBuilder) declare(s program.Schema) *ProgramBuilder {
	if _, dup := b.schemas[s.Name]; dup {
		b.fail(fmt.Errorf("relation %s declared twice", s.Name))
		return b
	}
	b.schemas[s.Name] = s
	b.order = append(b.order, s.Name)
	return b
}

// Fact adds an input tuple: rule 0, level 0.
func (b *ProgramBuilder) Fact(name string, key ...ir.Domain) *ProgramBuilder {
	return b.Derived(name, 0, 0, key...)
}

// Derived adds a tuple derived by rule at level.
func (b *ProgramBuilder) Derived(name string, rule, level int32, key ...ir.Domain) *ProgramBuilder {
	t := append(ir.Tuple(nil), key...)
	t = append(t, ir.Domain(rule), ir.Domain(level))
	return b.Tuple(name, t)
}

// Tuple adds a raw tuple, auxiliary fields included.
func (b *ProgramBuilder) Tuple(name string, t ir.Tuple) *ProgramBuilder {
	b.tuples[name] = append(b.tuples[name], t)
	return b
}

// Rule records the metadata of one rule. descriptors lists the head
// descriptor first and then the body literals in order.
func (b *ProgramBuilder) Rule(head string, rule int32, text string, descriptors ...string) *ProgramBuilder {
	name := fmt.Sprintf("%s.%s.%d", head, program.InfoMarker, rule)
	if _, ok := b.schemas[name]; !ok {
		tags := make([]ir.TypeTag, 0, len(descriptors)+2)
		tags = append(tags, ir.TypeSigned)
		for range descriptors {
			tags = append(tags, ir.TypeSymbol)
		}
		tags = append(tags, ir.TypeSymbol)
		b.declare(program.Schema{Name: name, Types: tags, Kind: program.KindInfo})
	}

	t := ir.Tuple{ir.Domain(rule)}
	for _, d := range descriptors {
		t = append(t, b.Sym(d))
	}
	t = append(t, b.Sym(text))
	return b.Tuple(name, t)
}

// Subproof records the oracle answer for a head tuple.
func (b *ProgramBuilder) Subproof(head string, rule, level int32, key ir.Tuple, values ir.Tuple) *ProgramBuilder {
	args := append(ir.Tuple(nil), key...)
	args = append(args, ir.Domain(level))
	b.subproofs = append(b.subproofs, program.SubproofEntry{
		Relation: head,
		Rule:     rule,
		Args:     args,
		Values:   values,
	})
	return b
}

// Snapshot builds the program or returns the first error.
func (b *ProgramBuilder) Snapshot() (*program.Snapshot, error) {
	if b.err != nil {
		return nil, b.err
	}
	rels := make([]*program.Relation, 0, len(b.order))
	for _, name := range b.order {
		r, err := program.NewRelation(b.schemas[name], b.tuples[name])
		if err != nil {
			return nil, err
		}
		rels = append(rels, r)
	}
	for name := range b.tuples {
		if _, ok := b.schemas[name]; !ok {
			return nil, fmt.Errorf("tuples added to undeclared relation %s", name)
		}
	}
	return program.NewSnapshot(b.symbols, rels, b.subproofs)
}

// Build is Snapshot for tests: it fails the test on error.
func (b *ProgramBuilder) Build(t testing.TB) *program.Snapshot {
	t.Helper()
	s, err := b.Snapshot()
	require.NoError(t, err)
	return s
}

func (b *ProgramBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Grounding encodes one body grounding the way the oracle returns it: the
// body tuples back to back (auxiliary fields included) followed by the
// bookkeeping block of 2*headPrimary + 2*len(body) words, zero filled.
func Grounding(headPrimary int, body ...ir.Tuple) ir.Tuple {
	var out ir.Tuple
	for _, t := range body {
		out = append(out, t...)
	}
	return append(out, make(ir.Tuple, 2*headPrimary+2*len(body))...)
}

// Concat joins several groundings into one oracle answer.
func Concat(groundings ...ir.Tuple) ir.Tuple {
	var out ir.Tuple
	for _, g := range groundings {
		out = append(out, g...)
	}
	return out
}

// ReadLines splits an artifact into lines, dropping the trailing newline.
func ReadLines(artifact string) []string {
	artifact = strings.TrimSuffix(artifact, "\n")
	if artifact == "" {
		return nil
	}
	return strings.Split(artifact, "\n")
}
