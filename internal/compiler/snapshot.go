// Package compiler turns CUE program snapshots into program.Snapshot values.
//
// A snapshot file describes what an evaluator run left behind:
//
//	symbols: ["alice"]                    // optional, pre-seeds symbol ids
//	relations: edge: {
//		kind:   "input"                   // input | output | internal | info
//		types:  ["i", "i"]                // primary fields only
//		tuples: [[1, 2], [2, 3, 0, 0]]    // rule/level default to [0, 0]
//	}
//	rules: [{head: "path", rule: 1, text: "path(x,y) :- edge(x,y).",
//		literals: ["path,x,y", "edge,x,y"]}]
//	subproofs: [{relation: "path", rule: 1, key: [1, 2], level: 1,
//		groundings: [[[1, 2, 0, 0]]]}]
//
// Each rules entry becomes a "<head>.@info.<rule>" relation. A subproof is
// either raw (args + values, exactly as the oracle returns them) or
// structured (key + level + groundings); structured groundings get the
// zero-filled bookkeeping block appended.
package compiler

import (
	"fmt"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/provex/internal/ir"
	"github.com/roach88/provex/internal/program"
)

type compiler struct {
	symbols   *symbolTable
	schemas   map[string]program.Schema
	tuples    map[string][]ir.Tuple
	subproofs []program.SubproofEntry
}

// CompileSnapshot parses a CUE value into an evaluated-program snapshot.
//
// The value is the snapshot root, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`relations: edge: {kind: "input", types: ["i","i"]}`)
//	snap, err := CompileSnapshot(v)
func CompileSnapshot(v cue.Value) (*program.Snapshot, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	c := &compiler{
		symbols: newSymbolTable(),
		schemas: make(map[string]program.Schema),
		tuples:  make(map[string][]ir.Tuple),
	}

	if err := c.parseSymbols(v); err != nil {
		return nil, err
	}
	if err := c.parseRelations(v); err != nil {
		return nil, err
	}
	if err := c.parseRules(v); err != nil {
		return nil, err
	}
	if err := c.parseSubproofs(v); err != nil {
		return nil, err
	}

	if len(c.schemas) == 0 {
		return nil, &CompileError{
			Field:   "relations",
			Message: "at least one relation is required",
			Pos:     v.Pos(),
		}
	}

	names := make([]string, 0, len(c.schemas))
	for name := range c.schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	rels := make([]*program.Relation, 0, len(names))
	for _, name := range names {
		r, err := program.NewRelation(c.schemas[name], c.tuples[name])
		if err != nil {
			return nil, &CompileError{Field: "relations." + name, Message: err.Error()}
		}
		rels = append(rels, r)
	}

	snap, err := program.NewSnapshot(c.symbols.texts, rels, c.subproofs)
	if err != nil {
		return nil, &CompileError{Field: "subproofs", Message: err.Error()}
	}
	return snap, nil
}

func (c *compiler) parseSymbols(v cue.Value) error {
	symVal := v.LookupPath(cue.ParsePath("symbols"))
	if !symVal.Exists() {
		return nil // symbols are optional
	}
	iter, err := symVal.List()
	if err != nil {
		return compileErrorf("symbols", symVal.Pos(), "symbols must be a list of strings")
	}
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return compileErrorf("symbols", iter.Value().Pos(), "symbols must be a list of strings")
		}
		c.symbols.intern(s)
	}
	return nil
}

// parseRelations reads relations in name order so that symbol ids do not
// depend on declaration order.
func (c *compiler) parseRelations(v cue.Value) error {
	relsVal := v.LookupPath(cue.ParsePath("relations"))
	if !relsVal.Exists() {
		return nil
	}

	iter, err := relsVal.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	entries := make(map[string]cue.Value)
	var names []string
	for iter.Next() {
		names = append(names, iter.Label())
		entries[iter.Label()] = iter.Value()
	}
	sort.Strings(names)

	for _, name := range names {
		if err := c.parseRelation(name, entries[name]); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) parseRelation(name string, v cue.Value) error {
	field := "relations." + name

	kind := program.KindInternal
	if kindVal := v.LookupPath(cue.ParsePath("kind")); kindVal.Exists() {
		s, err := kindVal.String()
		if err != nil {
			return formatCUEError(err)
		}
		kind, err = program.ParseKind(s)
		if err != nil {
			return compileErrorf(field+".kind", kindVal.Pos(), "%v", err)
		}
	}
	isInfo := kind == program.KindInfo || strings.Contains(name, program.InfoMarker)

	aux := ir.AuxArity
	if isInfo {
		aux = 0
	}
	if auxVal := v.LookupPath(cue.ParsePath("aux")); auxVal.Exists() {
		n, err := auxVal.Int64()
		if err != nil {
			return formatCUEError(err)
		}
		if n < 0 {
			return compileErrorf(field+".aux", auxVal.Pos(), "aux must not be negative")
		}
		aux = int(n)
	}

	typesVal := v.LookupPath(cue.ParsePath("types"))
	if !typesVal.Exists() {
		return compileErrorf(field+".types", v.Pos(), "types are required")
	}
	typeIter, err := typesVal.List()
	if err != nil {
		return compileErrorf(field+".types", typesVal.Pos(), "types must be a list")
	}
	var tags []ir.TypeTag
	for typeIter.Next() {
		s, err := typeIter.Value().String()
		if err != nil {
			return compileErrorf(field+".types", typeIter.Value().Pos(), "type must be a string")
		}
		tag, err := ir.ParseTypeTag(s)
		if err != nil {
			return compileErrorf(field+".types", typeIter.Value().Pos(), "%v", err)
		}
		tags = append(tags, tag)
	}
	for i := 0; i < aux; i++ {
		tags = append(tags, ir.TypeSigned)
	}

	schema := program.Schema{Name: name, Types: tags, AuxArity: aux, Kind: kind}
	if err := c.declare(schema, v.Pos()); err != nil {
		return err
	}

	tuplesVal := v.LookupPath(cue.ParsePath("tuples"))
	if !tuplesVal.Exists() {
		return nil
	}
	tupleIter, err := tuplesVal.List()
	if err != nil {
		return compileErrorf(field+".tuples", tuplesVal.Pos(), "tuples must be a list")
	}
	primary := len(tags) - aux
	for i := 0; tupleIter.Next(); i++ {
		tf := fmt.Sprintf("%s.tuples[%d]", field, i)
		t, err := c.words(tupleIter.Value(), tf, tags)
		if err != nil {
			return err
		}
		switch {
		case len(t) == len(tags):
		case len(t) == primary && aux == ir.AuxArity:
			// Input facts may omit rule and level.
			t = append(t, 0, 0)
		default:
			return compileErrorf(tf, tupleIter.Value().Pos(),
				"tuple has %d fields, relation has arity %d (primary %d)", len(t), len(tags), primary)
		}
		c.tuples[name] = append(c.tuples[name], t)
	}
	return nil
}

func (c *compiler) declare(s program.Schema, pos token.Pos) error {
	if _, dup := c.schemas[s.Name]; dup {
		return compileErrorf("relations."+s.Name, pos, "relation declared twice")
	}
	c.schemas[s.Name] = s
	return nil
}

// parseRules expands rule entries into info relations.
func (c *compiler) parseRules(v cue.Value) error {
	rulesVal := v.LookupPath(cue.ParsePath("rules"))
	if !rulesVal.Exists() {
		return nil
	}
	iter, err := rulesVal.List()
	if err != nil {
		return compileErrorf("rules", rulesVal.Pos(), "rules must be a list")
	}

	for i := 0; iter.Next(); i++ {
		rv := iter.Value()
		field := fmt.Sprintf("rules[%d]", i)

		head, err := requiredString(rv, "head", field)
		if err != nil {
			return err
		}
		rule, err := requiredInt(rv, "rule", field)
		if err != nil {
			return err
		}
		text, err := requiredString(rv, "text", field)
		if err != nil {
			return err
		}

		var literals []string
		litVal := rv.LookupPath(cue.ParsePath("literals"))
		if !litVal.Exists() {
			return compileErrorf(field+".literals", rv.Pos(), "literals are required (head descriptor first)")
		}
		litIter, err := litVal.List()
		if err != nil {
			return compileErrorf(field+".literals", litVal.Pos(), "literals must be a list of strings")
		}
		for litIter.Next() {
			s, err := litIter.Value().String()
			if err != nil {
				return compileErrorf(field+".literals", litIter.Value().Pos(), "literals must be a list of strings")
			}
			literals = append(literals, s)
		}
		if len(literals) == 0 {
			return compileErrorf(field+".literals", litVal.Pos(), "the head descriptor is required")
		}

		name := fmt.Sprintf("%s.%s.%d", head, program.InfoMarker, rule)
		if relVal := rv.LookupPath(cue.ParsePath("relation")); relVal.Exists() {
			if name, err = relVal.String(); err != nil {
				return formatCUEError(err)
			}
		}

		arity := len(literals) + 2
		if existing, ok := c.schemas[name]; ok {
			if len(existing.Types) != arity {
				return compileErrorf(field, rv.Pos(),
					"info relation %s has arity %d, rule needs %d", name, len(existing.Types), arity)
			}
		} else {
			tags := make([]ir.TypeTag, 0, arity)
			tags = append(tags, ir.TypeSigned)
			for range literals {
				tags = append(tags, ir.TypeSymbol)
			}
			tags = append(tags, ir.TypeSymbol)
			c.schemas[name] = program.Schema{Name: name, Types: tags, Kind: program.KindInfo}
		}

		t := ir.Tuple{ir.Domain(rule)}
		for _, l := range literals {
			t = append(t, c.symbols.intern(l))
		}
		t = append(t, c.symbols.intern(text))
		c.tuples[name] = append(c.tuples[name], t)
	}
	return nil
}

func (c *compiler) parseSubproofs(v cue.Value) error {
	subsVal := v.LookupPath(cue.ParsePath("subproofs"))
	if !subsVal.Exists() {
		return nil
	}
	iter, err := subsVal.List()
	if err != nil {
		return compileErrorf("subproofs", subsVal.Pos(), "subproofs must be a list")
	}

	for i := 0; iter.Next(); i++ {
		sv := iter.Value()
		field := fmt.Sprintf("subproofs[%d]", i)

		relation, err := requiredString(sv, "relation", field)
		if err != nil {
			return err
		}
		rule, err := requiredInt(sv, "rule", field)
		if err != nil {
			return err
		}

		entry := program.SubproofEntry{Relation: relation, Rule: int32(rule)}
		argsVal := sv.LookupPath(cue.ParsePath("args"))
		keyVal := sv.LookupPath(cue.ParsePath("key"))

		switch {
		case argsVal.Exists() && keyVal.Exists():
			return compileErrorf(field, sv.Pos(), "use either args/values or key/level/groundings")

		case argsVal.Exists():
			if entry.Args, err = c.words(argsVal, field+".args", nil); err != nil {
				return err
			}
			valuesVal := sv.LookupPath(cue.ParsePath("values"))
			if !valuesVal.Exists() {
				return compileErrorf(field+".values", sv.Pos(), "values are required with args")
			}
			if entry.Values, err = c.words(valuesVal, field+".values", nil); err != nil {
				return err
			}

		case keyVal.Exists():
			key, err := c.words(keyVal, field+".key", nil)
			if err != nil {
				return err
			}
			if s, ok := c.schemas[relation]; ok && len(key) != len(s.Types)-s.AuxArity {
				return compileErrorf(field+".key", keyVal.Pos(),
					"key has %d fields, %s has primary arity %d", len(key), relation, len(s.Types)-s.AuxArity)
			}
			level, err := requiredInt(sv, "level", field)
			if err != nil {
				return err
			}
			entry.Args = append(append(ir.Tuple(nil), key...), ir.Domain(level))
			if entry.Values, err = c.groundings(sv, field, len(key)); err != nil {
				return err
			}

		default:
			return compileErrorf(field, sv.Pos(), "args or key is required")
		}

		c.subproofs = append(c.subproofs, entry)
	}
	return nil
}

// groundings flattens structured groundings. Each grounding is a list of
// body tuples; the bookkeeping block of 2*headPrimary + 2*len(body) zero
// words follows it.
func (c *compiler) groundings(sv cue.Value, field string, headPrimary int) (ir.Tuple, error) {
	gVal := sv.LookupPath(cue.ParsePath("groundings"))
	if !gVal.Exists() {
		return nil, nil // an empty answer
	}
	gIter, err := gVal.List()
	if err != nil {
		return nil, compileErrorf(field+".groundings", gVal.Pos(), "groundings must be a list")
	}

	var values ir.Tuple
	for g := 0; gIter.Next(); g++ {
		gf := fmt.Sprintf("%s.groundings[%d]", field, g)
		bodyIter, err := gIter.Value().List()
		if err != nil {
			return nil, compileErrorf(gf, gIter.Value().Pos(), "a grounding is a list of body tuples")
		}
		n := 0
		for ; bodyIter.Next(); n++ {
			t, err := c.words(bodyIter.Value(), fmt.Sprintf("%s[%d]", gf, n), nil)
			if err != nil {
				return nil, err
			}
			values = append(values, t...)
		}
		values = append(values, make(ir.Tuple, 2*headPrimary+2*n)...)
	}
	return values, nil
}

func requiredString(v cue.Value, name, field string) (string, error) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return "", compileErrorf(field+"."+name, v.Pos(), "%s is required", name)
	}
	s, err := f.String()
	if err != nil {
		return "", compileErrorf(field+"."+name, f.Pos(), "%s must be a string", name)
	}
	return s, nil
}

func requiredInt(v cue.Value, name, field string) (int64, error) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return 0, compileErrorf(field+"."+name, v.Pos(), "%s is required", name)
	}
	n, err := f.Int64()
	if err != nil {
		return 0, compileErrorf(field+"."+name, f.Pos(), "%s must be an integer", name)
	}
	if n < -1<<31 || n > 1<<31-1 {
		return 0, compileErrorf(field+"."+name, f.Pos(), "%s %d does not fit in 32 bits", name, n)
	}
	return n, nil
}
