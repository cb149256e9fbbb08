// Package decode renders raw evaluator words as text.
//
// Every function here is total: provenance data is trusted, so a value that
// cannot be interpreted still renders as something readable.
package decode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/provex/internal/ir"
	"github.com/roach88/provex/internal/program"
)

// UnknownRelation is the atom name used when a relation is not declared.
const UnknownRelation = "UNK"

// Symbols resolves interned-string ids. program.Catalog satisfies it.
type Symbols interface {
	Symbol(id ir.Domain) (string, bool)
}

// Value renders one raw word under a type tag.
func Value(tag ir.TypeTag, raw ir.Domain, symbols Symbols) string {
	switch v := ir.Interpret(tag, raw).(type) {
	case ir.Signed:
		return strconv.FormatInt(int64(v), 10)
	case ir.Unsigned:
		return strconv.FormatUint(uint64(v), 10)
	case ir.Float:
		return fmt.Sprintf("%f", float64(v))
	case ir.Symbol:
		return symbol(ir.Domain(v), symbols)
	case ir.Record:
		return "record #" + strconv.FormatInt(int64(v), 10)
	default:
		return raw.String()
	}
}

func symbol(id ir.Domain, symbols Symbols) string {
	if symbols != nil {
		if text, ok := symbols.Symbol(id); ok {
			return `"` + text + `"`
		}
	}
	return "symbol #" + id.String()
}

// Atom renders name(v1,...,vn) using the relation's declared field types.
//
// values is the primary key only. An undeclared relation renders as
// UNK(v1,...,vn) with every value as a signed decimal.
func Atom(catalog program.Catalog, name string, values ir.Tuple) string {
	rel, ok := catalog.Relation(name)
	if !ok {
		return Unknown(values)
	}

	parts := make([]string, len(values))
	for i, raw := range values {
		tag, ok := rel.Type(i)
		if !ok {
			tag = ir.TypeSigned
		}
		parts[i] = Value(tag, raw, catalog)
	}
	return compose(name, parts)
}

// Unknown renders UNK(v1,...,vn).
func Unknown(values ir.Tuple) string {
	parts := make([]string, len(values))
	for i, raw := range values {
		parts[i] = raw.String()
	}
	return compose(UnknownRelation, parts)
}

// Negated prefixes an already rendered atom.
func Negated(atom string) string {
	return "!" + atom
}

var stringConstraints = map[string]bool{
	"match":        true,
	"contains":     true,
	"not_match":    true,
	"not_contains": true,
}

// Constraint renders a constraint literal such as <(1,2).
//
// The string constraints decode their operands as symbols; the comparison
// operators print them as signed decimals.
func Constraint(op string, values ir.Tuple, symbols Symbols) string {
	tag := ir.TypeSigned
	if stringConstraints[op] {
		tag = ir.TypeSymbol
	}
	parts := make([]string, len(values))
	for i, raw := range values {
		parts[i] = Value(tag, raw, symbols)
	}
	return compose(op, parts)
}

func compose(name string, parts []string) string {
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteByte('(')
	sb.WriteString(strings.Join(parts, ","))
	sb.WriteByte(')')
	return sb.String()
}
