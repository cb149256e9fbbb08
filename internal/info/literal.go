package info

import (
	"fmt"
	"strings"
)

// Constraint arity is fixed by the evaluator regardless of operand types:
// two operands plus the two auxiliary fields.
const (
	ConstraintArity    = 4
	ConstraintAuxArity = 2
)

var constraintSymbols = map[string]bool{
	"=":            true,
	"!=":           true,
	"<":            true,
	"<=":           true,
	">=":           true,
	">":            true,
	"match":        true,
	"contains":     true,
	"not_match":    true,
	"not_contains": true,
}

// IsConstraint reports whether a predicate is a primitive constraint symbol.
func IsConstraint(predicate string) bool {
	return constraintSymbols[predicate]
}

// Literal is a parsed body-literal descriptor such as "!edge,y,z".
type Literal struct {
	// Descriptor is the raw text the evaluator stored.
	Descriptor string
	// Predicate is the first comma-separated token, negation mark included.
	Predicate string
	// Relation is the predicate without a leading negation mark. For
	// constraints it is the constraint symbol.
	Relation string
	// Args are the remaining tokens.
	Args       []string
	Negated    bool
	Constraint bool
}

// ParseLiteral splits a descriptor. An empty predicate is malformed.
func ParseLiteral(descriptor string) (Literal, error) {
	tokens := strings.Split(descriptor, ",")
	pred := tokens[0]
	if pred == "" {
		return Literal{}, fmt.Errorf("descriptor %q has an empty predicate", descriptor)
	}

	lit := Literal{
		Descriptor: descriptor,
		Predicate:  pred,
		Relation:   pred,
		Args:       tokens[1:],
		Constraint: IsConstraint(pred),
	}
	if strings.HasPrefix(pred, "!") && pred != "!=" {
		lit.Negated = true
		lit.Relation = pred[1:]
		if lit.Relation == "" {
			return Literal{}, fmt.Errorf("descriptor %q negates an empty predicate", descriptor)
		}
	}
	return lit, nil
}

// Expandable reports whether the literal names a derivation to explore.
// Negated atoms hold by absence and constraints by primitive truth.
func (l Literal) Expandable() bool {
	return !l.Negated && !l.Constraint
}
