package compiler

import (
	"math"

	"cuelang.org/go/cue"

	"github.com/roach88/provex/internal/ir"
)

// symbolTable interns strings in order of first appearance.
type symbolTable struct {
	texts []string
	ids   map[string]ir.Domain
}

func newSymbolTable() *symbolTable {
	return &symbolTable{ids: make(map[string]ir.Domain)}
}

func (s *symbolTable) intern(text string) ir.Domain {
	if id, ok := s.ids[text]; ok {
		return id
	}
	id := ir.Domain(len(s.texts))
	s.texts = append(s.texts, text)
	s.ids[text] = id
	return id
}

// word converts one CUE scalar to a raw word.
//
// Strings are interned. Integers may span both the signed and the unsigned
// 32-bit range; values at or above 2^31 wrap, the same bit cast the
// evaluator uses. Floats are stored as IEEE-754 single precision bits.
// A non-negative integer read under a float tag is converted to that float.
func (c *compiler) word(v cue.Value, field string, tag ir.TypeTag) (ir.Domain, error) {
	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return 0, formatCUEError(err)
		}
		if tag != ir.TypeSymbol && tag != 0 {
			return 0, compileErrorf(field, v.Pos(), "string %q in a %s field", s, tag)
		}
		return c.symbols.intern(s), nil

	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return 0, formatCUEError(err)
		}
		if tag == ir.TypeFloat {
			return ir.FromFloat(float32(n)), nil
		}
		if n < math.MinInt32 || n > math.MaxUint32 {
			return 0, compileErrorf(field, v.Pos(), "integer %d does not fit in 32 bits", n)
		}
		if tag == ir.TypeUnsigned && n < 0 {
			return 0, compileErrorf(field, v.Pos(), "negative integer %d in an unsigned field", n)
		}
		return ir.Domain(int32(uint32(n))), nil

	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return 0, formatCUEError(err)
		}
		if tag != ir.TypeFloat && tag != 0 {
			return 0, compileErrorf(field, v.Pos(), "float %v in a %s field", f, tag)
		}
		return ir.FromFloat(float32(f)), nil

	default:
		return 0, compileErrorf(field, v.Pos(), "expected int, float or string, got %v", v.IncompleteKind())
	}
}

// words converts a CUE list of scalars. tags may be nil for untyped
// positions, or shorter than the list.
func (c *compiler) words(v cue.Value, field string, tags []ir.TypeTag) (ir.Tuple, error) {
	iter, err := v.List()
	if err != nil {
		return nil, compileErrorf(field, v.Pos(), "expected a list")
	}
	var out ir.Tuple
	for i := 0; iter.Next(); i++ {
		var tag ir.TypeTag
		if i < len(tags) {
			tag = tags[i]
		}
		w, err := c.word(iter.Value(), field, tag)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}
