package ir

import (
	"fmt"
	"math"
	"strconv"
)

// Domain is the evaluator's raw value word.
//
// Every attribute of every relation is stored as one 32-bit word; its meaning
// (signed, unsigned, float, symbol id, record id) is decided by the attribute's
// TypeTag. Conversions between interpretations are bit casts, never numeric
// conversions.
type Domain int32

// TypeTag is the single-character attribute type code carried by relation
// signatures.
type TypeTag byte

const (
	TypeSigned   TypeTag = 'i'
	TypeUnsigned TypeTag = 'u'
	TypeFloat    TypeTag = 'f'
	TypeSymbol   TypeTag = 's'
	TypeRecord   TypeTag = 'r'
)

// ValidTypeTags lists the tags the decoder knows how to render. Stored
// signatures carrying any other byte are rejected on load.
var ValidTypeTags = map[TypeTag]bool{
	TypeSigned:   true,
	TypeUnsigned: true,
	TypeFloat:    true,
	TypeSymbol:   true,
	TypeRecord:   true,
}

// ParseTypeTag accepts either the single-character code ("i") or the long
// name used in snapshot files ("number", "unsigned", "float", "symbol",
// "record").
func ParseTypeTag(s string) (TypeTag, error) {
	switch s {
	case "i", "number", "signed":
		return TypeSigned, nil
	case "u", "unsigned":
		return TypeUnsigned, nil
	case "f", "float":
		return TypeFloat, nil
	case "s", "symbol":
		return TypeSymbol, nil
	case "r", "record":
		return TypeRecord, nil
	default:
		return 0, fmt.Errorf("unknown type tag %q", s)
	}
}

func (t TypeTag) String() string {
	return string(rune(t))
}

// Value is a sealed interface over the interpretations of a Domain word.
// Only Signed, Unsigned, Float, Symbol and Record implement it.
type Value interface {
	domainValue()
}

// Signed is a two's-complement integer attribute.
type Signed int32

func (Signed) domainValue() {}

// Unsigned is an unsigned integer attribute.
type Unsigned uint32

func (Unsigned) domainValue() {}

// Float is an IEEE-754 single precision attribute.
type Float float32

func (Float) domainValue() {}

// Symbol is an interned-string id; the text lives in the evaluator's symbol
// table.
type Symbol int32

func (Symbol) domainValue() {}

// Record is an opaque record id. Records are never unpacked.
type Record int32

func (Record) domainValue() {}

// Interpret reads a raw word under a type tag.
//
// Unknown tags fall back to Signed so that callers always get a Value.
func Interpret(tag TypeTag, raw Domain) Value {
	switch tag {
	case TypeUnsigned:
		return Unsigned(uint32(raw))
	case TypeFloat:
		return Float(math.Float32frombits(uint32(raw)))
	case TypeSymbol:
		return Symbol(raw)
	case TypeRecord:
		return Record(raw)
	default:
		return Signed(raw)
	}
}

// FromUnsigned bit-casts an unsigned integer into a raw word. Target lists
// spell every key field this way regardless of its declared type.
func FromUnsigned(u uint32) Domain {
	return Domain(u)
}

// FromFloat bit-casts a float into a raw word.
func FromFloat(f float32) Domain {
	return Domain(math.Float32bits(f))
}

// String renders the raw word as a signed decimal.
func (d Domain) String() string {
	return strconv.FormatInt(int64(d), 10)
}
