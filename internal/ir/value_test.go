package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	var _ Value = Signed(-1)
	var _ Value = Unsigned(1)
	var _ Value = Float(1.5)
	var _ Value = Symbol(3)
	var _ Value = Record(4)
}

func TestInterpret(t *testing.T) {
	tests := []struct {
		name string
		tag  TypeTag
		raw  Domain
		want Value
	}{
		{"signed", TypeSigned, -7, Signed(-7)},
		{"unsigned reads bits", TypeUnsigned, -1, Unsigned(math.MaxUint32)},
		{"float reads bits", TypeFloat, FromFloat(2.5), Float(2.5)},
		{"symbol", TypeSymbol, 3, Symbol(3)},
		{"record", TypeRecord, 9, Record(9)},
		{"unknown tag falls back to signed", TypeTag('+'), 5, Signed(5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Interpret(tt.tag, tt.raw))
		})
	}
}

func TestFromUnsigned(t *testing.T) {
	assert.Equal(t, Domain(-1), FromUnsigned(math.MaxUint32))
	assert.Equal(t, Domain(42), FromUnsigned(42))
}

func TestParseTypeTag(t *testing.T) {
	for _, s := range []string{"i", "number", "signed"} {
		tag, err := ParseTypeTag(s)
		require.NoError(t, err)
		assert.Equal(t, TypeSigned, tag)
	}

	tag, err := ParseTypeTag("symbol")
	require.NoError(t, err)
	assert.Equal(t, TypeSymbol, tag)

	_, err = ParseTypeTag("string")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown type tag")
}

func TestTupleSplit(t *testing.T) {
	tup := Tuple{1, 2, 7, 3}
	key, aux := tup.Split(2)

	assert.Equal(t, Tuple{1, 2}, key)
	assert.Equal(t, Tuple{7, 3}, aux)

	// Appending to the key must not clobber the aux fields
	_ = append(key, 99)
	assert.Equal(t, Tuple{1, 2, 7, 3}, tup)
}

func TestTupleEncode(t *testing.T) {
	assert.Equal(t, "1,-2,3", Tuple{1, -2, 3}.Encode())
	assert.Equal(t, "", Tuple{}.Encode())
}
