package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/provex/internal/ir"
)

func TestWorklist_FIFO(t *testing.T) {
	w := newWorklist(0)

	w.Push(ir.Fact{Relation: "a"})
	w.Push(ir.Fact{Relation: "b"})
	w.Push(ir.Fact{Relation: "c"})
	assert.Equal(t, 3, w.Len())

	for _, want := range []string{"a", "b", "c"} {
		f, ok := w.Pop()
		require.True(t, ok)
		assert.Equal(t, want, f.Relation)
	}

	_, ok := w.Pop()
	assert.False(t, ok, "pop from empty worklist should return false")
	assert.Equal(t, 0, w.Len())
}

func TestWorklist_InterleavedPushPop(t *testing.T) {
	w := newWorklist(0)
	w.Push(ir.Fact{Relation: "a"})

	f, ok := w.Pop()
	require.True(t, ok)
	assert.Equal(t, "a", f.Relation)

	w.Push(ir.Fact{Relation: "b"})
	w.Push(ir.Fact{Relation: "c"})
	f, _ = w.Pop()
	assert.Equal(t, "b", f.Relation)
	assert.Equal(t, 1, w.Len())
}

func TestProvenSet_InsertOnce(t *testing.T) {
	p := newProvenSet()

	assert.True(t, p.Insert("path", ir.Tuple{1, 2}))
	assert.False(t, p.Insert("path", ir.Tuple{1, 2}), "second insert reports a duplicate")

	// Same key, different relation.
	assert.True(t, p.Insert("edge", ir.Tuple{1, 2}))
	// Keys are compared by value, not by encoding ambiguity.
	assert.True(t, p.Insert("path", ir.Tuple{12}))

	assert.Equal(t, 3, p.Len())
	assert.False(t, p.Insert("edge", ir.Tuple{1, 2}))
	assert.Equal(t, 3, p.Len(), "a duplicate does not grow the set")
}

func TestCursor_TakeSkip(t *testing.T) {
	c := newCursor(ir.Tuple{1, 2, 3, 4, 5})

	got, err := c.Take(2)
	require.NoError(t, err)
	assert.Equal(t, ir.Tuple{1, 2}, got)
	assert.Equal(t, 3, c.Remaining())

	require.NoError(t, c.Skip(1))
	assert.Equal(t, 3, c.Offset())

	got, err = c.Take(2)
	require.NoError(t, err)
	assert.Equal(t, ir.Tuple{4, 5}, got)
	assert.Equal(t, 0, c.Remaining())

	got, err = c.Take(0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCursor_ShortRead(t *testing.T) {
	c := newCursor(ir.Tuple{1, 2, 3})

	_, err := c.Take(4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only 3 remain")
	assert.Equal(t, 0, c.Offset(), "failed take does not advance")

	require.Error(t, c.Skip(4))
	require.Error(t, c.Skip(-1))
}

func TestCursor_TakeDoesNotAliasRest(t *testing.T) {
	c := newCursor(ir.Tuple{1, 2, 3})
	got, err := c.Take(1)
	require.NoError(t, err)

	got = append(got, 99)
	rest, err := c.Take(2)
	require.NoError(t, err)
	assert.Equal(t, ir.Tuple{2, 3}, rest, "appending to a taken slice must not clobber unread words")
	assert.Equal(t, ir.Tuple{1, 99}, got)
}

func TestQuotaEnforcer(t *testing.T) {
	q := newQuotaEnforcer(2)
	require.NoError(t, q.Check())
	require.NoError(t, q.Check())

	err := q.Check()
	require.Error(t, err)
	assert.True(t, IsQuotaError(err))

	var qe *QuotaError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, 3, qe.Expansions)
	assert.Equal(t, 2, qe.Limit)
}

func TestQuotaEnforcer_Unlimited(t *testing.T) {
	q := newQuotaEnforcer(0)
	for i := 0; i < 1000; i++ {
		require.NoError(t, q.Check())
	}
}

func TestSequence(t *testing.T) {
	var s sequence
	assert.Equal(t, int64(1), s.Next())
	assert.Equal(t, int64(2), s.Next())
	assert.Equal(t, int64(3), s.Next())
}

func TestParseCitation(t *testing.T) {
	c, err := ParseCitation("")
	require.NoError(t, err)
	assert.Equal(t, CiteRelation, c)

	c, err = ParseCitation("rule")
	require.NoError(t, err)
	assert.Equal(t, CiteRule, c)
	assert.Equal(t, "rule", c.String())

	_, err = ParseCitation("text")
	assert.Error(t, err)
}

func TestContractError_Format(t *testing.T) {
	err := newContractError(ErrCodeMissingInfo, "path", 3, "no info record describes this rule")
	assert.Equal(t, "MISSING_INFO: no info record describes this rule (relation=path, rule=3)", err.Error())
	assert.True(t, IsContractError(err))
	assert.Equal(t, ErrCodeMissingInfo, ContractCode(err))

	plain := &ContractError{Code: ErrCodeInfoMalformed, Message: "bad"}
	assert.Equal(t, "INFO_MALFORMED: bad", plain.Error())
	assert.Equal(t, ContractErrorCode(""), ContractCode(assert.AnError))
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{newContractError(ErrCodeShortRead, "p", 1, "short"), "SHORT_READ"},
		{fmt.Errorf("wrapped: %w", &QuotaError{Expansions: 2, Limit: 1}), CodeQuotaExceeded},
		{&SinkError{Seq: 1, Err: assert.AnError}, CodeSinkFailed},
		{context.Canceled, CodeCancelled},
		{fmt.Errorf("subproof: %w", context.DeadlineExceeded), CodeCancelled},
		{assert.AnError, CodeRunFailed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorCode(tt.err), "%v", tt.err)
	}
}
