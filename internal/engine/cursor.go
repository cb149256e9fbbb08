package engine

import (
	"fmt"

	"github.com/roach88/provex/internal/ir"
)

// cursor reads a subproof answer front to back. Reads past the end fail
// instead of returning a short slice.
type cursor struct {
	values ir.Tuple
	pos    int
}

func newCursor(values ir.Tuple) *cursor {
	return &cursor{values: values}
}

// Take returns the next n words.
func (c *cursor) Take(n int) (ir.Tuple, error) {
	if n < 0 || n > c.Remaining() {
		return nil, fmt.Errorf("take %d words at offset %d: only %d remain", n, c.pos, c.Remaining())
	}
	out := c.values[c.pos : c.pos+n : c.pos+n]
	c.pos += n
	return out, nil
}

// Skip discards the next n words.
func (c *cursor) Skip(n int) error {
	if n < 0 || n > c.Remaining() {
		return fmt.Errorf("skip %d words at offset %d: only %d remain", n, c.pos, c.Remaining())
	}
	c.pos += n
	return nil
}

// Remaining returns the number of unread words.
func (c *cursor) Remaining() int {
	return len(c.values) - c.pos
}

// Offset returns the number of words read so far.
func (c *cursor) Offset() int {
	return c.pos
}
