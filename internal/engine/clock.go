package engine

// sequence stamps proof records with their 1-based emission position.
// It is owned by one run.
type sequence struct {
	n int64
}

// Next returns the next position.
func (s *sequence) Next() int64 {
	s.n++
	return s.n
}
