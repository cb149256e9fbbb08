package engine

import (
	"errors"
	"fmt"
)

// quotaEnforcer caps the number of tuples a run may expand.
//
// The proven set already guarantees termination; the quota bounds the
// work done on very large programs. A limit of 0 disables it.
type quotaEnforcer struct {
	limit   int
	current int
}

func newQuotaEnforcer(limit int) *quotaEnforcer {
	return &quotaEnforcer{limit: limit}
}

// Check counts one expansion and fails once the limit is passed.
func (q *quotaEnforcer) Check() error {
	q.current++
	if q.limit > 0 && q.current > q.limit {
		return &QuotaError{Expansions: q.current, Limit: q.limit}
	}
	return nil
}

// QuotaError is returned when a run would expand more tuples than its
// configured limit. Records emitted before the limit stay in the sink.
type QuotaError struct {
	Expansions int // Expansion that tripped the limit
	Limit      int // Maximum allowed expansions
}

// Error implements the error interface.
func (e *QuotaError) Error() string {
	return fmt.Sprintf("QUOTA_EXCEEDED: expansion %d exceeds limit %d", e.Expansions, e.Limit)
}

// IsQuotaError returns true if the error is a QuotaError.
// Uses errors.As to handle wrapped errors.
func IsQuotaError(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}
