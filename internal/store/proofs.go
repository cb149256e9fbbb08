package store

import (
	"context"
	"fmt"

	"github.com/roach88/provex/internal/ir"
)

// ProofWriter appends a run's proof records as they are emitted. Each Emit
// is its own committed statement, so a crash leaves a readable prefix.
type ProofWriter struct {
	s     *Store
	ctx   context.Context
	runID string
	n     int64
}

// ProofSink returns a sink writing to run runID.
func (s *Store) ProofSink(ctx context.Context, runID string) *ProofWriter {
	return &ProofWriter{s: s, ctx: ctx, runID: runID}
}

// Emit inserts one proof row. Records without a Seq get the next position.
func (w *ProofWriter) Emit(rec ir.ProofRecord) error {
	seq := rec.Seq
	if seq == 0 {
		seq = w.n + 1
	}
	body, err := marshalBody(rec.Body)
	if err != nil {
		return err
	}
	if _, err := w.s.db.ExecContext(w.ctx, `
		INSERT INTO proofs (run_id, seq, relation, rule, level, head, body, citation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, w.runID, seq, rec.Relation, rec.Rule, rec.Level, rec.Head, body, rec.Citation); err != nil {
		return fmt.Errorf("write proof %d of run %s: %w", seq, w.runID, err)
	}
	w.n = seq
	return nil
}

// Count returns the number of records written.
func (w *ProofWriter) Count() int64 {
	return w.n
}

// ReadProofs returns a run's proof records in emission order.
// Returns an empty slice (not nil) if the run has none.
func (s *Store) ReadProofs(ctx context.Context, runID string) ([]ir.ProofRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, relation, rule, level, head, body, citation
		FROM proofs
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query proofs: %w", err)
	}
	defer rows.Close()

	records := []ir.ProofRecord{}
	for rows.Next() {
		var rec ir.ProofRecord
		var body string
		if err := rows.Scan(&rec.Seq, &rec.Relation, &rec.Rule, &rec.Level,
			&rec.Head, &body, &rec.Citation); err != nil {
			return nil, fmt.Errorf("scan proof: %w", err)
		}
		if rec.Body, err = unmarshalBody(body); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate proofs: %w", err)
	}
	return records, nil
}
