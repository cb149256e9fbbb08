package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/provex/internal/engine"
	"github.com/roach88/provex/internal/ir"
)

// RunStatus is the lifecycle state of a run row.
type RunStatus string

const (
	RunRunning  RunStatus = "running"
	RunComplete RunStatus = "complete"
	RunFailed   RunStatus = "failed"
)

// RunParams describes a run about to start.
type RunParams struct {
	Program  string // program digest; must be imported
	Citation string
	Targeted bool
}

// Run is a stored run row.
type Run struct {
	ID             string         `json:"id"`
	Seq            int64          `json:"seq"`
	Program        string         `json:"program"`
	Citation       string         `json:"citation"`
	Targeted       bool           `json:"targeted"`
	EngineVersion  string         `json:"engine_version"`
	Status         RunStatus      `json:"status"`
	ArtifactDigest string         `json:"artifact_digest,omitempty"`
	Report         *engine.Report `json:"report,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// RunOutcome is what FinishRun records.
type RunOutcome struct {
	ArtifactDigest string
	Report         *engine.Report
	Err            error
}

// BeginRun inserts a running row with a fresh id and the next run seq.
func (s *Store) BeginRun(ctx context.Context, p RunParams) (Run, error) {
	id := s.ids.Generate()
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, seq, program, citation, targeted, engine_version, status)
		SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?, ?, ? FROM runs
	`, id, p.Program, p.Citation, p.Targeted, ir.EngineVersion, string(RunRunning)); err != nil {
		return Run{}, fmt.Errorf("begin run: %w", err)
	}
	return s.ReadRun(ctx, id)
}

// FinishRun records the outcome of a running run. A nil Err marks it
// complete, anything else failed. Finishing a run twice is an error.
func (s *Store) FinishRun(ctx context.Context, id string, out RunOutcome) error {
	report, err := marshalReport(out.Report)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	status := RunComplete
	var msg string
	if out.Err != nil {
		status = RunFailed
		msg = out.Err.Error()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, artifact_digest = ?, report = ?, error = ?
		WHERE id = ? AND status = ?
	`, string(status), out.ArtifactDigest, report, msg, id, string(RunRunning))
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: no running run with that id", id)
	}
	return nil
}

// ReadRun retrieves a single run by id.
// Returns an error wrapping sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, program, citation, targeted, engine_version, status, artifact_digest, report, error
		FROM runs WHERE id = ?
	`, id)
	r, err := scanRun(row)
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return r, nil
}

// ListRuns returns every run in start order.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, program, citation, targeted, engine_version, status, artifact_digest, report, error
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

var (
	_ rowScanner = (*sql.Row)(nil)
	_ rowScanner = (*sql.Rows)(nil)
)

func scanRun(row rowScanner) (Run, error) {
	var r Run
	var status, report string
	if err := row.Scan(&r.ID, &r.Seq, &r.Program, &r.Citation, &r.Targeted,
		&r.EngineVersion, &status, &r.ArtifactDigest, &report, &r.Error); err != nil {
		return Run{}, err
	}
	r.Status = RunStatus(status)
	rep, err := unmarshalReport(report)
	if err != nil {
		return Run{}, err
	}
	r.Report = rep
	return r, nil
}
