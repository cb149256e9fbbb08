package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/provex/internal/ir"
	"github.com/roach88/provex/internal/program"
)

// ProgramInfo describes an imported snapshot.
type ProgramInfo struct {
	Digest        string `json:"digest"`
	Seq           int64  `json:"seq"`
	Name          string `json:"name"`
	FormatVersion string `json:"format_version"`
}

// ImportSnapshot stores a snapshot under its content digest in one
// transaction. Importing the same content twice returns the existing row
// and writes nothing.
func (s *Store) ImportSnapshot(ctx context.Context, name string, snap *program.Snapshot) (ProgramInfo, error) {
	digest, err := snap.Digest()
	if err != nil {
		return ProgramInfo{}, fmt.Errorf("import snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ProgramInfo{}, fmt.Errorf("import snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	existing, err := scanProgramRow(tx.QueryRowContext(ctx, `
		SELECT digest, seq, name, format_version FROM programs WHERE digest = ?
	`, digest))
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return ProgramInfo{}, fmt.Errorf("import snapshot: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO programs (digest, seq, name, format_version)
		SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ? FROM programs
	`, digest, name, ir.FormatVersion); err != nil {
		return ProgramInfo{}, fmt.Errorf("import snapshot: insert program: %w", err)
	}

	for id, text := range snap.Symbols() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO symbols (program, id, text) VALUES (?, ?, ?)
		`, digest, id, text); err != nil {
			return ProgramInfo{}, fmt.Errorf("import snapshot: symbol %d: %w", id, err)
		}
	}

	for _, rel := range snap.Relations() {
		if err := insertRelation(ctx, tx, digest, rel); err != nil {
			return ProgramInfo{}, fmt.Errorf("import snapshot: %w", err)
		}
	}

	for ord, e := range snap.Subproofs() {
		args, err := marshalTuple(e.Args)
		if err != nil {
			return ProgramInfo{}, fmt.Errorf("import snapshot: %w", err)
		}
		answer, err := marshalTuple(e.Values)
		if err != nil {
			return ProgramInfo{}, fmt.Errorf("import snapshot: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO subproofs (program, ord, relation, rule, args, answer)
			VALUES (?, ?, ?, ?, ?, ?)
		`, digest, ord, e.Relation, e.Rule, args, answer); err != nil {
			return ProgramInfo{}, fmt.Errorf("import snapshot: subproof %d: %w", ord, err)
		}
	}

	info, err := scanProgramRow(tx.QueryRowContext(ctx, `
		SELECT digest, seq, name, format_version FROM programs WHERE digest = ?
	`, digest))
	if err != nil {
		return ProgramInfo{}, fmt.Errorf("import snapshot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return ProgramInfo{}, fmt.Errorf("import snapshot: commit: %w", err)
	}
	return info, nil
}

func insertRelation(ctx context.Context, tx *sql.Tx, digest string, rel *program.Relation) error {
	schema := rel.Schema()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO relations (program, name, kind, types, aux) VALUES (?, ?, ?, ?, ?)
	`, digest, rel.Name(), rel.Kind().String(), typeString(schema.Types), rel.AuxArity()); err != nil {
		return fmt.Errorf("relation %s: %w", rel.Name(), err)
	}

	primary := rel.PrimaryArity()
	for ord, t := range rel.Tuples() {
		key, err := marshalTuple(t[:primary])
		if err != nil {
			return err
		}
		words, err := marshalTuple(t)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tuples (program, relation, ord, key, words) VALUES (?, ?, ?, ?, ?)
		`, digest, rel.Name(), ord, key, words); err != nil {
			return fmt.Errorf("relation %s tuple %d: %w", rel.Name(), ord, err)
		}
	}
	return nil
}

// LoadSnapshot rebuilds an imported snapshot and checks that its content
// still hashes to digest. Returns an error wrapping sql.ErrNoRows if the
// digest is unknown.
func (s *Store) LoadSnapshot(ctx context.Context, digest string) (*program.Snapshot, error) {
	if _, err := s.ReadProgram(ctx, digest); err != nil {
		return nil, err
	}

	symbols, err := s.readSymbols(ctx, digest)
	if err != nil {
		return nil, err
	}
	rels, err := s.readRelations(ctx, digest)
	if err != nil {
		return nil, err
	}
	subs, err := s.readSubproofs(ctx, digest)
	if err != nil {
		return nil, err
	}

	snap, err := program.NewSnapshot(symbols, rels, subs)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", digest, err)
	}
	got, err := snap.Digest()
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", digest, err)
	}
	if got != digest {
		return nil, fmt.Errorf("load snapshot %s: stored content hashes to %s", digest, got)
	}
	return snap, nil
}

func (s *Store) readSymbols(ctx context.Context, digest string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text FROM symbols WHERE program = ? ORDER BY id ASC
	`, digest)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var id int
		var text string
		if err := rows.Scan(&id, &text); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		if id != len(symbols) {
			return nil, fmt.Errorf("symbol table has a gap at id %d", len(symbols))
		}
		symbols = append(symbols, text)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate symbols: %w", err)
	}
	return symbols, nil
}

func (s *Store) readRelations(ctx context.Context, digest string) ([]*program.Relation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, kind, types, aux FROM relations
		WHERE program = ?
		ORDER BY name COLLATE BINARY ASC
	`, digest)
	if err != nil {
		return nil, fmt.Errorf("query relations: %w", err)
	}

	var schemas []program.Schema
	for rows.Next() {
		var name, kind, types string
		var aux int
		if err := rows.Scan(&name, &kind, &types, &aux); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan relation: %w", err)
		}
		k, err := program.ParseKind(kind)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("relation %s: %w", name, err)
		}
		tags, err := parseTypeString(types)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("relation %s: %w", name, err)
		}
		schemas = append(schemas, program.Schema{
			Name:     name,
			Types:    tags,
			AuxArity: aux,
			Kind:     k,
		})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate relations: %w", err)
	}
	rows.Close()

	// Single connection: the relation cursor must be closed before the
	// per-relation tuple queries run.
	rels := make([]*program.Relation, 0, len(schemas))
	for _, schema := range schemas {
		tuples, err := s.readTuples(ctx, digest, schema.Name, "")
		if err != nil {
			return nil, err
		}
		r, err := program.NewRelation(schema, tuples)
		if err != nil {
			return nil, err
		}
		rels = append(rels, r)
	}
	return rels, nil
}

// readTuples returns a relation's tuples in stored order, optionally
// restricted to one encoded primary key.
func (s *Store) readTuples(ctx context.Context, digest, relation, key string) ([]ir.Tuple, error) {
	query := `SELECT words FROM tuples WHERE program = ? AND relation = ?`
	args := []any{digest, relation}
	if key != "" {
		query += ` AND key = ?`
		args = append(args, key)
	}
	query += ` ORDER BY ord ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tuples: %w", err)
	}
	defer rows.Close()

	var tuples []ir.Tuple
	for rows.Next() {
		var words string
		if err := rows.Scan(&words); err != nil {
			return nil, fmt.Errorf("scan tuple: %w", err)
		}
		t, err := unmarshalTuple(words)
		if err != nil {
			return nil, fmt.Errorf("relation %s: %w", relation, err)
		}
		tuples = append(tuples, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tuples: %w", err)
	}
	return tuples, nil
}

func (s *Store) readSubproofs(ctx context.Context, digest string) ([]program.SubproofEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT relation, rule, args, answer FROM subproofs
		WHERE program = ?
		ORDER BY ord ASC
	`, digest)
	if err != nil {
		return nil, fmt.Errorf("query subproofs: %w", err)
	}
	defer rows.Close()

	var subs []program.SubproofEntry
	for rows.Next() {
		var e program.SubproofEntry
		var args, answer string
		if err := rows.Scan(&e.Relation, &e.Rule, &args, &answer); err != nil {
			return nil, fmt.Errorf("scan subproof: %w", err)
		}
		if e.Args, err = unmarshalTuple(args); err != nil {
			return nil, err
		}
		if e.Values, err = unmarshalTuple(answer); err != nil {
			return nil, err
		}
		subs = append(subs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subproofs: %w", err)
	}
	return subs, nil
}

// MatchTuples returns the tuples of relation whose primary key equals key,
// in stored order. An empty result is not an error.
func (s *Store) MatchTuples(ctx context.Context, digest, relation string, key ir.Tuple) ([]ir.Tuple, error) {
	encoded, err := marshalTuple(key)
	if err != nil {
		return nil, err
	}
	return s.readTuples(ctx, digest, relation, encoded)
}

// ReadProgram returns one imported program. Returns an error wrapping
// sql.ErrNoRows if not found.
func (s *Store) ReadProgram(ctx context.Context, digest string) (ProgramInfo, error) {
	info, err := scanProgramRow(s.db.QueryRowContext(ctx, `
		SELECT digest, seq, name, format_version FROM programs WHERE digest = ?
	`, digest))
	if err != nil {
		return ProgramInfo{}, fmt.Errorf("read program %s: %w", digest, err)
	}
	return info, nil
}

// LatestProgram returns the most recently imported program.
func (s *Store) LatestProgram(ctx context.Context) (ProgramInfo, error) {
	info, err := scanProgramRow(s.db.QueryRowContext(ctx, `
		SELECT digest, seq, name, format_version FROM programs
		ORDER BY seq DESC LIMIT 1
	`))
	if err != nil {
		return ProgramInfo{}, fmt.Errorf("latest program: %w", err)
	}
	return info, nil
}

// ListPrograms returns all imported programs in import order.
// Returns an empty slice (not nil) if none exist.
func (s *Store) ListPrograms(ctx context.Context) ([]ProgramInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT digest, seq, name, format_version FROM programs ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query programs: %w", err)
	}
	defer rows.Close()

	programs := []ProgramInfo{}
	for rows.Next() {
		var p ProgramInfo
		if err := rows.Scan(&p.Digest, &p.Seq, &p.Name, &p.FormatVersion); err != nil {
			return nil, fmt.Errorf("scan program: %w", err)
		}
		programs = append(programs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate programs: %w", err)
	}
	return programs, nil
}

func scanProgramRow(row *sql.Row) (ProgramInfo, error) {
	var p ProgramInfo
	if err := row.Scan(&p.Digest, &p.Seq, &p.Name, &p.FormatVersion); err != nil {
		return ProgramInfo{}, err
	}
	return p, nil
}
