// Package info indexes the evaluator's rule-metadata relations.
//
// Every relation whose name contains "@info" describes the rules of one head
// relation. Each tuple holds the rule number, one descriptor per literal
// (head first, then the body in declared order) and the rule text.
package info

import (
	"fmt"
	"strings"

	"github.com/roach88/provex/internal/ir"
	"github.com/roach88/provex/internal/program"
)

// Record describes one rule of a head relation.
type Record struct {
	Head string
	Rule int32
	// HeadLiteral is the head's own descriptor.
	HeadLiteral Literal
	// Body lists the body literals in declared order.
	Body []Literal
	// Text is the rule's source text.
	Text string
	// InfoRelation names the metadata relation the record came from.
	InfoRelation string
}

type key struct {
	head string
	rule int32
}

// Index maps (head relation, rule number) to its Record. It is read-only
// once built.
type Index struct {
	records map[key]*Record
	order   []*Record
}

// HeadName returns the head relation described by an info relation:
// the text before ".@info", or before "@info" when there is no dot.
func HeadName(infoRelation string) string {
	if i := strings.Index(infoRelation, "."+program.InfoMarker); i >= 0 {
		return infoRelation[:i]
	}
	if i := strings.Index(infoRelation, program.InfoMarker); i >= 0 {
		return infoRelation[:i]
	}
	return infoRelation
}

// Build scans every info relation of the catalog once. The first record for
// a (head, rule) pair wins.
func Build(catalog program.Catalog) (*Index, error) {
	ix := &Index{records: make(map[key]*Record)}

	for _, rel := range program.Infos(catalog) {
		if rel.Arity() < 3 {
			return nil, fmt.Errorf("info relation %s: arity %d, need rule number, head descriptor and rule text",
				rel.Name(), rel.Arity())
		}
		head := HeadName(rel.Name())

		for i, t := range rel.Tuples() {
			rec, err := parseRecord(catalog, rel.Name(), head, t)
			if err != nil {
				return nil, fmt.Errorf("info relation %s tuple %d: %w", rel.Name(), i, err)
			}
			k := key{head: head, rule: rec.Rule}
			if _, dup := ix.records[k]; dup {
				continue
			}
			ix.records[k] = rec
			ix.order = append(ix.order, rec)
		}
	}
	return ix, nil
}

func parseRecord(catalog program.Catalog, infoRel, head string, t ir.Tuple) (*Record, error) {
	rec := &Record{
		Head:         head,
		Rule:         int32(t[0]),
		InfoRelation: infoRel,
	}

	last := len(t) - 1
	text, ok := catalog.Symbol(t[last])
	if !ok {
		return nil, fmt.Errorf("rule text symbol #%d does not resolve", t[last])
	}
	rec.Text = text

	for pos := 1; pos < last; pos++ {
		desc, ok := catalog.Symbol(t[pos])
		if !ok {
			return nil, fmt.Errorf("descriptor symbol #%d at field %d does not resolve", t[pos], pos)
		}
		lit, err := ParseLiteral(desc)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", pos, err)
		}
		if pos == 1 {
			rec.HeadLiteral = lit
			continue
		}
		rec.Body = append(rec.Body, lit)
	}
	return rec, nil
}

// Lookup returns the record for a head relation and rule number.
func (ix *Index) Lookup(head string, rule int32) (*Record, bool) {
	rec, ok := ix.records[key{head: head, rule: rule}]
	return rec, ok
}

// Len returns the number of indexed rules.
func (ix *Index) Len() int {
	return len(ix.records)
}

// Records returns every record in scan order.
func (ix *Index) Records() []*Record {
	return ix.order
}
