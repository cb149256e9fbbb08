package engine

import "github.com/roach88/provex/internal/ir"

// provenSet records the primary keys already expanded in a run.
//
// Once a key is inserted it is never processed again. This is what makes
// exploration finite over cyclic or re-derivable facts: a tuple derived at
// several levels, or through several rules, is explained once, for the
// first witness that reaches the front of the worklist.
type provenSet struct {
	keys map[string]map[string]struct{} // relation -> encoded primary key
	size int
}

func newProvenSet() *provenSet {
	return &provenSet{keys: make(map[string]map[string]struct{})}
}

// Insert records key and reports whether it was new.
func (p *provenSet) Insert(relation string, key ir.Tuple) bool {
	set := p.keys[relation]
	if set == nil {
		set = make(map[string]struct{})
		p.keys[relation] = set
	}
	enc := key.Encode()
	if _, ok := set[enc]; ok {
		return false
	}
	set[enc] = struct{}{}
	p.size++
	return true
}

// Len returns the number of proven keys across all relations.
func (p *provenSet) Len() int {
	return p.size
}
