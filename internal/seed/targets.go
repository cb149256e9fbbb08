// Package seed selects the initial worklist of an explanation run.
//
// Targeted mode reads a target list: one line per seed, whitespace separated,
// the relation name followed by its primary-key words written as unsigned
// 32-bit integers. Signed spellings such as -1 are rejected as malformed
// rather than wrapped to the word's bit pattern, so a key holding a negative
// signed value must be written as its unsigned equivalent (4294967295).
// Default mode seeds every tuple of every output relation.
package seed

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/roach88/provex/internal/ir"
)

// TargetsFile is the conventional target-list name inside a provenance
// directory.
const TargetsFile = "targets.list"

// Target is one parsed target-list line.
type Target struct {
	Relation string
	Key      ir.Tuple
	// Line is the 1-based line number in the source.
	Line int
}

// List is the result of reading a target list.
type List struct {
	Targets []Target
	// Diagnostics holds one entry per malformed line.
	Diagnostics []ir.Diagnostic
	// Targeted is false when the list selects default mode.
	Targeted bool
}

// ParseTargets reads a target list. The list is targeted as soon as it has
// one non-blank line, even if every such line is malformed.
func ParseTargets(r io.Reader) (List, error) {
	var list List
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		list.Targeted = true

		key := make(ir.Tuple, 0, len(fields)-1)
		var bad string
		for _, tok := range fields[1:] {
			u, err := strconv.ParseUint(tok, 10, 32)
			if err != nil {
				bad = tok
				break
			}
			key = append(key, ir.FromUnsigned(uint32(u)))
		}
		if bad != "" {
			list.Diagnostics = append(list.Diagnostics, ir.Diagnostic{
				Code:     ir.DiagTargetMalformed,
				Message:  fmt.Sprintf("line %d: %q is not an unsigned 32-bit integer", lineNo, bad),
				Relation: fields[0],
				Detail:   sc.Text(),
			})
			continue
		}
		list.Targets = append(list.Targets, Target{Relation: fields[0], Key: key, Line: lineNo})
	}
	if err := sc.Err(); err != nil {
		return List{}, fmt.Errorf("read target list: %w", err)
	}
	return list, nil
}

// LoadTargets reads the target list at path.
//
// A missing, unreadable or blank file selects default mode; the returned
// error is only informational in that case and the list is still usable.
func LoadTargets(path string) (List, error) {
	if path == "" {
		return List{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return List{}, nil
		}
		return List{}, fmt.Errorf("open target list: %w", err)
	}
	defer f.Close()

	list, err := ParseTargets(f)
	if err != nil {
		return List{}, err
	}
	return list, nil
}
