package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/provex/internal/ir"
	"github.com/roach88/provex/internal/sink"
)

// AssertionError is returned when an assertion fails.
// It includes the artifact so failures can be read without re-running.
type AssertionError struct {
	Type     string           // Assertion type for categorization
	Expected string           // Human-readable expected outcome
	Actual   string           // Human-readable actual outcome
	Records  []ir.ProofRecord // Every proof, for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nArtifact:\n")
	for i, rec := range e.Records {
		fmt.Fprintf(&buf, "  [%d] %s", i+1, sink.Format(rec))
	}

	return buf.String()
}

func assertProofContains(result *Result, a Assertion) error {
	var near []*ir.ProofRecord
	for i := range result.Records {
		rec := &result.Records[i]
		if rec.Head != a.Head {
			continue
		}
		if a.Body != nil && !equalStrings(rec.Body, a.Body) {
			near = append(near, rec)
			continue
		}
		if a.Citation != "" && rec.Citation != a.Citation {
			near = append(near, rec)
			continue
		}
		return nil
	}

	actual := "no proof of " + a.Head
	if len(near) > 0 {
		parts := make([]string, len(near))
		for i, rec := range near {
			parts[i] = strings.TrimSuffix(sink.Format(*rec), "\n")
		}
		actual = "proofs of " + a.Head + " differ: " + strings.Join(parts, " | ")
	}
	return &AssertionError{
		Type:     AssertProofContains,
		Expected: describeProof(a),
		Actual:   actual,
		Records:  result.Records,
	}
}

func describeProof(a Assertion) string {
	s := "proof of " + a.Head
	if a.Body != nil {
		s += " from [" + strings.Join(a.Body, ", ") + "]"
	}
	if a.Citation != "" {
		s += " citing " + a.Citation
	}
	return s
}

// assertProofOrder checks that the first proofs of the listed heads appear
// in the given order. Other proofs may be interleaved.
func assertProofOrder(result *Result, a Assertion) error {
	if len(a.Heads) == 0 {
		return fmt.Errorf("proof_order assertion requires heads")
	}

	first := make(map[string]int, len(result.Records))
	for i, rec := range result.Records {
		if _, seen := first[rec.Head]; !seen {
			first[rec.Head] = i
		}
	}

	prev := -1
	for _, head := range a.Heads {
		pos, ok := first[head]
		if !ok {
			return &AssertionError{
				Type:     AssertProofOrder,
				Expected: strings.Join(a.Heads, " < "),
				Actual:   "no proof of " + head,
				Records:  result.Records,
			}
		}
		if pos <= prev {
			return &AssertionError{
				Type:     AssertProofOrder,
				Expected: strings.Join(a.Heads, " < "),
				Actual:   fmt.Sprintf("%s first proved at position %d, before its predecessor", head, pos+1),
				Records:  result.Records,
			}
		}
		prev = pos
	}
	return nil
}

func assertProofCount(result *Result, a Assertion) error {
	n := 0
	for _, rec := range result.Records {
		if a.Head == "" || rec.Head == a.Head {
			n++
		}
	}
	if n == a.Count {
		return nil
	}

	what := "proofs"
	if a.Head != "" {
		what = "proofs of " + a.Head
	}
	return &AssertionError{
		Type:     AssertProofCount,
		Expected: fmt.Sprintf("%d %s", a.Count, what),
		Actual:   fmt.Sprintf("%d %s", n, what),
		Records:  result.Records,
	}
}

func assertNotProved(result *Result, a Assertion) error {
	for i, rec := range result.Records {
		if rec.Head == a.Head {
			return &AssertionError{
				Type:     AssertNotProved,
				Expected: "no proof of " + a.Head,
				Actual:   fmt.Sprintf("proved at position %d", i+1),
				Records:  result.Records,
			}
		}
	}
	return nil
}

// assertDiagnostic checks that the report carries at least max(Count, 1)
// diagnostics with the code, restricted to Relation when given.
func assertDiagnostic(result *Result, a Assertion) error {
	want := a.Count
	if want == 0 {
		want = 1
	}

	n := 0
	var seen []string
	for _, d := range result.Report.Diagnostics {
		seen = append(seen, d.String())
		if string(d.Code) != a.Code {
			continue
		}
		if a.Relation != "" && d.Relation != a.Relation {
			continue
		}
		n++
	}
	if n >= want {
		return nil
	}

	expected := fmt.Sprintf("at least %d %s diagnostic(s)", want, a.Code)
	if a.Relation != "" {
		expected += " for " + a.Relation
	}
	actual := "none"
	if len(seen) > 0 {
		actual = strings.Join(seen, "; ")
	}
	return &AssertionError{
		Type:     AssertDiagnostic,
		Expected: expected,
		Actual:   actual,
		Records:  result.Records,
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertProofContains:
			err = assertProofContains(result, assertion)
		case AssertProofOrder:
			err = assertProofOrder(result, assertion)
		case AssertProofCount:
			err = assertProofCount(result, assertion)
		case AssertNotProved:
			err = assertNotProved(result, assertion)
		case AssertDiagnostic:
			err = assertDiagnostic(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
