package ir

import (
	"strconv"
	"strings"
)

// AuxArity is the number of provenance fields the evaluator appends to every
// instrumented relation: [rule number, level number].
const AuxArity = 2

// Tuple is one row of a relation, auxiliary fields included.
type Tuple []Domain

// Split separates the primary key from the auxiliary suffix.
// primaryArity must not exceed len(t).
func (t Tuple) Split(primaryArity int) (key Tuple, aux Tuple) {
	return t[:primaryArity:primaryArity], t[primaryArity:]
}

// Encode produces a stable map key for the tuple ("1,2,3").
func (t Tuple) Encode() string {
	var sb strings.Builder
	for i, d := range t {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatInt(int64(d), 10))
	}
	return sb.String()
}

// Fact names a tuple of a relation. It is the unit of work the explorer
// consumes: relation name plus the full tuple including rule/level fields.
type Fact struct {
	Relation string
	Tuple    Tuple
}

// ProofRecord is one rendered rule application.
//
// Head, Body and Citation are what the artifact prints; Relation, Rule and
// Level identify the head tuple for the run store. Seq is the 1-based
// emission position within the run.
type ProofRecord struct {
	Seq      int64    `json:"seq"`
	Head     string   `json:"head"`
	Body     []string `json:"body"`
	Citation string   `json:"citation"`
	Relation string   `json:"relation"`
	Rule     int32    `json:"rule"`
	Level    int32    `json:"level"`
}

// DiagnosticCode categorizes non-fatal problems found during a run.
type DiagnosticCode string

const (
	// DiagTargetMalformed: a target-list line could not be parsed.
	DiagTargetMalformed DiagnosticCode = "TARGET_MALFORMED"

	// DiagTargetUnknownRelation: a target names a relation the program lacks.
	DiagTargetUnknownRelation DiagnosticCode = "TARGET_UNKNOWN_RELATION"

	// DiagTargetArity: a target key has the wrong number of fields.
	DiagTargetArity DiagnosticCode = "TARGET_ARITY_MISMATCH"

	// DiagTargetNoMatch: a well-formed target matched no live tuple.
	DiagTargetNoMatch DiagnosticCode = "TARGET_NO_MATCH"

	// DiagUnknownBodyRelation: a body literal names an unknown relation.
	DiagUnknownBodyRelation DiagnosticCode = "UNKNOWN_BODY_RELATION"

	// DiagEmptySubproof: the oracle returned no grounding for a derived tuple.
	DiagEmptySubproof DiagnosticCode = "EMPTY_SUBPROOF"
)

// Diagnostic is an accumulated non-fatal problem. Diagnostics never stop
// exploration of unrelated worklist branches.
type Diagnostic struct {
	Code     DiagnosticCode `json:"code"`
	Message  string         `json:"message"`
	Relation string         `json:"relation,omitempty"`
	Detail   string         `json:"detail,omitempty"`
}

func (d Diagnostic) String() string {
	if d.Relation != "" {
		return string(d.Code) + ": " + d.Message + " (relation=" + d.Relation + ")"
	}
	return string(d.Code) + ": " + d.Message
}
