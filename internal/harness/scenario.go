package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario: a program directory, an optional
// target list and the assertions the resulting proofs must satisfy.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name" validate:"required"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" validate:"required"`

	// Program is the directory of CUE files describing the evaluated
	// program. Relative paths are resolved against the scenario file.
	Program string `yaml:"program" validate:"required"`

	// Targets is the target list, inline. Empty selects default mode.
	Targets string `yaml:"targets,omitempty"`

	// Cite is the citation mode: "relation" (default) or "rule".
	Cite string `yaml:"cite,omitempty" validate:"omitempty,oneof=relation rule"`

	// MaxExpansions caps the run; 0 is unlimited.
	MaxExpansions int `yaml:"max_expansions,omitempty" validate:"gte=0"`

	// ExpectError is the error code the run must fail with. Empty means
	// the run must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Assertions validate the proofs and the run report.
	Assertions []Assertion `yaml:"assertions" validate:"required,min=1,dive"`
}

// Assertion validates the proof artifact or the run report.
type Assertion struct {
	// Type specifies the assertion type:
	// - "proof_contains": a proof of Head exists, with Body when given
	// - "proof_order": the first proofs of Heads appear in this order
	// - "proof_count": exactly Count proofs, of Head when given
	// - "not_proved": no proof has Head as its head
	// - "diagnostic": the report carries a diagnostic with Code
	Type string `yaml:"type" validate:"required,oneof=proof_contains proof_order proof_count not_proved diagnostic"`

	// Head is a rendered head tuple, e.g. "path(1,3)".
	Head string `yaml:"head,omitempty" validate:"required_if=Type proof_contains,required_if=Type not_proved"`

	// Body is the exact rendered body (used by proof_contains).
	Body []string `yaml:"body,omitempty"`

	// Citation is the expected citation (used by proof_contains).
	Citation string `yaml:"citation,omitempty"`

	// Heads is the expected head order (used by proof_order).
	Heads []string `yaml:"heads,omitempty" validate:"required_if=Type proof_order"`

	// Count is the expected number of proofs (used by proof_count) or the
	// minimum number of matching diagnostics (used by diagnostic).
	Count int `yaml:"count,omitempty" validate:"gte=0"`

	// Code is the diagnostic code (used by diagnostic).
	Code string `yaml:"code,omitempty" validate:"required_if=Type diagnostic"`

	// Relation narrows a diagnostic assertion to one relation.
	Relation string `yaml:"relation,omitempty"`
}

// Assertion type constants.
const (
	AssertProofContains = "proof_contains"
	AssertProofOrder    = "proof_order"
	AssertProofCount    = "proof_count"
	AssertNotProved     = "not_proved"
	AssertDiagnostic    = "diagnostic"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their YAML names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// The program path is resolved against the scenario file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Program != "" && !filepath.IsAbs(scenario.Program) {
		scenario.Program = filepath.Join(filepath.Dir(path), scenario.Program)
	}
	return scenario, nil
}

// ParseScenario decodes and validates scenario YAML. Program paths are left
// as written.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks struct tags and reports the first violation by
// its YAML path, e.g. "assertions[1].head is required".
func validateScenario(s *Scenario) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Errorf("%s is required", field)
	case "min":
		return fmt.Errorf("%s must have at least %s entries", field, fe.Param())
	case "oneof":
		return fmt.Errorf("%s must be one of [%s], got %q", field, fe.Param(), fmt.Sprint(fe.Value()))
	case "gte":
		return fmt.Errorf("%s must be >= %s", field, fe.Param())
	default:
		return fmt.Errorf("%s failed %s validation", field, fe.Tag())
	}
}
