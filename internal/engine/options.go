package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/provex/internal/telemetry"
)

// Citation selects what follows the '#' at the end of a proof line.
type Citation int

const (
	// CiteRelation cites the info relation that describes the rule
	// (for example "path.@info.2").
	CiteRelation Citation = iota
	// CiteRule cites the rule's source text.
	CiteRule
)

// ParseCitation maps a flag value to a Citation.
func ParseCitation(s string) (Citation, error) {
	switch s {
	case "", "relation":
		return CiteRelation, nil
	case "rule":
		return CiteRule, nil
	default:
		return CiteRelation, fmt.Errorf("unknown citation %q (expected relation or rule)", s)
	}
}

func (c Citation) String() string {
	if c == CiteRule {
		return "rule"
	}
	return "relation"
}

type options struct {
	citation      Citation
	maxExpansions int
	logger        *zap.Logger
	metrics       *telemetry.Metrics
}

// Option configures an Explorer.
type Option func(*options)

// WithCitation selects the citation written for each proof.
//
// Default: CiteRelation.
func WithCitation(c Citation) Option {
	return func(o *options) {
		o.citation = c
	}
}

// WithMaxExpansions caps the number of derived tuples a run may expand.
//
// Default: 0 (unlimited). Use WithMaxExpansions(10) when testing quota
// enforcement.
func WithMaxExpansions(n int) Option {
	return func(o *options) {
		o.maxExpansions = n
	}
}

// WithLogger sets the logger that receives the per-step exploration trace
// at debug level and diagnostics at warn level.
//
// Default: zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records run counters. A nil Metrics disables collection.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
