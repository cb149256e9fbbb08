package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/provex/internal/decode"
	"github.com/roach88/provex/internal/info"
	"github.com/roach88/provex/internal/ir"
	"github.com/roach88/provex/internal/program"
)

// Explorer reconstructs proofs over one evaluated program.
//
// The info index is built once in New. An Explorer holds no per-run state;
// each Run gets its own ExplorationContext, so independent runs may proceed
// concurrently as long as the program's oracle tolerates concurrent calls.
type Explorer struct {
	prog  program.Program
	index *info.Index
	opts  options
}

// New indexes the program's rule metadata and returns an Explorer.
//
// A malformed info relation is a contract violation and is reported as a
// *ContractError with ErrCodeInfoMalformed.
func New(prog program.Program, opts ...Option) (*Explorer, error) {
	o := options{
		citation: CiteRelation,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	index, err := info.Build(prog)
	if err != nil {
		return nil, &ContractError{
			Code:    ErrCodeInfoMalformed,
			Message: err.Error(),
		}
	}
	o.logger.Debug("info index built", zap.Int("rules", index.Len()))

	return &Explorer{prog: prog, index: index, opts: o}, nil
}

// Index returns the rule-metadata index.
func (e *Explorer) Index() *info.Index {
	return e.index
}

// Run explores seeds to exhaustion, writing proof records to sink.
//
// The returned Report is never nil: on error it describes the partial run.
// Errors are a *ContractError, a *QuotaError, a *SinkError, an oracle error
// or ctx.Err(). Records already emitted are not retracted.
func (e *Explorer) Run(ctx context.Context, seeds []ir.Fact, sink Sink) (*Report, error) {
	xc := e.NewContext(sink)
	xc.Seed(seeds...)
	err := e.Explore(ctx, xc)
	return xc.Report(), err
}

// Explore drains the worklist of xc.
func (e *Explorer) Explore(ctx context.Context, xc *ExplorationContext) error {
	xc.logger.Debug("proving seed tuples", zap.Int("count", xc.worklist.Len()))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fact, ok := xc.worklist.Pop()
		if !ok {
			return nil
		}
		xc.stats.Popped++
		if err := e.step(ctx, xc, fact); err != nil {
			return err
		}
	}
}

func (e *Explorer) step(ctx context.Context, xc *ExplorationContext, fact ir.Fact) error {
	rel, ok := e.prog.Relation(fact.Relation)
	if !ok {
		return newContractError(ErrCodeUnknownHead, fact.Relation, 0,
			"worklist relation is not declared")
	}
	if rel.AuxArity() != ir.AuxArity {
		return newContractError(ErrCodeAuxArity, fact.Relation, 0,
			"relation has auxiliary arity %d, want %d", rel.AuxArity(), ir.AuxArity)
	}
	if len(fact.Tuple) != rel.Arity() {
		return newContractError(ErrCodeTupleShape, fact.Relation, 0,
			"tuple has %d fields, relation arity is %d", len(fact.Tuple), rel.Arity())
	}

	key, aux := fact.Tuple.Split(rel.PrimaryArity())
	rule, level := int32(aux[0]), aux[1]

	if level == 0 {
		xc.stats.InputFacts++
		e.opts.metrics.InputFact()
		return nil
	}

	if !xc.proven.Insert(fact.Relation, key) {
		xc.stats.Duplicates++
		e.opts.metrics.DuplicateSkipped()
		return nil
	}

	if err := xc.quota.Check(); err != nil {
		return err
	}

	head := decode.Atom(e.prog, fact.Relation, key)
	xc.logger.Debug("exploring proof",
		zap.String("head", head),
		zap.Int32("rule", rule),
		zap.Int32("level", int32(level)))

	rec, ok := e.index.Lookup(fact.Relation, rule)
	if !ok {
		return newContractError(ErrCodeMissingInfo, fact.Relation, rule,
			"no info record describes this rule")
	}

	args := make(ir.Tuple, 0, len(key)+1)
	args = append(args, key...)
	args = append(args, level)

	values, err := e.prog.Subproof(ctx, fact.Relation, rule, args)
	if err != nil {
		return fmt.Errorf("subproof %s rule %d (%s): %w", fact.Relation, rule, args.Encode(), err)
	}
	xc.stats.Expanded++
	xc.stats.OracleCalls++
	e.opts.metrics.TupleExpanded()
	e.opts.metrics.OracleCall(len(values))
	xc.logger.Debug("fetched subproof",
		zap.Int("literals", len(rec.Body)),
		zap.Int("values", len(values)))

	if len(values) == 0 {
		xc.Diagnose(ir.Diagnostic{
			Code:     ir.DiagEmptySubproof,
			Message:  fmt.Sprintf("oracle returned no grounding for %s", head),
			Relation: fact.Relation,
			Detail:   args.Encode(),
		})
		return nil
	}

	return e.parseGroundings(xc, rel, rec, head, level, newCursor(values))
}

// parseGroundings cuts a subproof answer into groundings and emits one proof
// record per grounding.
func (e *Explorer) parseGroundings(
	xc *ExplorationContext,
	rel *program.Relation,
	rec *info.Record,
	head string,
	level ir.Domain,
	cur *cursor,
) error {
	bookkeeping := 2*rel.PrimaryArity() + 2*len(rec.Body)

	for cur.Remaining() > 0 {
		start := cur.Offset()
		body := make([]string, 0, len(rec.Body))

		for _, lit := range rec.Body {
			text, err := e.literal(xc, rec, lit, cur)
			if err != nil {
				return err
			}
			body = append(body, text)
		}

		if err := cur.Skip(bookkeeping); err != nil {
			return &ContractError{
				Code:     ErrCodeShortRead,
				Message:  "bookkeeping block truncated: " + err.Error(),
				Relation: rec.Head,
				Rule:     rec.Rule,
			}
		}
		if cur.Offset() == start {
			return newContractError(ErrCodeStalledGroup, rec.Head, rec.Rule,
				"grounding consumed no values with %d remaining", cur.Remaining())
		}

		proof := ir.ProofRecord{
			Seq:      xc.seq.Next(),
			Head:     head,
			Body:     body,
			Citation: e.cite(rec),
			Relation: rec.Head,
			Rule:     rec.Rule,
			Level:    int32(level),
		}
		xc.logger.Debug("dumping proof",
			zap.Int64("seq", proof.Seq),
			zap.String("head", head),
			zap.Int("length", len(body)))
		if err := xc.sink.Emit(proof); err != nil {
			return &SinkError{Seq: proof.Seq, Err: err}
		}
		xc.stats.Proofs++
		e.opts.metrics.ProofEmitted()
	}
	return nil
}

// literal consumes one body literal of a grounding, queues it when it is a
// positive atom and returns its rendered text.
func (e *Explorer) literal(xc *ExplorationContext, rec *info.Record, lit info.Literal, cur *cursor) (string, error) {
	arity, auxArity := info.ConstraintArity, info.ConstraintAuxArity
	known := true
	if !lit.Constraint {
		bodyRel, ok := e.prog.Relation(lit.Relation)
		known = ok
		if ok {
			arity, auxArity = bodyRel.Arity(), bodyRel.AuxArity()
		} else {
			// Undeclared relations keep the fixed provenance layout: one word
			// per descriptor argument plus rule and level.
			arity, auxArity = len(lit.Args)+ir.AuxArity, ir.AuxArity
		}
	}

	words, err := cur.Take(arity)
	if err != nil {
		return "", &ContractError{
			Code:     ErrCodeShortRead,
			Message:  fmt.Sprintf("literal %q: %v", lit.Descriptor, err),
			Relation: rec.Head,
			Rule:     rec.Rule,
		}
	}
	primary := words[:arity-auxArity]

	var text string
	switch {
	case lit.Constraint:
		text = decode.Constraint(lit.Relation, primary, e.prog)
	case !known:
		text = decode.Unknown(primary)
		if !xc.unknown[lit.Relation] {
			xc.unknown[lit.Relation] = true
			xc.Diagnose(ir.Diagnostic{
				Code:     ir.DiagUnknownBodyRelation,
				Message:  fmt.Sprintf("rule %s#%d references undeclared relation %s", rec.Head, rec.Rule, lit.Relation),
				Relation: lit.Relation,
				Detail:   lit.Descriptor,
			})
		}
	default:
		text = decode.Atom(e.prog, lit.Relation, primary)
	}
	if lit.Negated {
		text = decode.Negated(text)
	}

	xc.logger.Debug("built body atom",
		zap.String("atom", text),
		zap.String("aux", words[arity-auxArity:].Encode()))

	if known && lit.Expandable() {
		xc.worklist.Push(ir.Fact{
			Relation: lit.Relation,
			Tuple:    append(ir.Tuple(nil), words...),
		})
	}
	return text, nil
}

func (e *Explorer) cite(rec *info.Record) string {
	if e.opts.citation == CiteRule {
		return rec.Text
	}
	return rec.InfoRelation
}
