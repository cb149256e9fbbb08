// Package engine reconstructs proofs for tuples of an evaluated program.
//
// The Explorer walks backwards from seed tuples. For each derived tuple it
// asks the evaluator's subproof oracle which body tuples justified it,
// renders one proof record per grounding and queues the positive body atoms
// for the same treatment.
//
// Run loop, per worklist entry:
//  1. Split the tuple into its primary key and [rule, level].
//  2. Level 0 is an input fact: nothing to explain.
//  3. A key already in the proven set is skipped; otherwise it is recorded.
//  4. The oracle is called with the key followed by the level.
//  5. The flat answer is cut into groundings using the rule's body
//     descriptors; each grounding becomes one proof record.
//
// Determinism:
// A run is single-threaded. The worklist is FIFO, seeds keep their order and
// body atoms are queued in declared order, so the same program and seeds
// always produce the same artifact bytes. Oracle calls happen in discovery
// order.
//
// Termination:
// Every (relation, primary key) is expanded at most once per run, so the
// loop ends on any finite program even when derivations are cyclic.
//
// All per-run state lives in an ExplorationContext; an Explorer is
// immutable after New and may serve concurrent runs.
package engine
