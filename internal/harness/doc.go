// Package harness provides conformance testing for provenance explanations.
//
// A scenario names a program directory of CUE files (the evaluated
// program: relations, tuples, rule descriptions and oracle answers), an
// optional inline target list and assertions over the proofs the run
// emits. The harness compiles the program, stores it in a fresh in-memory
// run store, reads it back and explains it, so one scenario covers the
// compiler, the store and the explorer together.
//
// # Scenario Format
//
//	name: transitive_closure
//	description: "Default mode proves every path tuple"
//	program: ../programs/graph
//	targets: |
//	  path 1 3
//	cite: relation
//	max_expansions: 0
//	expect_error: ""
//	assertions:
//	  - type: proof_contains
//	    head: path(1,3)
//	    body: [path(1,2), edge(2,3)]
//	  - type: proof_order
//	    heads: [path(1,3), path(1,2)]
//	  - type: proof_count
//	    count: 2
//	  - type: not_proved
//	    head: path(2,3)
//	  - type: diagnostic
//	    code: TARGET_NO_MATCH
//
// # Assertion Types
//
//   - proof_contains: a proof of head exists, with exactly body and citation when given
//   - proof_order: the first proofs of heads appear in the listed order
//   - proof_count: exactly count proofs, of head when given
//   - not_proved: no proof has head as its head
//   - diagnostic: the run report carries a diagnostic with code
//
// # Golden Files
//
// RunWithGolden compares the artifact byte for byte against
// testdata/golden/{name}.golden. Run ids come from the scenario name, so
// repeated runs are identical.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/graph_default.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
