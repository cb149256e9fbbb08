// Package program describes an already-evaluated Datalog program as the
// explainer sees it.
//
// The evaluator is an external collaborator. Its surface is two small
// interfaces:
//   - Catalog: relation enumeration, metadata and symbol resolution
//   - Oracle: the per-rule subproof query
//
// Snapshot is the in-memory implementation used by the CLI, the SQLite store
// and the tests. Everything a Snapshot holds is immutable once built.
package program
