// Package store provides SQLite-backed durable storage for evaluated
// programs and explanation runs.
//
// The store holds:
//   - Programs: imported snapshots (symbols, relations, tuples, subproofs),
//     keyed by their content digest
//   - Runs: one row per explain invocation, with citation mode, final
//     status, artifact digest and the run report
//   - Proofs: every emitted proof record, keyed by (run, seq)
//
// # Ordering
//
// All ordering uses logical columns (seq, ord), never timestamps. Every
// read carries an explicit ORDER BY so that two reads of the same data
// return identical sequences.
//
// # Idempotency
//
// Importing a snapshot whose digest is already present is a no-op. Proof
// rows are written once per (run, seq); a second write of the same
// position is rejected.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
