// Package ir provides the shared value model for provex.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Domain is the evaluator's raw 32-bit word; typed interpretation is a
//     bit cast selected by a TypeTag
//   - Tuples carry their auxiliary [rule, level] suffix until the explorer
//     splits them
//   - Digests use canonical JSON and SHA-256 with domain separation
package ir
