// Package store persists collation results in SQLite so code generators
// and later runs can query them without re-collating.
//
// A run is one ir.Catalog. Runs are identified by a UUID and deduplicated
// by the catalog fingerprint: writing an identical catalog twice returns
// the existing run.
//
// # Deterministic Reads
//
// Every table carries a position column holding the catalog's IR order,
// and every query orders by it. Reading a run back yields a catalog equal
// to the one written.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// List-valued columns hold canonical JSON (see ir.MarshalCanonical).
package store
