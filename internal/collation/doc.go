// Package collation validates an atom schema and collates it into the ir.
//
// The pass is best-effort: every rule violation is recorded as a Diagnostic
// and the offending field or atom is left out of the IR, but processing
// continues so one run reports every problem. Callers treat a non-zero
// error count as a build failure.
//
// Pipeline, per atom of the container (regular fields, then extensions):
//
//	module filter -> atom-level options -> CollateAtom (type mapping,
//	numbering, annotations) -> FlattenNonChained -> ir.Atoms registration
//
// The pass does no I/O and keeps no state between Collate calls.
package collation
