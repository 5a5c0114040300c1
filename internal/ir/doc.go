// Package ir provides the collated intermediate representation of an atom
// schema.
//
// This package contains type definitions and the ordered containers that hold
// them. collation builds an Atoms value; code generators only read it. ir
// imports nothing internal.
//
// Key design constraints:
//   - Every container iterates in a documented total order so generated code
//     is byte-identical across runs for identical input
//   - AtomDecls live in one arena owned by Atoms; sets hold DeclID handles
//   - Signatures carry collapsed types only (enum -> int)
package ir
