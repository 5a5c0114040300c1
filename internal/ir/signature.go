package ir

import "strings"

// Signature is the ordered argument types of an atom. Atoms with equal
// signatures share one generated entry point.
type Signature []CanonicalType

// Compare orders signatures lexicographically by type value; a proper
// prefix sorts first.
func (s Signature) Compare(o Signature) int {
	for i := 0; i < len(s) && i < len(o); i++ {
		if s[i] != o[i] {
			if s[i] < o[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(s) < len(o):
		return -1
	case len(s) > len(o):
		return 1
	default:
		return 0
	}
}

// Equal reports whether s and o are the same sequence.
func (s Signature) Equal(o Signature) bool {
	return s.Compare(o) == 0
}

// String renders the signature as "(int, string)".
func (s Signature) String() string {
	parts := make([]string, len(s))
	for i, t := range s {
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Strings returns the type names.
func (s Signature) Strings() []string {
	out := make([]string, len(s))
	for i, t := range s {
		out[i] = t.String()
	}
	return out
}
