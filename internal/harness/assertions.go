package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/atomgen/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns one
// message per failure, in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertErrorCount:
		return assertErrorCount(result, a)
	case AssertDiagnostic:
		return assertDiagnostic(result, a)
	case AssertAtom:
		return assertAtom(result.Catalog, a)
	case AssertRejected:
		return assertRejected(result.Catalog, a)
	case AssertAnnotation:
		return assertAnnotation(result.Catalog, a)
	case AssertSignature:
		return assertSignature(result.Catalog, a)
	case AssertSignatureCount:
		return assertSignatureCount(result.Catalog, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertErrorCount(result *Result, a Assertion) error {
	if got := len(result.Diagnostics); got != a.Count {
		codes := make([]string, len(result.Diagnostics))
		for i, d := range result.Diagnostics {
			codes[i] = d.Code
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d collation error(s)", a.Count),
			Actual:   fmt.Sprintf("%d: %v", got, codes),
		}
	}
	return nil
}

// assertDiagnostic checks how often a code was reported. Count 0 means at
// least once.
func assertDiagnostic(result *Result, a Assertion) error {
	n := 0
	for _, d := range result.Diagnostics {
		if d.Code == a.Code {
			n++
		}
	}
	switch {
	case a.Count == 0 && n == 0:
		return &AssertionError{Type: a.Type, Expected: a.Code + " reported", Actual: "not reported"}
	case a.Count > 0 && n != a.Count:
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s reported %d time(s)", a.Code, a.Count),
			Actual:   fmt.Sprintf("%d time(s)", n),
		}
	}
	return nil
}

func findAtom(c *ir.Catalog, name string) (ir.CatalogAtom, bool) {
	for _, atom := range c.Atoms {
		if atom.Name == name {
			return atom, true
		}
	}
	return ir.CatalogAtom{}, false
}

func assertAtom(c *ir.Catalog, a Assertion) error {
	atom, ok := findAtom(c, a.Atom)
	if !ok {
		return &AssertionError{Type: a.Type, Expected: "atom " + a.Atom + " collated", Actual: "not in catalog"}
	}
	if a.Fields == nil {
		return nil
	}

	names := make([]string, len(atom.Fields))
	for i, f := range atom.Fields {
		names[i] = f.Name
	}
	if !slices.Equal(names, a.Fields) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("fields %v", a.Fields),
			Actual:   fmt.Sprintf("fields %v", names),
		}
	}
	return nil
}

func assertRejected(c *ir.Catalog, a Assertion) error {
	if _, ok := findAtom(c, a.Atom); ok {
		return &AssertionError{Type: a.Type, Expected: "atom " + a.Atom + " rejected", Actual: "in catalog"}
	}
	return nil
}

func assertAnnotation(c *ir.Catalog, a Assertion) error {
	atom, ok := findAtom(c, a.Atom)
	if !ok {
		return &AssertionError{Type: a.Type, Expected: "atom " + a.Atom + " collated", Actual: "not in catalog"}
	}

	for _, fa := range atom.Annotations {
		if fa.Field != a.Field {
			continue
		}
		for _, ann := range fa.Annotations {
			if ann.Name != a.Annotation {
				continue
			}
			if !matchValue(a.Value, ann.Value) {
				return &AssertionError{
					Type:     a.Type,
					Expected: fmt.Sprintf("%s.%d %s = %v", a.Atom, a.Field, a.Annotation, a.Value),
					Actual:   fmt.Sprintf("%v", ann.Value),
				}
			}
			return nil
		}
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s.%d has %s", a.Atom, a.Field, a.Annotation),
		Actual:   "annotation missing",
	}
}

// matchValue compares a YAML-decoded value with an annotation value.
func matchValue(expected, actual any) bool {
	if eb, ok := expected.(bool); ok {
		ab, ok := actual.(bool)
		return ok && eb == ab
	}
	ei, ok := toInt64(expected)
	if !ok {
		return false
	}
	ai, ok := toInt64(actual)
	return ok && ei == ai
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}

func signaturesOfKind(c *ir.Catalog, kind string) []ir.CatalogSignature {
	var out []ir.CatalogSignature
	for _, sig := range c.Signatures {
		if sig.Kind == kind {
			out = append(out, sig)
		}
	}
	return out
}

func assertSignature(c *ir.Catalog, a Assertion) error {
	for _, sig := range signaturesOfKind(c, a.Kind) {
		if !slices.Equal(sig.Types, a.Types) {
			continue
		}
		if a.Members != nil && !slices.Equal(sig.Members, a.Members) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s (%s) members %v", a.Kind, strings.Join(a.Types, ", "), a.Members),
				Actual:   fmt.Sprintf("members %v", sig.Members),
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s signature (%s)", a.Kind, strings.Join(a.Types, ", ")),
		Actual:   "no such group",
	}
}

func assertSignatureCount(c *ir.Catalog, a Assertion) error {
	if got := len(signaturesOfKind(c, a.Kind)); got != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d %s signature group(s)", a.Count, a.Kind),
			Actual:   fmt.Sprintf("%d", got),
		}
	}
	return nil
}
