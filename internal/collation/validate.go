package collation

import (
	"github.com/roach88/atomgen/internal/descriptor"
	"github.com/roach88/atomgen/internal/ir"
)

// violation is a rule broken by a single field.
type violation struct {
	code   string
	format string
	args   []any
}

// CollateAtom validates msg as the argument list of decl. Accepted fields
// are appended to decl.Fields, their collapsed types to sig, and their
// annotations to decl. Rejected fields are reported and left out. It
// returns the number of errors found.
func (c *Collator) CollateAtom(msg *descriptor.Message, decl *ir.AtomDecl, sig *ir.Signature) int {
	errorCount := 0

	// Declaration order is source order, not numeric order.
	fields := msg.SortedFields()

	errorCount += c.checkNumbering(fields)

	for _, f := range fields {
		typ := CanonicalType(f)
		violations := fieldViolations(msg, decl, f, typ)
		for _, v := range violations {
			errorCount += c.diags.report(f, v.code, v.format, v.args...)
		}
		if len(violations) > 0 {
			continue
		}

		*sig = append(*sig, typ.Collapse())
		decl.Fields = append(decl.Fields, newAtomField(f, typ))

		errorCount += c.collateFieldAnnotations(decl, f, f.Number, typ)
	}

	return errorCount
}

// checkNumbering verifies fields (sorted) are numbered 1, 2, 3, ...
// After a gap the cursor continues from the number actually seen, so
// {1, 3, 4} reports once.
func (c *Collator) checkNumbering(fields []*descriptor.Field) int {
	errorCount := 0
	expected := 1
	for _, f := range fields {
		if f.Number != expected {
			errorCount += c.diags.report(f, ErrNonSequentialField,
				"Fields must be numbered consecutively starting at 1: '%s' is %d but should be %d",
				f.Name, f.Number, expected)
		}
		expected = f.Number + 1
	}
	return errorCount
}

// fieldViolations returns the reasons f cannot be an argument of decl.
// At most one type violation is returned, plus a misplaced-chain one.
func fieldViolations(msg *descriptor.Message, decl *ir.AtomDecl, f *descriptor.Field, typ ir.CanonicalType) []violation {
	var out []violation
	binary := f.Options.IsBinary()

	switch {
	case typ == ir.TypeInvalid && f.Repeated:
		out = append(out, violation{ErrRepeatedTypeNotAllowed,
			"Repeated field type %s is not allowed for field: %s", []any{f.Kind, f.Name}})
	case typ == ir.TypeInvalid:
		out = append(out, violation{ErrFieldTypeNotAllowed,
			"Field type %s is not allowed for field: %s", []any{f.Kind, f.Name}})
	case typ == ir.TypeObject:
		out = append(out, violation{ErrMessageWithoutBytes,
			"Message type not allowed for field without mode_bytes: %s", []any{f.Name}})
	case typ == ir.TypeByteArray && !binary:
		out = append(out, violation{ErrRawBytesField,
			"Raw bytes type not allowed for field: %s", []any{f.Name}})
	case binary && typ != ir.TypeByteArray:
		out = append(out, violation{ErrBytesModeOnNonBytes,
			"Cannot mark field %s as bytes.", []any{f.Name}})
	case decl.Restricted && !typ.IsPrimitive():
		out = append(out, violation{ErrNonPrimitiveRestricted,
			"Restricted atom '%s' cannot have nonprimitive field: '%s'", []any{decl.Message, f.Name}})
	}

	if typ == ir.TypeAttributionChain && f.Number != 1 {
		out = append(out, violation{ErrMisplacedChain,
			"AttributionChain fields must have field id 1, in message: '%s'", []any{msg.Name}})
	}

	return out
}

// newAtomField builds the AtomField of an accepted field.
func newAtomField(f *descriptor.Field, typ ir.CanonicalType) ir.AtomField {
	field := ir.AtomField{Name: f.Name, Type: typ}
	if (typ == ir.TypeEnum || typ == ir.TypeEnumArray) && f.Enum != nil {
		field.EnumTypeName = f.Enum.Name
		field.EnumValues = make(map[int32]string, len(f.Enum.Values))
		for _, v := range f.Enum.Values {
			field.EnumValues[v.Number] = v.Name
		}
	}
	return field
}
