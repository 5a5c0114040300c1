package collation

import (
	"fmt"

	"github.com/roach88/atomgen/internal/descriptor"
)

// Diagnostic codes (E200-E229)
const (
	// Schema-shape errors (E200-E209)
	ErrNonSequentialField     = "E201" // field numbers must be consecutive from 1
	ErrFieldTypeNotAllowed    = "E202" // unsupported field kind
	ErrRepeatedTypeNotAllowed = "E203" // unsupported repeated field kind
	ErrMessageWithoutBytes    = "E204" // message field without log_mode = MODE_BYTES
	ErrRawBytesField          = "E205" // bytes field without log_mode = MODE_BYTES
	ErrBytesModeOnNonBytes    = "E206" // log_mode = MODE_BYTES on a non-bytes field
	ErrMisplacedChain         = "E207" // attribution chain not at field 1
	ErrNonMessageAtom         = "E208" // container field is not a message

	// Annotation-consistency errors (E210-E219)
	ErrStateOnRepeated              = "E210" // state option on an array field
	ErrConflictingStateFlags        = "E211" // more than one of primary/exclusive/first-uid
	ErrInvalidPrimaryField          = "E212" // primary_field on chain/object/bytes
	ErrFirstUIDNotChain             = "E213" // primary_field_first_uid on a non-chain
	ErrInvalidExclusiveField        = "E214" // exclusive_state on chain/object/bytes
	ErrDuplicateExclusiveField      = "E215" // second exclusive_state field
	ErrFieldRestrictionUnrestricted = "E216" // field_restriction_option on unrestricted atom
	ErrRestrictionCategoryOnField   = "E217" // restriction_category at field level
	ErrFieldRestrictionOnAtom       = "E218" // field_restriction_option at atom level
	ErrUIDNotInt                    = "E219" // is_uid on a non-int field

	// Cross-field errors (E220-E229)
	ErrPrimaryWithoutExclusive = "E220" // primary fields without an exclusive field
	ErrNonPrimitiveRestricted  = "E221" // nonprimitive field in restricted atom
	ErrRestrictedPulled        = "E222" // restricted atom in a pulled range
)

// Category groups diagnostic codes.
type Category string

const (
	CategorySchemaShape Category = "schema_shape"
	CategoryAnnotation  Category = "annotation"
	CategoryCrossField  Category = "cross_field"
)

var codeCategories = map[string]Category{
	ErrNonSequentialField:           CategorySchemaShape,
	ErrFieldTypeNotAllowed:          CategorySchemaShape,
	ErrRepeatedTypeNotAllowed:       CategorySchemaShape,
	ErrMessageWithoutBytes:          CategorySchemaShape,
	ErrRawBytesField:                CategorySchemaShape,
	ErrBytesModeOnNonBytes:          CategorySchemaShape,
	ErrMisplacedChain:               CategorySchemaShape,
	ErrNonMessageAtom:               CategorySchemaShape,
	ErrStateOnRepeated:              CategoryAnnotation,
	ErrConflictingStateFlags:        CategoryAnnotation,
	ErrInvalidPrimaryField:          CategoryAnnotation,
	ErrFirstUIDNotChain:             CategoryAnnotation,
	ErrInvalidExclusiveField:        CategoryAnnotation,
	ErrDuplicateExclusiveField:      CategoryAnnotation,
	ErrFieldRestrictionUnrestricted: CategoryAnnotation,
	ErrRestrictionCategoryOnField:   CategoryAnnotation,
	ErrFieldRestrictionOnAtom:       CategoryAnnotation,
	ErrUIDNotInt:                    CategoryAnnotation,
	ErrPrimaryWithoutExclusive:      CategoryCrossField,
	ErrNonPrimitiveRestricted:       CategoryCrossField,
	ErrRestrictedPulled:             CategoryCrossField,
}

// CategoryOf returns the category of a diagnostic code.
func CategoryOf(code string) Category {
	return codeCategories[code]
}

// Diagnostic is one rule violation.
type Diagnostic struct {
	Code    string              `json:"code" yaml:"code"`
	Message string              `json:"message" yaml:"message"`
	Field   string              `json:"field,omitempty" yaml:"field,omitempty"`
	Pos     descriptor.Position `json:"-" yaml:"-"`
	File    string              `json:"file,omitempty" yaml:"file,omitempty"`
	Line    int                 `json:"line,omitempty" yaml:"line,omitempty"`
}

// Category returns the diagnostic's category.
func (d Diagnostic) Category() Category {
	return CategoryOf(d.Code)
}

// Error implements the error interface.
func (d Diagnostic) Error() string {
	if d.Pos.File == "" {
		return fmt.Sprintf("[%s] %s", d.Code, d.Message)
	}
	return fmt.Sprintf("%s: [%s] %s", d.Pos, d.Code, d.Message)
}

// Diagnostics accumulates violations across a collation pass.
type Diagnostics struct {
	items []Diagnostic
}

// report records a violation on field and returns 1, so callers can write
// errorCount += d.report(...).
func (d *Diagnostics) report(field *descriptor.Field, code, format string, args ...any) int {
	diag := Diagnostic{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
	if field != nil {
		diag.Field = field.Name
		diag.Pos = field.Pos
		if diag.Pos.File == "" && field.Parent != nil {
			diag.Pos.File = field.Parent.File
		}
		diag.File = diag.Pos.File
		diag.Line = diag.Pos.Line
	}
	d.items = append(d.items, diag)
	return 1
}

// Len returns the number of recorded violations.
func (d *Diagnostics) Len() int { return len(d.items) }

// All returns the violations in the order they were found.
func (d *Diagnostics) All() []Diagnostic { return d.items }

// Codes returns the code of every violation, in order.
func (d *Diagnostics) Codes() []string {
	codes := make([]string, len(d.items))
	for i, diag := range d.items {
		codes[i] = diag.Code
	}
	return codes
}

// Count returns how many violations carry code.
func (d *Diagnostics) Count(code string) int {
	n := 0
	for _, diag := range d.items {
		if diag.Code == code {
			n++
		}
	}
	return n
}
