package ir

import "math"

const (
	// AtomIDFieldNumber is the field number that atom-level annotations
	// are filed under.
	AtomIDFieldNumber = -1

	// FirstUIDInChain is recorded in PrimaryFields for a
	// primary_field_first_uid attribution chain: the primary key is the
	// first uid of the chain, not a field.
	FirstUIDInChain = 0

	// StateUnset marks DefaultState and TriggerStateReset as not declared.
	StateUnset = math.MaxInt32
)

// AtomField is one logged argument of an atom.
type AtomField struct {
	Name string
	Type CanonicalType

	// EnumValues maps ordinal to value name for enum and enum-array fields.
	EnumValues map[int32]string
	// EnumTypeName is the short name of the enum type.
	EnumTypeName string
}

// AtomDecl is a collated atom.
type AtomDecl struct {
	Code    int
	Name    string
	Message string
	Fields  []AtomField
	Kind    AtomKind

	FieldAnnotations FieldAnnotations

	PrimaryFields     []int
	ExclusiveField    int // 0 = none
	DefaultState      int32
	TriggerStateReset int32
	Nested            bool
	Restricted        bool
}

// NewAtomDecl returns a declaration with the documented defaults.
func NewAtomDecl(code int, name, message string, kind AtomKind) *AtomDecl {
	return &AtomDecl{
		Code:              code,
		Name:              name,
		Message:           message,
		Kind:              kind,
		FieldAnnotations:  make(FieldAnnotations),
		DefaultState:      StateUnset,
		TriggerStateReset: StateUnset,
		Nested:            true,
	}
}

// AddAnnotation files an annotation for fieldNumber, owned by this atom.
func (d *AtomDecl) AddAnnotation(fieldNumber int, id AnnotationID, typ AnnotationType, intValue int32, boolValue bool) {
	d.FieldAnnotations.Add(fieldNumber, Annotation{
		ID:        id,
		AtomID:    d.Code,
		Type:      typ,
		IntValue:  intValue,
		BoolValue: boolValue,
	})
}

// Compare orders declarations by code, then name.
func (d *AtomDecl) Compare(o *AtomDecl) int {
	switch {
	case d.Code < o.Code:
		return -1
	case d.Code > o.Code:
		return 1
	case d.Name < o.Name:
		return -1
	case d.Name > o.Name:
		return 1
	default:
		return 0
	}
}
