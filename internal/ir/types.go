package ir

import "fmt"

// CanonicalType is the value kind of an atom argument.
type CanonicalType int

const (
	TypeInvalid          CanonicalType = 0
	TypeAttributionChain CanonicalType = 1
	TypeBoolean          CanonicalType = 2
	TypeInt              CanonicalType = 3
	TypeLong             CanonicalType = 4
	TypeFloat            CanonicalType = 5
	TypeDouble           CanonicalType = 6
	TypeString           CanonicalType = 7
	TypeEnum             CanonicalType = 8
	TypeBooleanArray     CanonicalType = 10
	TypeIntArray         CanonicalType = 11
	TypeLongArray        CanonicalType = 12
	TypeFloatArray       CanonicalType = 13
	TypeDoubleArray      CanonicalType = 14
	TypeStringArray      CanonicalType = 15
	TypeEnumArray        CanonicalType = 16

	// TypeObject is a generic message; never legal as an atom field.
	TypeObject    CanonicalType = -1
	TypeByteArray CanonicalType = -2
)

var typeNames = map[CanonicalType]string{
	TypeInvalid:          "invalid",
	TypeAttributionChain: "attribution_chain",
	TypeBoolean:          "boolean",
	TypeInt:              "int",
	TypeLong:             "long",
	TypeFloat:            "float",
	TypeDouble:           "double",
	TypeString:           "string",
	TypeEnum:             "enum",
	TypeBooleanArray:     "boolean[]",
	TypeIntArray:         "int[]",
	TypeLongArray:        "long[]",
	TypeFloatArray:       "float[]",
	TypeDoubleArray:      "double[]",
	TypeStringArray:      "string[]",
	TypeEnumArray:        "enum[]",
	TypeObject:           "object",
	TypeByteArray:        "byte[]",
}

func (t CanonicalType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// ParseCanonicalType is the inverse of String.
func ParseCanonicalType(s string) (CanonicalType, bool) {
	for t, name := range typeNames {
		if name == s {
			return t, true
		}
	}
	return TypeInvalid, false
}

// Collapse returns the carrier type used in signatures.
// Enums are logged as ints.
func (t CanonicalType) Collapse() CanonicalType {
	switch t {
	case TypeEnum:
		return TypeInt
	case TypeEnumArray:
		return TypeIntArray
	default:
		return t
	}
}

// IsPrimitive reports whether t may appear in a restricted atom.
func (t CanonicalType) IsPrimitive() bool {
	switch t {
	case TypeBoolean, TypeInt, TypeLong, TypeFloat, TypeDouble, TypeString, TypeEnum:
		return true
	default:
		return false
	}
}

// IsRepeated reports whether t is an array type.
func (t CanonicalType) IsRepeated() bool {
	switch t {
	case TypeBooleanArray, TypeIntArray, TypeLongArray, TypeFloatArray,
		TypeDoubleArray, TypeStringArray, TypeEnumArray:
		return true
	default:
		return false
	}
}

// AtomKind separates event-driven atoms from sampled ones.
type AtomKind int

const (
	AtomPushed AtomKind = iota
	AtomPulled
)

func (k AtomKind) String() string {
	if k == AtomPulled {
		return "pulled"
	}
	return "pushed"
}
