package descriptor

import (
	"fmt"
	"sort"
)

// Kind is the declared wire kind of a field.
type Kind int

const (
	KindDouble Kind = iota + 1
	KindFloat
	KindInt64
	KindUint64
	KindInt32
	KindFixed64
	KindFixed32
	KindBool
	KindString
	KindGroup
	KindMessage
	KindBytes
	KindUint32
	KindEnum
	KindSfixed32
	KindSfixed64
	KindSint32
	KindSint64
)

var kindNames = map[Kind]string{
	KindDouble:   "double",
	KindFloat:    "float",
	KindInt64:    "int64",
	KindUint64:   "uint64",
	KindInt32:    "int32",
	KindFixed64:  "fixed64",
	KindFixed32:  "fixed32",
	KindBool:     "bool",
	KindString:   "string",
	KindGroup:    "group",
	KindMessage:  "message",
	KindBytes:    "bytes",
	KindUint32:   "uint32",
	KindEnum:     "enum",
	KindSfixed32: "sfixed32",
	KindSfixed64: "sfixed64",
	KindSint32:   "sint32",
	KindSint64:   "sint64",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a type keyword ("int32", "message", ...) to a Kind.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Position is a source location. Line is 1-based; 0 means unknown.
type Position struct {
	File string
	Line int
}

// String renders the position the way diagnostics prefix it.
func (p Position) String() string {
	if p.Line > 0 {
		return fmt.Sprintf("%s:%d", p.File, p.Line)
	}
	return p.File
}

// Message is a named composite type.
type Message struct {
	Name     string
	FullName string
	File     string
	Fields   []*Field
}

// SortedFields returns the fields ordered by number. Declaration order is
// source order, which need not be numeric.
func (m *Message) SortedFields() []*Field {
	fields := make([]*Field, len(m.Fields))
	copy(fields, m.Fields)
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Number < fields[j].Number
	})
	return fields
}

// FieldByNumber returns the field with the given number, or nil.
func (m *Message) FieldByNumber(number int) *Field {
	for _, f := range m.Fields {
		if f.Number == number {
			return f
		}
	}
	return nil
}

// Field is a numbered member of a message, or an extension of one.
type Field struct {
	Name     string
	Number   int
	Kind     Kind
	Repeated bool

	// Message is set for KindMessage and KindGroup fields.
	Message *Message
	// Enum is set for KindEnum fields.
	Enum *Enum

	Options FieldOptions

	// Parent is the containing message (for extensions, the extended one).
	Parent *Message
	Pos    Position
}

// Enum is a named enumeration.
type Enum struct {
	Name     string
	FullName string
	Values   []EnumValue
}

// EnumValue is one named ordinal of an Enum.
type EnumValue struct {
	Name   string
	Number int32
}
