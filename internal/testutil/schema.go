// Package testutil provides helpers for building descriptor trees in tests.
package testutil

import (
	"github.com/roach88/atomgen/internal/descriptor"
)

// TestFile is the file name builders stamp on every position.
const TestFile = "atoms.proto"

// FieldOpt customises a field built by MessageBuilder.Field or Atom.
type FieldOpt func(*descriptor.Field)

// MessageBuilder builds a descriptor.Message.
type MessageBuilder struct {
	msg *descriptor.Message
}

// Message starts a message in the default package.
func Message(name string) *MessageBuilder {
	return &MessageBuilder{msg: &descriptor.Message{
		Name:     name,
		FullName: descriptor.DefaultPackage + "." + name,
		File:     TestFile,
	}}
}

// Field appends a field. Declaration order is preserved as given.
func (b *MessageBuilder) Field(name string, number int, kind descriptor.Kind, opts ...FieldOpt) *MessageBuilder {
	f := &descriptor.Field{
		Name:   name,
		Number: number,
		Kind:   kind,
		Parent: b.msg,
		Pos:    descriptor.Position{File: TestFile},
	}
	for _, opt := range opts {
		opt(f)
	}
	b.msg.Fields = append(b.msg.Fields, f)
	return b
}

// Chain appends the conventional attribution chain field.
func (b *MessageBuilder) Chain(number int, opts ...FieldOpt) *MessageBuilder {
	opts = append([]FieldOpt{Repeated(), OfMessage(AttributionNode())}, opts...)
	return b.Field("attribution_node", number, descriptor.KindMessage, opts...)
}

// Build returns the message.
func (b *MessageBuilder) Build() *descriptor.Message {
	return b.msg
}

var attributionNode = descriptor.StandardAttributionNode()

// AttributionNode returns a shared standard AttributionNode message.
func AttributionNode() *descriptor.Message {
	return attributionNode
}

// Enum builds an enum in the default package.
func Enum(name string, values ...descriptor.EnumValue) *descriptor.Enum {
	return &descriptor.Enum{
		Name:     name,
		FullName: descriptor.DefaultPackage + "." + name,
		Values:   values,
	}
}

// Atom builds a container field for msg.
func Atom(name string, code int, msg *descriptor.Message, opts ...FieldOpt) *descriptor.Field {
	f := &descriptor.Field{
		Name:    name,
		Number:  code,
		Kind:    descriptor.KindMessage,
		Message: msg,
		Pos:     descriptor.Position{File: TestFile},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Schema wraps atoms in an Atom container message.
func Schema(atoms ...*descriptor.Field) *descriptor.Schema {
	container := &descriptor.Message{
		Name:     "Atom",
		FullName: descriptor.ContainerFullName,
		File:     TestFile,
	}
	for _, a := range atoms {
		a.Parent = container
		container.Fields = append(container.Fields, a)
	}
	return descriptor.NewSchema(container)
}

// Repeated marks the field repeated.
func Repeated() FieldOpt {
	return func(f *descriptor.Field) { f.Repeated = true }
}

// OfMessage sets the field's message type.
func OfMessage(m *descriptor.Message) FieldOpt {
	return func(f *descriptor.Field) { f.Message = m }
}

// OfEnum sets the field's enum type.
func OfEnum(e *descriptor.Enum) FieldOpt {
	return func(f *descriptor.Field) { f.Enum = e }
}

// UID sets is_uid.
func UID() FieldOpt {
	return func(f *descriptor.Field) { f.Options.IsUID = true }
}

// Binary sets log_mode = MODE_BYTES.
func Binary() FieldOpt {
	return func(f *descriptor.Field) { f.Options.LogMode = descriptor.LogModeBytes }
}

// Modules sets the module list.
func Modules(modules ...string) FieldOpt {
	return func(f *descriptor.Field) { f.Options.Modules = modules }
}

// TruncateTimestamp sets truncate_timestamp.
func TruncateTimestamp() FieldOpt {
	return func(f *descriptor.Field) { f.Options.TruncateTimestamp = true }
}

// Restriction sets restriction_category.
func Restriction(category int32) FieldOpt {
	return func(f *descriptor.Field) { f.Options.RestrictionCategory = descriptor.Int32(category) }
}

// FieldRestriction sets field_restriction_option.
func FieldRestriction(r descriptor.FieldRestrictionOption) FieldOpt {
	return func(f *descriptor.Field) { f.Options.FieldRestriction = &r }
}

// State sets state_field_option.
func State(s descriptor.StateFieldOption) FieldOpt {
	return func(f *descriptor.Field) { f.Options.StateField = &s }
}

// Line sets the source line.
func Line(n int) FieldOpt {
	return func(f *descriptor.Field) { f.Pos.Line = n }
}
