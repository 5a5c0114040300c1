package descriptor

import "sort"

// Well-known names of the atom schema.
const (
	DefaultPackage       = "android.os.statsd"
	ContainerFullName    = "android.os.statsd.Atom"
	AttributionNodeName  = "android.os.statsd.AttributionNode"
	attributionNodeShort = "AttributionNode"
)

// Schema is a loaded descriptor tree: the top-level atom container, the
// extension fields declared against it elsewhere, and an index of every
// named type for lookups.
type Schema struct {
	Container  *Message
	Extensions []*Field

	messages map[string]*Message
	enums    map[string]*Enum
}

// NewSchema creates a schema around container. Types reachable from the
// container and the extensions are indexed.
func NewSchema(container *Message, extensions ...*Field) *Schema {
	s := &Schema{
		Container:  container,
		Extensions: extensions,
		messages:   make(map[string]*Message),
		enums:      make(map[string]*Enum),
	}
	s.indexMessage(container)
	for _, ext := range extensions {
		s.indexField(ext)
	}
	return s
}

// AddMessage indexes a message that is not reachable from the container,
// such as an AttributionNode declared but unused.
func (s *Schema) AddMessage(m *Message) {
	s.indexMessage(m)
}

func (s *Schema) indexMessage(m *Message) {
	if m == nil {
		return
	}
	if _, seen := s.messages[m.FullName]; seen {
		return
	}
	s.messages[m.FullName] = m
	for _, f := range m.Fields {
		s.indexField(f)
	}
}

func (s *Schema) indexField(f *Field) {
	if f.Message != nil {
		s.indexMessage(f.Message)
	}
	if f.Enum != nil {
		s.enums[f.Enum.FullName] = f.Enum
	}
}

// Message looks up a message by full name.
func (s *Schema) Message(fullName string) (*Message, bool) {
	m, ok := s.messages[fullName]
	return m, ok
}

// Enum looks up an enum by full name.
func (s *Schema) Enum(fullName string) (*Enum, bool) {
	e, ok := s.enums[fullName]
	return e, ok
}

// MessageNames returns every indexed message name, sorted.
func (s *Schema) MessageNames() []string {
	names := make([]string, 0, len(s.messages))
	for name := range s.messages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AttributionNode returns the schema's attribution node message, falling
// back to the standard definition (uid int32 = 1 [is_uid], tag string = 2)
// when the schema never mentions it.
func (s *Schema) AttributionNode() *Message {
	if m, ok := s.messages[AttributionNodeName]; ok {
		return m
	}
	return StandardAttributionNode()
}

// StandardAttributionNode builds the stock AttributionNode message.
func StandardAttributionNode() *Message {
	m := &Message{
		Name:     attributionNodeShort,
		FullName: AttributionNodeName,
		File:     "frameworks/proto_logging/stats/attribution_node.proto",
	}
	m.Fields = []*Field{
		{Name: "uid", Number: 1, Kind: KindInt32, Options: FieldOptions{IsUID: true}, Parent: m},
		{Name: "tag", Number: 2, Kind: KindString, Parent: m},
	}
	for _, f := range m.Fields {
		f.Pos = Position{File: m.File}
	}
	return m
}
