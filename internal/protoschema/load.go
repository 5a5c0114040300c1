package protoschema

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/roach88/atomgen/internal/descriptor"
)

// Load parses a serialized FileDescriptorSet and builds the schema rooted
// at the container message. An empty container selects
// descriptor.ContainerFullName.
func Load(data []byte, container string) (*descriptor.Schema, error) {
	set := &descriptorpb.FileDescriptorSet{}
	if err := proto.Unmarshal(data, set); err != nil {
		return nil, fmt.Errorf("protoschema: decoding descriptor set: %w", err)
	}
	return FromSet(set, container)
}

// FromSet builds the schema from an already decoded FileDescriptorSet.
func FromSet(set *descriptorpb.FileDescriptorSet, container string) (*descriptor.Schema, error) {
	if container == "" {
		container = descriptor.ContainerFullName
	}

	files, err := protodesc.NewFiles(set)
	if err != nil {
		return nil, fmt.Errorf("protoschema: resolving descriptor set: %w", err)
	}

	d, err := files.FindDescriptorByName(protoreflect.FullName(container))
	if err != nil {
		return nil, fmt.Errorf("protoschema: container %q: %w", container, err)
	}
	containerDesc, ok := d.(protoreflect.MessageDescriptor)
	if !ok {
		return nil, fmt.Errorf("protoschema: container %q is not a message", container)
	}

	c := newConverter()
	root, err := c.message(containerDesc)
	if err != nil {
		return nil, err
	}

	extensions, err := c.extensions(set, files, root, containerDesc.FullName())
	if err != nil {
		return nil, err
	}

	return descriptor.NewSchema(root, extensions...), nil
}

// extensions returns the extensions of the container, file by file in set
// order and declaration order within a file.
func (c *converter) extensions(set *descriptorpb.FileDescriptorSet, files *protoregistry.Files, root *descriptor.Message, container protoreflect.FullName) ([]*descriptor.Field, error) {
	var out []*descriptor.Field

	var visit func(exts protoreflect.ExtensionDescriptors) error
	visit = func(exts protoreflect.ExtensionDescriptors) error {
		for i := 0; i < exts.Len(); i++ {
			xd := exts.Get(i)
			if xd.ContainingMessage().FullName() != container {
				continue
			}
			f, err := c.field(xd, root)
			if err != nil {
				return err
			}
			out = append(out, f)
		}
		return nil
	}

	var visitMessages func(msgs protoreflect.MessageDescriptors) error
	visitMessages = func(msgs protoreflect.MessageDescriptors) error {
		for i := 0; i < msgs.Len(); i++ {
			md := msgs.Get(i)
			if err := visit(md.Extensions()); err != nil {
				return err
			}
			if err := visitMessages(md.Messages()); err != nil {
				return err
			}
		}
		return nil
	}

	for _, fdp := range set.GetFile() {
		fd, err := files.FindFileByPath(fdp.GetName())
		if err != nil {
			return nil, fmt.Errorf("protoschema: %w", err)
		}
		if err := visit(fd.Extensions()); err != nil {
			return nil, err
		}
		if err := visitMessages(fd.Messages()); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// converter maps protoreflect descriptors onto descriptor types, once per
// full name so shared and recursive types stay shared.
type converter struct {
	messages map[protoreflect.FullName]*descriptor.Message
	enums    map[protoreflect.FullName]*descriptor.Enum
}

func newConverter() *converter {
	return &converter{
		messages: make(map[protoreflect.FullName]*descriptor.Message),
		enums:    make(map[protoreflect.FullName]*descriptor.Enum),
	}
}

func (c *converter) message(md protoreflect.MessageDescriptor) (*descriptor.Message, error) {
	if m, ok := c.messages[md.FullName()]; ok {
		return m, nil
	}

	m := &descriptor.Message{
		Name:     string(md.Name()),
		FullName: string(md.FullName()),
		File:     md.ParentFile().Path(),
	}
	// Registered before the fields so recursion terminates.
	c.messages[md.FullName()] = m

	fields := md.Fields()
	for i := 0; i < fields.Len(); i++ {
		f, err := c.field(fields.Get(i), m)
		if err != nil {
			return nil, err
		}
		m.Fields = append(m.Fields, f)
	}
	return m, nil
}

func (c *converter) enum(ed protoreflect.EnumDescriptor) *descriptor.Enum {
	if e, ok := c.enums[ed.FullName()]; ok {
		return e
	}
	e := &descriptor.Enum{Name: string(ed.Name()), FullName: string(ed.FullName())}
	values := ed.Values()
	for i := 0; i < values.Len(); i++ {
		v := values.Get(i)
		e.Values = append(e.Values, descriptor.EnumValue{Name: string(v.Name()), Number: int32(v.Number())})
	}
	c.enums[ed.FullName()] = e
	return e
}

func (c *converter) field(fd protoreflect.FieldDescriptor, parent *descriptor.Message) (*descriptor.Field, error) {
	f := &descriptor.Field{
		Name:     string(fd.Name()),
		Number:   int(fd.Number()),
		Kind:     descriptor.Kind(fd.Kind()),
		Repeated: fd.Cardinality() == protoreflect.Repeated,
		Parent:   parent,
		Pos:      position(fd),
	}

	switch fd.Kind() {
	case protoreflect.MessageKind, protoreflect.GroupKind:
		m, err := c.message(fd.Message())
		if err != nil {
			return nil, err
		}
		f.Message = m
	case protoreflect.EnumKind:
		f.Enum = c.enum(fd.Enum())
	}

	if opts, ok := fd.Options().(*descriptorpb.FieldOptions); ok && opts != nil {
		decoded, err := decodeOptions(opts.ProtoReflect().GetUnknown())
		if err != nil {
			return nil, fmt.Errorf("protoschema: options of %s: %w", fd.FullName(), err)
		}
		f.Options = decoded
	}

	return f, nil
}

// position returns the 1-based source line of fd when the set carries
// source info.
func position(fd protoreflect.FieldDescriptor) descriptor.Position {
	file := fd.ParentFile()
	pos := descriptor.Position{File: file.Path()}
	loc := file.SourceLocations().ByDescriptor(fd)
	if len(loc.Path) > 0 {
		pos.Line = loc.StartLine + 1
	}
	return pos
}
