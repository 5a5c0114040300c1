package cueschema

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/roach88/atomgen/internal/descriptor"
)

// ContainerName is the short name of the generated container message.
const ContainerName = "Atom"

const attributionNodeName = "AttributionNode"

// CompileBytes compiles CUE source into a schema. filename is used in
// positions only.
func CompileBytes(src []byte, filename string) (*descriptor.Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	return Compile(v)
}

// Compile converts a CUE value holding enum, message, atom and extension
// definitions into a schema.
//
// The value is the file's root struct, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`atom: foo: {number: 1, message: "Foo"} ...`)
//	schema, err := Compile(v)
func Compile(v cue.Value) (*descriptor.Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	c := &compiler{
		pkg:      descriptor.DefaultPackage,
		messages: make(map[string]*descriptor.Message),
		enums:    make(map[string]*descriptor.Enum),
	}

	pkg, ok, err := lookupString(v, "package_name")
	if err != nil {
		return nil, err
	}
	if ok {
		if pkg == "" {
			return nil, &CompileError{Field: "package_name", Message: "must not be empty", Pos: v.Pos()}
		}
		c.pkg = pkg
	}

	if err := c.parseEnums(v); err != nil {
		return nil, err
	}
	if err := c.declareMessages(v); err != nil {
		return nil, err
	}
	if err := c.defineMessages(v); err != nil {
		return nil, err
	}

	container := &descriptor.Message{
		Name:     ContainerName,
		FullName: c.pkg + "." + ContainerName,
	}
	atomsVal := v.LookupPath(cue.ParsePath("atom"))
	container.File = position(atomsVal.Pos()).File

	container.Fields, err = c.parseFieldSection(atomsVal, "atom", container)
	if err != nil {
		return nil, err
	}
	extensions, err := c.parseFieldSection(v.LookupPath(cue.ParsePath("extension")), "extension", container)
	if err != nil {
		return nil, err
	}

	schema := descriptor.NewSchema(container, extensions...)
	for _, m := range c.order {
		schema.AddMessage(m)
	}
	return schema, nil
}

// compiler holds the type tables of one Compile call.
type compiler struct {
	pkg      string
	messages map[string]*descriptor.Message // by full name
	order    []*descriptor.Message
	enums    map[string]*descriptor.Enum // by full name
	stdNode  *descriptor.Message
}

func (c *compiler) fullName(ref string) string {
	if strings.Contains(ref, ".") {
		return ref
	}
	return c.pkg + "." + ref
}

// message resolves a message reference by short or full name.
func (c *compiler) message(ref string) (*descriptor.Message, bool) {
	full := c.fullName(ref)
	if m, ok := c.messages[full]; ok {
		return m, true
	}
	if ref == attributionNodeName || full == descriptor.AttributionNodeName {
		if c.stdNode == nil {
			c.stdNode = descriptor.StandardAttributionNode()
		}
		return c.stdNode, true
	}
	return nil, false
}

func (c *compiler) parseEnums(v cue.Value) error {
	enumsVal := v.LookupPath(cue.ParsePath("enum"))
	if !enumsVal.Exists() {
		return nil
	}

	iter, err := enumsVal.Fields()
	if err != nil {
		return formatCUEError(err)
	}

	for iter.Next() {
		name := iter.Label()
		enum := &descriptor.Enum{Name: name, FullName: c.fullName(name)}

		valueIter, err := iter.Value().Fields()
		if err != nil {
			return formatCUEError(err)
		}
		for valueIter.Next() {
			n, err := valueIter.Value().Int64()
			if err != nil {
				return formatCUEError(err)
			}
			if n < minInt32 || n > maxInt32 {
				return &CompileError{
					Field:   fmt.Sprintf("enum.%s.%s", name, valueIter.Label()),
					Message: fmt.Sprintf("value %d out of int32 range", n),
					Pos:     valueIter.Value().Pos(),
				}
			}
			enum.Values = append(enum.Values, descriptor.EnumValue{Name: valueIter.Label(), Number: int32(n)})
		}

		c.enums[enum.FullName] = enum
	}

	return nil
}

// declareMessages creates every message before any field is parsed, so
// fields can refer to messages declared later in the file.
func (c *compiler) declareMessages(v cue.Value) error {
	messagesVal := v.LookupPath(cue.ParsePath("message"))
	if !messagesVal.Exists() {
		return nil
	}

	iter, err := messagesVal.Fields()
	if err != nil {
		return formatCUEError(err)
	}

	for iter.Next() {
		name := iter.Label()
		if name == attributionNodeName && c.pkg != descriptor.DefaultPackage {
			return &CompileError{
				Field: "message." + name,
				Message: fmt.Sprintf("%s would not be the attribution node outside package %s; rename it or drop package_name",
					name, descriptor.DefaultPackage),
				Pos: iter.Value().Pos(),
			}
		}
		m := &descriptor.Message{
			Name:     name,
			FullName: c.fullName(name),
			File:     position(iter.Value().Pos()).File,
		}
		c.messages[m.FullName] = m
		c.order = append(c.order, m)
	}

	return nil
}

var messageKeys = map[string]bool{"field": true}

func (c *compiler) defineMessages(v cue.Value) error {
	for _, m := range c.order {
		msgVal := v.LookupPath(cue.MakePath(cue.Str("message"), cue.Str(m.Name)))
		if err := checkKeys(msgVal, "message."+m.Name, messageKeys); err != nil {
			return err
		}
		fields, err := c.parseFieldSection(msgVal.LookupPath(cue.ParsePath("field")), "message."+m.Name+".field", m)
		if err != nil {
			return err
		}
		m.Fields = fields
	}
	return nil
}

// parseFieldSection parses every entry of a struct of field definitions,
// in declaration order.
func (c *compiler) parseFieldSection(v cue.Value, path string, parent *descriptor.Message) ([]*descriptor.Field, error) {
	if !v.Exists() {
		return nil, nil
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []*descriptor.Field
	for iter.Next() {
		f, err := c.parseField(iter.Label(), iter.Value(), path+"."+iter.Label(), parent)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func position(p token.Pos) descriptor.Position {
	if !p.IsValid() {
		return descriptor.Position{}
	}
	return descriptor.Position{File: p.Filename(), Line: p.Line()}
}
