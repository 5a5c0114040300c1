// Package protoschema builds a descriptor.Schema from a serialized
// google.protobuf.FileDescriptorSet, as written by
//
//	protoc --include_imports --include_source_info --descriptor_set_out=atoms.binpb atoms.proto
//
// The atom field options are protobuf extensions of FieldOptions. They are
// decoded from the options' unknown fields, so the option definitions do
// not need to be compiled into this binary.
package protoschema
