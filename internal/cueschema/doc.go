// Package cueschema builds a descriptor.Schema from atom definitions
// written in CUE.
//
// A schema file declares enums, messages and atoms as plain structs:
//
//	package_name: "android.os.statsd" // optional, this is the default
//
//	enum: DisplayState: {UNKNOWN: 0, OFF: 1, ON: 2}
//
//	message: ScreenStateChanged: field: state: {
//		number: 1
//		enum:   "DisplayState"
//		state_field: {exclusive_state: true, default_state_value: 0}
//	}
//
//	atom: screen_state_changed: {
//		number:  29
//		message: "ScreenStateChanged"
//		module: ["framework"]
//	}
//
// Atoms become fields of the container message "<package>.Atom", in
// declaration order; entries under extension are collated after them.
// A reference to AttributionNode that the file does not define resolves
// to the standard attribution node.
package cueschema
