// Package descriptor defines the read-only schema tree that atom collation
// runs over.
//
// The tree follows the protocol buffer model: named message types, numbered
// fields with a scalar, enum or message kind, and the atom option extensions
// (module, is_uid, truncate_timestamp, log_mode, restriction_category,
// field_restriction_option, state_field_option) already decoded into typed
// structs. Loaders (cueschema, protoschema) build trees; nothing downstream
// mutates them.
package descriptor
