// Package element defines the typed element graph that the rest of the
// workspace pipeline operates on: types (primitive, object, list, map),
// fields, instances, and the recursive value tree that instance values and
// field defaults are built from.
//
// # Core concepts
//
//   - Type: the interface implemented by PrimitiveType, ObjectType, ListType
//     and MapType. Every Type is addressable by an elemid.ElemID and carries
//     annotations plus annotation-type declarations.
//
//   - Field: one named, typed member of an ObjectType. Its declared Type is
//     a live reference to another Type value, rewritten in place once the
//     merger has produced the canonical object types (see the merge
//     package's updateMergedTypes step).
//
//   - InstanceElement: a named value of some Type, carrying a Value tree.
//
//   - Value: a closed, recursive sum type — primitive, list, map, reference
//     expression, static file, template, function call, or the dynamic
//     error-recovery value — expressed as an interface with an
//     unexported marker method, the way this codebase's lexer/parser layer
//     expresses its own closed AST node sets.
//
// Only PrimitiveType, ObjectType, ListType, MapType, InstanceElement and
// VarElement are ever used as keys in a merged element map; that closed set is captured by
// the TopLevelElement interface.
package element
