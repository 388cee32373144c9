package element

import "strconv"

// TransformFunc is called once per value node encountered by Transform. It
// receives the value, the path segments from the root down to (and
// including) this node, and the field argument given to Transform when the
// node is the root (nil for every list item and map entry below it). Returning
// ok=false drops the node: from a list it is omitted, from a map its key is
// omitted, and at the root it yields a nil Value.
type TransformFunc func(v Value, path []string, field *Field) (out Value, ok bool)

// Transform walks v depth-first, applying fn to every node. It:
//   - short-circuits on *ReferenceExpression: fn is called on the reference
//     itself, but Transform never descends into its cached Resolved value,
//     so rewriting a reference is entirely fn's responsibility;
//   - descends into ListValue/MapValue regardless of any declared inner
//     type, since the Value tree does not itself carry a type tag;
//   - drops containers that become empty only when fn itself returns
//     ok=false for the container node (emptying via descendant removal does
//     not implicitly delete the parent).
func Transform(v Value, path []string, field *Field, fn TransformFunc) Value {
	out, ok := fn(v, path, field)
	if !ok {
		return nil
	}

	switch t := out.(type) {
	case *ListValue:
		items := make([]Value, 0, len(t.Items))
		for i, item := range t.Items {
			childPath := append(append([]string{}, path...), strconv.Itoa(i))
			if transformed := Transform(item, childPath, nil, fn); transformed != nil {
				items = append(items, transformed)
			}
		}
		return &ListValue{Items: items}

	case *MapValue:
		items := make(map[string]Value, len(t.Items))
		for k, item := range t.Items {
			childPath := append(append([]string{}, path...), k)
			if transformed := Transform(item, childPath, nil, fn); transformed != nil {
				items[k] = transformed
			}
		}
		return &MapValue{Items: items}

	default:
		// *PrimitiveValue, *ReferenceExpression, *StaticFile: leaves, passed
		// through untouched beyond what fn already did.
		return out
	}
}
