package merge

import "github.com/vk/naclworkspace/internal/element"

// ResolveTypes re-runs the stub-type resolution pass against merged. It is
// exported for callers that splice a freshly merged subset of elements
// into an already-resolved universe (workspace's incremental re-merge):
// the subset's own Merge call only ever sees its own fragments, so any
// stub type it produced pointing outside that subset is left unresolved
// until ResolveTypes runs again against the full, spliced-together map.
func ResolveTypes(merged map[string]element.TopLevelElement) []*Error {
	return updateMergedTypes(merged)
}

// updateMergedTypes rewrites every type-valued field (and every
// InstanceElement's TypeRef) in merged so that stub types produced by a
// single-file parse (same ElemID as a real type, but an empty forward
// declaration) point at the canonical merged Type instead. A stub whose
// ElemID has no corresponding entry in merged is left as-is and picked up
// later as an unresolved reference by the validator.
func updateMergedTypes(merged map[string]element.TopLevelElement) []*Error {
	var errs []*Error
	for _, el := range merged {
		switch t := el.(type) {
		case *element.ObjectType:
			for _, field := range t.Fields {
				field.Type = resolveType(field.Type, merged)
			}
		case *element.InstanceElement:
			t.TypeRef = resolveType(t.TypeRef, merged)
		}
	}
	return errs
}

// resolveType replaces typ with its canonical counterpart in merged when one
// exists, recursing into List/Map wrappers so a field declared as
// `list salesforce.Account` also gets its inner type swapped.
func resolveType(typ element.Type, merged map[string]element.TopLevelElement) element.Type {
	switch t := typ.(type) {
	case *element.ObjectType:
		if canon, ok := merged[t.ElemID().GetFullName()]; ok {
			if co, ok := canon.(*element.ObjectType); ok {
				return co
			}
		}
		return t

	case *element.ListType:
		t.InnerType = resolveType(t.InnerType, merged)
		return t

	case *element.MapType:
		t.InnerType = resolveType(t.InnerType, merged)
		return t

	default:
		return typ
	}
}
