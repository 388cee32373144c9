package merge

import (
	"sort"

	"github.com/google/go-cmp/cmp"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/naclworkspace/internal/elemid"
	"github.com/vk/naclworkspace/internal/element"
)

// ctyValueComparer lets cmp.Equal descend through element.Value trees that
// bottom out in a cty.Value (PrimitiveValue.Val): cty.Value carries
// unexported fields cmp cannot see into on its own, so it's compared via
// its own RawEquals instead, the same equality cty's own tests use.
var ctyValueComparer = cmp.Comparer(func(a, b cty.Value) bool {
	return a.RawEquals(b)
})

func mergeInstanceGroup(group []Fragment) (element.TopLevelElement, []*Error) {
	first := group[0].Element.(*element.InstanceElement)
	if len(group) == 1 {
		return first, nil
	}

	value := first.Value
	var errs []*Error
	for _, f := range group[1:] {
		inst := f.Element.(*element.InstanceElement)
		merged, mergeErrs := mergeValue(first.ElemID(), nil, value, inst.Value, group[0].File, f.File)
		errs = append(errs, mergeErrs...)
		value = merged
	}

	out := element.NewInstanceElement(first.ElemID(), first.TypeRef, value)
	mergeAnnotationsInto(out, group, &errs)
	return out, errs
}

// mergeValue structurally merges two value trees rooted at the same path
// under owner, recording a DuplicateInstanceKeyError for any primitive
// leaf (or value-shape) conflict. b always wins ties coming from the same
// file (fileA == fileB), matching the "last write wins within one file"
// rule; across files a conflict is always an error and a is kept, so the
// result is deterministic regardless of group ordering beyond the sort
// already applied to fragments.
func mergeValue(owner elemid.ElemID, path []string, a, b element.Value, fileA, fileB string) (element.Value, []*Error) {
	if a == nil {
		return b, nil
	}
	if b == nil {
		return a, nil
	}

	am, aIsMap := a.(*element.MapValue)
	bm, bIsMap := b.(*element.MapValue)
	if aIsMap && bIsMap {
		return mergeMapValues(owner, am, bm, path, fileA, fileB)
	}

	al, aIsList := a.(*element.ListValue)
	bl, bIsList := b.(*element.ListValue)
	if aIsList && bIsList {
		return mergeListValues(owner, al, bl, path, fileA, fileB)
	}

	if valuesEqual(a, b) {
		return a, nil
	}
	if fileA == fileB {
		return b, nil
	}
	return a, []*Error{{
		Kind:    DuplicateInstanceKeyError,
		ElemID:  owner.CreateNestedID(path...),
		Message: "conflicting value at path " + pathString(path),
	}}
}

func mergeMapValues(owner elemid.ElemID, a, b *element.MapValue, path []string, fileA, fileB string) (element.Value, []*Error) {
	keys := map[string]bool{}
	for k := range a.Items {
		keys[k] = true
	}
	for k := range b.Items {
		keys[k] = true
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	items := make(map[string]element.Value, len(sorted))
	var errs []*Error
	for _, k := range sorted {
		childPath := append(append([]string{}, path...), k)
		merged, mergeErrs := mergeValue(owner, childPath, a.Items[k], b.Items[k], fileA, fileB)
		errs = append(errs, mergeErrs...)
		if merged != nil {
			items[k] = merged
		}
	}
	return element.NewMapValue(items), errs
}

func mergeListValues(owner elemid.ElemID, a, b *element.ListValue, path []string, fileA, fileB string) (element.Value, []*Error) {
	if valuesEqual(a, b) {
		return a, nil
	}
	if fileA == fileB {
		return b, nil
	}
	return a, []*Error{{
		Kind:    DuplicateInstanceKeyError,
		ElemID:  owner.CreateNestedID(path...),
		Message: "conflicting list value at path " + pathString(path),
	}}
}

// valuesEqual is a structural equality check over the Value sum type, used
// to decide whether two fragments actually disagree or just happen to
// declare the same value twice (not an error).
func valuesEqual(a, b element.Value) bool {
	return cmp.Equal(a, b, ctyValueComparer)
}

func pathString(path []string) string {
	if len(path) == 0 {
		return "<root>"
	}
	s := path[0]
	for _, p := range path[1:] {
		s += "." + p
	}
	return s
}
