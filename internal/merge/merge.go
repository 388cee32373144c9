package merge

import (
	"sort"

	"github.com/vk/naclworkspace/internal/element"
)

// Fragment is one top-level element as parsed out of a single file. File is
// used only to decide whether two annotation-value writers are "the same
// file" (last-writer-wins) or different files (error-on-conflict).
type Fragment struct {
	Element element.TopLevelElement
	File    string
}

// Merge combines fragments into a canonical map from full name to element,
// plus the errors noticed along the way. It is pure: it never mutates a
// Fragment's Element, always building fresh merged elements instead.
func Merge(fragments []Fragment) (map[string]element.TopLevelElement, []*Error) {
	groups := map[string][]Fragment{}
	order := []string{}
	for _, f := range fragments {
		name := f.Element.ElemID().GetFullName()
		if _, ok := groups[name]; !ok {
			order = append(order, name)
		}
		groups[name] = append(groups[name], f)
	}
	sort.Strings(order)

	merged := make(map[string]element.TopLevelElement, len(order))
	var errs []*Error

	for _, name := range order {
		group := groups[name]
		el, groupErrs := mergeGroup(group)
		errs = append(errs, groupErrs...)
		if el != nil {
			merged[name] = el
		}
	}

	errs = append(errs, updateMergedTypes(merged)...)
	return merged, errs
}

type fragmentKind int

const (
	kindType fragmentKind = iota
	kindInstance
	kindVar
)

func classify(el element.TopLevelElement) fragmentKind {
	switch el.(type) {
	case *element.InstanceElement:
		return kindInstance
	case *element.VarElement:
		return kindVar
	default:
		return kindType
	}
}

func mergeGroup(group []Fragment) (element.TopLevelElement, []*Error) {
	first := group[0].Element
	kind := classify(first)
	id := first.ElemID()

	for _, f := range group[1:] {
		if classify(f.Element) != kind {
			return first, []*Error{{
				Kind:    DuplicationError,
				ElemID:  id,
				Message: "fragments disagree on element kind",
			}}
		}
	}

	switch kind {
	case kindType:
		return mergeTypeGroup(group)
	case kindInstance:
		return mergeInstanceGroup(group)
	case kindVar:
		return mergeVarGroup(group)
	default:
		return first, nil
	}
}

func mergeVarGroup(group []Fragment) (element.TopLevelElement, []*Error) {
	first := group[0].Element.(*element.VarElement)
	if len(group) == 1 {
		return first, nil
	}

	value := first.Value
	var errs []*Error
	for _, f := range group[1:] {
		v := f.Element.(*element.VarElement)
		merged, mergeErrs := mergeValue(first.ElemID(), nil, value, v.Value, group[0].File, f.File)
		errs = append(errs, mergeErrs...)
		value = merged
	}
	out := element.NewVarElement(first.ElemID(), value)
	return out, errs
}
