package merge

import (
	"reflect"
	"sort"

	"github.com/google/go-cmp/cmp"

	"github.com/vk/naclworkspace/internal/element"
)

func mergeTypeGroup(group []Fragment) (element.TopLevelElement, []*Error) {
	first := group[0].Element
	obj, allObjects := first.(*element.ObjectType)
	if !allObjects {
		return mergeNonObjectTypeGroup(group)
	}
	for _, f := range group[1:] {
		if _, ok := f.Element.(*element.ObjectType); !ok {
			return first, []*Error{{
				Kind:    DuplicationError,
				ElemID:  first.ElemID(),
				Message: "fragments disagree on element kind",
			}}
		}
	}

	merged := element.NewObjectType(obj.ElemID())
	merged.IsSettings = obj.IsSettings

	var errs []*Error
	for _, f := range group {
		o := f.Element.(*element.ObjectType)
		if o.IsSettings != merged.IsSettings {
			errs = append(errs, &Error{
				Kind:    DuplicationError,
				ElemID:  merged.ElemID(),
				Message: "isSettings disagreement across fragments",
			})
		}

		names := make([]string, 0, len(o.Fields))
		for n := range o.Fields {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, name := range names {
			field := o.Fields[name]
			if _, exists := merged.Fields[name]; exists {
				errs = append(errs, &Error{
					Kind:    DuplicateAnnotationError,
					ElemID:  field.ElemID(),
					Message: "field redeclared: " + name,
				})
				continue
			}
			merged.Fields[name] = field
		}
	}

	mergeAnnotationsInto(merged, group, &errs)
	return merged, errs
}

// mergeNonObjectTypeGroup handles PrimitiveType/ListType/MapType groups,
// which the spec does not describe a merge algorithm for beyond the general
// "fragments must agree" rule: distinct declarations of the same full name
// as, say, two differently-shaped ListTypes is a DuplicationError, keeping
// the first.
func mergeNonObjectTypeGroup(group []Fragment) (element.TopLevelElement, []*Error) {
	first := group[0].Element
	for _, f := range group[1:] {
		if reflect.TypeOf(f.Element) != reflect.TypeOf(first) || !sameShape(first, f.Element) {
			return first, []*Error{{
				Kind:    DuplicationError,
				ElemID:  first.ElemID(),
				Message: "conflicting redeclaration of the same type",
			}}
		}
	}
	return first, nil
}

func sameShape(a, b element.TopLevelElement) bool {
	switch av := a.(type) {
	case *element.PrimitiveType:
		bv := b.(*element.PrimitiveType)
		return av.Kind == bv.Kind
	case *element.ListType:
		bv := b.(*element.ListType)
		return av.InnerType.ElemID().IsEqual(bv.InnerType.ElemID())
	case *element.MapType:
		bv := b.(*element.MapType)
		return av.InnerType.ElemID().IsEqual(bv.InnerType.ElemID())
	default:
		return false
	}
}

// mergeAnnotationsInto folds every fragment's Annotations() map into
// target's, last-writer-wins for two fragments from the same file,
// error-on-conflict across files.
func mergeAnnotationsInto(target element.Element, group []Fragment, errs *[]*Error) {
	type writer struct {
		value element.Value
		file  string
	}
	written := map[string]writer{}
	names := []string{}

	appendErr := func(e *Error) {
		*errs = append(*errs, e)
	}

	for _, f := range group {
		keys := make([]string, 0, len(f.Element.Annotations()))
		for k := range f.Element.Annotations() {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := f.Element.Annotations()[k]
			prev, seen := written[k]
			if !seen {
				written[k] = writer{value: v, file: f.File}
				names = append(names, k)
				continue
			}
			if cmp.Equal(prev.value, v, ctyValueComparer) {
				continue
			}
			if prev.file == f.File {
				written[k] = writer{value: v, file: f.File}
				continue
			}
			appendErr(&Error{
				Kind:    DuplicateAnnotationError,
				ElemID:  target.ElemID(),
				Message: "conflicting annotation value: " + k,
			})
		}
	}

	sort.Strings(names)
	for _, k := range names {
		target.Annotations()[k] = written[k].value
	}
}
