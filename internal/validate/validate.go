package validate

import (
	"github.com/vk/naclworkspace/internal/elemid"
	"github.com/vk/naclworkspace/internal/element"
)

// Validate runs every applicable rule against each element in subset,
// resolving references against the full universe map. It never mutates
// subset or universe.
func Validate(subset []element.TopLevelElement, universe map[string]element.TopLevelElement) []*Error {
	var errs []*Error
	for _, el := range subset {
		switch e := el.(type) {
		case *element.InstanceElement:
			validateInstance(e, universe, &errs)
		case *element.VarElement:
			for _, ref := range collectReferences(e.Value, nil) {
				checkReference(e.ElemID(), ref, universe, &errs)
			}
		case *element.ObjectType:
			validateObjectTypeRefs(e, universe, &errs)
		case *element.ListType:
			checkTypeResolved(e.ElemID(), e.InnerType, universe, &errs)
		case *element.MapType:
			checkTypeResolved(e.ElemID(), e.InnerType, universe, &errs)
		}
	}
	return errs
}

func validateInstance(inst *element.InstanceElement, universe map[string]element.TopLevelElement, errs *[]*Error) {
	checkTypeResolved(inst.ElemID(), inst.TypeRef, universe, errs)
	if obj, ok := inst.TypeRef.(*element.ObjectType); ok {
		if _, stillDeclared := universe[obj.ElemID().GetFullName()]; stillDeclared {
			validateAgainstObjectType(inst.ElemID(), nil, inst.Value, obj, errs)
		}
	}

	for _, ref := range collectReferences(inst.Value, nil) {
		checkReference(inst.ElemID(), ref, universe, errs)
	}
}

func validateObjectTypeRefs(obj *element.ObjectType, universe map[string]element.TopLevelElement, errs *[]*Error) {
	for _, name := range sortedFieldNames(obj) {
		field := obj.Fields[name]
		checkTypeResolved(field.ElemID(), field.Type, universe, errs)
	}
}

// checkTypeResolved flags a Field/InnerType whose declared type is a stub
// ObjectType that no fragment ever actually declared (see merge's
// updateMergedTypes): such a stub never makes it into universe under its
// own full name, so the lookup fails.
func checkTypeResolved(id elemid.ElemID, typ element.Type, universe map[string]element.TopLevelElement, errs *[]*Error) {
	switch t := typ.(type) {
	case *element.ObjectType:
		if _, ok := universe[t.ElemID().GetFullName()]; !ok {
			*errs = append(*errs, &Error{
				Kind:    UnresolvedReference,
				ElemID:  id,
				Message: "type " + t.ElemID().String() + " is never declared",
			})
		}
	case *element.ListType:
		checkTypeResolved(id, t.InnerType, universe, errs)
	case *element.MapType:
		checkTypeResolved(id, t.InnerType, universe, errs)
	}
}

// checkReference anchors its errors on owner, the element holding the
// reference, rather than ref.Target: the target is by definition either
// never declared (unresolved) or no longer declared (removed), so it never
// has a source range of its own for an editor client to point at.
func checkReference(owner elemid.ElemID, ref *element.ReferenceExpression, universe map[string]element.TopLevelElement, errs *[]*Error) {
	if _, ok := lookupValue(universe, ref.Target); !ok {
		*errs = append(*errs, &Error{
			Kind:    UnresolvedReference,
			ElemID:  owner,
			Target:  ref.Target,
			Message: "reference does not resolve: " + ref.Target.String(),
		})
		return
	}
	if detectCycle(owner.GetFullName(), ref.Target, universe) {
		*errs = append(*errs, &Error{
			Kind:    CircularReference,
			ElemID:  owner,
			Target:  ref.Target,
			Message: "circular reference chain starting at " + ref.Target.String(),
		})
	}
}
