package validate

import (
	"sort"
	"strconv"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/naclworkspace/internal/elemid"
	"github.com/vk/naclworkspace/internal/element"
)

// validateAgainstObjectType checks root (expected to be a *element.MapValue)
// against obj's field set: every present field is type- and constraint-
// checked, every missing field annotated required is reported.
func validateAgainstObjectType(ownerID elemid.ElemID, path []string, root element.Value, obj *element.ObjectType, errs *[]*Error) {
	m, ok := root.(*element.MapValue)
	if !ok {
		*errs = append(*errs, &Error{
			Kind:    TypeConformance,
			ElemID:  ownerID.CreateNestedID(path...),
			Message: "expected an object value",
		})
		return
	}

	for _, name := range sortedFieldNames(obj) {
		field := obj.Fields[name]
		fieldPath := append(append([]string{}, path...), name)

		val, present := m.Items[name]
		if !present {
			if isRequired(field) {
				*errs = append(*errs, &Error{
					Kind:    MissingRequired,
					ElemID:  ownerID.CreateNestedID(fieldPath...),
					Message: "required field " + name + " is missing",
				})
			}
			continue
		}

		checkValue(ownerID, fieldPath, val, field.Type, field, errs)
	}
}

// checkValue type-checks val against typ and, for scalar fields, applies any
// regex/enum/range constraint annotations. field is nil when checking a
// list/map element rather than a field's own value directly; constraints
// are only evaluated at the field's own value, never per composite element,
// since the spec gives no element-wise semantics for them.
func checkValue(ownerID elemid.ElemID, path []string, val element.Value, typ element.Type, field *element.Field, errs *[]*Error) {
	switch val.(type) {
	case *element.ReferenceExpression, *element.DynamicValue, *element.FunctionCallValue:
		// Resolved lazily outside this pass; nothing statically checkable yet.
		return
	}

	switch t := typ.(type) {
	case *element.PrimitiveType:
		prim, ok := val.(*element.PrimitiveValue)
		if !ok {
			if _, ok := val.(*element.TemplateValue); ok {
				// Always resolves to a string; nothing further to check here.
				return
			}
			*errs = append(*errs, &Error{
				Kind:    TypeConformance,
				ElemID:  ownerID.CreateNestedID(path...),
				Message: "expected a scalar value",
			})
			return
		}
		if _, err := convert.Convert(prim.Val, ctyTypeForKind(t.Kind)); err != nil {
			*errs = append(*errs, &Error{
				Kind:    TypeConformance,
				ElemID:  ownerID.CreateNestedID(path...),
				Message: "cannot convert " + prim.Val.Type().FriendlyName() + " to " + string(t.Kind) + ": " + err.Error(),
			})
			return
		}
		if field != nil {
			checkIllegalValue(ownerID.CreateNestedID(path...), prim, field, errs)
		}

	case *element.ObjectType:
		validateAgainstObjectType(ownerID, path, val, t, errs)

	case *element.ListType:
		list, ok := val.(*element.ListValue)
		if !ok {
			*errs = append(*errs, &Error{
				Kind:    TypeConformance,
				ElemID:  ownerID.CreateNestedID(path...),
				Message: "expected a list value",
			})
			return
		}
		for i, item := range list.Items {
			itemPath := append(append([]string{}, path...), indexSegment(i))
			checkValue(ownerID, itemPath, item, t.InnerType, nil, errs)
		}

	case *element.MapType:
		m, ok := val.(*element.MapValue)
		if !ok {
			*errs = append(*errs, &Error{
				Kind:    TypeConformance,
				ElemID:  ownerID.CreateNestedID(path...),
				Message: "expected a map value",
			})
			return
		}
		keys := make([]string, 0, len(m.Items))
		for k := range m.Items {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			itemPath := append(append([]string{}, path...), k)
			checkValue(ownerID, itemPath, m.Items[k], t.InnerType, nil, errs)
		}
	}
}

func ctyTypeForKind(kind element.PrimitiveKind) cty.Type {
	switch kind {
	case element.StringKind:
		return cty.String
	case element.NumberKind:
		return cty.Number
	case element.BooleanKind:
		return cty.Bool
	default:
		return cty.DynamicPseudoType
	}
}

func isRequired(field *element.Field) bool {
	v, ok := field.Annotations()[element.AnnotationRequired]
	if !ok {
		return false
	}
	prim, ok := v.(*element.PrimitiveValue)
	return ok && prim.Bool()
}

func sortedFieldNames(obj *element.ObjectType) []string {
	names := make([]string, 0, len(obj.Fields))
	for name := range obj.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func indexSegment(i int) string {
	return strconv.Itoa(i)
}
