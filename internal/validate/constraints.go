package validate

import (
	"math/big"
	"regexp"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/naclworkspace/internal/elemid"
	"github.com/vk/naclworkspace/internal/element"
)

// checkIllegalValue enforces the regex/enum/min/max annotations declared on
// field against a scalar value already known to conform to the field's
// declared type.
func checkIllegalValue(valID elemid.ElemID, prim *element.PrimitiveValue, field *element.Field, errs *[]*Error) {
	ann := field.Annotations()

	if re, ok := patternOf(ann[element.AnnotationRegex]); ok && prim.Val.Type() == cty.String {
		if !re.MatchString(prim.Val.AsString()) {
			*errs = append(*errs, &Error{
				Kind:    IllegalValue,
				ElemID:  valID,
				Message: "value does not match required pattern " + re.String(),
			})
		}
	}

	if enum, ok := ann[element.AnnotationEnum].(*element.ListValue); ok {
		if !isInEnum(prim, enum) {
			*errs = append(*errs, &Error{
				Kind:    IllegalValue,
				ElemID:  valID,
				Message: "value is not one of the permitted enum values",
			})
		}
	}

	if prim.Val.Type() == cty.Number {
		if min, ok := numberOf(ann[element.AnnotationMin]); ok && prim.Val.AsBigFloat().Cmp(min) < 0 {
			*errs = append(*errs, &Error{Kind: IllegalValue, ElemID: valID, Message: "value is below the permitted minimum"})
		}
		if max, ok := numberOf(ann[element.AnnotationMax]); ok && prim.Val.AsBigFloat().Cmp(max) > 0 {
			*errs = append(*errs, &Error{Kind: IllegalValue, ElemID: valID, Message: "value is above the permitted maximum"})
		}
	}
}

func patternOf(v element.Value) (*regexp.Regexp, bool) {
	prim, ok := v.(*element.PrimitiveValue)
	if !ok || prim.Val.Type() != cty.String {
		return nil, false
	}
	re, err := regexp.Compile(prim.Val.AsString())
	if err != nil {
		return nil, false
	}
	return re, true
}

func numberOf(v element.Value) (*big.Float, bool) {
	prim, ok := v.(*element.PrimitiveValue)
	if !ok || prim.Val.Type() != cty.Number {
		return nil, false
	}
	return prim.Val.AsBigFloat(), true
}

func isInEnum(prim *element.PrimitiveValue, enum *element.ListValue) bool {
	for _, item := range enum.Items {
		if other, ok := item.(*element.PrimitiveValue); ok && prim.Val.RawEquals(other.Val) {
			return true
		}
	}
	return false
}
