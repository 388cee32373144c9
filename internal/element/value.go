package element

import (
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/vk/naclworkspace/internal/elemid"
)

// Value is the closed, recursive sum type every instance value, field
// default and nested container entry is built from. It is expressed as an
// interface with an unexported marker method rather than a tagged struct,
// the same shape this codebase's AST nodes use for their own closed sets.
type Value interface {
	value()
}

// PrimitiveValue wraps a scalar cty.Value (string, number or boolean).
// go-cty backs the scalar representation so the validator can reuse
// cty/convert for type-conformance checks instead of hand-rolling numeric
// and boolean coercion.
type PrimitiveValue struct {
	Val cty.Value
}

func (*PrimitiveValue) value() {}

// GobEncode writes the scalar as JSON, since cty.Value has no exported
// fields for encoding/gob to encode.
func (p *PrimitiveValue) GobEncode() ([]byte, error) {
	return ctyjson.SimpleJSONValue{Value: p.Val}.MarshalJSON()
}

// GobDecode restores a scalar written by GobEncode, inferring its string,
// number or bool type from the JSON.
func (p *PrimitiveValue) GobDecode(data []byte) error {
	var v ctyjson.SimpleJSONValue
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	p.Val = v.Value
	return nil
}

// NewStringValue wraps a Go string as a PrimitiveValue.
func NewStringValue(s string) *PrimitiveValue { return &PrimitiveValue{Val: cty.StringVal(s)} }

// NewNumberValue wraps a Go float64 as a PrimitiveValue.
func NewNumberValue(n float64) *PrimitiveValue {
	return &PrimitiveValue{Val: cty.NumberFloatVal(n)}
}

// NewBoolValue wraps a Go bool as a PrimitiveValue.
func NewBoolValue(b bool) *PrimitiveValue { return &PrimitiveValue{Val: cty.BoolVal(b)} }

// Bool returns the boolean interpretation of the primitive, or false if it
// is not a boolean.
func (p *PrimitiveValue) Bool() bool {
	if p == nil || p.Val.Type() != cty.Bool || p.Val.IsNull() {
		return false
	}
	return p.Val.True()
}

// ListValue is an ordered, homogeneous-in-intent list of values.
type ListValue struct {
	Items []Value
}

func (*ListValue) value() {}

// NewListValue constructs a ListValue from items.
func NewListValue(items ...Value) *ListValue { return &ListValue{Items: items} }

// MapValue is a string-keyed mapping of values, used both for MapType
// instances and for ObjectType-shaped value trees.
type MapValue struct {
	Items map[string]Value
}

func (*MapValue) value() {}

// NewMapValue constructs a MapValue from the given entries.
func NewMapValue(items map[string]Value) *MapValue {
	if items == nil {
		items = map[string]Value{}
	}
	return &MapValue{Items: items}
}

// ReferenceExpression names another element (or a nested path beneath one)
// whose value should be substituted in. Resolved is an optional cached
// resolved value; resolvers must treat it only as a hint and are free to
// ignore or overwrite it.
type ReferenceExpression struct {
	Target   elemid.ElemID
	Resolved Value
}

func (*ReferenceExpression) value() {}

// NewReferenceExpression constructs an unresolved reference to target.
func NewReferenceExpression(target elemid.ElemID) *ReferenceExpression {
	return &ReferenceExpression{Target: target}
}

// StaticFile is a pointer to file content addressed by path and content
// hash: identical hash implies identical logical value, regardless of path.
type StaticFile struct {
	Path string
	Hash string
}

func (*StaticFile) value() {}

// NewStaticFile constructs a StaticFile reference.
func NewStaticFile(path, hash string) *StaticFile {
	return &StaticFile{Path: path, Hash: hash}
}

// TemplateFragment is one piece of a TemplateValue: either literal text or a
// reference to splice in at resolution time.
type TemplateFragment struct {
	Literal   string
	Reference *ReferenceExpression
}

// TemplateValue is a quoted string that mixes literal text with one or more
// `${...}` reference fragments. A quoted string with no references and a
// single literal fragment is lowered directly to a PrimitiveValue instead;
// TemplateValue exists only for the genuinely mixed case.
type TemplateValue struct {
	Parts []TemplateFragment
}

func (*TemplateValue) value() {}

// NewTemplateValue constructs a TemplateValue from its fragments.
func NewTemplateValue(parts ...TemplateFragment) *TemplateValue {
	return &TemplateValue{Parts: parts}
}

// FunctionCallValue is a `name(args...)` expression. Resolution of the call
// itself is an adapter concern, outside this workspace core; the value is
// carried verbatim so it round-trips through merge and validation.
type FunctionCallValue struct {
	Name string
	Args []Value
}

func (*FunctionCallValue) value() {}

// NewFunctionCallValue constructs a FunctionCallValue.
func NewFunctionCallValue(name string, args ...Value) *FunctionCallValue {
	return &FunctionCallValue{Name: name, Args: args}
}

// DynamicValue marks a value the parser could not make sense of but
// tolerated because error-recovery mode was enabled (the `*` wildcard).
type DynamicValue struct{}

func (*DynamicValue) value() {}

// NewDynamicValue constructs a DynamicValue.
func NewDynamicValue() *DynamicValue { return &DynamicValue{} }
