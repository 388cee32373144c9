package element

import "github.com/vk/naclworkspace/internal/elemid"

// PrimitiveKind enumerates the built-in scalar kinds a PrimitiveType can
// declare.
type PrimitiveKind string

const (
	StringKind  PrimitiveKind = "string"
	NumberKind  PrimitiveKind = "number"
	BooleanKind PrimitiveKind = "boolean"
	UnknownKind PrimitiveKind = "unknown"
)

// PrimitiveType is a built-in scalar type.
type PrimitiveType struct {
	Base
	Kind PrimitiveKind
}

// NewPrimitiveType constructs a PrimitiveType with the given ElemID and kind.
func NewPrimitiveType(id elemid.ElemID, kind PrimitiveKind) *PrimitiveType {
	return &PrimitiveType{Base: newBase(id), Kind: kind}
}

func (*PrimitiveType) isType()     {}
func (*PrimitiveType) isTopLevel() {}

// Field is one named, typed member of an ObjectType.
type Field struct {
	Base
	ParentID elemid.ElemID
	Name     string
	Type     Type
}

// NewField constructs a Field declared on the given parent ObjectType id.
func NewField(parentID elemid.ElemID, name string, fieldType Type) *Field {
	return &Field{
		Base:     newBase(elemid.NewFieldID(parentID.Adapter, parentID.TypeName, name)),
		ParentID: parentID,
		Name:     name,
		Type:     fieldType,
	}
}

// Field constraint annotation keys: the closed set of annotation names the
// validator's illegal-value and missing-required rules enforce on an
// instance value at a given field.
const (
	AnnotationRequired = "_required"
	AnnotationRegex    = "_regex"
	AnnotationEnum     = "_enum"
	AnnotationMin      = "_values_min"
	AnnotationMax      = "_values_max"
)

// FieldAnnotationNames is the closed set of legal field annotation keys.
var FieldAnnotationNames = map[string]bool{
	AnnotationRequired: true,
	AnnotationRegex:    true,
	AnnotationEnum:     true,
	AnnotationMin:      true,
	AnnotationMax:      true,
}

// ObjectType is a mapping from field name (unique) to Field, plus an
// isSettings bit distinguishing singleton "settings" types from ordinary
// multi-instance types.
type ObjectType struct {
	Base
	Fields     map[string]*Field
	IsSettings bool
}

// NewObjectType constructs an empty ObjectType with the given ElemID.
func NewObjectType(id elemid.ElemID) *ObjectType {
	return &ObjectType{Base: newBase(id), Fields: map[string]*Field{}}
}

func (*ObjectType) isType()     {}
func (*ObjectType) isTopLevel() {}

// ListType wraps an inner type, declaring that values of this type are
// homogeneous lists of the inner type.
type ListType struct {
	Base
	InnerType Type
}

// NewListType constructs a ListType wrapping innerType.
func NewListType(id elemid.ElemID, innerType Type) *ListType {
	return &ListType{Base: newBase(id), InnerType: innerType}
}

func (*ListType) isType()     {}
func (*ListType) isTopLevel() {}

// MapType wraps an inner type, declaring that values of this type are
// string-keyed maps of the inner type.
type MapType struct {
	Base
	InnerType Type
}

// NewMapType constructs a MapType wrapping innerType.
func NewMapType(id elemid.ElemID, innerType Type) *MapType {
	return &MapType{Base: newBase(id), InnerType: innerType}
}

func (*MapType) isType()     {}
func (*MapType) isTopLevel() {}
