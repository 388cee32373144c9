// Package elemid provides a structured, type-safe representation for
// element identifiers within the element graph, based on the canonical
// dot-separated format described in the workspace's NaCl grammar, e.g.
// `adapter.typeName.instance.name.nested.0.path`.
//
// This package enforces the identifier schema and centralizes all
// formatting and parsing logic, so every other component compares and
// stores identifiers the same way.
package elemid

// IDType discriminates what kind of element a full name addresses.
type IDType string

const (
	// TypeType identifies a top-level type (PrimitiveType, ObjectType,
	// ListType or MapType).
	TypeType IDType = "type"
	// FieldType identifies a field nested inside an ObjectType.
	FieldType IDType = "field"
	// AttrType identifies a type-level annotation value.
	AttrType IDType = "attr"
	// AnnotationType identifies a type-level annotation-type declaration.
	AnnotationType IDType = "annotation"
	// InstanceType identifies an instance of some type.
	InstanceType IDType = "instance"
	// VarType identifies a workspace variable, scoped outside any adapter.
	VarType IDType = "var"
)

// varAdapter is the synthetic adapter name used for variable identifiers;
// variables have no adapter or type of their own.
const varAdapter = "var"

// ElemID is an immutable value type: two ElemIDs compare equal iff their
// canonical full names match, and the full name is the only thing ever
// hashed or used as a map key.
type ElemID struct {
	Adapter   string
	TypeName  string
	IDType    IDType
	NameParts []string
}

// NewTypeID builds the ElemID of a top-level type.
func NewTypeID(adapter, typeName string) ElemID {
	return ElemID{Adapter: adapter, TypeName: typeName, IDType: TypeType}
}

// NewInstanceID builds the ElemID of a top-level instance of typeName.
func NewInstanceID(adapter, typeName, name string) ElemID {
	return ElemID{Adapter: adapter, TypeName: typeName, IDType: InstanceType, NameParts: []string{name}}
}

// NewFieldID builds the ElemID of a field declared on typeName.
func NewFieldID(adapter, typeName, fieldName string) ElemID {
	return ElemID{Adapter: adapter, TypeName: typeName, IDType: FieldType, NameParts: []string{fieldName}}
}

// NewAttrID builds the ElemID of a type-level annotation value.
func NewAttrID(adapter, typeName, annotationName string) ElemID {
	return ElemID{Adapter: adapter, TypeName: typeName, IDType: AttrType, NameParts: []string{annotationName}}
}

// NewAnnotationTypeID builds the ElemID of a type-level annotation-type declaration.
func NewAnnotationTypeID(adapter, typeName, annotationName string) ElemID {
	return ElemID{Adapter: adapter, TypeName: typeName, IDType: AnnotationType, NameParts: []string{annotationName}}
}

// NewVarID builds the ElemID of a workspace variable.
func NewVarID(name string) ElemID {
	return ElemID{Adapter: varAdapter, IDType: VarType, NameParts: []string{name}}
}

// IsTopLevel reports whether id names an element that appears directly as a
// key in a merged element map: a type with no nested path, an instance with
// exactly its name and no nested path, or a variable.
func (id ElemID) IsTopLevel() bool {
	switch id.IDType {
	case TypeType:
		return len(id.NameParts) == 0
	case InstanceType:
		return len(id.NameParts) == 1
	case VarType:
		return true
	default:
		return false
	}
}
