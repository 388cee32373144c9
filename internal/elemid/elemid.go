package elemid

import (
	"strings"
)

// GetFullName returns the canonical, stable string representation of id.
// This is the representation used as a key everywhere an element, field or
// annotation needs to be addressed or looked up.
func (id ElemID) GetFullName() string {
	if id.IDType == VarType {
		return strings.Join(append([]string{varAdapter}, id.NameParts...), ".")
	}

	parts := make([]string, 0, 2+len(id.NameParts)+1)
	parts = append(parts, id.Adapter, id.TypeName)
	if id.IDType != TypeType {
		parts = append(parts, string(id.IDType))
	}
	parts = append(parts, id.NameParts...)
	return strings.Join(parts, ".")
}

// String implements fmt.Stringer in terms of GetFullName, so ElemIDs print
// legibly in error messages and test failures.
func (id ElemID) String() string {
	return id.GetFullName()
}

// IsEqual reports whether id and other address the same element. Equality
// is defined purely in terms of the canonical full name.
func (id ElemID) IsEqual(other ElemID) bool {
	return id.GetFullName() == other.GetFullName()
}

// CreateNestedID returns a new ElemID addressing a path nested under id,
// by appending parts to its NameParts. Associative: calling CreateNestedID
// with several parts is equivalent to chaining single-part calls.
func (id ElemID) CreateNestedID(parts ...string) ElemID {
	if len(parts) == 0 {
		return id
	}
	nested := ElemID{
		Adapter:  id.Adapter,
		TypeName: id.TypeName,
		IDType:   id.IDType,
	}
	nested.NameParts = append(append([]string{}, id.NameParts...), parts...)
	return nested
}

// CreateParentID returns the ElemID of the immediate parent of id: id with
// its last name part dropped, or the owning type's ElemID when id is a
// field, attr or annotation id with no nested path below its own name.
// Calling CreateParentID on a top-level type id is a no-op.
func (id ElemID) CreateParentID() ElemID {
	switch id.IDType {
	case FieldType, AttrType, AnnotationType:
		if len(id.NameParts) <= 1 {
			return NewTypeID(id.Adapter, id.TypeName)
		}
	}
	if len(id.NameParts) > 0 {
		parent := ElemID{Adapter: id.Adapter, TypeName: id.TypeName, IDType: id.IDType}
		parent.NameParts = append([]string{}, id.NameParts[:len(id.NameParts)-1]...)
		return parent
	}
	if id.IDType == TypeType || id.IDType == VarType {
		return id
	}
	return NewTypeID(id.Adapter, id.TypeName)
}

// CreateTopLevelParentID returns the ElemID of the top-level element that id
// belongs to (the key under which it would be found in a merged element
// map), together with the remaining internal path from that top-level
// element down to id. Idempotent: calling it again on the returned
// top-level id yields itself and an empty path.
func (id ElemID) CreateTopLevelParentID() (ElemID, []string) {
	switch id.IDType {
	case VarType:
		return id, nil

	case InstanceType:
		if len(id.NameParts) == 0 {
			return id, nil
		}
		top := ElemID{Adapter: id.Adapter, TypeName: id.TypeName, IDType: InstanceType, NameParts: id.NameParts[:1]}
		return top, append([]string{}, id.NameParts[1:]...)

	case TypeType:
		top := NewTypeID(id.Adapter, id.TypeName)
		return top, append([]string{}, id.NameParts...)

	default: // FieldType, AttrType, AnnotationType
		top := NewTypeID(id.Adapter, id.TypeName)
		path := append([]string{string(id.IDType)}, id.NameParts...)
		return top, path
	}
}

// IsParentOf reports whether id is a strict ancestor of other: other's full
// name extends id's full name by one or more additional dot-separated
// segments, and both belong to the same top-level element (so a type is
// not a parent of its instances).
func (id ElemID) IsParentOf(other ElemID) bool {
	idTop, _ := id.CreateTopLevelParentID()
	otherTop, _ := other.CreateTopLevelParentID()
	if !idTop.IsEqual(otherTop) {
		return false
	}
	prefix := id.GetFullName()
	full := other.GetFullName()
	if len(full) <= len(prefix) {
		return false
	}
	return strings.HasPrefix(full, prefix) && full[len(prefix)] == '.'
}
