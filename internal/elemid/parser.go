package elemid

import (
	"fmt"
	"strings"
)

// idTypeTokens lists the idType keywords that can appear as the third
// dot-separated segment of a full name; any other third segment is treated
// as the start of a nested path under a bare type id.
var idTypeTokens = map[string]IDType{
	string(FieldType):      FieldType,
	string(AttrType):       AttrType,
	string(AnnotationType): AnnotationType,
	string(InstanceType):   InstanceType,
}

// FromFullName parses the canonical string representation of an ElemID
// produced by GetFullName back into a structured ElemID. It is the strict
// inverse of GetFullName: FromFullName(id.GetFullName()) == id for every id.
func FromFullName(fullName string) (ElemID, error) {
	if fullName == "" {
		return ElemID{}, fmt.Errorf("elemid: full name cannot be empty")
	}

	parts := strings.Split(fullName, ".")
	for _, p := range parts {
		if p == "" {
			return ElemID{}, fmt.Errorf("elemid: full name %q contains an empty segment", fullName)
		}
	}

	if parts[0] == varAdapter && len(parts) == 2 {
		return NewVarID(parts[1]), nil
	}

	if len(parts) < 2 {
		return ElemID{}, fmt.Errorf("elemid: full name %q must have at least an adapter and a type", fullName)
	}

	adapter, typeName := parts[0], parts[1]
	rest := parts[2:]

	if len(rest) == 0 {
		return NewTypeID(adapter, typeName), nil
	}

	if idType, ok := idTypeTokens[rest[0]]; ok {
		return ElemID{Adapter: adapter, TypeName: typeName, IDType: idType, NameParts: append([]string{}, rest[1:]...)}, nil
	}

	// No recognized idType keyword: the remainder is a nested path under
	// the bare type itself.
	return ElemID{Adapter: adapter, TypeName: typeName, IDType: TypeType, NameParts: append([]string{}, rest...)}, nil
}
