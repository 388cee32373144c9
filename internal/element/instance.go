package element

import "github.com/vk/naclworkspace/internal/elemid"

// Instance annotation keys: the closed set of annotation names legal on an
// InstanceElement. Lowering puts only these keys into an instance's
// Annotations map and lowers every other attribute as a value entry; the
// validator does not check annotation keys.
const (
	AnnotationHiddenValue           = "_hidden_value"
	AnnotationDependsOn             = "_depends_on"
	AnnotationGeneratedDependencies = "_generated_dependencies"
	AnnotationServiceURL            = "_service_url"
)

// InstanceAnnotationNames is the closed set of legal instance annotation keys.
var InstanceAnnotationNames = map[string]bool{
	AnnotationHiddenValue:           true,
	AnnotationDependsOn:             true,
	AnnotationGeneratedDependencies: true,
	AnnotationServiceURL:            true,
}

// InstanceElement is a named instance of some Type, carrying a Value tree.
type InstanceElement struct {
	Base
	TypeRef Type
	Value   Value
}

// NewInstanceElement constructs an InstanceElement of typeRef with the given
// ElemID and value tree.
func NewInstanceElement(id elemid.ElemID, typeRef Type, value Value) *InstanceElement {
	return &InstanceElement{Base: newBase(id), TypeRef: typeRef, Value: value}
}

func (*InstanceElement) isTopLevel() {}

// IsHidden reports whether this instance is annotated as hidden-only state,
// i.e. it should never surface in NaCl source.
func (e *InstanceElement) IsHidden() bool {
	v, ok := e.Annotations()[AnnotationHiddenValue]
	if !ok {
		return false
	}
	prim, ok := v.(*PrimitiveValue)
	return ok && prim.Bool()
}
