package element

import "github.com/vk/naclworkspace/internal/elemid"

// VarElement is a workspace variable: a named value declared in a `vars`
// block, scoped outside any adapter and addressed by an elemid.VarType id.
type VarElement struct {
	Base
	Value Value
}

// NewVarElement constructs a VarElement with the given ElemID and value.
func NewVarElement(id elemid.ElemID, value Value) *VarElement {
	return &VarElement{Base: newBase(id), Value: value}
}

func (*VarElement) isTopLevel() {}
