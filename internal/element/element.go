package element

import "github.com/vk/naclworkspace/internal/elemid"

// Element is implemented by every addressable node in the graph: the four
// Type kinds, Field, InstanceElement and VarElement.
type Element interface {
	ElemID() elemid.ElemID
	// Path is the ordered sequence of path segments used to re-derive which
	// file this element was fragmented into. Nil for synthetic elements
	// (e.g. ones contributed only by the hidden-state overlay).
	Path() []string
	SetPath(path []string)
	Annotations() map[string]Value
}

// TopLevelElement is the closed set of Element kinds that appear as keys in
// a merged element map: PrimitiveType, ObjectType, ListType, MapType,
// InstanceElement and VarElement. Field is addressable (it has its own ElemID) but is
// always reached through its owning ObjectType, never directly.
type TopLevelElement interface {
	Element
	isTopLevel()
}

// Type is the interface implemented by every declared type: PrimitiveType,
// ObjectType, ListType, and MapType.
type Type interface {
	Element
	AnnotationTypes() map[string]Type
	isType()
}

// Base holds the fields common to every Element implementation. Embedding
// it gives each concrete type ElemID/Path/Annotations/AnnotationTypes
// accessors for free. Its fields are exported (despite never being touched
// directly outside this package) so it round-trips through encoding/gob:
// gob only encodes exported fields, and an anonymous field is exported or
// not based on its type's name, so an unexported embedded struct is
// invisible to gob regardless of what's inside it.
type Base struct {
	ID                elemid.ElemID
	PathSegments      []string
	AnnotationValues  map[string]Value
	AnnotationTypeMap map[string]Type
}

func newBase(id elemid.ElemID) Base {
	return Base{
		ID:                id,
		AnnotationValues:  map[string]Value{},
		AnnotationTypeMap: map[string]Type{},
	}
}

func (b *Base) ElemID() elemid.ElemID { return b.ID }

func (b *Base) Path() []string {
	if b.PathSegments == nil {
		return nil
	}
	return append([]string{}, b.PathSegments...)
}

func (b *Base) SetPath(path []string) {
	if path == nil {
		b.PathSegments = nil
		return
	}
	b.PathSegments = append([]string{}, path...)
}

func (b *Base) Annotations() map[string]Value {
	if b.AnnotationValues == nil {
		b.AnnotationValues = map[string]Value{}
	}
	return b.AnnotationValues
}

func (b *Base) AnnotationTypes() map[string]Type {
	if b.AnnotationTypeMap == nil {
		b.AnnotationTypeMap = map[string]Type{}
	}
	return b.AnnotationTypeMap
}
