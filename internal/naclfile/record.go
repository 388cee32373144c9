package naclfile

import (
	"encoding/gob"

	"github.com/vk/naclworkspace/internal/elemid"
	"github.com/vk/naclworkspace/internal/element"
	"github.com/vk/naclworkspace/internal/naclparse"
	"github.com/vk/naclworkspace/internal/sourcepos"
)

// Record is the on-disk cache payload for one parsed file: a faithful copy
// of naclparse.Output. The cache key already includes the file's content
// hash, so a cache hit only ever serves a record produced by parsing that
// exact content; a cached record going stale relative to a changed parser
// implementation is the same ordinary cache caveat that applies to every
// field here, not just the errors.
type Record struct {
	Fragments  []element.TopLevelElement
	Errors     []*naclparse.ParseError
	SourceMap  sourcepos.SourceMap
	Referenced map[string]elemid.ElemID
}

// init registers every concrete type that can appear inside a Record's
// interface-typed fields (element.TopLevelElement, element.Type,
// element.Value) so gob can encode and decode them without a schema.
func init() {
	gob.Register(&element.PrimitiveType{})
	gob.Register(&element.ObjectType{})
	gob.Register(&element.ListType{})
	gob.Register(&element.MapType{})
	gob.Register(&element.InstanceElement{})
	gob.Register(&element.VarElement{})
	gob.Register(&element.Field{})

	gob.Register(&element.PrimitiveValue{})
	gob.Register(&element.ListValue{})
	gob.Register(&element.MapValue{})
	gob.Register(&element.ReferenceExpression{})
	gob.Register(&element.StaticFile{})
	gob.Register(&element.TemplateValue{})
	gob.Register(&element.FunctionCallValue{})
	gob.Register(&element.DynamicValue{})
}
