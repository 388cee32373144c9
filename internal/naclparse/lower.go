package naclparse

import (
	"strings"

	"github.com/vk/naclworkspace/internal/elemid"
	"github.com/vk/naclworkspace/internal/element"
	"github.com/vk/naclworkspace/internal/sourcepos"
)

// Output is the result of parsing and lowering one NaCl file:
// {elements, errors, sourceMap, referenced}.
type Output struct {
	Elements   []element.TopLevelElement
	Errors     []*ParseError
	SourceMap  sourcepos.SourceMap
	Referenced map[string]elemid.ElemID
}

// Parse tokenizes, parses and lowers one NaCl file in a single pass. filename
// is used only to stamp source ranges; it need not be a real path.
func Parse(filename, src string, opts ...Option) *Output {
	file, errs := parseFile(filename, src, opts...)
	l := &lowerer{filename: filename, src: src, sourceMap: sourcepos.SourceMap{}, referenced: map[string]elemid.ElemID{}}
	for _, b := range file.Blocks {
		l.lowerTopLevelBlock(b)
	}
	return &Output{
		Elements:   l.elements,
		Errors:     append(errs, l.errs...),
		SourceMap:  l.sourceMap,
		Referenced: l.referenced,
	}
}

type lowerer struct {
	filename   string
	src        string
	elements   []element.TopLevelElement
	errs       []*ParseError
	sourceMap  sourcepos.SourceMap
	referenced map[string]elemid.ElemID
}

func (l *lowerer) rangeOf(n node) sourcepos.Range {
	return sourcepos.Range{Filename: l.filename, Start: positionAt(l.src, n.from), End: positionAt(l.src, n.to)}
}

func (l *lowerer) errorAt(n node, format string) {
	r := l.rangeOf(n)
	l.errs = append(l.errs, &ParseError{Message: format, Context: r, Subject: r, Severity: SeverityError})
}

func splitAdapterType(dotted string) (adapter, typeName string) {
	idx := strings.IndexByte(dotted, '.')
	if idx < 0 {
		return "", dotted
	}
	return dotted[:idx], dotted[idx+1:]
}

func (l *lowerer) lowerTopLevelBlock(b *Block) {
	switch b.TypeWord {
	case "vars":
		l.lowerVarsBlock(b)
	case "type":
		l.lowerTypeBlock(b)
	default:
		l.lowerInstanceBlock(b)
	}
}

func (l *lowerer) lowerVarsBlock(b *Block) {
	for _, item := range b.Items {
		attr, ok := item.(*Attribute)
		if !ok {
			l.errorAt(b.node, "a vars block may only contain attributes")
			continue
		}
		id := elemid.NewVarID(attr.Key)
		v := element.NewVarElement(id, l.lowerValue(attr.Value))
		l.finish(v, attr, id)
	}
}

func (l *lowerer) lowerTypeBlock(b *Block) {
	if len(b.Labels) != 1 {
		l.errorAt(b.node, "a type block takes exactly one label: adapter.TypeName")
		return
	}
	adapter, typeName := splitAdapterType(b.Labels[0])
	typeID := elemid.NewTypeID(adapter, typeName)
	obj := element.NewObjectType(typeID)

	seen := map[string]BlockItem{}
	for _, item := range b.Items {
		switch it := item.(type) {
		case *Attribute:
			if _, dup := seen[it.Key]; dup {
				l.duplicateKeyError(it, it.Key)
				continue
			}
			seen[it.Key] = it
			l.lowerTypeAttribute(obj, it)

		case *Block:
			if it.TypeWord == "annotations" {
				l.lowerAnnotationTypes(obj, it)
				continue
			}
			l.lowerField(obj, it)
		}
	}

	obj.SetPath(l.path())
	l.sourceMap.Add(typeID.GetFullName(), l.rangeOf(b.node))
	l.elements = append(l.elements, obj)
}

// duplicateKeyError reports key as redefined at dup, its second occurrence.
func (l *lowerer) duplicateKeyError(dup BlockItem, key string) {
	var n node
	switch p := dup.(type) {
	case *Attribute:
		n = p.node
	case *Block:
		n = p.node
	}
	l.errorAt(n, "attribute redefined: "+key)
}

func (l *lowerer) lowerTypeAttribute(obj *element.ObjectType, attr *Attribute) {
	if attr.Key == "isSettings" {
		b, ok := attr.Value.(*BoolExpr)
		if !ok {
			l.errorAt(attr.node, "isSettings must be a boolean")
			return
		}
		obj.IsSettings = b.Value
		return
	}
	obj.Annotations()[attr.Key] = l.lowerValue(attr.Value)
}

func (l *lowerer) lowerAnnotationTypes(obj *element.ObjectType, annotations *Block) {
	for _, item := range annotations.Items {
		nested, ok := item.(*Block)
		if !ok || len(nested.Labels) != 1 {
			l.errorAt(annotations.node, "an annotation type declaration is `type name { }`")
			continue
		}
		obj.AnnotationTypes()[nested.Labels[0]] = l.resolveTypeWord(nested.TypeWord)
	}
}

func (l *lowerer) lowerField(obj *element.ObjectType, field *Block) {
	switch len(field.Labels) {
	case 1:
		name := field.Labels[0]
		if _, dup := obj.Fields[name]; dup {
			l.errorAt(field.node, "attribute redefined: "+name)
			return
		}
		obj.Fields[name] = l.lowerFieldAnnotations(element.NewField(obj.ElemID(), name, l.resolveTypeWord(field.TypeWord)), field)

	case 2:
		if field.TypeWord != "list" && field.TypeWord != "map" {
			l.errorAt(field.node, "expected a field declaration")
			return
		}
		inner := l.resolveTypeWord(field.Labels[0])
		name := field.Labels[1]
		if _, dup := obj.Fields[name]; dup {
			l.errorAt(field.node, "attribute redefined: "+name)
			return
		}
		var wrapped element.Type
		if field.TypeWord == "list" {
			wrapped = element.NewListType(elemid.NewTypeID(obj.ElemID().Adapter, "List<"+field.Labels[0]+">"), inner)
		} else {
			wrapped = element.NewMapType(elemid.NewTypeID(obj.ElemID().Adapter, "Map<"+field.Labels[0]+">"), inner)
		}
		obj.Fields[name] = l.lowerFieldAnnotations(element.NewField(obj.ElemID(), name, wrapped), field)

	default:
		l.errorAt(field.node, "expected a field declaration")
	}
}

// lowerFieldAnnotations lowers the attributes inside a field block into f's
// annotations; nested blocks inside a field block are skipped.
func (l *lowerer) lowerFieldAnnotations(f *element.Field, field *Block) *element.Field {
	for _, item := range field.Items {
		if attr, ok := item.(*Attribute); ok {
			f.Annotations()[attr.Key] = l.lowerValue(attr.Value)
		}
	}
	return f
}

// resolveTypeWord resolves a primitive keyword to a concrete PrimitiveType,
// or any other dotted name to a forward-reference stub ObjectType carrying
// only the referenced type's ElemID: merge's updateMergedTypes pass is what
// later rewrites these stubs to the real, merged Type pointer.
func (l *lowerer) resolveTypeWord(word string) element.Type {
	switch word {
	case "string":
		return element.NewPrimitiveType(elemid.NewTypeID("", "string"), element.StringKind)
	case "number":
		return element.NewPrimitiveType(elemid.NewTypeID("", "number"), element.NumberKind)
	case "boolean":
		return element.NewPrimitiveType(elemid.NewTypeID("", "boolean"), element.BooleanKind)
	default:
		adapter, typeName := splitAdapterType(word)
		return element.NewObjectType(elemid.NewTypeID(adapter, typeName))
	}
}

func (l *lowerer) lowerInstanceBlock(b *Block) {
	if len(b.Labels) != 1 {
		l.errorAt(b.node, "an instance block takes exactly one label: its name")
		return
	}
	adapter, typeName := splitAdapterType(b.TypeWord)
	instID := elemid.NewInstanceID(adapter, typeName, b.Labels[0])
	typeStub := element.NewObjectType(elemid.NewTypeID(adapter, typeName))

	items := map[string]element.Value{}
	inst := element.NewInstanceElement(instID, typeStub, nil)

	seen := map[string]BlockItem{}
	for _, item := range b.Items {
		attr, ok := item.(*Attribute)
		if !ok {
			l.errorAt(b.node, "an instance block may only contain attributes")
			continue
		}
		if _, dup := seen[attr.Key]; dup {
			l.duplicateKeyError(attr, attr.Key)
			continue
		}
		seen[attr.Key] = attr

		if element.InstanceAnnotationNames[attr.Key] {
			inst.Annotations()[attr.Key] = l.lowerValue(attr.Value)
			continue
		}
		items[attr.Key] = l.lowerValue(attr.Value)
	}
	inst.Value = element.NewMapValue(items)
	inst.SetPath(l.path())

	l.sourceMap.Add(instID.GetFullName(), l.rangeOf(b.node))
	l.elements = append(l.elements, inst)
}

func (l *lowerer) finish(v element.TopLevelElement, attr *Attribute, id elemid.ElemID) {
	v.SetPath(l.path())
	l.sourceMap.Add(id.GetFullName(), l.rangeOf(attr.node))
	l.elements = append(l.elements, v)
}

// path is the single-segment path every element lowered from this file
// carries, letting a caller re-derive which file an element in a merged map
// was fragmented from without a separate lookup.
func (l *lowerer) path() []string { return []string{l.filename} }

func (l *lowerer) lowerValue(e Expr) element.Value {
	switch t := e.(type) {
	case *NumberExpr:
		f, _ := parseNumber(t.Text)
		return element.NewNumberValue(f)

	case *BoolExpr:
		return element.NewBoolValue(t.Value)

	case *StringExpr:
		return l.lowerStringExpr(t)

	case *ListExpr:
		items := make([]element.Value, 0, len(t.Items))
		for _, it := range t.Items {
			items = append(items, l.lowerValue(it))
		}
		return element.NewListValue(items...)

	case *ObjectExpr:
		items := make(map[string]element.Value, len(t.Items))
		for k, v := range t.Items {
			items[k] = l.lowerValue(v)
		}
		return element.NewMapValue(items)

	case *ReferenceExpr:
		return l.lowerReference(t)

	case *CallExpr:
		args := make([]element.Value, 0, len(t.Args))
		for _, a := range t.Args {
			args = append(args, l.lowerValue(a))
		}
		return element.NewFunctionCallValue(t.Name, args...)

	case *DynamicExpr:
		return element.NewDynamicValue()

	default:
		return element.NewDynamicValue()
	}
}

func (l *lowerer) lowerStringExpr(s *StringExpr) element.Value {
	if len(s.Parts) == 0 {
		return element.NewStringValue("")
	}
	if len(s.Parts) == 1 && s.Parts[0].Reference == nil {
		return element.NewStringValue(s.Parts[0].Literal)
	}

	frags := make([]element.TemplateFragment, 0, len(s.Parts))
	for _, part := range s.Parts {
		if part.Reference != nil {
			frags = append(frags, element.TemplateFragment{Reference: l.lowerReference(part.Reference)})
			continue
		}
		frags = append(frags, element.TemplateFragment{Literal: part.Literal})
	}
	return element.NewTemplateValue(frags...)
}

func (l *lowerer) lowerReference(ref *ReferenceExpr) *element.ReferenceExpression {
	full := strings.Join(ref.Parts, ".")
	id, err := elemid.FromFullName(full)
	if err != nil {
		l.errorAt(ref.node, "invalid reference: "+full)
		id = elemid.NewVarID(full)
	}
	l.referenced[id.GetFullName()] = id
	return element.NewReferenceExpression(id)
}
