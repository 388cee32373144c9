package naclfile

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/naclworkspace/internal/element"
)

// Render serializes elements back into NaCl source text, the inverse of
// naclparse.Parse's lowering. It is grouped by kind the same way the
// lowerer switches on block type: vars attributes collapse into a single
// vars block, one "type" block per ObjectType, one instance block per
// InstanceElement. Render is deterministic: annotation, field and map keys
// are always emitted in sorted order so re-serializing an unchanged element
// never produces a spurious diff.
func Render(elements []element.TopLevelElement) string {
	var vars []*element.VarElement
	var rest []element.TopLevelElement
	for _, e := range elements {
		if v, ok := e.(*element.VarElement); ok {
			vars = append(vars, v)
			continue
		}
		rest = append(rest, e)
	}

	var b strings.Builder
	if len(vars) > 0 {
		sort.Slice(vars, func(i, j int) bool { return vars[i].ElemID().GetFullName() < vars[j].ElemID().GetFullName() })
		b.WriteString("vars {\n")
		for _, v := range vars {
			name := v.ElemID().NameParts[len(v.ElemID().NameParts)-1]
			fmt.Fprintf(&b, "  %s = %s\n", name, renderValue(v.Value))
		}
		b.WriteString("}\n")
	}

	for _, e := range rest {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		switch t := e.(type) {
		case *element.ObjectType:
			renderObjectType(&b, t)
		case *element.InstanceElement:
			renderInstance(&b, t)
		default:
			// PrimitiveType, ListType and MapType never own a NaCl block of
			// their own; the parser only ever produces them nested inside a
			// field or list/map declaration. A caller handing one to Render
			// directly is a programmer error, not a data condition, so this
			// is silently skipped rather than emitting malformed text.
		}
	}
	return b.String()
}

func renderObjectType(b *strings.Builder, t *element.ObjectType) {
	fmt.Fprintf(b, "type %s.%s {\n", t.ElemID().Adapter, t.ElemID().TypeName)
	if t.IsSettings {
		b.WriteString("  isSettings = true\n")
	}
	for _, key := range sortedValueKeys(t.Annotations()) {
		fmt.Fprintf(b, "  %s = %s\n", key, renderValue(t.Annotations()[key]))
	}
	for _, name := range sortedFieldNames(t.Fields) {
		renderField(b, t.Fields[name])
	}
	if len(t.AnnotationTypes()) > 0 {
		b.WriteString("  annotations {\n")
		names := make([]string, 0, len(t.AnnotationTypes()))
		for name := range t.AnnotationTypes() {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(b, "    %s %s {\n    }\n", typeWord(t.AnnotationTypes()[name]), name)
		}
		b.WriteString("  }\n")
	}
	b.WriteString("}\n")
}

func renderField(b *strings.Builder, f *element.Field) {
	switch inner := f.Type.(type) {
	case *element.ListType:
		fmt.Fprintf(b, "  list %s %s {\n", typeWord(inner.InnerType), f.Name)
	case *element.MapType:
		fmt.Fprintf(b, "  map %s %s {\n", typeWord(inner.InnerType), f.Name)
	default:
		fmt.Fprintf(b, "  %s %s {\n", typeWord(f.Type), f.Name)
	}
	for _, key := range sortedValueKeys(f.Annotations()) {
		fmt.Fprintf(b, "    %s = %s\n", key, renderValue(f.Annotations()[key]))
	}
	b.WriteString("  }\n")
}

func typeWord(t element.Type) string {
	switch v := t.(type) {
	case *element.PrimitiveType:
		return string(v.Kind)
	case *element.ObjectType:
		return v.ElemID().Adapter + "." + v.ElemID().TypeName
	default:
		return "unknown"
	}
}

func renderInstance(b *strings.Builder, inst *element.InstanceElement) {
	name := inst.ElemID().NameParts[len(inst.ElemID().NameParts)-1]
	fmt.Fprintf(b, "%s.%s %s {\n", inst.ElemID().Adapter, inst.ElemID().TypeName, name)
	for _, key := range sortedValueKeys(inst.Annotations()) {
		fmt.Fprintf(b, "  %s = %s\n", key, renderValue(inst.Annotations()[key]))
	}
	if mv, ok := inst.Value.(*element.MapValue); ok {
		for _, key := range sortedValueKeys(mv.Items) {
			fmt.Fprintf(b, "  %s = %s\n", key, renderValue(mv.Items[key]))
		}
	}
	b.WriteString("}\n")
}

func sortedFieldNames(fields map[string]*element.Field) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedValueKeys(m map[string]element.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func renderValue(v element.Value) string {
	switch val := v.(type) {
	case *element.PrimitiveValue:
		return renderPrimitive(val)
	case *element.ListValue:
		parts := make([]string, len(val.Items))
		for i, item := range val.Items {
			parts[i] = renderValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *element.MapValue:
		keys := sortedValueKeys(val.Items)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s = %s", k, renderValue(val.Items[k]))
		}
		return "{ " + strings.Join(parts, " ") + " }"
	case *element.ReferenceExpression:
		return val.Target.GetFullName()
	case *element.TemplateValue:
		return renderTemplate(val)
	case *element.FunctionCallValue:
		args := make([]string, len(val.Args))
		for i, a := range val.Args {
			args[i] = renderValue(a)
		}
		return val.Name + "(" + strings.Join(args, ", ") + ")"
	case *element.StaticFile:
		// No dedicated static-file literal exists in the grammar; encoded
		// as a call so it at least round-trips as text, though re-parsing
		// yields a FunctionCallValue rather than a StaticFile.
		return "file(" + strconv.Quote(val.Path) + ")"
	case *element.DynamicValue:
		return "*"
	default:
		return "null"
	}
}

func renderPrimitive(p *element.PrimitiveValue) string {
	switch p.Val.Type() {
	case cty.Bool:
		if p.Val.True() {
			return "true"
		}
		return "false"
	case cty.Number:
		f, _ := p.Val.AsBigFloat().Float64()
		return strconv.FormatFloat(f, 'g', -1, 64)
	default:
		return strconv.Quote(p.Val.AsString())
	}
}

func renderTemplate(t *element.TemplateValue) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, part := range t.Parts {
		if part.Reference != nil {
			b.WriteString("${")
			b.WriteString(part.Reference.Target.GetFullName())
			b.WriteString("}")
			continue
		}
		b.WriteString(escapeStringBody(part.Literal))
	}
	b.WriteByte('"')
	return b.String()
}

func escapeStringBody(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
