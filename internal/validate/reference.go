package validate

import (
	"github.com/vk/naclworkspace/internal/elemid"
	"github.com/vk/naclworkspace/internal/element"
)

// collectReferences walks a value tree depth-first and returns every
// ReferenceExpression reachable from it, including the ones spliced into a
// TemplateValue's fragments.
func collectReferences(val element.Value, out []*element.ReferenceExpression) []*element.ReferenceExpression {
	switch v := val.(type) {
	case *element.ReferenceExpression:
		out = append(out, v)
	case *element.TemplateValue:
		for _, part := range v.Parts {
			if part.Reference != nil {
				out = append(out, part.Reference)
			}
		}
	case *element.ListValue:
		for _, item := range v.Items {
			out = collectReferences(item, out)
		}
	case *element.MapValue:
		for _, item := range v.Items {
			out = collectReferences(item, out)
		}
	}
	return out
}

// lookupValue resolves target to the Value it addresses: target's top-level
// owner must be an InstanceElement or VarElement present in universe, and
// every remaining path segment must navigate through nested MapValues.
func lookupValue(universe map[string]element.TopLevelElement, target elemid.ElemID) (element.Value, bool) {
	top, path := target.CreateTopLevelParentID()
	el, ok := universe[top.GetFullName()]
	if !ok {
		return nil, false
	}

	var v element.Value
	switch t := el.(type) {
	case *element.InstanceElement:
		v = t.Value
	case *element.VarElement:
		v = t.Value
	default:
		return nil, false
	}

	for _, seg := range path {
		m, ok := v.(*element.MapValue)
		if !ok {
			return nil, false
		}
		v, ok = m.Items[seg]
		if !ok {
			return nil, false
		}
	}
	return v, true
}

// detectCycle follows a chain of references, each resolving to a value that
// is itself directly another reference, and reports whether the chain loops
// back to an already-visited top-level element. startFull is the full name
// of the element the chain originates from, already counted as visited.
func detectCycle(startFull string, target elemid.ElemID, universe map[string]element.TopLevelElement) bool {
	visited := map[string]bool{startFull: true}
	cur := target

	for {
		top, _ := cur.CreateTopLevelParentID()
		topFull := top.GetFullName()
		if visited[topFull] {
			return true
		}
		visited[topFull] = true

		val, ok := lookupValue(universe, cur)
		if !ok {
			return false
		}

		ref, ok := val.(*element.ReferenceExpression)
		if !ok {
			return false
		}
		cur = ref.Target
	}
}
