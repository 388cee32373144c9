package element

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vk/naclworkspace/internal/elemid"
)

func TestTransform_DropsEmptyAndKeepsOthers(t *testing.T) {
	v := NewMapValue(map[string]Value{
		"keep":   NewStringValue("a"),
		"remove": NewStringValue("b"),
	})

	out := Transform(v, nil, nil, func(val Value, path []string, field *Field) (Value, bool) {
		if s, ok := val.(*PrimitiveValue); ok && s.Val.AsString() == "b" {
			return nil, false
		}
		return val, true
	})

	m, ok := out.(*MapValue)
	assert.True(t, ok)
	assert.Len(t, m.Items, 1)
	assert.Contains(t, m.Items, "keep")
}

func TestTransform_ShortCircuitsReferences(t *testing.T) {
	ref := NewReferenceExpression(elemid.NewInstanceID("salesforce", "Account", "acme"))
	ref.Resolved = NewStringValue("should not be visited")

	visited := []string{}
	out := Transform(ref, nil, nil, func(val Value, path []string, field *Field) (Value, bool) {
		if p, ok := val.(*PrimitiveValue); ok {
			visited = append(visited, p.Val.AsString())
		}
		return val, true
	})

	assert.Empty(t, visited, "Transform must not descend into a reference's cached Resolved value")
	assert.Same(t, ref, out)
}

func TestTransform_DescendsIntoLists(t *testing.T) {
	v := NewListValue(NewStringValue("a"), NewStringValue("b"), NewStringValue("c"))

	var seenPaths [][]string
	Transform(v, nil, nil, func(val Value, path []string, field *Field) (Value, bool) {
		if _, ok := val.(*PrimitiveValue); ok {
			seenPaths = append(seenPaths, path)
		}
		return val, true
	})

	assert.Equal(t, [][]string{{"0"}, {"1"}, {"2"}}, seenPaths)
}
