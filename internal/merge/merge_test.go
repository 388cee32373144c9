package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/naclworkspace/internal/elemid"
	"github.com/vk/naclworkspace/internal/element"
)

func objType(adapter, name string) *element.ObjectType {
	return element.NewObjectType(elemid.NewTypeID(adapter, name))
}

func TestMerge_UnionsObjectTypeFields(t *testing.T) {
	a := objType("salesforce", "Account")
	a.Fields["Name"] = element.NewField(a.ElemID(), "Name", element.NewPrimitiveType(elemid.NewTypeID("", "string"), element.StringKind))

	b := objType("salesforce", "Account")
	b.Fields["Age"] = element.NewField(b.ElemID(), "Age", element.NewPrimitiveType(elemid.NewTypeID("", "number"), element.NumberKind))

	merged, errs := Merge([]Fragment{{Element: a, File: "a.nacl"}, {Element: b, File: "b.nacl"}})
	require.Empty(t, errs)

	out := merged["salesforce.Account"].(*element.ObjectType)
	assert.Contains(t, out.Fields, "Name")
	assert.Contains(t, out.Fields, "Age")
}

func TestMerge_DuplicateFieldAcrossFilesIsError(t *testing.T) {
	a := objType("salesforce", "Account")
	a.Fields["Name"] = element.NewField(a.ElemID(), "Name", element.NewPrimitiveType(elemid.NewTypeID("", "string"), element.StringKind))

	b := objType("salesforce", "Account")
	b.Fields["Name"] = element.NewField(b.ElemID(), "Name", element.NewPrimitiveType(elemid.NewTypeID("", "string"), element.StringKind))

	_, errs := Merge([]Fragment{{Element: a, File: "a.nacl"}, {Element: b, File: "b.nacl"}})
	require.Len(t, errs, 1)
	assert.Equal(t, DuplicateAnnotationError, errs[0].Kind)
}

func TestMerge_ObjectVsListShapeMismatchIsDuplicationError(t *testing.T) {
	id := elemid.NewTypeID("salesforce", "Account")
	asObject := element.NewObjectType(id)
	asList := element.NewListType(id, element.NewPrimitiveType(elemid.NewTypeID("", "string"), element.StringKind))

	merged, errs := Merge([]Fragment{{Element: asObject, File: "a.nacl"}, {Element: asList, File: "b.nacl"}})
	require.Len(t, errs, 1)
	assert.Equal(t, DuplicationError, errs[0].Kind)
	assert.Same(t, asObject, merged["salesforce.Account"])
}

func TestMerge_InstanceValueConflictAcrossFiles(t *testing.T) {
	typeID := elemid.NewTypeID("salesforce", "Account")
	obj := element.NewObjectType(typeID)
	id := elemid.NewInstanceID("salesforce", "Account", "acme")

	a := element.NewInstanceElement(id, obj, element.NewMapValue(map[string]element.Value{
		"Name": element.NewStringValue("Acme"),
	}))
	b := element.NewInstanceElement(id, obj, element.NewMapValue(map[string]element.Value{
		"Name": element.NewStringValue("Other"),
	}))

	_, errs := Merge([]Fragment{{Element: a, File: "a.nacl"}, {Element: b, File: "b.nacl"}})
	require.Len(t, errs, 1)
	assert.Equal(t, DuplicateInstanceKeyError, errs[0].Kind)
}

func TestMerge_InstanceValueSameFileLastWriterWins(t *testing.T) {
	typeID := elemid.NewTypeID("salesforce", "Account")
	obj := element.NewObjectType(typeID)
	id := elemid.NewInstanceID("salesforce", "Account", "acme")

	a := element.NewInstanceElement(id, obj, element.NewMapValue(map[string]element.Value{
		"Name": element.NewStringValue("Acme"),
	}))
	b := element.NewInstanceElement(id, obj, element.NewMapValue(map[string]element.Value{
		"Name": element.NewStringValue("Other"),
	}))

	merged, errs := Merge([]Fragment{{Element: a, File: "same.nacl"}, {Element: b, File: "same.nacl"}})
	require.Empty(t, errs)

	out := merged["salesforce.Account.instance.acme"].(*element.InstanceElement)
	name := out.Value.(*element.MapValue).Items["Name"].(*element.PrimitiveValue)
	assert.Equal(t, "Other", name.Val.AsString())
}

func TestUpdateMergedTypes_RewritesStubFieldType(t *testing.T) {
	parent := objType("salesforce", "Parent")
	childStub := objType("salesforce", "Child") // forward-reference stub
	parent.Fields["Child"] = element.NewField(parent.ElemID(), "Child", childStub)

	realChild := objType("salesforce", "Child")
	realChild.Fields["X"] = element.NewField(realChild.ElemID(), "X", element.NewPrimitiveType(elemid.NewTypeID("", "string"), element.StringKind))

	merged, errs := Merge([]Fragment{
		{Element: parent, File: "parent.nacl"},
		{Element: realChild, File: "child.nacl"},
	})
	require.Empty(t, errs)

	out := merged["salesforce.Parent"].(*element.ObjectType)
	resolved := out.Fields["Child"].Type.(*element.ObjectType)
	assert.Contains(t, resolved.Fields, "X", "stub Child type must be rewritten to the canonical merged ObjectType")
}
