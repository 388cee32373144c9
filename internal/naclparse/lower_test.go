package naclparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/naclworkspace/internal/element"
)

func TestParse_TypeBlockWithFields(t *testing.T) {
	src := `
type salesforce.Account {
  isSettings = false

  string Name {
  }

  list string Tags {
  }

  annotations {
    string _service_url {
    }
  }
}
`
	out := Parse("account.nacl", src)
	require.Empty(t, out.Errors)
	require.Len(t, out.Elements, 1)

	obj, ok := out.Elements[0].(*element.ObjectType)
	require.True(t, ok)
	assert.Equal(t, "salesforce.Account", obj.ElemID().GetFullName())
	assert.False(t, obj.IsSettings)
	require.Contains(t, obj.Fields, "Name")
	assert.Equal(t, element.StringKind, obj.Fields["Name"].Type.(*element.PrimitiveType).Kind)

	require.Contains(t, obj.Fields, "Tags")
	list, ok := obj.Fields["Tags"].Type.(*element.ListType)
	require.True(t, ok)
	assert.Equal(t, element.StringKind, list.InnerType.(*element.PrimitiveType).Kind)

	assert.Contains(t, obj.AnnotationTypes(), "_service_url")
}

func TestParse_InstanceBlockWithValuesAndAnnotations(t *testing.T) {
	src := `
salesforce.Account acme {
  Name = "Acme Corp"
  _hidden_value = true
}
`
	out := Parse("acme.nacl", src)
	require.Empty(t, out.Errors)
	require.Len(t, out.Elements, 1)

	inst, ok := out.Elements[0].(*element.InstanceElement)
	require.True(t, ok)
	assert.Equal(t, "salesforce.Account.instance.acme", inst.ElemID().GetFullName())
	assert.True(t, inst.IsHidden())

	m, ok := inst.Value.(*element.MapValue)
	require.True(t, ok)
	name, ok := m.Items["Name"].(*element.PrimitiveValue)
	require.True(t, ok)
	assert.Equal(t, "Acme Corp", name.Val.AsString())
}

func TestParse_DuplicateAttributeIsParseError(t *testing.T) {
	src := `
salesforce.Account acme {
  Name = "Acme Corp"
  Name = "Other"
}
`
	out := Parse("dup.nacl", src)
	require.NotEmpty(t, out.Errors)
}

func TestParse_ReferenceIsTrackedAsReferenced(t *testing.T) {
	src := `
salesforce.Account acme {
  Name = salesforce.Account.instance.other.Name
}
`
	out := Parse("ref.nacl", src)
	require.Empty(t, out.Errors)
	require.Len(t, out.Referenced, 1)

	inst := out.Elements[0].(*element.InstanceElement)
	ref := inst.Value.(*element.MapValue).Items["Name"].(*element.ReferenceExpression)
	assert.Equal(t, "salesforce.Account.instance.other.Name", ref.Target.GetFullName())
}

func TestParse_TemplateStringWithInterpolation(t *testing.T) {
	src := `
salesforce.Account acme {
  Greeting = "Hello ${salesforce.Account.instance.other.Name}!"
}
`
	out := Parse("tmpl.nacl", src)
	require.Empty(t, out.Errors)

	inst := out.Elements[0].(*element.InstanceElement)
	tmpl, ok := inst.Value.(*element.MapValue).Items["Greeting"].(*element.TemplateValue)
	require.True(t, ok)
	require.Len(t, tmpl.Parts, 3)
	assert.Equal(t, "Hello ", tmpl.Parts[0].Literal)
	require.NotNil(t, tmpl.Parts[1].Reference)
	assert.Equal(t, "!", tmpl.Parts[2].Literal)
}

func TestParse_MultilineStringTrimsFinalNewlineOnly(t *testing.T) {
	src := "vars {\n  msg = '''\nline one\nline two\n'''\n}\n"
	out := Parse("ml.nacl", src)
	require.Empty(t, out.Errors)

	v := out.Elements[0].(*element.VarElement)
	s, ok := v.Value.(*element.PrimitiveValue)
	require.True(t, ok)
	assert.Equal(t, "\nline one\nline two", s.Val.AsString())
}

func TestParse_WildcardRejectedOutsideRecoveryMode(t *testing.T) {
	src := `
salesforce.Account acme {
  Name = *
}
`
	out := Parse("wild.nacl", src)
	assert.NotEmpty(t, out.Errors)

	recovered := Parse("wild.nacl", src, WithErrorRecoveryMode(true))
	assert.Empty(t, recovered.Errors)
	inst := recovered.Elements[0].(*element.InstanceElement)
	_, ok := inst.Value.(*element.MapValue).Items["Name"].(*element.DynamicValue)
	assert.True(t, ok)
}

func TestParse_VarsBlock(t *testing.T) {
	src := `
vars {
  region = "us-east-1"
}
`
	out := Parse("vars.nacl", src)
	require.Empty(t, out.Errors)
	require.Len(t, out.Elements, 1)

	v, ok := out.Elements[0].(*element.VarElement)
	require.True(t, ok)
	assert.Equal(t, "var.region", v.ElemID().GetFullName())
}

func TestParse_SyntaxErrorRecoversAtNextTopLevelBlock(t *testing.T) {
	src := `
@

vars {
  ok = "fine"
}
`
	out := Parse("recover.nacl", src)
	require.NotEmpty(t, out.Errors)

	var sawVar bool
	for _, e := range out.Elements {
		if _, ok := e.(*element.VarElement); ok {
			sawVar = true
		}
	}
	assert.True(t, sawVar, "parser should recover and still lower the well-formed vars block")
}
