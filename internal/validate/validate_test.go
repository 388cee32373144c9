package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/naclworkspace/internal/elemid"
	"github.com/vk/naclworkspace/internal/element"
)

func stringField(owner elemid.ElemID, name string) *element.Field {
	return element.NewField(owner, name, element.NewPrimitiveType(elemid.NewTypeID("", "string"), element.StringKind))
}

func numberField(owner elemid.ElemID, name string) *element.Field {
	return element.NewField(owner, name, element.NewPrimitiveType(elemid.NewTypeID("", "number"), element.NumberKind))
}

func TestValidate_WrongScalarKindIsTypeConformanceError(t *testing.T) {
	typeID := elemid.NewTypeID("salesforce", "Account")
	obj := element.NewObjectType(typeID)
	obj.Fields["Age"] = numberField(typeID, "Age")

	instID := elemid.NewInstanceID("salesforce", "Account", "acme")
	inst := element.NewInstanceElement(instID, obj, element.NewMapValue(map[string]element.Value{
		"Age": element.NewStringValue("not a number"),
	}))

	universe := map[string]element.TopLevelElement{typeID.GetFullName(): obj, instID.GetFullName(): inst}
	errs := Validate([]element.TopLevelElement{inst}, universe)

	require.Len(t, errs, 1)
	assert.Equal(t, TypeConformance, errs[0].Kind)
}

func TestValidate_MissingRequiredFieldIsError(t *testing.T) {
	typeID := elemid.NewTypeID("salesforce", "Account")
	obj := element.NewObjectType(typeID)
	field := stringField(typeID, "Name")
	field.Annotations()[element.AnnotationRequired] = element.NewBoolValue(true)
	obj.Fields["Name"] = field

	instID := elemid.NewInstanceID("salesforce", "Account", "acme")
	inst := element.NewInstanceElement(instID, obj, element.NewMapValue(map[string]element.Value{}))

	universe := map[string]element.TopLevelElement{typeID.GetFullName(): obj, instID.GetFullName(): inst}
	errs := Validate([]element.TopLevelElement{inst}, universe)

	require.Len(t, errs, 1)
	assert.Equal(t, MissingRequired, errs[0].Kind)
}

func TestValidate_MissingOptionalFieldIsNotAnError(t *testing.T) {
	typeID := elemid.NewTypeID("salesforce", "Account")
	obj := element.NewObjectType(typeID)
	obj.Fields["Name"] = stringField(typeID, "Name")

	instID := elemid.NewInstanceID("salesforce", "Account", "acme")
	inst := element.NewInstanceElement(instID, obj, element.NewMapValue(map[string]element.Value{}))

	universe := map[string]element.TopLevelElement{typeID.GetFullName(): obj, instID.GetFullName(): inst}
	errs := Validate([]element.TopLevelElement{inst}, universe)

	assert.Empty(t, errs)
}

func TestValidate_RegexConstraintViolationIsIllegalValue(t *testing.T) {
	typeID := elemid.NewTypeID("salesforce", "Account")
	obj := element.NewObjectType(typeID)
	field := stringField(typeID, "Code")
	field.Annotations()[element.AnnotationRegex] = element.NewStringValue("^[A-Z]{3}$")
	obj.Fields["Code"] = field

	instID := elemid.NewInstanceID("salesforce", "Account", "acme")
	inst := element.NewInstanceElement(instID, obj, element.NewMapValue(map[string]element.Value{
		"Code": element.NewStringValue("nope"),
	}))

	universe := map[string]element.TopLevelElement{typeID.GetFullName(): obj, instID.GetFullName(): inst}
	errs := Validate([]element.TopLevelElement{inst}, universe)

	require.Len(t, errs, 1)
	assert.Equal(t, IllegalValue, errs[0].Kind)
}

func TestValidate_EnumConstraintViolationIsIllegalValue(t *testing.T) {
	typeID := elemid.NewTypeID("salesforce", "Account")
	obj := element.NewObjectType(typeID)
	field := stringField(typeID, "Tier")
	field.Annotations()[element.AnnotationEnum] = element.NewListValue(
		element.NewStringValue("gold"), element.NewStringValue("silver"),
	)
	obj.Fields["Tier"] = field

	instID := elemid.NewInstanceID("salesforce", "Account", "acme")
	inst := element.NewInstanceElement(instID, obj, element.NewMapValue(map[string]element.Value{
		"Tier": element.NewStringValue("bronze"),
	}))

	universe := map[string]element.TopLevelElement{typeID.GetFullName(): obj, instID.GetFullName(): inst}
	errs := Validate([]element.TopLevelElement{inst}, universe)

	require.Len(t, errs, 1)
	assert.Equal(t, IllegalValue, errs[0].Kind)
}

func TestValidate_RangeConstraintViolationIsIllegalValue(t *testing.T) {
	typeID := elemid.NewTypeID("salesforce", "Account")
	obj := element.NewObjectType(typeID)
	field := numberField(typeID, "Discount")
	field.Annotations()[element.AnnotationMin] = element.NewNumberValue(0)
	field.Annotations()[element.AnnotationMax] = element.NewNumberValue(100)
	obj.Fields["Discount"] = field

	instID := elemid.NewInstanceID("salesforce", "Account", "acme")
	inst := element.NewInstanceElement(instID, obj, element.NewMapValue(map[string]element.Value{
		"Discount": element.NewNumberValue(150),
	}))

	universe := map[string]element.TopLevelElement{typeID.GetFullName(): obj, instID.GetFullName(): inst}
	errs := Validate([]element.TopLevelElement{inst}, universe)

	require.Len(t, errs, 1)
	assert.Equal(t, IllegalValue, errs[0].Kind)
}

func TestValidate_UnresolvedReferenceIsError(t *testing.T) {
	typeID := elemid.NewTypeID("salesforce", "Account")
	obj := element.NewObjectType(typeID)
	obj.Fields["Owner"] = stringField(typeID, "Owner")

	instID := elemid.NewInstanceID("salesforce", "Account", "acme")
	missing := elemid.NewInstanceID("salesforce", "User", "ghost")
	inst := element.NewInstanceElement(instID, obj, element.NewMapValue(map[string]element.Value{
		"Owner": element.NewReferenceExpression(missing.CreateNestedID("Name")),
	}))

	universe := map[string]element.TopLevelElement{typeID.GetFullName(): obj, instID.GetFullName(): inst}
	errs := Validate([]element.TopLevelElement{inst}, universe)

	require.Len(t, errs, 1)
	assert.Equal(t, UnresolvedReference, errs[0].Kind)
}

func TestValidate_ResolvedReferenceIsNotAnError(t *testing.T) {
	typeID := elemid.NewTypeID("salesforce", "User")
	obj := element.NewObjectType(typeID)
	obj.Fields["Name"] = stringField(typeID, "Name")

	userID := elemid.NewInstanceID("salesforce", "User", "alice")
	user := element.NewInstanceElement(userID, obj, element.NewMapValue(map[string]element.Value{
		"Name": element.NewStringValue("Alice"),
	}))

	accTypeID := elemid.NewTypeID("salesforce", "Account")
	accObj := element.NewObjectType(accTypeID)
	accObj.Fields["Owner"] = stringField(accTypeID, "Owner")

	accID := elemid.NewInstanceID("salesforce", "Account", "acme")
	acc := element.NewInstanceElement(accID, accObj, element.NewMapValue(map[string]element.Value{
		"Owner": element.NewReferenceExpression(userID.CreateNestedID("Name")),
	}))

	universe := map[string]element.TopLevelElement{
		typeID.GetFullName():    obj,
		userID.GetFullName():    user,
		accTypeID.GetFullName(): accObj,
		accID.GetFullName():     acc,
	}
	errs := Validate([]element.TopLevelElement{acc}, universe)

	assert.Empty(t, errs)
}

func TestValidate_CircularVarReferenceChainIsError(t *testing.T) {
	aID := elemid.NewVarID("a")
	bID := elemid.NewVarID("b")

	a := element.NewVarElement(aID, element.NewReferenceExpression(bID))
	b := element.NewVarElement(bID, element.NewReferenceExpression(aID))

	universe := map[string]element.TopLevelElement{
		aID.GetFullName(): a,
		bID.GetFullName(): b,
	}
	errs := Validate([]element.TopLevelElement{a}, universe)

	require.Len(t, errs, 1)
	assert.Equal(t, CircularReference, errs[0].Kind)
}

func TestValidate_UnresolvedFieldTypeIsError(t *testing.T) {
	parentID := elemid.NewTypeID("salesforce", "Parent")
	parent := element.NewObjectType(parentID)
	childStub := element.NewObjectType(elemid.NewTypeID("salesforce", "Child")) // never declared
	parent.Fields["Child"] = element.NewField(parentID, "Child", childStub)

	universe := map[string]element.TopLevelElement{parentID.GetFullName(): parent}
	errs := Validate([]element.TopLevelElement{parent}, universe)

	require.Len(t, errs, 1)
	assert.Equal(t, UnresolvedReference, errs[0].Kind)
}
