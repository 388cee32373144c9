package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/naclworkspace/internal/elemid"
	"github.com/vk/naclworkspace/internal/element"
	"github.com/vk/naclworkspace/internal/wsconfig"
)

const accountTypeSrc = `
type salesforce.Account {
  string Name {
  }
}
`

const acmeInstanceSrc = `
salesforce.Account acme {
  Name = "Acme Corp"
}
`

func newTestWorkspace(t *testing.T, envs []string, commonFiles, envFiles map[string]string) *Workspace {
	t.Helper()
	root := t.TempDir()

	cfg, err := wsconfig.Init(root, envs[0])
	require.NoError(t, err)
	for _, env := range envs[1:] {
		require.NoError(t, cfg.AddEnvironment(env))
		require.NoError(t, os.MkdirAll(wsconfig.EnvDir(root, env), 0o755))
	}
	require.NoError(t, cfg.Save(root))

	for name, content := range commonFiles {
		require.NoError(t, os.WriteFile(filepath.Join(wsconfig.CommonDir(root), name), []byte(content), 0o644))
	}
	for name, content := range envFiles {
		require.NoError(t, os.WriteFile(filepath.Join(wsconfig.EnvDir(root, envs[0]), name), []byte(content), 0o644))
	}

	return NewWorkspace(context.Background(), root)
}

func TestNewWorkspace_LoadsAndMergesCommonFiles(t *testing.T) {
	ws := newTestWorkspace(t, []string{"dev"}, map[string]string{
		"account.nacl": accountTypeSrc,
		"acme.nacl":    acmeInstanceSrc,
	}, nil)

	elements, err := ws.Elements("", false)
	require.NoError(t, err)
	assert.Contains(t, elements, "salesforce.Account")
	assert.Contains(t, elements, "salesforce.Account.instance.acme")

	errs, err := ws.Errors("", true)
	require.NoError(t, err)
	assert.Empty(t, errs.Parse)
	assert.Empty(t, errs.Merge)
	assert.Empty(t, errs.Validate)
}

func TestElements_UnknownEnvironmentIsWorkspaceError(t *testing.T) {
	ws := newTestWorkspace(t, []string{"dev"}, nil, nil)
	_, err := ws.Elements("staging", false)
	require.Error(t, err)
	var wsErr *wsconfig.Error
	require.ErrorAs(t, err, &wsErr)
	assert.Equal(t, wsconfig.UnknownEnv, wsErr.Kind)
}

func TestGetElementAndGetValue(t *testing.T) {
	ws := newTestWorkspace(t, []string{"dev"}, map[string]string{
		"account.nacl": accountTypeSrc,
		"acme.nacl":    acmeInstanceSrc,
	}, nil)

	id := elemid.NewInstanceID("salesforce", "Account", "acme")
	el, err := ws.GetElement("", id)
	require.NoError(t, err)
	inst, ok := el.(*element.InstanceElement)
	require.True(t, ok)
	assert.Equal(t, "acme", inst.ElemID().NameParts[0])

	nameID := id.CreateNestedID("Name")
	v, ok, err := ws.GetValue("", nameID)
	require.NoError(t, err)
	require.True(t, ok)
	prim, ok := v.(*element.PrimitiveValue)
	require.True(t, ok)
	assert.Equal(t, "Acme Corp", prim.Val.AsString())
}

func TestUpdateNaclFiles_DefaultRoutesAddToEnvWhenNotInCommon(t *testing.T) {
	ws := newTestWorkspace(t, []string{"dev"}, map[string]string{
		"account.nacl": accountTypeSrc,
	}, nil)

	id := elemid.NewInstanceID("salesforce", "Account", "acme")
	inst := element.NewInstanceElement(id, element.NewObjectType(elemid.NewTypeID("salesforce", "Account")),
		element.NewMapValue(map[string]element.Value{"Name": element.NewStringValue("Acme Corp")}))

	changes, err := ws.UpdateNaclFiles("dev", []DetailedChange{{ID: id, Action: Add, After: inst}}, RouteDefault)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "add", changes[0].Action.String())

	elements, err := ws.Elements("dev", false)
	require.NoError(t, err)
	assert.Contains(t, elements, "salesforce.Account.instance.acme")

	files, err := ws.ListNaclFiles("dev")
	require.NoError(t, err)
	assert.Contains(t, files, "salesforce_account.nacl")
}

func TestUpdateNaclFiles_OverrideDropsConflictingCommonContent(t *testing.T) {
	ws := newTestWorkspace(t, []string{"dev"}, map[string]string{
		"account.nacl": accountTypeSrc,
		"acme.nacl":    acmeInstanceSrc,
	}, nil)

	id := elemid.NewInstanceID("salesforce", "Account", "acme")
	overridden := element.NewInstanceElement(id, element.NewObjectType(elemid.NewTypeID("salesforce", "Account")),
		element.NewMapValue(map[string]element.Value{"Name": element.NewStringValue("Overridden Corp")}))

	_, err := ws.UpdateNaclFiles("dev", []DetailedChange{{ID: id, Action: Modify, After: overridden}}, RouteOverride)
	require.NoError(t, err)

	elements, err := ws.Elements("dev", false)
	require.NoError(t, err)
	inst := elements["salesforce.Account.instance.acme"].(*element.InstanceElement)
	mv := inst.Value.(*element.MapValue)
	assert.Equal(t, "Overridden Corp", mv.Items["Name"].(*element.PrimitiveValue).Val.AsString())

	src := ws.envSources["dev"]
	assert.Empty(t, src.Common().GetElementNaclFiles(id))
	assert.NotEmpty(t, src.Env().GetElementNaclFiles(id))
}

func TestPromoteAndDemote(t *testing.T) {
	ws := newTestWorkspace(t, []string{"dev"}, map[string]string{
		"account.nacl": accountTypeSrc,
	}, map[string]string{
		"acme.nacl": acmeInstanceSrc,
	})

	id := elemid.NewInstanceID("salesforce", "Account", "acme")
	src := ws.envSources["dev"]
	assert.NotEmpty(t, src.Env().GetElementNaclFiles(id))
	assert.Empty(t, src.Common().GetElementNaclFiles(id))

	_, err := ws.Promote("dev", []elemid.ElemID{id})
	require.NoError(t, err)
	assert.Empty(t, src.Env().GetElementNaclFiles(id))
	assert.NotEmpty(t, src.Common().GetElementNaclFiles(id))

	_, err = ws.Demote("dev", []elemid.ElemID{id})
	require.NoError(t, err)
	assert.NotEmpty(t, src.Env().GetElementNaclFiles(id))
	assert.Empty(t, src.Common().GetElementNaclFiles(id))
}

func TestFlush_PersistsAcrossReopen(t *testing.T) {
	root := t.TempDir()
	cfg, err := wsconfig.Init(root, "dev")
	require.NoError(t, err)
	require.NoError(t, cfg.Save(root))
	require.NoError(t, os.WriteFile(filepath.Join(wsconfig.CommonDir(root), "account.nacl"), []byte(accountTypeSrc), 0o644))

	ws := NewWorkspace(context.Background(), root)
	require.NoError(t, ws.Flush())
	require.NoError(t, ws.cache.Close())

	reopened := NewWorkspace(context.Background(), root)
	elements, err := reopened.Elements("", false)
	require.NoError(t, err)
	assert.Contains(t, elements, "salesforce.Account")
}

func TestClone_IsIndependent(t *testing.T) {
	ws := newTestWorkspace(t, []string{"dev"}, map[string]string{
		"account.nacl": accountTypeSrc,
		"acme.nacl":    acmeInstanceSrc,
	}, nil)

	clone := ws.Clone()

	id := elemid.NewInstanceID("salesforce", "Account", "acme")
	_, err := clone.UpdateNaclFiles("dev", []DetailedChange{{ID: id, Action: Remove}}, RouteOverride)
	require.NoError(t, err)

	cloneElements, err := clone.Elements("dev", false)
	require.NoError(t, err)
	assert.NotContains(t, cloneElements, "salesforce.Account.instance.acme")

	originalElements, err := ws.Elements("dev", false)
	require.NoError(t, err)
	assert.Contains(t, originalElements, "salesforce.Account.instance.acme")
}

func TestEnvironmentLifecycle(t *testing.T) {
	ws := newTestWorkspace(t, []string{"dev"}, nil, nil)

	require.NoError(t, ws.AddEnvironment("staging"))
	assert.ElementsMatch(t, []string{"dev", "staging"}, ws.Environments())

	err := ws.DeleteEnvironment("dev")
	require.Error(t, err)
	var wsErr *wsconfig.Error
	require.ErrorAs(t, err, &wsErr)
	assert.Equal(t, wsconfig.DeleteCurrentEnv, wsErr.Kind)

	require.NoError(t, ws.SetCurrentEnv("staging"))
	require.NoError(t, ws.DeleteEnvironment("dev"))
	assert.ElementsMatch(t, []string{"staging"}, ws.Environments())

	require.NoError(t, ws.RenameEnvironment("staging", "production"))
	assert.Equal(t, "production", ws.CurrentEnv())
	_, ok := ws.envSources["production"]
	assert.True(t, ok)
}

func TestGetStateRecency_NonexistentWhenNeverFetched(t *testing.T) {
	ws := newTestWorkspace(t, []string{"dev"}, nil, nil)
	recency, err := ws.GetStateRecency("dev", "salesforce")
	require.NoError(t, err)
	assert.Equal(t, "nonexistent", recency.String())
}
