package naclfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/naclworkspace/internal/elemid"
	"github.com/vk/naclworkspace/internal/element"
)

const accountSrc = `
type salesforce.Account {
  isSettings = false

  string Name {
  }
}
`

const acmeSrc = `
salesforce.Account acme {
  Name = "Acme Corp"
}
`

func newTestSource(t *testing.T, files map[string]string) *Source {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		full := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	cachePath := filepath.Join(t.TempDir(), "cache.db")
	cache, err := OpenCache(cachePath)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	src, err := NewSource(dir, ".nacl", "common", cache)
	require.NoError(t, err)
	return src
}

func TestNewSource_LoadsExistingFiles(t *testing.T) {
	src := newTestSource(t, map[string]string{
		"account.nacl": accountSrc,
		"acme.nacl":    acmeSrc,
	})

	assert.ElementsMatch(t, []string{"account.nacl", "acme.nacl"}, src.ListFiles())
	assert.False(t, src.IsEmpty())
	assert.Equal(t, int64(len(accountSrc)+len(acmeSrc)), src.GetTotalSize())

	pf, ok := src.GetParsedFile("account.nacl")
	require.True(t, ok)
	require.Len(t, pf.Fragments, 1)
	require.Empty(t, pf.Errors)

	files := src.GetElementNaclFiles(elemid.NewTypeID("salesforce", "Account"))
	assert.Equal(t, []string{"account.nacl"}, files)
}

func TestSetFiles_AddIsReportedAsAdd(t *testing.T) {
	src := newTestSource(t, nil)

	changes, err := src.SetFiles(context.Background(), map[string][]byte{
		"account.nacl": []byte(accountSrc),
	})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, Add, changes[0].Action)
	assert.Equal(t, "salesforce.Account", changes[0].FullName)
	assert.Nil(t, changes[0].Before)
	assert.NotNil(t, changes[0].After)

	data, err := os.ReadFile(filepath.Join(src.dir, "account.nacl"))
	require.NoError(t, err)
	assert.Equal(t, accountSrc, string(data))
}

func TestSetFiles_ModifyIsReportedWhenContentChanges(t *testing.T) {
	src := newTestSource(t, map[string]string{"account.nacl": accountSrc})

	changed := `
type salesforce.Account {
  isSettings = true

  string Name {
  }
}
`
	changes, err := src.SetFiles(context.Background(), map[string][]byte{
		"account.nacl": []byte(changed),
	})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, Modify, changes[0].Action)

	before := changes[0].Before.(*element.ObjectType)
	after := changes[0].After.(*element.ObjectType)
	assert.False(t, before.IsSettings)
	assert.True(t, after.IsSettings)
}

func TestSetFiles_UnchangedContentReportsNoChange(t *testing.T) {
	src := newTestSource(t, map[string]string{"account.nacl": accountSrc})

	changes, err := src.SetFiles(context.Background(), map[string][]byte{
		"account.nacl": []byte(accountSrc),
	})
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestRemoveFiles_ReportsRemove(t *testing.T) {
	src := newTestSource(t, map[string]string{"account.nacl": accountSrc})

	changes, err := src.RemoveFiles([]string{"account.nacl"})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, Remove, changes[0].Action)
	assert.NotNil(t, changes[0].Before)
	assert.Nil(t, changes[0].After)

	assert.True(t, src.IsEmpty())
	_, ok := src.GetParsedFile("account.nacl")
	assert.False(t, ok)

	_, err = os.Stat(filepath.Join(src.dir, "account.nacl"))
	assert.True(t, os.IsNotExist(err))
}

func TestRemoveFiles_UnknownNameIsNoOp(t *testing.T) {
	src := newTestSource(t, map[string]string{"account.nacl": accountSrc})

	changes, err := src.RemoveFiles([]string{"missing.nacl"})
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestGetElementReferencesToFiles_TracksReferencingFile(t *testing.T) {
	src := newTestSource(t, map[string]string{
		"account.nacl": accountSrc,
		"acme.nacl":    acmeSrc,
	})

	refSrc := `
salesforce.Account other {
  Name = salesforce.Account.instance.acme.Name
}
`
	_, err := src.SetFiles(context.Background(), map[string][]byte{
		"other.nacl": []byte(refSrc),
	})
	require.NoError(t, err)

	acmeID := elemid.NewInstanceID("salesforce", "Account", "acme")
	referencingFiles := src.GetElementReferencesToFiles(acmeID)
	assert.Contains(t, referencingFiles, "other.nacl")

	referencedFiles := src.GetElementReferencedFiles(elemid.NewInstanceID("salesforce", "Account", "other"))
	assert.Contains(t, referencedFiles, "acme.nacl")
}

func TestFlushAndReopen_UsesCache(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "account.nacl"), []byte(accountSrc), 0o644))

	cachePath := filepath.Join(t.TempDir(), "cache.db")
	cache, err := OpenCache(cachePath)
	require.NoError(t, err)

	src, err := NewSource(dir, ".nacl", "common", cache)
	require.NoError(t, err)
	require.NoError(t, src.Flush())
	require.NoError(t, cache.Close())

	cache2, err := OpenCache(cachePath)
	require.NoError(t, err)
	t.Cleanup(func() { cache2.Close() })

	rec, ok, err := cache2.Get("common", "account.nacl", src.byPath["account.nacl"].Hash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, rec.Fragments, 1)
	assert.Equal(t, "salesforce.Account", rec.Fragments[0].ElemID().GetFullName())
}

func TestClone_IsIndependent(t *testing.T) {
	src := newTestSource(t, map[string]string{"account.nacl": accountSrc})
	clone := src.Clone()

	_, err := src.SetFiles(context.Background(), map[string][]byte{"acme.nacl": []byte(acmeSrc)})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"account.nacl", "acme.nacl"}, src.ListFiles())
	assert.ElementsMatch(t, []string{"account.nacl"}, clone.ListFiles())
}

func TestRename_ReparsesUnderNewPath(t *testing.T) {
	src := newTestSource(t, map[string]string{"account.nacl": accountSrc})

	changes, err := src.Rename(context.Background(), "account.nacl", "renamed.nacl")
	require.NoError(t, err)
	require.Len(t, changes, 2)

	assert.ElementsMatch(t, []string{"renamed.nacl"}, src.ListFiles())
	_, err = os.Stat(filepath.Join(src.dir, "account.nacl"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(src.dir, "renamed.nacl"))
	assert.NoError(t, err)

	files := src.GetElementNaclFiles(elemid.NewTypeID("salesforce", "Account"))
	assert.Equal(t, []string{"renamed.nacl"}, files)
}

func TestClear_ResetsSource(t *testing.T) {
	src := newTestSource(t, map[string]string{"account.nacl": accountSrc})
	require.NoError(t, src.Clear())

	assert.True(t, src.IsEmpty())
	assert.Empty(t, src.ListFiles())
	assert.Empty(t, src.GetElementNaclFiles(elemid.NewTypeID("salesforce", "Account")))
}
