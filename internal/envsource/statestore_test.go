package envsource

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/naclworkspace/internal/elemid"
	"github.com/vk/naclworkspace/internal/element"
	"github.com/vk/naclworkspace/internal/naclfile"
)

func testInstance(adapter, typeName, name, value string) *element.InstanceElement {
	id := elemid.NewInstanceID(adapter, typeName, name)
	return element.NewInstanceElement(id, nil, element.NewMapValue(map[string]element.Value{
		"Value": element.NewStringValue(value),
	}))
}

func TestStateStore_SetAndGet(t *testing.T) {
	s, err := NewStateStore("dev", nil)
	require.NoError(t, err)

	elem := testInstance("salesforce", "Account", "acme", "secret")
	require.NoError(t, s.Set(elem))

	got, ok := s.Get("salesforce.Account.instance.acme")
	require.True(t, ok)
	assert.Same(t, elem, got)

	_, ok = s.Get("salesforce.Account.instance.missing")
	assert.False(t, ok)
}

func TestStateStore_DeleteAndClear(t *testing.T) {
	s, err := NewStateStore("dev", nil)
	require.NoError(t, err)

	elem := testInstance("salesforce", "Account", "acme", "secret")
	require.NoError(t, s.Set(elem))
	require.NoError(t, s.Delete("salesforce.Account.instance.acme"))

	_, ok := s.Get("salesforce.Account.instance.acme")
	assert.False(t, ok)

	require.NoError(t, s.Set(elem))
	require.NoError(t, s.Clear())
	assert.Empty(t, s.List())
}

func TestStateStore_GetStateRecency(t *testing.T) {
	s, err := NewStateStore("dev", nil)
	require.NoError(t, err)

	assert.Equal(t, Nonexistent, s.GetStateRecency("salesforce", DefaultStateRecencyThreshold))

	require.NoError(t, s.Set(testInstance("salesforce", "Account", "acme", "secret")))
	assert.Equal(t, Valid, s.GetStateRecency("salesforce", DefaultStateRecencyThreshold))
	assert.Equal(t, Old, s.GetStateRecency("salesforce", 0))
}

func TestStateStore_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")
	cache, err := naclfile.OpenCache(dbPath)
	require.NoError(t, err)

	s, err := NewStateStore("dev", cache)
	require.NoError(t, err)
	require.NoError(t, s.Set(testInstance("salesforce", "Account", "acme", "secret")))
	require.NoError(t, cache.Close())

	cache2, err := naclfile.OpenCache(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { cache2.Close() })

	s2, err := NewStateStore("dev", cache2)
	require.NoError(t, err)

	got, ok := s2.Get("salesforce.Account.instance.acme")
	require.True(t, ok)
	inst, ok := got.(*element.InstanceElement)
	require.True(t, ok)
	assert.Equal(t, "salesforce.Account.instance.acme", inst.ElemID().GetFullName())

	assert.Equal(t, Valid, s2.GetStateRecency("salesforce", DefaultStateRecencyThreshold))
}

func TestStateStore_SeparateBucketsDoNotLeak(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")
	cache, err := naclfile.OpenCache(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	dev, err := NewStateStore("dev", cache)
	require.NoError(t, err)
	require.NoError(t, dev.Set(testInstance("salesforce", "Account", "acme", "dev-secret")))

	prod, err := NewStateStore("prod", cache)
	require.NoError(t, err)
	assert.Empty(t, prod.List())
}
