package editorws

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/naclworkspace/internal/validate"
	"github.com/vk/naclworkspace/internal/workspace"
	"github.com/vk/naclworkspace/internal/wsconfig"
)

const accountTypeSrc = `
type salesforce.Account {
  string Name {
  }
}
`

func newTestEditor(t *testing.T) (*EditorWorkspace, string) {
	t.Helper()
	root := t.TempDir()
	cfg, err := wsconfig.Init(root, "dev")
	require.NoError(t, err)
	require.NoError(t, cfg.Save(root))

	ws := workspace.NewWorkspace(context.Background(), root)
	baseDir := wsconfig.EnvDir(root, "dev")
	require.NoError(t, os.MkdirAll(baseDir, 0o755))
	return New(ws, baseDir, "dev", workspace.LayerEnv), baseDir
}

func TestSetNaclFiles_AddEditRemove(t *testing.T) {
	ed, baseDir := newTestEditor(t)
	ctx := context.Background()
	path := filepath.Join(baseDir, "account.nacl")

	require.NoError(t, ed.SetNaclFiles(ctx, map[string][]byte{path: []byte(accountTypeSrc)}))
	elements, err := ed.Elements(false)
	require.NoError(t, err)
	assert.Contains(t, elements, "salesforce.Account")

	edited := `
type salesforce.Account {
  string Email {
  }
}
`
	require.NoError(t, ed.SetNaclFiles(ctx, map[string][]byte{path: []byte(edited)}))
	elements, err = ed.Elements(false)
	require.NoError(t, err)
	obj := elements["salesforce.Account"]
	require.NotNil(t, obj)

	require.NoError(t, ed.RemoveNaclFiles(ctx, []string{path}))
	elements, err = ed.Elements(false)
	require.NoError(t, err)
	assert.NotContains(t, elements, "salesforce.Account")
}

func TestListNaclFiles_AbsolutizesPaths(t *testing.T) {
	ed, baseDir := newTestEditor(t)
	ctx := context.Background()
	path := filepath.Join(baseDir, "account.nacl")
	require.NoError(t, ed.SetNaclFiles(ctx, map[string][]byte{path: []byte(accountTypeSrc)}))

	files, err := ed.ListNaclFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, filepath.IsAbs(files[0]))
	assert.Equal(t, path, files[0])
}

func TestIncrementalValidation_UnresolvedReferenceAppearsAndClears(t *testing.T) {
	ed, baseDir := newTestEditor(t)
	ctx := context.Background()

	aPath := filepath.Join(baseDir, "a.nacl")
	bPath := filepath.Join(baseDir, "b.nacl")
	bSrc := `
type x.T {
  string a {
  }
}
x.T thing {
  a = "hi"
}
`
	aSrc := `
vars {
  ref = x.T.instance.thing.a
}
`

	require.NoError(t, ed.SetNaclFiles(ctx, map[string][]byte{
		bPath: []byte(bSrc),
		aPath: []byte(aSrc),
	}))
	assert.Empty(t, ed.ValidationErrors())

	require.NoError(t, ed.RemoveNaclFiles(ctx, []string{bPath}))
	errs := ed.ValidationErrors()
	require.NotEmpty(t, errs)
	found := false
	for _, e := range errs {
		if e.Kind == validate.UnresolvedReference {
			found = true
		}
	}
	assert.True(t, found)

	diags, err := ed.Diagnostics()
	require.NoError(t, err)
	require.NotEmpty(t, diags, "an unresolved-reference error must still resolve to a source range on the referencing element")
	assert.Equal(t, aPath, diags[0].File)

	require.NoError(t, ed.SetNaclFiles(ctx, map[string][]byte{bPath: []byte(bSrc)}))
	assert.Empty(t, ed.ValidationErrors())
}

func TestRunAggregatedSetOperation_JoinsConcurrentCallers(t *testing.T) {
	ed, baseDir := newTestEditor(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			path := filepath.Join(baseDir, "account.nacl")
			_ = ed.SetNaclFiles(ctx, map[string][]byte{path: []byte(accountTypeSrc)})
		}(i)
	}
	wg.Wait()

	elements, err := ed.Elements(false)
	require.NoError(t, err)
	assert.Contains(t, elements, "salesforce.Account")
}

func TestDebouncedDiagnostics_PublishesOnceAfterIdle(t *testing.T) {
	ed, baseDir := newTestEditor(t)
	ctx := context.Background()
	path := filepath.Join(baseDir, "account.nacl")

	var mu sync.Mutex
	published := 0
	listener := ed.CreateReportErrorsEventListener(func([]Diagnostic) {
		mu.Lock()
		published++
		mu.Unlock()
	}, 30*time.Millisecond)

	for i := 0; i < 3; i++ {
		listener(ctx, path, []byte(accountTypeSrc))
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, published)
}
