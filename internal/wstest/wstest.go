// Package wstest provides a standardized harness for building a
// *workspace.Workspace (or *editorws.EditorWorkspace) out of an in-memory
// file map, the way internal/testutil's RunIntegrationTest(WithContext)
// builds a burstgridgo app out of an in-memory HCL file map: a throwaway
// temp directory, files written in per-environment subdirectories, and a
// ready-to-drive object handed back to the caller.
package wstest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/naclworkspace/internal/editorws"
	"github.com/vk/naclworkspace/internal/workspace"
	"github.com/vk/naclworkspace/internal/wsconfig"
)

// Layout describes one workspace fixture: a set of declared environments
// (the first is made current), common NaCl files, and per-environment NaCl
// files. File names are relative; content is written verbatim.
type Layout struct {
	Environments []string
	Common       map[string]string
	Env          map[string]map[string]string // env name -> file name -> content
}

// NewWorkspace builds a temp-directory workspace from layout and returns
// it, already loaded and merged. The directory is removed automatically
// when t's test completes.
func NewWorkspace(t *testing.T, layout Layout) *workspace.Workspace {
	t.Helper()
	root := BuildRoot(t, layout)
	return workspace.NewWorkspace(context.Background(), root)
}

// BuildRoot lays layout out on disk under a fresh t.TempDir() and returns
// the workspace root path, without loading a Workspace over it — useful
// for tests that want to exercise NewWorkspace/wsconfig.Load themselves.
func BuildRoot(t *testing.T, layout Layout) string {
	t.Helper()
	require.NotEmpty(t, layout.Environments, "wstest.Layout needs at least one environment")

	root := t.TempDir()
	cfg, err := wsconfig.Init(root, layout.Environments[0])
	require.NoError(t, err)
	for _, env := range layout.Environments[1:] {
		require.NoError(t, cfg.AddEnvironment(env))
		require.NoError(t, os.MkdirAll(wsconfig.EnvDir(root, env), 0o755))
	}
	require.NoError(t, cfg.Save(root))

	for name, content := range layout.Common {
		writeFile(t, wsconfig.CommonDir(root), name, content)
	}
	for env, files := range layout.Env {
		require.NoError(t, os.MkdirAll(wsconfig.EnvDir(root, env), 0o755))
		for name, content := range files {
			writeFile(t, wsconfig.EnvDir(root, env), name, content)
		}
	}
	return root
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// NewEditorWorkspace builds the same fixture as NewWorkspace and wraps it
// in an *editorws.EditorWorkspace addressing env's own files (LayerEnv)
// under baseDir <root>/<env>.
func NewEditorWorkspace(t *testing.T, layout Layout, env string) *editorws.EditorWorkspace {
	t.Helper()
	root := BuildRoot(t, layout)
	ws := workspace.NewWorkspace(context.Background(), root)
	return editorws.New(ws, wsconfig.EnvDir(root, env), env, workspace.LayerEnv)
}
