package workspace

import (
	"fmt"
	"os"

	"github.com/vk/naclworkspace/internal/envsource"
	"github.com/vk/naclworkspace/internal/naclfile"
	"github.com/vk/naclworkspace/internal/wsconfig"
)

// AddEnvironment declares and loads a new, empty environment. Fails with
// the typed *wsconfig.Error on a duplicate name.
func (w *Workspace) AddEnvironment(name string) error {
	if err := os.MkdirAll(wsconfig.EnvDir(w.root, name), 0o755); err != nil {
		return fmt.Errorf("workspace: creating environment directory: %w", err)
	}
	if err := w.config.AddEnvironment(name); err != nil {
		return err
	}
	if err := w.config.Save(w.root); err != nil {
		w.config.Environments = w.config.Environments[:len(w.config.Environments)-1]
		return err
	}
	w.loadEnvironment(name)
	return nil
}

// DeleteEnvironment removes a declared environment and its on-disk files.
// Fails with the typed *wsconfig.Error when name is the current
// environment or unknown.
func (w *Workspace) DeleteEnvironment(name string) error {
	if err := w.config.DeleteEnvironment(name); err != nil {
		return err
	}
	if err := w.config.Save(w.root); err != nil {
		w.config.Environments = append(w.config.Environments, name)
		return err
	}
	delete(w.envSources, name)
	delete(w.merged, name)
	return os.RemoveAll(wsconfig.EnvDir(w.root, name))
}

// RenameEnvironment renames a declared environment, moving its directory
// on disk and rebuilding its Source under the new name. The environment
// keeps its existing state store, whose bucket in the shared cache still
// carries the old name rather than being migrated (bbolt has no cheap
// bucket rename). A workspace loaded afterwards opens the state bucket
// under the new name, so it does not see state stored before the rename.
func (w *Workspace) RenameEnvironment(oldName, newName string) error {
	if err := w.config.RenameEnvironment(oldName, newName); err != nil {
		return err
	}
	oldDir := wsconfig.EnvDir(w.root, oldName)
	newDir := wsconfig.EnvDir(w.root, newName)
	if err := os.Rename(oldDir, newDir); err != nil {
		_ = w.config.RenameEnvironment(newName, oldName)
		return fmt.Errorf("workspace: renaming environment directory: %w", err)
	}
	if err := w.config.Save(w.root); err != nil {
		return err
	}

	envFileSource, err := naclfile.NewSource(newDir, naclExtension, envBucketPrefix+newName, w.cache)
	if err != nil {
		return fmt.Errorf("workspace: reloading renamed environment: %w", err)
	}
	state := w.envSources[oldName].State()

	delete(w.envSources, oldName)
	delete(w.merged, oldName)
	w.envSources[newName] = envsource.NewSource(newName, w.common, envFileSource, state)
	w.remerge(newName)
	return nil
}

// SetCurrentEnv switches the workspace's current environment. Fails with
// the typed *wsconfig.Error when name isn't declared.
func (w *Workspace) SetCurrentEnv(name string) error {
	if err := w.config.SetCurrentEnv(name); err != nil {
		return err
	}
	return w.config.Save(w.root)
}

// CurrentEnv returns the workspace's current environment name.
func (w *Workspace) CurrentEnv() string {
	return w.config.CurrentEnv
}

// Environments returns every declared environment name.
func (w *Workspace) Environments() []string {
	return append([]string{}, w.config.Environments...)
}
