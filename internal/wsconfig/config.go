package wsconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigDirName is the workspace-relative directory holding the
	// workspace's own configuration, distinct from any one environment's
	// NaCl files.
	ConfigDirName = "salto.config"
	// ConfigFileName is the yaml.v3-serialized environment list and
	// current environment, under ConfigDirName.
	ConfigFileName = "config.yaml"
	// CommonDirName is the workspace-relative directory holding NaCl
	// files shared by every environment.
	CommonDirName = "common"
	// CacheFileName is the bbolt database file backing both the parse
	// cache (C6) and the per-environment state store (C7).
	CacheFileName = "cache.db"
)

// Config is the persisted shape of salto.config/config.yaml: the set of
// declared environments and which one is current.
type Config struct {
	Environments []string `yaml:"environments"`
	CurrentEnv   string   `yaml:"current_env"`
}

// Load reads and validates a workspace's configuration from root.
func Load(root string) (*Config, error) {
	path := filepath.Join(root, ConfigDirName, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wsconfig: reading %s: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("wsconfig: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init bootstraps a fresh workspace at root with a single environment,
// creating salto.config/, common/, and the environment's own directory.
func Init(root, firstEnv string) (*Config, error) {
	cfg := &Config{Environments: []string{firstEnv}, CurrentEnv: firstEnv}
	if err := cfg.Save(root); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(CommonDir(root), 0o755); err != nil {
		return nil, fmt.Errorf("wsconfig: creating common dir: %w", err)
	}
	if err := os.MkdirAll(EnvDir(root, firstEnv), 0o755); err != nil {
		return nil, fmt.Errorf("wsconfig: creating environment dir: %w", err)
	}
	return cfg, nil
}

// Save writes the config back to root, creating salto.config/ if needed.
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, ConfigDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("wsconfig: creating %s: %w", dir, err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("wsconfig: marshaling config: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, ConfigFileName), data, 0o644)
}

// Validate reports a structurally invalid config: no environments
// declared, a duplicate environment name, or a current environment that
// isn't among the declared ones.
func (c *Config) Validate() error {
	if len(c.Environments) == 0 {
		return errors.New("wsconfig: no environments declared")
	}
	seen := make(map[string]bool, len(c.Environments))
	for _, env := range c.Environments {
		if seen[env] {
			return &Error{Kind: EnvDuplication, Env: env}
		}
		seen[env] = true
	}
	if c.CurrentEnv == "" {
		return errors.New("wsconfig: no current environment set")
	}
	if !seen[c.CurrentEnv] {
		return &Error{Kind: UnknownEnv, Env: c.CurrentEnv}
	}
	return nil
}

// HasEnv reports whether name is a declared environment.
func (c *Config) HasEnv(name string) bool {
	for _, env := range c.Environments {
		if env == name {
			return true
		}
	}
	return false
}

// AddEnvironment declares a new environment.
func (c *Config) AddEnvironment(name string) error {
	if c.HasEnv(name) {
		return &Error{Kind: EnvDuplication, Env: name}
	}
	c.Environments = append(c.Environments, name)
	return nil
}

// DeleteEnvironment removes a declared environment. The current
// environment can never be deleted.
func (c *Config) DeleteEnvironment(name string) error {
	if name == c.CurrentEnv {
		return &Error{Kind: DeleteCurrentEnv, Env: name}
	}
	idx := -1
	for i, env := range c.Environments {
		if env == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return &Error{Kind: UnknownEnv, Env: name}
	}
	c.Environments = append(c.Environments[:idx], c.Environments[idx+1:]...)
	return nil
}

// RenameEnvironment renames a declared environment, updating CurrentEnv
// too if it was the renamed one.
func (c *Config) RenameEnvironment(oldName, newName string) error {
	if !c.HasEnv(oldName) {
		return &Error{Kind: UnknownEnv, Env: oldName}
	}
	if c.HasEnv(newName) {
		return &Error{Kind: EnvDuplication, Env: newName}
	}
	for i, env := range c.Environments {
		if env == oldName {
			c.Environments[i] = newName
		}
	}
	if c.CurrentEnv == oldName {
		c.CurrentEnv = newName
	}
	return nil
}

// SetCurrentEnv switches the current environment to an already-declared
// one.
func (c *Config) SetCurrentEnv(name string) error {
	if !c.HasEnv(name) {
		return &Error{Kind: UnknownEnv, Env: name}
	}
	c.CurrentEnv = name
	return nil
}

// CommonDir returns the absolute path of the shared common/ directory
// under a workspace rooted at root.
func CommonDir(root string) string {
	return filepath.Join(root, CommonDirName)
}

// EnvDir returns the absolute path of environment env's own directory
// under a workspace rooted at root.
func EnvDir(root, env string) string {
	return filepath.Join(root, env)
}

// CacheFilePath returns the absolute path of the shared bbolt cache file
// under a workspace rooted at root.
func CacheFilePath(root string) string {
	return filepath.Join(root, ConfigDirName, CacheFileName)
}
