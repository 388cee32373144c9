package envsource

import (
	"github.com/vk/naclworkspace/internal/element"
	"github.com/vk/naclworkspace/internal/merge"
	"github.com/vk/naclworkspace/internal/naclfile"
)

// Source is one environment's effective NaCl file set: a common
// naclfile.Source shared by every environment, this environment's own
// naclfile.Source, and the state store holding its previously fetched
// hidden values. The effective file set is the union of common and env,
// with env's files overriding common on file-name collision.
//
// Source does not decide which underlying naclfile.Source a write goes to;
// that routing decision (§4.6's "default/isolated/align/override" modes)
// belongs to the workspace above it. Source only answers reads.
type Source struct {
	name   string
	common *naclfile.Source
	env    *naclfile.Source
	state  *StateStore
}

// NewSource composes a per-environment Source out of the shared common
// naclfile.Source, this environment's own naclfile.Source, and its state
// store.
func NewSource(name string, common, env *naclfile.Source, state *StateStore) *Source {
	return &Source{name: name, common: common, env: env, state: state}
}

// Name returns the environment name this Source serves.
func (s *Source) Name() string { return s.name }

// Common returns the shared common-files source.
func (s *Source) Common() *naclfile.Source { return s.common }

// Env returns this environment's own-files source.
func (s *Source) Env() *naclfile.Source { return s.env }

// State returns this environment's hidden-value state store.
func (s *Source) State() *StateStore { return s.state }

// Fragments returns every top-level fragment across the effective file
// set: every file in env, plus every file in common whose name is not
// shadowed by a same-named file in env.
func (s *Source) Fragments() []merge.Fragment {
	var frags []merge.Fragment

	envFiles := map[string]bool{}
	for _, name := range s.env.ListFiles() {
		envFiles[name] = true
		appendFragments(&frags, s.env, name, "env:"+name)
	}
	for _, name := range s.common.ListFiles() {
		if envFiles[name] {
			continue
		}
		appendFragments(&frags, s.common, name, "common:"+name)
	}
	return frags
}

func appendFragments(out *[]merge.Fragment, src *naclfile.Source, name, fileTag string) {
	pf, ok := src.GetParsedFile(name)
	if !ok {
		return
	}
	for _, e := range pf.Fragments {
		*out = append(*out, merge.Fragment{Element: e, File: fileTag})
	}
}

// Elements merges the effective fragment set into a canonical map of
// full-name to element, NaCl-visible only (no hidden overlay).
func (s *Source) Elements() (map[string]element.TopLevelElement, []*merge.Error) {
	return merge.Merge(s.Fragments())
}

// ElementsWithHidden merges the effective fragment set and overlays
// previously fetched hidden values on top of it.
func (s *Source) ElementsWithHidden() (map[string]element.TopLevelElement, []*merge.Error) {
	merged, errs := s.Elements()
	return ApplyHiddenOverlay(merged, s.state), errs
}

// Flush durably persists both the common and the env naclfile.Source's
// pending parses.
func (s *Source) Flush() error {
	if err := s.common.Flush(); err != nil {
		return err
	}
	return s.env.Flush()
}

// Clone returns an independent copy of this Source. Per the workspace's
// cloning contract, the underlying file sources are deep-copied but the
// state store is shared by reference.
func (s *Source) Clone() *Source {
	return &Source{
		name:   s.name,
		common: s.common.Clone(),
		env:    s.env.Clone(),
		state:  s.state,
	}
}
