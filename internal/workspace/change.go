package workspace

import (
	"context"
	"strings"

	"github.com/vk/naclworkspace/internal/elemid"
	"github.com/vk/naclworkspace/internal/element"
	"github.com/vk/naclworkspace/internal/envsource"
	"github.com/vk/naclworkspace/internal/merge"
	"github.com/vk/naclworkspace/internal/naclfile"
	"github.com/vk/naclworkspace/internal/wsconfig"
)

// Action discriminates what a DetailedChange does to its element.
type Action int

const (
	Add Action = iota
	Modify
	Remove
)

// DetailedChange is one caller-submitted edit, addressed by the top-level
// ElemID it replaces wholesale. The full nested-path patch machinery
// SPEC_FULL.md's DetailedChange shape allows (editing one field inside an
// instance without restating the whole value) is not built here: every
// change instead carries the complete replacement element, the way a
// caller would reconstruct it after editing one field in memory.
type DetailedChange struct {
	ID     elemid.ElemID
	Action Action
	Before element.TopLevelElement
	After  element.TopLevelElement
}

// RoutingMode selects which layer (common or the current environment)
// receives a DetailedChange's write.
type RoutingMode int

const (
	// RouteDefault writes to common when the element already lives there,
	// to env otherwise.
	RouteDefault RoutingMode = iota
	// RouteIsolated always writes to the current env, leaving common
	// untouched even if the element already exists there (so the env now
	// shadows it).
	RouteIsolated
	// RouteAlign moves the element from common to env so the env's file
	// set matches what it now sees: the change is written to env and, if
	// the element previously lived in common, removed from common too.
	RouteAlign
	// RouteOverride unconditionally writes to env and drops any
	// conflicting common content for the same element.
	RouteOverride
)

// Layer selects which underlying naclfile.Source a whole-file operation
// targets.
type Layer int

const (
	LayerEnv Layer = iota
	LayerCommon
)

// UpdateNaclFiles routes each DetailedChange to a file (per mode), applies
// it, and incrementally re-merges exactly the changed top-level IDs per
// §4.6's algorithm: remove the changed IDs from the cached merged map,
// re-merge only their fragments, splice the result back in, and recompute
// mergeErrors by dropping errors scoped to the changed IDs and appending
// new ones. Validation errors are left for a separate Errors(validate)
// call.
func (w *Workspace) UpdateNaclFiles(env string, changes []DetailedChange, mode RoutingMode) ([]naclfile.Change, error) {
	src, _, err := w.requireSource(env)
	if err != nil {
		return nil, err
	}
	env = w.resolveEnv(env)

	var allChanges []naclfile.Change
	changedIDs := map[string]bool{}
	for _, c := range changes {
		inCommon := len(src.Common().GetElementNaclFiles(c.ID)) > 0

		if (mode == RouteAlign || mode == RouteOverride) && inCommon {
			removed, err := w.applyToLayer(src.Common(), DetailedChange{ID: c.ID, Action: Remove})
			if err != nil {
				return nil, err
			}
			allChanges = append(allChanges, removed...)
		}

		target := w.routeLayer(src, c, mode, inCommon)
		applied, err := w.applyToLayer(target, c)
		if err != nil {
			return nil, err
		}
		allChanges = append(allChanges, applied...)
		changedIDs[c.ID.GetFullName()] = true
	}

	w.remergeChanged(env, changedIDs)
	return allChanges, nil
}

func (w *Workspace) routeLayer(src *envsource.Source, c DetailedChange, mode RoutingMode, inCommon bool) *naclfile.Source {
	switch mode {
	case RouteIsolated, RouteAlign, RouteOverride:
		return src.Env()
	default: // RouteDefault
		if inCommon {
			return src.Common()
		}
		return src.Env()
	}
}

// applyToLayer rewrites the single file holding id within layerSrc (or a
// freshly named one, for an Add with no prior file) to reflect change,
// by re-rendering that file's fragment list with id's old fragment
// replaced or removed.
func (w *Workspace) applyToLayer(layerSrc *naclfile.Source, c DetailedChange) ([]naclfile.Change, error) {
	fullName := c.ID.GetFullName()
	files := layerSrc.GetElementNaclFiles(c.ID)
	fileName := defaultFileName(c.ID)
	if len(files) > 0 {
		fileName = files[0]
	}

	var fragments []element.TopLevelElement
	if pf, ok := layerSrc.GetParsedFile(fileName); ok {
		for _, f := range pf.Fragments {
			if f.ElemID().GetFullName() != fullName {
				fragments = append(fragments, f)
			}
		}
	}
	if c.Action != Remove && c.After != nil {
		fragments = append(fragments, c.After)
	}

	if len(fragments) == 0 {
		return layerSrc.RemoveFiles([]string{fileName})
	}
	content := []byte(naclfile.Render(fragments))
	return layerSrc.SetFiles(context.Background(), map[string][]byte{fileName: content})
}

func defaultFileName(id elemid.ElemID) string {
	if id.IDType == elemid.VarType {
		return "vars.nacl"
	}
	return strings.ToLower(id.Adapter+"_"+id.TypeName) + ".nacl"
}

// remergeChanged implements §4.6's incremental re-merge: drop the changed
// IDs from the cached merged map, re-merge only their fragments, splice
// the result back in, re-resolve stub types against the full, spliced
// universe, and recompute mergeErrors.
func (w *Workspace) remergeChanged(env string, changedIDs map[string]bool) {
	if len(changedIDs) == 0 {
		return
	}
	src := w.envSources[env]
	ms := w.merged[env]

	for name := range changedIDs {
		delete(ms.elements, name)
	}

	var subset []merge.Fragment
	for _, f := range src.Fragments() {
		if changedIDs[f.Element.ElemID().GetFullName()] {
			subset = append(subset, f)
		}
	}
	newElements, newErrs := merge.Merge(subset)
	for name, el := range newElements {
		ms.elements[name] = el
	}
	newErrs = append(newErrs, merge.ResolveTypes(ms.elements)...)

	keptErrs := make([]*merge.Error, 0, len(ms.mergeErrors))
	for _, e := range ms.mergeErrors {
		top, _ := e.ElemID.CreateTopLevelParentID()
		if !changedIDs[top.GetFullName()] {
			keptErrs = append(keptErrs, e)
		}
	}
	ms.mergeErrors = append(keptErrs, newErrs...)
}

// SetNaclFiles writes whole files directly into one layer of env, the
// operation an editor uses when it owns entire file buffers rather than
// element-level changes.
func (w *Workspace) SetNaclFiles(env string, layer Layer, files map[string][]byte) ([]naclfile.Change, error) {
	src, _, err := w.requireSource(env)
	if err != nil {
		return nil, err
	}
	env = w.resolveEnv(env)
	target := w.layerSource(src, layer)

	changes, err := target.SetFiles(context.Background(), files)
	if err != nil {
		return nil, err
	}
	w.remergeFromNaclChanges(env, changes)
	return changes, nil
}

// RemoveNaclFiles removes whole files directly from one layer of env.
func (w *Workspace) RemoveNaclFiles(env string, layer Layer, names []string) ([]naclfile.Change, error) {
	src, _, err := w.requireSource(env)
	if err != nil {
		return nil, err
	}
	env = w.resolveEnv(env)
	target := w.layerSource(src, layer)

	changes, err := target.RemoveFiles(names)
	if err != nil {
		return nil, err
	}
	w.remergeFromNaclChanges(env, changes)
	return changes, nil
}

func (w *Workspace) layerSource(src *envsource.Source, layer Layer) *naclfile.Source {
	if layer == LayerCommon {
		return src.Common()
	}
	return src.Env()
}

func (w *Workspace) remergeFromNaclChanges(env string, changes []naclfile.Change) {
	ids := map[string]bool{}
	for _, c := range changes {
		ids[c.FullName] = true
	}
	w.remergeChanged(env, ids)
}

// Promote moves elements from env's own files into common, so every
// environment sees them.
func (w *Workspace) Promote(env string, ids []elemid.ElemID) ([]naclfile.Change, error) {
	return w.moveElements(env, ids, layerEnvOf, layerCommonOf)
}

// Demote moves elements from common into env's own files, so only this
// environment keeps seeing them (as an override) once common's copy is
// gone.
func (w *Workspace) Demote(env string, ids []elemid.ElemID) ([]naclfile.Change, error) {
	return w.moveElements(env, ids, layerCommonOf, layerEnvOf)
}

// DemoteAll demotes every element currently declared in common into env.
func (w *Workspace) DemoteAll(env string) ([]naclfile.Change, error) {
	src, _, err := w.requireSource(env)
	if err != nil {
		return nil, err
	}
	var ids []elemid.ElemID
	for _, name := range src.Common().ListFiles() {
		pf, ok := src.Common().GetParsedFile(name)
		if !ok {
			continue
		}
		for _, f := range pf.Fragments {
			ids = append(ids, f.ElemID())
		}
	}
	return w.Demote(env, ids)
}

type layerSelector func(*envsource.Source) *naclfile.Source

func layerEnvOf(s *envsource.Source) *naclfile.Source    { return s.Env() }
func layerCommonOf(s *envsource.Source) *naclfile.Source { return s.Common() }

func (w *Workspace) moveElements(env string, ids []elemid.ElemID, from, to layerSelector) ([]naclfile.Change, error) {
	src, _, err := w.requireSource(env)
	if err != nil {
		return nil, err
	}
	env = w.resolveEnv(env)
	fromSrc, toSrc := from(src), to(src)

	var allChanges []naclfile.Change
	changedIDs := map[string]bool{}
	for _, id := range ids {
		el, ok := lookupElementInLayer(fromSrc, id)
		if !ok {
			continue
		}
		removed, err := w.applyToLayer(fromSrc, DetailedChange{ID: id, Action: Remove})
		if err != nil {
			return nil, err
		}
		added, err := w.applyToLayer(toSrc, DetailedChange{ID: id, Action: Add, After: el})
		if err != nil {
			return nil, err
		}
		allChanges = append(allChanges, removed...)
		allChanges = append(allChanges, added...)
		changedIDs[id.GetFullName()] = true
	}
	w.remergeChanged(env, changedIDs)
	return allChanges, nil
}

func lookupElementInLayer(layerSrc *naclfile.Source, id elemid.ElemID) (element.TopLevelElement, bool) {
	fullName := id.GetFullName()
	for _, file := range layerSrc.GetElementNaclFiles(id) {
		pf, ok := layerSrc.GetParsedFile(file)
		if !ok {
			continue
		}
		for _, f := range pf.Fragments {
			if f.ElemID().GetFullName() == fullName {
				return f, true
			}
		}
	}
	return nil, false
}

// CopyTo copies elements (found in fromEnv's own files, falling back to
// common) into each target environment's own files, leaving fromEnv
// untouched.
func (w *Workspace) CopyTo(fromEnv string, ids []elemid.ElemID, toEnvs []string) ([]naclfile.Change, error) {
	fromSrc, _, err := w.requireSource(fromEnv)
	if err != nil {
		return nil, err
	}

	found := map[string]element.TopLevelElement{}
	for _, id := range ids {
		if el, ok := lookupElementInLayer(fromSrc.Env(), id); ok {
			found[id.GetFullName()] = el
			continue
		}
		if el, ok := lookupElementInLayer(fromSrc.Common(), id); ok {
			found[id.GetFullName()] = el
		}
	}

	var allChanges []naclfile.Change
	for _, toEnv := range toEnvs {
		toSrc, ok := w.envSources[toEnv]
		if !ok {
			return nil, &wsconfig.Error{Kind: wsconfig.UnknownEnv, Env: toEnv}
		}
		changedIDs := map[string]bool{}
		for _, id := range ids {
			el, ok := found[id.GetFullName()]
			if !ok {
				continue
			}
			applied, err := w.applyToLayer(toSrc.Env(), DetailedChange{ID: id, Action: Add, After: el})
			if err != nil {
				return nil, err
			}
			allChanges = append(allChanges, applied...)
			changedIDs[id.GetFullName()] = true
		}
		w.remergeChanged(toEnv, changedIDs)
	}
	return allChanges, nil
}
