package workspace

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/naclworkspace/internal/elemid"
	"github.com/vk/naclworkspace/internal/element"
	"github.com/vk/naclworkspace/internal/envsource"
	"github.com/vk/naclworkspace/internal/merge"
	"github.com/vk/naclworkspace/internal/naclfile"
	"github.com/vk/naclworkspace/internal/naclparse"
	"github.com/vk/naclworkspace/internal/sourcepos"
	"github.com/vk/naclworkspace/internal/validate"
	"github.com/vk/naclworkspace/internal/wsconfig"
	"github.com/vk/naclworkspace/internal/wslog"
)

const naclExtension = ".nacl"

const (
	commonBucket      = "common"
	envBucketPrefix   = "env:"
	stateBucketPrefix = "state:"
)

// mergedState is one environment's incrementally maintained merge output:
// the canonical full-name-to-element map, plus the merge errors observed
// producing it. Validation errors are never cached here — §9's design
// notes treat validation as an orthogonal, lazily-invoked pipeline stage.
type mergedState struct {
	elements    map[string]element.TopLevelElement
	mergeErrors []*merge.Error
}

// ErrorSet is the full collected error surface for one environment: parse
// errors from every file (common and env), merge errors from the last
// (re)merge, and validation errors when explicitly requested.
type ErrorSet struct {
	Parse    []*naclparse.ParseError
	Merge    []*merge.Error
	Validate []*validate.Error
}

// Workspace is the top-level object a caller drives: one shared common
// naclfile.Source, one envsource.Source per declared environment, and one
// incrementally maintained mergedState per environment.
type Workspace struct {
	root       string
	cache      *naclfile.Cache
	config     *wsconfig.Config
	common     *naclfile.Source
	envSources map[string]*envsource.Source
	merged     map[string]*mergedState
}

// NewWorkspace loads the workspace rooted at root: its salto.config, the
// shared bbolt cache, the common source and every declared environment's
// source, merging each environment once. Construction failures — a
// malformed config, an unreadable directory, a corrupt cache — are
// unrecoverable programmer/operator errors, so NewWorkspace panics rather
// than returning an error, the way the teacher's app.NewApp panics on a
// failed configuration load; the panic is recovered only at the cmd/
// boundary, never inside this package.
func NewWorkspace(ctx context.Context, root string) *Workspace {
	logger := wslog.FromContext(ctx)

	cfg, err := wsconfig.Load(root)
	if err != nil {
		panic(fmt.Errorf("workspace: loading config: %w", err))
	}
	logger.Debug("workspace config loaded", "environments", cfg.Environments, "current", cfg.CurrentEnv)

	cache, err := naclfile.OpenCache(wsconfig.CacheFilePath(root))
	if err != nil {
		panic(fmt.Errorf("workspace: opening cache: %w", err))
	}

	common, err := naclfile.NewSource(wsconfig.CommonDir(root), naclExtension, commonBucket, cache)
	if err != nil {
		panic(fmt.Errorf("workspace: loading common source: %w", err))
	}

	w := &Workspace{
		root:       root,
		cache:      cache,
		config:     cfg,
		common:     common,
		envSources: map[string]*envsource.Source{},
		merged:     map[string]*mergedState{},
	}

	for _, env := range cfg.Environments {
		w.loadEnvironment(env)
	}

	logger.Debug("workspace loaded", "environments", len(w.envSources))
	return w
}

// loadEnvironment builds and fully merges one environment's
// envsource.Source. common is always the single shared *naclfile.Source
// held on w, never cloned here — only Workspace.Clone needs per-clone
// independence, and it clones common exactly once itself per
// envsource.Source's documented cloning contract.
func (w *Workspace) loadEnvironment(env string) {
	envFileSource, err := naclfile.NewSource(wsconfig.EnvDir(w.root, env), naclExtension, envBucketPrefix+env, w.cache)
	if err != nil {
		panic(fmt.Errorf("workspace: loading environment %q: %w", env, err))
	}
	state, err := envsource.NewStateStore(stateBucketPrefix+env, w.cache)
	if err != nil {
		panic(fmt.Errorf("workspace: loading state for environment %q: %w", env, err))
	}
	w.envSources[env] = envsource.NewSource(env, w.common, envFileSource, state)
	w.remerge(env)
}

// remerge fully re-merges one environment from scratch, replacing its
// cached mergedState wholesale. Used at construction and wherever the
// change set is too coarse-grained for a precise changed-ID list (env
// lifecycle operations, Clear).
func (w *Workspace) remerge(env string) {
	src := w.envSources[env]
	elements, errs := src.Elements()
	w.merged[env] = &mergedState{elements: elements, mergeErrors: errs}
}

// resolveEnv maps an empty env argument to the workspace's current
// environment, the convention every public method here follows.
func (w *Workspace) resolveEnv(env string) string {
	if env == "" {
		return w.config.CurrentEnv
	}
	return env
}

func (w *Workspace) requireSource(env string) (*envsource.Source, *mergedState, error) {
	env = w.resolveEnv(env)
	src, ok := w.envSources[env]
	if !ok {
		return nil, nil, &wsconfig.Error{Kind: wsconfig.UnknownEnv, Env: env}
	}
	return src, w.merged[env], nil
}

// Elements returns env's merged element map (env empty means current
// environment). includeHidden overlays previously fetched hidden values on
// top, a pure post-merge step applied fresh on every call rather than
// cached, so a stale overlay can never leak into a read that asked for the
// NaCl-only view.
func (w *Workspace) Elements(env string, includeHidden bool) (map[string]element.TopLevelElement, error) {
	src, ms, err := w.requireSource(env)
	if err != nil {
		return nil, err
	}
	if !includeHidden {
		return ms.elements, nil
	}
	return envsource.ApplyHiddenOverlay(ms.elements, src.State()), nil
}

// GetElement returns the top-level element id belongs to (resolving a
// nested field/attr/annotation id to its owning top-level element first).
func (w *Workspace) GetElement(env string, id elemid.ElemID) (element.TopLevelElement, error) {
	elements, err := w.Elements(env, true)
	if err != nil {
		return nil, err
	}
	top, _ := id.CreateTopLevelParentID()
	el, ok := elements[top.GetFullName()]
	if !ok {
		return nil, fmt.Errorf("workspace: element %s not found", id)
	}
	return el, nil
}

// GetValue resolves id down to the Value at its exact path, descending
// into an instance's or variable's value tree, or a type's field
// annotations, by the path elemid.CreateTopLevelParentID reports. Returns
// false if id addresses something that isn't a Value (a field's declared
// Type, rather than a value stored at that field).
func (w *Workspace) GetValue(env string, id elemid.ElemID) (element.Value, bool, error) {
	top, path := id.CreateTopLevelParentID()
	el, err := w.GetElement(env, top)
	if err != nil {
		return nil, false, err
	}
	v, ok := navigateValue(el, path)
	return v, ok, nil
}

func navigateValue(el element.TopLevelElement, path []string) (element.Value, bool) {
	switch e := el.(type) {
	case *element.InstanceElement:
		return navigateValuePath(e.Value, path)
	case *element.VarElement:
		return navigateValuePath(e.Value, path)
	case *element.ObjectType:
		return navigateTypePath(e, path)
	default:
		return nil, false
	}
}

func navigateValuePath(v element.Value, path []string) (element.Value, bool) {
	for _, seg := range path {
		switch cur := v.(type) {
		case *element.MapValue:
			next, ok := cur.Items[seg]
			if !ok {
				return nil, false
			}
			v = next
		default:
			return nil, false
		}
	}
	return v, true
}

func navigateTypePath(obj *element.ObjectType, path []string) (element.Value, bool) {
	if len(path) < 2 {
		return nil, false
	}
	switch elemid.IDType(path[0]) {
	case elemid.AttrType:
		v, ok := obj.Annotations()[path[1]]
		return v, ok
	case elemid.FieldType:
		field, ok := obj.Fields[path[1]]
		if !ok || len(path) == 2 {
			return nil, false
		}
		v, ok := field.Annotations()[path[2]]
		return v, ok
	default:
		return nil, false
	}
}

// Errors collects env's parse and merge errors, plus validation errors
// when runValidation is true — a separate, lazy pass per §4.6's
// incremental re-merge algorithm, never folded into the cached
// mergedState.
func (w *Workspace) Errors(env string, runValidation bool) (*ErrorSet, error) {
	src, ms, err := w.requireSource(env)
	if err != nil {
		return nil, err
	}
	result := &ErrorSet{
		Parse: append(collectParseErrors(src.Common()), collectParseErrors(src.Env())...),
		Merge: ms.mergeErrors,
	}
	if runValidation {
		subset := make([]element.TopLevelElement, 0, len(ms.elements))
		for _, el := range ms.elements {
			subset = append(subset, el)
		}
		result.Validate = validate.Validate(subset, ms.elements)
	}
	return result, nil
}

func collectParseErrors(src *naclfile.Source) []*naclparse.ParseError {
	var errs []*naclparse.ParseError
	for _, name := range src.ListFiles() {
		pf, ok := src.GetParsedFile(name)
		if !ok {
			continue
		}
		errs = append(errs, pf.Errors...)
	}
	return errs
}

// ListNaclFiles returns every file name across env's common and own
// sources, sorted.
func (w *Workspace) ListNaclFiles(env string) ([]string, error) {
	src, _, err := w.requireSource(env)
	if err != nil {
		return nil, err
	}
	files := append([]string{}, src.Env().ListFiles()...)
	files = append(files, src.Common().ListFiles()...)
	sort.Strings(files)
	return files, nil
}

// GetSourceMap returns the source map for one file in env, checked against
// the env source first and the common source second.
func (w *Workspace) GetSourceMap(env, file string) (sourcepos.SourceMap, bool, error) {
	src, _, err := w.requireSource(env)
	if err != nil {
		return nil, false, err
	}
	if sm, ok := src.Env().GetSourceMap(file); ok {
		return sm, true, nil
	}
	sm, ok := src.Common().GetSourceMap(file)
	return sm, ok, nil
}

// GetSourceRanges returns every range id appears at, across both env's own
// files and the common files.
func (w *Workspace) GetSourceRanges(env string, id elemid.ElemID) ([]sourcepos.Range, error) {
	src, _, err := w.requireSource(env)
	if err != nil {
		return nil, err
	}
	ranges := append([]sourcepos.Range{}, src.Env().GetSourceRanges(id)...)
	ranges = append(ranges, src.Common().GetSourceRanges(id)...)
	return ranges, nil
}

// GetElementNaclFiles returns every file (env-owned or common) currently
// holding a fragment of id's top-level element.
func (w *Workspace) GetElementNaclFiles(env string, id elemid.ElemID) ([]string, error) {
	src, _, err := w.requireSource(env)
	if err != nil {
		return nil, err
	}
	files := append([]string{}, src.Env().GetElementNaclFiles(id)...)
	files = append(files, src.Common().GetElementNaclFiles(id)...)
	return files, nil
}

// GetElementReferencesToFiles returns every file (env-owned or common)
// whose parse referenced id, letting a caller walk from a changed element
// back to the elements that reference it.
func (w *Workspace) GetElementReferencesToFiles(env string, id elemid.ElemID) ([]string, error) {
	src, _, err := w.requireSource(env)
	if err != nil {
		return nil, err
	}
	files := append([]string{}, src.Env().GetElementReferencesToFiles(id)...)
	files = append(files, src.Common().GetElementReferencesToFiles(id)...)
	return files, nil
}

// TopLevelIDsInFile returns the ElemID of every top-level fragment parsed
// out of file, checked against env's own files first and common second.
func (w *Workspace) TopLevelIDsInFile(env, file string) ([]elemid.ElemID, error) {
	src, _, err := w.requireSource(env)
	if err != nil {
		return nil, err
	}
	if pf, ok := src.Env().GetParsedFile(file); ok {
		return fragmentIDs(pf), nil
	}
	if pf, ok := src.Common().GetParsedFile(file); ok {
		return fragmentIDs(pf), nil
	}
	return nil, nil
}

func fragmentIDs(pf *naclfile.ParsedFile) []elemid.ElemID {
	ids := make([]elemid.ElemID, 0, len(pf.Fragments))
	for _, f := range pf.Fragments {
		ids = append(ids, f.ElemID())
	}
	return ids
}

// Flush durably persists every environment's pending parses (and the
// shared common source's, reachable through any one environment).
func (w *Workspace) Flush() error {
	for _, src := range w.envSources {
		if err := src.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// Clear wipes every NaCl file, cache entry and state record across the
// entire workspace — common and every declared environment — and
// re-merges each environment to the resulting empty state.
func (w *Workspace) Clear() error {
	if err := w.common.Clear(); err != nil {
		return err
	}
	for env, src := range w.envSources {
		if err := src.Env().Clear(); err != nil {
			return err
		}
		if err := src.State().Clear(); err != nil {
			return err
		}
		w.remerge(env)
	}
	return nil
}

// Clone returns an independent copy of the workspace: common is cloned
// exactly once and shared across every cloned environment's Source,
// matching the contract envsource.Source.Clone documents but cannot
// enforce on its own (it only ever sees one environment at a time). State
// stores are shared by reference, per the same contract.
func (w *Workspace) Clone() *Workspace {
	clone := &Workspace{
		root:       w.root,
		cache:      w.cache,
		config:     &wsconfig.Config{Environments: append([]string{}, w.config.Environments...), CurrentEnv: w.config.CurrentEnv},
		common:     w.common.Clone(),
		envSources: map[string]*envsource.Source{},
		merged:     map[string]*mergedState{},
	}
	for env, src := range w.envSources {
		clone.envSources[env] = envsource.NewSource(env, clone.common, src.Env().Clone(), src.State())
		ms := w.merged[env]
		clone.merged[env] = &mergedState{
			elements:    copyElements(ms.elements),
			mergeErrors: append([]*merge.Error{}, ms.mergeErrors...),
		}
	}
	return clone
}

func copyElements(in map[string]element.TopLevelElement) map[string]element.TopLevelElement {
	out := make(map[string]element.TopLevelElement, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// GetStateRecency reports how stale env's last fetched state is for the
// named service, against envsource's default threshold.
func (w *Workspace) GetStateRecency(env, service string) (envsource.Recency, error) {
	src, _, err := w.requireSource(env)
	if err != nil {
		return envsource.Nonexistent, err
	}
	return src.State().GetStateRecency(service, envsource.DefaultStateRecencyThreshold), nil
}
