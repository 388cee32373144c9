package editorws

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/vk/naclworkspace/internal/elemid"
	"github.com/vk/naclworkspace/internal/element"
	"github.com/vk/naclworkspace/internal/merge"
	"github.com/vk/naclworkspace/internal/naclfile"
	"github.com/vk/naclworkspace/internal/naclparse"
	"github.com/vk/naclworkspace/internal/sourcepos"
	"github.com/vk/naclworkspace/internal/validate"
	"github.com/vk/naclworkspace/internal/workspace"
	"github.com/vk/naclworkspace/internal/wslog"
)

// DebounceInterval is the default idle period to pass to
// CreateReportErrorsEventListener, which waits the interval it is given
// after the last edit before publishing diagnostics, per §4.7.
const DebounceInterval = 500 * time.Millisecond

// EditorWorkspace wraps a *workspace.Workspace with the concerns an
// interactive editor client needs and the core workspace does not: paths
// translated relative to one baseDir, edits batched into a pending queue
// instead of applied one keystroke at a time, a total operation order, and
// incrementally maintained validation errors.
type EditorWorkspace struct {
	ws      *workspace.Workspace
	baseDir string
	env     string
	layer   workspace.Layer

	// opMu serializes every public operation against every other one, so
	// that operation[n+1] always observes all effects of operation[n].
	opMu sync.Mutex

	aggMu          sync.Mutex
	pendingSets    map[string][]byte
	pendingDeletes map[string]bool
	aggInFlight    bool
	waiters        []chan error

	validMu          sync.Mutex
	validationErrors map[string][]*validate.Error // keyed by owning top-level full name
}

// New wraps ws for editor-style access to env's files, translating paths
// relative to baseDir. layer selects which underlying file set (the
// environment's own, or common) setNaclFiles/removeNaclFiles write to.
func New(ws *workspace.Workspace, baseDir, env string, layer workspace.Layer) *EditorWorkspace {
	return &EditorWorkspace{
		ws:               ws,
		baseDir:          baseDir,
		env:              env,
		layer:            layer,
		pendingSets:      map[string][]byte{},
		pendingDeletes:   map[string]bool{},
		validationErrors: map[string][]*validate.Error{},
	}
}

func (e *EditorWorkspace) relPath(abs string) string {
	if !filepath.IsAbs(abs) {
		return filepath.ToSlash(abs)
	}
	rel, err := filepath.Rel(e.baseDir, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

func (e *EditorWorkspace) absPath(name string) string {
	return filepath.Join(e.baseDir, filepath.FromSlash(name))
}

// SetNaclFiles enqueues buffers (keyed by absolute path) for the next
// aggregated set-operation and blocks until they (and anything else
// aggregated alongside them) are applied.
func (e *EditorWorkspace) SetNaclFiles(ctx context.Context, paths map[string][]byte) error {
	e.aggMu.Lock()
	for abs, buf := range paths {
		name := e.relPath(abs)
		e.pendingSets[name] = buf
		delete(e.pendingDeletes, name)
	}
	e.aggMu.Unlock()
	return e.runAggregatedSetOperation(ctx)
}

// RemoveNaclFiles enqueues deletions (keyed by absolute path) for the next
// aggregated set-operation.
func (e *EditorWorkspace) RemoveNaclFiles(ctx context.Context, paths []string) error {
	e.aggMu.Lock()
	for _, abs := range paths {
		name := e.relPath(abs)
		e.pendingDeletes[name] = true
		delete(e.pendingSets, name)
	}
	e.aggMu.Unlock()
	return e.runAggregatedSetOperation(ctx)
}

// runAggregatedSetOperation drains pendingSets/pendingDeletes (deletes
// first, then sets) and applies them as one workspace batch. If new edits
// arrive while a batch is being applied, it drains those too before
// returning, so no edit is ever silently dropped. At most one drain loop
// runs at a time; a caller arriving mid-drain joins the in-flight one and
// receives its result instead of starting a second, overlapping loop.
func (e *EditorWorkspace) runAggregatedSetOperation(ctx context.Context) error {
	e.aggMu.Lock()
	if e.aggInFlight {
		ch := make(chan error, 1)
		e.waiters = append(e.waiters, ch)
		e.aggMu.Unlock()
		return <-ch
	}
	e.aggInFlight = true
	e.aggMu.Unlock()

	err := e.drainLoop(ctx)

	e.aggMu.Lock()
	e.aggInFlight = false
	waiters := e.waiters
	e.waiters = nil
	e.aggMu.Unlock()
	for _, ch := range waiters {
		ch <- err
	}
	return err
}

func (e *EditorWorkspace) drainLoop(ctx context.Context) error {
	for {
		e.aggMu.Lock()
		deletes := e.pendingDeletes
		sets := e.pendingSets
		e.pendingDeletes = map[string]bool{}
		e.pendingSets = map[string][]byte{}
		e.aggMu.Unlock()

		if len(deletes) == 0 && len(sets) == 0 {
			return nil
		}
		if err := e.applyBatch(ctx, deletes, sets); err != nil {
			return err
		}
	}
}

func (e *EditorWorkspace) applyBatch(ctx context.Context, deletes map[string]bool, sets map[string][]byte) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	logger := wslog.FromContext(ctx)
	var all []naclfile.Change

	if len(deletes) > 0 {
		names := make([]string, 0, len(deletes))
		for n := range deletes {
			names = append(names, n)
		}
		sort.Strings(names)
		changes, err := e.ws.RemoveNaclFiles(e.env, e.layer, names)
		if err != nil {
			return err
		}
		all = append(all, changes...)
	}
	if len(sets) > 0 {
		changes, err := e.ws.SetNaclFiles(e.env, e.layer, sets)
		if err != nil {
			return err
		}
		all = append(all, changes...)
	}

	logger.Debug("editorws applied batch", "deletes", len(deletes), "sets", len(sets), "changes", len(all))
	return e.recomputeValidation(all, deletes)
}

// recomputeValidation implements §4.7's incremental validation: after a
// batch, it recomputes errors only for (i) the changed elements
// themselves, (ii) elements that reference a changed element (a stale
// Unresolved error on them may now resolve, or a fresh one may now be
// warranted), by walking both directions of the reference index rather
// than distinguishing add/remove — a referencer needs a fresh check either
// way.
func (e *EditorWorkspace) recomputeValidation(changes []naclfile.Change, deletedFiles map[string]bool) error {
	toValidate := map[string]bool{}
	for _, c := range changes {
		toValidate[c.FullName] = true
	}
	for _, c := range changes {
		id, err := elemid.FromFullName(c.FullName)
		if err != nil {
			continue
		}
		files, err := e.ws.GetElementReferencesToFiles(e.env, id)
		if err != nil {
			continue
		}
		for _, file := range files {
			ids, err := e.ws.TopLevelIDsInFile(e.env, file)
			if err != nil {
				continue
			}
			for _, refID := range ids {
				toValidate[refID.GetFullName()] = true
			}
		}
	}

	elements, err := e.ws.Elements(e.env, true)
	if err != nil {
		return err
	}

	e.validMu.Lock()
	defer e.validMu.Unlock()
	for name := range toValidate {
		delete(e.validationErrors, name)
		el, ok := elements[name]
		if !ok {
			// Element removed: re-derive an Unresolved error for anything
			// that still references it, from the freshly recomputed
			// referencer entries below; nothing to validate for name
			// itself.
			continue
		}
		errs := validate.Validate([]element.TopLevelElement{el}, elements)
		if len(errs) > 0 {
			e.validationErrors[name] = errs
		}
	}
	return nil
}

// Elements returns the current merged element map for env, including
// hidden overlay values.
func (e *EditorWorkspace) Elements(includeHidden bool) (map[string]element.TopLevelElement, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()
	return e.ws.Elements(e.env, includeHidden)
}

// GetElement resolves id's owning top-level element.
func (e *EditorWorkspace) GetElement(id elemid.ElemID) (element.TopLevelElement, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()
	return e.ws.GetElement(e.env, id)
}

// ListNaclFiles returns every file name (absolutized against baseDir).
func (e *EditorWorkspace) ListNaclFiles() ([]string, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()
	names, err := e.ws.ListNaclFiles(e.env)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = e.absPath(n)
	}
	return out, nil
}

// ParseAndMergeErrors returns the workspace's collected parse and merge
// errors, taken from the core workspace as-is per §4.7 (only validation is
// incrementally maintained here).
func (e *EditorWorkspace) ParseAndMergeErrors() ([]*naclparse.ParseError, []*merge.Error, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()
	errs, err := e.ws.Errors(e.env, false)
	if err != nil {
		return nil, nil, err
	}
	return errs.Parse, errs.Merge, nil
}

// ValidationErrors returns the incrementally maintained validation error
// set, flattened.
func (e *EditorWorkspace) ValidationErrors() []*validate.Error {
	e.validMu.Lock()
	defer e.validMu.Unlock()
	names := make([]string, 0, len(e.validationErrors))
	for name := range e.validationErrors {
		names = append(names, name)
	}
	sort.Strings(names)
	var out []*validate.Error
	for _, name := range names {
		out = append(out, e.validationErrors[name]...)
	}
	return out
}

// Diagnostic is one error surfaced to an editor client, with its source
// location resolved and its file path absolutized.
type Diagnostic struct {
	File     string
	Range    sourcepos.Range
	Message  string
	Severity string
}

// Diagnostics assembles the full diagnostic set: parse errors (already
// carrying a SourceRange), merge and validation errors (resolved to a
// source range through GetSourceRanges — an element with no range, e.g. a
// hidden-only synthetic one, is skipped rather than reported at a bogus
// location).
func (e *EditorWorkspace) Diagnostics() ([]Diagnostic, error) {
	e.opMu.Lock()
	parseErrs, mergeErrs, err := func() ([]*naclparse.ParseError, []*merge.Error, error) {
		errs, err := e.ws.Errors(e.env, false)
		if err != nil {
			return nil, nil, err
		}
		return errs.Parse, errs.Merge, nil
	}()
	e.opMu.Unlock()
	if err != nil {
		return nil, err
	}

	var diags []Diagnostic
	for _, pe := range parseErrs {
		diags = append(diags, Diagnostic{
			File:     e.absPath(pe.Context.Filename),
			Range:    pe.Context,
			Message:  pe.Message,
			Severity: pe.Severity.String(),
		})
	}
	for _, me := range mergeErrs {
		diags = append(diags, e.rangedDiagnostics(me.ElemID, me.Error())...)
	}
	for _, ve := range e.ValidationErrors() {
		diags = append(diags, e.rangedDiagnostics(ve.ElemID, ve.Error())...)
	}
	return diags, nil
}

func (e *EditorWorkspace) rangedDiagnostics(id elemid.ElemID, message string) []Diagnostic {
	e.opMu.Lock()
	ranges, err := e.ws.GetSourceRanges(e.env, id)
	e.opMu.Unlock()
	if err != nil || len(ranges) == 0 {
		return nil
	}
	out := make([]Diagnostic, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, Diagnostic{File: e.absPath(r.Filename), Range: r, Message: message, Severity: "Error"})
	}
	return out
}

// OnTextChangeEvent is the entry point an editor adapter calls on every
// keystroke-level buffer change: absPath is the edited file's absolute
// path, buffer is its full current content.
func (e *EditorWorkspace) OnTextChangeEvent(ctx context.Context, absPath string, buffer []byte) error {
	return e.SetNaclFiles(ctx, map[string][]byte{absPath: buffer})
}

// CreateReportErrorsEventListener returns a listener an editor adapter
// wires to its text-change events. Each call applies the edit immediately
// (through OnTextChangeEvent) but resets an idle timer of interval before
// publishing a diagnostics snapshot; three edits within one idle window
// collapse into exactly one publish, reflecting the last buffer, per §4.7.
func (e *EditorWorkspace) CreateReportErrorsEventListener(publish func([]Diagnostic), interval time.Duration) func(ctx context.Context, absPath string, buffer []byte) {
	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	return func(ctx context.Context, absPath string, buffer []byte) {
		_ = e.OnTextChangeEvent(ctx, absPath, buffer)

		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(interval, func() {
			diags, err := e.Diagnostics()
			if err != nil {
				return
			}
			publish(diags)
		})
	}
}
