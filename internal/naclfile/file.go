package naclfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"

	"github.com/vk/naclworkspace/internal/elemid"
	"github.com/vk/naclworkspace/internal/element"
	"github.com/vk/naclworkspace/internal/fsutil"
	"github.com/vk/naclworkspace/internal/naclparse"
	"github.com/vk/naclworkspace/internal/sourcepos"

	"golang.org/x/sync/errgroup"
)

// parsedFile is the in-memory record for one file's current parse.
// fromCache tracks whether Record came from the on-disk cache (nothing to
// Flush) or was freshly parsed (pending a Flush to persist it).
type parsedFile struct {
	Path       string
	Content    []byte
	Hash       string
	Fragments  []element.TopLevelElement
	Errors     []*naclparse.ParseError
	SourceMap  sourcepos.SourceMap
	Referenced map[string]elemid.ElemID
	fromCache  bool
}

// ParsedFile is the public view of a parsed file, returned by
// GetParsedFile.
type ParsedFile struct {
	Fragments []element.TopLevelElement
	Errors    []*naclparse.ParseError
}

// Source is one environment's (or common's) set of NaCl files: a
// directory on disk, a bbolt-backed parse cache, and the two indices that
// let a caller navigate from an element back to the files it touches.
//
// Source does not merge fragments across its own files; that is
// internal/merge's job, invoked by whatever assembles a workspace's
// element graph out of one or more Sources.
type Source struct {
	dir    string
	ext    string
	bucket string
	cache  *Cache

	files []string // file names, insertion order preserved for ListFiles
	byPath map[string]*parsedFile

	// containing[fullName] is the set of files holding a fragment of the
	// top-level element named fullName.
	containing map[string]map[string]bool
	// referencing[fullName] is the set of files whose parse referenced the
	// element named fullName, resolved or not.
	referencing map[string]map[string]bool
}

// NewSource loads every file under dir with the given extension, parsing
// each one (through the cache when possible) and building the indices.
func NewSource(dir, ext, bucket string, cache *Cache) (*Source, error) {
	s := &Source{
		dir:         dir,
		ext:         ext,
		bucket:      bucket,
		cache:       cache,
		byPath:      map[string]*parsedFile{},
		containing:  map[string]map[string]bool{},
		referencing: map[string]map[string]bool{},
	}

	paths, err := fsutil.FindFilesByExtension(dir, ext)
	if err != nil {
		return nil, fmt.Errorf("naclfile: scanning %s: %w", dir, err)
	}

	contents := make(map[string][]byte, len(paths))
	for _, p := range paths {
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return nil, fmt.Errorf("naclfile: relativizing %s: %w", p, err)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("naclfile: reading %s: %w", p, err)
		}
		contents[rel] = data
	}

	if _, err := s.load(context.Background(), contents); err != nil {
		return nil, err
	}
	return s, nil
}

// load parses every (name, content) pair concurrently through an
// errgroup.Group, then applies the resulting parsedFiles and index updates
// sequentially, returning the accumulated Changes.
func (s *Source) load(ctx context.Context, contents map[string][]byte) ([]Change, error) {
	names := make([]string, 0, len(contents))
	for name := range contents {
		names = append(names, name)
	}
	sort.Strings(names)

	parsed := make([]*parsedFile, len(names))
	g, _ := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		content := contents[name]
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("naclfile: parsing %s: panic: %v", name, r)
				}
			}()
			pf, err := s.parseFile(name, content)
			if err != nil {
				return fmt.Errorf("naclfile: parsing %s: %w", name, err)
			}
			parsed[i] = pf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var changes []Change
	for i, name := range names {
		old := s.byPath[name]
		pf := parsed[i]
		changes = append(changes, diffFragments(old, pf)...)
		if old != nil {
			s.removeFromIndices(name, old)
		} else {
			s.files = append(s.files, name)
		}
		s.addToIndices(name, pf)
		s.byPath[name] = pf
	}
	return changes, nil
}

// parseFile parses content under name, consulting the cache first.
func (s *Source) parseFile(name string, content []byte) (*parsedFile, error) {
	hash := fsutil.ContentHash(content)

	if s.cache != nil {
		rec, ok, err := s.cache.Get(s.bucket, name, hash)
		if err != nil {
			return nil, err
		}
		if ok {
			return &parsedFile{
				Path:       name,
				Content:    content,
				Hash:       hash,
				Fragments:  rec.Fragments,
				Errors:     rec.Errors,
				SourceMap:  rec.SourceMap,
				Referenced: rec.Referenced,
				fromCache:  true,
			}, nil
		}
	}

	out := naclparse.Parse(name, string(content))
	return &parsedFile{
		Path:       name,
		Content:    content,
		Hash:       hash,
		Fragments:  out.Elements,
		Errors:     out.Errors,
		SourceMap:  out.SourceMap,
		Referenced: out.Referenced,
		fromCache:  false,
	}, nil
}

// diffFragments compares old's and new's top-level fragments by full name,
// producing one Change per name whose presence or value differs. Either
// argument may be nil.
func diffFragments(old, new *parsedFile) []Change {
	oldByName := map[string]element.TopLevelElement{}
	if old != nil {
		for _, f := range old.Fragments {
			oldByName[f.ElemID().GetFullName()] = f
		}
	}
	newByName := map[string]element.TopLevelElement{}
	if new != nil {
		for _, f := range new.Fragments {
			newByName[f.ElemID().GetFullName()] = f
		}
	}

	names := make(map[string]bool, len(oldByName)+len(newByName))
	for n := range oldByName {
		names[n] = true
	}
	for n := range newByName {
		names[n] = true
	}
	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	var changes []Change
	for _, name := range sorted {
		o, oldOk := oldByName[name]
		n, newOk := newByName[name]
		switch {
		case !oldOk && newOk:
			changes = append(changes, Change{FullName: name, Action: Add, After: n})
		case oldOk && !newOk:
			changes = append(changes, Change{FullName: name, Action: Remove, Before: o})
		case oldOk && newOk:
			if !reflect.DeepEqual(o, n) {
				changes = append(changes, Change{FullName: name, Action: Modify, Before: o, After: n})
			}
		}
	}
	return changes
}

// topLevelFullName reduces id to the full name of the top-level element
// that owns it. A reference can address a nested field (e.g.
// "adapter.Type.instance.name.Field"), but both indices are keyed by
// top-level full name, since that is the granularity elements are
// fragmented and merged at.
func topLevelFullName(id elemid.ElemID) string {
	top, _ := id.CreateTopLevelParentID()
	return top.GetFullName()
}

func (s *Source) addToIndices(path string, pf *parsedFile) {
	for _, frag := range pf.Fragments {
		name := frag.ElemID().GetFullName()
		if s.containing[name] == nil {
			s.containing[name] = map[string]bool{}
		}
		s.containing[name][path] = true
	}
	for _, ref := range pf.Referenced {
		name := topLevelFullName(ref)
		if s.referencing[name] == nil {
			s.referencing[name] = map[string]bool{}
		}
		s.referencing[name][path] = true
	}
}

func (s *Source) removeFromIndices(path string, pf *parsedFile) {
	for _, frag := range pf.Fragments {
		name := frag.ElemID().GetFullName()
		if set := s.containing[name]; set != nil {
			delete(set, path)
			if len(set) == 0 {
				delete(s.containing, name)
			}
		}
	}
	for _, ref := range pf.Referenced {
		name := topLevelFullName(ref)
		if set := s.referencing[name]; set != nil {
			delete(set, path)
			if len(set) == 0 {
				delete(s.referencing, name)
			}
		}
	}
}

// SetFiles writes/overwrites the given files' buffers, reparses each one,
// and returns the element-level Changes observed across all of them.
func (s *Source) SetFiles(ctx context.Context, files map[string][]byte) ([]Change, error) {
	for name := range files {
		full := filepath.Join(s.dir, name)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return nil, fmt.Errorf("naclfile: creating directory for %s: %w", name, err)
		}
		if err := os.WriteFile(full, files[name], 0o644); err != nil {
			return nil, fmt.Errorf("naclfile: writing %s: %w", name, err)
		}
	}
	return s.load(ctx, files)
}

// RemoveFiles removes the named files (from disk, from the indices, and
// from the cache) and returns the element-level Changes observed.
func (s *Source) RemoveFiles(names []string) ([]Change, error) {
	sortedNames := append([]string{}, names...)
	sort.Strings(sortedNames)

	var changes []Change
	for _, name := range sortedNames {
		old := s.byPath[name]
		if old == nil {
			continue
		}
		changes = append(changes, diffFragments(old, nil)...)
		s.removeFromIndices(name, old)
		delete(s.byPath, name)
		s.files = removeString(s.files, name)

		if s.cache != nil {
			if err := s.cache.Delete(s.bucket, name, old.Hash); err != nil {
				return nil, err
			}
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("naclfile: removing %s: %w", name, err)
		}
	}
	return changes, nil
}

func removeString(in []string, target string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}

// GetParsedFile returns the current fragments and parse errors for name.
func (s *Source) GetParsedFile(name string) (*ParsedFile, bool) {
	pf, ok := s.byPath[name]
	if !ok {
		return nil, false
	}
	return &ParsedFile{Fragments: pf.Fragments, Errors: pf.Errors}, true
}

// GetSourceMap returns the full-name-to-ranges map produced by parsing
// name.
func (s *Source) GetSourceMap(name string) (sourcepos.SourceMap, bool) {
	pf, ok := s.byPath[name]
	if !ok {
		return nil, false
	}
	return pf.SourceMap, true
}

// GetSourceRanges returns every range, across every file holding a
// fragment of id, at which id's full name appears in that file's source
// map.
func (s *Source) GetSourceRanges(id elemid.ElemID) []sourcepos.Range {
	name := id.GetFullName()
	var ranges []sourcepos.Range
	for path := range s.containing[topLevelFullName(id)] {
		if pf := s.byPath[path]; pf != nil {
			ranges = append(ranges, pf.SourceMap[name]...)
		}
	}
	return ranges
}

// GetElementNaclFiles returns the sorted list of files holding a fragment
// of id.
func (s *Source) GetElementNaclFiles(id elemid.ElemID) []string {
	return sortedKeys(s.containing[topLevelFullName(id)])
}

// GetElementReferencedFiles returns the sorted list of files containing
// any element that id's own files reference.
func (s *Source) GetElementReferencedFiles(id elemid.ElemID) []string {
	result := map[string]bool{}
	for path := range s.containing[topLevelFullName(id)] {
		pf := s.byPath[path]
		if pf == nil {
			continue
		}
		for _, ref := range pf.Referenced {
			for targetPath := range s.containing[topLevelFullName(ref)] {
				result[targetPath] = true
			}
		}
	}
	return sortedKeys(result)
}

// GetElementReferencesToFiles returns the sorted list of files whose parse
// referenced id, resolved or not.
func (s *Source) GetElementReferencesToFiles(id elemid.ElemID) []string {
	return sortedKeys(s.referencing[topLevelFullName(id)])
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ListFiles returns every file name currently held by this source, in
// load/insertion order.
func (s *Source) ListFiles() []string {
	return append([]string{}, s.files...)
}

// GetTotalSize returns the combined byte size of every file's buffer.
func (s *Source) GetTotalSize() int64 {
	var total int64
	for _, pf := range s.byPath {
		total += int64(len(pf.Content))
	}
	return total
}

// IsEmpty reports whether this source holds no files.
func (s *Source) IsEmpty() bool {
	return len(s.files) == 0
}

// Clear drops every file from this source, including its cache entries.
func (s *Source) Clear() error {
	if s.cache != nil {
		if err := s.cache.ClearBucket(s.bucket); err != nil {
			return err
		}
	}
	s.files = nil
	s.byPath = map[string]*parsedFile{}
	s.containing = map[string]map[string]bool{}
	s.referencing = map[string]map[string]bool{}
	return nil
}

// Rename moves a file's content from oldName to newName, reparsing it so
// every fragment's Path reflects the new name.
func (s *Source) Rename(ctx context.Context, oldName, newName string) ([]Change, error) {
	old := s.byPath[oldName]
	if old == nil {
		return nil, fmt.Errorf("naclfile: rename: %s not found", oldName)
	}

	oldFull := filepath.Join(s.dir, oldName)
	newFull := filepath.Join(s.dir, newName)
	if err := os.MkdirAll(filepath.Dir(newFull), 0o755); err != nil {
		return nil, fmt.Errorf("naclfile: creating directory for %s: %w", newName, err)
	}
	if err := os.Rename(oldFull, newFull); err != nil {
		return nil, fmt.Errorf("naclfile: renaming %s to %s: %w", oldName, newName, err)
	}

	newPF, err := s.parseFile(newName, old.Content)
	if err != nil {
		return nil, err
	}

	changes := diffFragments(old, nil)
	changes = append(changes, diffFragments(nil, newPF)...)

	s.removeFromIndices(oldName, old)
	delete(s.byPath, oldName)
	s.files = removeString(s.files, oldName)

	s.addToIndices(newName, newPF)
	s.byPath[newName] = newPF
	s.files = append(s.files, newName)

	if s.cache != nil {
		if err := s.cache.Delete(s.bucket, oldName, old.Hash); err != nil {
			return nil, err
		}
	}
	return changes, nil
}

// Flush durably writes every freshly parsed (not cache-sourced) file's
// Record to the on-disk cache.
func (s *Source) Flush() error {
	if s.cache == nil {
		return nil
	}
	for name, pf := range s.byPath {
		if pf.fromCache {
			continue
		}
		rec := &Record{
			Fragments:  pf.Fragments,
			Errors:     pf.Errors,
			SourceMap:  pf.SourceMap,
			Referenced: pf.Referenced,
		}
		if err := s.cache.Put(s.bucket, name, pf.Hash, rec); err != nil {
			return fmt.Errorf("naclfile: flushing %s: %w", name, err)
		}
		pf.fromCache = true
	}
	return nil
}

// Clone returns an independent copy of this source's in-memory state. The
// underlying cache is shared by reference, consistent with every other
// state store in this workspace.
func (s *Source) Clone() *Source {
	clone := &Source{
		dir:         s.dir,
		ext:         s.ext,
		bucket:      s.bucket,
		cache:       s.cache,
		files:       append([]string{}, s.files...),
		byPath:      make(map[string]*parsedFile, len(s.byPath)),
		containing:  make(map[string]map[string]bool, len(s.containing)),
		referencing: make(map[string]map[string]bool, len(s.referencing)),
	}
	for name, pf := range s.byPath {
		clone.byPath[name] = pf
	}
	for name, set := range s.containing {
		clone.containing[name] = copySet(set)
	}
	for name, set := range s.referencing {
		clone.referencing[name] = copySet(set)
	}
	return clone
}

func copySet(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
