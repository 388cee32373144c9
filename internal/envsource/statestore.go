package envsource

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"
	"time"

	"github.com/vk/naclworkspace/internal/element"
	"github.com/vk/naclworkspace/internal/naclfile"
)

// Recency classifies how stale a service's last fetched state is, as
// returned by StateStore.GetStateRecency.
type Recency int

const (
	Nonexistent Recency = iota
	Old
	Valid
)

func (r Recency) String() string {
	switch r {
	case Nonexistent:
		return "nonexistent"
	case Old:
		return "old"
	case Valid:
		return "valid"
	default:
		return "unknown"
	}
}

// DefaultStateRecencyThreshold is the age past which a service's fetched
// state is considered Old rather than Valid.
const DefaultStateRecencyThreshold = 7 * 24 * time.Hour

// stateEnvelope is the gob payload persisted for one element: the element
// itself plus the time it was last written, used for recency tracking.
type stateEnvelope struct {
	Element   element.TopLevelElement
	UpdatedAt time.Time
}

// StateStore holds previously fetched elements for one environment,
// generalized from the teacher's inmemorystore (a mutex-guarded in-memory
// map) by adding durability: every write is mirrored into the shared
// bbolt-backed cache used by C6's parse cache, under its own bucket, so
// fetched state survives a process restart the way execution state in the
// teacher never needed to.
type StateStore struct {
	mu     sync.RWMutex
	byName map[string]*stateEnvelope
	// serviceUpdated tracks the most recent write time per adapter
	// ("service"), independent of any one element's own timestamp, so
	// GetStateRecency reflects the freshness of a whole service's fetch.
	serviceUpdated map[string]time.Time

	db     *naclfile.Cache
	bucket string
}

// NewStateStore loads any previously persisted state for bucket out of db
// and returns a ready StateStore. db may be nil, in which case the store
// is purely in-memory (useful for tests).
func NewStateStore(bucket string, db *naclfile.Cache) (*StateStore, error) {
	s := &StateStore{
		byName:         map[string]*stateEnvelope{},
		serviceUpdated: map[string]time.Time{},
		db:             db,
		bucket:         bucket,
	}
	if db == nil {
		return s, nil
	}

	err := db.ForEach(bucket, func(key, value []byte) error {
		env := &stateEnvelope{}
		if err := gob.NewDecoder(bytes.NewReader(value)).Decode(env); err != nil {
			return fmt.Errorf("envsource: decoding state for %q: %w", key, err)
		}
		name := string(key)
		s.byName[name] = env
		if adapter := env.Element.ElemID().Adapter; env.UpdatedAt.After(s.serviceUpdated[adapter]) {
			s.serviceUpdated[adapter] = env.UpdatedAt
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the stored element for fullName, if any.
func (s *StateStore) Get(fullName string) (element.TopLevelElement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	env, ok := s.byName[fullName]
	if !ok {
		return nil, false
	}
	return env.Element, true
}

// Set records elem's current state, stamped with the current time, and
// persists it durably when a cache is configured.
func (s *StateStore) Set(elem element.TopLevelElement) error {
	fullName := elem.ElemID().GetFullName()
	env := &stateEnvelope{Element: elem, UpdatedAt: time.Now()}

	s.mu.Lock()
	s.byName[fullName] = env
	s.serviceUpdated[elem.ElemID().Adapter] = env.UpdatedAt
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return fmt.Errorf("envsource: encoding state for %q: %w", fullName, err)
	}
	return s.db.PutBytes(s.bucket, []byte(fullName), buf.Bytes())
}

// Delete removes any stored state for fullName.
func (s *StateStore) Delete(fullName string) error {
	s.mu.Lock()
	delete(s.byName, fullName)
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	return s.db.DeleteBytes(s.bucket, []byte(fullName))
}

// List returns every element currently held in state, order unspecified.
func (s *StateStore) List() []element.TopLevelElement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]element.TopLevelElement, 0, len(s.byName))
	for _, env := range s.byName {
		out = append(out, env.Element)
	}
	return out
}

// Clear drops every stored element, including its persisted copies.
func (s *StateStore) Clear() error {
	s.mu.Lock()
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	s.byName = map[string]*stateEnvelope{}
	s.serviceUpdated = map[string]time.Time{}
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	for _, name := range names {
		if err := s.db.DeleteBytes(s.bucket, []byte(name)); err != nil {
			return err
		}
	}
	return nil
}

// GetStateRecency reports how stale service's most recent state write is,
// relative to threshold. A service with no recorded state is Nonexistent.
func (s *StateStore) GetStateRecency(service string, threshold time.Duration) Recency {
	s.mu.RLock()
	updated, ok := s.serviceUpdated[service]
	s.mu.RUnlock()
	if !ok {
		return Nonexistent
	}
	if time.Since(updated) > threshold {
		return Old
	}
	return Valid
}
