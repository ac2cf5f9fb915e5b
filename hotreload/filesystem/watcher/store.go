package watcher

import (
	"sort"

	"github.com/armon/go-radix"
)

// Store maps file paths to their last seen modification label. It is
// backed by a radix tree so iteration is always in path order.
//
// A Store is never mutated after Diff returns it; each cycle produces a
// new one. A nil *Store behaves as an empty store.
type Store struct {
	tree *radix.Tree
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{tree: radix.New()}
}

// StoreFrom builds a store holding the given fingerprints
func StoreFrom(fingerprints ...Fingerprint) *Store {
	s := NewStore()
	for _, fp := range fingerprints {
		s.put(fp)
	}
	return s
}

func (s *Store) put(fp Fingerprint) bool {
	_, updated := s.tree.Insert(fp.Path, fp.Label)
	return updated
}

// Get returns the label tracked for path
func (s *Store) Get(path string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s.tree.Get(path)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Has reports whether path is tracked
func (s *Store) Has(path string) bool {
	_, ok := s.Get(path)
	return ok
}

// Len returns the number of tracked files
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return s.tree.Len()
}

// Walk visits every tracked file in path order until fn returns false
func (s *Store) Walk(fn func(path, label string) bool) {
	if s == nil {
		return
	}
	s.tree.Walk(func(key string, value interface{}) bool {
		return !fn(key, value.(string))
	})
}

// Paths returns every tracked path in order
func (s *Store) Paths() []string {
	paths := make([]string, 0, s.Len())
	s.Walk(func(path, _ string) bool {
		paths = append(paths, path)
		return true
	})
	return paths
}

// DiffResult is the outcome of comparing a store with a fresh scan
type DiffResult struct {
	// Store tracks exactly the files of the scan
	Store *Store

	// Changed is true when at least one file was created, modified or deleted
	Changed bool

	// Changes lists every difference, ordered by path
	Changes []Change
}

// Count returns the number of changes of the given type
func (r DiffResult) Count(t EventType) int {
	n := 0
	for _, c := range r.Changes {
		if c.Type == t {
			n++
		}
	}
	return n
}

// Diff compares the previous store with the filtered fingerprints of the
// current scan. Every scanned path is inserted into the new store and
// recorded as created or modified when its label is new; every path of
// prev missing from the scan is recorded as deleted and dropped. prev is
// not modified.
func Diff(prev *Store, scan []Fingerprint) DiffResult {
	next := NewStore()
	var changes []Change

	for _, fp := range scan {
		if next.put(fp) {
			// duplicate path in the scan, already compared
			continue
		}

		label, tracked := prev.Get(fp.Path)
		switch {
		case !tracked:
			changes = append(changes, Change{Path: fp.Path, Type: EventCreate})
		case label != fp.Label:
			changes = append(changes, Change{Path: fp.Path, Type: EventWrite})
		}
	}

	prev.Walk(func(path, _ string) bool {
		if !next.Has(path) {
			changes = append(changes, Change{Path: path, Type: EventRemove})
		}
		return true
	})

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})

	return DiffResult{
		Store:   next,
		Changed: len(changes) > 0,
		Changes: changes,
	}
}
