// Package icm implements the Indexed Content Map: a keyed, persistable map
// from a 64-bit content handle to filesystem entries, with used-space
// accounting, crash-safe persistence, and rebuild from a directory tree.
package icm

import (
	"errors"
	"fmt"
	"sync"

	"github.com/andrea-bruno/cloudsync/pkg/handle"
)

// ErrLoadFailure is returned by Load when the on-disk map is corrupt; the
// caller's recovery path is to discard the file and rebuild from the tree.
var ErrLoadFailure = errors.New("icm: load failure")

// Kind discriminates a file entry from a directory entry.
type Kind = handle.Kind

const (
	File = handle.File
	Dir  = handle.Dir
)

// Entry is one tracked filesystem object.
type Entry struct {
	Handle        handle.Handle
	AbsolutePath  string
	RelativePath  string
	Mtime         uint32 // unix seconds, truncated; 0 for directories
	AllocatedSize int64
	Kind          Kind
}

// FileId returns the identity of this entry at its current mtime.
func (e Entry) FileId() handle.FileId {
	return handle.FileId{Handle: e.Handle, Mtime: e.Mtime}
}

// Map is the Indexed Content Map: Handle -> Entry, unique keys, plus an
// aggregate UsedSpace. Safe for concurrent use — exclusive writer, many
// readers, serialized by one RWMutex per instance. Iteration holds the lock;
// callers must not re-enter the Map from within a callback.
type Map struct {
	mu          sync.RWMutex
	entries     map[handle.Handle]Entry
	byPath      map[string]handle.Handle
	usedSpace   int64
	loadFailure bool
}

// New returns an empty Map.
func New() *Map {
	return &Map{
		entries: make(map[handle.Handle]Entry),
		byPath:  make(map[string]handle.Handle),
	}
}

// Add inserts or replaces an entry. Rejects entries whose RelativePath fails
// visibility rules (see IsVisible), except deleted-id list files (see
// IsPDILFile), which are tracked as ordinary content; callers are expected
// to have already checked CloudRoot containment before constructing the
// Entry. Returns ErrExcluded if e is rejected.
func (m *Map) Add(e Entry) error {
	if !IsVisible(e.RelativePath) && !IsPDILFile(e.RelativePath) {
		return fmt.Errorf("icm: %w: %s", ErrExcluded, e.RelativePath)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.entries[e.Handle]; ok {
		m.usedSpace -= old.AllocatedSize
		delete(m.byPath, old.RelativePath)
	}

	m.entries[e.Handle] = e
	m.byPath[e.RelativePath] = e.Handle
	m.usedSpace += e.AllocatedSize

	return nil
}

// ErrExcluded is returned by Add when a path fails visibility rules.
var ErrExcluded = errors.New("excluded by visibility rules")

// Remove deletes the entry for h, if present. Idempotent.
func (m *Map) Remove(h handle.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[h]
	if !ok {
		return
	}

	m.usedSpace -= e.AllocatedSize
	delete(m.entries, h)
	delete(m.byPath, e.RelativePath)
}

// RemoveSubtree deletes every entry whose RelativePath lies under dirPath
// (dirPath itself and all descendants).
func (m *Map) RemoveSubtree(dirPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := dirPath + "/"

	for h, e := range m.entries {
		if e.RelativePath == dirPath || hasPrefix(e.RelativePath, prefix) {
			m.usedSpace -= e.AllocatedSize
			delete(m.entries, h)
			delete(m.byPath, e.RelativePath)
		}
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// Get returns the entry for h, if present.
func (m *Map) Get(h handle.Handle) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[h]

	return e, ok
}

// GetByPath returns the entry at RelativePath, if present.
func (m *Map) GetByPath(relPath string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.byPath[relPath]
	if !ok {
		return Entry{}, false
	}

	return m.entries[h], true
}

// Contains reports whether h is present.
func (m *Map) Contains(h handle.Handle) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.entries[h]

	return ok
}

// UsedSpace returns the current aggregate allocated size.
func (m *Map) UsedSpace() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.usedSpace
}

// Len returns the number of tracked entries.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries)
}

// LoadFailure reports whether the last Load encountered a corrupt file.
func (m *Map) LoadFailure() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.loadFailure
}

// Iter calls fn for every entry while holding the read lock. fn must not
// call back into the Map.
func (m *Map) Iter(fn func(Entry)) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.entries {
		fn(e)
	}
}

// KeysWithMtimes returns a snapshot of handle -> mtime for every entry, the
// shape the differential sync protocol diffs against.
func (m *Map) KeysWithMtimes() map[handle.Handle]uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[handle.Handle]uint32, len(m.entries))
	for h, e := range m.entries {
		out[h] = e.Mtime
	}

	return out
}
