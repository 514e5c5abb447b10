// Package pdil implements the per-user Persistent Deleted-ID List: a
// FIFO-bounded sequence of FileIds recording local deletions not caused by
// a remote request, so the differential sync protocol can distinguish "I
// deleted this on purpose" from "I never had this" when a peer's structure
// still lists the handle.
package pdil

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/andrea-bruno/cloudsync/pkg/handle"
)

// List is a bounded, persisted FIFO of FileIds for one user's Deleted
// scope. Safe for concurrent use.
type List struct {
	mu       sync.Mutex
	path     string
	capacity int
	items    []handle.FileId
	dirty    bool
	logger   *slog.Logger
}

// PathFor returns the on-disk path for a user's Deleted list under the
// hidden control directory: `CloudRoot/.cloud_cache/<userId>.Deleted`.
func PathFor(cloudRoot, userID string) string {
	return filepath.Join(cloudRoot, ".cloud_cache", userID+".Deleted")
}

// New creates an empty List bounded to capacity entries. Use Load to
// populate it from disk.
func New(path string, capacity int, logger *slog.Logger) *List {
	return &List{
		path:     path,
		capacity: capacity,
		logger:   logger,
	}
}

// Append adds id to the end of the list, evicting the oldest entry if the
// list is already at capacity. Marks the list dirty for the next debounced
// persist.
func (l *List) Append(id handle.FileId) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = append(l.items, id)
	if len(l.items) > l.capacity {
		evicted := l.items[0]
		l.items = l.items[1:]
		l.logger.Debug("pdil: capacity exceeded, evicting oldest", "handle", evicted.Handle)
	}

	l.dirty = true
}

// RemoveByHandle removes the first entry matching h (recovery from trash:
// a deleted file reappearing under the same path derives the same handle).
// Reports whether an entry was removed.
func (l *List) RemoveByHandle(h handle.Handle) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, it := range l.items {
		if it.Handle == h {
			l.items = append(l.items[:i], l.items[i+1:]...)
			l.dirty = true

			return true
		}
	}

	return false
}

// ContainsHandle reports whether h has a pending deletion record,
// regardless of recorded mtime — the DSP's structure phase only ever
// compares by handle.
func (l *List) ContainsHandle(h handle.Handle) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, it := range l.items {
		if it.Handle == h {
			return true
		}
	}

	return false
}

// Items returns a snapshot copy of the list in FIFO order (oldest first).
func (l *List) Items() []handle.FileId {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]handle.FileId, len(l.items))
	copy(out, l.items)

	return out
}

// Len returns the current number of entries.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.items)
}

// Path returns the on-disk path this list persists to.
func (l *List) Path() string {
	return l.path
}
