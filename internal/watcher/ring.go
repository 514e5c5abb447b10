package watcher

import (
	"sync"

	"github.com/andrea-bruno/cloudsync/pkg/handle"
)

// deletedByRemoteRing is a bounded FIFO of FileIds the engine is about to
// delete locally on a peer's behalf. The directory watcher checks incoming
// Delete events against it to suppress the echo — otherwise a
// remote-requested delete would bounce straight back into the local PDIL
// and get reconfirmed to the peer that just asked for it.
type deletedByRemoteRing struct {
	mu       sync.Mutex
	capacity int
	items    []handle.FileId
}

func newDeletedByRemoteRing(capacity int) *deletedByRemoteRing {
	return &deletedByRemoteRing{capacity: capacity}
}

// Expect records that the engine is about to perform a local delete for id
// on behalf of a remote request.
func (r *deletedByRemoteRing) Expect(id handle.FileId) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, id)
	if len(r.items) > r.capacity {
		r.items = r.items[1:]
	}
}

// Take reports whether id was expected and, if so, consumes the entry so
// a later genuine delete of a path reusing the same handle isn't also
// suppressed.
func (r *deletedByRemoteRing) Take(id handle.FileId) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, it := range r.items {
		if it == id {
			r.items = append(r.items[:i], r.items[i+1:]...)

			return true
		}
	}

	return false
}

// Len returns the number of entries currently pending.
func (r *deletedByRemoteRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.items)
}
