package spooler

import (
	"sync"

	"github.com/andrea-bruno/cloudsync/pkg/handle"
)

// defaultAbandonThreshold is the number of consecutive chunk-transfer
// timeouts for the same handle after which the spooler gives up rather
// than keep requeuing.
const defaultAbandonThreshold = 5

// AbandonTracker counts consecutive chunk-transfer timeouts per handle,
// grounded on the same failure-counting shape used for directory-watch
// suppression, but keyed by handle instead of path and with no cooldown
// window: a single success resets the count to zero.
type AbandonTracker struct {
	mu        sync.Mutex
	threshold int
	counts    map[handle.Handle]int
}

// NewAbandonTracker returns an AbandonTracker using threshold consecutive
// timeouts before a handle is abandoned. threshold <= 0 uses the default.
func NewAbandonTracker(threshold int) *AbandonTracker {
	if threshold <= 0 {
		threshold = defaultAbandonThreshold
	}

	return &AbandonTracker{threshold: threshold, counts: make(map[handle.Handle]int)}
}

// RecordTimeout increments h's consecutive-timeout count and returns the
// new value.
func (a *AbandonTracker) RecordTimeout(h handle.Handle) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.counts[h]++

	return a.counts[h]
}

// RecordSuccess clears h's consecutive-timeout count.
func (a *AbandonTracker) RecordSuccess(h handle.Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.counts, h)
}

// ShouldAbandon reports whether h has reached the abandonment threshold.
func (a *AbandonTracker) ShouldAbandon(h handle.Handle) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.counts[h] >= a.threshold
}

// Reset clears h's count outright, used once a handle has been abandoned
// and its state should not influence a future unrelated transfer.
func (a *AbandonTracker) Reset(h handle.Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.counts, h)
}
