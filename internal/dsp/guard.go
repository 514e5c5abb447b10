package dsp

import "sync"

// ReentryGuard prevents a peer's structure exchange from being processed
// while the operations from its prior exchange are still being produced.
// One guard instance is shared by the engine across all peers.
type ReentryGuard struct {
	mu   sync.Mutex
	busy map[string]bool
}

// NewReentryGuard returns an empty ReentryGuard.
func NewReentryGuard() *ReentryGuard {
	return &ReentryGuard{busy: make(map[string]bool)}
}

// TryEnter reports whether peerID's structure phase may proceed. Returns
// false if a prior exchange for the same peer is still in flight; the
// caller must drop the newly received structure rather than queue it.
func (g *ReentryGuard) TryEnter(peerID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.busy[peerID] {
		return false
	}

	g.busy[peerID] = true

	return true
}

// Leave releases peerID's reentry flag, allowing its next structure
// exchange to proceed.
func (g *ReentryGuard) Leave(peerID string) {
	g.mu.Lock()
	delete(g.busy, peerID)
	g.mu.Unlock()
}
