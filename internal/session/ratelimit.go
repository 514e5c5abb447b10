package session

import (
	"sync"
	"time"
)

// peerAttempts tracks failed login attempts for a single peer within the
// current window.
type peerAttempts struct {
	count        int
	windowStart  time.Time
	blockedUntil time.Time
}

// RateLimiter enforces the brute-force login defense: once a peer racks up
// more than maxAttempts failures inside window, it is locked out for
// cooldown. A successful login clears the peer's history outright.
type RateLimiter struct {
	mu          sync.Mutex
	maxAttempts int
	window      time.Duration
	cooldown    time.Duration
	peers       map[string]*peerAttempts
	nowFunc     func() time.Time
}

// NewRateLimiter builds a rate limiter from the configured attempt budget,
// the window those attempts are counted over, and the lockout duration
// once the budget is exceeded.
func NewRateLimiter(maxAttempts int, window, cooldown time.Duration) *RateLimiter {
	return &RateLimiter{
		maxAttempts: maxAttempts,
		window:      window,
		cooldown:    cooldown,
		peers:       make(map[string]*peerAttempts),
		nowFunc:     time.Now,
	}
}

// Allowed reports whether peerID is clear to attempt a login right now.
func (r *RateLimiter) Allowed(peerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.peers[peerID]
	if !ok {
		return true
	}

	return !r.nowFunc().Before(rec.blockedUntil)
}

// RecordFailure registers a failed login attempt for peerID. It reports
// whether this failure tripped the cooldown.
func (r *RateLimiter) RecordFailure(peerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowFunc()

	rec, ok := r.peers[peerID]
	if !ok || now.Sub(rec.windowStart) > r.window {
		rec = &peerAttempts{windowStart: now}
		r.peers[peerID] = rec
	}

	rec.count++

	if rec.count > r.maxAttempts {
		rec.blockedUntil = now.Add(r.cooldown)

		return true
	}

	return false
}

// RecordSuccess clears peerID's failure history, the "counters decay on
// success" rule.
func (r *RateLimiter) RecordSuccess(peerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.peers, peerID)
}
