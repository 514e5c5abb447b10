// Package session implements PIN-based challenge-response login, per-peer
// session state, and brute-force rate limiting for peer connections.
package session

import (
	"sync"
	"sync/atomic"
	"time"
)

// Role distinguishes which side of a connection a session record
// represents.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

func (r Role) String() string {
	if r == RoleServer {
		return "server"
	}

	return "client"
}

// Record is the per-peer session state the SRM owns. Authenticated is an
// atomic, so it can be read without taking mu; every other field is
// guarded by mu since logins are rare. The engine's command handlers and
// operation dispatch do not check Authenticated before acting.
type Record struct {
	PeerID string
	Role   Role

	authenticated atomic.Bool

	mu               sync.Mutex
	pendingChallenge Challenge
	pendingDeadline  time.Time
}

// Authenticated reports whether this peer has completed a successful
// login and not since been logged out.
func (r *Record) Authenticated() bool {
	return r.authenticated.Load()
}

// Table is the set of all known peer session records.
type Table struct {
	mu      sync.Mutex
	records map[string]*Record
}

// NewTable creates an empty session table.
func NewTable() *Table {
	return &Table{records: make(map[string]*Record)}
}

// GetOrCreate returns the record for peerID, creating one with the given
// role if this is the first time the peer has been seen.
func (t *Table) GetOrCreate(peerID string, role Role) *Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	if rec, ok := t.records[peerID]; ok {
		return rec
	}

	rec := &Record{PeerID: peerID, Role: role}
	t.records[peerID] = rec

	return rec
}

// Remove tears down a peer's session, the explicit-logout and
// process-exit path.
func (t *Table) Remove(peerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.records, peerID)
}

// Get returns the record for peerID, if one exists.
func (t *Table) Get(peerID string) (*Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[peerID]

	return rec, ok
}

// Peers returns every peer id currently known to the table, authenticated
// or not — callers that only want authenticated peers filter on
// Record.Authenticated themselves.
func (t *Table) Peers() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]string, 0, len(t.records))
	for id := range t.records {
		out = append(out, id)
	}

	return out
}
