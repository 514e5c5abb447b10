package session

import (
	"errors"
	"log/slog"
	"time"
)

var (
	// ErrRateLimited is returned when a peer is within its cooldown window
	// after too many failed attempts.
	ErrRateLimited = errors.New("peer is rate limited after repeated failed logins")

	// ErrChallengeExpired is returned when a proof arrives after its
	// challenge's deadline has passed.
	ErrChallengeExpired = errors.New("login challenge expired")

	// ErrNoPendingChallenge is returned when a proof arrives for a peer
	// that never received a challenge, or already consumed one.
	ErrNoPendingChallenge = errors.New("no pending login challenge for peer")

	// ErrLoginFailed is returned when a proof matches no known PIN.
	ErrLoginFailed = errors.New("login proof did not match any known pin")
)

// Manager is the server-side Session & Role Manager: it issues login
// challenges, validates proofs against the PIN store, and enforces the
// rate limiter across the whole login handshake.
type Manager struct {
	table        *Table
	pins         *PINStore
	limiter      *RateLimiter
	challengeTTL time.Duration
	nowFunc      func() time.Time
	logger       *slog.Logger
}

// NewManager builds a Manager from its collaborators. challengeTTL bounds
// how long a server-issued challenge remains valid before the client must
// restart the login handshake.
func NewManager(pins *PINStore, limiter *RateLimiter, challengeTTL time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		table:        NewTable(),
		pins:         pins,
		limiter:      limiter,
		challengeTTL: challengeTTL,
		nowFunc:      time.Now,
		logger:       logger,
	}
}

// Table exposes the underlying session table for read access by other
// components. Operation dispatch does not consult it: Request and Send
// operations go out whether or not the peer's record is Authenticated.
func (m *Manager) Table() *Table {
	return m.table
}

// BeginLogin handles a RequestOfAuthentication: it generates a fresh
// challenge, stores it against the peer's pending login, and returns the
// value to send back as Authentication(challenge).
func (m *Manager) BeginLogin(peerID string) (Challenge, error) {
	if !m.limiter.Allowed(peerID) {
		return Challenge{}, ErrRateLimited
	}

	challenge, err := NewChallenge()
	if err != nil {
		return Challenge{}, err
	}

	rec := m.table.GetOrCreate(peerID, RoleServer)

	rec.mu.Lock()
	rec.pendingChallenge = challenge
	rec.pendingDeadline = m.nowFunc().Add(m.challengeTTL)
	rec.mu.Unlock()

	return challenge, nil
}

// CompleteLogin handles the client's Authentication(proof) reply. On
// success the record is marked Authenticated and the matched PIN (if
// ephemeral) is consumed so it cannot be replayed. On failure the rate
// limiter's failure counter is advanced.
func (m *Manager) CompleteLogin(peerID string, proof uint64) error {
	if !m.limiter.Allowed(peerID) {
		return ErrRateLimited
	}

	rec, ok := m.table.Get(peerID)
	if !ok {
		m.limiter.RecordFailure(peerID)

		return ErrNoPendingChallenge
	}

	rec.mu.Lock()
	challenge := rec.pendingChallenge
	deadline := rec.pendingDeadline
	rec.pendingDeadline = time.Time{}
	rec.mu.Unlock()

	if deadline.IsZero() || m.nowFunc().After(deadline) {
		m.limiter.RecordFailure(peerID)

		return ErrChallengeExpired
	}

	matched := ""

	for _, pin := range m.pins.Candidates() {
		if ProofsEqual(Proof(challenge, pin), proof) {
			matched = pin

			break
		}
	}

	if matched == "" {
		m.limiter.RecordFailure(peerID)
		m.logger.Warn("login failed", "peer_id", peerID)

		return ErrLoginFailed
	}

	m.pins.Consume(matched)
	m.limiter.RecordSuccess(peerID)
	rec.authenticated.Store(true)

	m.logger.Info("login succeeded", "peer_id", peerID)

	return nil
}

// Logout tears down a peer's session, the explicit-logout path. Queued
// operations for the peer are left untouched by design: they remain
// queued and resume on the next successful login.
func (m *Manager) Logout(peerID string) {
	m.table.Remove(peerID)
	m.logger.Info("logout", "peer_id", peerID)
}

// ClientProof computes the proof a client sends back in response to a
// server challenge, given the PIN the user configured for that peer.
func ClientProof(challenge Challenge, pin string) uint64 {
	return Proof(challenge, pin)
}
