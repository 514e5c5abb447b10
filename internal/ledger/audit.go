package ledger

import (
	"context"
	"fmt"
	"time"
)

// AuditOutcome is the recorded result of a login attempt.
type AuditOutcome string

const (
	AuditSuccess     AuditOutcome = "success"
	AuditFailure     AuditOutcome = "failure"
	AuditRateLimited AuditOutcome = "rate_limited"
)

const (
	sqlInsertAudit = `INSERT INTO login_audit (occurred_at, peer_id, outcome) VALUES (?, ?, ?)`

	sqlRecentAuditForPeer = `SELECT occurred_at, peer_id, outcome FROM login_audit
		WHERE peer_id = ? ORDER BY id DESC LIMIT ?`
)

// AuditEntry is a single recorded login attempt.
type AuditEntry struct {
	OccurredAt time.Time
	PeerID     string
	Outcome    AuditOutcome
}

// RecordLoginAttempt appends one entry to the SRM audit trail. Unlike the
// error ring, the audit trail is never trimmed — it is the durable record
// of who attempted to authenticate and when.
func (l *Ledger) RecordLoginAttempt(ctx context.Context, peerID string, outcome AuditOutcome) error {
	now := l.nowFunc()

	if _, err := l.db.ExecContext(ctx, sqlInsertAudit, now.Unix(), peerID, string(outcome)); err != nil {
		return fmt.Errorf("ledger: recording login attempt: %w", err)
	}

	return nil
}

// RecentLoginAttempts returns up to limit of the most recent login
// attempts for peerID, newest first.
func (l *Ledger) RecentLoginAttempts(ctx context.Context, peerID string, limit int) ([]AuditEntry, error) {
	rows, err := l.db.QueryContext(ctx, sqlRecentAuditForPeer, peerID, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: querying login attempts: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry

	for rows.Next() {
		var (
			unixTime int64
			outcome  string
			e        AuditEntry
		)

		if err := rows.Scan(&unixTime, &e.PeerID, &outcome); err != nil {
			return nil, fmt.Errorf("ledger: scanning login attempt row: %w", err)
		}

		e.OccurredAt = time.Unix(unixTime, 0).UTC()
		e.Outcome = AuditOutcome(outcome)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterating login attempt rows: %w", err)
	}

	return entries, nil
}
