package ledger

import (
	"context"
	"fmt"
	"time"
)

const (
	sqlInsertError = `INSERT INTO error_log (occurred_at, peer_id, message) VALUES (?, ?, ?)`

	sqlTrimErrors = `DELETE FROM error_log WHERE id NOT IN (
		SELECT id FROM error_log ORDER BY id DESC LIMIT ?
	)`

	sqlRecentErrors = `SELECT occurred_at, peer_id, message FROM error_log
		ORDER BY id DESC LIMIT ?`
)

// ErrorEntry is a single recorded failure.
type ErrorEntry struct {
	OccurredAt time.Time
	PeerID     string
	Message    string
}

// RecordError appends an entry to the error ring and trims the table back
// down to errorRingCapacity rows.
func (l *Ledger) RecordError(ctx context.Context, peerID, message string) error {
	now := l.nowFunc()

	if _, err := l.db.ExecContext(ctx, sqlInsertError, now.Unix(), peerID, message); err != nil {
		return fmt.Errorf("ledger: recording error: %w", err)
	}

	if _, err := l.db.ExecContext(ctx, sqlTrimErrors, errorRingCapacity); err != nil {
		return fmt.Errorf("ledger: trimming error ring: %w", err)
	}

	return nil
}

// RecentErrors returns up to limit of the most recently recorded errors,
// newest first.
func (l *Ledger) RecentErrors(ctx context.Context, limit int) ([]ErrorEntry, error) {
	rows, err := l.db.QueryContext(ctx, sqlRecentErrors, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: querying recent errors: %w", err)
	}
	defer rows.Close()

	var entries []ErrorEntry

	for rows.Next() {
		var (
			unixTime int64
			e        ErrorEntry
		)

		if err := rows.Scan(&unixTime, &e.PeerID, &e.Message); err != nil {
			return nil, fmt.Errorf("ledger: scanning error row: %w", err)
		}

		e.OccurredAt = time.Unix(unixTime, 0).UTC()
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterating error rows: %w", err)
	}

	return entries, nil
}
