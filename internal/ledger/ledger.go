// Package ledger persists a bounded error history and the SRM login audit
// trail to a small SQLite database, independent of internal/transfer's
// in-memory chunk-deadline ledger.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// errorRingCapacity bounds the error_log table: once exceeded, the oldest
// rows are trimmed on the next write so the ledger never grows unbounded
// on a long-running server.
const errorRingCapacity = 1024

// Ledger is the sole writer to the on-disk error and audit tables.
type Ledger struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time
}

// Open opens the SQLite database at dbPath, running migrations if needed,
// and returns a ready-to-use Ledger. The database uses WAL mode with
// synchronous=FULL for crash-safe durability, matching the durability
// posture the rest of this system's persisted state (ICM, PDIL) aims for
// via atomic rename rather than a journaled database.
func Open(dbPath string, logger *slog.Logger) (*Ledger, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"+
			"&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: opening database %s: %w", dbPath, err)
	}

	// Sole-writer pattern: only one connection writes at a time.
	db.SetMaxOpenConns(1)

	if err := runMigrations(context.Background(), db, logger); err != nil {
		db.Close()

		return nil, err
	}

	return &Ledger{db: db, logger: logger, nowFunc: time.Now}, nil
}

// Close releases the underlying database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}
