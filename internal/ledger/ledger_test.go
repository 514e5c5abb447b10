package ledger

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	l, err := Open(dbPath, testLogger())
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, l.Close())
	})

	return l
}

func TestOpen_RunsMigrationsAndIsReusable(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	l1, err := Open(dbPath, testLogger())
	require.NoError(t, err)
	require.NoError(t, l1.Close())

	l2, err := Open(dbPath, testLogger())
	require.NoError(t, err)
	require.NoError(t, l2.Close())
}
