package icm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrea-bruno/cloudsync/pkg/handle"
)

func entry(relPath string, mtime uint32, size int64) Entry {
	return Entry{
		Handle:        handle.Derive(relPath, handle.File),
		RelativePath:  relPath,
		Mtime:         mtime,
		AllocatedSize: size,
		Kind:          File,
	}
}

func TestAdd_UpdatesUsedSpace(t *testing.T) {
	m := New()
	require.NoError(t, m.Add(entry("a.txt", 100, 500)))
	require.NoError(t, m.Add(entry("b.txt", 100, 700)))

	assert.Equal(t, int64(1200), m.UsedSpace())
	assert.Equal(t, 2, m.Len())
}

func TestAdd_ReplaceUpdatesUsedSpaceDelta(t *testing.T) {
	m := New()
	e := entry("a.txt", 100, 500)
	require.NoError(t, m.Add(e))

	e.Mtime = 200
	e.AllocatedSize = 900
	require.NoError(t, m.Add(e))

	assert.Equal(t, int64(900), m.UsedSpace())
	assert.Equal(t, 1, m.Len())
}

func TestAdd_RejectsInvisiblePath(t *testing.T) {
	m := New()
	err := m.Add(entry(".hidden/a.txt", 100, 500))
	require.ErrorIs(t, err, ErrExcluded)
	assert.Equal(t, 0, m.Len())
}

func TestRemove_UpdatesUsedSpace(t *testing.T) {
	m := New()
	e := entry("a.txt", 100, 500)
	require.NoError(t, m.Add(e))

	m.Remove(e.Handle)

	assert.Equal(t, int64(0), m.UsedSpace())
	assert.Equal(t, 0, m.Len())
}

func TestRemove_Idempotent(t *testing.T) {
	m := New()
	m.Remove(handle.Derive("nonexistent.txt", File))
	assert.Equal(t, int64(0), m.UsedSpace())
}

func TestRemoveSubtree_RemovesDescendantsOnly(t *testing.T) {
	m := New()
	require.NoError(t, m.Add(entry("docs/a.txt", 1, 10)))
	require.NoError(t, m.Add(entry("docs/sub/b.txt", 1, 20)))
	require.NoError(t, m.Add(entry("other/c.txt", 1, 30)))

	m.RemoveSubtree("docs")

	assert.Equal(t, int64(30), m.UsedSpace())
	assert.Equal(t, 1, m.Len())
	_, ok := m.GetByPath("other/c.txt")
	assert.True(t, ok)
}

func TestGetByPath(t *testing.T) {
	m := New()
	e := entry("a.txt", 1, 10)
	require.NoError(t, m.Add(e))

	got, ok := m.GetByPath("a.txt")
	require.True(t, ok)
	assert.Equal(t, e, got)

	_, ok = m.GetByPath("missing.txt")
	assert.False(t, ok)
}

func TestUsedSpace_InvariantAfterMixedOps(t *testing.T) {
	m := New()
	entries := []Entry{
		entry("a.txt", 1, 100),
		entry("b.txt", 1, 200),
		entry("c.txt", 1, 300),
	}

	for _, e := range entries {
		require.NoError(t, m.Add(e))
	}

	m.Remove(entries[1].Handle)

	var sum int64
	m.Iter(func(e Entry) { sum += e.AllocatedSize })

	assert.Equal(t, sum, m.UsedSpace())
}

func TestKeysWithMtimes(t *testing.T) {
	m := New()
	e := entry("a.txt", 42, 10)
	require.NoError(t, m.Add(e))

	km := m.KeysWithMtimes()
	assert.Equal(t, uint32(42), km[e.Handle])
}
