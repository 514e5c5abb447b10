package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrea-bruno/cloudsync/internal/icm"
	"github.com/andrea-bruno/cloudsync/internal/pdil"
	"github.com/andrea-bruno/cloudsync/pkg/handle"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeFsWatcher struct {
	events  chan fsnotify.Event
	errs    chan error
	added   []string
	removed []string
}

func newFakeFsWatcher() *fakeFsWatcher {
	return &fakeFsWatcher{
		events: make(chan fsnotify.Event, 16),
		errs:   make(chan error, 1),
	}
}

func (f *fakeFsWatcher) Add(name string) error {
	f.added = append(f.added, name)

	return nil
}

func (f *fakeFsWatcher) Remove(name string) error {
	f.removed = append(f.removed, name)

	return nil
}

func (f *fakeFsWatcher) Close() error                  { return nil }
func (f *fakeFsWatcher) Events() <-chan fsnotify.Event { return f.events }
func (f *fakeFsWatcher) Errors() <-chan error          { return f.errs }

func newTestWatcher(t *testing.T, root string) (*Watcher, *fakeFsWatcher) {
	t.Helper()

	content := icm.New()
	deleted := pdil.New(filepath.Join(root, ".cloud_cache", "u1.Deleted"), 1000, testLogger())

	w := New(root, content, deleted, 1000, 20*time.Millisecond, testLogger())

	fake := newFakeFsWatcher()
	w.watcherFactory = func() (FsWatcher, error) { return fake, nil }

	return w, fake
}

func TestHandleCreate_AddsFileToContentMap(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hi"), 0o644))

	w, fake := newTestWatcher(t, root)
	w.handleCreate(fake, filepath.Join(root, "a.txt"), "a.txt")

	e, ok := w.content.GetByPath("a.txt")
	require.True(t, ok)
	assert.Equal(t, icm.File, e.Kind)
}

func TestHandleCreate_RemovesFromDeletedOnRecovery(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hi"), 0o644))

	w, fake := newTestWatcher(t, root)
	h := handle.Derive("a.txt", handle.File)
	w.deleted.Append(handle.FileId{Handle: h, Mtime: 1})

	w.handleCreate(fake, filepath.Join(root, "a.txt"), "a.txt")

	assert.False(t, w.deleted.ContainsHandle(h))
}

func TestHandleCreate_PDILFileAddedAsOrdinaryContent(t *testing.T) {
	root := t.TempDir()
	relPath := ".cloud_cache/u1.Deleted"
	absPath := filepath.Join(root, ".cloud_cache", "u1.Deleted")
	require.NoError(t, os.MkdirAll(filepath.Dir(absPath), 0o755))
	require.NoError(t, os.WriteFile(absPath, []byte("deleted-ids"), 0o644))

	w, fake := newTestWatcher(t, root)
	w.handleCreate(fake, absPath, relPath)

	e, ok := w.content.GetByPath(relPath)
	require.True(t, ok, "PDIL file should be tracked as ordinary sync content")
	assert.Equal(t, icm.File, e.Kind)
}

func TestHandleCreate_IgnoresNonPDILCloudCacheFile(t *testing.T) {
	root := t.TempDir()
	relPath := ".cloud_cache/notes.txt"
	absPath := filepath.Join(root, ".cloud_cache", "notes.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(absPath), 0o755))
	require.NoError(t, os.WriteFile(absPath, []byte("irrelevant"), 0o644))

	w, fake := newTestWatcher(t, root)
	w.handleCreate(fake, absPath, relPath)

	_, ok := w.content.GetByPath(relPath)
	assert.False(t, ok)
}

func TestHandleWrite_PDILFileUpdatesOrdinaryContent(t *testing.T) {
	root := t.TempDir()
	relPath := ".cloud_cache/u1.Deleted"
	absPath := filepath.Join(root, ".cloud_cache", "u1.Deleted")
	require.NoError(t, os.MkdirAll(filepath.Dir(absPath), 0o755))
	require.NoError(t, os.WriteFile(absPath, []byte("deleted-ids-v2"), 0o644))

	w, _ := newTestWatcher(t, root)
	w.handleWrite(absPath, relPath)

	e, ok := w.content.GetByPath(relPath)
	require.True(t, ok)
	assert.Equal(t, int64(len("deleted-ids-v2")), e.AllocatedSize)
}

func TestHandleDelete_AppendsToDeletedList(t *testing.T) {
	root := t.TempDir()

	w, fake := newTestWatcher(t, root)
	h := handle.Derive("a.txt", handle.File)
	require.NoError(t, w.content.Add(icm.Entry{
		Handle: h, RelativePath: "a.txt", Mtime: 100, Kind: icm.File,
	}))

	w.handleDelete(fake, filepath.Join(root, "a.txt"), "a.txt")

	assert.True(t, w.deleted.ContainsHandle(h))
	_, ok := w.content.GetByPath("a.txt")
	assert.False(t, ok)
}

func TestHandleDelete_SuppressedByRemoteRing(t *testing.T) {
	root := t.TempDir()

	w, fake := newTestWatcher(t, root)
	h := handle.Derive("a.txt", handle.File)
	require.NoError(t, w.content.Add(icm.Entry{
		Handle: h, RelativePath: "a.txt", Mtime: 100, Kind: icm.File,
	}))

	w.ExpectRemoteDelete(handle.FileId{Handle: h, Mtime: 100})
	w.handleDelete(fake, filepath.Join(root, "a.txt"), "a.txt")

	assert.False(t, w.deleted.ContainsHandle(h))
	_, ok := w.content.GetByPath("a.txt")
	assert.False(t, ok)
}

func TestHandleDelete_IgnoresUnknownPath(t *testing.T) {
	root := t.TempDir()
	w, fake := newTestWatcher(t, root)

	w.handleDelete(fake, filepath.Join(root, "missing.txt"), "missing.txt")
	assert.Equal(t, 0, w.deleted.Len())
}

func TestMaybeNotifyPeerListChanged_TriggersOnDeletedSuffix(t *testing.T) {
	root := t.TempDir()
	w, _ := newTestWatcher(t, root)

	var gotUser, gotPath string
	w.OnPeerListChanged(func(userID, absPath string) {
		gotUser = userID
		gotPath = absPath
	})

	absPath := filepath.Join(root, ".cloud_cache", "bob.Deleted")
	w.maybeNotifyPeerListChanged(absPath, ".cloud_cache/bob.Deleted")

	assert.Equal(t, "bob", gotUser)
	assert.Equal(t, absPath, gotPath)
}

func TestMaybeNotifyPeerListChanged_IgnoresNonDeletedFile(t *testing.T) {
	root := t.TempDir()
	w, _ := newTestWatcher(t, root)

	called := false
	w.OnPeerListChanged(func(string, string) { called = true })

	w.maybeNotifyPeerListChanged(filepath.Join(root, ".cloud_cache", "other.txt"), ".cloud_cache/other.txt")
	assert.False(t, called)
}

func TestRun_DebouncesSyncRequest(t *testing.T) {
	root := t.TempDir()
	w, fake := newTestWatcher(t, root)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = w.Run(ctx) }()

	fake.events <- fsnotify.Event{Name: filepath.Join(root, "a.txt"), Op: fsnotify.Create}

	select {
	case <-w.SyncRequested():
	case <-time.After(2 * time.Second):
		t.Fatal("expected a debounced sync request")
	}
}

func TestDeletedByRemoteRing_TakeConsumesOnce(t *testing.T) {
	r := newDeletedByRemoteRing(2)
	id := handle.FileId{Handle: handle.Derive("a.txt", handle.File), Mtime: 1}

	r.Expect(id)
	assert.True(t, r.Take(id))
	assert.False(t, r.Take(id))
}

func TestDeletedByRemoteRing_EvictsOldest(t *testing.T) {
	r := newDeletedByRemoteRing(1)
	a := handle.FileId{Handle: handle.Derive("a.txt", handle.File), Mtime: 1}
	b := handle.FileId{Handle: handle.Derive("b.txt", handle.File), Mtime: 1}

	r.Expect(a)
	r.Expect(b)

	assert.False(t, r.Take(a))
	assert.True(t, r.Take(b))
}
