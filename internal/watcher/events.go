package watcher

import (
	"os"

	"github.com/fsnotify/fsnotify"

	"github.com/andrea-bruno/cloudsync/internal/icm"
	"github.com/andrea-bruno/cloudsync/pkg/handle"
)

// handleEvent classifies one fsnotify event and applies the corresponding
// mutation to the content map and deleted list.
func (w *Watcher) handleEvent(fw FsWatcher, ev fsnotify.Event) {
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}

	relPath := w.relPath(ev.Name)
	if relPath == "" {
		return
	}

	switch {
	case ev.Has(fsnotify.Create):
		w.handleCreate(fw, ev.Name, relPath)

	case ev.Has(fsnotify.Write):
		w.handleWrite(ev.Name, relPath)

	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.handleDelete(fw, ev.Name, relPath)
	}
}

func (w *Watcher) handleCreate(fw FsWatcher, absPath, relPath string) {
	if icm.IsUnderCloudCache(relPath) {
		w.maybeNotifyPeerListChanged(absPath, relPath)

		if !icm.IsPDILFile(relPath) {
			return
		}
		// A PDIL file is ordinary sync content despite living under
		// .cloud_cache; fall through to the normal file-create path.
	} else if !icm.IsVisible(relPath) {
		return
	}

	info, err := os.Lstat(absPath)
	if err != nil {
		w.logger.Debug("watcher: stat failed for created path", "path", relPath, "error", err)

		return
	}

	if info.Mode()&os.ModeSymlink != 0 {
		return
	}

	if info.IsDir() {
		h := handle.Derive(relPath, handle.Dir)
		_ = w.content.Add(icm.Entry{
			Handle:       h,
			AbsolutePath: absPath,
			RelativePath: relPath,
			Kind:         icm.Dir,
		})

		if addErr := fw.Add(absPath); addErr != nil {
			w.logger.Warn("watcher: failed to add watch on new directory", "path", relPath, "error", addErr)
		}
	} else {
		h := handle.Derive(relPath, handle.File)
		mtime := uint32(info.ModTime().Unix())

		w.deleted.RemoveByHandle(h)

		_ = w.content.Add(icm.Entry{
			Handle:        h,
			AbsolutePath:  absPath,
			RelativePath:  relPath,
			Mtime:         mtime,
			AllocatedSize: info.Size(),
			Kind:          icm.File,
		})
	}
}

func (w *Watcher) handleWrite(absPath, relPath string) {
	if icm.IsUnderCloudCache(relPath) {
		w.maybeNotifyPeerListChanged(absPath, relPath)

		if !icm.IsPDILFile(relPath) {
			return
		}
		// A PDIL file is ordinary sync content despite living under
		// .cloud_cache; fall through to the normal file-write path.
	} else if !icm.IsVisible(relPath) {
		return
	}

	info, err := os.Lstat(absPath)
	if err != nil {
		w.logger.Debug("watcher: stat failed for modified path", "path", relPath, "error", err)

		return
	}

	if info.IsDir() || info.Mode()&os.ModeSymlink != 0 {
		return
	}

	h := handle.Derive(relPath, handle.File)
	_ = w.content.Add(icm.Entry{
		Handle:        h,
		AbsolutePath:  absPath,
		RelativePath:  relPath,
		Mtime:         uint32(info.ModTime().Unix()),
		AllocatedSize: info.Size(),
		Kind:          icm.File,
	})
}

func (w *Watcher) handleDelete(fw FsWatcher, absPath, relPath string) {
	if !icm.IsVisible(relPath) && !icm.IsUnderCloudCache(relPath) {
		return
	}

	entry, ok := w.content.GetByPath(relPath)
	if !ok {
		return
	}

	_ = fw.Remove(absPath)

	id := entry.FileId()

	if w.ring.Take(id) {
		w.content.Remove(entry.Handle)

		return
	}

	if entry.Kind == icm.Dir {
		w.content.RemoveSubtree(relPath)
	} else {
		w.deleted.Append(id)
		w.content.Remove(entry.Handle)
	}
}
