// Package watcher implements the directory watcher: fsnotify-based
// filesystem event ingestion that classifies create/change/delete/rename
// activity, keeps the Indexed Content Map and Persistent Deleted-ID List
// current, and debounces sync requests to the engine.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/andrea-bruno/cloudsync/internal/icm"
	"github.com/andrea-bruno/cloudsync/internal/pdil"
	"github.com/andrea-bruno/cloudsync/pkg/handle"
)

// FsWatcher abstracts filesystem event monitoring so tests can inject a
// fake implementation instead of touching a real filesystem.
type FsWatcher interface {
	Add(name string) error
	Remove(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

type fsnotifyWrapper struct {
	w *fsnotify.Watcher
}

func (fw *fsnotifyWrapper) Add(name string) error          { return fw.w.Add(name) }
func (fw *fsnotifyWrapper) Remove(name string) error        { return fw.w.Remove(name) }
func (fw *fsnotifyWrapper) Close() error                    { return fw.w.Close() }
func (fw *fsnotifyWrapper) Events() <-chan fsnotify.Event   { return fw.w.Events }
func (fw *fsnotifyWrapper) Errors() <-chan error            { return fw.w.Errors }

// PeerListChangedFunc is invoked when a change under .cloud_cache looks
// like another peer's persisted Deleted list, so the engine can reload it.
type PeerListChangedFunc func(userID, absPath string)

// Watcher ingests filesystem events for one CloudRoot, mutating content
// and deleted in place and emitting debounced sync-request signals.
type Watcher struct {
	cloudRoot string
	content   *icm.Map
	deleted   *pdil.List
	ring      *deletedByRemoteRing
	logger    *slog.Logger

	watcherFactory func() (FsWatcher, error)
	debounce       time.Duration

	requestCh chan struct{}
	changedCh chan struct{}

	onPeerListChanged PeerListChangedFunc
}

// New creates a Watcher over cloudRoot. content and deleted are the
// engine's owned ICM and local PDIL; debounce is PAUSE_BEFORE_SYNCING.
func New(cloudRoot string, content *icm.Map, deleted *pdil.List, ringCapacity int, debounce time.Duration, logger *slog.Logger) *Watcher {
	return &Watcher{
		cloudRoot: cloudRoot,
		content:   content,
		deleted:   deleted,
		ring:      newDeletedByRemoteRing(ringCapacity),
		logger:    logger,
		watcherFactory: func() (FsWatcher, error) {
			w, err := fsnotify.NewWatcher()
			if err != nil {
				return nil, err
			}

			return &fsnotifyWrapper{w: w}, nil
		},
		debounce:  debounce,
		requestCh: make(chan struct{}, 1),
		changedCh: make(chan struct{}, 1),
	}
}

// OnPeerListChanged registers a callback invoked when a change under
// .cloud_cache looks like a peer's <userId>.Deleted file.
func (w *Watcher) OnPeerListChanged(fn PeerListChangedFunc) {
	w.onPeerListChanged = fn
}

// ExpectRemoteDelete records that the engine is about to delete id locally
// on a peer's behalf, so the resulting fsnotify event is suppressed rather
// than reconfirmed back to the peer that requested it.
func (w *Watcher) ExpectRemoteDelete(id handle.FileId) {
	w.ring.Expect(id)
}

// SyncRequested returns the channel the engine should select on to learn
// when a sync pass should run: one value per debounce-quiet period.
func (w *Watcher) SyncRequested() <-chan struct{} {
	return w.requestCh
}

// Changed implements icm.Walker: it reports raw (pre-debounce) mutation
// signals so a concurrent rebuild_from_tree can restart.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changedCh
}

// Run adds watches on every directory under cloudRoot and blocks
// processing fsnotify events until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := w.watcherFactory()
	if err != nil {
		return fmt.Errorf("watcher: creating filesystem watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addWatchesRecursive(fw, w.cloudRoot); err != nil {
		return fmt.Errorf("watcher: adding initial watches: %w", err)
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	timerActive := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events():
			if !ok {
				return nil
			}

			w.handleEvent(fw, ev)
			w.signalChanged()

			if !timer.Stop() && timerActive {
				<-timer.C
			}

			timer.Reset(w.debounce)
			timerActive = true

		case err, ok := <-fw.Errors():
			if !ok {
				return nil
			}

			w.logger.Warn("watcher: filesystem watcher error", "error", err)

		case <-timer.C:
			timerActive = false
			w.signalRequest()
		}
	}
}

func (w *Watcher) signalRequest() {
	select {
	case w.requestCh <- struct{}{}:
	default:
	}
}

func (w *Watcher) signalChanged() {
	select {
	case w.changedCh <- struct{}{}:
	default:
	}
}

func (w *Watcher) addWatchesRecursive(fw FsWatcher, root string) error {
	return filepath.WalkDir(root, func(absPath string, d os.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("watcher: walk error adding watches", "path", absPath, "error", err)

			return nil
		}

		if !d.IsDir() {
			return nil
		}

		relPath := w.relPath(absPath)
		if relPath != "" && !icm.IsVisible(relPath) && !icm.IsUnderCloudCache(relPath) {
			return filepath.SkipDir
		}

		if addErr := fw.Add(absPath); addErr != nil {
			w.logger.Warn("watcher: failed to add watch", "path", absPath, "error", addErr)
		}

		return nil
	})
}

func (w *Watcher) relPath(absPath string) string {
	rel, err := filepath.Rel(w.cloudRoot, absPath)
	if err != nil || rel == "." {
		return ""
	}

	return filepath.ToSlash(rel)
}

func (w *Watcher) maybeNotifyPeerListChanged(absPath, relPath string) {
	if w.onPeerListChanged == nil || !icm.IsUnderCloudCache(relPath) {
		return
	}

	base := filepath.Base(relPath)

	const suffix = ".Deleted"
	if !strings.HasSuffix(base, suffix) {
		return
	}

	userID := strings.TrimSuffix(base, suffix)
	if userID == "" {
		return
	}

	w.onPeerListChanged(userID, absPath)
}
