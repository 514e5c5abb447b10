package pdil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/andrea-bruno/cloudsync/pkg/handle"
)

const filePermissions = 0o600

// Persist writes the list's current contents to its path as raw
// concatenated FileId records (handle.FileId.Marshal, 12 bytes each),
// oldest first. The write is atomic: temp file in the same directory,
// fsynced, then renamed over path.
func (l *List) Persist() error {
	l.mu.Lock()
	data := make([]byte, 0, handle.MarshalSize*len(l.items))
	for _, it := range l.items {
		data = append(data, it.Marshal()...)
	}
	path := l.path
	l.dirty = false
	l.mu.Unlock()

	return atomicWrite(path, data)
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("pdil: creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".pdil-*.tmp")
	if err != nil {
		return fmt.Errorf("pdil: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()
	succeeded := false

	defer func() {
		if !succeeded {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()

		return fmt.Errorf("pdil: writing temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()

		return fmt.Errorf("pdil: syncing temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("pdil: closing temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, filePermissions); err != nil {
		return fmt.Errorf("pdil: setting permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("pdil: renaming temp file: %w", err)
	}

	succeeded = true

	return nil
}

// Load reads path and returns a populated List bounded to capacity. A
// missing file yields an empty list, not an error. A file whose length is
// not a multiple of handle.MarshalSize is corrupt: Load returns an empty
// list together with an error.
func Load(path string, capacity int, logger *slog.Logger) (*List, error) {
	l := New(path, capacity, logger)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}

		return l, fmt.Errorf("pdil: opening %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return l, fmt.Errorf("pdil: reading %s: %w", path, err)
	}

	if len(data)%handle.MarshalSize != 0 {
		return l, fmt.Errorf("pdil: %s is corrupt: length %d is not a multiple of %d", path, len(data), handle.MarshalSize)
	}

	recordCount := len(data) / handle.MarshalSize

	for i := 0; i < recordCount; i++ {
		rec := data[i*handle.MarshalSize : (i+1)*handle.MarshalSize]

		id, err := handle.UnmarshalFileId(rec)
		if err != nil {
			return l, fmt.Errorf("pdil: decoding record %d: %w", i, err)
		}

		l.items = append(l.items, id)
	}

	if len(l.items) > l.capacity {
		l.items = l.items[len(l.items)-l.capacity:]
	}

	return l, nil
}

// PersistDebounced runs until ctx is canceled, calling Persist after the
// list has gone quiet for debounce following the last dirty-marking
// operation. Mirrors the directory watcher's own debounce loop: a single
// goroutine resets a timer on every signal and flushes on expiry, with a
// final flush on cancellation if anything remains unpersisted.
func (l *List) PersistDebounced(ctx context.Context, debounce time.Duration, tick <-chan struct{}) {
	timer := time.NewTimer(debounce)
	timer.Stop()

	timerActive := false

	flush := func() {
		l.mu.Lock()
		dirty := l.dirty
		l.mu.Unlock()

		if !dirty {
			return
		}

		if err := l.Persist(); err != nil {
			l.logger.Error("pdil: debounced persist failed", "path", l.path, "error", err)
		}
	}

	defer func() {
		timer.Stop()
		flush()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case _, ok := <-tick:
			if !ok {
				return
			}

			if !timer.Stop() && timerActive {
				<-timer.C
			}

			timer.Reset(debounce)
			timerActive = true

		case <-timer.C:
			timerActive = false
			flush()
		}
	}
}
