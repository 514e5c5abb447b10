package icm

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/andrea-bruno/cloudsync/pkg/handle"
)

// maxRebuildAttempts bounds the walk-with-restart loop rebuild_from_tree
// uses when concurrent filesystem mutation is detected mid-walk.
const maxRebuildAttempts = 5

// Walker notifies RebuildFromTree of filesystem mutations observed by an
// external watcher while a walk is in progress, so the walk can restart
// rather than commit a torn snapshot. A nil Walker disables the restart
// behavior — the walk always commits on its first pass.
type Walker interface {
	// Changed returns a channel that receives a value whenever the watcher
	// observes a create/change event under root during the walk.
	Changed() <-chan struct{}
}

// RebuildFromTree walks cloudRoot and returns a fresh Map containing every
// visible entry, skipping excluded directory names and invisible paths
// (see IsVisible). If w is non-nil and reports a mutation mid-walk, the
// walk restarts, up to maxRebuildAttempts; the final attempt always
// commits regardless of further mutation.
func RebuildFromTree(ctx context.Context, cloudRoot string, w Walker, logger *slog.Logger) (*Map, error) {
	var (
		m   *Map
		err error
	)

	for attempt := 1; attempt <= maxRebuildAttempts; attempt++ {
		var changed <-chan struct{}
		if w != nil {
			changed = w.Changed()
		}

		m, err = walkOnce(ctx, cloudRoot)
		if err != nil {
			return nil, err
		}

		if changed == nil || attempt == maxRebuildAttempts {
			break
		}

		select {
		case <-changed:
			logger.Debug("icm: rebuild restarting after mid-walk mutation", "attempt", attempt)

			continue
		default:
		}

		break
	}

	return m, nil
}

func walkOnce(ctx context.Context, cloudRoot string) (*Map, error) {
	m := New()

	err := filepath.WalkDir(cloudRoot, func(absPath string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err != nil {
			return fmt.Errorf("icm: walking %s: %w", absPath, err)
		}

		if absPath == cloudRoot {
			return nil
		}

		relPath := filepath.ToSlash(strings.TrimPrefix(absPath, cloudRoot+string(filepath.Separator)))

		if d.IsDir() && excludedDirNames[strings.ToLower(d.Name())] {
			return filepath.SkipDir
		}

		if IsUnderCloudCache(relPath) {
			if d.IsDir() {
				// Descend into .cloud_cache itself so PDIL files are
				// reached, but nothing nested deeper than that (PDIL
				// files are always flat children of it).
				if relPath != cloudCacheDirName {
					return filepath.SkipDir
				}

				return nil
			}

			if !IsPDILFile(relPath) {
				return nil
			}
			// A PDIL file: falls through to the ordinary file-entry path
			// below, same as any other visible file.
		} else if !IsVisible(relPath) {
			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("icm: stat %s: %w", absPath, err)
		}

		if d.IsDir() {
			h := handle.Derive(relPath, handle.Dir)
			_ = m.Add(Entry{
				Handle:       h,
				AbsolutePath: absPath,
				RelativePath: relPath,
				Kind:         Dir,
			})

			return nil
		}

		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}

		h := handle.Derive(relPath, handle.File)
		_ = m.Add(Entry{
			Handle:        h,
			AbsolutePath:  absPath,
			RelativePath:  relPath,
			Mtime:         uint32(info.ModTime().Unix()),
			AllocatedSize: info.Size(),
			Kind:          File,
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return m, nil
}
