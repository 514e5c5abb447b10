//go:build linux

package engine

import (
	"path/filepath"

	"golang.org/x/sys/unix"
)

// cloudRootMounted reports whether something is mounted at root: root's
// device id differs from its parent directory's. A plain directory that
// never had anything mounted on it, or a FUSE mount that has since been
// torn down, shares its parent's device id.
func cloudRootMounted(root string) bool {
	var rootStat, parentStat unix.Stat_t

	if err := unix.Stat(root, &rootStat); err != nil {
		return false
	}

	if err := unix.Stat(filepath.Dir(root), &parentStat); err != nil {
		return false
	}

	return rootStat.Dev != parentStat.Dev
}
