//go:build darwin

package engine

import (
	"os"
	"path/filepath"
	"syscall"
)

// cloudRootMounted reports whether something is mounted at root: root's
// device id differs from its parent directory's.
func cloudRootMounted(root string) bool {
	rootInfo, err := os.Stat(root)
	if err != nil {
		return false
	}

	parentInfo, err := os.Stat(filepath.Dir(root))
	if err != nil {
		return false
	}

	rootStat, ok := rootInfo.Sys().(*syscall.Stat_t)
	if !ok {
		return true
	}

	parentStat, ok := parentInfo.Sys().(*syscall.Stat_t)
	if !ok {
		return true
	}

	return rootStat.Dev != parentStat.Dev
}
