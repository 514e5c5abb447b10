//go:build linux

package transfer

import "golang.org/x/sys/unix"

// availableBytes returns the bytes available to unprivileged users on the
// volume containing path. Uses Bavail, not Bfree, since Bfree includes
// root-reserved blocks that a normal sync process can't actually use.
func availableBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}

	return uint64(stat.Bavail) * uint64(stat.Bsize), nil //nolint:gosec // kernel guarantees non-negative
}
