package transfer

import (
	"path/filepath"

	"github.com/andrea-bruno/cloudsync/pkg/handle"
)

// StagingPath returns the temp-file path an in-flight receive for
// (peerID, h) stages to under tempDir: one file per (peer, handle) pair,
// named with the receiving instance's id so two instances racing to
// stage the same handle never collide.
func StagingPath(tempDir, peerID string, h handle.Handle, instance handle.InstanceID) string {
	return filepath.Join(tempDir, handle.TempName(peerID, h, instance))
}
