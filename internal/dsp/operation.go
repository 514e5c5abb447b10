// Package dsp implements the differential sync protocol: the three-tier
// root/structure/chunk convergence that lets either peer discover what the
// other is missing without exchanging full directory listings on every
// cycle.
package dsp

import "github.com/andrea-bruno/cloudsync/pkg/handle"

// OperationKind identifies what a diff step asks the spooler to do.
type OperationKind int

const (
	// OpRequest asks the peer to send the file or directory identified by
	// Handle — the local side doesn't have it, or has an older version.
	OpRequest OperationKind = iota
	// OpSend begins a chunked send of a local file or directory entry the
	// peer is missing or holds an older version of.
	OpSend
	// OpDeleteFile tells the peer to delete Handle at Mtime: the local
	// side has a deletion record for it (it reappeared in the peer's
	// structure after being deleted locally on purpose).
	OpDeleteFile
)

// String returns a human-readable operation name for logging.
func (k OperationKind) String() string {
	switch k {
	case OpRequest:
		return "request"
	case OpSend:
		return "send"
	case OpDeleteFile:
		return "delete_file"
	default:
		return "unknown"
	}
}

// Operation is one unit of work the structure phase produced for the
// spooler to drain.
type Operation struct {
	Kind   OperationKind
	Handle handle.Handle
	Mtime  uint32
}
