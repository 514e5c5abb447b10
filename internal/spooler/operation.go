// Package spooler implements the bounded-concurrency operation queue that
// drains the operations the differential sync protocol produces: chunked
// sends and requests, delete propagation, and directory creation.
package spooler

import (
	"time"

	"github.com/andrea-bruno/cloudsync/pkg/handle"
)

// OpKind identifies the kind of work one queue entry asks the executor to
// perform.
type OpKind int

const (
	// OpRequest asks PeerID for the file or directory identified by Handle.
	OpRequest OpKind = iota
	// OpSend begins a chunked send of a local file or directory.
	OpSend
	// OpDeleteFile tells PeerID to delete Handle at Mtime.
	OpDeleteFile
	// OpDeleteDir tells PeerID to delete the directory identified by Handle.
	OpDeleteDir
	// OpMkdir tells PeerID to create the directory at RelPath.
	OpMkdir
)

// String returns a human-readable operation name for logging.
func (k OpKind) String() string {
	switch k {
	case OpRequest:
		return "request"
	case OpSend:
		return "send"
	case OpDeleteFile:
		return "delete_file"
	case OpDeleteDir:
		return "delete_dir"
	case OpMkdir:
		return "mkdir"
	default:
		return "unknown"
	}
}

// Operation is one queued unit of work.
type Operation struct {
	Kind     OpKind
	PeerID   string
	Handle   handle.Handle
	Mtime    uint32
	RelPath  string
	Enqueued time.Time
	Attempts int
}
