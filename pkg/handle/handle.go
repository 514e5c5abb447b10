// Package handle derives the stable 64-bit identifiers the indexed content
// map keys entries by, and generates the per-process instance id used to
// uniquify in-flight transfer staging files.
package handle

import (
	"fmt"
	"unicode/utf16"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/andrea-bruno/cloudsync/pkg/rollinghash"
)

// Kind distinguishes a file entry from a directory entry.
type Kind int

const (
	File Kind = iota
	Dir
)

// Seed constants used to derive Handle from a relative path. Distinct
// per-kind seeds mean the same relative path never collides between its
// file and directory interpretation.
const (
	seedFile uint64 = 0x9E3779B97F4A7C15
	seedDir  uint64 = 0xC2B2AE3D27D4EB4F
)

// Handle is a 64-bit identifier derived from a relative path and entry
// kind. Pure and order-independent: the same (path, kind) always yields the
// same Handle, stable across restarts and across peers.
type Handle uint64

// Derive computes the Handle for a relative path and kind. relPath must
// already be forward-slash normalized and have no leading slash; Derive
// applies Unicode NFC normalization before encoding, so paths that differ
// only in Unicode decomposition (as filesystems on different platforms may
// produce) hash identically.
func Derive(relPath string, kind Kind) Handle {
	normalized := norm.NFC.String(relPath)
	seed := seedFile

	if kind == Dir {
		seed = seedDir
	}

	return Handle(rollinghash.Hash64(seed, UTF16LEBytes(normalized)))
}

// UTF16LEBytes encodes s as UTF-16LE, the wire encoding used both for
// Handle derivation and for relative paths carried in chunk packets.
func UTF16LEBytes(s string) []byte {
	units := utf16.Encode([]rune(s))
	b := make([]byte, len(units)*2)

	for i, u := range units {
		b[2*i] = byte(u)
		b[2*i+1] = byte(u >> 8)
	}

	return b
}

// String renders the handle as lowercase hex, used in temp-file names and
// log output.
func (h Handle) String() string {
	return fmt.Sprintf("%016x", uint64(h))
}

// FileId identifies a file version at a moment: a Handle and the mtime it
// held at that moment. Directory FileIds carry Mtime=0. Twelve bytes on the
// wire and on disk (see FileId.Marshal/UnmarshalFileId).
type FileId struct {
	Handle Handle
	Mtime  uint32
}

// MarshalSize is the fixed on-disk/wire size of a FileId: 8 bytes of handle
// plus 4 bytes of mtime.
const MarshalSize = 12

// Marshal encodes the FileId as 12 bytes, little-endian.
func (f FileId) Marshal() []byte {
	b := make([]byte, MarshalSize)
	putUint64LE(b[0:8], uint64(f.Handle))
	putUint32LE(b[8:12], f.Mtime)

	return b
}

// UnmarshalFileId decodes a 12-byte little-endian record into a FileId.
func UnmarshalFileId(b []byte) (FileId, error) {
	if len(b) != MarshalSize {
		return FileId{}, fmt.Errorf("handle: invalid FileId record length %d, want %d", len(b), MarshalSize)
	}

	return FileId{
		Handle: Handle(getUint64LE(b[0:8])),
		Mtime:  getUint32LE(b[8:12]),
	}, nil
}

func putUint64LE(b []byte, v uint64) {
	for i := range 8 {
		b[i] = byte(v >> (8 * i))
	}
}

func putUint32LE(b []byte, v uint32) {
	for i := range 4 {
		b[i] = byte(v >> (8 * i))
	}
}

func getUint64LE(b []byte) uint64 {
	var v uint64
	for i := range 8 {
		v |= uint64(b[i]) << (8 * i)
	}

	return v
}

func getUint32LE(b []byte) uint32 {
	var v uint32
	for i := range 4 {
		v |= uint32(b[i]) << (8 * i)
	}

	return v
}

// InstanceID is a process-wide identifier mixed into temp-file names so
// that two instances of cloudsync staging a transfer for the same (peer,
// handle) pair never collide, even across a crash-restart race.
type InstanceID string

// NewInstanceID generates a fresh InstanceID. Called once per process at
// startup.
func NewInstanceID() InstanceID {
	return InstanceID(uuid.NewString())
}

// TempName builds the staging file name for an in-flight transfer:
// <peer_id_hex><handle_hex><instance_id>. One tmp file per (peer, handle)
// pair prevents cross-transfer corruption.
func TempName(peerID string, h Handle, instance InstanceID) string {
	return fmt.Sprintf("%s%s%s", peerID, h.String(), instance)
}
