package engine

import (
	"fmt"
	"unicode/utf16"

	"github.com/andrea-bruno/cloudsync/internal/transfer"
	"github.com/andrea-bruno/cloudsync/pkg/handle"
)

func utf16leToString(b []byte) string {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
	}

	return string(utf16.Decode(units))
}

func putUint16LE(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func getUint16LE(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func putUint32LE(b []byte, v uint32) {
	for i := range 4 {
		b[i] = byte(v >> (8 * i))
	}
}

func getUint32LE(b []byte) uint32 {
	var v uint32
	for i := range 4 {
		v |= uint32(b[i]) << (8 * i)
	}

	return v
}

func putUint64LE(b []byte, v uint64) {
	for i := range 8 {
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

func encodeHandle(h handle.Handle) []byte {
	b := make([]byte, 8)
	putUint64LE(b, uint64(h))

	return b
}

func decodeHandle(b []byte) (handle.Handle, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("engine: handle frame must be 8 bytes, got %d", len(b))
	}

	return handle.Handle(getUint64LE(b)), nil
}

func encodeUint32(v uint32) []byte {
	b := make([]byte, 4)
	putUint32LE(b, v)

	return b
}

func decodeUint32(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("engine: uint32 frame must be 4 bytes, got %d", len(b))
	}

	return getUint32LE(b), nil
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	putUint64LE(b, v)

	return b
}

func decodeUint64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("engine: uint64 frame must be 8 bytes, got %d", len(b))
	}

	return getUint64LE(b), nil
}

// requestAuthFrames builds the [host_ascii],[userAgent_ascii] frames
// RequestOfAuthentication carries.
func requestAuthFrames(host, userAgent string) [][]byte {
	return [][]byte{[]byte(host), []byte(userAgent)}
}

func decodeRequestAuth(frames [][]byte) (host, userAgent string, err error) {
	if len(frames) == 0 || len(frames) > 2 {
		return "", "", fmt.Errorf("engine: malformed RequestOfAuthentication frames")
	}

	host = string(frames[0])

	if len(frames) == 2 {
		userAgent = string(frames[1])
	}

	return host, userAgent, nil
}

// authFrames builds the single [challenge_or_proof] frame Authentication
// carries, whichever direction it is traveling.
func authFrames(payload []byte) [][]byte {
	return [][]byte{payload}
}

func decodeAuth(frames [][]byte) ([]byte, error) {
	if len(frames) != 1 {
		return nil, fmt.Errorf("engine: malformed Authentication frames")
	}

	return frames[0], nil
}

// sendHashStructureFrames builds the [structure_bytes] frame
// SendHashStructure carries.
func sendHashStructureFrames(structure []byte) [][]byte {
	return [][]byte{structure}
}

func decodeSendHashStructure(frames [][]byte) ([]byte, error) {
	if len(frames) != 1 {
		return nil, fmt.Errorf("engine: malformed SendHashStructure frames")
	}

	return frames[0], nil
}

// sendHashRootFrames builds the [root_u64_le] frame SendHashRoot carries.
func sendHashRootFrames(root uint64) [][]byte {
	return [][]byte{encodeUint64(root)}
}

// requestChunkFrames builds the [handle_u64_le],[part_u32_le] frames
// RequestChunkFile carries.
func requestChunkFrames(h handle.Handle, part uint32) [][]byte {
	return [][]byte{encodeHandle(h), encodeUint32(part)}
}

func decodeRequestChunk(frames [][]byte) (h handle.Handle, part uint32, err error) {
	if len(frames) != 2 {
		return 0, 0, fmt.Errorf("engine: malformed RequestChunkFile frames")
	}

	h, err = decodeHandle(frames[0])
	if err != nil {
		return 0, 0, err
	}

	part, err = decodeUint32(frames[1])

	return h, part, err
}

// deleteFileFrames builds the [handle_u64_le],[mtime_u32_le] frames
// DeleteFile carries.
func deleteFileFrames(h handle.Handle, mtime uint32) [][]byte {
	return [][]byte{encodeHandle(h), encodeUint32(mtime)}
}

func decodeDeleteFile(frames [][]byte) (h handle.Handle, mtime uint32, err error) {
	if len(frames) != 2 {
		return 0, 0, fmt.Errorf("engine: malformed DeleteFile frames")
	}

	h, err = decodeHandle(frames[0])
	if err != nil {
		return 0, 0, err
	}

	mtime, err = decodeUint32(frames[1])

	return h, mtime, err
}

// createDirectoryFrames builds the [relpath_utf16le] frame CreateDirectory
// carries.
func createDirectoryFrames(relPath string) [][]byte {
	return [][]byte{handle.UTF16LEBytes(relPath)}
}

func decodeCreateDirectory(frames [][]byte) (string, error) {
	if len(frames) != 1 {
		return "", fmt.Errorf("engine: malformed CreateDirectory frames")
	}

	return utf16leToString(frames[0]), nil
}

// deleteDirectoryFrames builds the [handle_u64_le] frame DeleteDirectory
// carries.
func deleteDirectoryFrames(h handle.Handle) [][]byte {
	return [][]byte{encodeHandle(h)}
}

func decodeDeleteDirectory(frames [][]byte) (handle.Handle, error) {
	if len(frames) != 1 {
		return 0, fmt.Errorf("engine: malformed DeleteDirectory frames")
	}

	return decodeHandle(frames[0])
}

// notificationFrames builds the [notice: u8] frame Notification carries.
func notificationFrames(n Notice) [][]byte {
	return [][]byte{{byte(n)}}
}

// statusFrames builds the [status: u8] frame StatusNotification carries.
func statusFrames(s Status) [][]byte {
	return [][]byte{{byte(s)}}
}

// chunkFileFrames wraps a ChunkPacket as SendChunkFile's single data
// frame: transfer.ChunkPacket.Marshal already lays out the full
// handle/part/total/data[/footer] sequence the command table lists as
// separate frames, so the wstransport framing only needs to carry it
// whole rather than re-split it.
func chunkFileFrames(p transfer.ChunkPacket) [][]byte {
	return [][]byte{p.Marshal()}
}

func decodeChunkFile(frames [][]byte) (transfer.ChunkPacket, error) {
	if len(frames) != 1 {
		return transfer.ChunkPacket{}, fmt.Errorf("engine: SendChunkFile expects exactly one frame, got %d", len(frames))
	}

	b := frames[0]
	if len(b) < 16 {
		return transfer.ChunkPacket{}, fmt.Errorf("engine: SendChunkFile frame too short: %d bytes", len(b))
	}

	part := getUint32LE(b[8:12])
	total := getUint32LE(b[12:16])

	return transfer.UnmarshalChunkPacket(b, part == total)
}

func decodeNotice(frames [][]byte) (Notice, error) {
	if len(frames) != 1 || len(frames[0]) != 1 {
		return 0, fmt.Errorf("engine: malformed Notification frames")
	}

	return Notice(frames[0][0]), nil
}

func decodeStatus(frames [][]byte) (Status, error) {
	if len(frames) != 1 || len(frames[0]) != 1 {
		return 0, fmt.Errorf("engine: malformed StatusNotification frames")
	}

	return Status(frames[0][0]), nil
}
