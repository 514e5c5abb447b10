// Package transfer implements the chunk transfer engine: fixed-size chunk
// reads and writes with a rolling checksum, disk-admission checks, and
// temp-file staging for in-flight receives.
package transfer

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// DefaultChunkSize is the fixed chunk size used for file transfers:
// 1,024,000 bytes (not a true 1 MiB's 1,048,576 — kept exact as the
// wire-compatible constant).
const DefaultChunkSize = 1_024_000

// TotalParts returns the number of chunks a file of fileLength bytes is
// split into, at least 1 even for an empty file.
func TotalParts(fileLength int64, chunkSize int) uint32 {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	if fileLength <= 0 {
		return 1
	}

	parts := (fileLength + int64(chunkSize) - 1) / int64(chunkSize)

	return uint32(parts)
}

// GetChunk reads chunk number part (1-indexed) of path. part == total+1 is
// the logical end-of-transfer signal: it returns (nil, total, fileLength,
// nil) without error, releasing the caller's transfer ledger entry.
func GetChunk(path string, part uint32, chunkSize int) (data []byte, total uint32, fileLength int64, err error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("transfer: stat %s: %w", path, err)
	}

	fileLength = info.Size()
	total = TotalParts(fileLength, chunkSize)

	if part < 1 {
		return nil, total, fileLength, fmt.Errorf("transfer: part must be >= 1, got %d", part)
	}

	if part == total+1 {
		return nil, total, fileLength, nil
	}

	if part > total {
		return nil, total, fileLength, fmt.Errorf("transfer: part %d exceeds total %d", part, total)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, total, fileLength, fmt.Errorf("transfer: opening %s: %w", path, err)
	}
	defer f.Close()

	offset := int64(part-1) * int64(chunkSize)

	buf := make([]byte, chunkSize)

	n, err := f.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, total, fileLength, fmt.Errorf("transfer: reading chunk %d of %s: %w", part, path, err)
	}

	return buf[:n], total, fileLength, nil
}
