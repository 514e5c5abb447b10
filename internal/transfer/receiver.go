package transfer

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileAppend appends data to the temp file at tmpPath for chunk number
// part, validating that the file's current length matches exactly
// (part-1)*chunkSize before writing — out-of-order or duplicate chunks are
// rejected rather than silently corrupting the stream.
func FileAppend(tmpPath string, data []byte, chunkSize int64, part uint32) error {
	if err := os.MkdirAll(filepath.Dir(tmpPath), 0o700); err != nil {
		return fmt.Errorf("transfer: creating staging directory: %w", err)
	}

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("transfer: opening staging file %s: %w", tmpPath, err)
	}
	defer f.Close()

	// A transfer restarting at chunk 1 (e.g. after a crash or an abandoned
	// transfer reused the same staging path) must not inherit bytes left
	// over from a prior attempt; truncate before the length check.
	if part == 1 {
		if err := f.Truncate(0); err != nil {
			return fmt.Errorf("transfer: truncating staging file %s: %w", tmpPath, err)
		}
	}

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("transfer: stat staging file %s: %w", tmpPath, err)
	}

	expectedOffset := int64(part-1) * chunkSize
	if info.Size() != expectedOffset {
		return fmt.Errorf("transfer: chunk %d out of order for %s: have %d bytes, want %d",
			part, tmpPath, info.Size(), expectedOffset)
	}

	if _, err := f.WriteAt(data, expectedOffset); err != nil {
		return fmt.Errorf("transfer: appending chunk %d to %s: %w", part, tmpPath, err)
	}

	return nil
}

// Finalize validates the completed staging file against the final chunk's
// length and CRC, sets its mtime, and renames it into place. On mismatch
// the staging file is removed and an error is returned; the caller (the
// spooler) is expected to re-request the transfer.
func Finalize(tmpPath, finalPath string, footer FinalFooter, computedCRC uint64) error {
	if computedCRC != footer.CRC {
		os.Remove(tmpPath)

		return fmt.Errorf("transfer: crc mismatch finalizing %s: got %x, want %x", finalPath, computedCRC, footer.CRC)
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		return fmt.Errorf("transfer: stat staging file %s: %w", tmpPath, err)
	}

	if info.Size() != int64(footer.Length) {
		os.Remove(tmpPath)

		return fmt.Errorf("transfer: length mismatch finalizing %s: got %d, want %d", finalPath, info.Size(), footer.Length)
	}

	mtime := time.Unix(int64(footer.Mtime), 0)
	if err := os.Chtimes(tmpPath, mtime, mtime); err != nil {
		return fmt.Errorf("transfer: setting mtime on %s: %w", tmpPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(finalPath), 0o700); err != nil {
		return fmt.Errorf("transfer: creating destination directory: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("transfer: renaming %s to %s: %w", tmpPath, finalPath, err)
	}

	return nil
}
