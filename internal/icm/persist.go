package icm

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/andrea-bruno/cloudsync/pkg/handle"
)

// filePermissions is the mode new persistence files are created with.
const filePermissions = 0o600

// Persist writes the Map to path using a fixed on-disk layout: an
// 8-byte little-endian UsedSpace header followed by records of
// `handle:u64 LE | path_len:u16 LE | path:UTF-8 | mtime:u32 LE |
// alloc_size:i64 LE` repeated to EOF. The write is atomic: data lands in a
// temp file in the same directory, fsynced, then renamed over path.
func (m *Map) Persist(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var buf bytes.Buffer

	var header [8]byte
	binary.LittleEndian.PutUint64(header[:], uint64(m.usedSpace))
	buf.Write(header[:])

	for h, e := range m.entries {
		pathBytes := []byte(e.RelativePath)
		if len(pathBytes) > 0xFFFF {
			return fmt.Errorf("icm: path too long to persist: %q", e.RelativePath)
		}

		var rec [8 + 2]byte
		binary.LittleEndian.PutUint64(rec[0:8], uint64(h))
		binary.LittleEndian.PutUint16(rec[8:10], uint16(len(pathBytes)))
		buf.Write(rec[:])
		buf.Write(pathBytes)

		var tail [4 + 8]byte
		binary.LittleEndian.PutUint32(tail[0:4], e.Mtime)
		binary.LittleEndian.PutUint64(tail[4:12], uint64(e.AllocatedSize))
		buf.Write(tail[:])
	}

	return atomicWrite(path, buf.Bytes())
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("icm: creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".icm-*.tmp")
	if err != nil {
		return fmt.Errorf("icm: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()
	succeeded := false

	defer func() {
		if !succeeded {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()

		return fmt.Errorf("icm: writing temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()

		return fmt.Errorf("icm: syncing temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("icm: closing temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, filePermissions); err != nil {
		return fmt.Errorf("icm: setting permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("icm: renaming temp file: %w", err)
	}

	succeeded = true

	return nil
}

// Load reads path and replaces the Map's contents. On any structural
// error, Load removes the corrupt file, leaves the Map empty, and sets the
// load-failure flag (ErrLoadFailure is still returned so callers can log
// and trigger rebuild_from_tree) — structural reads never panic.
func Load(path string, absRootFor func(relPath string) string, logger *slog.Logger) (*Map, error) {
	m := New()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}

		return m, fmt.Errorf("icm: opening %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return corruptLoad(path, m, logger, err)
	}

	usedSpace := int64(binary.LittleEndian.Uint64(header[:]))

	var total int64

	for {
		e, ok, err := readRecord(r, absRootFor)
		if err != nil {
			return corruptLoad(path, m, logger, err)
		}

		if !ok {
			break
		}

		m.entries[e.Handle] = e
		m.byPath[e.RelativePath] = e.Handle
		total += e.AllocatedSize
	}

	m.usedSpace = total

	if total != usedSpace {
		logger.Warn("icm: used-space header mismatch, recomputed from records",
			"header", usedSpace, "recomputed", total)
	}

	return m, nil
}

func corruptLoad(path string, m *Map, logger *slog.Logger, cause error) (*Map, error) {
	logger.Warn("icm: corrupt persistence file, removing and rebuilding empty", "path", path, "error", cause)
	_ = os.Remove(path)

	fresh := New()
	fresh.loadFailure = true

	return fresh, fmt.Errorf("%w: %w", ErrLoadFailure, cause)
}

func readRecord(r *bufio.Reader, absRootFor func(relPath string) string) (Entry, bool, error) {
	var head [10]byte

	n, err := io.ReadFull(r, head[:])
	if err == io.EOF && n == 0 {
		return Entry{}, false, nil
	}

	if err != nil {
		return Entry{}, false, fmt.Errorf("reading record header: %w", err)
	}

	h := handle.Handle(binary.LittleEndian.Uint64(head[0:8]))
	pathLen := binary.LittleEndian.Uint16(head[8:10])

	pathBytes := make([]byte, pathLen)
	if _, err := io.ReadFull(r, pathBytes); err != nil {
		return Entry{}, false, fmt.Errorf("reading record path: %w", err)
	}

	var tail [12]byte
	if _, err := io.ReadFull(r, tail[:]); err != nil {
		return Entry{}, false, fmt.Errorf("reading record tail: %w", err)
	}

	relPath := string(pathBytes)
	mtime := binary.LittleEndian.Uint32(tail[0:4])
	allocSize := int64(binary.LittleEndian.Uint64(tail[4:12]))

	kind := File
	if mtime == 0 {
		kind = Dir
	}

	e := Entry{
		Handle:        h,
		RelativePath:  relPath,
		Mtime:         mtime,
		AllocatedSize: allocSize,
		Kind:          kind,
	}

	if absRootFor != nil {
		e.AbsolutePath = absRootFor(relPath)
	}

	return e, true, nil
}
