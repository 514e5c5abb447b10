package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// configFilePermissions is the standard permission mode for config files.
const configFilePermissions = 0o644

// configDirPermissions is the standard permission mode for config directories.
const configDirPermissions = 0o755

// configTemplate is the default config file content written on first run.
// All settings are present as commented-out defaults so users can discover
// every option without reading docs. This template is written once and
// never regenerated — user modifications are preserved by subsequent
// text-level edits.
const configTemplate = `# cloudsync configuration

role = %q
cloud_root = %q

# ── Global settings ──
# Uncomment and modify to override defaults.

# Remote peer address (client only), e.g. "peer.example.com:7777"
# peer_addr = ""

# Listen address (server only), e.g. ":7777"
# listen_addr = ""

# Log level: debug, info, warn, error
# log_level = "info"

# Log file path (default: platform standard location)
# log_file = ""
`

// CreateConfig creates a new config file from the default template with the
// given role and cloud root filled in. The write is atomic (temp file +
// rename) and parent directories are created as needed.
func CreateConfig(path, role, cloudRoot string) error {
	slog.Info("creating config file", "path", path, "role", role, "cloud_root", cloudRoot)

	content := fmt.Sprintf(configTemplate, role, cloudRoot)

	return atomicWriteFile(path, []byte(content))
}

// SetKey sets a single top-level key-value pair in an existing config file.
// If the key already exists, its line is replaced; otherwise a new line is
// appended. Boolean values ("true"/"false") are written unquoted; everything
// else is written as a quoted string.
func SetKey(path, key, value string) error {
	slog.Info("setting config key", "path", path, "key", key, "value", value)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	formattedValue := formatTOMLValue(value)
	newLine := fmt.Sprintf("%s = %s", key, formattedValue)

	replaced := false

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			continue
		}

		if strings.HasPrefix(trimmed, key+" =") || strings.HasPrefix(trimmed, key+"=") {
			lines[i] = newLine
			replaced = true

			break
		}
	}

	if !replaced {
		lines = append(lines, newLine)
	}

	return atomicWriteFile(path, []byte(strings.Join(lines, "\n")))
}

// DeleteKey removes a single top-level key from the config file. Idempotent:
// returns nil if the key does not exist. Used by `resume` to clear a
// `paused` key written by `pause`.
func DeleteKey(path, key string) error {
	slog.Info("deleting config key", "path", path, "key", key)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	kept := lines[:0]

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, key+" =") || strings.HasPrefix(trimmed, key+"=") {
			continue
		}

		kept = append(kept, line)
	}

	return atomicWriteFile(path, []byte(strings.Join(kept, "\n")))
}

func formatTOMLValue(value string) string {
	if value == "true" || value == "false" {
		return value
	}

	return fmt.Sprintf("%q", value)
}

// atomicWriteFile writes data to a temporary file in the same directory as
// path, then renames it to the target path. This prevents partial writes
// from corrupting the config file on crash. Parent directories are created
// as needed. Files are created with configFilePermissions (0644).
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tempPath := f.Name()

	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()

		return fmt.Errorf("writing temp file: %w", err)
	}

	// Flush data to disk before rename. Without fsync, a power loss after
	// rename could leave the file empty (rename is metadata-only on POSIX).
	if err := f.Sync(); err != nil {
		f.Close()

		return fmt.Errorf("syncing temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tempPath, configFilePermissions); err != nil {
		return fmt.Errorf("setting file permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	succeeded = true

	return nil
}
