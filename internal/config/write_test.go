package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateConfig_WritesRoleAndCloudRoot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	require.NoError(t, CreateConfig(path, "client", "/home/alice/CloudRoot"))

	cfg, err := Load(path, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "client", cfg.Role)
	assert.Equal(t, "/home/alice/CloudRoot", cfg.CloudRoot)
}

func TestSetKey_ReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, CreateConfig(path, "client", "/tmp/root"))

	require.NoError(t, SetKey(path, "peer_addr", "peer.example.com:7777"))

	cfg, err := Load(path, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "peer.example.com:7777", cfg.Network.PeerAddr)

	require.NoError(t, SetKey(path, "peer_addr", "other.example.com:8888"))

	cfg, err = Load(path, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "other.example.com:8888", cfg.Network.PeerAddr)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, countOccurrences(string(data), "peer_addr ="))
}

func TestDeleteKey_Idempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, CreateConfig(path, "client", "/tmp/root"))
	require.NoError(t, SetKey(path, "peer_addr", "peer:7777"))

	require.NoError(t, DeleteKey(path, "peer_addr"))
	require.NoError(t, DeleteKey(path, "peer_addr")) // no-op second time

	cfg, err := Load(path, testLogger(t))
	require.NoError(t, err)
	assert.Empty(t, cfg.Network.PeerAddr)
}

func countOccurrences(s, substr string) int {
	count := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
		}
	}

	return count
}
