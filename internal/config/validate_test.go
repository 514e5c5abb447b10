package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, Validate(cfg))
}

func TestValidate_BadRole(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Role = "admin"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "role")
}

func TestValidate_BadChunkSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Transfers.ChunkSize = "not-a-size"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk_size")
}

func TestValidate_AccumulatesAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Role = "bogus"
	cfg.Logging.LogLevel = "loud"
	cfg.Sync.RateLimitAttempts = 0

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "role")
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "rate_limit_attempts")
}

func TestValidateResolved_RequiresAbsoluteCloudRoot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CloudRoot = "relative/path"
	cfg.Network.PeerAddr = "peer:7777"

	err := ValidateResolved(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cloud_root")
}

func TestValidateResolved_ClientRequiresPeerAddr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CloudRoot = "/tmp/cloud"
	cfg.Role = "client"

	err := ValidateResolved(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "peer_addr")
}

func TestValidateResolved_ServerRequiresListenAddr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CloudRoot = "/tmp/cloud"
	cfg.Role = "server"

	err := ValidateResolved(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen_addr")
}

func TestValidateResolved_OK(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CloudRoot = "/tmp/cloud"
	cfg.Role = "server"
	cfg.Network.ListenAddr = ":7777"

	assert.NoError(t, ValidateResolved(cfg))
}
