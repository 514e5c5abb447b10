package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig_Sane(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "client", cfg.Role)
	assert.Equal(t, "1MiB", cfg.Transfers.ChunkSize)
	assert.Equal(t, defaultMaxConcurrentOperations, cfg.Transfers.MaxConcurrentOperations)
	assert.Equal(t, "1GB", cfg.Safety.MinReserve)
	assert.Equal(t, defaultDeletedRingCapacity, cfg.Sync.DeletedRingCapacity)
	assert.Equal(t, defaultDeletedListCapacity, cfg.Sync.DeletedListCapacity)
	assert.Equal(t, defaultRateLimitAttempts, cfg.Sync.RateLimitAttempts)
}

func TestHolder_UpdateIsVisibleToConcurrentReaders(t *testing.T) {
	h := NewHolder(DefaultConfig(), "/tmp/config.toml")
	assert.Equal(t, "/tmp/config.toml", h.Path())

	updated := DefaultConfig()
	updated.Role = "server"
	h.Update(updated)

	assert.Equal(t, "server", h.Config().Role)
}
