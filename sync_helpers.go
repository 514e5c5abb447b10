package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/andrea-bruno/cloudsync/internal/config"
	"github.com/andrea-bruno/cloudsync/internal/engine"
	"github.com/andrea-bruno/cloudsync/internal/icm"
	"github.com/andrea-bruno/cloudsync/internal/pdil"
	"github.com/andrea-bruno/cloudsync/internal/session"
	"github.com/andrea-bruno/cloudsync/pkg/handle"
)

// contentSnapshotPathFor returns the on-disk path for a user's persisted
// content map, mirrored next to pdil.PathFor's Deleted-list convention
// under the hidden control directory.
func contentSnapshotPathFor(cloudRoot, userID string) string {
	return filepath.Join(cloudRoot, ".cloud_cache", userID+".Content")
}

// masterPINEnvVar holds the shared-secret PIN paired devices prove
// knowledge of during login. Read from the environment rather than the
// TOML config file so it never lands on disk next to less sensitive
// settings.
const masterPINEnvVar = "CLOUDSYNC_MASTER_PIN"

// buildEngineConfig translates a resolved TOML config into an
// engine.Config, parsing the size and duration strings the config file
// carries as human-readable text into the numeric types the engine wants.
func buildEngineConfig(cfg *config.Config, holder *config.Holder, transport engine.Transport, logger *slog.Logger) (engine.Config, error) {
	chunkSize, err := config.ParseSize(cfg.Transfers.ChunkSize)
	if err != nil {
		return engine.Config{}, fmt.Errorf("transfers.chunk_size: %w", err)
	}

	minReserve, err := config.ParseSize(cfg.Safety.MinReserve)
	if err != nil {
		return engine.Config{}, fmt.Errorf("safety.min_reserve: %w", err)
	}

	pauseBeforeSyncing, err := time.ParseDuration(cfg.Sync.PauseBeforeSyncing)
	if err != nil {
		return engine.Config{}, fmt.Errorf("sync.pause_before_syncing: %w", err)
	}

	rateLimitWindow, err := time.ParseDuration(cfg.Sync.RateLimitWindow)
	if err != nil {
		return engine.Config{}, fmt.Errorf("sync.rate_limit_window: %w", err)
	}

	rateLimitCooldown, err := time.ParseDuration(cfg.Sync.RateLimitCooldown)
	if err != nil {
		return engine.Config{}, fmt.Errorf("sync.rate_limit_cooldown: %w", err)
	}

	challengeTimeout, err := time.ParseDuration(cfg.Sync.ChallengeTimeout)
	if err != nil {
		return engine.Config{}, fmt.Errorf("sync.challenge_timeout: %w", err)
	}

	dataDir := config.DefaultDataDir()

	return engine.Config{
		CloudRoot:               cfg.CloudRoot,
		UserID:                  cfg.UserID,
		Instance:                handle.NewInstanceID(),
		TempDir:                 dataDir,
		ChunkSize:               int(chunkSize),
		MinReserve:              minReserve,
		MaxConcurrentOperations: cfg.Transfers.MaxConcurrentOperations,
		DeletedRingCapacity:     cfg.Sync.DeletedRingCapacity,
		DeletedListCapacity:     cfg.Sync.DeletedListCapacity,
		SyncDebounce:            pauseBeforeSyncing,
		PINStore:                session.NewPINStore(os.Getenv(masterPINEnvVar)),
		RateLimiter:             session.NewRateLimiter(cfg.Sync.RateLimitAttempts, rateLimitWindow, rateLimitCooldown),
		ChallengeTTL:            challengeTimeout,
		SuspendSync:             func() bool { return holder.Config().Paused },
		Transport:               transport,
		Logger:                  logger,
	}, nil
}

// loadContentAndDeleted loads the persisted indexed content map and
// deleted-id list for cfg, rebuilding the content map from the live
// filesystem tree when no snapshot exists yet (first run).
func loadContentAndDeleted(cfg *config.Config, logger *slog.Logger) (*icm.Map, *pdil.List, error) {
	contentPath := contentSnapshotPathFor(cfg.CloudRoot, cfg.UserID)

	content, err := icm.Load(contentPath, func(relPath string) string { return cfg.CloudRoot + "/" + relPath }, logger)
	if err != nil {
		content, err = icm.RebuildFromTree(context.Background(), cfg.CloudRoot, nil, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("rebuilding content map from %s: %w", cfg.CloudRoot, err)
		}
	}

	deletedPath := pdil.PathFor(cfg.CloudRoot, cfg.UserID)

	deleted, err := pdil.Load(deletedPath, cfg.Sync.DeletedListCapacity, logger)
	if err != nil {
		deleted = pdil.New(deletedPath, cfg.Sync.DeletedListCapacity, logger)
	}

	return content, deleted, nil
}
