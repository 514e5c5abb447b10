package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// Validation range constants.
const (
	minConcurrentOperations = 1
	maxConcurrentOperations = 64
	minTransientRetries     = 0
	maxTransientRetries     = 50
	minPauseBeforeSyncing   = 1 * time.Second
	minRateLimitAttempts    = 1
	minConnectTimeout       = 1 * time.Second
	minDataTimeout          = 5 * time.Second
)

var validRoles = map[string]bool{
	"client": true,
	"server": true,
}

// Validate checks all configuration values and returns all errors found. It
// accumulates every error rather than stopping at the first, so users see a
// complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	if !validRoles[cfg.Role] {
		errs = append(errs, fmt.Errorf("role: must be \"client\" or \"server\", got %q", cfg.Role))
	}

	errs = append(errs, validateICM(&cfg.ICM)...)
	errs = append(errs, validateTransfers(&cfg.Transfers)...)
	errs = append(errs, validateSafety(&cfg.Safety)...)
	errs = append(errs, validateSync(&cfg.Sync)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateNetwork(&cfg.Network)...)

	return errors.Join(errs...)
}

// ValidateResolved checks cross-field constraints that only make sense after
// the four-layer override chain (defaults -> file -> env -> CLI) has been
// fully applied.
func ValidateResolved(cfg *Config) error {
	var errs []error

	if cfg.CloudRoot == "" {
		errs = append(errs, errors.New("cloud_root: must be set"))
	} else if !filepath.IsAbs(cfg.CloudRoot) {
		errs = append(errs, fmt.Errorf("cloud_root: must be absolute, got %q", cfg.CloudRoot))
	}

	if cfg.Role == "client" && cfg.Network.PeerAddr == "" {
		errs = append(errs, errors.New("network.peer_addr: required when role is \"client\""))
	}

	if cfg.Role == "server" && cfg.Network.ListenAddr == "" {
		errs = append(errs, errors.New("network.listen_addr: required when role is \"server\""))
	}

	return errors.Join(errs...)
}

func validateICM(f *ICMConfig) []error {
	var errs []error

	if f.MaxFileSize != "" && f.MaxFileSize != "0" {
		if _, err := ParseSize(f.MaxFileSize); err != nil {
			errs = append(errs, fmt.Errorf("max_file_size: %w", err))
		}
	}

	return errs
}

func validateTransfers(t *TransfersConfig) []error {
	var errs []error

	if t.MaxConcurrentOperations < minConcurrentOperations || t.MaxConcurrentOperations > maxConcurrentOperations {
		errs = append(errs, fmt.Errorf("max_concurrent_operations: must be between %d and %d, got %d",
			minConcurrentOperations, maxConcurrentOperations, t.MaxConcurrentOperations))
	}

	if _, err := ParseSize(t.ChunkSize); err != nil {
		errs = append(errs, fmt.Errorf("chunk_size: %w", err))
	}

	if t.BandwidthLimit != "" {
		if _, err := ParseSize(t.BandwidthLimit); err != nil {
			errs = append(errs, fmt.Errorf("bandwidth_limit: %w", err))
		}
	}

	return errs
}

func validateSafety(s *SafetyConfig) []error {
	var errs []error

	if _, err := ParseSize(s.MinReserve); err != nil {
		errs = append(errs, fmt.Errorf("min_reserve: %w", err))
	}

	if s.TransientRetries < minTransientRetries || s.TransientRetries > maxTransientRetries {
		errs = append(errs, fmt.Errorf("transient_retries: must be between %d and %d, got %d",
			minTransientRetries, maxTransientRetries, s.TransientRetries))
	}

	if _, err := time.ParseDuration(s.TransientBasePause); err != nil {
		errs = append(errs, fmt.Errorf("transient_base_pause: %w", err))
	}

	return errs
}

func validateSync(s *SyncConfig) []error {
	var errs []error

	d, err := time.ParseDuration(s.PauseBeforeSyncing)
	if err != nil {
		errs = append(errs, fmt.Errorf("pause_before_syncing: %w", err))
	} else if d < minPauseBeforeSyncing {
		errs = append(errs, fmt.Errorf("pause_before_syncing: must be >= %s, got %s",
			minPauseBeforeSyncing, s.PauseBeforeSyncing))
	}

	if s.DeletedRingCapacity < 1 {
		errs = append(errs, fmt.Errorf("deleted_ring_capacity: must be >= 1, got %d", s.DeletedRingCapacity))
	}

	if s.DeletedListCapacity < 1 {
		errs = append(errs, fmt.Errorf("deleted_list_capacity: must be >= 1, got %d", s.DeletedListCapacity))
	}

	if _, err := time.ParseDuration(s.PersistDebounce); err != nil {
		errs = append(errs, fmt.Errorf("persist_debounce: %w", err))
	}

	if s.RateLimitAttempts < minRateLimitAttempts {
		errs = append(errs, fmt.Errorf("rate_limit_attempts: must be >= %d, got %d",
			minRateLimitAttempts, s.RateLimitAttempts))
	}

	if _, err := time.ParseDuration(s.RateLimitWindow); err != nil {
		errs = append(errs, fmt.Errorf("rate_limit_window: %w", err))
	}

	if _, err := time.ParseDuration(s.RateLimitCooldown); err != nil {
		errs = append(errs, fmt.Errorf("rate_limit_cooldown: %w", err))
	}

	if _, err := time.ParseDuration(s.ChallengeTimeout); err != nil {
		errs = append(errs, fmt.Errorf("challenge_timeout: %w", err))
	}

	return errs
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{
	"auto": true, "text": true, "json": true,
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if !validLogLevels[l.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", l.LogLevel))
	}

	if !validLogFormats[l.LogFormat] {
		errs = append(errs, fmt.Errorf("log_format: must be one of auto, text, json; got %q", l.LogFormat))
	}

	if l.LogRetentionDays < 1 {
		errs = append(errs, fmt.Errorf("log_retention_days: must be >= 1, got %d", l.LogRetentionDays))
	}

	return errs
}

func validateNetwork(n *NetworkConfig) []error {
	var errs []error

	connectTimeout, err := time.ParseDuration(n.ConnectTimeout)
	if err != nil {
		errs = append(errs, fmt.Errorf("connect_timeout: %w", err))
	} else if connectTimeout < minConnectTimeout {
		errs = append(errs, fmt.Errorf("connect_timeout: must be >= %s, got %s", minConnectTimeout, n.ConnectTimeout))
	}

	dataTimeout, err := time.ParseDuration(n.DataTimeout)
	if err != nil {
		errs = append(errs, fmt.Errorf("data_timeout: %w", err))
	} else if dataTimeout < minDataTimeout {
		errs = append(errs, fmt.Errorf("data_timeout: must be >= %s, got %s", minDataTimeout, n.DataTimeout))
	}

	return errs
}
