package config

// Default values for configuration options. These represent the "layer 0"
// of the four-layer override chain (defaults -> file -> env -> CLI flags)
// and mirror the named sync constants (chunk size, debounce windows,
// rate-limit thresholds) used throughout the engine.
const (
	defaultRole = "client"

	defaultMaxFileSize = "0" // 0 = unlimited

	defaultMaxConcurrentOperations = 4
	defaultChunkSize               = "1MiB"
	defaultBandwidthLimit          = "0"

	defaultMinReserve         = "1GB"
	defaultTransientRetries   = 10
	defaultTransientBasePause = "50ms"

	defaultPauseBeforeSyncing  = "10s"
	defaultDeletedRingCapacity = 1000
	defaultDeletedListCapacity = 1000
	defaultPersistDebounce     = "1s"
	defaultRateLimitAttempts   = 3
	defaultRateLimitWindow     = "5s"
	defaultRateLimitCooldown   = "600s"
	defaultChallengeTimeout    = "30s"

	defaultLogLevel         = "info"
	defaultLogFormat        = "auto"
	defaultLogRetentionDays = 30

	defaultConnectTimeout = "10s"
	defaultDataTimeout    = "60s"
)

// DefaultConfig returns a Config populated with all default values. This is
// used both as the starting point for TOML decoding (so unset fields retain
// defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Role:      defaultRole,
		ICM:       defaultICMConfig(),
		Transfers: defaultTransfersConfig(),
		Safety:    defaultSafetyConfig(),
		Sync:      defaultSyncConfig(),
		Logging:   defaultLoggingConfig(),
		Network:   defaultNetworkConfig(),
	}
}

func defaultICMConfig() ICMConfig {
	return ICMConfig{
		SkipDotfiles: false,
		SkipSymlinks: false,
		MaxFileSize:  defaultMaxFileSize,
	}
}

func defaultTransfersConfig() TransfersConfig {
	return TransfersConfig{
		MaxConcurrentOperations: defaultMaxConcurrentOperations,
		ChunkSize:               defaultChunkSize,
		BandwidthLimit:          defaultBandwidthLimit,
	}
}

func defaultSafetyConfig() SafetyConfig {
	return SafetyConfig{
		MinReserve:         defaultMinReserve,
		TransientRetries:   defaultTransientRetries,
		TransientBasePause: defaultTransientBasePause,
	}
}

func defaultSyncConfig() SyncConfig {
	return SyncConfig{
		PauseBeforeSyncing:  defaultPauseBeforeSyncing,
		DeletedRingCapacity: defaultDeletedRingCapacity,
		DeletedListCapacity: defaultDeletedListCapacity,
		PersistDebounce:     defaultPersistDebounce,
		RateLimitAttempts:   defaultRateLimitAttempts,
		RateLimitWindow:     defaultRateLimitWindow,
		RateLimitCooldown:   defaultRateLimitCooldown,
		ChallengeTimeout:    defaultChallengeTimeout,
	}
}

func defaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		LogLevel:         defaultLogLevel,
		LogFormat:        defaultLogFormat,
		LogRetentionDays: defaultLogRetentionDays,
	}
}

func defaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		ConnectTimeout: defaultConnectTimeout,
		DataTimeout:    defaultDataTimeout,
	}
}
