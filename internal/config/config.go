// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for cloudsync.
package config

// Config is the top-level configuration structure for one cloudsync
// instance — either a client or a server, per Role.
type Config struct {
	Role      string          `toml:"role"`
	CloudRoot string          `toml:"cloud_root"`
	UserID    string          `toml:"user_id"`
	// Paused holds the sync-suspension flag the pause/resume commands
	// toggle via SetKey/DeleteKey; a running daemon picks up changes to it
	// on SIGHUP reload.
	Paused    bool            `toml:"paused"`
	ICM       ICMConfig       `toml:"icm"`
	Transfers TransfersConfig `toml:"transfers"`
	Safety    SafetyConfig    `toml:"safety"`
	Sync      SyncConfig      `toml:"sync"`
	Logging   LoggingConfig   `toml:"logging"`
	Network   NetworkConfig   `toml:"network"`
}

// ICMConfig controls the Indexed Content Map and its visibility filtering.
type ICMConfig struct {
	SkipFiles    []string `toml:"skip_files"`
	SkipDirs     []string `toml:"skip_dirs"`
	SkipDotfiles bool     `toml:"skip_dotfiles"`
	SkipSymlinks bool     `toml:"skip_symlinks"`
	MaxFileSize  string   `toml:"max_file_size"`
}

// TransfersConfig controls the chunk transfer engine and operation spooler.
type TransfersConfig struct {
	MaxConcurrentOperations int    `toml:"max_concurrent_operations"`
	ChunkSize               string `toml:"chunk_size"`
	BandwidthLimit          string `toml:"bandwidth_limit"`
}

// SafetyConfig controls disk-admission and retry thresholds.
type SafetyConfig struct {
	MinReserve        string `toml:"min_reserve"`
	TransientRetries  int    `toml:"transient_retries"`
	TransientBasePause string `toml:"transient_base_pause"`
}

// SyncConfig controls debounce timing and the directory watcher.
type SyncConfig struct {
	PauseBeforeSyncing   string `toml:"pause_before_syncing"`
	DeletedRingCapacity  int    `toml:"deleted_ring_capacity"`
	DeletedListCapacity  int    `toml:"deleted_list_capacity"`
	PersistDebounce      string `toml:"persist_debounce"`
	RateLimitAttempts    int    `toml:"rate_limit_attempts"`
	RateLimitWindow      string `toml:"rate_limit_window"`
	RateLimitCooldown    string `toml:"rate_limit_cooldown"`
	ChallengeTimeout     string `toml:"challenge_timeout"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel         string `toml:"log_level"`
	LogFile          string `toml:"log_file"`
	LogFormat        string `toml:"log_format"`
	LogRetentionDays int    `toml:"log_retention_days"`
}

// NetworkConfig controls transport endpoints and timeouts.
type NetworkConfig struct {
	ListenAddr     string `toml:"listen_addr"`
	PeerAddr       string `toml:"peer_addr"`
	ConnectTimeout string `toml:"connect_timeout"`
	DataTimeout    string `toml:"data_timeout"`
	MetricsAddr    string `toml:"metrics_addr"`
}
