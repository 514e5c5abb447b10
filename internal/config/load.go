package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// CLIOverrides holds values that take precedence over both the config file
// and the environment (the outermost layer of the four-layer chain).
type CLIOverrides struct {
	ConfigPath string
	CloudRoot  string
	PeerAddr   string
}

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are treated as fatal errors with "did you
// mean?" suggestions.
func Load(path string, logger *slog.Logger) (*Config, error) {
	logger.Debug("loading config file", "path", path)

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	// Settings are written as flat top-level keys; embedding each section
	// lets them decode into the matching sub-struct.
	flat := struct {
		*Config
		*ICMConfig
		*TransfersConfig
		*SafetyConfig
		*SyncConfig
		*LoggingConfig
		*NetworkConfig
	}{cfg, &cfg.ICM, &cfg.Transfers, &cfg.Safety, &cfg.Sync, &cfg.Logging, &cfg.Network}

	md, err := toml.Decode(string(data), &flat)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	logger.Debug("config file parsed successfully", "path", path, "role", cfg.Role)

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns a
// Config populated with all default values. This supports the zero-config
// first-run experience: users can start without creating a config file.
func LoadOrDefault(path string, logger *slog.Logger) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debug("config file not found, using defaults", "path", path)

		return DefaultConfig(), nil
	}

	return Load(path, logger)
}

// Resolve loads configuration and applies the four-layer override chain:
// defaults -> config file -> environment variables -> CLI flags. It returns
// the fully resolved Config.
func Resolve(env EnvOverrides, cli CLIOverrides, logger *slog.Logger) (*Config, error) {
	cfgPath := ResolveConfigPath(env, cli, logger)

	cfg, err := LoadOrDefault(cfgPath, logger)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if env.CloudRoot != "" {
		cfg.CloudRoot = env.CloudRoot
	}

	if env.PeerAddr != "" {
		cfg.Network.PeerAddr = env.PeerAddr
	}

	if cli.CloudRoot != "" {
		cfg.CloudRoot = cli.CloudRoot
		logger.Debug("CLI override applied", "cloud_root", cfg.CloudRoot)
	}

	if cli.PeerAddr != "" {
		cfg.Network.PeerAddr = cli.PeerAddr
		logger.Debug("CLI override applied", "peer_addr", cfg.Network.PeerAddr)
	}

	if err := ValidateResolved(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// ResolveConfigPath determines the config file path using the three-layer
// priority: CLI flag > environment variable > platform default. This is the
// single correct implementation of config path resolution.
func ResolveConfigPath(env EnvOverrides, cli CLIOverrides, logger *slog.Logger) string {
	cfgPath := DefaultConfigPath()
	source := "default"

	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
		source = "env"
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
		source = "cli"
	}

	logger.Debug("config path resolved", "path", cfgPath, "source", source)

	return cfgPath
}
