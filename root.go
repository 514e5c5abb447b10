package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/andrea-bruno/cloudsync/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagCloudRoot  string
	flagPeerAddr   string
	flagJSON       bool
	flagVerbose    bool
	flagDebug      bool
	flagQuiet      bool
)

// skipConfigAnnotation marks commands that resolve config themselves
// (pause/resume read a specific section by hand rather
// than going through the full four-layer Resolve chain run needs).
const skipConfigAnnotation = "skipConfig"

// CLIContext bundles the resolved config, a reload-capable Holder, and a
// logger. Created once in PersistentPreRunE.
type CLIContext struct {
	Cfg    *config.Config
	Holder *config.Holder
	Path   string
	Logger *slog.Logger
}

type cliContextKey struct{}

func cliContextFrom(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		return nil
	}

	return cc
}

// mustCLIContext extracts the CLIContext or panics with an actionable
// message — a programmer error, since the command tree guarantees
// PersistentPreRunE populates the context before RunE runs.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc := cliContextFrom(ctx)
	if cc == nil {
		panic("BUG: CLIContext not found in context — ensure the command " +
			"does not skip config loading or explicitly loads config in its RunE")
	}

	return cc
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "cloudsync",
		Short:         "Peer-to-peer file sync daemon",
		Long:          "cloudsync keeps a directory in sync with a paired peer over a WebSocket connection.",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipConfigAnnotation] == "true" {
				return nil
			}

			return loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagCloudRoot, "cloud-root", "", "synced directory override")
	cmd.PersistentFlags().StringVar(&flagPeerAddr, "peer-addr", "", "remote peer address override (client role)")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "show detailed output")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.MarkFlagsMutuallyExclusive("verbose", "debug", "quiet")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newPauseCmd())
	cmd.AddCommand(newResumeCmd())
	cmd.AddCommand(newVerifyCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the four-layer
// override chain and stores the result, plus a reload-capable Holder, in
// the command's context for use by subcommands.
func loadConfig(cmd *cobra.Command) error {
	logger := buildLogger(nil)

	env := config.ReadEnvOverrides()

	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
		CloudRoot:  flagCloudRoot,
		PeerAddr:   flagPeerAddr,
	}

	cfgPath := config.ResolveConfigPath(env, cli, logger)

	cfg, err := config.Resolve(env, cli, logger)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	finalLogger := buildLogger(cfg)

	cc := &CLIContext{
		Cfg:    cfg,
		Holder: config.NewHolder(cfg, cfgPath),
		Path:   cfgPath,
		Logger: finalLogger,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cc))

	return nil
}

// buildLogger creates an slog.Logger configured by the resolved config
// and CLI flags. Pass nil for pre-config bootstrap. Config-file log level
// is the baseline; --verbose/--debug/--quiet override it since CLI flags
// always win (Cobra enforces they're mutually exclusive).
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelWarn

	if cfg != nil {
		switch cfg.Logging.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelInfo
	}

	if flagDebug {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
