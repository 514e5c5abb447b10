package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andrea-bruno/cloudsync/internal/config"
)

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume syncing after a pause",
		Long: `Clears paused from the config file and signals a running daemon
(SIGHUP) to pick up the change immediately.`,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE:        runResume,
		Args:        cobra.NoArgs,
	}
}

func runResume(cmd *cobra.Command, _ []string) error {
	logger := buildLogger(nil)

	env := config.ReadEnvOverrides()
	cli := config.CLIOverrides{ConfigPath: flagConfigPath}
	cfgPath := config.ResolveConfigPath(env, cli, logger)

	cfg, err := config.LoadOrDefault(cfgPath, logger)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if !cfg.Paused {
		statusf(flagQuiet, "Sync is not paused\n")

		return nil
	}

	if err := config.DeleteKey(cfgPath, "paused"); err != nil {
		return fmt.Errorf("clearing paused flag: %w", err)
	}

	statusf(flagQuiet, "Sync resumed\n")

	notifyDaemon(flagQuiet)

	return nil
}
