package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/andrea-bruno/cloudsync/internal/config"
)

func newPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Suspend syncing until resumed",
		Long: `Sets paused = true in the config file and signals a running daemon
(SIGHUP) to pick up the change immediately. Without a running daemon, the
setting takes effect the next time "cloudsync run" starts.`,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE:        runPause,
		Args:        cobra.NoArgs,
	}
}

func runPause(cmd *cobra.Command, _ []string) error {
	logger := buildLogger(nil)

	env := config.ReadEnvOverrides()
	cli := config.CLIOverrides{ConfigPath: flagConfigPath}
	cfgPath := config.ResolveConfigPath(env, cli, logger)

	if err := config.SetKey(cfgPath, "paused", "true"); err != nil {
		return fmt.Errorf("setting paused flag: %w", err)
	}

	statusf(flagQuiet, "Sync paused at %s\n", time.Now().Format(time.RFC3339))

	notifyDaemon(flagQuiet)

	return nil
}

// notifyDaemon attempts to send SIGHUP to a running daemon so a config
// edit takes effect immediately. Non-fatal: absent a daemon, the change
// just waits for the next "cloudsync run".
func notifyDaemon(quiet bool) {
	pidPath := config.PIDFilePath()
	if pidPath == "" {
		return
	}

	if err := sendSIGHUP(pidPath); err != nil {
		statusf(quiet, "Note: %v — change takes effect on next daemon start\n", err)
	} else {
		statusf(quiet, "Notified running daemon to reload config\n")
	}
}
