package main

import (
	"encoding/json"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/andrea-bruno/cloudsync/internal/config"
)

// daemonStatus reports whether a daemon is running against this config's
// cloud root, and the paused/role state it would apply.
type daemonStatus struct {
	Running     bool   `json:"running"`
	PID         int    `json:"pid,omitempty"`
	Role        string `json:"role"`
	CloudRoot   string `json:"cloud_root"`
	Paused      bool   `json:"paused"`
	MetricsAddr string `json:"metrics_addr,omitempty"`
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the sync daemon is running",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	cfg := cc.Cfg

	status := daemonStatus{
		Role:        cfg.Role,
		CloudRoot:   cfg.CloudRoot,
		Paused:      cfg.Paused,
		MetricsAddr: cfg.Network.MetricsAddr,
	}

	if pid, alive := livePID(config.PIDFilePath()); alive {
		status.Running = true
		status.PID = pid
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(status)
	}

	printStatusTable(status)

	return nil
}

// livePID reads the daemon's PID file and checks the process is actually
// alive, guarding against a stale file left behind by an unclean exit.
func livePID(path string) (int, bool) {
	pid, err := readPIDFile(path)
	if err != nil {
		return 0, false
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, false
	}

	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return 0, false
	}

	return pid, true
}

func printStatusTable(status daemonStatus) {
	state := "stopped"
	if status.Running {
		state = fmt.Sprintf("running (pid %d)", status.PID)
	}

	if status.Paused {
		state += ", paused"
	}

	fmt.Printf("Daemon:     %s\n", state)
	fmt.Printf("Role:       %s\n", status.Role)
	fmt.Printf("Cloud root: %s\n", status.CloudRoot)

	if status.MetricsAddr != "" {
		fmt.Printf("Metrics:    http://%s/metrics\n", status.MetricsAddr)
	}
}
