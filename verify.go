package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/andrea-bruno/cloudsync/internal/icm"
)

// errVerifyMismatch is returned by runVerify when the persisted content
// map disagrees with what a fresh tree walk finds, so main can translate
// it into a distinct exit code without re-parsing output.
var errVerifyMismatch = errors.New("cloudsync: verify found mismatches")

// verifyMismatch describes one path where the persisted snapshot and the
// live filesystem tree disagree.
type verifyMismatch struct {
	Path   string `json:"path"`
	Status string `json:"status"`
}

// verifyReport summarizes one verify run.
type verifyReport struct {
	Verified   int              `json:"verified"`
	Mismatches []verifyMismatch `json:"mismatches"`
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the persisted content map against the live directory tree",
		Long: `Rebuilds the indexed content map from the filesystem and compares it
against the last persisted snapshot, reporting any path that was added,
removed, or changed without the watcher noticing.

Exit code 0 if the snapshot matches the tree; exit code 1 if any mismatch
is found.`,
		RunE: runVerify,
	}
}

func runVerify(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	cfg := cc.Cfg

	if cfg.CloudRoot == "" {
		return fmt.Errorf("cloud_root not configured — set it in the config file or pass --cloud-root")
	}

	report, err := buildVerifyReport(cmd.Context(), cc)
	if err != nil {
		return err
	}

	if flagJSON {
		if err := printVerifyJSON(report); err != nil {
			return err
		}
	} else {
		printVerifyTable(report)
	}

	if len(report.Mismatches) > 0 {
		return errVerifyMismatch
	}

	return nil
}

// buildVerifyReport rebuilds the content map from the live tree and diffs
// it against the persisted snapshot, path by path.
func buildVerifyReport(ctx context.Context, cc *CLIContext) (*verifyReport, error) {
	cfg := cc.Cfg

	live, err := icm.RebuildFromTree(ctx, cfg.CloudRoot, nil, cc.Logger)
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", cfg.CloudRoot, err)
	}

	snapshotPath := contentSnapshotPathFor(cfg.CloudRoot, cfg.UserID)

	persisted, err := icm.Load(snapshotPath, func(relPath string) string { return cfg.CloudRoot + "/" + relPath }, cc.Logger)
	if err != nil {
		persisted = icm.New()
	}

	report := &verifyReport{}

	seen := make(map[string]bool, live.Len())

	live.Iter(func(e icm.Entry) {
		seen[e.RelativePath] = true

		other, ok := persisted.GetByPath(e.RelativePath)
		switch {
		case !ok:
			report.Mismatches = append(report.Mismatches, verifyMismatch{Path: e.RelativePath, Status: "untracked"})
		case other.Mtime != e.Mtime || other.AllocatedSize != e.AllocatedSize:
			report.Mismatches = append(report.Mismatches, verifyMismatch{Path: e.RelativePath, Status: "stale-snapshot"})
		default:
			report.Verified++
		}
	})

	persisted.Iter(func(e icm.Entry) {
		if !seen[e.RelativePath] {
			report.Mismatches = append(report.Mismatches, verifyMismatch{Path: e.RelativePath, Status: "missing-on-disk"})
		}
	})

	return report, nil
}

func printVerifyJSON(report *verifyReport) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	return nil
}

func printVerifyTable(report *verifyReport) {
	fmt.Printf("Verified: %d entries\n", report.Verified)

	if len(report.Mismatches) == 0 {
		fmt.Println("Content map matches the directory tree.")
		return
	}

	fmt.Printf("Mismatches: %d\n\n", len(report.Mismatches))

	headers := []string{"PATH", "STATUS"}
	rows := make([][]string, len(report.Mismatches))

	for i, m := range report.Mismatches {
		rows[i] = []string{m.Path, m.Status}
	}

	printTable(os.Stdout, headers, rows)
}
