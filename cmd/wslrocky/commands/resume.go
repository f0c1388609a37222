package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"wslrocky/internal/config"
	"wslrocky/pkg/db"
	"wslrocky/pkg/errors"
	"wslrocky/pkg/restart"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Finish provisioning after the feature-enable reboot",
	Long: `Run by the scheduled resumption task after the machine restarts.
Closes out the restart audit record, removes the scheduled task, and drives
the provisioning workflow to completion.`,
	RunE: runResume,
}

func init() {
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "config invalid")
	}

	if err := ensureDirectories(cfg.SQLitePath, cfg.FSMDBPath, cfg.WorkDir); err != nil {
		return err
	}

	repo, err := db.NewRepository(cfg.SQLitePath)
	if err != nil {
		return errors.Wrap(err, "db init failed")
	}

	pending, err := repo.PendingRestarts(ctx, cfg.DistroName)
	if err != nil {
		slog.Warn("pending_restart_query_failed", "error", err)
	}
	if pending == 0 {
		slog.Info("no_pending_restart", "distro", cfg.DistroName)
	}

	if err := repo.MarkResumed(ctx, cfg.DistroName); err != nil {
		slog.Warn("restart_audit_close_failed", "error", err)
	}
	repo.Close()

	// The one-shot task has done its job; leaving it would re-run the
	// resume on every logon.
	exePath, err := os.Executable()
	if err != nil {
		return errors.Wrap(err, "failed to resolve executable path")
	}
	coordinator := restart.NewCoordinator(
		restart.NewScheduler(), restart.NewRestarter(),
		os.Stdin, os.Stdout,
		exePath, []string{"resume"}, cfg.AssumeYes)
	if err := coordinator.Cleanup(ctx); err != nil {
		slog.Warn("resume_task_cleanup_failed", "error", err)
	}

	slog.Info("resuming_provisioning", "distro", cfg.DistroName)

	return runProvisionFSM(ctx, cfg)
}
