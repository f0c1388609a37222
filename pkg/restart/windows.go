//go:build windows

package restart

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"wslrocky/pkg/errors"
)

// SchtasksScheduler implements TaskScheduler via schtasks.exe
type SchtasksScheduler struct{}

// NewScheduler creates a Windows task scheduler
func NewScheduler() TaskScheduler {
	return &SchtasksScheduler{}
}

func (s *SchtasksScheduler) ScheduleResume(ctx context.Context, taskName, exePath string, args []string) error {
	action := fmt.Sprintf(`"%s" %s`, exePath, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, "schtasks.exe", "/Create",
		"/TN", taskName,
		"/TR", action,
		"/SC", "ONLOGON",
		"/RL", "HIGHEST",
		"/F")
	if err := cmd.Run(); err != nil {
		slog.Error("schtasks_create_failed", "task", taskName, "error", err)
		return errors.Wrap(err, "schtasks create failed")
	}

	slog.Info("schtasks_created", "task", taskName, "action", action)
	return nil
}

func (s *SchtasksScheduler) DeleteTask(ctx context.Context, taskName string) error {
	cmd := exec.CommandContext(ctx, "schtasks.exe", "/Delete", "/TN", taskName, "/F")
	if err := cmd.Run(); err != nil {
		slog.Error("schtasks_delete_failed", "task", taskName, "error", err)
		return errors.Wrap(err, "schtasks delete failed")
	}

	slog.Info("schtasks_deleted", "task", taskName)
	return nil
}

// ShutdownRestarter implements Restarter via shutdown.exe
type ShutdownRestarter struct{}

// NewRestarter creates a Windows restarter
func NewRestarter() Restarter {
	return &ShutdownRestarter{}
}

func (r *ShutdownRestarter) Restart(ctx context.Context) error {
	// Short grace period so journaled state hits disk before the reboot.
	cmd := exec.CommandContext(ctx, "shutdown.exe", "/r", "/t", "5",
		"/c", "Restarting to finish WSL feature enablement")
	if err := cmd.Run(); err != nil {
		slog.Error("shutdown_failed", "error", err)
		return errors.Wrap(err, "shutdown command failed")
	}

	slog.Info("restart_scheduled", "delay_seconds", 5)
	return nil
}
