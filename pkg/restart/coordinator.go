// Package restart coordinates the reboot required after enabling Windows
// optional features. When a restart is needed it prompts the operator once;
// on consent it schedules a resumption task bound to this executable and
// then restarts the machine. The resumption task must be scheduled before
// the restart fires, otherwise the remaining provisioning steps are lost.
package restart

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"wslrocky/pkg/errors"
)

// DefaultTaskName is the scheduled-task name used for post-reboot resumption.
const DefaultTaskName = "WSLRockyResume"

// Coordinator resolves a restart decision into a terminal state
type Coordinator struct {
	scheduler TaskScheduler
	restarter Restarter
	in        io.Reader
	out       io.Writer

	taskName  string
	exePath   string
	args      []string
	assumeYes bool
}

// NewCoordinator creates a coordinator. exePath and args describe the
// resumption invocation (typically this binary with the resume subcommand).
func NewCoordinator(scheduler TaskScheduler, restarter Restarter, in io.Reader, out io.Writer, exePath string, args []string, assumeYes bool) *Coordinator {
	return &Coordinator{
		scheduler: scheduler,
		restarter: restarter,
		in:        in,
		out:       out,
		taskName:  DefaultTaskName,
		exePath:   exePath,
		args:      args,
		assumeYes: assumeYes,
	}
}

// Resolve walks the restart state machine. With no restart required it
// returns StateNoRestart without prompting. Otherwise the operator is
// prompted exactly once: "Y" confirms (schedule the resumption task, then
// restart), anything else declines and execution continues.
func (c *Coordinator) Resolve(ctx context.Context, decision Decision) (State, error) {
	if !decision.Required {
		return StateNoRestart, nil
	}

	slog.Info("restart_pending", "reason", "optional features need a reboot to take effect")

	if c.assumeYes {
		// Non-interactive runs never reboot out from under the caller.
		slog.Warn("restart_deferred", "reason", "non-interactive run, reboot manually and run the resume command")
		return StateDeclined, nil
	}

	fmt.Fprint(c.out, "A restart is required for the enabled features to take effect. Restart now? [Y/n]: ")

	answer := ""
	scanner := bufio.NewScanner(c.in)
	if scanner.Scan() {
		answer = strings.TrimSpace(scanner.Text())
	}

	if answer != "Y" {
		slog.Warn("restart_declined",
			"guidance", "reboot manually and run the resume command to finish provisioning")
		return StateDeclined, nil
	}

	// Schedule the resumption task first: a restart without it silently
	// drops the remaining steps.
	slog.Info("resume_task_schedule", "task", c.taskName, "exe", c.exePath)
	if err := c.scheduler.ScheduleResume(ctx, c.taskName, c.exePath, c.args); err != nil {
		return StatePending, errors.Wrap(err, "failed to schedule resumption task")
	}

	slog.Info("restart_issuing")
	if err := c.restarter.Restart(ctx); err != nil {
		return StatePending, errors.Wrap(err, "failed to issue restart")
	}

	return StateConfirmed, nil
}

// Cleanup removes the resumption task after a successful resume.
func (c *Coordinator) Cleanup(ctx context.Context) error {
	return c.scheduler.DeleteTask(ctx, c.taskName)
}
