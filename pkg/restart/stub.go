//go:build !windows

package restart

import (
	"context"
	"fmt"
	"runtime"
)

// StubScheduler is a no-op task scheduler for non-Windows systems
type StubScheduler struct{}

// NewScheduler creates a stub scheduler on non-Windows systems
func NewScheduler() TaskScheduler {
	return &StubScheduler{}
}

func (s *StubScheduler) ScheduleResume(ctx context.Context, taskName, exePath string, args []string) error {
	return fmt.Errorf("task scheduling not supported on %s", runtime.GOOS)
}

func (s *StubScheduler) DeleteTask(ctx context.Context, taskName string) error {
	return fmt.Errorf("task scheduling not supported on %s", runtime.GOOS)
}

// StubRestarter is a no-op restarter for non-Windows systems
type StubRestarter struct{}

// NewRestarter creates a stub restarter on non-Windows systems
func NewRestarter() Restarter {
	return &StubRestarter{}
}

func (r *StubRestarter) Restart(ctx context.Context) error {
	return fmt.Errorf("restart not supported on %s", runtime.GOOS)
}
