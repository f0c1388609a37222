package restart

import "context"

// State is the coordinator's position in the restart workflow
type State string

const (
	StateNoRestart State = "no_restart"
	StatePending   State = "restart_pending"
	StateConfirmed State = "restart_confirmed"
	StateDeclined  State = "restart_declined"
)

// Decision says whether the feature gate left the machine needing a reboot.
// It is threaded through explicitly instead of a shared mutable flag.
type Decision struct {
	Required bool
}

// TaskScheduler persists a one-shot resumption task that re-invokes this
// tool after the machine comes back up
type TaskScheduler interface {
	// ScheduleResume registers the task; it must be in place before any
	// restart is issued
	ScheduleResume(ctx context.Context, taskName, exePath string, args []string) error

	// DeleteTask removes a previously scheduled task
	DeleteTask(ctx context.Context, taskName string) error
}

// Restarter issues an immediate OS restart
type Restarter interface {
	Restart(ctx context.Context) error
}
