package restart

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

// callRecorder records the order of scheduler and restarter calls
type callRecorder struct {
	calls []string
}

type fakeScheduler struct {
	rec *callRecorder
}

func (s *fakeScheduler) ScheduleResume(ctx context.Context, taskName, exePath string, args []string) error {
	s.rec.calls = append(s.rec.calls, "schedule")
	return nil
}

func (s *fakeScheduler) DeleteTask(ctx context.Context, taskName string) error {
	s.rec.calls = append(s.rec.calls, "delete")
	return nil
}

type fakeRestarter struct {
	rec *callRecorder
}

func (r *fakeRestarter) Restart(ctx context.Context) error {
	r.rec.calls = append(r.rec.calls, "restart")
	return nil
}

func newTestCoordinator(input string, assumeYes bool) (*Coordinator, *callRecorder, *bytes.Buffer) {
	rec := &callRecorder{}
	out := &bytes.Buffer{}
	c := NewCoordinator(
		&fakeScheduler{rec: rec}, &fakeRestarter{rec: rec},
		strings.NewReader(input), out,
		`C:\tools\wslrocky.exe`, []string{"resume"}, assumeYes)
	return c, rec, out
}

func TestResolve_NoRestartNoPrompt(t *testing.T) {
	c, rec, out := newTestCoordinator("Y\n", false)

	state, err := c.Resolve(context.Background(), Decision{Required: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if state != StateNoRestart {
		t.Errorf("expected %s, got %s", StateNoRestart, state)
	}
	if out.Len() != 0 {
		t.Errorf("no prompt should be shown, got %q", out.String())
	}
	if len(rec.calls) != 0 {
		t.Errorf("no scheduler or restarter calls expected, got %v", rec.calls)
	}
}

func TestResolve_ConfirmedSchedulesBeforeRestart(t *testing.T) {
	c, rec, out := newTestCoordinator("Y\n", false)

	state, err := c.Resolve(context.Background(), Decision{Required: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if state != StateConfirmed {
		t.Errorf("expected %s, got %s", StateConfirmed, state)
	}
	if prompts := strings.Count(out.String(), "Restart now?"); prompts != 1 {
		t.Errorf("prompt should be shown exactly once, got %d", prompts)
	}

	// The resumption task must be in place before the restart fires.
	want := []string{"schedule", "restart"}
	if len(rec.calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, rec.calls)
	}
	for i := range want {
		if rec.calls[i] != want[i] {
			t.Fatalf("expected calls %v, got %v", want, rec.calls)
		}
	}
}

func TestResolve_DeclinedContinues(t *testing.T) {
	tests := []string{"n\n", "N\n", "y\n", "yes\n", "\n", ""}

	for _, input := range tests {
		c, rec, _ := newTestCoordinator(input, false)

		state, err := c.Resolve(context.Background(), Decision{Required: true})
		if err != nil {
			t.Fatalf("unexpected error for input %q: %v", input, err)
		}

		if state != StateDeclined {
			t.Errorf("input %q: expected %s, got %s", input, StateDeclined, state)
		}
		if len(rec.calls) != 0 {
			t.Errorf("input %q: declined restart must not schedule or restart, got %v", input, rec.calls)
		}
	}
}

func TestResolve_AssumeYesDefers(t *testing.T) {
	c, rec, out := newTestCoordinator("Y\n", true)

	state, err := c.Resolve(context.Background(), Decision{Required: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if state != StateDeclined {
		t.Errorf("non-interactive runs defer the restart, got %s", state)
	}
	if out.Len() != 0 {
		t.Errorf("no prompt expected in non-interactive mode, got %q", out.String())
	}
	if len(rec.calls) != 0 {
		t.Errorf("no calls expected, got %v", rec.calls)
	}
}

func TestCleanup_DeletesTask(t *testing.T) {
	c, rec, _ := newTestCoordinator("", false)

	if err := c.Cleanup(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.calls) != 1 || rec.calls[0] != "delete" {
		t.Errorf("expected a delete call, got %v", rec.calls)
	}
}
